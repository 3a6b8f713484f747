package onboard

import (
	"errors"
	"fmt"
	"testing"

	"github.com/g960059/exile-onboard/internal/api"
	"github.com/g960059/exile-onboard/internal/route"
)

func TestInterestWithoutActiveRunFailsLocally(t *testing.T) {
	svc := newFakeService()
	m := Start(newTestModel(svc, Options{}))

	m, cmd := m.Update(SubmitInterestMsg{Rating: "5"})
	if cmd != nil {
		t.Fatalf("expected no command without an active run")
	}
	if m.View().Status.Text != MsgInterestNoRun || m.View().Status.Kind != StatusError {
		t.Fatalf("unexpected status %+v", m.View().Status)
	}
	if len(svc.interestReqs) != 0 {
		t.Fatalf("expected no network call, got %v", svc.interestReqs)
	}
}

func TestInterestAfterFailedLoadFailsLocally(t *testing.T) {
	svc := newFakeService()
	svc.getErr = errors.New("boom")
	m := Start(newTestModel(svc, Options{Location: route.ResultsFragment("7")}))

	m = Drive(m, SubmitInterestMsg{})
	if m.View().Status.Text != MsgInterestNoRun || len(svc.interestReqs) != 0 {
		t.Fatalf("expected local failure, got %q %v", m.View().Status.Text, svc.interestReqs)
	}
}

func TestInterestSendsActiveRunID(t *testing.T) {
	svc := newFakeService()
	svc.runs["7"] = okRun("7", "Aa")
	svc.interestResp = api.InterestResponse{Saved: true}
	m := Start(newTestModel(svc, Options{}))
	m, _ = m.Update(FieldChangedMsg{Field: FieldContact, Value: "exile#1234"})
	m = Drive(m, NavigateMsg{Fragment: route.ResultsFragment("7")})

	m = Drive(m, SubmitInterestMsg{Rating: " 4 ", Intent: "buy", Notes: "ping me"})
	if len(svc.interestReqs) != 1 {
		t.Fatalf("expected one interest call, got %v", svc.interestReqs)
	}
	req := svc.interestReqs[0]
	if req.RunID != "7" {
		t.Fatalf("expected run_id 7, got %q", req.RunID)
	}
	if req.Rating == nil || *req.Rating != 4 {
		t.Fatalf("expected rating 4, got %v", req.Rating)
	}
	if req.Contact == nil || *req.Contact != "exile#1234" {
		t.Fatalf("expected contact from the run form, got %v", req.Contact)
	}
	if req.Intent == nil || *req.Intent != "buy" || req.Notes == nil || *req.Notes != "ping me" {
		t.Fatalf("unexpected optional fields %+v", req)
	}
	if m.View().Status.Text != MsgInterestSaved {
		t.Fatalf("unexpected status %q", m.View().Status.Text)
	}
	if m.Session().Active == nil || m.View().InterestDisabled {
		t.Fatalf("run context must stay active and the trigger re-enabled")
	}

	m = Drive(m, SubmitInterestMsg{Contact: "other@example.com"})
	if len(svc.interestReqs) != 2 {
		t.Fatalf("repeat submissions must be allowed, got %d", len(svc.interestReqs))
	}
	second := svc.interestReqs[1]
	if second.Rating != nil || second.Notes != nil || second.Contact == nil || *second.Contact != "other@example.com" {
		t.Fatalf("second submission must be independent, got %+v", second)
	}
}

func TestInterestWithoutSavedFlagIsFailure(t *testing.T) {
	for _, resp := range []api.InterestResponse{{Saved: false}, {}} {
		svc := newFakeService()
		svc.runs["7"] = okRun("7", "Aa")
		svc.interestResp = resp
		m := Start(newTestModel(svc, Options{Location: route.ResultsFragment("7")}))

		m = Drive(m, SubmitInterestMsg{})
		want := fmt.Sprintf(MsgInterestFailed, ErrNotSaved.Error())
		if m.View().Status.Text != want || m.View().Status.Kind != StatusError {
			t.Fatalf("expected %q, got %+v", want, m.View().Status)
		}
		if m.Session().Active == nil {
			t.Fatalf("failure must not clear the active run")
		}
	}
}

func TestInterestTransportError(t *testing.T) {
	svc := newFakeService()
	svc.runs["7"] = okRun("7", "Aa")
	svc.interestErr = errors.New("http 500")
	m := Start(newTestModel(svc, Options{Location: route.ResultsFragment("7")}))

	m = Drive(m, SubmitInterestMsg{})
	if m.View().Status.Text != "Could not save interest: http 500" || m.View().InterestDisabled {
		t.Fatalf("unexpected state %+v", m.View())
	}
}

func TestInterestRejectsNonNumericRating(t *testing.T) {
	svc := newFakeService()
	svc.runs["7"] = okRun("7", "Aa")
	m := Start(newTestModel(svc, Options{Location: route.ResultsFragment("7")}))

	m = Drive(m, SubmitInterestMsg{Rating: "five"})
	if len(svc.interestReqs) != 0 || m.View().Status.Kind != StatusError {
		t.Fatalf("expected local rejection, got %+v %v", m.View().Status, svc.interestReqs)
	}
}

func TestInterestIgnoredWhileInFlight(t *testing.T) {
	svc := newFakeService()
	svc.runs["7"] = okRun("7", "Aa")
	m := Start(newTestModel(svc, Options{Location: route.ResultsFragment("7")}))

	m, first := m.Update(SubmitInterestMsg{})
	m, second := m.Update(SubmitInterestMsg{})
	if first == nil || second != nil {
		t.Fatalf("expected exactly one in-flight interest submission")
	}
	_ = m
}

func TestInterestResultAfterLeavingRunIsDiscarded(t *testing.T) {
	svc := newFakeService()
	svc.runs["7"] = okRun("7", "Aa")
	svc.interestResp = api.InterestResponse{Saved: true}
	rec := &countingRecorder{}
	m := Start(newTestModel(svc, Options{Recorder: rec}))
	m = Drive(m, NavigateMsg{Fragment: route.ResultsFragment("7")})

	m, pending := m.Update(SubmitInterestMsg{Rating: "3"})
	if pending == nil {
		t.Fatalf("expected an interest request")
	}
	m = Drive(m, BackMsg{})
	if m.Location() != route.HomeFragment || m.Session().Active != nil {
		t.Fatalf("expected home without an active run, got %q", m.Location())
	}
	before := m.View().Status

	m = Drive(m, pending())
	if m.View().Status != before {
		t.Fatalf("stale interest result changed the status to %+v", m.View().Status)
	}
	if m.Session().Interest || m.View().InterestDisabled {
		t.Fatalf("in-flight guard must be cleared")
	}
	if rec.counts["interest/discarded"] != 1 || rec.counts["interest/ok"] != 0 {
		t.Fatalf("unexpected outcomes %v", rec.counts)
	}
}
