package onboard

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/g960059/exile-onboard/internal/api"
)

func TestLookupLatestIssuedWinsRegardlessOfArrivalOrder(t *testing.T) {
	svc := newFakeService()
	svc.characters["alpha|pc"] = api.CharactersEnvelope{Characters: []api.Character{{Name: "AlphaOne"}}}
	svc.characters["bravo|pc"] = api.CharactersEnvelope{Characters: []api.Character{{Name: "BravoOne"}, {Name: "BravoTwo"}}}
	rec := &countingRecorder{}
	m := newTestModel(svc, Options{Recorder: rec})

	m, _ = m.Update(AccountChangedMsg{Value: "alpha"})
	m, cmdA := m.Update(AccountBlurMsg{})
	m, _ = m.Update(AccountChangedMsg{Value: "bravo"})
	m, cmdB := m.Update(AccountBlurMsg{})
	if cmdA == nil || cmdB == nil {
		t.Fatalf("expected two lookups to be issued")
	}

	msgB := cmdB()
	msgA := cmdA()
	m, _ = m.Update(msgB)
	m, _ = m.Update(msgA)

	got := optionValues(m.View())
	want := []string{"", "BravoOne", "BravoTwo"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected bravo options %v, got %v", want, got)
	}
	if m.View().LookupLoading || m.View().SelectDisabled {
		t.Fatalf("loading state must end with the latest response")
	}
	if rec.counts["lookup/discarded"] != 1 {
		t.Fatalf("expected one discarded lookup, got %v", rec.counts)
	}
	if issued, discarded := m.LookupStats(); issued != 2 || discarded != 1 {
		t.Fatalf("unexpected guard stats issued=%d discarded=%d", issued, discarded)
	}
}

func TestLookupStaleResponseDoesNotEndLoading(t *testing.T) {
	svc := newFakeService()
	m := newTestModel(svc, Options{})

	m, _ = m.Update(AccountChangedMsg{Value: "alpha"})
	m, cmdA := m.Update(AccountBlurMsg{})
	m, _ = m.Update(AccountChangedMsg{Value: "bravo"})
	m, _ = m.Update(AccountBlurMsg{})

	m, _ = m.Update(cmdA())
	if !m.View().LookupLoading || !m.View().SelectDisabled {
		t.Fatalf("stale response must not clear the loading state of the latest lookup")
	}
}

func TestLookupShortAccountNeverCallsNetwork(t *testing.T) {
	svc := newFakeService()
	m := newTestModel(svc, Options{})

	m, tick := step(t, m, AccountChangedMsg{Value: " ab "})
	m, next := step(t, m, tick)
	if next != nil {
		t.Fatalf("expected no lookup command, got %T", next)
	}
	m, next = step(t, m, AccountBlurMsg{})
	if next != nil {
		t.Fatalf("expected no lookup on blur, got %T", next)
	}
	m, next = step(t, m, RealmChangedMsg{Realm: api.RealmSony})
	if next != nil {
		t.Fatalf("expected no lookup on realm change, got %T", next)
	}
	if len(svc.lookupCalls) != 0 {
		t.Fatalf("expected no network calls, got %v", svc.lookupCalls)
	}
	v := m.View()
	if want := fmt.Sprintf(MsgLookupGuidance, DefaultMinAccountLength); v.Status.Text != want {
		t.Fatalf("expected guidance %q, got %q", want, v.Status.Text)
	}
	if !reflect.DeepEqual(optionValues(v), []string{""}) {
		t.Fatalf("expected placeholder only, got %v", optionValues(v))
	}
	if m.Form().Realm != api.RealmSony {
		t.Fatalf("realm change should still be recorded, got %q", m.Form().Realm)
	}
}

func TestLookupShortAccountSupersedesInFlightLookup(t *testing.T) {
	svc := newFakeService()
	svc.characters["alpha|pc"] = api.CharactersEnvelope{Characters: []api.Character{{Name: "AlphaOne"}}}
	m := newTestModel(svc, Options{})

	m, _ = m.Update(AccountChangedMsg{Value: "alpha"})
	m, cmd := m.Update(AccountBlurMsg{})
	m, _ = m.Update(AccountChangedMsg{Value: "al"})
	m, _ = m.Update(AccountBlurMsg{})
	m, _ = m.Update(cmd())

	if !reflect.DeepEqual(optionValues(m.View()), []string{""}) {
		t.Fatalf("in-flight result for a superseded input was applied: %v", optionValues(m.View()))
	}
}

func TestLookupDebounceOnlyLastEditFires(t *testing.T) {
	svc := newFakeService()
	m := newTestModel(svc, Options{})

	m, t1 := step(t, m, AccountChangedMsg{Value: "exi"})
	m, t2 := step(t, m, AccountChangedMsg{Value: "exil"})
	m, t3 := step(t, m, AccountChangedMsg{Value: "exile"})

	m, n1 := step(t, m, t1)
	m, n2 := step(t, m, t2)
	if n1 != nil || n2 != nil {
		t.Fatalf("superseded debounce ticks must not issue lookups")
	}
	m, n3 := step(t, m, t3)
	if n3 == nil {
		t.Fatalf("last debounce tick must issue a lookup")
	}
	m, _ = m.Update(n3)
	if len(svc.lookupCalls) != 1 || svc.lookupCalls[0].Account != "exile" {
		t.Fatalf("expected one lookup for exile, got %v", svc.lookupCalls)
	}
}

func TestLookupDedupSkipsLastCompletedKeyUnlessForced(t *testing.T) {
	svc := newFakeService()
	svc.characters["exile|pc"] = api.CharactersEnvelope{Characters: []api.Character{{Name: "One"}}}
	m := newTestModel(svc, Options{})

	m = Drive(m, AccountChangedMsg{Value: "exile"})
	if len(svc.lookupCalls) != 1 {
		t.Fatalf("expected debounced lookup, got %v", svc.lookupCalls)
	}

	m = Drive(m, AccountChangedMsg{Value: " exile "})
	if len(svc.lookupCalls) != 1 {
		t.Fatalf("identical key must be skipped, got %v", svc.lookupCalls)
	}

	m = Drive(m, AccountBlurMsg{})
	m = Drive(m, RealmChangedMsg{Realm: api.RealmPC})
	m = Drive(m, RefreshCharactersMsg{})
	if len(svc.lookupCalls) != 4 {
		t.Fatalf("forced triggers must bypass de-duplication, got %v", svc.lookupCalls)
	}
	_ = m
}

func TestLookupFailureInvalidatesDedupKey(t *testing.T) {
	svc := newFakeService()
	svc.lookupErr = errors.New("account is private")
	m := newTestModel(svc, Options{})

	m = Drive(m, AccountChangedMsg{Value: "exile"})
	v := m.View()
	if v.Status.Kind != StatusError || !strings.Contains(v.Status.Text, "account is private") {
		t.Fatalf("expected surfaced error, got %+v", v.Status)
	}
	if !reflect.DeepEqual(optionValues(v), []string{""}) {
		t.Fatalf("failure must clear options, got %v", optionValues(v))
	}

	svc.lookupErr = nil
	m = Drive(m, AccountChangedMsg{Value: "exile"})
	if len(svc.lookupCalls) != 2 {
		t.Fatalf("identical input after failure must retry, got %v", svc.lookupCalls)
	}
	if m.View().Status.Kind != StatusInfo {
		t.Fatalf("expected recovery, got %+v", m.View().Status)
	}
}

func TestLookupSortHintPreselectsNewest(t *testing.T) {
	svc := newFakeService()
	svc.characters["exile|sony"] = api.CharactersEnvelope{
		Characters: []api.Character{{Name: " Newest ", Level: intPtr(12)}, {Name: "   "}, {Name: "Older"}},
		SortHint:   api.SortHintCreatedAt,
	}
	m := newTestModel(svc, Options{Realm: api.RealmSony})

	m = Drive(m, AccountChangedMsg{Value: "exile"}, AccountBlurMsg{})
	v := m.View()
	if !reflect.DeepEqual(optionValues(v), []string{"", "Newest", "Older"}) {
		t.Fatalf("unexpected options %v", optionValues(v))
	}
	if v.Options[0].Label != PlaceholderLabel || v.Options[1].Label != "Newest (lvl 12)" {
		t.Fatalf("unexpected labels %+v", v.Options)
	}
	if v.Selected != 1 {
		t.Fatalf("expected first real entry preselected, got %d", v.Selected)
	}
	if v.Status.Text != fmt.Sprintf(MsgLookupNewest, 2, "Newest") {
		t.Fatalf("unexpected status %q", v.Status.Text)
	}
}

func TestLookupWithoutSortHintKeepsPlaceholder(t *testing.T) {
	svc := newFakeService()
	svc.characters["exile|pc"] = api.CharactersEnvelope{Characters: []api.Character{{Name: "One"}}, SortHint: "level"}
	m := newTestModel(svc, Options{})

	m = Drive(m, AccountBlurMsg{}, AccountChangedMsg{Value: "exile"})
	v := m.View()
	if v.Selected != 0 {
		t.Fatalf("expected placeholder selected, got %d", v.Selected)
	}
	if v.Status.Text != fmt.Sprintf(MsgLookupBestSignal, 1) {
		t.Fatalf("unexpected status %q", v.Status.Text)
	}
}

func TestLookupZeroResultsIsNotAnError(t *testing.T) {
	svc := newFakeService()
	m := newTestModel(svc, Options{})

	m = Drive(m, AccountChangedMsg{Value: "nobody"})
	v := m.View()
	if v.Status.Kind != StatusInfo || v.Status.Text != MsgLookupNone {
		t.Fatalf("expected explicit no-characters message, got %+v", v.Status)
	}
}

func TestSelectCharacterIgnoredWhileLoading(t *testing.T) {
	svc := newFakeService()
	svc.characters["exile|pc"] = api.CharactersEnvelope{Characters: []api.Character{{Name: "One"}, {Name: "Two"}}}
	m := newTestModel(svc, Options{})
	m = Drive(m, AccountChangedMsg{Value: "exile"})

	m, _ = m.Update(SelectCharacterMsg{Index: 2})
	if m.View().Selected != 2 {
		t.Fatalf("expected selection 2, got %d", m.View().Selected)
	}
	m, _ = m.Update(RefreshCharactersMsg{})
	m, _ = m.Update(SelectCharacterMsg{Index: 1})
	if m.View().Selected != 2 {
		t.Fatalf("selection must be disabled while a lookup is in flight")
	}
}
