package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/g960059/exile-onboard/internal/api"
	"github.com/g960059/exile-onboard/internal/appclient"
	"github.com/g960059/exile-onboard/internal/config"
	"github.com/g960059/exile-onboard/internal/route"
	"github.com/g960059/exile-onboard/internal/tui"
)

type fakeService struct {
	listAccount string
	listRealm   string
	characters  api.CharactersEnvelope
	listErr     error

	createReq api.RunRequest
	created   api.RunResult
	createErr error

	getRunID string
	runs     map[string]api.RunResult

	interestReq  api.InterestRequest
	interestResp api.InterestResponse
	interestErr  error

	healthErr error
}

func (f *fakeService) Health(context.Context) (api.HealthResponse, error) {
	if f.healthErr != nil {
		return api.HealthResponse{}, f.healthErr
	}
	return api.HealthResponse{Status: "ok"}, nil
}

func (f *fakeService) ListCharacters(_ context.Context, account, realm string) (api.CharactersEnvelope, error) {
	f.listAccount, f.listRealm = account, realm
	return f.characters, f.listErr
}

func (f *fakeService) CreateRun(_ context.Context, req api.RunRequest) (api.RunResult, error) {
	f.createReq = req
	return f.created, f.createErr
}

func (f *fakeService) GetRun(_ context.Context, runID string) (api.RunResult, error) {
	f.getRunID = runID
	r, ok := f.runs[runID]
	if !ok {
		return api.RunResult{}, &appclient.RequestError{StatusCode: 404, Detail: "run not found"}
	}
	return r, nil
}

func (f *fakeService) SaveInterest(_ context.Context, req api.InterestRequest) (api.InterestResponse, error) {
	f.interestReq = req
	return f.interestResp, f.interestErr
}

func storedRun(id string) api.RunResult {
	return api.RunResult{
		RunID:            id,
		Status:           api.StatusOK,
		CharacterSummary: api.CharacterSummary{Name: "SparkingWitch"},
		PricingSummary:   api.PricingSummary{KnownValueChaos: 12345, PricedItems: 3, TotalItems: 4},
		Posts:            []string{"WTS <Mirror Shard>"},
	}
}

func runCLI(t *testing.T, svc service, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(context.Background(), args, &out, &errOut, svc, config.DefaultConfig())
	return code, out.String(), errOut.String()
}

func TestParseGlobalArgs(t *testing.T) {
	base, timeout, rest, err := parseGlobalArgs(
		[]string{"--api-base", "http://x:1", "--request-timeout=0", "show", "--run-id", "7"},
		"http://default", time.Minute,
	)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if base != "http://x:1" || timeout != 0 || len(rest) != 3 || rest[0] != "show" {
		t.Fatalf("unexpected parse %q %v %v", base, timeout, rest)
	}

	for _, args := range [][]string{
		{"--api-base"},
		{"--api-base="},
		{"--request-timeout", "-1s"},
		{"--request-timeout=soon"},
	} {
		if _, _, _, err := parseGlobalArgs(args, "http://default", time.Minute); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}

func TestUnknownCommandIsUsageError(t *testing.T) {
	code, _, errOut := runCLI(t, &fakeService{}, "bogus")
	if code != 2 || !strings.Contains(errOut, "usage: onboard") {
		t.Fatalf("expected usage error, got %d %q", code, errOut)
	}
}

func TestCharacters(t *testing.T) {
	level := 94
	svc := &fakeService{characters: api.CharactersEnvelope{
		Characters: []api.Character{{Name: "SparkingWitch", Level: &level, Class: "Witch"}},
		SortHint:   api.SortHintCreatedAt,
	}}
	code, out, errOut := runCLI(t, svc, "characters", "--account", " exile ", "--realm", "sony")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if svc.listAccount != "exile" || svc.listRealm != "sony" {
		t.Fatalf("unexpected lookup %q %q", svc.listAccount, svc.listRealm)
	}
	if out != "SparkingWitch (lvl 94 | Witch)\n" {
		t.Fatalf("unexpected output %q", out)
	}

	code, _, _ = runCLI(t, svc, "characters")
	if code != 2 {
		t.Fatalf("missing account must be a usage error, got %d", code)
	}

	svc.listErr = &appclient.RequestError{StatusCode: 403, Detail: "Character list is private for this account."}
	code, _, errOut = runCLI(t, svc, "characters", "--account", "hidden")
	if code != 1 || !strings.Contains(errOut, "Character list is private") {
		t.Fatalf("expected surfaced detail, got %d %q", code, errOut)
	}
}

func TestRunCreatesThenShowsStoredRun(t *testing.T) {
	svc := &fakeService{
		created: api.RunResult{RunID: "77", Status: api.StatusOK, CharacterSummary: api.CharacterSummary{Name: "FromCreate"}},
		runs:    map[string]api.RunResult{"77": storedRun("77")},
	}
	code, out, errOut := runCLI(t, svc, "run", "--account", "exile", "--contact", "me@example.com", "--intent", " ")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if svc.createReq.Contact == nil || *svc.createReq.Contact != "me@example.com" || svc.createReq.Intent != nil || svc.createReq.Character != nil {
		t.Fatalf("unexpected request %+v", svc.createReq)
	}
	if svc.getRunID != "77" {
		t.Fatalf("expected stored run to be loaded, got %q", svc.getRunID)
	}
	if !strings.Contains(out, "SparkingWitch") || strings.Contains(out, "FromCreate") {
		t.Fatalf("expected stored run rendering:\n%s", out)
	}
	if !strings.Contains(out, "12,345 chaos") {
		t.Fatalf("expected grouped known value:\n%s", out)
	}
}

func TestRunApplicationErrorUsesFirstNote(t *testing.T) {
	svc := &fakeService{created: api.RunResult{Status: api.StatusError, Notes: []string{" ", "Character Ghost was not found on this account."}}}
	code, _, errOut := runCLI(t, svc, "run", "--account", "exile", "--character", "Ghost")
	if code != 1 || !strings.Contains(errOut, "Could not generate preview: Character Ghost was not found") {
		t.Fatalf("unexpected failure %d %q", code, errOut)
	}
	if svc.getRunID != "" {
		t.Fatalf("failed create must not load a run")
	}

	svc = &fakeService{created: api.RunResult{Status: api.StatusOK}}
	code, _, errOut = runCLI(t, svc, "run", "--account", "exile")
	if code != 1 || !strings.Contains(errOut, "missing run id") {
		t.Fatalf("expected missing run id, got %d %q", code, errOut)
	}

	code, _, _ = runCLI(t, svc, "run", "--account", "exile", "--realm", "switch")
	if code != 2 {
		t.Fatalf("invalid realm must be a usage error, got %d", code)
	}
}

func TestRunPassesFormThroughController(t *testing.T) {
	svc := &fakeService{
		created: api.RunResult{RunID: "12", Status: api.StatusOK},
		runs:    map[string]api.RunResult{"12": storedRun("12")},
	}
	code, out, errOut := runCLI(t, svc, "run", "--account", " exile ", "--realm", "xbox", "--character", " Ghost ", "--intent", "sell", "--json")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	req := svc.createReq
	if req.Account != "exile" || req.Realm != api.RealmXbox || req.Character == nil || *req.Character != "Ghost" || req.Intent == nil || *req.Intent != "sell" {
		t.Fatalf("unexpected request %+v", req)
	}
	if svc.listAccount != "" {
		t.Fatalf("run must not look up characters, got %q", svc.listAccount)
	}
	var decoded api.RunResult
	if err := json.Unmarshal([]byte(out), &decoded); err != nil || decoded.RunID != "12" {
		t.Fatalf("unexpected json %q %v", out, err)
	}
}

func TestShowFormats(t *testing.T) {
	svc := &fakeService{runs: map[string]api.RunResult{"7": storedRun("7")}}

	code, out, errOut := runCLI(t, svc, "show", "--location", route.ResultsFragment("7"), "--json")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	var decoded api.RunResult
	if err := json.Unmarshal([]byte(out), &decoded); err != nil || decoded.RunID != "7" {
		t.Fatalf("unexpected json %q %v", out, err)
	}

	code, out, _ = runCLI(t, svc, "show", "--run-id", "7", "--html")
	if code != 0 || !strings.Contains(out, "&lt;Mirror Shard&gt;") || strings.Contains(out, "<Mirror Shard>") {
		t.Fatalf("expected escaped html, got %d:\n%s", code, out)
	}

	code, _, errOut = runCLI(t, svc, "show", "--location", "#/results")
	if code != 1 || !strings.Contains(errOut, "Missing run id.") {
		t.Fatalf("expected missing run id, got %d %q", code, errOut)
	}

	code, _, errOut = runCLI(t, svc, "show", "--run-id", "404")
	if code != 1 || !strings.Contains(errOut, "run not found") {
		t.Fatalf("expected not found, got %d %q", code, errOut)
	}

	code, _, _ = runCLI(t, svc, "show", "--run-id", "7", "--location", "#/results?run_id=7")
	if code != 2 {
		t.Fatalf("run id and location together must be a usage error, got %d", code)
	}
	code, _, _ = runCLI(t, svc, "show", "--location", "#/")
	if code != 2 {
		t.Fatalf("home location must be rejected, got %d", code)
	}
}

func TestInterest(t *testing.T) {
	svc := &fakeService{
		runs:         map[string]api.RunResult{"7": storedRun("7")},
		interestResp: api.InterestResponse{Saved: true, InterestID: "i-1"},
	}
	code, out, errOut := runCLI(t, svc, "interest", "--run-id", "7", "--rating", "4", "--notes", "hi")
	if code != 0 || !strings.Contains(out, "Interest saved.") {
		t.Fatalf("unexpected result %d %q %q", code, out, errOut)
	}
	if svc.getRunID != "7" {
		t.Fatalf("interest must load the run first, got %q", svc.getRunID)
	}
	if svc.interestReq.RunID != "7" || svc.interestReq.Rating == nil || *svc.interestReq.Rating != 4 || svc.interestReq.Contact != nil {
		t.Fatalf("unexpected request %+v", svc.interestReq)
	}

	code, out, _ = runCLI(t, svc, "interest", "--run-id", "7", "--json")
	var decoded api.InterestResponse
	if code != 0 || json.Unmarshal([]byte(out), &decoded) != nil || decoded.InterestID != "i-1" {
		t.Fatalf("unexpected json %d %q", code, out)
	}

	code, _, _ = runCLI(t, svc, "interest", "--run-id", "7", "--rating", "four")
	if code != 2 {
		t.Fatalf("non-numeric rating must be a usage error, got %d", code)
	}

	svc.interestResp = api.InterestResponse{}
	code, _, errOut = runCLI(t, svc, "interest", "--run-id", "7")
	if code != 1 || !strings.Contains(errOut, "interest save failed") {
		t.Fatalf("expected not saved failure, got %d %q", code, errOut)
	}

	svc.interestErr = errors.New("dial tcp: refused")
	code, _, errOut = runCLI(t, svc, "interest", "--run-id", "7")
	if code != 1 || !strings.Contains(errOut, "dial tcp: refused") {
		t.Fatalf("expected transport error, got %d %q", code, errOut)
	}
}

func TestInterestRequiresLoadedRun(t *testing.T) {
	failed := api.RunResult{RunID: "8", Status: api.StatusError, Notes: []string{"Market sync failed."}}
	svc := &fakeService{
		runs:         map[string]api.RunResult{"8": failed},
		interestResp: api.InterestResponse{Saved: true},
	}

	code, _, errOut := runCLI(t, svc, "interest", "--run-id", "8", "--rating", "5")
	if code != 1 || !strings.Contains(errOut, "Run failed: Market sync failed.") {
		t.Fatalf("expected run error, got %d %q", code, errOut)
	}
	code, _, errOut = runCLI(t, svc, "interest", "--run-id", "404")
	if code != 1 || !strings.Contains(errOut, "run not found") {
		t.Fatalf("expected load failure, got %d %q", code, errOut)
	}
	if svc.interestReq.RunID != "" {
		t.Fatalf("interest must not be posted without an active run, got %+v", svc.interestReq)
	}
}

func TestInteractiveUsesStartingLocation(t *testing.T) {
	orig := runTUI
	t.Cleanup(func() { runTUI = orig })

	var started tui.Model
	runTUI = func(_ context.Context, m tui.Model, _ io.Writer) error {
		started = m
		return nil
	}
	code, _, errOut := runCLI(t, &fakeService{}, "tui", "--location", "#/results?run_id=9", "--realm", "xbox")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	ctrl := started.Controller()
	if ctrl.Location() != "#/results?run_id=9" || ctrl.Form().Realm != api.RealmXbox {
		t.Fatalf("unexpected starting state %q %q", ctrl.Location(), ctrl.Form().Realm)
	}

	code, _, _ = runCLI(t, &fakeService{}, "tui", "--realm", "switch")
	if code != 2 {
		t.Fatalf("invalid realm must be a usage error, got %d", code)
	}

	runTUI = func(context.Context, tui.Model, io.Writer) error { return errors.New("no tty") }
	code, _, errOut = runCLI(t, &fakeService{}, "tui")
	if code != 1 || !strings.Contains(errOut, "no tty") {
		t.Fatalf("expected tui failure, got %d %q", code, errOut)
	}
}

func TestDoctor(t *testing.T) {
	code, out, errOut := runCLI(t, &fakeService{}, "doctor")
	if code != 0 || !strings.Contains(out, "[pass] backend: healthy (http://127.0.0.1:8787)") {
		t.Fatalf("unexpected doctor output %d %q %q", code, out, errOut)
	}

	code, out, _ = runCLI(t, &fakeService{healthErr: errors.New("connection refused")}, "doctor", "--json")
	if code != 1 {
		t.Fatalf("unreachable backend must fail, got %d", code)
	}
	var res struct {
		OK bool `json:"ok"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil || res.OK {
		t.Fatalf("unexpected json %q %v", out, err)
	}
}
