package onboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/g960059/exile-onboard/internal/api"
)

type fakeService struct {
	mu sync.Mutex

	characters  map[string]api.CharactersEnvelope
	lookupErr   error
	lookupCalls []LookupQuery

	createResult api.RunResult
	createErr    error
	createReqs   []api.RunRequest

	runs     map[string]api.RunResult
	getErr   error
	getCalls []string

	interestResp api.InterestResponse
	interestErr  error
	interestReqs []api.InterestRequest
}

func newFakeService() *fakeService {
	return &fakeService{
		characters: map[string]api.CharactersEnvelope{},
		runs:       map[string]api.RunResult{},
	}
}

func (f *fakeService) ListCharacters(_ context.Context, account, realm string) (api.CharactersEnvelope, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := LookupQuery{Account: account, Realm: realm}
	f.lookupCalls = append(f.lookupCalls, q)
	if f.lookupErr != nil {
		return api.CharactersEnvelope{}, f.lookupErr
	}
	return f.characters[q.Key()], nil
}

func (f *fakeService) CreateRun(_ context.Context, req api.RunRequest) (api.RunResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createReqs = append(f.createReqs, req)
	return f.createResult, f.createErr
}

func (f *fakeService) GetRun(_ context.Context, runID string) (api.RunResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls = append(f.getCalls, runID)
	if f.getErr != nil {
		return api.RunResult{}, f.getErr
	}
	r, ok := f.runs[runID]
	if !ok {
		return api.RunResult{}, errors.New("run not found")
	}
	return r, nil
}

func (f *fakeService) SaveInterest(_ context.Context, req api.InterestRequest) (api.InterestResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interestReqs = append(f.interestReqs, req)
	return f.interestResp, f.interestErr
}

type countingRecorder struct {
	counts map[string]int
}

func (r *countingRecorder) Record(event, outcome string) {
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[event+"/"+outcome]++
}

func newTestModel(svc Service, opts Options) Model {
	if opts.Debounce == 0 {
		opts.Debounce = time.Millisecond
	}
	return New(svc, opts)
}

// step applies msg and runs the returned command, if any, yielding its message.
func step(t *testing.T, m Model, msg tea.Msg) (Model, tea.Msg) {
	t.Helper()
	m, cmd := m.Update(msg)
	if cmd == nil {
		return m, nil
	}
	return m, cmd()
}

func intPtr(v int) *int { return &v }

func okRun(id, name string) api.RunResult {
	return api.RunResult{
		RunID:            id,
		Status:           api.StatusOK,
		CharacterSummary: api.CharacterSummary{Name: name, Level: intPtr(90)},
		PricingSummary: api.PricingSummary{
			KnownValueChaos: 1500,
			PricedItems:     4,
			TotalItems:      6,
			TopHoldings:     []api.Holding{{Label: "Divine Orb", Quantity: 3, ChaosValue: 600}},
		},
		Posts:     []string{"WTB " + name},
		BuildCard: api.BuildCard{Title: "Card " + name, Fields: []api.CardField{{Name: "Core", Value: "Spark"}}},
	}
}

func optionValues(v View) []string {
	out := make([]string, 0, len(v.Options))
	for _, o := range v.Options {
		out = append(out, o.Value)
	}
	return out
}
