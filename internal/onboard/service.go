// Package onboard is the onboarding workflow controller: the character lookup
// manager, the fragment router and the run lifecycle. Model is the explicit
// context threaded through every handler; each handler returns the next Model
// plus the command that performs its side effect. Commands run off the update
// loop and resume it by delivering a message, so all state changes happen on
// one goroutine in arrival order.
package onboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/g960059/exile-onboard/internal/api"
)

// Service is the backend surface the controller orchestrates.
type Service interface {
	ListCharacters(ctx context.Context, account, realm string) (api.CharactersEnvelope, error)
	CreateRun(ctx context.Context, req api.RunRequest) (api.RunResult, error)
	GetRun(ctx context.Context, runID string) (api.RunResult, error)
	SaveInterest(ctx context.Context, req api.InterestRequest) (api.InterestResponse, error)
}

// Recorder receives one call per controller event outcome.
type Recorder interface {
	Record(event, outcome string)
}

const (
	EventLookup    = "lookup"
	EventRunCreate = "run_create"
	EventRunLoad   = "run_load"
	EventInterest  = "interest"
)

const (
	OutcomeIssued    = "issued"
	OutcomeApplied   = "applied"
	OutcomeSkipped   = "skipped"
	OutcomeDiscarded = "discarded"
	OutcomeGuarded   = "guarded"
	OutcomeOK        = "ok"
	OutcomeFailed    = "failed"
	OutcomeRunError  = "run_error"
)

const (
	DefaultDebounce         = 450 * time.Millisecond
	DefaultMinAccountLength = 3
)

var (
	ErrMissingRunID = errors.New("backend response missing run id")
	ErrNotSaved     = errors.New("interest save failed")
	ErrNoActiveRun  = errors.New("run a preview first")
)

type Options struct {
	Debounce         time.Duration
	MinAccountLength int
	Realm            string
	Location         string
	Context          context.Context
	Recorder         Recorder
	Logger           *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}
	if o.MinAccountLength <= 0 {
		o.MinAccountLength = DefaultMinAccountLength
	}
	if !api.ValidRealm(o.Realm) {
		o.Realm = api.RealmPC
	}
	if o.Context == nil {
		o.Context = context.Background()
	}
	if o.Recorder == nil {
		o.Recorder = nopRecorder{}
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

type nopRecorder struct{}

func (nopRecorder) Record(string, string) {}
