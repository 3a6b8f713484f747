package onboard

import (
	"github.com/g960059/exile-onboard/internal/api"
	"github.com/g960059/exile-onboard/internal/latest"
)

// Input messages, sent by whatever owns the keyboard.
type (
	AccountChangedMsg struct{ Value string }
	AccountBlurMsg    struct{}
	RealmChangedMsg   struct{ Realm string }
	// RefreshCharactersMsg re-runs the lookup even when the key is unchanged.
	RefreshCharactersMsg struct{}
	FieldChangedMsg      struct {
		Field Field
		Value string
	}
	SelectCharacterMsg struct{ Index int }
	SubmitRunMsg       struct{}
	NewRunMsg          struct{}
	NavigateMsg        struct{ Fragment string }
	BackMsg            struct{}
	ForwardMsg         struct{}
	SubmitInterestMsg  struct {
		Contact string
		Rating  string
		Intent  string
		Notes   string
	}
)

// FragmentChangedMsg is delivered after every write to the location,
// including the initial load. It carries nothing: the handler reads the
// fragment itself.
type FragmentChangedMsg struct{}

type Field int

const (
	FieldCharacter Field = iota
	FieldContact
	FieldIntent
)

type (
	lookupDebounceMsg struct{ Token latest.Token }
	lookupDoneMsg     struct {
		Outcome latest.Outcome[api.CharactersEnvelope]
	}
	runCreatedMsg struct {
		Result api.RunResult
		Err    error
	}
	runLoadedMsg struct {
		RunID  string
		Result api.RunResult
		Err    error
	}
	interestDoneMsg struct {
		RunID    string
		Response api.InterestResponse
		Err      error
	}
)

// Status-region texts.
const (
	MsgLookupGuidance   = "Enter at least %d characters of your account name to list characters."
	MsgLookupRunning    = "Looking up public characters..."
	MsgLookupNone       = "No public characters found for this account and realm."
	MsgLookupNewest     = "Found %d characters, newest first. Preselected %s."
	MsgLookupBestSignal = "Found %d characters. Ordering uses the best available signal."
	MsgLookupFailed     = "Could not list characters: %s"

	MsgAccountRequired = "Enter an account name first."
	MsgRunRunning      = "Running market sync and build preview..."
	MsgRunFailed       = "Could not generate preview: %s"
	MsgRunGeneric      = "Request failed"

	MsgLoadRunning   = "Loading run %s..."
	MsgLoadFailed    = "Could not load run: %s"
	MsgLoadMissingID = "Missing run id."
	MsgRunOutcomeBad = "Run failed: %s"
	MsgRunNoDetail   = "The run did not complete."
	MsgPreviewReady  = "Preview complete. Review your output below."

	MsgInterestNoRun  = "Run a preview first."
	MsgInterestFailed = "Could not save interest: %s"
	MsgInterestBadNum = "rating must be a number"
	MsgInterestSaved  = "Interest saved. We will follow up shortly."

	PlaceholderLabel = "Auto-select newest character"
)
