// Package action sequences sensitive user actions through a uniform
// confirm, execute, report lifecycle.
//
//	Idle → Confirming → Executing → Succeeded → Idle
//	                 ↘ Cancelled → Idle       ↘ Failed → Idle
//
// Each Invocation starts fresh at Confirming and ends at Idle. The Orchestrator
// keeps nothing between invocations.
package action

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/atelier/profile-portal/internal/core/domain"
)

// State is a node of the invocation state machine.
type State int

const (
	Idle State = iota
	Confirming
	Executing
	Succeeded
	Failed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Confirming:
		return "confirming"
	case Executing:
		return "executing"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return "idle"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Copy holds the user-facing strings of one action.
type Copy struct {
	Title         string `validate:"required"`
	Action        string `validate:"required"`
	TitlePresent  string `validate:"required"`
	ActionPresent string `validate:"required"`
	TitleDone     string `validate:"required"`
	ActionDone    string `validate:"required"`
}

// RunFunc performs the privileged work. Follow-up navigation belongs inside it
// so the success notice reflects the final location.
type RunFunc func(ctx context.Context) error

// Action is one conceptual sensitive operation. An Action never executes twice
// concurrently, however many invocations are opened for it.
type Action struct {
	Name string
	Copy Copy
	Run  RunFunc

	running atomic.Bool
}

func NewAction(name string, copy Copy, run RunFunc) *Action {
	return &Action{Name: name, Copy: copy, Run: run}
}

// Running reports whether the action is executing right now. Controls bound to
// the action disable themselves while it is true.
func (a *Action) Running() bool {
	return a.running.Load()
}

// Stage identifies the prompt currently presented to the user.
type Stage string

const (
	StageConfirm  Stage = "confirm"
	StageProgress Stage = "progress"
)

// Prompt is a modal shown while an invocation is in Confirming or Executing.
// A confirm prompt needs an explicit answer; a progress prompt cannot be
// dismissed.
type Prompt struct {
	Stage       Stage  `json:"stage"`
	Title       string `json:"title"`
	Text        string `json:"text"`
	Dismissible bool   `json:"dismissible"`
}

func confirmPrompt(c Copy) Prompt {
	return Prompt{
		Stage:       StageConfirm,
		Title:       c.Title,
		Text:        "Are you sure you want to " + c.Action + "?",
		Dismissible: true,
	}
}

func progressPrompt(c Copy) Prompt {
	return Prompt{
		Stage: StageProgress,
		Title: c.TitlePresent,
		Text:  "Please wait while " + c.ActionPresent + "...",
	}
}

func successNotice(c Copy) domain.Notice {
	return domain.SuccessNotice(c.TitleDone, c.ActionDone+".")
}

func failureNotice(c Copy, err error) domain.Notice {
	return domain.ErrorNotice(c.Title+" failed", err)
}

// Outcome is the terminal result of one invocation.
type Outcome struct {
	State    State          `json:"state"`
	Notice   *domain.Notice `json:"notice,omitempty"`
	Err      error          `json:"-"`
	Duration time.Duration  `json:"-"`
}

// Transition is reported to observers for every state change, in order.
type Transition struct {
	Invocation string
	Action     string
	Subject    string
	From       State
	To         State
	Prompt     *Prompt
	Notice     *domain.Notice
	Err        error
	Elapsed    time.Duration
}

// Observer is notified of transitions. Observers run on the goroutine that
// caused the transition and must not block.
type Observer interface {
	Transition(t Transition)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(t Transition)

func (f ObserverFunc) Transition(t Transition) { f(t) }

// ConfirmFunc asks the user the confirmation prompt. Returning an error, for
// example because the prompt was dismissed, counts as declining.
type ConfirmFunc func(ctx context.Context, p Prompt) (bool, error)
