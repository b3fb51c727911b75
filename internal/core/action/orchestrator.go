package action

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/atelier/profile-portal/internal/core/domain"
	"github.com/atelier/profile-portal/internal/core/ports"
)

const defaultLockTTL = 2 * time.Minute

// Orchestrator opens invocations of sensitive actions.
type Orchestrator struct {
	locker    ports.ActionLocker
	lockTTL   time.Duration
	validate  *validator.Validate
	observers []Observer
	log       zerolog.Logger
}

// NewOrchestrator returns an Orchestrator. locker may be nil when a single
// process serves every control; observers receive every transition of every
// invocation.
func NewOrchestrator(locker ports.ActionLocker, lockTTL time.Duration, log zerolog.Logger, observers ...Observer) *Orchestrator {
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	return &Orchestrator{
		locker:    locker,
		lockTTL:   lockTTL,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		observers: observers,
		log:       log,
	}
}

// Begin opens an invocation of a on behalf of subject and moves it to
// Confirming. No remote effect happens until Confirm.
func (o *Orchestrator) Begin(ctx context.Context, subject string, a *Action, obs Observer) (*Invocation, error) {
	if subject == "" {
		return nil, domain.ErrUnauthenticated
	}
	if a == nil || a.Run == nil {
		return nil, fmt.Errorf("begin action: missing run function")
	}
	if err := o.validate.StructCtx(ctx, a.Copy); err != nil {
		return nil, fmt.Errorf("begin action %s: invalid copy: %w", a.Name, err)
	}

	inv := &Invocation{
		id:      uuid.NewString(),
		subject: subject,
		action:  a,
		orch:    o,
		obs:     obs,
		state:   Idle,
		done:    make(chan struct{}),
		touched: time.Now(),
	}

	p := confirmPrompt(a.Copy)
	inv.mu.Lock()
	t := inv.moveLocked(Confirming, &p, nil, nil, 0)
	inv.mu.Unlock()
	inv.emit(t)

	return inv, nil
}

// Perform drives one invocation to its terminal state, asking confirm for the
// user's answer.
func (o *Orchestrator) Perform(ctx context.Context, subject string, a *Action, obs Observer, confirm ConfirmFunc) (Outcome, error) {
	inv, err := o.Begin(ctx, subject, a, obs)
	if err != nil {
		return Outcome{}, err
	}

	p, _ := inv.Prompt()
	ok, err := confirm(ctx, p)
	if err != nil || !ok {
		return inv.Decline(ctx)
	}
	return inv.Confirm(ctx)
}

// Invocation is one pass of an action through the state machine.
type Invocation struct {
	id      string
	subject string
	action  *Action
	orch    *Orchestrator
	obs     Observer

	lockToken string

	mu      sync.Mutex
	state   State
	prompt  *Prompt
	outcome *Outcome
	touched time.Time
	done    chan struct{}
}

func (i *Invocation) ID() string         { return i.id }
func (i *Invocation) Subject() string    { return i.subject }
func (i *Invocation) ActionName() string { return i.action.Name }

func (i *Invocation) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Prompt returns the modal currently presented, if any.
func (i *Invocation) Prompt() (Prompt, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.prompt == nil {
		return Prompt{}, false
	}
	return *i.prompt, true
}

// Outcome returns the terminal result once the invocation has finished.
func (i *Invocation) Outcome() (Outcome, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.outcome == nil {
		return Outcome{}, false
	}
	return *i.outcome, true
}

// Done is closed when the invocation reaches its terminal state.
func (i *Invocation) Done() <-chan struct{} {
	return i.done
}

// LastActivity is the time of the latest transition.
func (i *Invocation) LastActivity() time.Time {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.touched
}

// Decline answers the confirmation negatively. Nothing remote has happened.
func (i *Invocation) Decline(_ context.Context) (Outcome, error) {
	i.mu.Lock()
	if err := i.answerableLocked(); err != nil {
		i.mu.Unlock()
		return Outcome{}, err
	}
	out := Outcome{State: Cancelled}
	ts := []Transition{
		i.moveLocked(Cancelled, nil, nil, nil, 0),
	}
	ts = append(ts, i.finishLocked(out))
	i.mu.Unlock()

	i.emit(ts...)
	return out, nil
}

// Confirm answers the confirmation positively and runs the action to
// completion. Cancelling ctx after this point does not interrupt the run.
func (i *Invocation) Confirm(ctx context.Context) (Outcome, error) {
	a := i.action

	i.mu.Lock()
	if err := i.answerableLocked(); err != nil {
		i.mu.Unlock()
		return Outcome{}, err
	}
	if !a.running.CompareAndSwap(false, true) {
		i.mu.Unlock()
		return Outcome{}, domain.ErrActionInFlight
	}
	if err := i.lock(ctx); err != nil {
		a.running.Store(false)
		i.mu.Unlock()
		return Outcome{}, err
	}
	p := progressPrompt(a.Copy)
	started := time.Now()
	t := i.moveLocked(Executing, &p, nil, nil, 0)
	i.mu.Unlock()
	i.emit(t)

	runCtx := context.WithoutCancel(ctx)
	err := i.run(runCtx)
	elapsed := time.Since(started)

	i.unlock(runCtx)
	a.running.Store(false)

	var out Outcome
	if err != nil {
		i.orch.log.Error().Err(err).
			Str("action", a.Name).
			Str("subject", i.subject).
			Str("invocation", i.id).
			Msg("sensitive action failed")
		n := failureNotice(a.Copy, err)
		out = Outcome{State: Failed, Notice: &n, Err: err, Duration: elapsed}
	} else {
		i.orch.log.Info().
			Str("action", a.Name).
			Str("subject", i.subject).
			Str("invocation", i.id).
			Dur("elapsed", elapsed).
			Msg("sensitive action succeeded")
		n := successNotice(a.Copy)
		out = Outcome{State: Succeeded, Notice: &n, Duration: elapsed}
	}

	i.mu.Lock()
	ts := []Transition{
		i.moveLocked(out.State, nil, out.Notice, out.Err, elapsed),
	}
	ts = append(ts, i.finishLocked(out))
	i.mu.Unlock()

	i.emit(ts...)
	return out, nil
}

func (i *Invocation) answerableLocked() error {
	switch i.state {
	case Confirming:
		return nil
	case Executing:
		return domain.ErrActionInFlight
	default:
		return domain.ErrInvocationFinished
	}
}

func (i *Invocation) lock(ctx context.Context) error {
	locker := i.orch.locker
	if locker == nil {
		return nil
	}
	token, ok, err := locker.Acquire(ctx, i.subject, i.action.Name, i.orch.lockTTL)
	if err != nil {
		return fmt.Errorf("acquire action lock: %w", err)
	}
	if !ok {
		return domain.ErrActionInFlight
	}
	i.lockToken = token
	return nil
}

func (i *Invocation) unlock(ctx context.Context) {
	locker := i.orch.locker
	if locker == nil {
		return
	}
	if err := locker.Release(ctx, i.subject, i.action.Name, i.lockToken); err != nil {
		i.orch.log.Warn().Err(err).Str("action", i.action.Name).Str("subject", i.subject).Msg("failed to release action lock")
	}
}

// run calls the action, turning a panic into a failure so the state machine
// still reaches Idle.
func (i *Invocation) run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action %s panicked: %v", i.action.Name, r)
		}
	}()
	return i.action.Run(ctx)
}

func (i *Invocation) moveLocked(to State, p *Prompt, n *domain.Notice, err error, elapsed time.Duration) Transition {
	t := Transition{
		Invocation: i.id,
		Action:     i.action.Name,
		Subject:    i.subject,
		From:       i.state,
		To:         to,
		Prompt:     p,
		Notice:     n,
		Err:        err,
		Elapsed:    elapsed,
	}
	i.state = to
	i.prompt = p
	i.touched = time.Now()
	return t
}

func (i *Invocation) finishLocked(out Outcome) Transition {
	t := i.moveLocked(Idle, nil, nil, nil, 0)
	i.outcome = &out
	close(i.done)
	return t
}

func (i *Invocation) emit(ts ...Transition) {
	for _, t := range ts {
		for _, o := range i.orch.observers {
			o.Transition(t)
		}
		if i.obs != nil {
			i.obs.Transition(t)
		}
	}
}
