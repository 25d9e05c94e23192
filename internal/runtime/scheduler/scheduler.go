package scheduler

import (
	"context"
	"sort"
	"sync"

	"github.com/roasbeef/loom/internal/log"
	"github.com/roasbeef/loom/internal/runtime/actorid"
	loomerrors "github.com/roasbeef/loom/internal/runtime/errors"
	"github.com/roasbeef/loom/internal/runtime/trace"
)

var logger = log.Logger(log.SubsystemScheduler)

// Scheduler drives one test iteration: it registers operations, hands each
// one the baton in turn according to its Strategy, and records the
// resulting choice sequence. Exactly one Operation's goroutine ever runs at
// a time (G2/P2) — the scheduler itself runs on the calling goroutine and
// blocks on yieldCh between handoffs, so there is never a moment where two
// pieces of user code execute concurrently.
type Scheduler struct {
	strategy Strategy
	rec      *trace.Trace // nil unless recording

	mu      sync.Mutex // guards ops/order against SpawnOperation from user code running inside the current Running operation
	ops     map[ID]*Operation
	order   []ID
	nextID  ID

	yieldCh chan *Operation
	step    int

	maxUnfairSteps int
	maxFairSteps   int

	stepHook StepHook

	budgetErr loomerrors.RuntimeError

	ctx    context.Context
	cancel context.CancelFunc
}

// Config bundles the step budgets from spec.md §6's configuration surface.
type Config struct {
	MaxUnfairSchedulingSteps int
	MaxFairSchedulingSteps   int
}

// New returns a Scheduler that will drive one iteration using strategy.
func New(strategy Strategy, cfg Config) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		strategy:       strategy,
		ops:            make(map[ID]*Operation),
		yieldCh:        make(chan *Operation, 1),
		maxUnfairSteps: cfg.MaxUnfairSchedulingSteps,
		maxFairSteps:   cfg.MaxFairSchedulingSteps,
		ctx:            ctx,
		cancel:         cancel,
	}
}

// StepHook is invoked once per scheduling step, between the previous
// operation yielding and the next one being chosen, so it observes the
// system in a quiescent state. The liveness/cycle checker (C10) is the only
// current user: it inspects registered monitors' hot states and the actor
// set's fingerprint at this point, per spec.md §4.8. A non-nil return aborts
// the iteration exactly like a user Assert failure.
type StepHook func(step int) loomerrors.RuntimeError

// SetStepHook installs h, replacing any previously set hook.
func (s *Scheduler) SetStepHook(h StepHook) { s.stepHook = h }

// EnableRecording attaches a fresh Trace that every subsequent scheduling
// and nondeterministic choice is appended to.
func (s *Scheduler) EnableRecording() *trace.Trace {
	s.rec = trace.New()
	return s.rec
}

// Context returns the iteration's cancellation context; operation bodies
// that perform long-running work between scheduling points may select on
// it, though the normal path is simply checking Operation status after
// every SchedulingPoint call.
func (s *Scheduler) Context() context.Context { return s.ctx }

// Strategy returns the active strategy, e.g. so the harness can report its
// name or query IsExhausted after an iteration.
func (s *Scheduler) Strategy() Strategy { return s.strategy }

// Spawn registers a new Operation and returns it. body is started on its own
// goroutine but blocks immediately until the scheduler first hands it the
// baton, so registering an operation mid-turn never lets it race the
// caller.
func (s *Scheduler) Spawn(kind Kind, name string, owner *actorid.ID, body func(op *Operation)) *Operation {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	op := newOperation(id, kind, name, owner)
	op.createdStep = s.step
	s.ops[id] = op
	s.order = append(s.order, id)
	s.mu.Unlock()

	go func() {
		<-op.resume
		body(op)
		s.finish(op)
	}()

	return op
}

// finish marks op Completed and reports it to the scheduler loop. Called
// once by an operation's goroutine just before it returns.
func (s *Scheduler) finish(op *Operation) {
	op.Status = Completed
	s.yieldCh <- op
}

// SchedulingPoint is called by operation bodies (actor handler loop,
// controlled-task primitives) whenever they reach one of the scheduling
// points enumerated in spec.md §5. It records the operation's new status,
// hands control back to the scheduler, and blocks until the scheduler
// chooses this operation again — unless the iteration's context has been
// cancelled, in which case it returns immediately with ok=false so the
// caller can wind down to Completed without waiting to be rescheduled.
func (s *Scheduler) SchedulingPoint(op *Operation, status Status, reason BlockReason) (ok bool) {
	op.Status = status
	op.BlockReason = reason

	s.yieldCh <- op

	if status == Completed {
		return false
	}

	<-op.resume

	return s.ctx.Err() == nil
}

// RunIteration resets the strategy for iteration i and runs the given
// rootBody as the first operation, blocking until the whole iteration
// quiesces (every operation Completed or Blocked with nothing left
// Enabled). It returns the terminal budget error, if any (StepBudgetExceeded
// is informational per spec.md §4.7, not itself a failure).
func (s *Scheduler) RunIteration(iteration int, rootName string, rootBody func(op *Operation)) loomerrors.RuntimeError {
	s.strategy.PrepareIteration(iteration)
	s.step = 0
	s.budgetErr = nil

	root := s.Spawn(ActorHandler, rootName, nil, rootBody)
	root.resume <- struct{}{}

	for {
		op := <-s.yieldCh

		enabled := s.enabledOps()

		// A user-triggered Assert (or any other external Abort call)
		// may have fired while op was running, after it already
		// yielded the operations still Enabled. Drain them the same
		// way a step-budget overrun does, rather than letting the
		// strategy keep scheduling against a doomed iteration.
		if s.budgetErr != nil {
			s.drain(enabled)
			return s.budgetErr
		}

		if len(enabled) == 0 {
			return s.budgetErr
		}

		s.step++
		fair, isFair := s.strategy.(Fair)
		fairStrategy := isFair && fair.Fair()
		if !fairStrategy && s.maxUnfairSteps > 0 && s.step > s.maxUnfairSteps {
			s.budgetErr = &loomerrors.StepBudgetExceeded{Budget: s.maxUnfairSteps, Fair: false}
			s.cancel()
			s.drain(enabled)
			return s.budgetErr
		}
		if fairStrategy && s.maxFairSteps > 0 && s.step > s.maxFairSteps {
			s.budgetErr = &loomerrors.StepBudgetExceeded{Budget: s.maxFairSteps, Fair: true}
			s.cancel()
			s.drain(enabled)
			return s.budgetErr
		}

		if s.stepHook != nil {
			if hookErr := s.stepHook(s.step); hookErr != nil {
				s.budgetErr = hookErr
				s.cancel()
				s.drain(enabled)
				return s.budgetErr
			}
		}

		next := s.strategy.NextOperation(enabled, op, s.step)
		next.lastRanStep = s.step
		next.Status = Running

		if s.rec != nil {
			s.rec.AppendSchedulingChoice(uint64(next.ID))
		}

		logger.TraceS(s.ctx, "scheduling operation", "id", next.ID, "name", next.Name, "step", s.step)

		next.resume <- struct{}{}
	}
}

// drain cancels the iteration and resumes every still-live operation so
// each has a chance to observe cancellation at its own next
// SchedulingPoint call and wind down to Completed, avoiding goroutine leaks
// after a step-budget abort.
func (s *Scheduler) drain(enabled []*Operation) {
	remaining := len(enabled)
	for _, op := range enabled {
		op.Status = Running
		op.resume <- struct{}{}
	}
	for remaining > 0 {
		<-s.yieldCh
		remaining--
	}
}

// enabledOps returns operations currently Enabled, in stable creation
// order (determinism requires the strategy see the same ordering given the
// same construction order every time, per spec.md §5).
func (s *Scheduler) enabledOps() []*Operation {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]ID, len(s.order))
	copy(ids, s.order)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var enabled []*Operation
	for _, id := range ids {
		if op := s.ops[id]; op.Status == Enabled {
			enabled = append(enabled, op)
		}
	}
	return enabled
}

// NextBoolean and NextInteger route Random/RandomBool through the active
// strategy, recording the consumed bit into the trace if recording.
func (s *Scheduler) NextBoolean() bool {
	v := s.strategy.NextBoolean()
	if s.rec != nil {
		val := uint64(0)
		if v {
			val = 1
		}
		s.rec.AppendNondetChoice(val)
	}
	return v
}

func (s *Scheduler) NextInteger(maxExclusive int) int {
	v := s.strategy.NextInteger(maxExclusive)
	if s.rec != nil {
		s.rec.AppendNondetChoice(uint64(v))
	}
	return v
}

// Operations returns a snapshot of every operation registered so far, used
// by the liveness fingerprinter (C10).
func (s *Scheduler) Operations() []*Operation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Operation, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.ops[id])
	}
	return out
}

// Step returns the current scheduling step counter.
func (s *Scheduler) Step() int { return s.step }

// Abort records err as the iteration's terminal verdict and cancels the
// iteration context, e.g. from a user Assert failure. Unlike a step-budget
// overrun, the caller is usually still the Running operation itself, so
// Abort does not drain synchronously here — the main RunIteration loop
// notices s.budgetErr on the next yield and drains then.
func (s *Scheduler) Abort(err loomerrors.RuntimeError) {
	if s.budgetErr == nil {
		s.budgetErr = err
	}
	s.cancel()
}

// MarkEnabled transitions a Blocked operation back to Enabled, called by
// whichever operation is currently Running when it performs an action that
// satisfies the block (e.g. an Enqueue matching a pending receive filter).
// Safe to call on an operation that is already Enabled or Completed (no-op).
func (s *Scheduler) MarkEnabled(op *Operation) {
	if op.Status != Blocked {
		return
	}
	op.Status = Enabled
	op.BlockReason = BlockNone
}
