// Package liveness implements the liveness / cycle checker described in
// SPEC_FULL.md as C10 (spec.md §4.8). Nothing in the teacher repo plays an
// equivalent role — Coyote's HotState/temperature machinery is the ground
// truth here, reduced to the Go idiom the rest of this runtime already
// established: a plain struct wired into the scheduler through a StepHook,
// the same narrow-callback shape internal/runtime/scheduler already exposes
// for the step-budget checks it performs internally.
//
// Only fair strategies are meaningful subjects for liveness bookkeeping —
// an unfair run can starve an Enabled operation forever for reasons that
// have nothing to do with the system under test, so G3 (fairness) not
// holding would make PotentialLivenessBug noise rather than signal. The
// harness is responsible for only attaching a Checker when the configured
// strategy implements scheduler.Fair and reports Fair() == true.
package liveness

import (
	"context"
	"hash/fnv"
	"sort"
	"strconv"

	"github.com/roasbeef/loom/internal/log"
	"github.com/roasbeef/loom/internal/runtime/actor"
	loomerrors "github.com/roasbeef/loom/internal/runtime/errors"
	"github.com/roasbeef/loom/internal/runtime/monitor"
)

var logger = log.Logger(log.SubsystemLiveness)

// Checker tracks the temperature counter and, optionally, the execution
// fingerprint history used for cycle detection.
type Checker struct {
	threshold int

	temperature int
	hotMonitor  string
	hotState    string

	cycleDetection bool
	seenAllCold    map[uint64]int
	step           int
}

// New constructs a Checker. threshold is
// configuration.LivenessTemperatureThreshold; threshold <= 0 disables the
// temperature check entirely (but cycle detection, if requested, still
// runs). cycleDetection enables the optional execution-fingerprint pass
// from spec.md §4.8.
func New(threshold int, cycleDetection bool) *Checker {
	c := &Checker{
		threshold:      threshold,
		cycleDetection: cycleDetection,
	}
	if cycleDetection {
		c.seenAllCold = make(map[uint64]int)
	}
	return c
}

// OnStep is wired to scheduler.Scheduler.SetStepHook. It is called once per
// scheduling step with the full monitor and actor sets, in a quiescent
// moment between the previous operation yielding and the next one being
// chosen.
func (c *Checker) OnStep(monitors map[string]*monitor.Machine, actors map[any]*actor.Actor) loomerrors.RuntimeError {
	c.step++

	hotName, hotState, anyHot := firstHot(monitors)
	if anyHot {
		c.temperature++
		c.hotMonitor, c.hotState = hotName, hotState
	} else {
		c.temperature = 0
		c.hotMonitor, c.hotState = "", ""
	}

	if c.threshold > 0 && c.temperature > c.threshold {
		logger.WarnS(context.Background(), "liveness temperature threshold exceeded", nil,
			"monitor", c.hotMonitor, "state", c.hotState, "steps", c.temperature)
		return &loomerrors.PotentialLivenessBug{
			Monitor: c.hotMonitor,
			State:   c.hotState,
		}
	}

	if !c.cycleDetection || anyHot {
		// A cycle that never clears every monitor's hot state is
		// already caught by the temperature check above; the cycle
		// detector only needs to watch for the all-cold case the
		// temperature counter can't see (a fair execution that keeps
		// re-running the same all-cold loop forever without ever
		// making externally visible progress).
		return nil
	}

	fp := fingerprint(monitors, actors)
	if _, seen := c.seenAllCold[fp]; seen {
		logger.WarnS(context.Background(), "execution fingerprint repeated with every monitor cold", nil,
			"step", c.step)
		return &loomerrors.InfiniteExecutionViolatesLiveness{}
	}
	c.seenAllCold[fp] = c.step

	return nil
}

// Temperature returns the current consecutive-hot-steps count, for trace
// and report rendering.
func (c *Checker) Temperature() int { return c.temperature }

func firstHot(monitors map[string]*monitor.Machine) (name, state string, found bool) {
	tags := make([]string, 0, len(monitors))
	for tag := range monitors {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	for _, tag := range tags {
		m := monitors[tag]
		hotStates := m.HotStates()
		if len(hotStates) > 0 {
			return tag, hotStates[0], true
		}
	}
	return "", "", false
}

// fingerprint hashes the set of actor statuses/inbox lengths/deferred kinds
// and monitor states into a single uint64, per spec.md §4.8: "hash the
// execution fingerprint (set of actor states, inbox lengths, monitor
// states, deferred sets) ... excludes wall-time-like fields and numeric-id
// reassignments". Actor identity strings are themselves stable within one
// iteration (the registry never reassigns a live id), so including them is
// safe; nothing here depends on real time or on a counter that free-runs
// across iterations.
func fingerprint(monitors map[string]*monitor.Machine, actors map[any]*actor.Actor) uint64 {
	actorKeys := make([]string, 0, len(actors))
	byKey := make(map[string]*actor.Actor, len(actors))
	for _, a := range actors {
		k := a.ID.String()
		actorKeys = append(actorKeys, k)
		byKey[k] = a
	}
	sort.Strings(actorKeys)

	h := fnv.New64a()
	write := func(s string) { _, _ = h.Write([]byte(s)); _, _ = h.Write([]byte{0}) }

	for _, k := range actorKeys {
		a := byKey[k]
		write(k)
		write(a.Status.String())
		write(strconv.Itoa(a.Inbox.Len()))
		for _, kind := range a.Inbox.DeferredKinds() {
			write(kind)
		}
	}

	monitorTags := make([]string, 0, len(monitors))
	for tag := range monitors {
		monitorTags = append(monitorTags, tag)
	}
	sort.Strings(monitorTags)

	for _, tag := range monitorTags {
		m := monitors[tag]
		write(tag)
		write(m.CurrentState())
	}

	return h.Sum64()
}
