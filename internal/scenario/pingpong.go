package scenario

import (
	"fmt"

	"github.com/roasbeef/loom/internal/runtime/actor"
	"github.com/roasbeef/loom/internal/runtime/actorid"
	loomerrors "github.com/roasbeef/loom/internal/runtime/errors"
	"github.com/roasbeef/loom/internal/runtime/event"
	"github.com/roasbeef/loom/internal/runtime/monitor"
	"github.com/roasbeef/loom/internal/runtime/rtcontext"
)

// pingEvent asks the receiving actor to reply with a pongEvent to replyTo.
type pingEvent struct {
	event.BaseEvent
	replyTo actorid.ID
}

func (pingEvent) Kind() string { return "Ping" }

// pongEvent answers a pingEvent.
type pongEvent struct{ event.BaseEvent }

func (pongEvent) Kind() string { return "Pong" }

// startEvent kicks the client off; it is the client's own setup event.
type startEvent struct{ event.BaseEvent }

func (startEvent) Kind() string { return "Start" }

// pingSentEvent and pongReceivedEvent drive the PingPongLiveness monitor;
// they carry no payload, only a Kind used as the monitor's transition key.
type pingSentEvent struct{ event.BaseEvent }

func (pingSentEvent) Kind() string { return "PingSent" }

type pongReceivedEvent struct{ event.BaseEvent }

func (pongReceivedEvent) Kind() string { return "PongReceived" }

// serverBehavior answers every Ping with a Pong and never halts on its own;
// the scheduler halts it implicitly once the iteration ends.
type serverBehavior struct{}

func (serverBehavior) HandleEvent(h *actor.Handle, ev event.Event) error {
	ping, ok := ev.(pingEvent)
	if !ok {
		return &loomerrors.UnhandledEvent{
			Actor:     h.Self.String(),
			State:     "-",
			EventKind: ev.Kind(),
		}
	}
	return h.Send(ping.replyTo, pongEvent{}, actor.SendOptions{})
}

func (serverBehavior) ExceptionPolicy() actor.ExceptionPolicy { return actor.Propagate }

// clientBehavior pings server, waits for a Pong, and repeats for rounds
// round trips before halting. Every Ping/Pong pair is mirrored into the
// PingPongLiveness monitor so a server that silently swallows a Ping shows
// up as a liveness violation (a Waiting state with no matching PongReceived)
// rather than just a test that hangs forever.
type clientBehavior struct {
	server    actorid.ID
	remaining int
}

func (c *clientBehavior) HandleEvent(h *actor.Handle, ev event.Event) error {
	switch ev.Kind() {
	case "Start":
		return c.sendPing(h)

	case "Pong":
		if err := h.Monitor("PingPongLiveness", pongReceivedEvent{}); err != nil {
			return err
		}
		c.remaining--
		if c.remaining <= 0 {
			h.HaltSelf()
			return nil
		}
		return c.sendPing(h)

	default:
		return &loomerrors.UnhandledEvent{
			Actor:     h.Self.String(),
			State:     "-",
			EventKind: ev.Kind(),
		}
	}
}

func (c *clientBehavior) sendPing(h *actor.Handle) error {
	if err := h.Send(c.server, pingEvent{replyTo: h.Self}, actor.SendOptions{}); err != nil {
		return err
	}
	return h.Monitor("PingPongLiveness", pingSentEvent{})
}

func (c *clientBehavior) ExceptionPolicy() actor.ExceptionPolicy { return actor.Propagate }

// pingPongLivenessMonitor asserts that every Ping eventually gets a Pong: it
// is Cold while idle and Hot (an obligation is outstanding) the moment a
// Ping goes out, dropping back to Cold only once the matching Pong arrives.
// A schedule that leaves the monitor stuck Hot forever is exactly the
// liveness bug this scenario exists to let the checker catch (spec.md §4.5).
func pingPongLivenessMonitor(assertFn func(cond bool, msg string)) (*monitor.Machine, error) {
	idle := monitor.NewState("Idle").
		Start().
		Cold().
		OnGoto("PingSent", "Waiting").
		Build()

	waiting := monitor.NewState("Waiting").
		Hot().
		OnGoto("PongReceived", "Idle").
		Build()

	return monitor.NewMachine(monitor.Config{
		TypeTag:  "PingPongLiveness",
		States:   []*monitor.State{idle, waiting},
		AssertFn: assertFn,
	})
}

// PingPong builds a scenario with one server actor and one client actor that
// exchanges rounds Ping/Pong round trips before halting, guarded by a
// liveness monitor. It is loom's canonical smoke-test scenario: small enough
// to read in full, but wide enough to exercise actor creation, directed
// send, halting, and monitor-driven liveness checking together (C4, C6, C8).
func PingPong(rounds int) Scenario {
	return func(ctx *rtcontext.ExecutionContext) error {
		m, err := pingPongLivenessMonitor(ctx.Assert)
		if err != nil {
			return fmt.Errorf("building PingPongLiveness monitor: %w", err)
		}
		ctx.RegisterMonitor(m)

		serverID, _, err := ctx.CreateRoot(actor.ActorSpec{
			TypeTag: "Server",
			NewBehavior: func() actor.Behavior {
				return serverBehavior{}
			},
		})
		if err != nil {
			return fmt.Errorf("creating server actor: %w", err)
		}

		_, _, err = ctx.CreateRoot(actor.ActorSpec{
			TypeTag: "Client",
			Setup:   startEvent{},
			NewBehavior: func() actor.Behavior {
				return &clientBehavior{server: serverID, remaining: rounds}
			},
		})
		if err != nil {
			return fmt.Errorf("creating client actor: %w", err)
		}

		return nil
	}
}

func init() {
	Register("pingpong", PingPong(3))
}
