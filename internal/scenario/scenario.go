// Package scenario defines the Scenario type the CLI's `test`/`replay`
// commands drive, plus a small registry of built-in scenarios loom ships
// with so the binary has something runnable without any external "assembly"
// to load. Go has no equivalent of the binary-rewriting contract's
// artifact-loading step (spec.md §6) — there is no portable, statically
// typed way to load arbitrary third-party Go code into a running process —
// so the in-process registry here stands in for it: a scenario is
// registered by name at compile time (mirroring how this same corpus
// registers cobra subcommands or benchmark functions), and `loom test <name>`
// looks it up instead of loading a stamped artifact from disk.
package scenario

import (
	"fmt"
	"sort"
	"sync"

	"github.com/roasbeef/loom/internal/runtime/rtcontext"
)

// Scenario builds one iteration's initial world: it registers monitors and
// creates the root actor(s) on ctx, then returns. Everything after that
// happens through the scheduler driving those actors' handler loops.
type Scenario func(ctx *rtcontext.ExecutionContext) error

var (
	mu        sync.Mutex
	registry  = make(map[string]Scenario)
	registerOrder []string
)

// Register adds name to the registry. Calling Register twice with the same
// name panics at init time rather than silently shadowing the first
// registration.
func Register(name string, s Scenario) {
	mu.Lock()
	defer mu.Unlock()

	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("scenario: duplicate registration for %q", name))
	}
	registry[name] = s
	registerOrder = append(registerOrder, name)
}

// Lookup returns the scenario registered under name, if any.
func Lookup(name string) (Scenario, bool) {
	mu.Lock()
	defer mu.Unlock()

	s, ok := registry[name]
	return s, ok
}

// Names returns every registered scenario name, sorted.
func Names() []string {
	mu.Lock()
	defer mu.Unlock()

	out := make([]string, len(registerOrder))
	copy(out, registerOrder)
	sort.Strings(out)
	return out
}
