// Package actorid implements the stable, comparable actor handle described
// in SPEC_FULL.md as C2. It plays the role the teacher's BaseActorRef.ID()
// string plays in internal/baselib/actor/interface.go, but is a first-class
// comparable value rather than an opaque string, since the scheduler and
// trace machinery need to key maps on identity and print it deterministically
// across replay.
package actorid

import "fmt"

// ID identifies a single actor within one ExecutionContext. Exactly one of
// the name-mode branches is populated: either Numeric is set (Named is
// false) or Name is set (Named is true). Two identities are equal iff they
// agree on (Named, id-or-name) — see Equal.
type ID struct {
	Named   bool
	Numeric uint64
	Name    string

	// TypeTag is the concrete actor/state-machine type, used for routing
	// Create defaults and for display.
	TypeTag string

	// DisplayName is purely cosmetic (trace output, error messages); it
	// never participates in equality.
	DisplayName string
}

// Numbered constructs a numeric-id identity. Numeric ids are monotonically
// assigned by the owning context's Registry.
func Numbered(n uint64, typeTag string) ID {
	return ID{
		Numeric:     n,
		TypeTag:     typeTag,
		DisplayName: fmt.Sprintf("%s(%d)", typeTag, n),
	}
}

// StableNamed constructs a name-mode identity. Names are unique within a
// context (spec.md §3); the Registry is responsible for rejecting
// duplicates with NameAlreadyBound.
func StableNamed(name, typeTag string) ID {
	return ID{
		Named:       true,
		Name:        name,
		TypeTag:     typeTag,
		DisplayName: fmt.Sprintf("%s(%q)", typeTag, name),
	}
}

// Equal reports whether two identities refer to the same actor. Identities
// from different name-modes are never equal, even if a numeric id happens
// to collide textually with a name.
func (id ID) Equal(other ID) bool {
	if id.Named != other.Named {
		return false
	}
	if id.Named {
		return id.Name == other.Name
	}
	return id.Numeric == other.Numeric
}

// Key returns a value suitable for use as a map key, distinguishing the two
// name-modes so a numeric id and an identically-spelled name never collide.
func (id ID) Key() any {
	if id.Named {
		return "name:" + id.Name
	}
	return fmt.Sprintf("num:%d", id.Numeric)
}

func (id ID) String() string {
	if id.DisplayName != "" {
		return id.DisplayName
	}
	if id.Named {
		return fmt.Sprintf("%s(%q)", id.TypeTag, id.Name)
	}
	return fmt.Sprintf("%s(%d)", id.TypeTag, id.Numeric)
}

// IsZero reports whether id is the unset zero value.
func (id ID) IsZero() bool {
	return !id.Named && id.Numeric == 0 && id.TypeTag == ""
}

// Registry vends monotonically increasing numeric ids and tracks bound
// stable names within a single ExecutionContext. It is not safe for
// concurrent use by design: the context lock (G1 in spec.md §3) always
// guards access to it, matching the single-threaded-cooperative model — a
// sync.Mutex here would just be redundant bookkeeping around an invariant
// the scheduler already enforces structurally.
type Registry struct {
	nextNumeric uint64
	names       map[string]struct{}
}

// NewRegistry returns an empty Registry, numeric ids starting at 1 (0 is
// reserved as the zero-value sentinel for ID.IsZero).
func NewRegistry() *Registry {
	return &Registry{nextNumeric: 1, names: make(map[string]struct{})}
}

// NextNumeric allocates the next unused numeric id for typeTag.
func (r *Registry) NextNumeric(typeTag string) ID {
	id := Numbered(r.nextNumeric, typeTag)
	r.nextNumeric++
	return id
}

// BindName attempts to reserve name for typeTag, returning false if it is
// already bound (caller translates that into errors.NameAlreadyBound).
func (r *Registry) BindName(name, typeTag string) (ID, bool) {
	if _, taken := r.names[name]; taken {
		return ID{}, false
	}
	r.names[name] = struct{}{}
	return StableNamed(name, typeTag), true
}

// Release frees a bound name, e.g. once its actor has fully Halted and been
// dropped from the context's actor map.
func (r *Registry) Release(name string) {
	delete(r.names, name)
}
