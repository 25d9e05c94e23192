package actorid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNumberedAndStableNamedAreNeverEqual(t *testing.T) {
	numeric := Numbered(1, "Client")
	named := StableNamed("1", "Client")

	require.False(t, numeric.Equal(named))
	require.NotEqual(t, numeric.Key(), named.Key())
}

func TestEqualComparesWithinSameMode(t *testing.T) {
	a := Numbered(5, "Client")
	b := Numbered(5, "Client")
	c := Numbered(6, "Client")

	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
}

func TestRegistryAssignsMonotonicNumericIDs(t *testing.T) {
	r := NewRegistry()

	first := r.NextNumeric("Client")
	second := r.NextNumeric("Client")

	require.EqualValues(t, 1, first.Numeric)
	require.EqualValues(t, 2, second.Numeric)
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	r := NewRegistry()

	_, ok := r.BindName("singleton", "Server")
	require.True(t, ok)

	_, ok = r.BindName("singleton", "Server")
	require.False(t, ok)
}

func TestRegistryReleaseFreesName(t *testing.T) {
	r := NewRegistry()

	_, ok := r.BindName("singleton", "Server")
	require.True(t, ok)

	r.Release("singleton")

	_, ok = r.BindName("singleton", "Server")
	require.True(t, ok)
}

func TestZeroIDReportsIsZero(t *testing.T) {
	var id ID
	require.True(t, id.IsZero())

	bound := Numbered(1, "Client")
	require.False(t, bound.IsZero())
}

func TestStringUsesDisplayName(t *testing.T) {
	id := Numbered(3, "Client")
	require.Equal(t, "Client(3)", id.String())

	named := StableNamed("leader", "Server")
	require.Equal(t, `Server("leader")`, named.String())
}
