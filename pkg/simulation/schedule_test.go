package simulation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedule_PopsInTimestampOrder(t *testing.T) {
	s := newSchedule()
	s.add(t0.Add(2*time.Minute), "b")
	s.add(t0, "a")
	s.add(t0.Add(time.Minute), "c")
	s.add(t0, "b")
	s.add(t0, "a")

	assert.Equal(t, 3, s.len())

	ts, ok := s.peek()
	require.True(t, ok)
	assert.Equal(t, t0, ts)

	ts, names, ok := s.pop()
	require.True(t, ok)
	assert.Equal(t, t0, ts)
	assert.Equal(t, map[string]struct{}{"a": {}, "b": {}}, names)

	ts, names, ok = s.pop()
	require.True(t, ok)
	assert.Equal(t, t0.Add(time.Minute), ts)
	assert.Len(t, names, 1)

	s.add(t0.Add(time.Minute), "d")
	ts, names, ok = s.pop()
	require.True(t, ok)
	assert.Equal(t, t0.Add(time.Minute), ts)
	assert.Equal(t, map[string]struct{}{"d": {}}, names)

	_, _, ok = s.pop()
	require.True(t, ok)
	_, _, ok = s.pop()
	assert.False(t, ok)
	_, ok = s.peek()
	assert.False(t, ok)
}

func TestSchedule_MergesEqualInstants(t *testing.T) {
	s := newSchedule()
	s.add(t0, "a")
	s.add(t0.In(time.FixedZone("EST", -5*3600)), "b")

	assert.Equal(t, 1, s.len())
	_, names, _ := s.pop()
	assert.Len(t, names, 2)
}

func TestRuleRegistry_Active(t *testing.T) {
	r := newRuleRegistry()
	rule := orderRule("X", 1, 0)
	for _, name := range []string{"first", "second", "third"} {
		require.NoError(t, r.add(name, rule))
	}
	require.NoError(t, r.enableGlobally("third"))

	var names []string
	for _, nr := range r.active(map[string]struct{}{"first": {}}) {
		names = append(names, nr.name)
	}
	assert.Equal(t, []string{"first", "third"}, names)
	assert.True(t, r.hasGlobal())

	require.NoError(t, r.disable("third"))
	assert.False(t, r.hasGlobal())
	assert.Empty(t, r.active(nil))
}
