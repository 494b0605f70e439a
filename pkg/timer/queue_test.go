package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFiresInDeadlineOrder(t *testing.T) {
	q := NewQueue()
	var got []string
	q.Schedule(1500*time.Millisecond, func() { got = append(got, "spawn") })
	q.Schedule(time.Second, func() { got = append(got, "despawn") })
	q.Schedule(500*time.Millisecond, func() { got = append(got, "early") })

	assert.Equal(t, 0, q.Advance(400*time.Millisecond))
	assert.Equal(t, 1, q.Advance(100*time.Millisecond))
	assert.Equal(t, []string{"early"}, got)

	assert.Equal(t, 2, q.Advance(time.Second))
	assert.Equal(t, []string{"early", "despawn", "spawn"}, got)
	assert.Equal(t, 0, q.Pending())
}

func TestQueueEqualDeadlinesKeepSchedulingOrder(t *testing.T) {
	q := NewQueue()
	var got []int
	for i := 0; i < 5; i++ {
		i := i
		q.Schedule(time.Second, func() { got = append(got, i) })
	}
	q.Advance(time.Second)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestQueueCancel(t *testing.T) {
	q := NewQueue()
	fired := false
	h := q.Schedule(time.Second, func() { fired = true })
	other := q.Schedule(2*time.Second, func() {})

	require.True(t, q.Cancel(h))
	assert.False(t, q.Cancel(h), "second cancel must report false")
	assert.False(t, q.Cancel(Handle(999)))

	q.Advance(3 * time.Second)
	assert.False(t, fired)
	assert.False(t, q.Cancel(other), "fired handles cannot be cancelled")
}

func TestQueueNestedScheduling(t *testing.T) {
	q := NewQueue()
	var got []string
	q.Schedule(time.Second, func() {
		got = append(got, "outer")
		q.Schedule(0, func() { got = append(got, "immediate") })
		q.Schedule(time.Second, func() { got = append(got, "later") })
	})

	assert.Equal(t, 2, q.Advance(time.Second))
	assert.Equal(t, []string{"outer", "immediate"}, got)
	due, ok := q.NextDue()
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, due)

	q.AdvanceTo(2 * time.Second)
	assert.Equal(t, []string{"outer", "immediate", "later"}, got)
	assert.Equal(t, 2*time.Second, q.Now())
}

func TestQueueClear(t *testing.T) {
	q := NewQueue()
	fired := 0
	q.Schedule(time.Millisecond, func() { fired++ })
	q.Schedule(time.Hour, func() { fired++ })
	q.Clear()
	assert.Equal(t, 0, q.Pending())
	q.Advance(2 * time.Hour)
	assert.Equal(t, 0, fired)
}
