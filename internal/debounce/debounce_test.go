package debounce

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureTimers replaces afterFunc with one that never fires on its own and
// returns the scheduled callbacks in order.
func captureTimers(t *testing.T) *[]func() {
	t.Helper()
	orig := afterFunc
	t.Cleanup(func() { afterFunc = orig })

	var scheduled []func()
	afterFunc = func(_ time.Duration, f func()) *time.Timer {
		scheduled = append(scheduled, f)
		timer := time.NewTimer(time.Hour)
		timer.Stop()
		return timer
	}
	return &scheduled
}

func TestOnlyLatestTriggerFires(t *testing.T) {
	scheduled := captureTimers(t)
	var calls atomic.Int32
	d := New(time.Second, func() { calls.Add(1) })

	d.Trigger()
	d.Trigger()
	d.Trigger()
	require.Len(t, *scheduled, 3)
	for _, f := range *scheduled {
		f()
	}
	assert.Equal(t, int32(1), calls.Load())

	// the winning callback only runs once even if called again
	(*scheduled)[2]()
	assert.Equal(t, int32(1), calls.Load())
}

func TestStopDropsPendingAndAllowsRetrigger(t *testing.T) {
	scheduled := captureTimers(t)
	var calls atomic.Int32
	d := New(time.Second, func() { calls.Add(1) })

	d.Trigger()
	d.Stop()
	(*scheduled)[0]()
	assert.Zero(t, calls.Load())

	d.Trigger()
	require.Len(t, *scheduled, 2)
	(*scheduled)[1]()
	assert.Equal(t, int32(1), calls.Load())
}

func TestBurstFiresOnceWithRealTimer(t *testing.T) {
	fired := make(chan struct{}, 4)
	d := New(20*time.Millisecond, func() { fired <- struct{}{} })
	for range 5 {
		d.Trigger()
		time.Sleep(2 * time.Millisecond)
	}

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("debouncer did not fire")
	}
	select {
	case <-fired:
		t.Fatal("debouncer fired twice for one burst")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestEnsure(t *testing.T) {
	scheduled := captureTimers(t)
	var calls atomic.Int32
	var d *Debouncer

	first := Ensure(&d, time.Second, func() { calls.Add(1) })
	require.NotNil(t, d)
	assert.Same(t, d, first)

	second := Ensure(&d, time.Second, func() { calls.Add(10) })
	assert.Same(t, first, second)

	second.Trigger()
	(*scheduled)[0]()
	assert.Equal(t, int32(1), calls.Load())
}
