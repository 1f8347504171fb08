package countdown

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionhouse/go/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second
const pollEvery = 5 * time.Millisecond

type tickRecorder struct {
	mu      sync.Mutex
	results []Result
	ended   atomic.Int32
}

func (r *tickRecorder) onTick(_ string, res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

func (r *tickRecorder) onEnded(string) {
	r.ended.Add(1)
}

func (r *tickRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

func (r *tickRecorder) last() Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results[len(r.results)-1]
}

func TestRegistryTicksEverySecond(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reg := NewRegistry(clock)
	rec := &tickRecorder{}

	now := clock.Now()
	h, err := reg.Start("p1", now.Add(-time.Second), now.Add(3661*time.Second), rec.onTick, rec.onEnded)
	require.NoError(t, err)
	defer h.Release()

	require.Eventually(t, func() bool { return rec.count() == 1 }, waitFor, pollEvery)
	assert.Equal(t, PhaseActive, rec.last().Phase)
	assert.Equal(t, "00:01:01:01", rec.last().Delta.String())

	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return rec.count() == 2 }, waitFor, pollEvery)
	assert.Equal(t, "00:01:01:00", rec.last().Delta.String())
	assert.True(t, reg.Active("p1"))
}

func TestRegistryRestartKeepsSingleTickSource(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reg := NewRegistry(clock)
	first := &tickRecorder{}
	second := &tickRecorder{}

	now := clock.Now()
	start, end := now.Add(-time.Minute), now.Add(time.Hour)

	_, err := reg.Start("p1", start, end, first.onTick, first.onEnded)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return first.count() == 1 }, waitFor, pollEvery)

	h, err := reg.Start("p1", start, end, second.onTick, second.onEnded)
	require.NoError(t, err)
	defer h.Release()
	require.Eventually(t, func() bool { return second.count() == 1 }, waitFor, pollEvery)

	for i := 2; i <= 4; i++ {
		clock.Advance(time.Second)
		want := i
		require.Eventually(t, func() bool { return second.count() == want }, waitFor, pollEvery)
	}

	assert.Equal(t, 1, first.count())
	assert.Equal(t, 1, reg.Len())
}

func TestRegistryFiresEndedOnce(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reg := NewRegistry(clock)
	rec := &tickRecorder{}

	now := clock.Now()
	_, err := reg.Start("p1", now.Add(-10*time.Second), now.Add(2*time.Second), rec.onTick, rec.onEnded)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return rec.count() == 1 }, waitFor, pollEvery)

	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return rec.count() == 2 }, waitFor, pollEvery)

	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return rec.ended.Load() == 1 }, waitFor, pollEvery)

	assert.Equal(t, PhaseEnded, rec.last().Phase)
	assert.Equal(t, "00:00:00:00", rec.last().Delta.String())
	assert.False(t, reg.Active("p1"))

	clock.Advance(5 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), rec.ended.Load())
	assert.Equal(t, 3, rec.count())
}

func TestRegistryStartAfterEndFiresImmediately(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reg := NewRegistry(clock)
	rec := &tickRecorder{}

	now := clock.Now()
	_, err := reg.Start("p1", now.Add(-time.Hour), now.Add(-time.Minute), rec.onTick, rec.onEnded)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return rec.ended.Load() == 1 }, waitFor, pollEvery)
	assert.Equal(t, 1, rec.count())
	assert.Equal(t, 0, reg.Len())
}

func TestHandleReleaseIsScoped(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reg := NewRegistry(clock)

	now := clock.Now()
	start, end := now, now.Add(time.Hour)

	old, err := reg.Start("p1", start, end, nil, nil)
	require.NoError(t, err)
	current, err := reg.Start("p1", start, end, nil, nil)
	require.NoError(t, err)

	old.Release()
	assert.True(t, reg.Active("p1"), "releasing a replaced handle must not stop its successor")

	current.Release()
	current.Release()
	assert.False(t, reg.Active("p1"))

	var nilHandle *Handle
	nilHandle.Release()
}

func TestRegistryStopAndStopAll(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reg := NewRegistry(clock)
	rec := &tickRecorder{}

	now := clock.Now()
	for _, id := range []string{"a", "b", "c"} {
		_, err := reg.Start(id, now, now.Add(time.Hour), rec.onTick, nil)
		require.NoError(t, err)
	}
	require.Equal(t, 3, reg.Len())
	require.Eventually(t, func() bool { return rec.count() == 3 }, waitFor, pollEvery)

	reg.Stop("b")
	reg.Stop("missing")
	assert.Equal(t, 2, reg.Len())
	assert.False(t, reg.Active("b"))

	reg.StopAll()
	assert.Equal(t, 0, reg.Len())

	clock.Advance(3 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 3, rec.count())
}

func TestRegistryRefusesInvalidInput(t *testing.T) {
	reg := NewRegistry(clockwork.NewFakeClock())

	_, err := reg.StartRaw("p1", "garbage", "10:00", "2025-01-01T00:00:00Z", nil, nil)
	require.ErrorIs(t, err, apperr.ErrInvalidTimeInput)

	now := time.Now()
	_, err = reg.Start("p1", now, now.Add(-time.Second), nil, nil)
	require.ErrorIs(t, err, apperr.ErrInvalidTimeInput)

	assert.Equal(t, 0, reg.Len())
}
