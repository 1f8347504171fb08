package countdown

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionhouse/go/internal/apperr"
	"github.com/rs/zerolog/log"
)

// DefaultPeriod is the tick interval of every registry entry.
const DefaultPeriod = time.Second

// TickFunc receives each fresh evaluation for an entity.
type TickFunc func(id string, res Result)

// EndedFunc fires once when an entity's clock first reaches Ended.
type EndedFunc func(id string)

// Registry owns at most one ticking clock per entity id.
type Registry struct {
	clock  clockwork.Clock
	period time.Duration

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	id      string
	start   time.Time
	end     time.Time
	onTick  TickFunc
	onEnded EndedFunc

	ticker  clockwork.Ticker
	done    chan struct{}
	stopped atomic.Bool
	once    sync.Once
}

// Handle releases one registry entry. Release is safe to call more than
// once and never touches an entry that replaced this one.
type Handle struct {
	registry *Registry
	entry    *entry
}

// NewRegistry creates a registry ticking on clock. A nil clock uses real time.
func NewRegistry(clock clockwork.Clock) *Registry {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Registry{
		clock:   clock,
		period:  DefaultPeriod,
		entries: make(map[string]*entry),
	}
}

// Start begins ticking for id, replacing any clock already running for it.
// The first evaluation is delivered right away, then once per period.
func (r *Registry) Start(id string, start, end time.Time, onTick TickFunc, onEnded EndedFunc) (*Handle, error) {
	if Calculate(r.clock.Now(), start, end).Phase == PhaseInvalid {
		return nil, fmt.Errorf("start clock for %s: window %s..%s: %w", id, start.Format(time.RFC3339), end.Format(time.RFC3339), apperr.ErrInvalidTimeInput)
	}

	e := &entry{
		id:      id,
		start:   start,
		end:     end,
		onTick:  onTick,
		onEnded: onEnded,
		ticker:  r.clock.NewTicker(r.period),
		done:    make(chan struct{}),
	}

	r.mu.Lock()
	if existing, ok := r.entries[id]; ok {
		existing.stop()
		log.Debug().Str("entity_id", id).Msg("replaced existing countdown")
	}
	r.entries[id] = e
	r.mu.Unlock()

	go r.run(e)

	return &Handle{registry: r, entry: e}, nil
}

// StartRaw parses the listing's raw fields before starting. Unparseable
// input never starts a clock.
func (r *Registry) StartRaw(id, startDate, startTime, end string, onTick TickFunc, onEnded EndedFunc) (*Handle, error) {
	startAt, endAt, err := ParseWindow(startDate, startTime, end)
	if err != nil {
		return nil, err
	}
	return r.Start(id, startAt, endAt, onTick, onEnded)
}

// Stop cancels and removes the clock for id, if any.
func (r *Registry) Stop(id string) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	r.mu.Unlock()

	if ok {
		e.stop()
		log.Debug().Str("entity_id", id).Msg("stopped countdown")
	}
}

// StopAll cancels every clock. Used on shutdown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range entries {
		e.stop()
	}
}

// Active reports whether id currently has a ticking clock.
func (r *Registry) Active(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[id]
	return ok
}

// Len returns the number of ticking clocks.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Release stops the entry this handle was issued for.
func (h *Handle) Release() {
	if h == nil {
		return
	}
	h.registry.remove(h.entry)
	h.entry.stop()
}

// remove deletes e only if it is still the current entry for its id.
func (r *Registry) remove(e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.entries[e.id]; ok && current == e {
		delete(r.entries, e.id)
	}
}

func (r *Registry) run(e *entry) {
	if r.tick(e) {
		return
	}
	for {
		select {
		case <-e.done:
			return
		case <-e.ticker.Chan():
			if r.tick(e) {
				return
			}
		}
	}
}

// tick evaluates e once and reports whether the entry has finished.
func (r *Registry) tick(e *entry) bool {
	if e.stopped.Load() {
		return true
	}
	res := Calculate(r.clock.Now(), e.start, e.end)
	if e.onTick != nil {
		e.onTick(e.id, res)
	}
	if res.Phase != PhaseEnded {
		return false
	}

	r.remove(e)
	e.stop()
	if e.onEnded != nil {
		e.onEnded(e.id)
	}
	return true
}

func (e *entry) stop() {
	e.once.Do(func() {
		e.stopped.Store(true)
		e.ticker.Stop()
		close(e.done)
	})
}
