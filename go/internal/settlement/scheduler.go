package settlement

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// ProductSettler settles one product.
type ProductSettler interface {
	Settle(ctx context.Context, productID uuid.UUID) (*Result, error)
}

// SchedulerConfig tunes the sweep loop.
type SchedulerConfig struct {
	Workers   int
	BatchSize int32
	// IdlePoll is how long to sleep when no auction is active.
	IdlePoll time.Duration
	// RetryDelay is the pause after an error or a sweep that found
	// nothing new to hand out.
	RetryDelay time.Duration
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Workers:    4,
		BatchSize:  100,
		IdlePoll:   5 * time.Second,
		RetryDelay: time.Second,
	}
}

// Scheduler sleeps until the earliest active auction ends, then hands every
// due product to a worker pool. A product is never in two workers at once.
type Scheduler struct {
	sweeper    Sweeper
	settler    ProductSettler
	clock      clockwork.Clock
	cfg        SchedulerConfig
	instanceID string

	wakeCh chan struct{}
	workCh chan uuid.UUID

	inFlight   map[uuid.UUID]bool
	inFlightMu sync.Mutex
}

// NewScheduler creates a scheduler. Zero config fields take defaults.
func NewScheduler(sweeper Sweeper, settler ProductSettler, clock clockwork.Clock, cfg SchedulerConfig) *Scheduler {
	def := DefaultSchedulerConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.IdlePoll <= 0 {
		cfg.IdlePoll = def.IdlePoll
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		sweeper:    sweeper,
		settler:    settler,
		clock:      clock,
		cfg:        cfg,
		instanceID: uuid.New().String()[:8],
		wakeCh:     make(chan struct{}, 1),
		workCh:     make(chan uuid.UUID, cfg.Workers*2),
		inFlight:   make(map[uuid.UUID]bool),
	}
}

// Wake makes the loop re-read the next deadline now, e.g. when a room
// clock reports an auction ended.
func (s *Scheduler) Wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

// Run loops until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	log.Info().Str("instance", s.instanceID).Int("workers", s.cfg.Workers).Msg("settlement scheduler started")

	var wg sync.WaitGroup
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go s.worker(workerCtx, &wg, i)
	}

	defer func() {
		cancelWorkers()
		close(s.workCh)
		wg.Wait()
		log.Info().Str("instance", s.instanceID).Msg("settlement scheduler stopped")
	}()

	for {
		select {
		case <-s.wakeCh:
		default:
		}

		next, err := s.sweeper.NextEnd(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error().Err(err).Str("instance", s.instanceID).Msg("error fetching next auction end")
			if !s.sleep(ctx, s.cfg.RetryDelay) {
				return nil
			}
			continue
		}

		if next == nil {
			log.Debug().Str("instance", s.instanceID).Dur("poll", s.cfg.IdlePoll).Msg("no active auctions")
			if !s.sleep(ctx, s.cfg.IdlePoll) {
				return nil
			}
			continue
		}

		if wait := next.Sub(s.clock.Now()); wait > 0 {
			log.Debug().Str("instance", s.instanceID).Time("next_end", *next).Dur("wait", wait).Msg("sleeping until next auction end")
			if !s.sleep(ctx, wait) {
				return nil
			}
			continue
		}

		due, err := s.sweeper.DueProducts(ctx, s.clock.Now(), s.cfg.BatchSize)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error().Err(err).Str("instance", s.instanceID).Msg("error fetching due products")
			if !s.sleep(ctx, s.cfg.RetryDelay) {
				return nil
			}
			continue
		}

		queued, ok := s.dispatch(ctx, due)
		if !ok {
			return nil
		}
		if queued == 0 && !s.sleep(ctx, s.cfg.RetryDelay) {
			return nil
		}
	}
}

// dispatch queues every due product not already in flight. It returns
// false when ctx ended while queueing.
func (s *Scheduler) dispatch(ctx context.Context, due []uuid.UUID) (int, bool) {
	queued := 0
	for _, id := range due {
		s.inFlightMu.Lock()
		if s.inFlight[id] {
			s.inFlightMu.Unlock()
			log.Debug().Str("product_id", id.String()).Str("instance", s.instanceID).Msg("skipping product already in flight")
			continue
		}
		s.inFlight[id] = true
		s.inFlightMu.Unlock()

		select {
		case <-ctx.Done():
			s.done(id)
			return queued, false
		case s.workCh <- id:
			queued++
		}
	}
	if queued > 0 {
		log.Info().Int("count_due", queued).Str("instance", s.instanceID).Msg("dispatched due auctions")
	}
	return queued, true
}

// sleep waits for d, a wake-up or ctx. It reports false only when ctx ended.
func (s *Scheduler) sleep(ctx context.Context, d time.Duration) bool {
	timer := s.clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-s.wakeCh:
		return true
	case <-timer.Chan():
		return true
	}
}

func (s *Scheduler) worker(ctx context.Context, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case id, ok := <-s.workCh:
			if !ok {
				return
			}
			if _, err := s.settler.Settle(ctx, id); err != nil {
				log.Error().
					Err(err).
					Str("product_id", id.String()).
					Str("instance", s.instanceID).
					Int("worker_id", workerID).
					Msg("settlement failed")
			}
			s.done(id)
		}
	}
}

func (s *Scheduler) done(id uuid.UUID) {
	s.inFlightMu.Lock()
	delete(s.inFlight, id)
	s.inFlightMu.Unlock()
}

// InFlight returns how many products are being settled right now.
func (s *Scheduler) InFlight() int {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	return len(s.inFlight)
}
