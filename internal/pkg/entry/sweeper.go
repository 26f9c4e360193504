package entry

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/rokcupza/nats-registry/app/repository"
	"github.com/rokcupza/nats-registry/internal/pkg/env"
)

const sweepInterval = 15 * time.Minute

// Sweeper cancels pending entries whose payment never arrived. The TTL comes
// from PENDING_ENTRY_TTL_HOURS; zero disables the sweeper entirely and
// pending rows then live until an operator deals with them.
type Sweeper struct {
	repos *repository.Repositories
	ttl   time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewSweeper builds a sweeper from the environment.
func NewSweeper(repos *repository.Repositories) *Sweeper {
	hours, err := strconv.Atoi(env.GetEnv("PENDING_ENTRY_TTL_HOURS", "0"))
	if err != nil || hours < 0 {
		hours = 0
	}
	return &Sweeper{
		repos: repos,
		ttl:   time.Duration(hours) * time.Hour,
	}
}

// Start launches the background loop. A zero TTL makes Start a no-op.
func (s *Sweeper) Start() {
	if s.ttl == 0 {
		log.Info("[Sweeper] disabled (PENDING_ENTRY_TTL_HOURS=0)")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})

	s.wg.Add(1)
	go s.loop()
	log.Infof("[Sweeper] started, cancelling pending entries older than %s", s.ttl)
}

// Stop shuts the loop down and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	log.Info("[Sweeper] stopped")
}

func (s *Sweeper) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	cutoff := time.Now().Add(-s.ttl)
	n, err := s.repos.Entry.CancelStalePending(cutoff)
	if err != nil {
		log.Errorf("[Sweeper] sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Infof("[Sweeper] cancelled %d stale pending entries (older than %s)", n, cutoff.Format(time.RFC3339))
	}
}
