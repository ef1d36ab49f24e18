package llm

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/0xcro3dile/metarag-go/internal/domain/entities"
	"github.com/0xcro3dile/metarag-go/internal/domain/ports"
	"github.com/0xcro3dile/metarag-go/internal/domain/usecases"
)

// Gate wraps an invoker with admission control: at most cfg.MaxConcurrency calls
// in flight per model configuration within one request, and an optional global request rate.
// Calls without a request id share one process-wide set of slots.
type Gate struct {
	next    ports.ModelInvoker
	limiter *rate.Limiter
	logger  *zap.Logger

	mu    sync.Mutex
	slots map[string]*slot
}

// slot is a semaphore shared by the callers currently holding or awaiting it.
type slot struct {
	sem   *semaphore.Weighted
	users int
}

// NewGate wraps next. requestsPerSecond <= 0 disables rate limiting.
func NewGate(next ports.ModelInvoker, requestsPerSecond float64, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gate{
		next:   next,
		logger: logger,
		slots:  make(map[string]*slot),
	}
	if requestsPerSecond > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return g
}

// Invoke waits for a slot of cfg's configuration, then for the rate limiter, then calls through.
func (g *Gate) Invoke(ctx context.Context, prompt string, cfg entities.ModelConfig) (string, error) {
	key := slotKey(ctx, cfg)
	s := g.acquire(key, cfg)
	defer g.release(key)

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("waiting for %s slot: %w", cfg.Model, err)
	}
	defer s.sem.Release(1)

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait: %w", err)
		}
	}
	return g.next.Invoke(ctx, prompt, cfg)
}

func slotKey(ctx context.Context, cfg entities.ModelConfig) string {
	return usecases.RequestID(ctx) + "|" + cfg.Key()
}

// acquire registers a user of key's slot, creating it sized by cfg.MaxConcurrency.
func (g *Gate) acquire(key string, cfg entities.ModelConfig) *slot {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.slots[key]
	if !ok {
		n := cfg.MaxConcurrency
		if n <= 0 {
			n = 1
		}
		s = &slot{sem: semaphore.NewWeighted(int64(n))}
		g.slots[key] = s
		g.logger.Debug("admission slots created", zap.String("key", key), zap.Int("slots", n))
	}
	s.users++
	return s
}

// release drops a user of key's slot and forgets the slot once nobody uses it.
func (g *Gate) release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := g.slots[key]
	s.users--
	if s.users == 0 {
		delete(g.slots, key)
	}
}
