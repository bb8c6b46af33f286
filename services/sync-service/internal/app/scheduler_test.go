package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/athebyme/gomarket-sync/services/sync-service/internal/adapters/logger"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/models"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/services"
	"github.com/stretchr/testify/assert"
)

type countingSync struct {
	mu    sync.Mutex
	runs  int
	busy  bool
	seen  []string
	first chan struct{}
}

func (c *countingSync) Run(_ context.Context, req models.SyncRequest) *models.RunReport {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs++
	c.seen = append(c.seen, req.Trigger)
	if c.runs == 1 && c.first != nil {
		close(c.first)
	}
	return &models.RunReport{RunID: "r", Results: []models.DomainResult{{Domain: models.DomainStock, Rows: 1}}}
}

func (c *countingSync) TryRun(ctx context.Context, req models.SyncRequest) (*models.RunReport, error) {
	if c.busy {
		return nil, services.ErrRunInProgress
	}
	return c.Run(ctx, req), nil
}

func (c *countingSync) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runs
}

func TestScheduleRunsImmediatelyAndRepeats(t *testing.T) {
	svc := &countingSync{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		Schedule(ctx, svc, models.SyncRequest{Trigger: "schedule"}, 10*time.Millisecond, logger.NewNopLogger())
		close(done)
	}()

	assert.Eventually(t, func() bool { return svc.count() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Equal(t, "schedule", svc.seen[0])
}

func TestScheduleStartsBeforeFirstTick(t *testing.T) {
	svc := &countingSync{first: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Schedule(ctx, svc, models.SyncRequest{}, time.Hour, logger.NewNopLogger())

	select {
	case <-svc.first:
	case <-time.After(2 * time.Second):
		t.Fatal("first run did not start")
	}
}

func TestRunOnceSkipsWhenBusy(t *testing.T) {
	svc := &countingSync{busy: true}
	runOnce(context.Background(), svc, models.SyncRequest{}, logger.NewNopLogger())
	assert.Equal(t, 0, svc.count())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.busy = false
	runOnce(ctx, svc, models.SyncRequest{}, logger.NewNopLogger())
	assert.Equal(t, 0, svc.count())
}
