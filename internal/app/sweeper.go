package app

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweepable is the maintenance surface of the booking service.
type Sweepable interface {
	ExpireQuotes(ctx context.Context, limit int) (int, error)
	SyncMarkups(ctx context.Context, limit int) (int, error)
}

// Sweeper periodically expires stale quotes and pulls unfrozen bookings onto
// the current provider markup.
type Sweeper struct {
	target Sweepable
	batch  int
	cron   *cron.Cron
	log    *zap.Logger

	mu      sync.Mutex
	running bool
}

func NewSweeper(target Sweepable, schedule string, batch int, log *zap.Logger) (*Sweeper, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if batch <= 0 {
		batch = 100
	}
	s := &Sweeper{target: target, batch: batch, log: log}
	s.cron = cron.New(cron.WithChain(cron.Recover(cronLogger{log})))
	if _, err := s.cron.AddFunc(schedule, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sweeper) Start() { s.cron.Start() }

// Stop waits for a running pass to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce performs one pass. Overlapping passes are skipped.
func (s *Sweeper) RunOnce(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.Debug("sweep already running, skipping")
		return
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	start := time.Now()
	expired, err := s.target.ExpireQuotes(ctx, s.batch)
	if err != nil {
		s.log.Error("quote expiry sweep failed", zap.Error(err))
	}
	synced, err := s.target.SyncMarkups(ctx, s.batch)
	if err != nil {
		s.log.Error("markup sync sweep failed", zap.Error(err))
	}
	s.log.Info("sweep finished",
		zap.Int("expired", expired),
		zap.Int("synced", synced),
		zap.Duration("took", time.Since(start)))
}

type cronLogger struct{ log *zap.Logger }

func (l cronLogger) Info(msg string, kv ...interface{}) {
	l.log.Sugar().Infow(msg, kv...)
}

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.log.Sugar().Errorw(msg, append(kv, "error", err)...)
}
