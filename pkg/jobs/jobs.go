// Package jobs runs periodic housekeeping on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"kilnbazaar/pkg/logger"
	"kilnbazaar/storage"
)

const jobTimeout = 2 * time.Minute

type Scheduler struct {
	cron *cron.Cron
	otps storage.IOTPStorage
	log  logger.ILogger
	now  func() time.Time
}

func New(otps storage.IOTPStorage, log logger.ILogger) *Scheduler {
	cl := cronLogger{log: log}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		otps: otps,
		log:  log,
		now:  time.Now,
	}
}

// Register adds the OTP purge job. expr is any expression cron.ParseStandard
// accepts, including descriptors like "@hourly".
func (s *Scheduler) Register(expr string) error {
	_, err := s.cron.AddFunc(expr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if _, err := s.PurgeExpiredOTPs(ctx); err != nil {
			s.log.Error("otp purge failed", logger.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", expr, err)
	}
	return nil
}

func (s *Scheduler) PurgeExpiredOTPs(ctx context.Context) (int64, error) {
	n, err := s.otps.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("expired otps purged", logger.Int64("count", n))
	}
	return n, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// cronLogger adapts ILogger to cron.Logger.
type cronLogger struct {
	log logger.ILogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, logger.Any("details", keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, logger.Error(err), logger.Any("details", keysAndValues))
}
