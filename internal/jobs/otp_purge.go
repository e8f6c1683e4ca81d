package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// OtpPurger deletes stale one-time codes.
type OtpPurger interface {
	PurgeStale(ctx context.Context, before time.Time) (int64, error)
}

const (
	purgeTimeout = time.Minute
	// codes stay around for a while after they die so support can inspect recent attempts
	purgeRetention = 24 * time.Hour
)

// Scheduler runs periodic maintenance jobs.
type Scheduler struct {
	cronEngine *cron.Cron
	purger     OtpPurger
	spec       string
	log        *zap.Logger
	now        func() time.Time
}

func NewScheduler(purger OtpPurger, spec string, log *zap.Logger) *Scheduler {
	return &Scheduler{
		cronEngine: cron.New(cron.WithLocation(time.UTC)),
		purger:     purger,
		spec:       spec,
		log:        log.Named("jobs"),
		now:        time.Now,
	}
}

// Start registers the jobs and starts the cron engine in its own goroutine.
func (s *Scheduler) Start() error {
	if _, err := s.cronEngine.AddFunc(s.spec, s.purgeOtps); err != nil {
		return fmt.Errorf("invalid OTP purge schedule %q: %w", s.spec, err)
	}
	s.cronEngine.Start()
	s.log.Info("scheduler started", zap.String("otp_purge", s.spec))
	return nil
}

// Stop waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cronEngine.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out")
	}
}

func (s *Scheduler) purgeOtps() {
	ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
	defer cancel()

	cutoff := s.now().Add(-purgeRetention)
	n, err := s.purger.PurgeStale(ctx, cutoff)
	if err != nil {
		s.log.Error("otp purge failed", zap.Error(err))
		return
	}
	s.log.Info("otp purge finished", zap.Int64("deleted", n), zap.Time("cutoff", cutoff))
}
