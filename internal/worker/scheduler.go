package worker

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"order-sync/internal/service"
	"order-sync/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Locker is a lease shared by every replica, so a job runs on one of them at a time
type Locker interface {
	AcquireLock(ctx context.Context, lockKey, owner string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey, owner string) (bool, error)
}

// Job is a periodic maintenance task
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// UrgentPromoter is the engine surface the promote job needs
type UrgentPromoter interface {
	Today() time.Time
	PromoteDueToday(ctx context.Context, today time.Time) (*service.PromoteResult, error)
}

// Resyncer is the engine surface the resync job needs
type Resyncer interface {
	ResyncAll(ctx context.Context) (*service.ResyncResult, error)
}

// PromoteJob promotes the orders due today into table_urgent
func PromoteJob(p UrgentPromoter, interval time.Duration) Job {
	return Job{
		Name:     "promote_urgent",
		Interval: interval,
		Run: func(ctx context.Context) error {
			_, err := p.PromoteDueToday(ctx, p.Today())
			return err
		},
	}
}

// ResyncJob resynchronizes every order, healing missed propagations
func ResyncJob(r Resyncer, interval time.Duration) Job {
	return Job{
		Name:     "resync_all",
		Interval: interval,
		Run: func(ctx context.Context) error {
			result, err := r.ResyncAll(ctx)
			if err != nil {
				return err
			}
			if result.ErrorCount > 0 {
				return fmt.Errorf("%d of %d orders failed to resync",
					result.ErrorCount, result.ErrorCount+result.SuccessCount)
			}
			return nil
		},
	}
}

// Scheduler runs jobs on fixed intervals
type Scheduler struct {
	jobs   []Job
	locker Locker
	owner  string
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler. A nil locker runs every job unguarded.
func NewScheduler(locker Locker, jobs ...Job) *Scheduler {
	host, _ := os.Hostname()
	return &Scheduler{
		jobs:   jobs,
		locker: locker,
		owner:  fmt.Sprintf("%s-%s", host, uuid.New().String()),
		logger: util.GetLogger(),
	}
}

// Start launches one loop per job with a positive interval. Each job runs
// once immediately, then on every tick until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	for _, job := range s.jobs {
		if job.Interval <= 0 {
			s.logger.Info("Scheduled job disabled", zap.String("job", job.Name))
			continue
		}
		s.wg.Add(1)
		go s.loop(ctx, job)
	}
}

// Wait blocks until every loop has returned
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	s.logger.Info("Starting scheduled job",
		zap.String("job", job.Name),
		zap.Duration("interval", job.Interval))

	s.RunOnce(ctx, job)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping scheduled job", zap.String("job", job.Name))
			return
		case <-ticker.C:
			s.RunOnce(ctx, job)
		}
	}
}

// RunOnce runs job if this replica wins the job's lock and reports the outcome
func (s *Scheduler) RunOnce(ctx context.Context, job Job) string {
	result := s.runOnce(ctx, job)
	util.SchedulerRunsTotal.WithLabelValues(job.Name, result).Inc()
	return result
}

func (s *Scheduler) runOnce(ctx context.Context, job Job) string {
	lockKey := "job:" + job.Name

	if s.locker != nil {
		ok, err := s.locker.AcquireLock(ctx, lockKey, s.owner, job.Interval)
		if err != nil {
			s.logger.Error("Failed to acquire job lock", zap.String("job", job.Name), zap.Error(err))
			return "error"
		}
		if !ok {
			s.logger.Debug("Job already running elsewhere", zap.String("job", job.Name))
			return "skipped"
		}
		defer func() {
			// the lock may have expired already
			if _, err := s.locker.ReleaseLock(context.Background(), lockKey, s.owner); err != nil {
				s.logger.Warn("Failed to release job lock", zap.String("job", job.Name), zap.Error(err))
			}
		}()
	}

	if err := job.Run(ctx); err != nil {
		s.logger.Error("Scheduled job failed", zap.String("job", job.Name), zap.Error(err))
		return "error"
	}
	return "success"
}
