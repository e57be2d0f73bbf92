package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"order-sync/internal/redisclient"
	"order-sync/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func zapNop() *zap.Logger {
	return zap.NewNop()
}

func setupLocker(t *testing.T) *redisclient.Client {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	c := redisclient.NewClientFromRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Hour)
	t.Cleanup(func() {
		c.Close()
		mr.Close()
	})
	return c
}

func countingJob(n *int32, err error) Job {
	return Job{
		Name:     "test_job",
		Interval: time.Minute,
		Run: func(ctx context.Context) error {
			atomic.AddInt32(n, 1)
			return err
		},
	}
}

func TestRunOnceWithoutLocker(t *testing.T) {
	var runs int32
	s := NewScheduler(nil)

	assert.Equal(t, "success", s.RunOnce(context.Background(), countingJob(&runs, nil)))
	assert.Equal(t, "error", s.RunOnce(context.Background(), countingJob(&runs, errors.New("boom"))))
	assert.Equal(t, int32(2), runs)
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	locker := setupLocker(t)
	ctx := context.Background()

	ok, err := locker.AcquireLock(ctx, "job:test_job", "other-replica", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	var runs int32
	s := NewScheduler(locker)
	assert.Equal(t, "skipped", s.RunOnce(ctx, countingJob(&runs, nil)))
	assert.Equal(t, int32(0), runs)
}

func TestRunOnceReleasesLock(t *testing.T) {
	locker := setupLocker(t)
	ctx := context.Background()

	var runs int32
	s := NewScheduler(locker)
	assert.Equal(t, "success", s.RunOnce(ctx, countingJob(&runs, nil)))
	assert.Equal(t, "success", s.RunOnce(ctx, countingJob(&runs, nil)))
	assert.Equal(t, int32(2), runs)
}

func TestStartRunsImmediatelyAndStops(t *testing.T) {
	var runs int32
	s := NewScheduler(nil, countingJob(&runs, nil), Job{Name: "disabled", Interval: 0})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	require.Eventually(t, func() bool { return atomic.LoadInt32(&runs) >= 1 }, time.Second, 10*time.Millisecond)

	cancel()
	s.Wait()
}

type fakePromoter struct {
	today time.Time
	got   time.Time
}

func (f *fakePromoter) Today() time.Time { return f.today }

func (f *fakePromoter) PromoteDueToday(ctx context.Context, today time.Time) (*service.PromoteResult, error) {
	f.got = today
	return &service.PromoteResult{Date: today.Format("2006-01-02")}, nil
}

func TestPromoteJobUsesEngineToday(t *testing.T) {
	p := &fakePromoter{today: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)}
	job := PromoteJob(p, time.Hour)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, p.today, p.got)
	assert.Equal(t, "promote_urgent", job.Name)
}

type fakeResyncer struct {
	result *service.ResyncResult
}

func (f *fakeResyncer) ResyncAll(ctx context.Context) (*service.ResyncResult, error) {
	return f.result, nil
}

func TestResyncJobReportsPartialFailure(t *testing.T) {
	ok := ResyncJob(&fakeResyncer{result: &service.ResyncResult{SuccessCount: 3}}, time.Hour)
	assert.NoError(t, ok.Run(context.Background()))

	partial := ResyncJob(&fakeResyncer{result: &service.ResyncResult{SuccessCount: 2, ErrorCount: 1}}, time.Hour)
	assert.EqualError(t, partial.Run(context.Background()), "1 of 3 orders failed to resync")
}
