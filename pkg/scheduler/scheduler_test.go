package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/cloudbox/pkg/scheduler"
)

// yearly 测试期间不会自然触发.
const yearly = "0 0 1 1 *"

func newScheduler(t *testing.T) *scheduler.Scheduler {
	t.Helper()

	s, err := scheduler.NewScheduler(scheduler.WithLocation(time.UTC))
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Stop() })

	return s
}

func TestRunNowRecordsStatus(t *testing.T) {
	s := newScheduler(t)
	ctx := context.Background()

	var calls atomic.Int32

	require.NoError(t, s.AddCron(ctx, "ok", yearly, func(context.Context) error {
		calls.Add(1)
		return nil
	}))
	require.NoError(t, s.AddCron(ctx, "bad", yearly, func(context.Context) error {
		return errors.New("boom")
	}))

	s.Start()

	require.NoError(t, s.RunNow("ok"))
	require.NoError(t, s.RunNow("bad"))

	require.Eventually(t, func() bool {
		info, err := s.GetJobInfoByName("ok")
		return err == nil && info.Runs == 1 && info.Status == scheduler.StatusScheduled
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		info, err := s.GetJobInfoByName("bad")
		return err == nil && info.Status == scheduler.StatusError
	}, 2*time.Second, 10*time.Millisecond)

	bad, err := s.GetJobInfoByName("bad")
	require.NoError(t, err)
	assert.Equal(t, "boom", bad.Error)
	assert.True(t, bad.LastSuccess.IsZero())
	assert.Equal(t, int32(1), calls.Load())
}

func TestPanicIsRecorded(t *testing.T) {
	s := newScheduler(t)

	require.NoError(t, s.AddCron(context.Background(), "panics", yearly, func(context.Context) error {
		panic("kaboom")
	}))

	s.Start()
	require.NoError(t, s.RunNow("panics"))

	require.Eventually(t, func() bool {
		info, err := s.GetJobInfoByName("panics")
		return err == nil && info.Status == scheduler.StatusError
	}, 2*time.Second, 10*time.Millisecond)
}

func TestJobRegistry(t *testing.T) {
	s := newScheduler(t)
	ctx := context.Background()
	noop := func(context.Context) error { return nil }

	require.NoError(t, s.AddCron(ctx, "b", yearly, noop))
	require.NoError(t, s.AddInterval(ctx, "a", time.Hour, noop))
	assert.Error(t, s.AddCron(ctx, "a", yearly, noop))
	assert.Error(t, s.AddInterval(ctx, "c", 0, noop))

	infos := s.GetJobInfos()
	require.Len(t, infos, 2)
	assert.Equal(t, "a", infos[0].Name)
	assert.Equal(t, "@every 1h0m0s", infos[0].Schedule)
	assert.Equal(t, yearly, infos[1].Schedule)

	assert.ErrorIs(t, s.RunNow("missing"), scheduler.ErrJobNotFound)

	require.NoError(t, s.RemoveJobByName("b"))
	_, err := s.GetJobInfoByName("b")
	assert.ErrorIs(t, err, scheduler.ErrJobNotFound)
}
