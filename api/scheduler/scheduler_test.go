package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kushalk47/aarogya-api/pipeline"
)

type retrierFunc func(ctx context.Context) (pipeline.RetryStats, error)

func (f retrierFunc) RetryPending(ctx context.Context) (pipeline.RetryStats, error) {
	return f(ctx)
}

func TestRetryExtractionsPassesDeadline(t *testing.T) {
	var hadDeadline bool
	s := NewScheduler(retrierFunc(func(ctx context.Context) (pipeline.RetryStats, error) {
		_, hadDeadline = ctx.Deadline()
		return pipeline.RetryStats{Processed: 2, Merged: 1, Failed: 1}, nil
	}), "", 0)

	s.RetryExtractions()

	assert.True(t, hadDeadline)
	assert.Equal(t, 5*time.Minute, s.timeout)
	assert.Equal(t, "@every 10m", s.schedule)
}

func TestRetryExtractionsSkipsOverlappingRun(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	started := make(chan struct{})
	s := NewScheduler(retrierFunc(func(ctx context.Context) (pipeline.RetryStats, error) {
		atomic.AddInt32(&calls, 1)
		close(started)
		<-release
		return pipeline.RetryStats{}, nil
	}), "@every 1h", time.Second)

	done := make(chan struct{})
	go func() {
		s.RetryExtractions()
		close(done)
	}()
	<-started
	s.RetryExtractions()
	close(release)
	<-done

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRetryExtractionsSurvivesErrors(t *testing.T) {
	s := NewScheduler(retrierFunc(func(ctx context.Context) (pipeline.RetryStats, error) {
		return pipeline.RetryStats{}, errors.New("mongo down")
	}), "@every 1h", time.Second)

	assert.NotPanics(t, s.RetryExtractions)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s := NewScheduler(retrierFunc(func(ctx context.Context) (pipeline.RetryStats, error) {
		return pipeline.RetryStats{}, nil
	}), "every now and then", time.Second)

	assert.Error(t, s.Start())
}

func TestStartAndStop(t *testing.T) {
	s := NewScheduler(retrierFunc(func(ctx context.Context) (pipeline.RetryStats, error) {
		return pipeline.RetryStats{}, nil
	}), "@every 1h", time.Second)

	require.NoError(t, s.Start())
	s.Stop()
}
