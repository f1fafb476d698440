package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salesengine/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockInvoices struct {
	mock.Mock
}

func (m *mockInvoices) MarkOverdue(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

type mockUsage struct {
	mock.Mock
}

func (m *mockUsage) RolloverExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	args := m.Called(ctx, now, limit)
	return args.Int(0), args.Error(1)
}

type fakeLocker struct {
	held     map[string]string
	released []string
	err      error
}

func (l *fakeLocker) TryLock(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	if l.err != nil {
		return "", false, l.err
	}
	if _, ok := l.held[key]; ok {
		return "", false, nil
	}
	l.held[key] = "token-" + key
	return l.held[key], true, nil
}

func (l *fakeLocker) Release(_ context.Context, key, token string) error {
	if l.held[key] == token {
		delete(l.held, key)
		l.released = append(l.released, key)
	}
	return nil
}

func newTestScheduler(t *testing.T, clk clock.Clock, cfg Config) (*Scheduler, *mockInvoices, *mockUsage) {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	invoices := &mockInvoices{}
	usage := &mockUsage{}
	s := &Scheduler{
		log:      zap.NewNop(),
		cfg:      cfg.withDefaults(),
		genID:    node,
		clock:    clk,
		invoices: invoices,
		usage:    usage,
	}
	return s, invoices, usage
}

func TestRunOnce_RunsBothJobsAtClockTime(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	clk := clock.NewFakeClock(now)
	s, invoices, usage := newTestScheduler(t, clk, Config{BatchSize: 10})

	invoices.On("MarkOverdue", mock.Anything, now).Return(3, nil).Once()
	usage.On("RolloverExpired", mock.Anything, now, 10).Return(4, nil).Once()

	require.NoError(t, s.RunOnce(context.Background()))
	invoices.AssertExpectations(t)
	usage.AssertExpectations(t)
}

func TestRunOnce_FakeClockAdvancesBetweenRuns(t *testing.T) {
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	clk := clock.NewFakeClock(start)
	s, invoices, usage := newTestScheduler(t, clk, Config{EnabledJobs: []string{JobInvoiceOverdue}})

	for day := 0; day < 3; day++ {
		invoices.On("MarkOverdue", mock.Anything, start.AddDate(0, 0, day)).Return(0, nil).Once()
	}
	for day := 0; day < 3; day++ {
		require.NoError(t, s.RunOnce(context.Background()))
		clk.Advance(24 * time.Hour)
	}

	invoices.AssertExpectations(t)
	usage.AssertNotCalled(t, "RolloverExpired", mock.Anything, mock.Anything, mock.Anything)
}

func TestUsageRolloverJob_DrainsFullBatches(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	s, _, usage := newTestScheduler(t, clock.NewFakeClock(now), Config{BatchSize: 2, EnabledJobs: []string{JobUsageRollover}})

	usage.On("RolloverExpired", mock.Anything, now, 2).Return(2, nil).Twice()
	usage.On("RolloverExpired", mock.Anything, now, 2).Return(1, nil).Once()

	require.NoError(t, s.RunOnce(context.Background()))
	usage.AssertNumberOfCalls(t, "RolloverExpired", 3)
}

func TestRunOnce_JoinsJobErrors(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	s, invoices, usage := newTestScheduler(t, clock.NewFakeClock(now), Config{})

	boom := errors.New("boom")
	invoices.On("MarkOverdue", mock.Anything, now).Return(1, boom).Once()
	usage.On("RolloverExpired", mock.Anything, now, 100).Return(0, nil).Once()

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), JobInvoiceOverdue)
	usage.AssertExpectations(t)
}

func TestRunJob_TimeoutIsSoft(t *testing.T) {
	s, _, _ := newTestScheduler(t, clock.NewFakeClock(time.Time{}), Config{})

	err := s.runJob(context.Background(), "timeout_job", 0, 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.NoError(t, err)
}

func TestRunJob_TracksProcessedCount(t *testing.T) {
	s, _, _ := newTestScheduler(t, clock.NewFakeClock(time.Time{}), Config{})

	var seen *jobRun
	err := s.runJob(context.Background(), "count_job", 5, time.Second, func(ctx context.Context) error {
		seen = jobRunFromContext(ctx)
		seen.AddProcessed(2)
		seen.AddProcessed(0)
		return nil
	})
	require.NoError(t, err)
	require.NotNil(t, seen)
	assert.Equal(t, "count_job", seen.job)
	assert.Equal(t, 2, seen.processedCount)
	assert.NotEmpty(t, seen.runID)
}

func TestRunJob_SkipsWhenLockHeldElsewhere(t *testing.T) {
	s, invoices, _ := newTestScheduler(t, clock.NewFakeClock(time.Time{}), Config{})
	locker := &fakeLocker{held: map[string]string{jobLockKey(JobInvoiceOverdue): "other"}}
	s.locker = locker

	err := s.runJob(context.Background(), JobInvoiceOverdue, 1, time.Second, s.InvoiceOverdueJob)
	require.NoError(t, err)
	invoices.AssertNotCalled(t, "MarkOverdue", mock.Anything, mock.Anything)
}

func TestRunJob_ReleasesLockAfterRun(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	s, invoices, _ := newTestScheduler(t, clock.NewFakeClock(now), Config{})
	locker := &fakeLocker{held: map[string]string{}}
	s.locker = locker

	invoices.On("MarkOverdue", mock.Anything, now).Return(0, nil).Once()

	require.NoError(t, s.runJob(context.Background(), JobInvoiceOverdue, 1, time.Second, s.InvoiceOverdueJob))
	assert.Empty(t, locker.held)
	assert.Equal(t, []string{jobLockKey(JobInvoiceOverdue)}, locker.released)
}

func TestRunJob_LockErrorFails(t *testing.T) {
	s, _, _ := newTestScheduler(t, clock.NewFakeClock(time.Time{}), Config{})
	s.locker = &fakeLocker{err: errors.New("redis down")}

	err := s.runJob(context.Background(), JobUsageRollover, 1, time.Second, s.UsageRolloverJob)
	assert.ErrorContains(t, err, "redis down")
}

func TestIsJobEnabled(t *testing.T) {
	s := &Scheduler{cfg: Config{}}
	assert.True(t, s.isJobEnabled(JobUsageRollover))

	s.cfg.EnabledJobs = []string{" INVOICE_OVERDUE "}
	assert.True(t, s.isJobEnabled(JobInvoiceOverdue))
	assert.False(t, s.isJobEnabled(JobUsageRollover))
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, time.Minute, cfg.RunInterval)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 30*time.Second, cfg.JobTimeout)
}
