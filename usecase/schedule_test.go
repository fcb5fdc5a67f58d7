package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/pressgen/pressgen/domains/content"
	domainSchedule "github.com/pressgen/pressgen/domains/schedule"
	"github.com/pressgen/pressgen/pkg/runworker"
	"github.com/pressgen/pressgen/repository"
)

var testNow = time.Date(2024, time.January, 1, 10, 0, 0, 0, time.UTC) // a Monday

type fakeGenerator struct {
	mu       sync.Mutex
	article  content.Article
	err      error
	requests []content.GenerateRequest
}

func (f *fakeGenerator) Generate(ctx context.Context, request content.GenerateRequest) (content.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, request)
	if f.err != nil {
		return content.Article{}, f.err
	}
	return f.article, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	ref      content.PostRef
	err      error
	requests []content.PostRequest
}

func (f *fakePublisher) CreatePost(ctx context.Context, request content.PostRequest) (content.PostRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, request)
	if f.err != nil {
		return f.ref, f.err
	}
	return f.ref, nil
}

func (f *fakePublisher) Ping(ctx context.Context) error { return nil }

type testHarness struct {
	service   *serviceSchedule
	repo      domainSchedule.IScheduleRepository
	generator *fakeGenerator
	publisher *fakePublisher
	afterCh   chan time.Time
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	repo := repository.NewGormScheduleRepository(db)
	require.NoError(t, repo.Init(context.Background()))

	h := &testHarness{
		repo: repo,
		generator: &fakeGenerator{article: content.Article{
			Title:               "Auto Post: coffee roasting",
			Content:             "<p>Everything about coffee roasting.</p><h2>Basics</h2><p>More.</p>",
			SuggestedCategories: []content.Category{{Name: "Coffee"}},
		}},
		publisher: &fakePublisher{ref: content.PostRef{ID: 42, Link: "https://blog.example/p/42"}},
		afterCh:   make(chan time.Time),
	}
	h.service = &serviceSchedule{
		repo:            repo,
		generator:       h.generator,
		publisher:       h.publisher,
		runTimeout:      time.Minute,
		successCooldown: 3 * time.Second,
		failureCooldown: 10 * time.Second,
		now:             func() time.Time { return testNow },
		after:           func(d time.Duration) <-chan time.Time { return h.afterCh },
	}
	return h
}

func (h *testHarness) mustGet(t *testing.T, id string) domainSchedule.Schedule {
	t.Helper()
	sched, err := h.repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return sched
}

func (h *testHarness) waitForStatus(t *testing.T, id string, want domainSchedule.Status) domainSchedule.Schedule {
	t.Helper()
	var sched domainSchedule.Schedule
	require.Eventually(t, func() bool {
		var err error
		sched, err = h.repo.GetByID(context.Background(), id)
		return err == nil && sched.Status == want
	}, 2*time.Second, 5*time.Millisecond, "schedule %s never reached status %s", id, want)
	return sched
}

func TestSaveSchedule_AppliesDefaultsAndComputesNextRun(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	saved, err := h.service.SaveSchedule(ctx, domainSchedule.SaveScheduleRequest{
		Frequency: "Weekly",
		DayOfWeek: "Monday",
		Time:      "09:00",
		Topic:     "coffee roasting",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "weekly", saved.Frequency)
	assert.Equal(t, domainSchedule.StatusScheduled, saved.Status)
	assert.Equal(t, domainSchedule.DefaultContentType, saved.ContentType)
	assert.Equal(t, domainSchedule.DefaultWordCount, saved.WordCount)
	assert.Equal(t, domainSchedule.DefaultTone, saved.Tone)
	assert.Equal(t, domainSchedule.DefaultAudience, saved.Audience)

	// Saved on Monday 10:00, so 09:00 today is already past: next Monday.
	require.NotNil(t, saved.NextRun)
	assert.Equal(t, time.Date(2024, time.January, 8, 9, 0, 0, 0, time.UTC), *saved.NextRun)

	stored := h.mustGet(t, saved.ID)
	assert.Equal(t, saved.NextRun.Unix(), stored.NextRun.Unix())
}

func TestSaveSchedule_RejectsInvalidRequests(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.service.SaveSchedule(ctx, domainSchedule.SaveScheduleRequest{
		Frequency: "weekly",
		Time:      "09:00",
		Topic:     "coffee",
	})
	assert.Error(t, err, "weekly without day_of_week")

	_, err = h.service.SaveSchedule(ctx, domainSchedule.SaveScheduleRequest{
		Frequency: "daily",
		Time:      "25:00",
		Topic:     "coffee",
	})
	assert.Error(t, err, "invalid wall clock time")
}

func TestSaveSchedule_UpdatePreservesCreatedAtAndLastRun(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	saved, err := h.service.SaveSchedule(ctx, domainSchedule.SaveScheduleRequest{
		Frequency: "daily",
		Time:      "09:00",
		Topic:     "coffee",
	})
	require.NoError(t, err)

	lastRun := testNow.Add(-24 * time.Hour)
	stored := h.mustGet(t, saved.ID)
	stored.LastRun = &lastRun
	require.NoError(t, h.repo.Update(ctx, stored))

	updated, err := h.service.SaveSchedule(ctx, domainSchedule.SaveScheduleRequest{
		ID:        saved.ID,
		Frequency: "daily",
		Time:      "11:30",
		Topic:     "espresso",
	})
	require.NoError(t, err)

	assert.Equal(t, saved.CreatedAt.Unix(), updated.CreatedAt.Unix())
	require.NotNil(t, updated.LastRun)
	assert.Equal(t, lastRun.Unix(), updated.LastRun.Unix())
	assert.Equal(t, "espresso", updated.Topic)
	assert.Equal(t, time.Date(2024, time.January, 1, 11, 30, 0, 0, time.UTC), *updated.NextRun)
}

func TestClaimDue_PersistsInProgressBeforeDispatch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	past := testNow.Add(-time.Minute)
	for _, id := range []string{"due-1", "due-2"} {
		require.NoError(t, h.repo.Create(ctx, domainSchedule.Schedule{
			ID:        id,
			Frequency: "daily",
			Time:      "09:00",
			Topic:     "coffee",
			Status:    domainSchedule.StatusScheduled,
			NextRun:   &past,
			CreatedAt: testNow,
			UpdatedAt: testNow,
		}))
	}
	require.NoError(t, h.repo.Create(ctx, domainSchedule.Schedule{
		ID:        "not-due",
		Frequency: "daily",
		Time:      "09:00",
		Topic:     "coffee",
		Status:    domainSchedule.StatusScheduled,
		NextRun:   ptrTime(testNow.Add(time.Hour)),
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}))

	claimed, err := h.service.ClaimDue(ctx, testNow)
	require.NoError(t, err)
	require.Len(t, claimed, 2)

	// No executor has touched them yet: the claim itself must already be
	// durable, with the intermediate result visible.
	for _, id := range []string{"due-1", "due-2"} {
		stored := h.mustGet(t, id)
		assert.Equal(t, domainSchedule.StatusInProgress, stored.Status)
		assert.Equal(t, generatingResult, stored.Result)
		require.NotNil(t, stored.LastRun)
		assert.Equal(t, testNow.Unix(), stored.LastRun.Unix())
	}
	assert.Equal(t, domainSchedule.StatusScheduled, h.mustGet(t, "not-due").Status)
}

func TestExecuteRun_SuccessAdvancesNextRunAndReverts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	past := testNow.Add(-time.Minute)
	require.NoError(t, h.repo.Create(ctx, domainSchedule.Schedule{
		ID:          "s1",
		Frequency:   "daily",
		Time:        "09:00",
		Topic:       "coffee roasting",
		ContentType: "how-to",
		WordCount:   800,
		Tone:        "casual",
		Audience:    "beginners",
		AutoPublish: true,
		Status:      domainSchedule.StatusScheduled,
		NextRun:     &past,
		CreatedAt:   testNow,
		UpdatedAt:   testNow,
	}))

	claimed, err := h.service.ClaimDue(ctx, testNow)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	h.service.ExecuteRun(ctx, claimed[0])

	stored := h.mustGet(t, "s1")
	assert.Equal(t, domainSchedule.StatusCompleted, stored.Status)
	assert.Contains(t, stored.Result, "Created post #42")
	assert.Contains(t, stored.Result, "publish")
	assert.NotContains(t, stored.Result, "Warning")
	require.NotNil(t, stored.NextRun)
	assert.Equal(t, time.Date(2024, time.January, 2, 9, 0, 0, 0, time.UTC), *stored.NextRun)

	h.generator.mu.Lock()
	require.Len(t, h.generator.requests, 1)
	assert.Equal(t, "Auto Post: coffee roasting", h.generator.requests[0].Title)
	assert.Equal(t, 800, h.generator.requests[0].WordCount)
	h.generator.mu.Unlock()

	h.publisher.mu.Lock()
	require.Len(t, h.publisher.requests, 1)
	assert.Equal(t, content.PostStatusPublish, h.publisher.requests[0].Status)
	h.publisher.mu.Unlock()

	// Cooldown elapses, schedule returns to the pool with nextRun intact.
	h.afterCh <- time.Time{}
	reverted := h.waitForStatus(t, "s1", domainSchedule.StatusScheduled)
	assert.Equal(t, time.Date(2024, time.January, 2, 9, 0, 0, 0, time.UTC), *reverted.NextRun)
}

func TestExecuteRun_TermCollisionIsSoftSuccess(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.publisher.err = &content.PublishError{
		Code:          "term_exists",
		Message:       "A term with the name provided already exists.",
		TermCollision: true,
	}

	past := testNow.Add(-time.Minute)
	require.NoError(t, h.repo.Create(ctx, domainSchedule.Schedule{
		ID:        "s1",
		Frequency: "daily",
		Time:      "09:00",
		Topic:     "coffee",
		Status:    domainSchedule.StatusScheduled,
		NextRun:   &past,
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}))

	claimed, err := h.service.ClaimDue(ctx, testNow)
	require.NoError(t, err)
	h.service.ExecuteRun(ctx, claimed[0])

	stored := h.mustGet(t, "s1")
	assert.Equal(t, domainSchedule.StatusCompleted, stored.Status, "term collisions must not fail the run")
	assert.Contains(t, stored.Result, "Warning")
	require.NotNil(t, stored.NextRun)
	assert.True(t, stored.NextRun.After(testNow), "soft success still advances nextRun")
}

func TestExecuteRun_HardFailureKeepsNextRunForImmediateRetry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.publisher.err = &content.PublishError{Code: "rest_cannot_create", Message: "no permission"}

	past := testNow.Add(-time.Minute)
	require.NoError(t, h.repo.Create(ctx, domainSchedule.Schedule{
		ID:        "s1",
		Frequency: "daily",
		Time:      "09:00",
		Topic:     "coffee",
		Status:    domainSchedule.StatusScheduled,
		NextRun:   &past,
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}))

	claimed, err := h.service.ClaimDue(ctx, testNow)
	require.NoError(t, err)
	h.service.ExecuteRun(ctx, claimed[0])

	stored := h.mustGet(t, "s1")
	assert.Equal(t, domainSchedule.StatusFailed, stored.Status)
	assert.Contains(t, stored.Result, "Run failed")
	require.NotNil(t, stored.NextRun)
	assert.Equal(t, past.Unix(), stored.NextRun.Unix(), "failures must not recompute nextRun")

	h.afterCh <- time.Time{}
	reverted := h.waitForStatus(t, "s1", domainSchedule.StatusScheduled)
	assert.Equal(t, past.Unix(), reverted.NextRun.Unix(), "schedule stays due so the next poll retries it")
}

func TestExecuteRun_GenerationFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.generator.err = &content.GenerationError{Err: context.DeadlineExceeded}

	past := testNow.Add(-time.Minute)
	require.NoError(t, h.repo.Create(ctx, domainSchedule.Schedule{
		ID:        "s1",
		Frequency: "daily",
		Time:      "09:00",
		Topic:     "coffee",
		Status:    domainSchedule.StatusScheduled,
		NextRun:   &past,
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}))

	claimed, err := h.service.ClaimDue(ctx, testNow)
	require.NoError(t, err)
	h.service.ExecuteRun(ctx, claimed[0])

	stored := h.mustGet(t, "s1")
	assert.Equal(t, domainSchedule.StatusFailed, stored.Status)
	assert.Contains(t, stored.Result, "generation failed")

	h.publisher.mu.Lock()
	assert.Empty(t, h.publisher.requests, "nothing is published when generation fails")
	h.publisher.mu.Unlock()
}

func TestRunScheduleNow_RejectsAlreadyRunningSchedule(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.repo.Create(ctx, domainSchedule.Schedule{
		ID:        "s1",
		Frequency: "daily",
		Time:      "09:00",
		Topic:     "coffee",
		Status:    domainSchedule.StatusInProgress,
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}))

	err := h.service.RunScheduleNow(ctx, "s1")
	assert.Error(t, err)
}

func TestRunScheduleNow_ClaimsAndExecutes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	future := testNow.Add(48 * time.Hour)
	require.NoError(t, h.repo.Create(ctx, domainSchedule.Schedule{
		ID:        "s1",
		Frequency: "daily",
		Time:      "09:00",
		Topic:     "coffee",
		Status:    domainSchedule.StatusScheduled,
		NextRun:   &future,
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}))

	require.NoError(t, h.service.RunScheduleNow(ctx, "s1"))

	stored := h.waitForStatus(t, "s1", domainSchedule.StatusCompleted)
	assert.Contains(t, stored.Result, "Created post #42")
}

func TestRunScheduleNow_ReleasesClaimWhenQueueIsFull(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	pool := runworker.NewRunWorkerPool(1, 1)
	poolCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(poolCtx)
	defer pool.Stop()
	h.service.pool = pool

	// Occupy the only worker and fill its queue so the next dispatch drops.
	release := make(chan struct{})
	started := make(chan struct{})
	require.True(t, pool.TryDispatch(runworker.RunJob{ScheduleID: "blocker", Handler: func(context.Context) error {
		close(started)
		<-release
		return nil
	}}))
	<-started
	require.True(t, pool.TryDispatch(runworker.RunJob{ScheduleID: "filler", Handler: func(context.Context) error {
		return nil
	}}))
	defer close(release)

	past := testNow.Add(-time.Minute)
	require.NoError(t, h.repo.Create(ctx, domainSchedule.Schedule{
		ID:        "s1",
		Frequency: "daily",
		Time:      "09:00",
		Topic:     "coffee",
		Status:    domainSchedule.StatusScheduled,
		NextRun:   &past,
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}))

	err := h.service.RunScheduleNow(ctx, "s1")
	require.Error(t, err)

	// The rejected claim must not leave the schedule wedged in-progress.
	stored := h.mustGet(t, "s1")
	assert.Equal(t, domainSchedule.StatusScheduled, stored.Status)
	assert.Contains(t, stored.Result, "worker queue full")
	require.NotNil(t, stored.NextRun)
	assert.Equal(t, past.Unix(), stored.NextRun.Unix())

	// A later poll can still claim it.
	claimed, err := h.service.ClaimDue(ctx, testNow)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, "s1", claimed[0].ID)
}

func ptrTime(t time.Time) *time.Time { return &t }
