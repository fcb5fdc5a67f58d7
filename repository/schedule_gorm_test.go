package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	domainSchedule "github.com/pressgen/pressgen/domains/schedule"
	pkgError "github.com/pressgen/pressgen/pkg/error"
)

func newTestRepo(t *testing.T) *GormScheduleRepository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	repo := NewGormScheduleRepository(db)
	require.NoError(t, repo.Init(context.Background()))
	return repo
}

func sampleSchedule(id string, nextRun time.Time) domainSchedule.Schedule {
	now := time.Date(2024, time.January, 1, 10, 0, 0, 0, time.UTC)
	return domainSchedule.Schedule{
		ID:          id,
		Frequency:   "daily",
		Time:        "09:00",
		Topic:       "coffee",
		ContentType: "how-to",
		WordCount:   1200,
		Tone:        "professional",
		Audience:    "general readers",
		Status:      domainSchedule.StatusScheduled,
		NextRun:     &nextRun,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestRepository_CreateGetRoundtrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	next := time.Date(2024, time.January, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, sampleSchedule("s1", next)))

	got, err := repo.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "daily", got.Frequency)
	assert.Equal(t, domainSchedule.StatusScheduled, got.Status)
	require.NotNil(t, got.NextRun)
	assert.Equal(t, next.Unix(), got.NextRun.Unix())
}

func TestRepository_GetMissingIsNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetByID(context.Background(), "nope")
	require.Error(t, err)
	_, ok := err.(pkgError.NotFoundError)
	assert.True(t, ok)
}

func TestRepository_UpdateWritesZeroValues(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	next := time.Date(2024, time.January, 2, 9, 0, 0, 0, time.UTC)
	sched := sampleSchedule("s1", next)
	sched.Result = "Created post #1"
	require.NoError(t, repo.Create(ctx, sched))

	sched.Result = ""
	sched.AutoPublish = false
	sched.Status = domainSchedule.StatusInProgress
	require.NoError(t, repo.Update(ctx, sched))

	got, err := repo.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domainSchedule.StatusInProgress, got.Status)
	assert.Empty(t, got.Result, "clearing the result must persist")

	missing := sampleSchedule("ghost", next)
	err = repo.Update(ctx, missing)
	require.Error(t, err)
}

func TestRepository_ListDueFiltersStatusAndTime(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	now := time.Date(2024, time.January, 5, 12, 0, 0, 0, time.UTC)

	due := sampleSchedule("due", now.Add(-time.Minute))
	require.NoError(t, repo.Create(ctx, due))

	future := sampleSchedule("future", now.Add(time.Hour))
	require.NoError(t, repo.Create(ctx, future))

	running := sampleSchedule("running", now.Add(-time.Minute))
	running.Status = domainSchedule.StatusInProgress
	require.NoError(t, repo.Create(ctx, running))

	noNext := sampleSchedule("no-next", now)
	noNext.NextRun = nil
	require.NoError(t, repo.Create(ctx, noNext))

	got, err := repo.ListDue(ctx, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "due", got[0].ID)
}

func TestRepository_InitRecoversInterruptedRuns(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	next := time.Date(2024, time.January, 2, 9, 0, 0, 0, time.UTC)

	orphan := sampleSchedule("orphan", next)
	orphan.Status = domainSchedule.StatusInProgress
	orphan.Result = "Generating content..."
	require.NoError(t, repo.Create(ctx, orphan))

	idle := sampleSchedule("idle", next)
	idle.Result = "Created post #1"
	require.NoError(t, repo.Create(ctx, idle))

	// Second Init simulates a restart over the same database.
	require.NoError(t, repo.Init(ctx))

	got, err := repo.GetByID(ctx, "orphan")
	require.NoError(t, err)
	assert.Equal(t, domainSchedule.StatusScheduled, got.Status)
	assert.Equal(t, "Run interrupted by restart", got.Result)
	require.NotNil(t, got.NextRun)
	assert.Equal(t, next.Unix(), got.NextRun.Unix(), "nextRun survives recovery so the poller reclaims it")

	untouched, err := repo.GetByID(ctx, "idle")
	require.NoError(t, err)
	assert.Equal(t, domainSchedule.StatusScheduled, untouched.Status)
	assert.Equal(t, "Created post #1", untouched.Result)
}

func TestRepository_DeleteAndDeleteAll(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	next := time.Date(2024, time.January, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, sampleSchedule("s1", next)))
	require.NoError(t, repo.Create(ctx, sampleSchedule("s2", next)))

	require.NoError(t, repo.Delete(ctx, "s1"))
	err := repo.Delete(ctx, "s1")
	require.Error(t, err)

	require.NoError(t, repo.DeleteAll(ctx))
	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
