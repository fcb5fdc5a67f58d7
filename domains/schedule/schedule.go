package schedule

import (
	"context"
	"time"
)

// Status is the lifecycle state of a Schedule.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Generation style defaults applied when a save request leaves them blank.
const (
	DefaultContentType = "how-to"
	DefaultWordCount   = 1200
	DefaultTone        = "professional"
	DefaultAudience    = "general readers"
)

// Schedule is a persistent rule describing when and how to generate and
// publish one piece of content, repeatedly.
type Schedule struct {
	ID        string `json:"id"`
	Frequency string `json:"frequency"`
	DayOfWeek string `json:"day_of_week,omitempty"`
	Time      string `json:"time"`

	Topic       string `json:"topic"`
	ContentType string `json:"content_type"`
	WordCount   int    `json:"word_count"`
	Tone        string `json:"tone"`
	Audience    string `json:"audience"`
	AutoPublish bool   `json:"auto_publish"`

	Status  Status     `json:"status"`
	LastRun *time.Time `json:"last_run,omitempty"`
	NextRun *time.Time `json:"next_run,omitempty"`
	Result  string     `json:"result,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ScheduleSummary decorates a Schedule with humanized run times for tables.
type ScheduleSummary struct {
	Schedule
	LastRunHuman string `json:"last_run_human,omitempty"`
	NextRunHuman string `json:"next_run_human,omitempty"`
}

type SaveScheduleRequest struct {
	ID          string `json:"id,omitempty"`
	Frequency   string `json:"frequency"`
	DayOfWeek   string `json:"day_of_week,omitempty"`
	Time        string `json:"time"`
	Topic       string `json:"topic"`
	ContentType string `json:"content_type,omitempty"`
	WordCount   int    `json:"word_count,omitempty"`
	Tone        string `json:"tone,omitempty"`
	Audience    string `json:"audience,omitempty"`
	AutoPublish bool   `json:"auto_publish"`
}

// IScheduleUsecase is the surface exposed to the dashboard.
type IScheduleUsecase interface {
	SaveSchedule(ctx context.Context, request SaveScheduleRequest) (Schedule, error)
	ListSchedules(ctx context.Context) ([]ScheduleSummary, error)
	DeleteSchedule(ctx context.Context, id string) error
	ClearSchedules(ctx context.Context) error
	RunScheduleNow(ctx context.Context, id string) error

	// ClaimDue transitions every due schedule to in-progress, stamps its
	// lastRun and persists the transition before returning. The poller
	// dispatches the claimed schedules to the executor.
	ClaimDue(ctx context.Context, now time.Time) ([]Schedule, error)

	// ExecuteRun performs one generate-then-publish attempt end to end.
	ExecuteRun(ctx context.Context, sched Schedule)

	// ReleaseRun returns a claimed schedule to the scheduled state when its
	// dispatch was rejected, so a full worker queue never wedges a schedule
	// in-progress.
	ReleaseRun(ctx context.Context, sched Schedule)
}

// IScheduleRepository owns Schedule persistence.
type IScheduleRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, sched Schedule) error
	Update(ctx context.Context, sched Schedule) error
	GetByID(ctx context.Context, id string) (Schedule, error)
	List(ctx context.Context) ([]Schedule, error)
	ListDue(ctx context.Context, now time.Time) ([]Schedule, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}
