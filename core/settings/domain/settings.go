package domain

import "context"

// Setting represents a dynamic configuration value stored in the database.
type Setting struct {
	Key   string
	Value string
}

// ISettingsRepository defines the contract for persisting dynamic settings.
type ISettingsRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error

	// InitSchema creates the necessary tables.
	InitSchema(ctx context.Context) error
}

// Keys for the bootstrap cache of the most-recently-saved schedule
// configuration. The cache seeds the dashboard form on a cold start; it is
// never the source of truth for multi-schedule state.
const (
	KeyLastScheduleFrequency   = "last_schedule_frequency"
	KeyLastScheduleDayOfWeek   = "last_schedule_day_of_week"
	KeyLastScheduleTime        = "last_schedule_time"
	KeyLastScheduleTopic       = "last_schedule_topic"
	KeyLastScheduleContentType = "last_schedule_content_type"
	KeyLastScheduleWordCount   = "last_schedule_word_count"
	KeyLastScheduleTone        = "last_schedule_tone"
	KeyLastScheduleAudience    = "last_schedule_audience"
	KeyLastScheduleAutoPublish = "last_schedule_auto_publish"

	KeyAIGlobalSystemPrompt = "ai_global_system_prompt"
)
