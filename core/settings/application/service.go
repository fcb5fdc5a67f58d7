package application

import (
	"context"
	"strconv"
	"strings"

	"github.com/pressgen/pressgen/core/settings/domain"
	"github.com/pressgen/pressgen/core/settings/infrastructure"
	schedDomain "github.com/pressgen/pressgen/domains/schedule"
	"gorm.io/gorm"
)

type SettingsService struct {
	repo domain.ISettingsRepository
}

func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{
		repo: infrastructure.NewGlobalSettingsGormRepository(db),
	}
}

func NewSettingsServiceWithRepository(repo domain.ISettingsRepository) *SettingsService {
	return &SettingsService{repo: repo}
}

func (s *SettingsService) Init(ctx context.Context) error {
	return s.repo.InitSchema(ctx)
}

// DynamicSettings is the bootstrap snapshot served to the dashboard.
type DynamicSettings struct {
	AIGlobalSystemPrompt string                           `json:"ai_global_system_prompt,omitempty"`
	LastSchedule         *schedDomain.SaveScheduleRequest `json:"last_schedule,omitempty"`
}

func (s *SettingsService) GetDynamicSettings(ctx context.Context) (*DynamicSettings, error) {
	ds := &DynamicSettings{}

	if val, _ := s.repo.Get(ctx, domain.KeyAIGlobalSystemPrompt); val != "" {
		ds.AIGlobalSystemPrompt = val
	}

	if freq, _ := s.repo.Get(ctx, domain.KeyLastScheduleFrequency); freq != "" {
		last := &schedDomain.SaveScheduleRequest{Frequency: freq}
		last.DayOfWeek, _ = s.repo.Get(ctx, domain.KeyLastScheduleDayOfWeek)
		last.Time, _ = s.repo.Get(ctx, domain.KeyLastScheduleTime)
		last.Topic, _ = s.repo.Get(ctx, domain.KeyLastScheduleTopic)
		last.ContentType, _ = s.repo.Get(ctx, domain.KeyLastScheduleContentType)
		last.Tone, _ = s.repo.Get(ctx, domain.KeyLastScheduleTone)
		last.Audience, _ = s.repo.Get(ctx, domain.KeyLastScheduleAudience)
		if wc, _ := s.repo.Get(ctx, domain.KeyLastScheduleWordCount); wc != "" {
			if n, err := strconv.Atoi(wc); err == nil && n > 0 {
				last.WordCount = n
			}
		}
		if ap, _ := s.repo.Get(ctx, domain.KeyLastScheduleAutoPublish); ap != "" {
			v := strings.ToLower(ap)
			last.AutoPublish = v == "1" || v == "true" || v == "yes" || v == "on"
		}
		ds.LastSchedule = last
	}

	return ds, nil
}

// CacheLastSchedule stores the raw parameters of the most-recently-saved
// schedule. Bootstrap only; the schedule repository is the source of truth.
func (s *SettingsService) CacheLastSchedule(ctx context.Context, req schedDomain.SaveScheduleRequest) error {
	pairs := map[string]string{
		domain.KeyLastScheduleFrequency:   req.Frequency,
		domain.KeyLastScheduleDayOfWeek:   req.DayOfWeek,
		domain.KeyLastScheduleTime:        req.Time,
		domain.KeyLastScheduleTopic:       req.Topic,
		domain.KeyLastScheduleContentType: req.ContentType,
		domain.KeyLastScheduleWordCount:   strconv.Itoa(req.WordCount),
		domain.KeyLastScheduleTone:        req.Tone,
		domain.KeyLastScheduleAudience:    req.Audience,
		domain.KeyLastScheduleAutoPublish: "0",
	}
	if req.AutoPublish {
		pairs[domain.KeyLastScheduleAutoPublish] = "1"
	}

	for key, value := range pairs {
		if err := s.repo.Set(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}

func (s *SettingsService) SetSystemPrompt(ctx context.Context, v string) error {
	return s.repo.Set(ctx, domain.KeyAIGlobalSystemPrompt, strings.TrimSpace(v))
}
