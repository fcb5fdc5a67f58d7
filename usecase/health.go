package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/pressgen/pressgen/config"
	"github.com/pressgen/pressgen/domains/content"
	"github.com/pressgen/pressgen/domains/health"
)

const healthCheckInterval = 5 * time.Minute

type healthService struct {
	db        *gorm.DB
	publisher content.Publisher

	mu      sync.RWMutex
	records map[health.EntityType]health.HealthRecord
}

func NewHealthService(db *gorm.DB, publisher content.Publisher) health.IHealthUsecase {
	return &healthService{
		db:        db,
		publisher: publisher,
		records:   make(map[health.EntityType]health.HealthRecord),
	}
}

func (s *healthService) record(entity health.EntityType, err error) health.HealthRecord {
	now := time.Now().UTC()
	rec := health.HealthRecord{
		EntityType:  entity,
		Status:      health.StatusOk,
		LastMessage: "ok",
		LastChecked: now,
	}
	if err != nil {
		rec.Status = health.StatusError
		rec.LastMessage = err.Error()
	}

	s.mu.Lock()
	if prev, ok := s.records[entity]; ok {
		rec.LastSuccess = prev.LastSuccess
	}
	if err == nil {
		rec.LastSuccess = &now
	}
	s.records[entity] = rec
	s.mu.Unlock()
	return rec
}

func (s *healthService) checkDatabase(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *healthService) checkGenerator(_ context.Context) error {
	switch strings.ToLower(config.AIProvider) {
	case "openai":
		if strings.TrimSpace(config.OpenAIAPIKey) == "" {
			return fmt.Errorf("OPENAI_API_KEY is not configured")
		}
	default:
		if strings.TrimSpace(config.GeminiAPIKey) == "" {
			return fmt.Errorf("GEMINI_API_KEY is not configured")
		}
	}
	return nil
}

func (s *healthService) checkPublisher(ctx context.Context) error {
	if s.publisher == nil {
		return fmt.Errorf("publisher not configured")
	}
	return s.publisher.Ping(ctx)
}

func (s *healthService) CheckAll(ctx context.Context) ([]health.HealthRecord, error) {
	records := []health.HealthRecord{
		s.record(health.EntityDatabase, s.checkDatabase(ctx)),
		s.record(health.EntityGenerator, s.checkGenerator(ctx)),
		s.record(health.EntityPublisher, s.checkPublisher(ctx)),
	}
	for _, rec := range records {
		if rec.Status != health.StatusOk {
			logrus.Warnf("[HEALTH] %s: %s", rec.EntityType, rec.LastMessage)
		}
	}
	return records, nil
}

func (s *healthService) GetStatus(ctx context.Context) ([]health.HealthRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.records) == 0 {
		return []health.HealthRecord{
			{EntityType: health.EntityDatabase, Status: health.StatusUnknown},
			{EntityType: health.EntityGenerator, Status: health.StatusUnknown},
			{EntityType: health.EntityPublisher, Status: health.StatusUnknown},
		}, nil
	}

	records := make([]health.HealthRecord, 0, len(s.records))
	for _, rec := range s.records {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].EntityType < records[j].EntityType
	})
	return records, nil
}

func (s *healthService) StartPeriodicChecks(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(healthCheckInterval)
		defer ticker.Stop()

		_, _ = s.CheckAll(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, _ = s.CheckAll(ctx)
			}
		}
	}()
}
