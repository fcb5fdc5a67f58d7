package repository

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	domainSchedule "github.com/pressgen/pressgen/domains/schedule"
	pkgError "github.com/pressgen/pressgen/pkg/error"
	"gorm.io/gorm"
)

// ScheduleModel is the flat persisted form of a Schedule.
type ScheduleModel struct {
	ID        string `gorm:"primaryKey;column:id"`
	Frequency string `gorm:"column:frequency"`
	DayOfWeek string `gorm:"column:day_of_week"`
	Time      string `gorm:"column:time"`

	Topic       string `gorm:"column:topic"`
	ContentType string `gorm:"column:content_type"`
	WordCount   int    `gorm:"column:word_count"`
	Tone        string `gorm:"column:tone"`
	Audience    string `gorm:"column:audience"`
	AutoPublish bool   `gorm:"column:auto_publish"`

	Status  string     `gorm:"column:status;index"`
	LastRun *time.Time `gorm:"column:last_run"`
	NextRun *time.Time `gorm:"column:next_run;index"`
	Result  string     `gorm:"column:result"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (ScheduleModel) TableName() string {
	return "schedules"
}

type GormScheduleRepository struct {
	db *gorm.DB
}

func NewGormScheduleRepository(db *gorm.DB) *GormScheduleRepository {
	return &GormScheduleRepository{db: db}
}

func (r *GormScheduleRepository) Init(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&ScheduleModel{}); err != nil {
		return err
	}

	// A run cannot survive a process restart. Rows left in-progress by a
	// crash go back to scheduled so the next poll picks them up again.
	res := r.db.WithContext(ctx).Model(&ScheduleModel{}).
		Where("status = ?", string(domainSchedule.StatusInProgress)).
		Updates(map[string]interface{}{
			"status":     string(domainSchedule.StatusScheduled),
			"result":     "Run interrupted by restart",
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		logrus.Warnf("[SCHEDULER] Recovered %d interrupted run(s) on startup", res.RowsAffected)
	}
	return nil
}

func (r *GormScheduleRepository) Create(ctx context.Context, sched domainSchedule.Schedule) error {
	return r.db.WithContext(ctx).Create(toModel(sched)).Error
}

func (r *GormScheduleRepository) Update(ctx context.Context, sched domainSchedule.Schedule) error {
	res := r.db.WithContext(ctx).Model(&ScheduleModel{}).
		Where("id = ?", sched.ID).
		Select("*").Omit("id", "created_at").
		Updates(toModel(sched))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgError.NotFoundError("schedule " + sched.ID + " not found")
	}
	return nil
}

func (r *GormScheduleRepository) GetByID(ctx context.Context, id string) (domainSchedule.Schedule, error) {
	var m ScheduleModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domainSchedule.Schedule{}, pkgError.NotFoundError("schedule " + id + " not found")
		}
		return domainSchedule.Schedule{}, err
	}
	return fromModel(m), nil
}

func (r *GormScheduleRepository) List(ctx context.Context) ([]domainSchedule.Schedule, error) {
	var models []ScheduleModel
	if err := r.db.WithContext(ctx).Order("created_at asc").Find(&models).Error; err != nil {
		return nil, err
	}
	schedules := make([]domainSchedule.Schedule, 0, len(models))
	for _, m := range models {
		schedules = append(schedules, fromModel(m))
	}
	return schedules, nil
}

// ListDue returns schedules in the scheduled state whose nextRun is at or
// before now, in creation order.
func (r *GormScheduleRepository) ListDue(ctx context.Context, now time.Time) ([]domainSchedule.Schedule, error) {
	var models []ScheduleModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_run IS NOT NULL AND next_run <= ?", string(domainSchedule.StatusScheduled), now.UTC()).
		Order("created_at asc").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	schedules := make([]domainSchedule.Schedule, 0, len(models))
	for _, m := range models {
		schedules = append(schedules, fromModel(m))
	}
	return schedules, nil
}

func (r *GormScheduleRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&ScheduleModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgError.NotFoundError("schedule " + id + " not found")
	}
	return nil
}

func (r *GormScheduleRepository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&ScheduleModel{}).Error
}

func toModel(s domainSchedule.Schedule) *ScheduleModel {
	return &ScheduleModel{
		ID:          s.ID,
		Frequency:   s.Frequency,
		DayOfWeek:   s.DayOfWeek,
		Time:        s.Time,
		Topic:       s.Topic,
		ContentType: s.ContentType,
		WordCount:   s.WordCount,
		Tone:        s.Tone,
		Audience:    s.Audience,
		AutoPublish: s.AutoPublish,
		Status:      string(s.Status),
		LastRun:     s.LastRun,
		NextRun:     s.NextRun,
		Result:      s.Result,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func fromModel(m ScheduleModel) domainSchedule.Schedule {
	return domainSchedule.Schedule{
		ID:          m.ID,
		Frequency:   m.Frequency,
		DayOfWeek:   m.DayOfWeek,
		Time:        m.Time,
		Topic:       m.Topic,
		ContentType: m.ContentType,
		WordCount:   m.WordCount,
		Tone:        m.Tone,
		Audience:    m.Audience,
		AutoPublish: m.AutoPublish,
		Status:      domainSchedule.Status(m.Status),
		LastRun:     m.LastRun,
		NextRun:     m.NextRun,
		Result:      m.Result,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
