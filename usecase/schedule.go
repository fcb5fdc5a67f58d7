package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pressgen/pressgen/config"
	settingsApp "github.com/pressgen/pressgen/core/settings/application"
	"github.com/pressgen/pressgen/domains/content"
	domainSchedule "github.com/pressgen/pressgen/domains/schedule"
	pkgError "github.com/pressgen/pressgen/pkg/error"
	"github.com/pressgen/pressgen/pkg/runworker"
	"github.com/pressgen/pressgen/pkg/seo"
	"github.com/pressgen/pressgen/pkg/timeutils"
	"github.com/pressgen/pressgen/validations"
)

// TitlePrefix is prepended to the schedule topic to form the post title.
const TitlePrefix = "Auto Post: "

// generatingResult is the intermediate result persisted while a run is in
// flight, so the dashboard shows progress instead of a stale outcome.
const generatingResult = "Generating content..."

type serviceSchedule struct {
	repo      domainSchedule.IScheduleRepository
	generator content.Generator
	publisher content.Publisher
	settings  *settingsApp.SettingsService
	pool      *runworker.RunWorkerPool
	onChange  func(sched domainSchedule.Schedule)

	runTimeout      time.Duration
	successCooldown time.Duration
	failureCooldown time.Duration

	// Injectable clock, swapped out in tests.
	now   func() time.Time
	after func(d time.Duration) <-chan time.Time
}

func NewScheduleService(
	repo domainSchedule.IScheduleRepository,
	generator content.Generator,
	publisher content.Publisher,
	settings *settingsApp.SettingsService,
	pool *runworker.RunWorkerPool,
	onChange func(sched domainSchedule.Schedule),
) domainSchedule.IScheduleUsecase {
	return &serviceSchedule{
		repo:            repo,
		generator:       generator,
		publisher:       publisher,
		settings:        settings,
		pool:            pool,
		onChange:        onChange,
		runTimeout:      config.SchedulerRunTimeout,
		successCooldown: config.SchedulerSuccessCooldown,
		failureCooldown: config.SchedulerFailureCooldown,
		now:             time.Now,
		after:           time.After,
	}
}

func (service *serviceSchedule) notify(sched domainSchedule.Schedule) {
	if service.onChange != nil {
		service.onChange(sched)
	}
}

func (service *serviceSchedule) SaveSchedule(ctx context.Context, request domainSchedule.SaveScheduleRequest) (domainSchedule.Schedule, error) {
	request.Frequency = strings.ToLower(strings.TrimSpace(request.Frequency))
	request.DayOfWeek = strings.ToLower(strings.TrimSpace(request.DayOfWeek))
	request.Topic = strings.TrimSpace(request.Topic)

	if err := validations.ValidateSaveSchedule(ctx, request); err != nil {
		return domainSchedule.Schedule{}, err
	}

	now := service.now().UTC()
	next, err := timeutils.NextRun(request.Frequency, request.DayOfWeek, request.Time, now)
	if err != nil {
		return domainSchedule.Schedule{}, pkgError.ValidationError(err.Error())
	}

	sched := domainSchedule.Schedule{
		ID:          request.ID,
		Frequency:   request.Frequency,
		DayOfWeek:   request.DayOfWeek,
		Time:        request.Time,
		Topic:       request.Topic,
		ContentType: request.ContentType,
		WordCount:   request.WordCount,
		Tone:        request.Tone,
		Audience:    request.Audience,
		AutoPublish: request.AutoPublish,
		Status:      domainSchedule.StatusScheduled,
		NextRun:     &next,
		UpdatedAt:   now,
	}
	if sched.ContentType == "" {
		sched.ContentType = domainSchedule.DefaultContentType
	}
	if sched.WordCount <= 0 {
		sched.WordCount = domainSchedule.DefaultWordCount
	}
	if sched.Tone == "" {
		sched.Tone = domainSchedule.DefaultTone
	}
	if sched.Audience == "" {
		sched.Audience = domainSchedule.DefaultAudience
	}

	if sched.ID == "" {
		sched.ID = uuid.NewString()
		sched.CreatedAt = now
		if err := service.repo.Create(ctx, sched); err != nil {
			return domainSchedule.Schedule{}, err
		}
	} else {
		existing, err := service.repo.GetByID(ctx, sched.ID)
		if err != nil {
			return domainSchedule.Schedule{}, err
		}
		sched.CreatedAt = existing.CreatedAt
		sched.LastRun = existing.LastRun
		if err := service.repo.Update(ctx, sched); err != nil {
			return domainSchedule.Schedule{}, err
		}
	}

	if service.settings != nil {
		if err := service.settings.CacheLastSchedule(ctx, request); err != nil {
			logrus.WithError(err).Warn("[SCHEDULER] Failed to cache last schedule settings")
		}
	}

	logrus.Infof("[SCHEDULER] Saved schedule %s (%s %s %s), next run %s",
		sched.ID, sched.Frequency, sched.DayOfWeek, sched.Time, next.Format(time.RFC3339))
	service.notify(sched)
	return sched, nil
}

func (service *serviceSchedule) ListSchedules(ctx context.Context) ([]domainSchedule.ScheduleSummary, error) {
	schedules, err := service.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]domainSchedule.ScheduleSummary, 0, len(schedules))
	for _, sched := range schedules {
		summary := domainSchedule.ScheduleSummary{Schedule: sched}
		if sched.LastRun != nil {
			summary.LastRunHuman = humanize.Time(*sched.LastRun)
		}
		if sched.NextRun != nil {
			summary.NextRunHuman = humanize.Time(*sched.NextRun)
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (service *serviceSchedule) DeleteSchedule(ctx context.Context, id string) error {
	return service.repo.Delete(ctx, id)
}

func (service *serviceSchedule) ClearSchedules(ctx context.Context) error {
	return service.repo.DeleteAll(ctx)
}

// RunScheduleNow claims the schedule exactly like the poller would and
// dispatches it to the worker pool, keeping the one-run-per-schedule
// guarantee for manual runs too.
func (service *serviceSchedule) RunScheduleNow(ctx context.Context, id string) error {
	sched, err := service.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if sched.Status == domainSchedule.StatusInProgress {
		return pkgError.ValidationError(fmt.Sprintf("schedule %s is already running", id))
	}

	claimed, err := service.claim(ctx, sched)
	if err != nil {
		return err
	}

	job := runworker.RunJob{
		ScheduleID: claimed.ID,
		Handler: func(runCtx context.Context) error {
			service.ExecuteRun(runCtx, claimed)
			return nil
		},
	}
	if service.pool != nil {
		if !service.pool.TryDispatch(job) {
			service.ReleaseRun(ctx, claimed)
			return pkgError.InternalServerError("run queue is full, try again later")
		}
		return nil
	}
	go service.ExecuteRun(context.Background(), claimed)
	return nil
}

// ReleaseRun undoes a claim whose dispatch was rejected. The schedule goes
// straight back to scheduled with its nextRun untouched, so it is picked up
// again on the next poll instead of staying in-progress forever.
func (service *serviceSchedule) ReleaseRun(ctx context.Context, sched domainSchedule.Schedule) {
	sched.Status = domainSchedule.StatusScheduled
	sched.Result = "Run not started: worker queue full"
	sched.UpdatedAt = service.now().UTC()

	if err := service.repo.Update(ctx, sched); err != nil {
		logrus.WithError(err).Errorf("[SCHEDULER] Failed to release claim on schedule %s", sched.ID)
		return
	}
	logrus.Warnf("[SCHEDULER] Dispatch rejected, schedule %s released back to scheduled", sched.ID)
	service.notify(sched)
}

// claim transitions one schedule to in-progress and persists the
// transition. The write happens before any dispatch, so a crash between
// claim and run never double-fires.
func (service *serviceSchedule) claim(ctx context.Context, sched domainSchedule.Schedule) (domainSchedule.Schedule, error) {
	now := service.now().UTC()
	sched.Status = domainSchedule.StatusInProgress
	sched.LastRun = &now
	sched.Result = generatingResult
	sched.UpdatedAt = now

	if err := service.repo.Update(ctx, sched); err != nil {
		return domainSchedule.Schedule{}, err
	}
	service.notify(sched)
	return sched, nil
}

func (service *serviceSchedule) ClaimDue(ctx context.Context, now time.Time) ([]domainSchedule.Schedule, error) {
	due, err := service.repo.ListDue(ctx, now.UTC())
	if err != nil {
		return nil, err
	}

	claimed := make([]domainSchedule.Schedule, 0, len(due))
	for _, sched := range due {
		c, err := service.claim(ctx, sched)
		if err != nil {
			logrus.WithError(err).Errorf("[SCHEDULER] Failed to claim schedule %s", sched.ID)
			continue
		}
		claimed = append(claimed, c)
	}
	return claimed, nil
}

// ExecuteRun performs one generate-then-publish attempt. The schedule must
// already be claimed (in-progress with the intermediate result persisted).
func (service *serviceSchedule) ExecuteRun(ctx context.Context, sched domainSchedule.Schedule) {
	runCtx, cancel := context.WithTimeout(ctx, service.runTimeout)
	defer cancel()

	title := TitlePrefix + sched.Topic

	article, err := service.generator.Generate(runCtx, content.GenerateRequest{
		Title:     title,
		Topic:     sched.Topic,
		Type:      sched.ContentType,
		WordCount: sched.WordCount,
		Tone:      sched.Tone,
		Audience:  sched.Audience,
	})
	if err != nil {
		service.failRun(sched, err)
		return
	}

	status := content.PostStatusDraft
	if sched.AutoPublish {
		status = content.PostStatusPublish
	}

	ref, err := service.publisher.CreatePost(runCtx, content.PostRequest{
		Title:      article.Title,
		Content:    article.Content,
		Status:     status,
		Categories: article.SuggestedCategories,
	})
	if err != nil && !content.IsTermCollision(err) {
		service.failRun(sched, err)
		return
	}

	report := seo.Analyze(title, sched.Topic, article.Content)
	result := fmt.Sprintf("Created post #%d as %s (SEO score %d/100)", ref.ID, status, report.Score)
	if ref.Link != "" {
		result += " at " + ref.Link
	}
	if content.IsTermCollision(err) {
		result += ". Warning: a category term with that name already exists"
	}

	service.completeRun(sched, result)
}

// completeRun marks the run completed with the next occurrence computed,
// then returns the schedule to the scheduled state after a short cooldown.
func (service *serviceSchedule) completeRun(sched domainSchedule.Schedule, result string) {
	now := service.now().UTC()
	next, err := timeutils.NextRun(sched.Frequency, sched.DayOfWeek, sched.Time, now)
	if err != nil {
		// Stored frequency can only be invalid after a bad migration.
		logrus.WithError(err).Errorf("[SCHEDULER] Cannot compute next run for schedule %s", sched.ID)
		service.failRun(sched, err)
		return
	}

	sched.Status = domainSchedule.StatusCompleted
	sched.Result = result
	sched.NextRun = &next
	sched.UpdatedAt = now

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := service.repo.Update(ctx, sched); err != nil {
		logrus.WithError(err).Errorf("[SCHEDULER] Failed to persist completion of schedule %s", sched.ID)
		return
	}
	logrus.Infof("[SCHEDULER] Schedule %s completed: %s", sched.ID, result)
	service.notify(sched)

	service.revertLater(sched.ID, domainSchedule.StatusCompleted, service.successCooldown)
}

// failRun marks the run failed. nextRun is deliberately left untouched: a
// failed schedule stays due and retries on the next poll once the failure
// cooldown returns it to scheduled.
func (service *serviceSchedule) failRun(sched domainSchedule.Schedule, runErr error) {
	now := service.now().UTC()
	sched.Status = domainSchedule.StatusFailed
	sched.Result = "Run failed: " + runErr.Error()
	sched.UpdatedAt = now

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := service.repo.Update(ctx, sched); err != nil {
		logrus.WithError(err).Errorf("[SCHEDULER] Failed to persist failure of schedule %s", sched.ID)
		return
	}
	logrus.WithError(runErr).Errorf("[SCHEDULER] Schedule %s failed", sched.ID)
	service.notify(sched)

	service.revertLater(sched.ID, domainSchedule.StatusFailed, service.failureCooldown)
}

// revertLater returns a schedule from a terminal run state back to
// scheduled after the cooldown, unless something else changed its state in
// the meantime.
func (service *serviceSchedule) revertLater(id string, from domainSchedule.Status, cooldown time.Duration) {
	go func() {
		<-service.after(cooldown)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		sched, err := service.repo.GetByID(ctx, id)
		if err != nil {
			return
		}
		if sched.Status != from {
			return
		}

		sched.Status = domainSchedule.StatusScheduled
		sched.UpdatedAt = service.now().UTC()
		if err := service.repo.Update(ctx, sched); err != nil {
			logrus.WithError(err).Errorf("[SCHEDULER] Failed to return schedule %s to scheduled", id)
			return
		}
		service.notify(sched)
	}()
}
