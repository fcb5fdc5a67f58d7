package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	domainSchedule "github.com/pressgen/pressgen/domains/schedule"
	"github.com/pressgen/pressgen/pkg/runworker"
)

// Poller wakes up on a fixed interval, claims every due schedule and hands
// each one to the run worker pool. Claims are persisted before dispatch, so
// two due schedules run concurrently and independently while the same
// schedule never overlaps itself.
type Poller struct {
	usecase  domainSchedule.IScheduleUsecase
	pool     *runworker.RunWorkerPool
	interval time.Duration

	now func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

func NewPoller(usecase domainSchedule.IScheduleUsecase, pool *runworker.RunWorkerPool, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Poller{
		usecase:  usecase,
		pool:     pool,
		interval: interval,
		now:      time.Now,
	}
}

// Start launches the polling loop. The first tick fires immediately so
// schedules missed while the process was down are picked up on boot.
func (p *Poller) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		ctx, p.cancel = context.WithCancel(ctx)

		p.wg.Add(1)
		go func() {
			defer p.wg.Done()

			logrus.Infof("[SCHEDULER] Poller started, interval %s", p.interval)
			p.tick(ctx)

			ticker := time.NewTicker(p.interval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					logrus.Info("[SCHEDULER] Poller stopped")
					return
				case <-ticker.C:
					p.tick(ctx)
				}
			}
		}()
	})
}

// Stop halts the loop and waits for it to exit. In-flight runs keep going
// on the worker pool.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		if p.cancel != nil {
			p.cancel()
		}
		p.wg.Wait()
	})
}

func (p *Poller) tick(ctx context.Context) {
	claimed, err := p.usecase.ClaimDue(ctx, p.now())
	if err != nil {
		logrus.WithError(err).Error("[SCHEDULER] Failed to claim due schedules")
		return
	}
	if len(claimed) == 0 {
		return
	}

	logrus.Infof("[SCHEDULER] Claimed %d due schedule(s)", len(claimed))
	for _, sched := range claimed {
		sched := sched
		accepted := p.pool.TryDispatch(runworker.RunJob{
			ScheduleID: sched.ID,
			Handler: func(runCtx context.Context) error {
				p.usecase.ExecuteRun(runCtx, sched)
				return nil
			},
		})
		if !accepted {
			p.usecase.ReleaseRun(ctx, sched)
		}
	}
}
