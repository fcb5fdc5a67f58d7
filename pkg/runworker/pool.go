package runworker

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// RunJob represents one content run for a schedule.
type RunJob struct {
	ScheduleID string
	Handler    func(ctx context.Context) error
}

// PoolStats contains real-time metrics of the run worker pool
type PoolStats struct {
	NumWorkers      int            `json:"num_workers"`
	QueueSize       int            `json:"queue_size"`
	ActiveWorkers   int            `json:"active_workers"`
	TotalDispatched int64          `json:"total_dispatched"`
	TotalProcessed  int64          `json:"total_processed"`
	TotalDropped    int64          `json:"total_dropped"`
	TotalErrors     int64          `json:"total_errors"`
	WorkerStats     []WorkerStats  `json:"worker_stats"`
	ActiveRuns      map[string]int `json:"active_runs"` // scheduleID -> worker_id
	UptimeSeconds   int64          `json:"uptime_seconds"`
}

// WorkerStats contains per-worker metrics
type WorkerStats struct {
	WorkerID      int   `json:"worker_id"`
	QueueDepth    int   `json:"queue_depth"`
	IsProcessing  bool  `json:"is_processing"`
	JobsProcessed int64 `json:"jobs_processed"`
}

// RunWorkerPool processes content runs on a fixed set of workers. Jobs for
// the same schedule always land on the same worker, so a schedule is never
// executed twice concurrently.
type RunWorkerPool struct {
	numWorkers int
	queueSize  int
	workers    []*worker
	wg         sync.WaitGroup
	stopOnce   sync.Once
	stopped    int32
	stopCh     chan struct{}

	totalDispatched int64
	totalProcessed  int64
	totalDropped    int64
	totalErrors     int64
	activeRunsMu    sync.RWMutex
	activeRuns      map[string]int // scheduleID -> workerID
	startTime       time.Time
}

type worker struct {
	id            int
	jobQueue      chan RunJob
	ctx           context.Context
	cancel        context.CancelFunc
	isProcessing  int32 // atomic: 1 if processing, 0 if idle
	jobsProcessed int64 // atomic counter
	pool          *RunWorkerPool
}

// NewRunWorkerPool creates a pool of run workers
func NewRunWorkerPool(numWorkers, queueSize int) *RunWorkerPool {
	if numWorkers <= 0 {
		numWorkers = 4
	}
	if queueSize <= 0 {
		queueSize = 16
	}

	return &RunWorkerPool{
		numWorkers: numWorkers,
		queueSize:  queueSize,
		workers:    make([]*worker, numWorkers),
		activeRuns: make(map[string]int),
		stopCh:     make(chan struct{}),
		startTime:  time.Now(),
	}
}

// Start launches every worker in the pool
func (p *RunWorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.numWorkers; i++ {
		workerCtx, cancel := context.WithCancel(ctx)
		w := &worker{
			id:       i,
			jobQueue: make(chan RunJob, p.queueSize),
			ctx:      workerCtx,
			cancel:   cancel,
			pool:     p,
		}
		p.workers[i] = w

		p.wg.Add(1)
		go w.run(&p.wg)
	}

	logrus.Infof("[RUN_WORKER_POOL] Started with %d workers, queue size: %d", p.numWorkers, p.queueSize)
}

// TryDispatch enqueues a job on its worker without blocking and reports
// whether the job was accepted. Lets HTTP endpoints apply backpressure.
func (p *RunWorkerPool) TryDispatch(job RunJob) bool {
	if atomic.LoadInt32(&p.stopped) == 1 {
		atomic.AddInt64(&p.totalDropped, 1)
		return false
	}

	shard := p.shardForSchedule(job.ScheduleID)
	atomic.AddInt64(&p.totalDispatched, 1)

	p.activeRunsMu.Lock()
	p.activeRuns[job.ScheduleID] = shard
	p.activeRunsMu.Unlock()

	inner := job.Handler
	scheduleID := job.ScheduleID
	job.Handler = func(ctx context.Context) error {
		defer func() {
			p.activeRunsMu.Lock()
			delete(p.activeRuns, scheduleID)
			p.activeRunsMu.Unlock()
		}()
		return inner(ctx)
	}

	sent := func() (ok bool) {
		defer func() {
			if r := recover(); r != nil {
				ok = false
			}
		}()
		select {
		case p.workers[shard].jobQueue <- job:
			return true
		default:
			return false
		}
	}()

	if sent {
		return true
	}
	p.activeRunsMu.Lock()
	delete(p.activeRuns, scheduleID)
	p.activeRunsMu.Unlock()

	atomic.AddInt64(&p.totalDropped, 1)
	logrus.Warnf("[RUN_WORKER_POOL] Worker %d queue full (or stopped), dropping run for schedule %s",
		shard, scheduleID)
	return false
}

// Dispatch enqueues a job without blocking, dropping it if the queue is full
func (p *RunWorkerPool) Dispatch(job RunJob) {
	_ = p.TryDispatch(job)
}

// Stop shuts the pool down gracefully
func (p *RunWorkerPool) Stop() {
	p.stopOnce.Do(func() {
		atomic.StoreInt32(&p.stopped, 1)
		close(p.stopCh)
		logrus.Info("[RUN_WORKER_POOL] Stopping workers...")

		for _, w := range p.workers {
			w.cancel()
			close(w.jobQueue)
		}

		p.wg.Wait()

		logrus.Info("[RUN_WORKER_POOL] All workers stopped")
	})
}

// shardForSchedule maps a schedule to its worker with a consistent hash
func (p *RunWorkerPool) shardForSchedule(scheduleID string) int {
	h := fnv.New32a()
	h.Write([]byte(scheduleID))
	return int(h.Sum32() % uint32(p.numWorkers))
}

// GetStats returns a snapshot of pool metrics
func (p *RunWorkerPool) GetStats() PoolStats {
	workerStats := make([]WorkerStats, len(p.workers))
	activeWorkers := 0

	for i, w := range p.workers {
		isProcessing := atomic.LoadInt32(&w.isProcessing) == 1
		if isProcessing {
			activeWorkers++
		}

		workerStats[i] = WorkerStats{
			WorkerID:      w.id,
			QueueDepth:    len(w.jobQueue),
			IsProcessing:  isProcessing,
			JobsProcessed: atomic.LoadInt64(&w.jobsProcessed),
		}
	}

	p.activeRunsMu.RLock()
	activeRunsSnapshot := make(map[string]int, len(p.activeRuns))
	for k, v := range p.activeRuns {
		activeRunsSnapshot[k] = v
	}
	p.activeRunsMu.RUnlock()

	return PoolStats{
		NumWorkers:      p.numWorkers,
		QueueSize:       p.queueSize,
		ActiveWorkers:   activeWorkers,
		TotalDispatched: atomic.LoadInt64(&p.totalDispatched),
		TotalProcessed:  atomic.LoadInt64(&p.totalProcessed),
		TotalDropped:    atomic.LoadInt64(&p.totalDropped),
		TotalErrors:     atomic.LoadInt64(&p.totalErrors),
		WorkerStats:     workerStats,
		ActiveRuns:      activeRunsSnapshot,
		UptimeSeconds:   int64(time.Since(p.startTime).Seconds()),
	}
}

func (w *worker) run(wg *sync.WaitGroup) {
	defer wg.Done()

	logrus.Debugf("[RUN_WORKER_POOL] Worker %d started", w.id)

	for {
		select {
		case job, ok := <-w.jobQueue:
			if !ok {
				logrus.Debugf("[RUN_WORKER_POOL] Worker %d shutting down", w.id)
				return
			}
			w.process(job)

		case <-w.ctx.Done():
			logrus.Debugf("[RUN_WORKER_POOL] Worker %d context cancelled, draining queue...", w.id)
			w.drainQueue()
			return
		}
	}
}

func (w *worker) process(job RunJob) {
	atomic.StoreInt32(&w.isProcessing, 1)
	defer func() {
		if r := recover(); r != nil {
			atomic.AddInt64(&w.pool.totalErrors, 1)
			logrus.Errorf("[RUN_WORKER_POOL] Worker %d panic for schedule %s: %v", w.id, job.ScheduleID, r)
		}
		atomic.StoreInt32(&w.isProcessing, 0)
		atomic.AddInt64(&w.jobsProcessed, 1)
		atomic.AddInt64(&w.pool.totalProcessed, 1)
	}()

	if err := job.Handler(w.ctx); err != nil {
		atomic.AddInt64(&w.pool.totalErrors, 1)
		logrus.WithError(err).Errorf("[RUN_WORKER_POOL] Worker %d run failed for schedule %s", w.id, job.ScheduleID)
	}
}

// drainQueue processes jobs that were already queued before shutdown
func (w *worker) drainQueue() {
	for {
		select {
		case job, ok := <-w.jobQueue:
			if !ok {
				return
			}
			w.process(job)
		default:
			return
		}
	}
}
