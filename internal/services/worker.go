package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"talentscan/cv-screener/internal/logger"
	"talentscan/cv-screener/internal/repositories"
)

type Worker interface {
	Start(ctx context.Context)
	Stop()
	EnqueueRun(runID uuid.UUID)
}

type WorkerOptions struct {
	Concurrency  int
	PollInterval time.Duration
	QueueSize    int
}

type worker struct {
	runRepo  repositories.RunRepository
	screener ScreenerService
	opts     WorkerOptions
	log      *zap.Logger

	jobQueue chan uuid.UUID
	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	cancel   context.CancelFunc

	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}
}

func NewWorker(runRepo repositories.RunRepository, screener ScreenerService, opts WorkerOptions, log *zap.Logger) Worker {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 10 * time.Second
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 100
	}
	return &worker{
		runRepo:  runRepo,
		screener: screener,
		opts:     opts,
		log:      logger.Component(log, "worker"),
		jobQueue: make(chan uuid.UUID, opts.QueueSize),
		stopChan: make(chan struct{}),
		inFlight: make(map[uuid.UUID]struct{}),
	}
}

func (w *worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	w.log.Info("starting worker", zap.Int("concurrency", w.opts.Concurrency), zap.Duration("poll_interval", w.opts.PollInterval))

	// Nothing is in flight yet, so any processing run was orphaned by a previous process.
	if n, err := w.runRepo.RequeueInterrupted(); err != nil {
		w.log.Warn("failed to requeue interrupted runs", zap.Error(err))
	} else if n > 0 {
		w.log.Info("requeued interrupted runs", zap.Int64("count", n))
	}

	for i := 0; i < w.opts.Concurrency; i++ {
		w.wg.Add(1)
		go w.processRuns(ctx, i+1)
	}

	w.wg.Add(1)
	go w.pollQueuedRuns(ctx)
}

// Stop cancels in-flight screening, which requeues the run, and waits for goroutines to exit.
func (w *worker) Stop() {
	w.stopOnce.Do(func() {
		w.log.Info("stopping worker")
		close(w.stopChan)
		if w.cancel != nil {
			w.cancel()
		}
		w.wg.Wait()
		w.log.Info("worker stopped")
	})
}

// EnqueueRun schedules a run unless it is already queued or being screened.
func (w *worker) EnqueueRun(runID uuid.UUID) {
	if !w.claim(runID) {
		w.log.Debug("run already in flight", zap.String(logger.FieldRunID, runID.String()))
		return
	}

	select {
	case w.jobQueue <- runID:
		w.log.Debug("run enqueued", zap.String(logger.FieldRunID, runID.String()))
	case <-w.stopChan:
		w.release(runID)
		w.log.Warn("worker stopped, cannot enqueue run", zap.String(logger.FieldRunID, runID.String()))
	}
}

func (w *worker) claim(runID uuid.UUID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.inFlight[runID]; ok {
		return false
	}
	w.inFlight[runID] = struct{}{}
	return true
}

func (w *worker) release(runID uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.inFlight, runID)
}

func (w *worker) processRuns(ctx context.Context, workerID int) {
	defer w.wg.Done()
	log := w.log.With(zap.Int("worker_id", workerID))

	for {
		select {
		case <-w.stopChan:
			return
		case runID := <-w.jobQueue:
			runLog := log.With(zap.String(logger.FieldRunID, runID.String()))
			runLog.Info("processing run")
			if err := w.screener.ScreenRun(ctx, runID); err != nil {
				runLog.Error("run failed", zap.Error(err))
			} else {
				runLog.Info("run done")
			}
			w.release(runID)
		}
	}
}

func (w *worker) pollQueuedRuns(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			runs, err := w.runRepo.FindQueued(10)
			if err != nil {
				w.log.Warn("failed to fetch queued runs", zap.Error(err))
				continue
			}

			if len(runs) > 0 {
				w.log.Debug("found queued runs", zap.Int("count", len(runs)))
			}

			for _, run := range runs {
				w.EnqueueRun(run.ID)
			}
		}
	}
}
