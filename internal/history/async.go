package history

import (
	"context"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"go.uber.org/zap"
)

// DefaultQueueSize is the number of pending writes an AsyncWriter buffers before dropping.
const DefaultQueueSize = 256

type writeJob struct {
	kind string
	run  func(ctx context.Context) error
}

// AsyncWriter moves history writes off the tick path. Failures and drops are logged, never returned.
type AsyncWriter struct {
	store   Store
	logger  *logger.Logger
	timeout time.Duration
	queue   chan writeJob
	wg      sync.WaitGroup

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewAsyncWriter starts a single background writer for store.
func NewAsyncWriter(store Store, log *logger.Logger, queueSize int) *AsyncWriter {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	w := &AsyncWriter{
		store:   store,
		logger:  log,
		timeout: 5 * time.Second,
		queue:   make(chan writeJob, queueSize),
	}

	w.wg.Add(1)

	go w.loop()

	return w
}

func (w *AsyncWriter) loop() {
	defer w.wg.Done()

	for job := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		err := job.run(ctx)

		cancel()

		if err != nil {
			w.logger.Warn("History write failed", zap.String("kind", job.kind), zap.Error(err))
		}
	}
}

func (w *AsyncWriter) enqueue(job writeJob) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		w.logger.Warn("History writer closed, dropping write", zap.String("kind", job.kind))

		return
	}

	select {
	case w.queue <- job:
	default:
		w.logger.Warn("History queue full, dropping write", zap.String("kind", job.kind))
	}
}

// AppendSnapshot queues a snapshot write.
func (w *AsyncWriter) AppendSnapshot(snapshot types.Snapshot) {
	w.enqueue(writeJob{kind: "snapshot", run: func(ctx context.Context) error {
		return w.store.AppendSnapshot(ctx, snapshot)
	}})
}

// AppendTrade queues a trade write.
func (w *AsyncWriter) AppendTrade(trade types.TradeRecord) {
	w.enqueue(writeJob{kind: "trade", run: func(ctx context.Context) error {
		return w.store.AppendTrade(ctx, trade)
	}})
}

// Store returns the underlying store for reads.
func (w *AsyncWriter) Store() Store {
	return w.store
}

// Close drains pending writes and stops the writer. The store itself is left open.
func (w *AsyncWriter) Close() {
	w.closeOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		close(w.queue)
		w.mu.Unlock()

		w.wg.Wait()
	})
}
