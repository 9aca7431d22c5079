package dispatch

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/slicingmelon/threadserver/internal/gslog"
)

// Worker is the per-thread capability record a handler plugs into a worker
// pool: onStart/handle/onStop, a flat interface instead of a
// constructor/handle-method/destructor class hierarchy.
type Worker interface {
	// OnStart runs once when the worker goroutine starts, the per-thread
	// initialization hook modules use to allocate thread-local state.
	OnStart()
	// Handle processes one unit of work. Errors are logged by the pool and
	// never kill the worker; a sentinel "peer closed" error is logged at a
	// softer level.
	Handle(work *SocketWork) error
	// OnStop runs once when the worker goroutine exits.
	OnStop()
}

// WorkerFactory builds a new Worker bound to one worker goroutine — a plain
// function value standing in for a virtual createWorker() method.
type WorkerFactory func() Worker

// ErrPeerClosed is a sentinel logged at a softer severity (Warning, not
// Error) than an unexpected failure.
var ErrPeerClosed = errors.New("dispatch: peer closed connection")

// Handler is a named worker pool that owns a Queue and a set of worker
// goroutines, all built from one WorkerFactory.
type Handler struct {
	name          string
	workerCount   int
	newWorker     WorkerFactory
	queue         *Queue
	wg            sync.WaitGroup
	mu            sync.Mutex
	started       bool
}

// NewHandler constructs a Handler. CreateWorkers is called separately, once
// the process has reached its final PID — constructing a Handler must not
// itself start goroutines.
func NewHandler(name string, workerCount int, newWorker WorkerFactory) *Handler {
	return &Handler{
		name:        name,
		workerCount: workerCount,
		newWorker:   newWorker,
		queue:       NewQueue(),
	}
}

func (h *Handler) Name() string { return h.name }

// Enqueue hands work into the handler's queue. A no-op once the handler has
// been destroyed.
func (h *Handler) Enqueue(work *SocketWork) {
	h.queue.Enqueue(work)
}

// CreateWorkers starts workerCount worker goroutines. Must be called
// exactly once, after the process has reached its final PID.
func (h *Handler) CreateWorkers() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return
	}
	h.started = true
	pid := os.Getpid()
	for i := 0; i < h.workerCount; i++ {
		h.wg.Add(1)
		go h.runWorker(pid, i)
	}
}

func (h *Handler) runWorker(pid, idx int) {
	defer h.wg.Done()

	log := gslog.Default().WithPrefix(fmt.Sprintf("%s[%d:%d]", h.name, pid, idx))

	worker := h.newWorker()
	worker.OnStart()
	defer worker.OnStop()

	for {
		work, ok := h.queue.Dequeue()
		if !ok {
			return
		}
		handleOne(log, worker, work)
	}
}

func handleOne(log *gslog.Logger, worker Worker, work *SocketWork) {
	defer work.Close()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msgf("worker panic handling %s: %v", work.ID, r)
		}
	}()

	if err := worker.Handle(work); err != nil {
		if errors.Is(err, ErrPeerClosed) {
			log.Warning().Msgf("%s: peer closed connection", work.ID)
		} else {
			log.Error().Msgf("%s: %v", work.ID, err)
		}
	}
}

// DestroyWorkers finishes the queue and joins every worker goroutine.
// Workers keep dequeuing until the finished queue is empty, so every item
// enqueued before this call has been handled by the time it returns; items
// enqueued after it are dropped by the queue.
func (h *Handler) DestroyWorkers() {
	h.queue.Finish()
	h.wg.Wait()
}

// QueueLen reports the number of items currently queued (diagnostics only).
func (h *Handler) QueueLen() int { return h.queue.Len() }
