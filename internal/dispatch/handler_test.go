package dispatch

import (
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingWorker struct {
	started int32
	handled int32
	stopped int32
}

func (w *countingWorker) OnStart() { atomic.AddInt32(&w.started, 1) }
func (w *countingWorker) Handle(work *SocketWork) error {
	atomic.AddInt32(&w.handled, 1)
	return nil
}
func (w *countingWorker) OnStop() { atomic.AddInt32(&w.stopped, 1) }

type fakeListener struct{ name string }

func (f fakeListener) Name() string { return f.name }

func TestHandlerProcessesEveryEnqueuedWorkExactlyOnce(t *testing.T) {
	w := &countingWorker{}
	h := NewHandler("test", 4, func() Worker { return w })
	h.CreateWorkers()

	const n = 50
	conns := make([]net.Conn, 0, n)
	for i := 0; i < n; i++ {
		c1, c2 := net.Pipe()
		conns = append(conns, c2)
		h.Enqueue(NewSocketWork(c1, fakeListener{"l"}, false))
	}

	h.DestroyWorkers()

	require.EqualValues(t, n, w.handled)
	for _, c := range conns {
		c.Close()
	}
}

type errWorker struct{ calls int32 }

func (w *errWorker) OnStart() {}
func (w *errWorker) Handle(work *SocketWork) error {
	atomic.AddInt32(&w.calls, 1)
	return ErrPeerClosed
}
func (w *errWorker) OnStop() {}

func TestHandlerSurvivesWorkerErrors(t *testing.T) {
	w := &errWorker{}
	h := NewHandler("test", 2, func() Worker { return w })
	h.CreateWorkers()

	c1, c2 := net.Pipe()
	defer c2.Close()
	h.Enqueue(NewSocketWork(c1, fakeListener{"l"}, false))

	h.DestroyWorkers()
	require.EqualValues(t, 1, w.calls)
}

func TestQueueDequeueBlocksUntilEnqueueOrFinish(t *testing.T) {
	q := NewQueue()
	done := make(chan struct{})
	go func() {
		_, ok := q.Dequeue()
		require.False(t, ok)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("dequeue returned before finish")
	case <-time.After(20 * time.Millisecond):
	}

	q.Finish()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dequeue never unblocked after finish")
	}
}

func TestQueueEnqueueAfterFinishIsNoOp(t *testing.T) {
	q := NewQueue()
	q.Finish()
	c1, _ := net.Pipe()
	q.Enqueue(NewSocketWork(c1, fakeListener{"l"}, false))
	require.Equal(t, 0, q.Len())
}
