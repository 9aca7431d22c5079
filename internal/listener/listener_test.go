package listener

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/slicingmelon/threadserver/internal/dispatch"
	"github.com/slicingmelon/threadserver/internal/netacl"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu    sync.Mutex
	name  string
	works []*dispatch.SocketWork
	seen  chan struct{}
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{name: "h", seen: make(chan struct{}, 64)}
}

func (h *recordingHandler) Name() string { return h.name }

func (h *recordingHandler) Enqueue(w *dispatch.SocketWork) {
	h.mu.Lock()
	h.works = append(h.works, w)
	h.mu.Unlock()
	h.seen <- struct{}{}
}

func allowAllPolicy(t *testing.T) *netacl.Policy {
	t.Helper()
	p, err := netacl.NewPolicy(false, []string{"0.0.0.0/0"}, nil)
	require.NoError(t, err)
	return p
}

func denyAllPolicy(t *testing.T) *netacl.Policy {
	t.Helper()
	p, err := netacl.NewPolicy(true, nil, []string{"0.0.0.0/0"})
	require.NoError(t, err)
	return p
}

func TestListenerAcceptsAndEnqueues(t *testing.T) {
	h := newRecordingHandler()

	// Discover a free ephemeral port up front so New()'s pre-flight bind
	// and Run()'s real bind target the same fixed address.
	probe, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	addr := probe.Addr().String()
	require.NoError(t, probe.Close())

	l, err := New("test", addr, h, allowAllPolicy(t))
	require.NoError(t, err)

	go l.Run()
	// Give Run a moment to bind before dialing.
	time.Sleep(20 * time.Millisecond)

	conn, err := net.Dial("tcp4", addr)
	require.NoError(t, err)
	defer conn.Close()

	select {
	case <-h.seen:
	case <-time.After(time.Second):
		t.Fatal("listener never enqueued accepted connection")
	}

	l.Stop()

	h.mu.Lock()
	defer h.mu.Unlock()
	require.Len(t, h.works, 1)
	require.False(t, h.works[0].Forbidden)
}

func TestListenerMarksForbiddenUnderDenyPolicy(t *testing.T) {
	h := newRecordingHandler()
	probe, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	addr := probe.Addr().String()
	require.NoError(t, probe.Close())

	l, err := New("test", addr, h, denyAllPolicy(t))
	require.NoError(t, err)

	go l.Run()
	time.Sleep(20 * time.Millisecond)

	conn, err := net.Dial("tcp4", addr)
	require.NoError(t, err)
	defer conn.Close()

	select {
	case <-h.seen:
	case <-time.After(time.Second):
		t.Fatal("listener never enqueued accepted connection")
	}

	l.Stop()

	h.mu.Lock()
	defer h.mu.Unlock()
	require.Len(t, h.works, 1)
	require.True(t, h.works[0].Forbidden)
}

func TestListenerStopUnblocksRun(t *testing.T) {
	h := newRecordingHandler()
	probe, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	addr := probe.Addr().String()
	require.NoError(t, probe.Close())

	l, err := New("test", addr, h, allowAllPolicy(t))
	require.NoError(t, err)

	runDone := make(chan error, 1)
	go func() { runDone <- l.Run() }()
	time.Sleep(20 * time.Millisecond)

	l.Stop()

	select {
	case err := <-runDone:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
}
