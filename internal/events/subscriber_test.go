package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/daybook/internal/cascade"
	"github.com/mesh-intelligence/daybook/pkg/types"
)

func startTestNATSServer(t *testing.T) *natsserver.Server {
	t.Helper()
	if testing.Short() {
		t.Skip("embedded NATS server skipped in short mode")
	}
	opts := &natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	}
	server, err := natsserver.NewServer(opts)
	require.NoError(t, err)
	go server.Start()
	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}
	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})
	return server
}

type recordingRemover struct {
	mu     sync.Mutex
	owners []string
	failed []cascade.StepError
}

func (r *recordingRemover) HandleOwnerRemoved(_ context.Context, owner string) cascade.Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owners = append(r.owners, owner)
	return cascade.Report{Owner: owner, Failed: r.failed}
}

func (r *recordingRemover) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.owners...)
}

// slowRemover blocks each purge for delay.
type slowRemover struct {
	delay   time.Duration
	started chan struct{}
	done    atomic.Bool
}

func (r *slowRemover) HandleOwnerRemoved(_ context.Context, owner string) cascade.Report {
	close(r.started)
	time.Sleep(r.delay)
	r.done.Store(true)
	return cascade.Report{Owner: owner}
}

func setup(t *testing.T, remover OwnerRemover) *nats.Conn {
	t.Helper()
	server := startTestNATSServer(t)
	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	cfg := types.DefaultConfig().Events
	sub := NewSubscriber(nc, cfg, remover, nil)
	require.NoError(t, sub.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		sub.Stop(ctx)
	})
	return nc
}

func request(t *testing.T, nc *nats.Conn, payload string) Result {
	t.Helper()
	msg, err := nc.Request(types.DefaultConfig().Events.Subject, []byte(payload), 5*time.Second)
	require.NoError(t, err)
	var res Result
	require.NoError(t, json.Unmarshal(msg.Data, &res))
	return res
}

func TestSubscriberPurgesOwner(t *testing.T) {
	remover := &recordingRemover{}
	nc := setup(t, remover)

	res := request(t, nc, `{"owner_id":"alice"}`)
	assert.Equal(t, Result{OwnerID: "alice", OK: true}, res)
	assert.Equal(t, []string{"alice"}, remover.seen())
}

func TestSubscriberHandlesPublishedEvents(t *testing.T) {
	remover := &recordingRemover{}
	nc := setup(t, remover)

	require.NoError(t, nc.Publish(types.DefaultConfig().Events.Subject, []byte(`{"owner_id":"bob"}`)))
	require.NoError(t, nc.Flush())
	assert.Eventually(t, func() bool {
		return len(remover.seen()) == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"bob"}, remover.seen())
}

func TestSubscriberReportsFailedSteps(t *testing.T) {
	remover := &recordingRemover{failed: []cascade.StepError{{Step: cascade.StepAttachments, Err: errors.New("denied")}}}
	nc := setup(t, remover)

	res := request(t, nc, `{"owner_id":"alice"}`)
	assert.False(t, res.OK)
	assert.Equal(t, []string{cascade.StepAttachments}, res.FailedSteps)
}

func TestSubscriberRejectsMalformedEvents(t *testing.T) {
	remover := &recordingRemover{}
	nc := setup(t, remover)

	for _, payload := range []string{`not json`, `{}`, `{"owner_id":""}`} {
		res := request(t, nc, payload)
		assert.Equal(t, "invalid payload", res.Error, payload)
	}
	assert.Empty(t, remover.seen())
}

func TestSubscriberStop(t *testing.T) {
	tests := []struct {
		name     string
		timeout  time.Duration
		wantErr  error
		wantDone bool
	}{
		{name: "waits for the in-flight purge", timeout: 5 * time.Second, wantDone: true},
		{name: "gives up when the context expires", timeout: 50 * time.Millisecond, wantErr: context.DeadlineExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := startTestNATSServer(t)
			nc, err := nats.Connect(server.ClientURL())
			require.NoError(t, err)
			t.Cleanup(nc.Close)

			remover := &slowRemover{delay: 300 * time.Millisecond, started: make(chan struct{})}
			cfg := types.DefaultConfig().Events
			sub := NewSubscriber(nc, cfg, remover, nil)
			require.NoError(t, sub.Start(context.Background()))

			require.NoError(t, nc.Publish(cfg.Subject, []byte(`{"owner_id":"alice"}`)))
			require.NoError(t, nc.Flush())
			select {
			case <-remover.started:
			case <-time.After(5 * time.Second):
				t.Fatal("purge never started")
			}

			ctx, cancel := context.WithTimeout(context.Background(), tt.timeout)
			defer cancel()
			err = sub.Stop(ctx)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantDone, remover.done.Load())
			assert.NoError(t, sub.Stop(context.Background()), "second stop is a no-op")
		})
	}
}
