// Package events consumes account lifecycle events from NATS. An
// owner-removed event purges the owner's journal data.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/daybook/internal/cascade"
	"github.com/mesh-intelligence/daybook/internal/logging"
	"github.com/mesh-intelligence/daybook/pkg/types"
)

// OwnerRemover purges the data of a removed owner.
type OwnerRemover interface {
	HandleOwnerRemoved(ctx context.Context, owner string) cascade.Report
}

// OwnerRemoved is the payload of an owner-removed event.
type OwnerRemoved struct {
	OwnerID string `json:"owner_id"`
}

// Result is sent back when the event was a request.
type Result struct {
	OwnerID     string   `json:"owner_id,omitempty"`
	OK          bool     `json:"ok"`
	FailedSteps []string `json:"failed_steps,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// Connect dials the NATS server at url, retrying while it comes up.
func Connect(url string, log *logging.Logger) (*nats.Conn, error) {
	if log == nil {
		log = logging.NewNop()
	}
	nc, err := nats.Connect(url,
		nats.Name("daybook"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn(context.Background(), "nats disconnected", zap.Error(err))
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	return nc, nil
}

// Subscriber handles owner-removed events on one subject. With a queue
// group set, each event is processed by one daybook instance.
type Subscriber struct {
	nc      *nats.Conn
	cfg     types.EventsConfig
	remover OwnerRemover
	log     *logging.Logger

	mu   sync.Mutex
	sub  *nats.Subscription
	done chan struct{}
}

// NewSubscriber creates a Subscriber. Call Start to begin consuming.
func NewSubscriber(nc *nats.Conn, cfg types.EventsConfig, remover OwnerRemover, log *logging.Logger) *Subscriber {
	if log == nil {
		log = logging.NewNop()
	}
	return &Subscriber{nc: nc, cfg: cfg, remover: remover, log: log.Named("events")}
}

// Start subscribes. Handlers run with ctx as their parent context.
func (s *Subscriber) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != nil {
		return fmt.Errorf("subscriber already started")
	}

	handler := func(msg *nats.Msg) { s.handle(ctx, msg) }
	var (
		sub *nats.Subscription
		err error
	)
	if s.cfg.Queue != "" {
		sub, err = s.nc.QueueSubscribe(s.cfg.Subject, s.cfg.Queue, handler)
	} else {
		sub, err = s.nc.Subscribe(s.cfg.Subject, handler)
	}
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", s.cfg.Subject, err)
	}
	// The closed handler runs once the delivery goroutine exits, after
	// the last handler has returned.
	done := make(chan struct{})
	sub.SetClosedHandler(func(string) { close(done) })
	if err := s.nc.Flush(); err != nil {
		sub.Unsubscribe()
		return fmt.Errorf("flush subscription: %w", err)
	}
	s.sub = sub
	s.done = done
	s.log.Info(ctx, "listening for owner removals", zap.String("subject", s.cfg.Subject), zap.String("queue", s.cfg.Queue))
	return nil
}

// Stop drains the subscription and waits until every delivered event
// has been handled, or until ctx is done.
func (s *Subscriber) Stop(ctx context.Context) error {
	s.mu.Lock()
	sub, done := s.sub, s.done
	s.sub, s.done = nil, nil
	s.mu.Unlock()
	if sub == nil {
		return nil
	}
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("drain subscription: %w", err)
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain subscription: %w", ctx.Err())
	}
}

func (s *Subscriber) handle(ctx context.Context, msg *nats.Msg) {
	var ev OwnerRemoved
	if err := json.Unmarshal(msg.Data, &ev); err != nil || ev.OwnerID == "" {
		s.log.Warn(ctx, "ignoring malformed owner-removed event", zap.String("subject", msg.Subject), zap.ByteString("data", msg.Data))
		s.reply(ctx, msg, Result{Error: "invalid payload"})
		return
	}

	report := s.remover.HandleOwnerRemoved(ctx, ev.OwnerID)
	s.reply(ctx, msg, Result{OwnerID: ev.OwnerID, OK: report.OK(), FailedSteps: report.FailedSteps()})
}

func (s *Subscriber) reply(ctx context.Context, msg *nats.Msg, res Result) {
	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := msg.Respond(data); err != nil {
		s.log.Warn(ctx, "reply to owner-removed event failed", zap.Error(err))
	}
}
