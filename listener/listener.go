package listener

import (
	"context"
	"time"

	rd "github.com/go-redis/redis/v9"
	"github.com/patrickmn/go-cache"
	"github.com/richarddahl/ruleflow/config"
	"github.com/richarddahl/ruleflow/logger"
	"github.com/richarddahl/ruleflow/metrics"
	"github.com/richarddahl/ruleflow/model"
	"github.com/richarddahl/ruleflow/util"
	"go.uber.org/zap"
)

// Listener subscribes to the raw change-notification channel and turns it
// into a stream of decoded, deduplicated events. Notifications are delivered
// at least once; the seen-set suppresses redeliveries of the same logical
// event within its TTL.
type Listener struct {
	client         rd.UniversalClient
	conf           config.ListenerConfig
	encoderDecoder util.EncoderDecoder[model.Event]
	seen           *cache.Cache
	metrics        *metrics.Metrics
}

func New(client rd.UniversalClient, conf config.ListenerConfig, m *metrics.Metrics) *Listener {
	dedupeTTL := conf.DedupeTTL
	if dedupeTTL <= 0 {
		dedupeTTL = 5 * time.Minute
	}
	return &Listener{
		client:         client,
		conf:           conf,
		encoderDecoder: util.NewJsonEncoderDecoder[model.Event](),
		seen:           cache.New(dedupeTTL, 2*dedupeTTL),
		metrics:        m,
	}
}

// Listen starts the subscription and returns the event channel. The channel
// closes when ctx is cancelled or when the reconnect budget is exhausted;
// events already handed downstream are unaffected by shutdown.
func (l *Listener) Listen(ctx context.Context) <-chan model.Event {
	events := make(chan model.Event, 64)
	go l.run(ctx, events)
	return events
}

func (l *Listener) run(ctx context.Context, events chan<- model.Event) {
	defer close(events)
	attempts := 0
	for {
		if ctx.Err() != nil {
			return
		}
		sub := l.client.Subscribe(ctx, l.conf.Channel)
		if _, err := sub.Receive(ctx); err != nil {
			sub.Close()
			if ctx.Err() != nil {
				return
			}
			attempts++
			if l.conf.ReconnectAttempts > 0 && attempts > l.conf.ReconnectAttempts {
				logger.Error("reconnect budget exhausted, pausing ingestion", zap.Int("attempts", attempts), zap.Error(err))
				return
			}
			backoff := l.backoff(attempts)
			logger.Error("subscribe failed, reconnecting", zap.Int("attempt", attempts), zap.Duration("backoff", backoff), zap.Error(err))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			continue
		}
		logger.Info("listening for change notifications", zap.String("channel", l.conf.Channel))
		attempts = 0
		l.consume(ctx, sub, events)
		sub.Close()
	}
}

func (l *Listener) consume(ctx context.Context, sub *rd.PubSub, events chan<- model.Event) {
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				logger.Warn("notification subscription lost")
				return
			}
			event, ok := l.accept(msg.Payload)
			if !ok {
				continue
			}
			select {
			case events <- *event:
			case <-ctx.Done():
				return
			}
		}
	}
}

// accept decodes one raw notification, normalizes the operation and applies
// duplicate suppression. A false return means the message was dropped; the
// listener loop never dies on bad input.
func (l *Listener) accept(payload string) (*model.Event, bool) {
	event, err := l.encoderDecoder.Decode([]byte(payload))
	if err != nil || event.EntityType == "" {
		l.metrics.IncEvent("malformed")
		logger.Error("dropping malformed change notification", zap.String("payload", payload), zap.Error(err))
		return nil, false
	}
	operation, err := model.ToOperation(string(event.Operation))
	if err != nil {
		l.metrics.IncEvent("malformed")
		logger.Error("dropping change notification with invalid operation", zap.String("payload", payload), zap.Error(err))
		return nil, false
	}
	event.Operation = operation
	if _, dup := l.seen.Get(event.Key()); dup {
		l.metrics.IncEvent("duplicate")
		logger.Debug("dropping duplicate event", zap.String("key", event.Key()))
		return nil, false
	}
	l.seen.SetDefault(event.Key(), struct{}{})
	l.metrics.IncEvent("processed")
	return event, true
}

func (l *Listener) backoff(attempt int) time.Duration {
	base := l.conf.ReconnectBase
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	max := l.conf.ReconnectMax
	if max <= 0 {
		max = 30 * time.Second
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	return d
}
