package publisher

import (
	"context"
	"time"

	"github.com/fjod/go_cart/restock-service/internal/domain"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

const (
	// DefaultBufferSize is how many restock events may wait for publishing
	DefaultBufferSize = 64

	publishTimeout = 5 * time.Second
	drainTimeout   = 5 * time.Second
)

// Sink receives restock events from the dispatcher
type Sink interface {
	Name() string
	Publish(ctx context.Context, evt domain.RestockEvent) error
}

type guardedSink struct {
	sink    Sink
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// Dispatcher fans restock events out to sinks in the background, so a slow
// broker never holds up a restock
type Dispatcher struct {
	queue chan domain.RestockEvent
	sinks []guardedSink
	log   zerolog.Logger
}

// NewDispatcher creates a dispatcher with a circuit breaker per sink
func NewDispatcher(bufferSize int, log zerolog.Logger, sinks ...Sink) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	d := &Dispatcher{
		queue: make(chan domain.RestockEvent, bufferSize),
		log:   log,
	}
	for _, s := range sinks {
		d.sinks = append(d.sinks, guardedSink{
			sink:    s,
			breaker: gobreaker.NewCircuitBreaker[struct{}](breakerSettings(s.Name(), log)),
		})
	}
	return d
}

func breakerSettings(name string, log zerolog.Logger) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("sink", name).Str("from", from.String()).Str("to", to.String()).Msg("sink circuit breaker state changed")
		},
	}
}

// Enqueue queues an event without blocking. Events are dropped when the
// queue is full.
func (d *Dispatcher) Enqueue(evt domain.RestockEvent) bool {
	select {
	case d.queue <- evt:
		return true
	default:
		d.log.Warn().Str("restock_id", evt.Epoch.ID).Msg("restock event queue full, dropping event")
		return false
	}
}

// Run publishes queued events until ctx is cancelled, then drains what is
// left with a bounded deadline
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case evt := <-d.queue:
			d.publish(ctx, evt)
		case <-ctx.Done():
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	for {
		select {
		case evt := <-d.queue:
			d.publish(ctx, evt)
		default:
			return
		}
	}
}

func (d *Dispatcher) publish(ctx context.Context, evt domain.RestockEvent) {
	for _, gs := range d.sinks {
		_, err := gs.breaker.Execute(func() (struct{}, error) {
			pctx, cancel := context.WithTimeout(ctx, publishTimeout)
			defer cancel()
			return struct{}{}, gs.sink.Publish(pctx, evt)
		})
		if err != nil {
			d.log.Error().Err(err).Str("sink", gs.sink.Name()).Str("restock_id", evt.Epoch.ID).Msg("failed to publish restock event")
		}
	}
}
