package lokiship

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	asyncQueueSize  = 100
	asyncMaxRetries = 3
)

type pushJob struct {
	id      uuid.UUID
	payload []byte
}

// AsyncBackend hands deliveries to a background worker and returns as soon
// as the job is enqueued. Delivery failures are retried up to three times
// with linear backoff, except for client errors, which abandon the payload
// immediately. Exhausted deliveries are logged to the side channel, never
// surfaced to the enqueuer.
type AsyncBackend struct {
	target  pushTarget
	client  *http.Client
	jobs    chan pushJob
	log     zerolog.Logger
	backoff time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newAsyncBackend(target pushTarget, logger zerolog.Logger) *AsyncBackend {
	ctx, cancel := context.WithCancel(context.Background())
	return &AsyncBackend{
		target: target,
		client: &http.Client{
			Timeout: requestTimeout,
		},
		jobs:    make(chan pushJob, asyncQueueSize),
		log:     logger,
		backoff: time.Second,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (b *AsyncBackend) start() {
	b.wg.Add(1)
	go b.deliver()
}

// Send enqueues the payload. Only enqueue failures are reported here;
// delivery failures resolve out-of-band.
func (b *AsyncBackend) Send(payload []byte) error {
	if b.ctx.Err() != nil {
		return &DeliveryError{Err: errors.New("backend is stopped")}
	}

	job := pushJob{id: uuid.New(), payload: payload}
	select {
	case b.jobs <- job:
		return nil
	default:
		return &DeliveryError{Err: errors.New("delivery queue is full")}
	}
}

// Close stops the worker after draining already-enqueued jobs.
func (b *AsyncBackend) Close() error {
	b.cancel()
	b.wg.Wait()
	return nil
}

func (b *AsyncBackend) deliver() {
	defer b.wg.Done()

	for {
		select {
		case job := <-b.jobs:
			b.push(job)
		case <-b.ctx.Done():
			for {
				select {
				case job := <-b.jobs:
					b.push(job)
				default:
					return
				}
			}
		}
	}
}

func (b *AsyncBackend) push(job pushJob) {
	var err error
	for attempt := 0; attempt <= asyncMaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * b.backoff)
		}

		err = doPush(b.client, b.target, job.payload)
		if err == nil {
			return
		}

		if !isRetryable(err) {
			b.log.Error().
				Stringer("delivery", job.id).
				Err(err).
				Msg("push rejected by endpoint, not retrying")
			return
		}

		b.log.Warn().
			Stringer("delivery", job.id).
			Int("attempt", attempt+1).
			Err(err).
			Msg("push attempt failed")
	}

	b.log.Error().
		Stringer("delivery", job.id).
		Err(err).
		Msg("dropping payload after exhausting retries")
}
