package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Publisher fans campaign events out to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
	Close() error
}

// Handler consumes one in-memory event. A non-nil error triggers a retry.
type Handler func(payload any) error

// InMemoryQueue is an in-process pub/sub with per-handler retry.
type InMemoryQueue struct {
	mu         sync.Mutex
	handlers   map[string][]Handler
	maxRetries int
	backoff    time.Duration
	log        *zap.Logger
	wg         sync.WaitGroup
}

func NewInMemoryQueue(log *zap.Logger) *InMemoryQueue {
	return &InMemoryQueue{
		handlers:   make(map[string][]Handler),
		maxRetries: 3,
		backoff:    500 * time.Millisecond,
		log:        log,
	}
}

// JobPayload wraps a message payload with retry info
type JobPayload struct {
	Topic      string
	Payload    any
	RetryCount int
	MaxRetries int
}

// Publish delivers payload to every subscriber of topic asynchronously.
// Topics without subscribers drop the event.
func (q *InMemoryQueue) Publish(ctx context.Context, topic string, payload any) error {
	q.mu.Lock()
	handlers := append([]Handler(nil), q.handlers[topic]...)
	q.mu.Unlock()

	if len(handlers) == 0 {
		q.log.Debug("no subscribers for topic", zap.String("topic", topic))
		return nil
	}

	for _, h := range handlers {
		job := JobPayload{Topic: topic, Payload: payload, MaxRetries: q.maxRetries}
		q.wg.Add(1)
		go q.processJob(h, job)
	}
	return nil
}

// processJob handles retries and errors
func (q *InMemoryQueue) processJob(h Handler, job JobPayload) {
	defer q.wg.Done()
	for job.RetryCount <= job.MaxRetries {
		err := h(job.Payload)
		if err == nil {
			return
		}

		job.RetryCount++
		q.log.Warn("event handler failed",
			zap.String("topic", job.Topic),
			zap.Int("attempt", job.RetryCount),
			zap.Int("max_retries", job.MaxRetries),
			zap.Error(err))

		if job.RetryCount > job.MaxRetries {
			q.log.Error("event permanently failed", zap.String("topic", job.Topic))
			return
		}
		time.Sleep(time.Duration(job.RetryCount) * q.backoff)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[topic] = append(q.handlers[topic], h)
}

// Wait blocks until all in-flight deliveries have finished.
func (q *InMemoryQueue) Wait() { q.wg.Wait() }

func (q *InMemoryQueue) Close() error {
	q.Wait()
	return nil
}

// LogSubscriber subscribes a handler that logs every campaign event.
func LogSubscriber(q *InMemoryQueue, log *zap.Logger) {
	for _, topic := range []string{TopicStatusChanged, TopicBatchCompleted} {
		topic := topic
		q.Subscribe(topic, func(payload any) error {
			ev, ok := payload.(Event)
			if !ok {
				return fmt.Errorf("unexpected payload %T on %s", payload, topic)
			}
			log.Info("campaign event",
				zap.String("topic", topic),
				zap.String("campaign_id", ev.CampaignKey()))
			return nil
		})
	}
}
