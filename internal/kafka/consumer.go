package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Handler must return nil only when the message is fully processed and its
// offset may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	r          reader
	workers    int
	retryDelay time.Duration
	maxDelay   time.Duration
	log        *logrus.Entry
}

func NewConsumer(brokers []string, group, topic string, workers int, log *logrus.Entry) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	return newConsumer(r, workers, log.WithFields(logrus.Fields{"group": group, "topic": topic}))
}

func newConsumer(r reader, workers int, log *logrus.Entry) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: r, workers: workers, retryDelay: 200 * time.Millisecond, maxDelay: 10 * time.Second, log: log}
}

// Start fetches messages until ctx is done. Every partition is pinned to one
// worker, so offsets commit in order. A failed message is retried with
// backoff and blocks its partition until it succeeds or ctx ends.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	jobs := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range jobs {
		jobs[i] = make(chan kafka.Message, 128)
		wg.Add(1)
		go func(id int, in <-chan kafka.Message) {
			defer wg.Done()
			for m := range in {
				if !c.handle(ctx, h, m, id) {
					continue
				}
				if err := c.r.CommitMessages(ctx, m); err != nil {
					c.log.WithError(err).WithFields(logrus.Fields{"partition": m.Partition, "offset": m.Offset}).Warn("commit failed")
				}
			}
		}(i, jobs[i])
	}
	defer wg.Wait()
	defer func() {
		for _, ch := range jobs {
			close(ch)
		}
	}()

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		select {
		case jobs[m.Partition%c.workers] <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

// handle reports whether m was processed and may be committed.
func (c *Consumer) handle(ctx context.Context, h Handler, m kafka.Message, worker int) bool {
	delay := c.retryDelay
	for attempt := 1; ; attempt++ {
		err := h(ctx, m)
		if err == nil {
			return true
		}
		c.log.WithError(err).WithFields(logrus.Fields{
			"worker":    worker,
			"partition": m.Partition,
			"offset":    m.Offset,
			"attempt":   attempt,
		}).Error("handler failed")

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
		if delay *= 2; delay > c.maxDelay {
			delay = c.maxDelay
		}
	}
}
