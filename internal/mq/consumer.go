package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"duelarena/pkg/config"
)

// Consumer reads score events back off the queue.
type Consumer struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
	log   *logrus.Entry
}

func DialConsumer(cfg config.MQConfig) (*Consumer, error) {
	conn, err := amqp.Dial(cfg.Url)
	if err != nil {
		return nil, fmt.Errorf("mq connect: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("mq channel: %w", err)
	}
	if _, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("mq queue declare %s: %w", cfg.QueueName, err)
	}
	return &Consumer{
		conn:  conn,
		ch:    ch,
		queue: cfg.QueueName,
		log:   logrus.WithFields(logrus.Fields{"component": "mq", "queue": cfg.QueueName}),
	}, nil
}

// Run hands every event to fn until ctx is done or the channel closes.
func (c *Consumer) Run(ctx context.Context, fn func(ScoreEvent) error) error {
	msgs, err := c.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}
	c.log.Info("consumer started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			handleDelivery(c.log, d, fn)
		}
	}
}

// handleDelivery acks handled events, drops undecodable ones and requeues
// events fn failed on.
func handleDelivery(log *logrus.Entry, d amqp.Delivery, fn func(ScoreEvent) error) {
	var ev ScoreEvent
	if err := json.Unmarshal(d.Body, &ev); err != nil {
		log.WithError(err).Warn("dropping undecodable score event")
		_ = d.Nack(false, false)
		return
	}
	if err := fn(ev); err != nil {
		log.WithError(err).Warn("score event not handled, requeueing")
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

func (c *Consumer) Close() error {
	_ = c.ch.Close()
	return c.conn.Close()
}

// Tally keeps the latest total per client.
type Tally struct {
	mu     sync.Mutex
	totals map[string]int
}

func NewTally() *Tally {
	return &Tally{totals: make(map[string]int)}
}

func (t *Tally) Record(ev ScoreEvent) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totals[ev.ClientID] = ev.Total
	return nil
}

type Standing struct {
	ClientID string
	Total    int
}

// Standings are ordered by total, highest first, then by client id.
func (t *Tally) Standings() []Standing {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Standing, 0, len(t.totals))
	for id, total := range t.totals {
		out = append(out, Standing{ClientID: id, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].ClientID < out[j].ClientID
	})
	return out
}
