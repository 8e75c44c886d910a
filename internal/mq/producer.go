package mq

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"duelarena/pkg/config"
)

// ScoreEvent is published for every score change of a local match.
type ScoreEvent struct {
	ClientID  string `json:"client_id"`
	Delta     int    `json:"delta"`
	Total     int    `json:"total"`
	Timestamp int64  `json:"timestamp"`
}

// publisher is the part of *amqp.Channel the producer uses.
type publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Producer struct {
	conn  *amqp.Connection
	ch    publisher
	queue string

	mu  sync.Mutex
	log *logrus.Entry
}

// Dial connects, opens a channel and declares the durable score queue.
func Dial(cfg config.MQConfig) (*Producer, error) {
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
	p := newProducer(ch, cfg.QueueName)
	p.conn = conn
	return p, nil
}

func newProducer(ch publisher, queue string) *Producer {
	return &Producer{
		ch:    ch,
		queue: queue,
		log:   logrus.WithFields(logrus.Fields{"component": "mq", "queue": queue}),
	}
}

// PublishScore sends ev to the score queue. A zero timestamp is filled in.
func (p *Producer) PublishScore(ev ScoreEvent) error {
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().Unix()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.Publish("", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Unix(ev.Timestamp, 0),
		Body:         body,
	})
	if err != nil {
		p.log.WithError(err).Warn("publish score failed")
		return fmt.Errorf("publish score: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
