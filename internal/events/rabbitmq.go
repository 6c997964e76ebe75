package events

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// amqpConnection is the part of *amqp.Connection the backend uses
type amqpConnection interface {
	IsClosed() bool
	Close() error
}

// amqpChannel is the part of *amqp.Channel the backend uses
type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

type dialFunc func(url string) (amqpConnection, amqpChannel, error)

// RabbitMQBackend wraps a RabbitMQ connection/channel pair and redials it
// when the broker drops either one.
type RabbitMQBackend struct {
	mu       sync.Mutex
	url      string
	dial     dialFunc
	conn     amqpConnection
	channel  amqpChannel
	declared map[string]bool
	closed   bool
}

// NewRabbitMQBackend dials url and opens a channel
func NewRabbitMQBackend(url string) (*RabbitMQBackend, error) {
	return newRabbitMQBackend(url, dialRabbitMQ)
}

func newRabbitMQBackend(url string, dial dialFunc) (*RabbitMQBackend, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	r := &RabbitMQBackend{url: url, dial: dial}
	if err := r.connect(); err != nil {
		return nil, err
	}
	return r, nil
}

func dialRabbitMQ(url string) (amqpConnection, amqpChannel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return conn, ch, nil
}

// connect replaces the connection/channel pair. Callers hold mu or own r exclusively.
func (r *RabbitMQBackend) connect() error {
	r.release()

	conn, ch, err := r.dial(r.url)
	if err != nil {
		return err
	}
	r.conn, r.channel = conn, ch
	// queue declarations do not survive a new channel
	r.declared = make(map[string]bool)
	return nil
}

func (r *RabbitMQBackend) release() {
	if r.channel != nil {
		_ = r.channel.Close()
		r.channel = nil
	}
	if r.conn != nil {
		_ = r.conn.Close()
		r.conn = nil
	}
}

func (r *RabbitMQBackend) healthy() bool {
	return r.conn != nil && !r.conn.IsClosed() && r.channel != nil && !r.channel.IsClosed()
}

// Publish sends a persistent JSON message to the named queue, declaring it on first use.
// A dropped connection is redialed before publishing, and a publish that fails
// because the channel closed underneath it is retried once on a fresh channel.
func (r *RabbitMQBackend) Publish(ctx context.Context, queue string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(queue) == "" {
		return "", errors.New("rabbitmq queue is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return "", amqp.ErrClosed
	}

	headers := amqp.Table{}
	for key, value := range attrs {
		headers[key] = value
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Headers:      headers,
		Body:         data,
	}

	err := r.publish(ctx, queue, msg)
	if errors.Is(err, amqp.ErrClosed) {
		if err := r.connect(); err != nil {
			return "", err
		}
		err = r.publish(ctx, queue, msg)
	}
	if err != nil {
		return "", err
	}
	return msg.MessageId, nil
}

func (r *RabbitMQBackend) publish(ctx context.Context, queue string, msg amqp.Publishing) error {
	if !r.healthy() {
		if err := r.connect(); err != nil {
			return err
		}
	}

	if !r.declared[queue] {
		if _, err := r.channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return err
		}
		r.declared[queue] = true
	}

	return r.channel.PublishWithContext(ctx, "", queue, false, false, msg)
}

// Close closes the channel and connection. Later publishes fail with amqp.ErrClosed.
func (r *RabbitMQBackend) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	var err error
	if r.channel != nil {
		_ = r.channel.Close()
		r.channel = nil
	}
	if r.conn != nil {
		err = r.conn.Close()
		r.conn = nil
	}
	return err
}
