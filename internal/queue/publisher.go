package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

const reservaQueueName = "reserva.confirmed"

// Publisher sends domain events to RabbitMQ. Each publish dials a fresh
// connection so a broker restart between reservations never leaves the
// process holding a dead channel; reservation volume is low enough that
// connection reuse buys nothing.
type Publisher struct {
	URL string
}

// NewPublisher returns a Publisher for the given AMQP URL.
func NewPublisher(url string) *Publisher { return &Publisher{URL: url} }

// PublishReservaConfirmed publishes a ReservaConfirmedEvent to the
// reserva.confirmed queue. Errors are logged and returned so the caller
// can choose to ignore them; a broker outage must never block a booking.
// Messages are marked persistent.
func (p *Publisher) PublishReservaConfirmed(ctx context.Context, event ReservaConfirmedEvent) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		log.Warn().Err(err).Str("component", "queue_publisher").Msg("rabbitmq dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Warn().Err(err).Str("component", "queue_publisher").Msg("rabbitmq channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive
	// broker restarts.
	if _, err := ch.QueueDeclare(reservaQueueName, true, false, false, false, nil); err != nil {
		log.Warn().Err(err).Str("component", "queue_publisher").Msg("queue declare failed")
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", reservaQueueName, false, false, pub); err != nil {
		log.Warn().Err(err).Str("component", "queue_publisher").Msg("publish failed")
		return err
	}
	return nil
}
