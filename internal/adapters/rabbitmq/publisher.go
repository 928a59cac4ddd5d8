package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"hotel_booking/internal/domain"
)

const (
	ExchangeName = "hotel_bookings"
	ExchangeType = "topic"
)

// RoutingKey for confirmed bookings: booking.confirmed.<city>
func RoutingKey(ev domain.BookingConfirmed) string {
	city := ev.City
	if city == "" {
		city = "unknown"
	}
	return "booking.confirmed." + city
}

// SetupConn dials the broker with a few retries and declares the exchange.
func SetupConn(url string, attempts int) (*amqp.Connection, *amqp.Channel, error) {
	if attempts <= 0 {
		attempts = 1
	}
	var conn *amqp.Connection
	var err error
	for i := 0; i < attempts; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		log.Warn().Err(err).Int("attempt", i+1).Msg("connect to RabbitMQ failed")
		if i < attempts-1 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("could not open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		ExchangeName, // name
		ExchangeType, // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("could not declare exchange: %w", err)
	}
	return conn, ch, nil
}

type Publisher struct {
	ch *amqp.Channel
}

func NewPublisher(ch *amqp.Channel) *Publisher {
	return &Publisher{ch: ch}
}

func (p *Publisher) PublishConfirmed(ctx context.Context, ev domain.BookingConfirmed) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("could not marshal booking event: %w", err)
	}
	return p.ch.PublishWithContext(ctx,
		ExchangeName,   // exchange
		RoutingKey(ev), // routing key
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    ev.Reference,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}
