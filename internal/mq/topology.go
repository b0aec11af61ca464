package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Exchanges — имена обменников.
const (
	ExchangeState Exchange = "deck.state"
)

// SetupTopology объявляет exchange для событий состояния.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, declareExchanges)
}

func declareExchanges(ch *amqp.Channel) error {
	err := ch.ExchangeDeclare(
		string(ExchangeState), // name
		amqp.ExchangeFanout,   // type
		true,                  // durable
		false,                 // auto-deleted
		false,                 // internal
		false,                 // no-wait
		nil,                   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange %s: %w", ExchangeState, err)
	}
	return nil
}

// declareSubscriberQueue создаёт эксклюзивную очередь с именем от сервера
// и привязывает её к deck.state. Очередь удаляется вместе с каналом.
func declareSubscriberQueue(ch *amqp.Channel) (string, error) {
	if err := declareExchanges(ch); err != nil {
		return "", err
	}

	q, err := ch.QueueDeclare(
		"",    // name (генерирует сервер)
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return "", fmt.Errorf("declare subscriber queue: %w", err)
	}

	// fanout игнорирует routing key
	if err := ch.QueueBind(q.Name, "", string(ExchangeState), false, nil); err != nil {
		return "", fmt.Errorf("bind queue %s to %s: %w", q.Name, ExchangeState, err)
	}

	return q.Name, nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  Deck RabbitMQ Topology:

    deck.state (fanout)
    └── amq.gen-* (exclusive, auto-delete)
            Consumer: deck events
  `
}
