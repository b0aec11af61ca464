package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Deck/internal/domain"
)

// MessageType — тип сообщения.
type MessageType string

// Типы сообщений.
const (
	MessageTypeStateChanged MessageType = "deck.state.changed"
)

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// StateChangedPayload — payload события deck.state.changed.
//
// Дублирует ключевые поля State плоско, чтобы потребителям не нужно было
// разбирать тело ответа.
type StateChangedPayload struct {
	Deck         string           `json:"deck,omitempty"`
	Seq          uint64           `json:"seq"`
	InvocationID string           `json:"invocation_id,omitempty"`
	StepID       string           `json:"step_id,omitempty"`
	Phase        domain.Phase     `json:"phase"`
	Status       int              `json:"status,omitempty"`
	ErrorKind    domain.ErrorKind `json:"error_kind,omitempty"`
	Message      string           `json:"message,omitempty"`
	PDF          string           `json:"pdf,omitempty"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// NewStateChangedPayload строит payload по состоянию.
func NewStateChangedPayload(deck string, st domain.State) StateChangedPayload {
	p := StateChangedPayload{
		Deck:         deck,
		Seq:          st.Seq,
		InvocationID: st.InvocationID,
		StepID:       st.StepID,
		Phase:        st.Phase,
		UpdatedAt:    st.UpdatedAt,
	}

	if st.Response != nil {
		p.Status = st.Response.Status
		if st.Response.Body.PDF != nil {
			p.PDF = st.Response.Body.PDF.PDF
		}
	}
	if st.Error != nil {
		p.Status = st.Error.Status
		p.ErrorKind = st.Error.Kind
		p.Message = st.Error.Message
	}

	return p
}

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
	deck   string
}

// NewPublisher создаёт новый Publisher. deck — имя deck в событиях.
func NewPublisher(conn *Connection, logger *slog.Logger, deck string) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		conn:   conn,
		logger: logger,
		deck:   deck,
	}
}

// Publish публикует сообщение в указанный exchange.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange), // exchange
			"",               // routing key (fanout)
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Transient, // события состояния не переживают рестарт
				MessageId:    msg.ID,
				Type:         string(msg.Type),
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s: %w", exchange, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishStateChanged публикует зафиксированный переход состояния.
// Потребители: deck events, внешние наблюдатели.
func (p *Publisher) PublishStateChanged(ctx context.Context, st domain.State) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeStateChanged,
		Payload:   NewStateChangedPayload(p.deck, st),
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeState, msg)
}
