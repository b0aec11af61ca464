package mq

import (
	"context"
	"log/slog"

	"github.com/shaiso/Deck/internal/domain"
)

const defaultBridgeBuffer = 64

// StatePublisher публикует переходы состояния. Реализуется *Publisher.
type StatePublisher interface {
	PublishStateChanged(ctx context.Context, st domain.State) error
}

// StateSource — то, на что подписывается мост. Реализуется deck.Observer.
type StateSource interface {
	Subscribe(fn func(domain.State)) (unsubscribe func())
}

// StateBridge пересылает переходы runtime в RabbitMQ.
//
// Слушатель runtime только кладёт состояние в буфер: публикация идёт в Run,
// и медленный брокер не задерживает остальных подписчиков. При переполнении
// буфера событие отбрасывается.
type StateBridge struct {
	publisher StatePublisher
	logger    *slog.Logger
	events    chan domain.State
}

// NewStateBridge создаёт мост. buffer <= 0 — размер по умолчанию.
func NewStateBridge(publisher StatePublisher, logger *slog.Logger, buffer int) *StateBridge {
	if logger == nil {
		logger = slog.Default()
	}
	if buffer <= 0 {
		buffer = defaultBridgeBuffer
	}
	return &StateBridge{
		publisher: publisher,
		logger:    logger,
		events:    make(chan domain.State, buffer),
	}
}

// Attach подписывает мост на runtime и возвращает функцию отписки.
func (b *StateBridge) Attach(src StateSource) func() {
	return src.Subscribe(b.enqueue)
}

func (b *StateBridge) enqueue(st domain.State) {
	select {
	case b.events <- st:
	default:
		b.logger.Warn("state event dropped",
			"error", ErrBridgeOverflow,
			"seq", st.Seq,
			"phase", st.Phase,
		)
	}
}

// Run публикует события до отмены ctx.
func (b *StateBridge) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case st := <-b.events:
			if err := b.publisher.PublishStateChanged(ctx, st); err != nil {
				b.logger.Warn("failed to publish state",
					"seq", st.Seq,
					"phase", st.Phase,
					"error", err,
				)
			}
		}
	}
}
