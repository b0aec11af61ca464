package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shaiso/Deck/internal/domain"
	"github.com/shaiso/Deck/internal/mq"
)

// NewEventsCmd создаёт команду чтения событий состояния из RabbitMQ.
func NewEventsCmd(outputFn func() *Output, loggerFn func() *slog.Logger) *cobra.Command {
	var amqpURL string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Follow state events published to RabbitMQ",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			logger := loggerFn()

			if amqpURL == "" {
				amqpURL = mq.DefaultURL()
			}

			conn, err := mq.NewConnection(amqpURL, logger)
			if err != nil {
				return fmt.Errorf("connect to rabbitmq: %w", err)
			}
			defer conn.Close()

			consumer := mq.NewConsumer(conn, logger, mq.ConsumerConfig{
				Handler: func(ctx context.Context, d *mq.Delivery) error {
					if d.Message.Type != mq.MessageTypeStateChanged {
						return nil
					}
					p, err := mq.ParsePayload[mq.StateChangedPayload](&d.Message)
					if err != nil {
						return err
					}
					out.State(payloadState(p))
					return nil
				},
			})

			err = consumer.Start(cmd.Context())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&amqpURL, "amqp-url", "", "RabbitMQ URL (RABBITMQ_URL)")

	return cmd
}

// payloadState восстанавливает краткое состояние из события.
func payloadState(p mq.StateChangedPayload) domain.State {
	st := domain.State{
		Phase:        p.Phase,
		Seq:          p.Seq,
		InvocationID: p.InvocationID,
		StepID:       p.StepID,
		UpdatedAt:    p.UpdatedAt,
	}

	switch {
	case p.ErrorKind != "":
		st.Error = &domain.ErrorInfo{Kind: p.ErrorKind, Status: p.Status, Message: p.Message}
	case p.Phase == domain.PhaseSucceeded:
		st.Response = &domain.Response{Status: p.Status}
		if p.PDF != "" {
			st.Response.Body = domain.Body{Kind: domain.BodyPDF, PDF: &domain.PDFResult{PDF: p.PDF}}
		}
	}

	return st
}
