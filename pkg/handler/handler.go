package handler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/streadway/amqp"

	"gitlab.com/videotom/transcode-worker/config"
	"gitlab.com/videotom/transcode-worker/models"
	"gitlab.com/videotom/transcode-worker/pkg/errs"
	"gitlab.com/videotom/transcode-worker/pkg/logger"
	"gitlab.com/videotom/transcode-worker/pkg/rabbitmq"
)

// TranscodeService runs one job end to end.
type TranscodeService interface {
	Run(ctx context.Context, input models.TranscodeWorkerInput) (*models.UploadTranscodedMediaResponse, error)
}

// Options ...
type Options struct {
	Config   *config.Config
	Log      logger.Logger
	RabbitMQ *rabbitmq.RabbitMQ
	Service  TranscodeService
}

// MainI - interface containing main functions for handler
type MainI interface {
	ListenNotifications(ctx context.Context) error
}

type handlerObj struct {
	cfg      *config.Config
	log      logger.Logger
	rabbitMQ *rabbitmq.RabbitMQ
	service  TranscodeService
}

// NewHandler - returns the handler object
func NewHandler(args Options) MainI {
	return &handlerObj{
		cfg:      args.Config,
		log:      args.Log,
		rabbitMQ: args.RabbitMQ,
		service:  args.Service,
	}
}

// ListenNotifications consumes job messages one at a time until the
// context is cancelled. Consume errors trigger a reconnect.
func (h *handlerObj) ListenNotifications(ctx context.Context) error {
	h.log.Info("Started listening for notifications")

	for {
		msgs, err := h.rabbitMQ.Consume()
		if err != nil {
			h.log.Error("Error while consuming messages", logger.Error(err))
			if err := h.rabbitMQ.Reconnect(); err != nil {
				return err
			}
			time.Sleep(time.Second * 5)
			continue
		}

		closed := false
		for !closed {
			select {
			case <-ctx.Done():
				return nil
			case data, ok := <-msgs:
				if !ok {
					// channel closed, fall back into the reconnect loop
					closed = true
					break
				}
				h.HandleDelivery(ctx, data)
			}
		}
		time.Sleep(time.Second * 5)
	}
}

// HandleDelivery processes one delivery and always acknowledges it, on
// success and on failure alike: a bad job must never block the queue, and
// a message that cannot even be parsed would otherwise be redelivered
// forever.
func (h *handlerObj) HandleDelivery(ctx context.Context, data amqp.Delivery) {
	defer func() {
		if err := data.Ack(false); err != nil {
			h.log.Error("Error while acknowledging the message", logger.Error(err))
		}
	}()

	input := models.TranscodeWorkerInput{}
	if err := json.Unmarshal(data.Body, &input); err != nil {
		h.log.Error("received malformed job message",
			logger.String("code", errs.CodeMalformedMessage),
			logger.ByteString("raw_payload", data.Body),
			logger.Error(err),
		)
		return
	}
	if err := input.Validate(); err != nil {
		h.log.Error("received malformed job message",
			logger.String("code", errs.CodeMalformedMessage),
			logger.ByteString("raw_payload", data.Body),
			logger.Error(err),
		)
		return
	}

	// Stage errors are already logged with their codes by the pipeline.
	_, _ = h.service.Run(ctx, input)
}
