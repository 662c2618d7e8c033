package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"

	"gitlab.com/videotom/transcode-worker/config"
	"gitlab.com/videotom/transcode-worker/pkg/logger"
)

// RabbitMQ - structure that contains the rabbit connection, channel and
// the declared input queue
type RabbitMQ struct {
	Queue   amqp.Queue
	Channel *amqp.Channel
	conn    *amqp.Connection
	Logger  logger.Logger
	Cfg     config.Config
}

// New - dials rabbitmq, opens a channel and declares the listen queue.
// Qos 1 keeps the worker on one job at a time.
func New(cfg *config.Config, log logger.Logger) (*RabbitMQ, error) {
	log.Info(
		"Dialing to rabbitmq host with",
		logger.String("host", cfg.RabbitMqHost),
		logger.String("user", cfg.RabbitMqUser),
	)

	r := &RabbitMQ{
		Logger: log,
		Cfg:    *cfg,
	}
	if err := r.connect(); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *RabbitMQ) connect() error {
	conn, err := amqp.Dial(
		fmt.Sprintf(
			"amqp://%s:%s@%s:%s/",
			r.Cfg.RabbitMqUser,
			r.Cfg.RabbitMqPassword,
			r.Cfg.RabbitMqHost,
			r.Cfg.RabbitMqPort,
		),
	)
	if err != nil {
		r.Logger.Error("Error while connecting to rabbitmq", logger.Error(err))
		return err
	}

	r.Logger.Info("RabbitMQ connection is created...")

	channel, err := conn.Channel()
	if err != nil {
		r.Logger.Error("Error while connecting to channel", logger.Error(err))
		return err
	}

	r.Logger.Info("RabbitMQ channel is created...")

	queue, err := channel.QueueDeclare(
		r.Cfg.ListenQueue,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		r.Logger.Error("Error while declaring queue", logger.Error(err))
		return err
	}

	if err := channel.Qos(1, 0, false); err != nil {
		r.Logger.Error("Error while setting Qos", logger.Error(err))
		return err
	}

	r.conn = conn
	r.Channel = channel
	r.Queue = queue
	return nil
}

// Consume - starts delivering messages from the listen queue. Manual
// acks; the handler decides when a message leaves the queue.
func (r *RabbitMQ) Consume() (<-chan amqp.Delivery, error) {
	return r.Channel.Consume(
		r.Queue.Name,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
}

// Reconnect re-dials and re-declares after a dropped connection.
func (r *RabbitMQ) Reconnect() error {
	r.Logger.Info("reconnecting to rabbitmq")
	return r.connect()
}

// Close shuts the connection down gracefully.
func (r *RabbitMQ) Close() error {
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
