package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tell-all/pkg/config"
	"tell-all/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	MailQueueName        = "mail_queue"
	NotificationExchange = "notifications"
	MailRoutingKey       = "mail"
)

var ErrInvalidTask = errors.New("invalid mail task")

// MailTask is one outbound message addressed to every recipient at once.
type MailTask struct {
	Type       string    `json:"type"`
	Recipients []string  `json:"recipients"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	Priority   int       `json:"priority"`
	CreatedAt  time.Time `json:"created_at"`
}

func (t MailTask) Validate() error {
	if len(t.Recipients) == 0 {
		return fmt.Errorf("%w: no recipients", ErrInvalidTask)
	}
	if t.Subject == "" {
		return fmt.Errorf("%w: empty subject", ErrInvalidTask)
	}
	return nil
}

type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *logger.Logger
}

func NewRabbitMQClient(cfg *config.Config, log *logger.Logger) (*Client, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%s/",
		cfg.RabbitMQUser,
		cfg.RabbitMQPassword,
		cfg.RabbitMQHost,
		cfg.RabbitMQPort,
	)

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		NotificationExchange, // name
		"direct",             // type
		true,                 // durable
		false,                // auto-deleted
		false,                // internal
		false,                // no-wait
		nil,                  // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = channel.QueueDeclare(
		MailQueueName, // name
		true,          // durable
		false,         // delete when unused
		false,         // exclusive
		false,         // no-wait
		amqp.Table{
			"x-max-priority": 10,
		},
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	err = channel.QueueBind(
		MailQueueName,        // queue name
		MailRoutingKey,       // routing key
		NotificationExchange, // exchange
		false,
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	log.Info("Connected to RabbitMQ at %s:%s", cfg.RabbitMQHost, cfg.RabbitMQPort)

	return &Client{
		conn:    conn,
		channel: channel,
		logger:  log,
	}, nil
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// PublishMailTask publishes a persistent mail task with its priority clamped to 0-10.
func (c *Client) PublishMailTask(ctx context.Context, task MailTask) error {
	if err := task.Validate(); err != nil {
		return err
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}

	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	err = c.channel.PublishWithContext(ctx,
		NotificationExchange, // exchange
		MailRoutingKey,       // routing key
		false,                // mandatory
		false,                // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			Priority:     clampPriority(task.Priority),
			DeliveryMode: amqp.Persistent,
			Timestamp:    task.CreatedAt,
		},
	)
	if err != nil {
		c.logger.Error("[RABBITMQ] Failed to publish message to exchange=%s, routing_key=%s: %v", NotificationExchange, MailRoutingKey, err)
		return fmt.Errorf("failed to publish message: %w", err)
	}

	c.logger.Info("[RABBITMQ] Published mail task to exchange=%s, routing_key=%s: type=%s recipients=%d", NotificationExchange, MailRoutingKey, task.Type, len(task.Recipients))
	return nil
}

// ConsumeMailTasks acks handled tasks, drops undecodable ones and requeues
// tasks whose handler failed.
func (c *Client) ConsumeMailTasks(handler func(task MailTask) error) error {
	msgs, err := c.channel.Consume(
		MailQueueName, // queue
		"",            // consumer
		false,         // auto-ack
		false,         // exclusive
		false,         // no-local
		false,         // no-wait
		nil,           // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("[RABBITMQ] Started consuming from mail queue: %s", MailQueueName)

	go func() {
		for msg := range msgs {
			switch Dispatch(msg.Body, handler) {
			case Ack:
				msg.Ack(false)
			case Drop:
				c.logger.Error("[RABBITMQ] Dropping undecodable mail task, body=%s", string(msg.Body))
				msg.Nack(false, false)
			case Requeue:
				c.logger.Warn("[RABBITMQ] Mail task handler failed, requeueing")
				msg.Nack(false, true)
			}
		}
	}()

	return nil
}

// GetQueueLength returns the number of messages waiting in the mail queue.
func (c *Client) GetQueueLength() (int, error) {
	queue, err := c.channel.QueueInspect(MailQueueName)
	if err != nil {
		return 0, err
	}
	return queue.Messages, nil
}

type Outcome int

const (
	Ack Outcome = iota
	Drop
	Requeue
)

// Dispatch decodes body and runs handler, reporting what to do with the delivery.
func Dispatch(body []byte, handler func(task MailTask) error) Outcome {
	var task MailTask
	if err := json.Unmarshal(body, &task); err != nil {
		return Drop
	}
	if err := task.Validate(); err != nil {
		return Drop
	}
	if err := handler(task); err != nil {
		if errors.Is(err, ErrInvalidTask) {
			return Drop
		}
		return Requeue
	}
	return Ack
}

func clampPriority(p int) uint8 {
	if p < 0 {
		return 0
	}
	if p > 10 {
		return 10
	}
	return uint8(p)
}
