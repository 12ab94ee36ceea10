package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"talentscan/cv-screener/internal/config"
	"talentscan/cv-screener/internal/logger"
	"talentscan/cv-screener/internal/models"
)

// RunUpdate is the progress message published after every screened résumé.
type RunUpdate struct {
	RunID         string           `json:"run_id"`
	Status        models.RunStatus `json:"status"`
	Total         int              `json:"total"`
	Processed     int              `json:"processed"`
	Failed        int              `json:"failed"`
	CandidateName string           `json:"candidate_name,omitempty"`
	Score         *int             `json:"score,omitempty"`
	Error         string           `json:"error,omitempty"`
	Timestamp     time.Time        `json:"timestamp"`
}

type RunNotifier interface {
	Publish(ctx context.Context, update RunUpdate) error
	Close() error
}

// NewRunNotifier dials the broker when a URL is configured and otherwise returns a notifier that drops updates.
func NewRunNotifier(cfg config.BrokerConfig, log *zap.Logger) (RunNotifier, error) {
	if cfg.URL == "" {
		return noopNotifier{}, nil
	}
	return NewAMQPNotifier(cfg, log)
}

type amqpNotifier struct {
	conn     *amqp.Connection
	exchange string
	log      *zap.Logger
}

func NewAMQPNotifier(cfg config.BrokerConfig, log *zap.Logger) (RunNotifier, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}

	log = logger.Component(log, "notifier")
	log.Info("rabbitmq notifier ready", zap.String("exchange", cfg.Exchange))

	return &amqpNotifier{conn: conn, exchange: cfg.Exchange, log: log}, nil
}

// RoutingKey is the topic key consumers bind to for one run.
func RoutingKey(runID string) string {
	return "run." + runID
}

func (n *amqpNotifier) Publish(ctx context.Context, update RunUpdate) error {
	if update.Timestamp.IsZero() {
		update.Timestamp = time.Now().UTC()
	}

	body, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal run update: %w", err)
	}

	ch, err := n.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	err = ch.Publish(
		n.exchange,
		RoutingKey(update.RunID),
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Timestamp:   update.Timestamp,
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish run update: %w", err)
	}

	n.log.Debug("run update published",
		zap.String(logger.FieldRunID, update.RunID),
		zap.Int("processed", update.Processed),
	)
	return nil
}

func (n *amqpNotifier) Close() error {
	return n.conn.Close()
}

type noopNotifier struct{}

func (noopNotifier) Publish(context.Context, RunUpdate) error { return nil }
func (noopNotifier) Close() error                             { return nil }
