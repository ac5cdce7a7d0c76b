package repository

import (
	"context"
	"fmt"
	"strings"

	"FinRisk/internal/domain/models"
	domrepo "FinRisk/internal/domain/repository"
	applogger "FinRisk/pkg/logger"
)

// MessageProducer is the slice of pkg/kafka.Producer the publisher needs.
type MessageProducer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaReportPublisher implements ReportPublisher for Kafka. Reports are keyed by their
// ticker set so every report for one portfolio lands on the same partition.
type KafkaReportPublisher struct {
	producer MessageProducer
	topic    string
	l        *applogger.Logger
}

func NewKafkaReportPublisher(producer MessageProducer, topic string) *KafkaReportPublisher {
	return &KafkaReportPublisher{producer: producer, topic: topic, l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (p *KafkaReportPublisher) SetLogger(l *applogger.Logger) { p.l = l }

var _ domrepo.ReportPublisher = (*KafkaReportPublisher)(nil)

func (p *KafkaReportPublisher) Publish(ctx context.Context, r *models.RiskReport) error {
	key := []byte(strings.Join(r.Tickers, ","))
	if err := p.producer.Publish(ctx, p.topic, key, r); err != nil {
		p.l.Error("kafka publish failed",
			applogger.String("topic", p.topic),
			applogger.String("report_id", r.ID),
			applogger.Error(err),
		)
		return fmt.Errorf("publish report %s: %w", r.ID, err)
	}
	p.l.Info("report published",
		applogger.String("topic", p.topic),
		applogger.String("report_id", r.ID),
	)
	return nil
}

func (p *KafkaReportPublisher) Close() error {
	return p.producer.Close()
}
