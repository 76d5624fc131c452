package repository

import (
	"context"
	"time"

	"ChartPulse/internal/domain/models"
	"ChartPulse/internal/domain/repository"
	pkgkafka "ChartPulse/pkg/kafka"
)

// KafkaPublisher emits pipeline run events, keyed by symbol so per-symbol
// consumers keep ordering.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) PublishSymbolResult(ctx context.Context, runID string, res models.SymbolResult) error {
	payload := map[string]interface{}{
		"event":       "symbol_result",
		"run_id":      runID,
		"symbol":      res.Symbol,
		"status":      string(res.Status),
		"rows":        res.Rows,
		"duration_ms": res.Duration.Milliseconds(),
	}
	if res.Err != "" {
		payload["error"] = res.Err
	}
	return p.producer.Publish(ctx, p.topic, []byte(res.Symbol), payload)
}

func (p *KafkaPublisher) PublishRunSummary(ctx context.Context, sum *models.RunSummary) error {
	return p.producer.Publish(ctx, p.topic, []byte(sum.RunID), map[string]interface{}{
		"event":       "run_summary",
		"run_id":      sum.RunID,
		"mode":        sum.Mode,
		"state":       string(sum.State),
		"started_at":  sum.StartedAt.Format(time.RFC3339),
		"finished_at": sum.FinishedAt.Format(time.RFC3339),
		"duration_ms": sum.Duration.Milliseconds(),
		"succeeded":   sum.Succeeded,
		"failed":      sum.Failed,
		"timed_out":   sum.TimedOut,
		"total":       sum.Total(),
	})
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NopPublisher is used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishSymbolResult(context.Context, string, models.SymbolResult) error {
	return nil
}
func (NopPublisher) PublishRunSummary(context.Context, *models.RunSummary) error { return nil }
func (NopPublisher) Close() error                                                { return nil }
