package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/justapithecus/autotiny/adapter"
	"github.com/justapithecus/autotiny/adapter/amqp"
	"github.com/justapithecus/autotiny/adapter/nats"
	"github.com/justapithecus/autotiny/adapter/redis"
	"github.com/justapithecus/autotiny/adapter/webhook"
	"github.com/justapithecus/autotiny/cli/config"
	"github.com/justapithecus/autotiny/runtime"
	"github.com/justapithecus/autotiny/types"
)

// publishTimeout bounds the whole notification, retries included.
const publishTimeout = 30 * time.Second

// buildAdapter creates the configured notifier, or nil when none is set.
func buildAdapter(ac config.AdapterConfig) (adapter.Adapter, error) {
	switch ac.Type {
	case "":
		return nil, nil
	case "webhook":
		cfg := webhook.Config{
			URL:     ac.URL,
			Headers: ac.Headers,
			Secret:  ac.Secret,
			Timeout: ac.Timeout.Duration,
			Retries: webhook.DefaultRetries,
		}
		if ac.Retries != nil {
			cfg.Retries = *ac.Retries
		}
		return webhook.New(cfg)
	case "redis":
		cfg := redis.Config{
			URL:        ac.URL,
			Channel:    ac.Channel,
			LastRunKey: ac.LastRunKey,
			Timeout:    ac.Timeout.Duration,
			Retries:    redis.DefaultRetries,
		}
		if ac.Retries != nil {
			cfg.Retries = *ac.Retries
		}
		return redis.New(cfg)
	case "nats":
		cfg := nats.Config{
			URL:     ac.URL,
			Subject: ac.Subject,
			Timeout: ac.Timeout.Duration,
			Retries: nats.DefaultRetries,
		}
		if ac.Retries != nil {
			cfg.Retries = *ac.Retries
		}
		return nats.New(cfg)
	case "amqp":
		cfg := amqp.Config{
			URL:        ac.URL,
			Exchange:   ac.Exchange,
			RoutingKey: ac.RoutingKey,
			Timeout:    ac.Timeout.Duration,
			Retries:    amqp.DefaultRetries,
		}
		if ac.Retries != nil {
			cfg.Retries = *ac.Retries
		}
		return amqp.New(cfg)
	default:
		return nil, fmt.Errorf("unknown adapter type %q (must be webhook, redis, nats or amqp)", ac.Type)
	}
}

// buildRunCompletedEvent converts a finished run into the notification payload.
func buildRunCompletedEvent(report *runtime.RunReport, reportPath string, now time.Time) *adapter.RunCompletedEvent {
	return &adapter.RunCompletedEvent{
		EventType:  adapter.EventTypeRunCompleted,
		RunID:      report.RunID,
		StopReason: string(report.StopReason),
		Error:      report.Error,
		Marker:     report.Marker,
		Total:      report.Stats.Total,
		Processed:  report.Stats.Processed,
		Skipped:    report.Stats.Skipped,
		Errored:    report.Stats.Errored,
		Remaining:  report.Stats.Remaining,
		BytesSaved: report.Stats.BytesSaved(),
		ReportPath: reportPath,
		Timestamp:  now.UTC().Format(time.RFC3339),
		DurationMs: report.DurationMs,
		Version:    types.Version,
	}
}

// publish sends the event on a fresh context so an interrupted run still
// notifies. Failures never change the run's exit code.
func publish(a adapter.Adapter, event *adapter.RunCompletedEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	return a.Publish(ctx, event)
}
