package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/athebyme/gomarket-sync/pkg/interfaces"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/models"
)

type KafkaEvent = string

const (
	SyncCompletedEvent KafkaEvent = "sync_completed"

	DefaultTopic = "gomarket.sync.events"
)

// SyncCompleted событие о завершении синхронизации одного аккаунта
type SyncCompleted struct {
	EventType  KafkaEvent                            `json:"event_type"`
	RunID      string                                `json:"run_id"`
	Trigger    string                                `json:"trigger,omitempty"`
	ClientID   string                                `json:"client_id"`
	Account    string                                `json:"account"`
	Failed     bool                                  `json:"failed"`
	StartedAt  time.Time                             `json:"started_at"`
	FinishedAt time.Time                             `json:"finished_at"`
	Totals     map[models.Domain]models.DomainTotals `json:"totals"`
	Results    []models.DomainResult                 `json:"results"`
}

// EventPublisher публикует по событию на каждый аккаунт отчёта
type EventPublisher struct {
	messaging interfaces.MessagingPort
	topic     string
}

func NewEventPublisher(messaging interfaces.MessagingPort, topic string) *EventPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &EventPublisher{messaging: messaging, topic: topic}
}

func (p *EventPublisher) Name() string { return "kafka" }

func (p *EventPublisher) Publish(ctx context.Context, report *models.RunReport) error {
	for _, clientID := range accountsOf(report) {
		part := report.ForAccount(clientID)
		event := SyncCompleted{
			EventType:  SyncCompletedEvent,
			RunID:      report.RunID,
			Trigger:    report.Trigger,
			ClientID:   clientID,
			Account:    part.Results[0].Account,
			Failed:     part.Failed(),
			StartedAt:  report.StartedAt,
			FinishedAt: report.FinishedAt,
			Totals:     part.Totals(),
			Results:    part.Results,
		}
		value, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("encode %s event: %w", SyncCompletedEvent, err)
		}

		err = p.messaging.Publish(ctx, &interfaces.Message{
			Topic:       p.topic,
			Key:         clientID,
			Value:       value,
			Headers:     map[string]string{"event_type": SyncCompletedEvent, "run_id": report.RunID},
			TenantID:    clientID,
			PublishedAt: report.FinishedAt,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// accountsOf аккаунты отчёта в порядке появления
func accountsOf(report *models.RunReport) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, res := range report.Results {
		if _, ok := seen[res.ClientID]; ok {
			continue
		}
		seen[res.ClientID] = struct{}{}
		out = append(out, res.ClientID)
	}
	return out
}
