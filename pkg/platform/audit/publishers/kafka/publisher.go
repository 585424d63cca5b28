// Package kafka ships audit events to a Kafka topic for downstream consumers.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "cmsportal/pkg/platform/audit"
)

// record is the wire form of an audit event on the topic.
type record struct {
	ID              string    `json:"id"`
	Type            string    `json:"type"`
	Category        string    `json:"category"`
	Timestamp       time.Time `json:"timestamp"`
	UserID          string    `json:"user_id,omitempty"`
	DataFiduciaryID string    `json:"data_fiduciary_id,omitempty"`
	ReferenceID     string    `json:"reference_id,omitempty"`
	ArtifactID      string    `json:"artifact_id,omitempty"`
	PurposeIDs      []string  `json:"purpose_ids,omitempty"`
	Status          string    `json:"status,omitempty"`
	Detail          string    `json:"detail,omitempty"`
	Device          string    `json:"device,omitempty"`
	ClientIP        string    `json:"client_ip,omitempty"`
	RequestID       string    `json:"request_id,omitempty"`
}

func toRecord(e audit.Event) record {
	return record{
		ID:              e.ID,
		Type:            string(e.Type),
		Category:        string(e.Type.Category()),
		Timestamp:       e.Timestamp.UTC(),
		UserID:          e.UserID,
		DataFiduciaryID: e.DataFiduciaryID,
		ReferenceID:     e.ReferenceID,
		ArtifactID:      e.ArtifactID,
		PurposeIDs:      e.PurposeIDs,
		Status:          e.Status,
		Detail:          e.Detail,
		Device:          e.Device,
		ClientIP:        e.ClientIP,
		RequestID:       e.RequestID,
	}
}

// Publisher produces one record per event, keyed by user id so a user's
// history stays within a partition.
type Publisher struct {
	client *kgo.Client
	topic  string
}

// New connects to the brokers. The client is lazy; no broker is contacted
// until the first produce or EnsureTopic.
func New(brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: no seed brokers configured")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka: create client: %w", err)
	}
	return &Publisher{client: client, topic: topic}, nil
}

// EnsureTopic creates the audit topic with a single partition when it does
// not exist yet.
func (p *Publisher) EnsureTopic(ctx context.Context) error {
	adm := kadm.NewClient(p.client)
	resp, err := adm.CreateTopics(ctx, 1, -1, nil, p.topic)
	if err != nil {
		return fmt.Errorf("kafka: create topic: %w", err)
	}
	for _, t := range resp {
		if t.Err != nil && !errors.Is(t.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("kafka: create topic %s: %w", t.Topic, t.Err)
		}
	}
	return nil
}

// Append produces the event synchronously.
func (p *Publisher) Append(ctx context.Context, event audit.Event) error {
	value, err := json.Marshal(toRecord(event))
	if err != nil {
		return fmt.Errorf("kafka: encode event: %w", err)
	}
	rec := &kgo.Record{
		Key:   []byte(event.UserID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("kafka: produce: %w", err)
	}
	return nil
}

func (p *Publisher) Close() {
	p.client.Close()
}
