// Package kafka streams audit events to a Kafka topic. Records are keyed by
// claim id so one claim's history stays ordered within a partition.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	id "claimdesk/pkg/domain"
	audit "claimdesk/pkg/platform/audit"
)

// Store implements audit.Store by producing each event synchronously.
type Store struct {
	client *kgo.Client
	topic  string
}

// New connects to brokers. Extra kgo options are appended after the defaults.
func New(brokers []string, topic string, opts ...kgo.Opt) (*Store, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if topic == "" {
		return nil, errors.New("kafka audit topic is required")
	}
	base := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(5 * time.Millisecond),
	}
	client, err := kgo.NewClient(append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Store{client: client, topic: topic}, nil
}

// EnsureTopic creates the audit topic when it does not exist yet.
func (s *Store) EnsureTopic(ctx context.Context, partitions int32, replicationFactor int16) error {
	adm := kadm.NewClient(s.client)
	resp, err := adm.CreateTopics(ctx, partitions, replicationFactor, nil, s.topic)
	if err != nil {
		return fmt.Errorf("create audit topic: %w", err)
	}
	for _, r := range resp.Sorted() {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create audit topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

// Ping checks that at least one broker answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// payload is the JSON record value.
type payload struct {
	ID         string `json:"id"`
	Category   string `json:"category"`
	Timestamp  string `json:"timestamp"`
	ClaimID    string `json:"claimId"`
	Subject    string `json:"subject,omitempty"`
	Action     string `json:"action"`
	FromStatus string `json:"fromStatus,omitempty"`
	ToStatus   string `json:"toStatus,omitempty"`
	Reason     string `json:"reason,omitempty"`
	RequestID  string `json:"requestId,omitempty"`
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}
	value, err := json.Marshal(payload{
		ID:         uuid.NewString(),
		Category:   string(category),
		Timestamp:  event.Timestamp.UTC().Format(time.RFC3339Nano),
		ClaimID:    event.ClaimID.String(),
		Subject:    event.Subject,
		Action:     event.Action,
		FromStatus: event.FromStatus,
		ToStatus:   event.ToStatus,
		Reason:     event.Reason,
		RequestID:  event.RequestID,
	})
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.ClaimID.String()),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "action", Value: []byte(event.Action)},
			{Key: "category", Value: []byte(category)},
		},
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Close flushes pending records and closes the client.
func (s *Store) Close() {
	s.client.Close()
}

// Decode parses a record value produced by Append. Consumers use it to
// rebuild events.
func Decode(value []byte) (audit.Event, error) {
	var p payload
	if err := json.Unmarshal(value, &p); err != nil {
		return audit.Event{}, fmt.Errorf("unmarshal audit payload: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, p.Timestamp)
	if err != nil {
		return audit.Event{}, fmt.Errorf("parse audit timestamp: %w", err)
	}
	event := audit.Event{
		Category:   audit.EventCategory(p.Category),
		Timestamp:  ts,
		Subject:    p.Subject,
		Action:     p.Action,
		FromStatus: p.FromStatus,
		ToStatus:   p.ToStatus,
		Reason:     p.Reason,
		RequestID:  p.RequestID,
	}
	if p.ClaimID != "" {
		claimID, err := id.ParseClaimID(p.ClaimID)
		if err != nil {
			return audit.Event{}, fmt.Errorf("parse audit claim id: %w", err)
		}
		event.ClaimID = claimID
	}
	return event, nil
}
