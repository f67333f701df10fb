package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/layer-3/pqauth/core"
	"github.com/layer-3/pqauth/ports"
)

const (
	TopicLogout = "pqauth.logout"
	TopicAudit  = "pqauth.audit"
)

// LogoutEvent represents a logout event
type LogoutEvent struct {
	Subject string `json:"subject"`
	TokenID string `json:"token_id"`
}

// AuditEvent mirrors one appended audit entry
type AuditEvent struct {
	Entry  string `json:"entry"`
	Action string `json:"action"`
	Actor  string `json:"actor"`
	At     int64  `json:"at"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher   message.Publisher
	logoutTopic string
	auditTopic  string
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{
		publisher:   publisher,
		logoutTopic: TopicLogout,
		auditTopic:  TopicAudit,
	}
}

// PublishLogout publishes a logout event
func (p *WatermillPublisher) PublishLogout(ctx context.Context, subject string, tokenID string) error {
	event := LogoutEvent{
		Subject: subject,
		TokenID: tokenID,
	}

	return p.publish(ctx, p.logoutTopic, tokenID, event)
}

// PublishAudit publishes an audit event
func (p *WatermillPublisher) PublishAudit(ctx context.Context, entry core.AuditEntry, action core.AuditAction, actor string, at time.Time) error {
	event := AuditEvent{
		Entry:  entry.String(),
		Action: string(action),
		Actor:  actor,
		At:     at.Unix(),
	}

	return p.publish(ctx, p.auditTopic, watermill.NewUUID(), event)
}

func (p *WatermillPublisher) publish(ctx context.Context, topic, id string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(id, payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
