package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/forumhub/gatekeeper/ports"
)

// Topics for auth domain events.
const (
	TopicRegistered      = "auth.registered"
	TopicLoggedIn        = "auth.logged_in"
	TopicLoggedOut       = "auth.logged_out"
	TopicPasswordChanged = "auth.password_changed"
)

// RegisteredEvent announces a new identity.
type RegisteredEvent struct {
	SubjectID string `json:"subject_id"`
	Username  string `json:"username"`
}

// SubjectEvent carries just the identity an event concerns.
type SubjectEvent struct {
	SubjectID string `json:"subject_id"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill.
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher.
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishRegistered publishes an auth.registered event.
func (p *WatermillPublisher) PublishRegistered(ctx context.Context, subjectID, username string) error {
	return p.publish(TopicRegistered, RegisteredEvent{SubjectID: subjectID, Username: username})
}

// PublishLoggedIn publishes an auth.logged_in event.
func (p *WatermillPublisher) PublishLoggedIn(ctx context.Context, subjectID string) error {
	return p.publish(TopicLoggedIn, SubjectEvent{SubjectID: subjectID})
}

// PublishLoggedOut publishes an auth.logged_out event.
func (p *WatermillPublisher) PublishLoggedOut(ctx context.Context, subjectID string) error {
	return p.publish(TopicLoggedOut, SubjectEvent{SubjectID: subjectID})
}

// PublishPasswordChanged publishes an auth.password_changed event.
func (p *WatermillPublisher) PublishPasswordChanged(ctx context.Context, subjectID string) error {
	return p.publish(TopicPasswordChanged, SubjectEvent{SubjectID: subjectID})
}

func (p *WatermillPublisher) publish(topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
