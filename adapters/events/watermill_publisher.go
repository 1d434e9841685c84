package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/tradegate/steamauth/ports"
)

const (
	// LoginTopic is the topic for login events
	LoginTopic = "steamauth.login"

	// LogoutTopic is the topic for logout events
	LogoutTopic = "steamauth.logout"

	// ConfirmationTopic is the topic for allowed-confirmation events
	ConfirmationTopic = "steamauth.confirmation"
)

// LoginEvent represents a successful login
type LoginEvent struct {
	Username string    `json:"username"`
	SteamID  string    `json:"steamid"`
	At       time.Time `json:"at"`
}

// LogoutEvent represents a logout
type LogoutEvent struct {
	Username string    `json:"username"`
	At       time.Time `json:"at"`
}

// ConfirmationEvent represents an allowed mobile confirmation
type ConfirmationEvent struct {
	Kind           string    `json:"kind"`
	TargetID       string    `json:"target_id"`
	ConfirmationID string    `json:"confirmation_id"`
	At             time.Time `json:"at"`
}

// WatermillPublisher implements the EventPublisher interface using
// Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishLogin publishes a login event
func (p *WatermillPublisher) PublishLogin(ctx context.Context, username, steamID string) error {
	return p.publish(LoginTopic, LoginEvent{
		Username: username,
		SteamID:  steamID,
		At:       time.Now(),
	})
}

// PublishLogout publishes a logout event
func (p *WatermillPublisher) PublishLogout(ctx context.Context, username string) error {
	return p.publish(LogoutTopic, LogoutEvent{
		Username: username,
		At:       time.Now(),
	})
}

// PublishConfirmation publishes an allowed-confirmation event
func (p *WatermillPublisher) PublishConfirmation(ctx context.Context, kind, targetID, confirmationID string) error {
	return p.publish(ConfirmationTopic, ConfirmationEvent{
		Kind:           kind,
		TargetID:       targetID,
		ConfirmationID: confirmationID,
		At:             time.Now(),
	})
}

func (p *WatermillPublisher) publish(topic string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
