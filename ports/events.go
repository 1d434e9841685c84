package ports

import "context"

// EventPublisher publishes session lifecycle events to notify other
// instances
type EventPublisher interface {
	PublishLogin(ctx context.Context, username, steamID string) error
	PublishLogout(ctx context.Context, username string) error
	PublishConfirmation(ctx context.Context, kind, targetID, confirmationID string) error
}
