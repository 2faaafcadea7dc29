package ports

import "context"

// EventPublisher notifies other services about auth domain events. Publishing
// is best-effort: callers log failures and carry on.
type EventPublisher interface {
	PublishRegistered(ctx context.Context, subjectID, username string) error
	PublishLoggedIn(ctx context.Context, subjectID string) error
	PublishLoggedOut(ctx context.Context, subjectID string) error
	PublishPasswordChanged(ctx context.Context, subjectID string) error
}
