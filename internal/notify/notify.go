package notify

import "context"

// Dispatcher sends one push notification call to a batch of device tokens.
// Delivery is best-effort: callers log failures and never retry synchronously,
// and a dispatch failure is never surfaced to the message sender.
type Dispatcher interface {
	Send(ctx context.Context, tokens []string, title, body string) error
}
