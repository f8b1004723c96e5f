// Package notify announces newly published versions to an external webhook.
//
// Delivery is best-effort: a single POST, no retries, and the response body is
// never inspected. Callers decide what a failed send means for them.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/obentoo/nugetwatch/internal/common/httpclient"
)

// ErrNoEndpoint is returned when a webhook has no target URL
var ErrNoEndpoint = errors.New("notification endpoint is not configured")

// Message is the JSON body posted to the webhook.
type Message struct {
	Message string `json:"message"`
}

// NewReleaseMessage builds the announcement for version of pkg.
func NewReleaseMessage(pkg, version string) Message {
	return Message{
		Message: fmt.Sprintf("New version of %s has been published to NuGet. Version %s", pkg, version),
	}
}

// Notifier delivers a message.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Webhook posts messages as JSON to a fixed URL.
type Webhook struct {
	endpoint string
	client   *httpclient.Client
}

// NewWebhook creates a webhook notifier. A nil client gets the defaults.
func NewWebhook(endpoint string, client *httpclient.Client) *Webhook {
	if client == nil {
		client = httpclient.New()
	}
	return &Webhook{
		endpoint: strings.TrimSpace(endpoint),
		client:   client,
	}
}

// Endpoint returns the target URL.
func (w *Webhook) Endpoint() string {
	return w.endpoint
}

// Notify posts msg once.
func (w *Webhook) Notify(ctx context.Context, msg Message) error {
	if w.endpoint == "" {
		return ErrNoEndpoint
	}
	if err := w.client.PostJSON(ctx, w.endpoint, msg); err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	return nil
}
