package ghl

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// Service exposes the bot-facing GHL operations with an explicit best-effort
// policy: failures at this boundary are logged and collapsed into benign
// defaults, so a webhook response is never blocked on CRM-side errors. The
// policy is deliberate and local to Service; Client and TokenManager always
// surface typed errors.
type Service struct {
	client *Client
	logger *slog.Logger
}

// NewService creates a Service on top of an authenticated Client.
func NewService(client *Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client: client,
		logger: logger,
	}
}

// ContactPipeline returns the pipeline name for a contact, or "" on any
// failure. Best-effort: errors are logged, not propagated.
func (s *Service) ContactPipeline(ctx context.Context, contactID string) string {
	data, err := s.client.Do(ctx, http.MethodGet, "contacts/"+contactID, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "contact pipeline lookup failed", "contact_id", contactID, "error", err)
		return ""
	}

	var contact struct {
		Pipeline json.RawMessage `json:"pipeline"`
	}
	if err := json.Unmarshal(data, &contact); err != nil {
		s.logger.ErrorContext(ctx, "decoding contact failed", "contact_id", contactID, "error", err)
		return ""
	}
	if len(contact.Pipeline) == 0 {
		return ""
	}

	// The pipeline field is an object with a name in current API responses,
	// but older payloads carry a bare string.
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(contact.Pipeline, &obj); err == nil && obj.Name != "" {
		return obj.Name
	}
	var name string
	if err := json.Unmarshal(contact.Pipeline, &name); err == nil {
		return name
	}

	s.logger.WarnContext(ctx, "unrecognized pipeline field", "contact_id", contactID)
	return ""
}

// SendSMS sends an outbound SMS through the conversations API. Returns false
// on any failure. Best-effort: errors are logged, not propagated.
func (s *Service) SendSMS(ctx context.Context, contactID, message string) bool {
	payload, err := json.Marshal(map[string]string{
		"contactId": contactID,
		"message":   message,
		"type":      "SMS",
		"direction": "outbound",
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "encoding sms payload failed", "contact_id", contactID, "error", err)
		return false
	}

	if _, err := s.client.Do(ctx, http.MethodPost, "conversations/messages", payload); err != nil {
		s.logger.ErrorContext(ctx, "sending sms failed", "contact_id", contactID, "error", err)
		return false
	}

	s.logger.InfoContext(ctx, "sms sent", "contact_id", contactID)
	return true
}
