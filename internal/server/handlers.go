package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Canned replies selected by the contact's pipeline.
const (
	salesReply   = "Thank you for your interest! A sales representative will contact you shortly."
	genericReply = "Thank you for your message. How can we help you today?"
)

const consentSuccessPage = `<html>
	<body>
		<h1>Authorization Successful!</h1>
		<p>You can close this window now.</p>
	</body>
</html>
`

// webhookPayload is the inbound CRM webhook shape. Unknown fields are
// ignored; only message events are acted on.
type webhookPayload struct {
	Type      string `json:"type"`
	ContactID string `json:"contactId"`
	Message   struct {
		Text string `json:"text"`
	} `json:"message"`
}

// handleWebhook accepts the CRM event and acknowledges immediately; the
// pipeline lookup and reply happen in the background so the CRM's webhook
// delivery is never blocked on our upstream calls.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(ctx, w, "invalid webhook payload", http.StatusBadRequest)
		return
	}

	if payload.Type == "message" && payload.ContactID != "" && payload.Message.Text != "" {
		s.dispatch(payload.ContactID, payload.Message.Text)
	} else {
		s.logger.DebugContext(ctx, "ignoring webhook event", "type", payload.Type)
	}

	writeJSON(ctx, w, map[string]string{"status": "success"}, http.StatusOK)
}

// dispatch hands the message to a background goroutine tracked by the
// server's waitgroup so Shutdown can drain it.
func (s *Server) dispatch(contactID, text string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// Detached from the request context: the webhook response has already
		// been sent by the time this work runs.
		ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
		defer cancel()
		s.process(ctx, contactID, text)
	}()
}

// process looks up the contact's pipeline and sends the matching reply.
func (s *Server) process(ctx context.Context, contactID, text string) {
	pipeline := s.crm.ContactPipeline(ctx, contactID)
	s.logger.InfoContext(ctx, "processing message", "contact_id", contactID, "pipeline", pipeline)

	reply := genericReply
	if strings.EqualFold(pipeline, "sales") {
		reply = salesReply
	}

	if !s.crm.SendSMS(ctx, contactID, reply) {
		s.logger.ErrorContext(ctx, "failed to send reply", "contact_id", contactID)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, map[string]string{"status": "healthy"}, http.StatusOK)
}

// handleAuthorize returns the provider consent URL with a fresh state value.
func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	writeJSON(r.Context(), w, map[string]string{
		"authorization_url": s.consent.AuthURL(state),
	}, http.StatusOK)
}

// handleCallback completes the one-time consent flow: exchanges the code and
// persists the resulting pair as current.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	code := r.URL.Query().Get("code")
	if code == "" {
		writeJSONError(ctx, w, "missing code parameter", http.StatusBadRequest)
		return
	}

	pair, err := s.consent.Exchange(ctx, code)
	if err != nil {
		s.logger.ErrorContext(ctx, "code exchange failed", "error", err)
		writeJSONError(ctx, w, "code exchange failed", http.StatusBadGateway)
		return
	}

	if err := s.tokens.SetTokens(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		s.logger.ErrorContext(ctx, "persisting token pair failed", "error", err)
		writeJSONError(ctx, w, "failed to store tokens", http.StatusInternalServerError)
		return
	}

	s.logger.InfoContext(ctx, "oauth consent completed")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(consentSuccessPage))
}
