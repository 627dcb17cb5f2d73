package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"campaignd/internal/domain"
	logx "campaignd/pkg/logx"
)

// EmailRequest is one email to send through the relay.
type EmailRequest struct {
	ContactID string
	ToEmail   string
	ToName    string
	Subject   string
	Message   string
	MediaURL  string
}

type emailBody struct {
	ToEmail  string `json:"to_email"`
	ToName   string `json:"to_name"`
	Subject  string `json:"subject"`
	Message  string `json:"message"`
	MediaURL string `json:"media_url,omitempty"`
}

type emailResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// EmailAdapter sends campaign emails through the internal email relay.
type EmailAdapter struct {
	url      string
	timeout  time.Duration
	relay    relayClient
	fallback string
	now      func() time.Time
	log      logx.Logger
}

func NewEmailAdapter(cfg Config, log logx.Logger) *EmailAdapter {
	cfg = cfg.withDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	return &EmailAdapter{
		url:      cfg.EmailURL,
		timeout:  cfg.EmailTimeout,
		relay:    relayClient{http: cfg.HTTPClient},
		fallback: cfg.Coach.FallbackName,
		now:      cfg.Now,
		log:      log,
	}
}

// Send posts one email. Success requires HTTP 200 and success=true in the
// response body.
func (a *EmailAdapter) Send(ctx context.Context, req EmailRequest) domain.Outcome {
	fail := func(msg string) domain.Outcome {
		a.log.Warn("email dispatch failed",
			logx.String("contact_id", req.ContactID),
			logx.String("to", req.ToEmail),
			logx.String("err", msg),
		)
		return FormatResult(req.ContactID, req.ToName, domain.ChannelEmail, false, msg, "", a.now())
	}

	to := strings.TrimSpace(req.ToEmail)
	if to == "" {
		return fail("missing email address")
	}
	body := emailBody{
		ToEmail: to,
		ToName:  req.ToName,
		Subject: req.Subject,
		Message: Personalize(req.Message, req.ToName, a.fallback),
	}
	if u := strings.TrimSpace(req.MediaURL); u != "" {
		body.MediaURL = u
	}

	status, rb, err := a.relay.postJSON(ctx, a.url, a.timeout, body)
	if err != nil {
		return fail(err.Error())
	}

	var resp emailResponse
	decodeErr := json.Unmarshal(rb, &resp)
	if status == http.StatusOK && decodeErr == nil && resp.Success {
		a.log.Debug("email sent", logx.String("contact_id", req.ContactID), logx.String("to", to))
		return FormatResult(req.ContactID, req.ToName, domain.ChannelEmail, true, "", "", a.now())
	}
	if decodeErr == nil && strings.TrimSpace(resp.Error) != "" {
		return fail(resp.Error)
	}
	if status != http.StatusOK {
		return fail(fmt.Sprintf("HTTP %d", status))
	}
	return fail("email relay reported failure")
}
