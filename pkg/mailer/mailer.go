package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/medimart-health/medimart-backend/pkg/config"
)

const defaultBaseURL = "https://api.sendgrid.com/v3"

// Mailer sends transactional email through the SendGrid v3 mail API.
type Mailer struct {
	apiKey  string
	from    string
	baseURL string
	http    *http.Client
}

// Message is a single outbound email.
type Message struct {
	To       string
	ToName   string
	Subject  string
	HTMLBody string
}

type sendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             emailAddress      `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
}

type personalization struct {
	To []emailAddress `json:"to"`
}

type emailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func New(cfg config.SendgridConfig) (*Mailer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("sendgrid api key is required")
	}
	if cfg.DefaultFrom == "" {
		return nil, fmt.Errorf("sendgrid from address is required")
	}
	return &Mailer{
		apiKey:  cfg.APIKey,
		from:    cfg.DefaultFrom,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

// WithBaseURL overrides the API endpoint. Test hook.
func (m *Mailer) WithBaseURL(url string) *Mailer {
	m.baseURL = url
	return m
}

// Send delivers a single message. SendGrid returns 202 on acceptance.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("recipient email is required")
	}

	payload, err := json.Marshal(sendRequest{
		Personalizations: []personalization{{
			To: []emailAddress{{Email: msg.To, Name: msg.ToName}},
		}},
		From:    emailAddress{Email: m.from},
		Subject: msg.Subject,
		Content: []content{{Type: "text/html", Value: msg.HTMLBody}},
	})
	if err != nil {
		return fmt.Errorf("marshal mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/mail/send", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build mail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling sendgrid: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("sendgrid send failed (%d): %s", resp.StatusCode, string(body))
	}
	return nil
}
