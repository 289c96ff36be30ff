package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/medimart-health/medimart-backend/pkg/config"
)

const defaultBaseURL = "https://api.twilio.com/2010-04-01"

// Sender delivers SMS through the Twilio messages API.
type Sender struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	http       *http.Client
}

type messageResponse struct {
	SID          string `json:"sid"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

func New(cfg config.SMSConfig) (*Sender, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("sms account sid and auth token are required")
	}
	if cfg.FromNumber == "" {
		return nil, fmt.Errorf("sms from number is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Sender{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		from:       cfg.FromNumber,
		baseURL:    baseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

// Send delivers one SMS to the given E.164 number.
func (s *Sender) Send(ctx context.Context, to, body string) error {
	if to == "" {
		return fmt.Errorf("recipient phone number is required")
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", s.from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", s.baseURL, s.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.accountSID, s.authToken)

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling sms provider: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("reading sms response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var msg messageResponse
		if err := json.Unmarshal(raw, &msg); err == nil && msg.ErrorMessage != "" {
			return fmt.Errorf("sms send failed (%d): %s", resp.StatusCode, msg.ErrorMessage)
		}
		return fmt.Errorf("sms send failed with status %d", resp.StatusCode)
	}
	return nil
}
