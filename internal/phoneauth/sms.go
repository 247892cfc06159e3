package phoneauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/medigrid-hms/backend/config"
)

// SMSSender delivers OTP codes.
type SMSSender interface {
	Configured() bool
	Send(ctx context.Context, phone, message string) error
}

// HTTPSMSSender posts messages to a JSON SMS gateway.
type HTTPSMSSender struct {
	cfg    config.SMSConfig
	client *http.Client
}

func NewHTTPSMSSender(cfg config.SMSConfig) *HTTPSMSSender {
	return &HTTPSMSSender{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Configured reports whether a gateway is set up. Unconfigured deployments
// answer phone auth requests with 503.
func (s *HTTPSMSSender) Configured() bool {
	return s.cfg.APIURL != "" && s.cfg.APIKey != ""
}

func (s *HTTPSMSSender) Send(ctx context.Context, phone, message string) error {
	body, err := json.Marshal(map[string]string{
		"to":      phone,
		"message": message,
		"sender":  s.cfg.SenderID,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms gateway: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway: status %d", resp.StatusCode)
	}
	return nil
}
