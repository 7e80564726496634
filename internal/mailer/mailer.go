package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"clinic-inventory-api-server/config"
)

// Mailer delivers enrollment emails through the mail gateway webhook.
// The gateway exchanges the API key for a short-lived access token; the
// token is cached here with an explicit expiry instead of living in a
// package-level variable.
type Mailer struct {
	webhookURL string
	apiKey     string
	fromName   string
	client     *http.Client
	tokens     tokenCache
}

type tokenCache struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func New(cfg config.MailerConfig) *Mailer {
	return &Mailer{
		webhookURL: cfg.WebhookURL,
		apiKey:     cfg.APIKey,
		fromName:   cfg.FromName,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether a gateway is configured. Without one, enrollment
// links are only logged server-side.
func (m *Mailer) Enabled() bool {
	return m.webhookURL != ""
}

func (m *Mailer) accessToken(ctx context.Context) (string, error) {
	m.tokens.mu.Lock()
	defer m.tokens.mu.Unlock()

	// 30s of slack so a token never expires mid-request.
	if m.tokens.token != "" && time.Now().Add(30*time.Second).Before(m.tokens.expiresAt) {
		return m.tokens.token, nil
	}

	payload, _ := json.Marshal(map[string]string{"apiKey": m.apiKey})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.webhookURL+"/token", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch mail gateway token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("mail gateway token request returned %d", resp.StatusCode)
	}

	var body struct {
		Token     string `json:"token"`
		ExpiresIn int    `json:"expiresIn"` // seconds
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode mail gateway token: %w", err)
	}

	m.tokens.token = body.Token
	m.tokens.expiresAt = time.Now().Add(time.Duration(body.ExpiresIn) * time.Second)
	return m.tokens.token, nil
}

// SendEnrollment emails a new user their one-time enrollment token.
func (m *Mailer) SendEnrollment(ctx context.Context, email, name, enrollmentToken string) error {
	token, err := m.accessToken(ctx)
	if err != nil {
		return err
	}

	payload, _ := json.Marshal(map[string]string{
		"to":       email,
		"name":     name,
		"fromName": m.fromName,
		"template": "enrollment",
		"token":    enrollmentToken,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.webhookURL+"/send", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send enrollment email: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("mail gateway returned %d for enrollment email", resp.StatusCode)
	}
	return nil
}
