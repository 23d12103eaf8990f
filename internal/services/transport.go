package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"github.com/sentinelsoc/soc-core/pkg/logger"
)

// SMTPSettings holds outbound mail configuration. An empty Host disables
// email delivery.
type SMTPSettings struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// StandardTransport delivers notifications over SMTP and HTTP. It satisfies
// NotificationTransport with the best-effort contract: every failure path
// logs and returns false instead of an error.
type StandardTransport struct {
	smtp   SMTPSettings
	client *http.Client
	logger logger.Logger
}

func NewStandardTransport(smtpCfg SMTPSettings, webhookTimeout time.Duration, log logger.Logger) *StandardTransport {
	if webhookTimeout <= 0 {
		webhookTimeout = 10 * time.Second
	}
	return &StandardTransport{
		smtp:   smtpCfg,
		client: &http.Client{Timeout: webhookTimeout},
		logger: log,
	}
}

func (t *StandardTransport) SendEmail(_ context.Context, recipients []string, subject, body string) bool {
	if t.smtp.Host == "" {
		t.logger.Warn("smtp host not configured, email not sent", "recipients", len(recipients))
		return false
	}
	from := t.smtp.From
	if from == "" {
		from = t.smtp.Username
	}

	msg := strings.Join([]string{
		"From: " + from,
		"To: " + strings.Join(recipients, ", "),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", t.smtp.Host, t.smtp.Port)
	var auth smtp.Auth
	if t.smtp.Username != "" {
		auth = smtp.PlainAuth("", t.smtp.Username, t.smtp.Password, t.smtp.Host)
	}
	if err := smtp.SendMail(addr, auth, from, recipients, []byte(msg)); err != nil {
		t.logger.Error("smtp send failed", "host", t.smtp.Host, "error", err)
		return false
	}
	t.logger.Info("alert email sent", "recipients", len(recipients))
	return true
}

func (t *StandardTransport) SendWebhook(ctx context.Context, url string, payload interface{}) bool {
	body, err := json.Marshal(payload)
	if err != nil {
		t.logger.Error("webhook payload marshal failed", "url", url, "error", err)
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		t.logger.Error("webhook request build failed", "url", url, "error", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		t.logger.Error("webhook request failed", "url", url, "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		t.logger.Error("webhook returned non-2xx", "url", url, "status", resp.StatusCode)
		return false
	}
	t.logger.Info("alert webhook delivered", "url", url, "status", resp.StatusCode)
	return true
}
