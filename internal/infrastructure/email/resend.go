package email

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"crmgateway/internal/config"
)

// ResendSender delivers through the Resend transactional API.
type ResendSender struct {
	baseURL    string
	apiKey     string
	from       string
	httpClient HTTPClient
	logger     *zap.Logger
}

func NewResendSender(cfg config.EmailConfig, logger *zap.Logger, client HTTPClient) *ResendSender {
	if client == nil {
		client = &http.Client{Timeout: timeoutOrDefault(cfg.Timeout)}
	}
	baseURL := strings.TrimRight(cfg.Resend.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.resend.com"
	}
	return &ResendSender{
		baseURL:    baseURL,
		apiKey:     cfg.Resend.APIKey,
		from:       formatFrom(cfg.FromName, cfg.FromEmail),
		httpClient: client,
		logger:     logger,
	}
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

func (s *ResendSender) Send(ctx context.Context, email Email) Result {
	if s.apiKey == "" {
		return failed("resend is not configured: api key is missing")
	}
	if email.To == "" {
		return failed("recipient address is empty")
	}

	body, err := json.Marshal(resendRequest{
		From:    s.from,
		To:      []string{email.To},
		Subject: email.Subject,
		Text:    email.Body,
	})
	if err != nil {
		return failed("encoding email: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return failed("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return failed("sending email: %v", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	var decoded struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(data, &decoded)

	if resp.StatusCode >= 400 {
		if decoded.Message != "" {
			return failed("resend status %d: %s", resp.StatusCode, decoded.Message)
		}
		return failed("resend status %d", resp.StatusCode)
	}

	s.logger.Debug("email accepted by resend", zap.String("id", decoded.ID))
	return ok("email sent (id %s)", decoded.ID)
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 15 * time.Second
	}
	return d
}
