package email

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"crmgateway/internal/config"
)

// EmailJSSender posts to the EmailJS REST endpoint. The message is rendered
// by the EmailJS template; subject, body and the raw vars are passed as
// template params.
type EmailJSSender struct {
	baseURL    string
	serviceID  string
	templateID string
	publicKey  string
	privateKey string
	fromName   string
	httpClient HTTPClient
	logger     *zap.Logger
}

func NewEmailJSSender(cfg config.EmailConfig, logger *zap.Logger, client HTTPClient) *EmailJSSender {
	if client == nil {
		client = &http.Client{Timeout: timeoutOrDefault(cfg.Timeout)}
	}
	baseURL := strings.TrimRight(cfg.EmailJS.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.emailjs.com"
	}
	return &EmailJSSender{
		baseURL:    baseURL,
		serviceID:  cfg.EmailJS.ServiceID,
		templateID: cfg.EmailJS.TemplateID,
		publicKey:  cfg.EmailJS.PublicKey,
		privateKey: cfg.EmailJS.PrivateKey,
		fromName:   cfg.FromName,
		httpClient: client,
		logger:     logger,
	}
}

type emailJSRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	AccessToken    string            `json:"accessToken,omitempty"`
	TemplateParams map[string]string `json:"template_params"`
}

func (s *EmailJSSender) Send(ctx context.Context, email Email) Result {
	if s.serviceID == "" || s.templateID == "" || s.publicKey == "" {
		return failed("emailjs is not configured: service id, template id and public key are required")
	}
	if email.To == "" {
		return failed("recipient address is empty")
	}

	params := make(map[string]string, len(email.TemplateVars)+4)
	for k, v := range email.TemplateVars {
		params[k] = v
	}
	params["to_email"] = email.To
	params["subject"] = email.Subject
	params["message"] = email.Body
	if s.fromName != "" {
		params["from_name"] = s.fromName
	}

	body, err := json.Marshal(emailJSRequest{
		ServiceID:      s.serviceID,
		TemplateID:     s.templateID,
		UserID:         s.publicKey,
		AccessToken:    s.privateKey,
		TemplateParams: params,
	})
	if err != nil {
		return failed("encoding email: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/v1.0/email/send", bytes.NewReader(body))
	if err != nil {
		return failed("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return failed("sending email: %v", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return failed("emailjs status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	s.logger.Debug("email accepted by emailjs", zap.String("to", email.To))
	return ok("email sent")
}
