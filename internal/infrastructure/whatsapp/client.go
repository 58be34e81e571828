package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"crmgateway/internal/config"
)

// HTTPClient abstracts http.Client.Do for tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Option func(*Client)

func WithHTTPClient(client HTTPClient) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

type Param struct {
	Name  string
	Value string
}

// Message is one outbound WhatsApp message. Body is sent in text mode,
// TemplateName with Params in template mode.
type Message struct {
	Phone        string
	TemplateName string
	Language     string
	Body         string
	Params       []Param
}

type Result struct {
	Success   bool
	MessageID string
	Error     string
}

func failed(format string, args ...any) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Client sends messages through the WhatsApp Cloud API.
type Client struct {
	baseURL       string
	version       string
	phoneNumberID string
	accessToken   string
	useTemplates  bool
	httpClient    HTTPClient
	logger        *zap.Logger
}

func NewClient(cfg config.WhatsAppConfig, logger *zap.Logger, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := &Client{
		baseURL:       strings.TrimRight(cfg.APIBaseURL, "/"),
		version:       cfg.APIVersion,
		phoneNumberID: cfg.PhoneNumberID,
		accessToken:   cfg.AccessToken,
		useTemplates:  cfg.UseTemplates,
		httpClient:    &http.Client{Timeout: timeout},
		logger:        logger,
	}
	if c.version == "" {
		c.version = "v18.0"
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

type textBody struct {
	Body string `json:"body"`
}

type templateLanguage struct {
	Code string `json:"code"`
}

type templateParameter struct {
	Type          string `json:"type"`
	ParameterName string `json:"parameter_name,omitempty"`
	Text          string `json:"text"`
}

type templateComponent struct {
	Type       string              `json:"type"`
	Parameters []templateParameter `json:"parameters"`
}

type templateBody struct {
	Name       string              `json:"name"`
	Language   templateLanguage    `json:"language"`
	Components []templateComponent `json:"components,omitempty"`
}

type sendRequest struct {
	MessagingProduct string        `json:"messaging_product"`
	RecipientType    string        `json:"recipient_type"`
	To               string        `json:"to"`
	Type             string        `json:"type"`
	Text             *textBody     `json:"text,omitempty"`
	Template         *templateBody `json:"template,omitempty"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Send delivers msg. It never returns an error: configuration problems and
// API failures come back as a failed Result.
func (c *Client) Send(ctx context.Context, msg Message) Result {
	if c.accessToken == "" || c.phoneNumberID == "" {
		return failed("whatsapp is not configured: access token and phone number id are required")
	}

	to := NormalizePhone(msg.Phone)
	if to == "" {
		return failed("recipient phone is empty")
	}

	payload := sendRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
	}
	if c.useTemplates && msg.TemplateName != "" {
		payload.Type = "template"
		payload.Template = buildTemplate(msg)
	} else {
		if strings.TrimSpace(msg.Body) == "" {
			return failed("message body is empty")
		}
		payload.Type = "text"
		payload.Text = &textBody{Body: msg.Body}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return failed("encoding message: %v", err)
	}

	url := fmt.Sprintf("%s/%s/%s/messages", c.baseURL, c.version, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return failed("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return failed("sending message: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return failed("reading response: %v", err)
	}

	var decoded sendResponse
	_ = json.Unmarshal(data, &decoded)

	if resp.StatusCode >= 400 {
		if decoded.Error != nil && decoded.Error.Message != "" {
			return failed("whatsapp api status %d: %s", resp.StatusCode, decoded.Error.Message)
		}
		return failed("whatsapp api status %d", resp.StatusCode)
	}

	result := Result{Success: true}
	if len(decoded.Messages) > 0 {
		result.MessageID = decoded.Messages[0].ID
	}

	c.logger.Debug("whatsapp message accepted",
		zap.String("to", to),
		zap.String("type", payload.Type),
		zap.String("messageId", result.MessageID),
	)

	return result
}

func buildTemplate(msg Message) *templateBody {
	lang := msg.Language
	if lang == "" {
		lang = "en"
	}

	tpl := &templateBody{
		Name:     msg.TemplateName,
		Language: templateLanguage{Code: lang},
	}
	if len(msg.Params) == 0 {
		return tpl
	}

	params := make([]templateParameter, 0, len(msg.Params))
	for _, p := range msg.Params {
		params = append(params, templateParameter{
			Type:          "text",
			ParameterName: p.Name,
			Text:          p.Value,
		})
	}
	tpl.Components = []templateComponent{{Type: "body", Parameters: params}}
	return tpl
}

// NormalizePhone strips everything but digits. The Cloud API expects the
// number in international format without the leading plus.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
