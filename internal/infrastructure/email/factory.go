package email

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"crmgateway/internal/config"
)

const (
	ProviderResend  = "resend"
	ProviderEmailJS = "emailjs"
	ProviderSMTP    = "smtp"
	ProviderLog     = "log"
)

// NewSender builds the backend named by cfg.Provider.
func NewSender(cfg config.EmailConfig, logger *zap.Logger) (Sender, error) {
	backend := normalize(cfg.Provider, ProviderLog)

	var sender Sender
	switch backend {
	case ProviderResend:
		sender = NewResendSender(cfg, logger, nil)
	case ProviderEmailJS:
		sender = NewEmailJSSender(cfg, logger, nil)
	case ProviderSMTP:
		sender = NewSMTPSender(cfg, logger)
	case ProviderLog:
		sender = NewLogSender(logger)
	default:
		return nil, fmt.Errorf("unsupported email provider %q", cfg.Provider)
	}

	logger.Info("email provider initialised", zap.String("backend", backend))
	return sender, nil
}

func normalize(value, def string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return def
	}
	return value
}
