package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StorageDriverPocketBase = "pocketbase"
	StorageDriverMySQL      = "mysql"
)

type Config struct {
	Server       ServerConfig
	Log          LogConfig
	Storage      StorageConfig
	PocketBase   PocketBaseConfig
	Database     DatabaseConfig
	Order        OrderConfig
	Redis        RedisConfig
	Notification NotificationConfig
	WhatsApp     WhatsAppConfig
	Email        EmailConfig
	Proxy        ProxyConfig
}

type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type StorageConfig struct {
	Driver string
}

// PocketBaseConfig points at the hosted document database. Identity and
// Password belong to a superuser account of AuthCollection.
type PocketBaseConfig struct {
	URL            string
	AuthCollection string
	Identity       string
	Password       string
	TokenTTL       time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
	RequestTimeout time.Duration
	// BreakerFailures consecutive failures open the circuit; 0 disables it.
	BreakerFailures int
	BreakerTimeout  time.Duration
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type OrderConfig struct {
	MaxRetryAttempts int
}

type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	TemplateTTL time.Duration
}

type NotificationConfig struct {
	PublicOrigin     string
	DefaultCarrier   string
	SendTimeout      time.Duration
	EmailEnabled     bool
	TemplateLanguage string
}

type WhatsAppConfig struct {
	APIBaseURL    string
	APIVersion    string
	PhoneNumberID string
	AccessToken   string
	UseTemplates  bool
	Timeout       time.Duration
}

type EmailConfig struct {
	Provider  string
	FromName  string
	FromEmail string
	Timeout   time.Duration
	Resend    ResendConfig
	EmailJS   EmailJSConfig
	SMTP      SMTPConfig
}

type ResendConfig struct {
	APIKey  string
	BaseURL string
}

type EmailJSConfig struct {
	BaseURL    string
	ServiceID  string
	TemplateID string
	PublicKey  string
	PrivateKey string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

type ProxyConfig struct {
	APITarget      string
	EmailTarget    string
	WhatsAppTarget string
	StaticDir      string
	AllowedOrigins []string
}

// Load reads configuration from the environment, an optional .env file and
// an optional YAML file named by CONFIG_FILE. Environment values win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	setDefaults(v)

	durations := map[string]time.Duration{}
	for _, key := range []string{
		"SERVER_SHUTDOWN_TIMEOUT",
		"PB_TOKEN_TTL",
		"PB_RETRY_BACKOFF",
		"PB_REQUEST_TIMEOUT",
		"PB_BREAKER_TIMEOUT",
		"DB_CONN_MAX_LIFETIME",
		"REDIS_TEMPLATE_TTL",
		"NOTIFICATION_SEND_TIMEOUT",
		"WHATSAPP_TIMEOUT",
		"EMAIL_TIMEOUT",
	} {
		d, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return nil, err
		}
		durations[key] = d
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            v.GetInt("SERVER_PORT"),
			ShutdownTimeout: durations["SERVER_SHUTDOWN_TIMEOUT"],
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_DRIVER"))),
		},
		PocketBase: PocketBaseConfig{
			URL:             strings.TrimRight(v.GetString("PB_URL"), "/"),
			AuthCollection:  v.GetString("PB_AUTH_COLLECTION"),
			Identity:        v.GetString("PB_IDENTITY"),
			Password:        v.GetString("PB_PASSWORD"),
			TokenTTL:        durations["PB_TOKEN_TTL"],
			MaxRetries:      v.GetInt("PB_MAX_RETRIES"),
			RetryBackoff:    durations["PB_RETRY_BACKOFF"],
			RequestTimeout:  durations["PB_REQUEST_TIMEOUT"],
			BreakerFailures: v.GetInt("PB_BREAKER_FAILURES"),
			BreakerTimeout:  durations["PB_BREAKER_TIMEOUT"],
		},
		Database: DatabaseConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Name:            v.GetString("DB_NAME"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: durations["DB_CONN_MAX_LIFETIME"],
		},
		Order: OrderConfig{
			MaxRetryAttempts: v.GetInt("ORDER_MAX_RETRY_ATTEMPTS"),
		},
		Redis: RedisConfig{
			Addr:        v.GetString("REDIS_ADDR"),
			Password:    v.GetString("REDIS_PASSWORD"),
			DB:          v.GetInt("REDIS_DB"),
			TemplateTTL: durations["REDIS_TEMPLATE_TTL"],
		},
		Notification: NotificationConfig{
			PublicOrigin:     strings.TrimRight(v.GetString("NOTIFICATION_PUBLIC_ORIGIN"), "/"),
			DefaultCarrier:   v.GetString("NOTIFICATION_DEFAULT_CARRIER"),
			SendTimeout:      durations["NOTIFICATION_SEND_TIMEOUT"],
			EmailEnabled:     v.GetBool("NOTIFICATION_EMAIL_ENABLED"),
			TemplateLanguage: v.GetString("NOTIFICATION_TEMPLATE_LANGUAGE"),
		},
		WhatsApp: WhatsAppConfig{
			APIBaseURL:    strings.TrimRight(v.GetString("WHATSAPP_API_BASE_URL"), "/"),
			APIVersion:    v.GetString("WHATSAPP_API_VERSION"),
			PhoneNumberID: v.GetString("WHATSAPP_PHONE_NUMBER_ID"),
			AccessToken:   v.GetString("WHATSAPP_ACCESS_TOKEN"),
			UseTemplates:  v.GetBool("WHATSAPP_USE_TEMPLATES"),
			Timeout:       durations["WHATSAPP_TIMEOUT"],
		},
		Email: EmailConfig{
			Provider:  strings.ToLower(strings.TrimSpace(v.GetString("EMAIL_PROVIDER"))),
			FromName:  v.GetString("EMAIL_FROM_NAME"),
			FromEmail: v.GetString("EMAIL_FROM"),
			Timeout:   durations["EMAIL_TIMEOUT"],
			Resend: ResendConfig{
				APIKey:  v.GetString("RESEND_API_KEY"),
				BaseURL: strings.TrimRight(v.GetString("RESEND_BASE_URL"), "/"),
			},
			EmailJS: EmailJSConfig{
				BaseURL:    strings.TrimRight(v.GetString("EMAILJS_BASE_URL"), "/"),
				ServiceID:  v.GetString("EMAILJS_SERVICE_ID"),
				TemplateID: v.GetString("EMAILJS_TEMPLATE_ID"),
				PublicKey:  v.GetString("EMAILJS_PUBLIC_KEY"),
				PrivateKey: v.GetString("EMAILJS_PRIVATE_KEY"),
			},
			SMTP: SMTPConfig{
				Host:     v.GetString("SMTP_HOST"),
				Port:     v.GetInt("SMTP_PORT"),
				Username: v.GetString("SMTP_USERNAME"),
				Password: v.GetString("SMTP_PASSWORD"),
			},
		},
		Proxy: ProxyConfig{
			APITarget:      v.GetString("PROXY_API_TARGET"),
			EmailTarget:    v.GetString("PROXY_EMAIL_TARGET"),
			WhatsAppTarget: v.GetString("PROXY_WHATSAPP_TARGET"),
			StaticDir:      v.GetString("PROXY_STATIC_DIR"),
			AllowedOrigins: splitList(v.GetString("PROXY_ALLOWED_ORIGINS")),
		},
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", 3001)
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("STORAGE_DRIVER", StorageDriverPocketBase)

	v.SetDefault("PB_URL", "http://127.0.0.1:8090")
	v.SetDefault("PB_AUTH_COLLECTION", "_superusers")
	v.SetDefault("PB_IDENTITY", "")
	v.SetDefault("PB_PASSWORD", "")
	v.SetDefault("PB_TOKEN_TTL", "1h")
	v.SetDefault("PB_MAX_RETRIES", 3)
	v.SetDefault("PB_RETRY_BACKOFF", "500ms")
	v.SetDefault("PB_REQUEST_TIMEOUT", "15s")
	v.SetDefault("PB_BREAKER_FAILURES", 5)
	v.SetDefault("PB_BREAKER_TIMEOUT", "30s")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 3306)
	v.SetDefault("DB_USER", "crm")
	v.SetDefault("DB_PASSWORD", "secret")
	v.SetDefault("DB_NAME", "crm")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "5m")

	v.SetDefault("ORDER_MAX_RETRY_ATTEMPTS", 3)

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_TEMPLATE_TTL", "5m")

	v.SetDefault("NOTIFICATION_PUBLIC_ORIGIN", "http://localhost:3001")
	v.SetDefault("NOTIFICATION_DEFAULT_CARRIER", "Standard Delivery")
	v.SetDefault("NOTIFICATION_SEND_TIMEOUT", "30s")
	v.SetDefault("NOTIFICATION_EMAIL_ENABLED", false)
	v.SetDefault("NOTIFICATION_TEMPLATE_LANGUAGE", "en")

	v.SetDefault("WHATSAPP_API_BASE_URL", "https://graph.facebook.com")
	v.SetDefault("WHATSAPP_API_VERSION", "v18.0")
	v.SetDefault("WHATSAPP_PHONE_NUMBER_ID", "")
	v.SetDefault("WHATSAPP_ACCESS_TOKEN", "")
	v.SetDefault("WHATSAPP_USE_TEMPLATES", false)
	v.SetDefault("WHATSAPP_TIMEOUT", "15s")

	v.SetDefault("EMAIL_PROVIDER", "log")
	v.SetDefault("EMAIL_FROM_NAME", "Store")
	v.SetDefault("EMAIL_FROM", "orders@localhost")
	v.SetDefault("EMAIL_TIMEOUT", "15s")
	v.SetDefault("RESEND_API_KEY", "")
	v.SetDefault("RESEND_BASE_URL", "https://api.resend.com")
	v.SetDefault("EMAILJS_BASE_URL", "https://api.emailjs.com")
	v.SetDefault("EMAILJS_SERVICE_ID", "")
	v.SetDefault("EMAILJS_TEMPLATE_ID", "")
	v.SetDefault("EMAILJS_PUBLIC_KEY", "")
	v.SetDefault("EMAILJS_PRIVATE_KEY", "")
	v.SetDefault("SMTP_HOST", "localhost")
	v.SetDefault("SMTP_PORT", 1025)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")

	v.SetDefault("PROXY_API_TARGET", "http://127.0.0.1:8090")
	v.SetDefault("PROXY_EMAIL_TARGET", "")
	v.SetDefault("PROXY_WHATSAPP_TARGET", "https://graph.facebook.com")
	v.SetDefault("PROXY_STATIC_DIR", "dist")
	v.SetDefault("PROXY_ALLOWED_ORIGINS", "*")
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
