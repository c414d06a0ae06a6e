package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	IdentityFirebase = "firebase"
	IdentityMemory   = "memory"

	StoreFirestore = "firestore"
	StoreMongo     = "mongo"
	StoreJSON      = "json"
)

type Config struct {
	ServerAddress string `env:"SERVER_ADDRESS" envDefault:":8080"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`

	IdentityBackend string `env:"IDENTITY_BACKEND" envDefault:"memory"`
	ProfileStore    string `env:"PROFILE_STORE" envDefault:"json"`

	FirebaseProjectID       string        `env:"FIREBASE_PROJECT_ID"`
	FirebaseCredentialsJSON string        `env:"FIREBASE_CREDENTIALS_JSON"`
	FirebaseStorageBucket   string        `env:"FIREBASE_STORAGE_BUCKET"`
	SessionCookieTTL        time.Duration `env:"SESSION_COOKIE_TTL" envDefault:"120h"`

	MongoURI string `env:"MONGO_URI"`
	MongoDB  string `env:"MONGO_DB" envDefault:"medcontrol"`
	DataDir  string `env:"DATA_DIR" envDefault:"./data"`

	JWTSecret     string        `env:"JWT_SECRET" envDefault:"your-secret-key-change-in-production"`
	JWTExpiration time.Duration `env:"JWT_EXPIRATION" envDefault:"24h"`
	// LocalUsers seeds the memory identity backend, each entry "email:password:Display Name".
	LocalUsers []string `env:"LOCAL_USERS" envSeparator:","`

	SendGridAPIKey string `env:"SENDGRID_API_KEY"`
	ResetFromEmail string `env:"RESET_FROM_EMAIL"`

	// RecaptchaSecret enables a reCAPTCHA v2 check on password logins.
	RecaptchaSecret  string `env:"RECAPTCHA_SECRET"`
	RecaptchaSiteKey string `env:"RECAPTCHA_SITE_KEY"`

	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
	ScreenIdleTimeout time.Duration `env:"SCREEN_IDLE_TIMEOUT" envDefault:"30m"`
	AllowedOrigins    []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

// Load reads an optional .env file, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[Config] ignoring .env: %v", err)
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.IdentityBackend = strings.ToLower(strings.TrimSpace(cfg.IdentityBackend))
	cfg.ProfileStore = strings.ToLower(strings.TrimSpace(cfg.ProfileStore))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected backends have what they need.
func (c *Config) Validate() error {
	switch c.IdentityBackend {
	case IdentityFirebase:
		if c.FirebaseProjectID == "" && c.FirebaseCredentialsJSON == "" {
			return errors.New("config: firebase identity needs FIREBASE_PROJECT_ID or FIREBASE_CREDENTIALS_JSON")
		}
	case IdentityMemory:
		if strings.TrimSpace(c.JWTSecret) == "" {
			return errors.New("config: memory identity needs JWT_SECRET")
		}
	default:
		return fmt.Errorf("config: unknown IDENTITY_BACKEND %q", c.IdentityBackend)
	}

	switch c.ProfileStore {
	case StoreFirestore:
		if c.IdentityBackend != IdentityFirebase {
			return errors.New("config: PROFILE_STORE=firestore requires IDENTITY_BACKEND=firebase")
		}
	case StoreMongo:
		if c.MongoURI == "" {
			return errors.New("config: PROFILE_STORE=mongo needs MONGO_URI")
		}
	case StoreJSON:
		if c.DataDir == "" {
			return errors.New("config: PROFILE_STORE=json needs DATA_DIR")
		}
	default:
		return fmt.Errorf("config: unknown PROFILE_STORE %q", c.ProfileStore)
	}

	if c.RecaptchaSecret != "" && c.RecaptchaSiteKey == "" {
		return errors.New("config: RECAPTCHA_SECRET needs RECAPTCHA_SITE_KEY")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("config: REQUEST_TIMEOUT must be positive")
	}
	return nil
}

// LocalUser is one parsed LOCAL_USERS entry.
type LocalUser struct {
	Email       string
	Password    string
	DisplayName string
}

// ParseLocalUsers splits LOCAL_USERS entries. The display name may be omitted.
func (c *Config) ParseLocalUsers() ([]LocalUser, error) {
	out := make([]LocalUser, 0, len(c.LocalUsers))
	for _, raw := range c.LocalUsers {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parts := strings.SplitN(raw, ":", 3)
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("config: invalid LOCAL_USERS entry %q", raw)
		}
		u := LocalUser{Email: strings.TrimSpace(parts[0]), Password: parts[1]}
		if len(parts) == 3 {
			u.DisplayName = strings.TrimSpace(parts[2])
		}
		out = append(out, u)
	}
	return out, nil
}
