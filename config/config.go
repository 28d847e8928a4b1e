package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config carries everything the process reads from the environment.
// Database settings stay on their own DB_*/MYSQL_URL variables, resolved in
// db.go.
type Config struct {
	Port        string        `envconfig:"PORT" default:"4000"`
	GinMode     string        `envconfig:"GIN_MODE" default:"debug"`
	JWTSecret   string        `envconfig:"JWT_SECRET" default:"dev-secret"`
	JWTTTL      time.Duration `envconfig:"JWT_TTL" default:"72h"`
	FrontendURL string        `envconfig:"FRONTEND_URL" default:"http://localhost:3000"`
	CORSOrigins string        `envconfig:"CORS_ORIGINS" default:""`

	StripeSecretKey     string        `envconfig:"STRIPE_SECRET_KEY" default:""`
	StripeWebhookSecret string        `envconfig:"STRIPE_WEBHOOK_SECRET" default:""`
	Currency            string        `envconfig:"CURRENCY" default:"lkr"`
	ProviderSyncTimeout time.Duration `envconfig:"PROVIDER_SYNC_TIMEOUT" default:"10s"`

	SeedAdminEmail    string `envconfig:"SEED_ADMIN_EMAIL" default:"admin@rental.local"`
	SeedAdminPassword string `envconfig:"SEED_ADMIN_PASSWORD" default:"admin123"`
}

func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// AllowedOrigins splits CORS_ORIGINS; empty falls back to the frontend URL.
func (c Config) AllowedOrigins() []string {
	if strings.TrimSpace(c.CORSOrigins) == "" {
		return []string{c.FrontendURL}
	}
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
