package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port               string   `envconfig:"PORT" default:"8080"`
	Environment        string   `envconfig:"ENV" default:"development"`
	DBConnectionString string   `envconfig:"DB_CONNECTION_STRING" required:"true"`
	JWTSecret          string   `envconfig:"SUPABASE_JWT_SECRET" required:"true"`
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`

	// Stripe
	StripeSecretKey         string `envconfig:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret     string `envconfig:"STRIPE_WEBHOOK_SECRET"`
	StripePriceMonthly      string `envconfig:"STRIPE_PRICE_MONTHLY"`
	StripePriceAnnual       string `envconfig:"STRIPE_PRICE_ANNUAL"`
	StripeCheckoutReturnURL string `envconfig:"STRIPE_CHECKOUT_RETURN_URL" default:"http://localhost:3000/settings/billing"`
	StripePortalReturnURL   string `envconfig:"STRIPE_PORTAL_RETURN_URL" default:"http://localhost:3000/settings/billing"`

	// Webhook event dedupe, disabled when RedisAddr is empty
	RedisAddr             string `envconfig:"REDIS_ADDR"`
	RedisPassword         string `envconfig:"REDIS_PASSWORD"`
	RedisDB               int    `envconfig:"REDIS_DB" default:"0"`
	WebhookDedupeTTLHours int    `envconfig:"WEBHOOK_DEDUPE_TTL_HOURS" default:"72"`

	// Billing change notifications, disabled when the topic is empty
	GCPProjectID       string `envconfig:"GCP_PROJECT_ID"`
	PubSubBillingTopic string `envconfig:"PUBSUB_BILLING_TOPIC"`

	// Re-sync worker
	ResyncSchedule  string `envconfig:"RESYNC_SCHEDULE" default:"@every 6h"`
	ResyncBatchSize int    `envconfig:"RESYNC_BATCH_SIZE" default:"100"`

	ModerationExtraKeywords []string `envconfig:"MODERATION_EXTRA_KEYWORDS"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// StripeEnabled reports whether Stripe API calls can be made.
func (c *Config) StripeEnabled() bool {
	return c.StripeSecretKey != ""
}
