package app

import (
	"os"
	"slices"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/mixandtaste/internal/domain/cart"
	"github.com/xenking/mixandtaste/internal/domain/pricing"
)

// Config holds the complete application configuration, loadable from
// environment variables (KART_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (KART_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	ImageBaseURL string `default:"" usage:"Base URL for product images (e.g. https://cdn.example.com/images)" flag:"image-base-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (KART_API_KEY_PEPPER)" flag:"api-key-pepper"`
	Policies     PoliciesConfig
	Delivery     DeliveryConfig
	Cart         CartConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// Policy sources.
const (
	PolicySourceDatabase = "database"
	PolicySourceStatic   = "static"
)

// PoliciesConfig selects where customization policies come from.
type PoliciesConfig struct {
	Source string `default:"database" usage:"Customization policy source: database or static"`
}

// DeliveryConfig holds the delivery fee rule. Amounts are decimal strings.
type DeliveryConfig struct {
	FreeThreshold string `default:"150" usage:"Subtotal from which delivery is free" flag:"delivery-free-threshold"`
	Fee           string `default:"15"  usage:"Delivery fee below the threshold" flag:"delivery-fee"`
}

// Cart stores.
const (
	CartStorePostgres = "postgres"
	CartStoreMemory   = "memory"
)

// CartConfig controls cart sessions.
type CartConfig struct {
	Merge        string        `default:"selection" usage:"Line merge policy: selection or product"`
	CookieName   string        `default:"mixandtaste-cart" usage:"Cart session cookie name" flag:"cart-cookie-name"`
	CookieTTL    time.Duration `default:"720h" usage:"Cart session cookie lifetime" flag:"cart-cookie-ttl"`
	SecureCookie bool          `default:"false" usage:"Mark the cart cookie Secure" flag:"cart-secure-cookie"`
	Store        string        `default:"postgres" usage:"Cart store: postgres or memory"`
	StaleAfter   time.Duration `default:"720h" usage:"Delete carts untouched for this long (0 disables)" flag:"cart-stale-after"`
	SweepEvery   time.Duration `default:"1h" usage:"Stale cart sweep interval" flag:"cart-sweep-every"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers); needs explicit origins" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "KART",
		Files:     []string{"config.yaml", "/etc/kart/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that cannot be expressed as struct tag defaults.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set KART_DATABASE_URL or DATABASE_URL")
	}
	switch c.Policies.Source {
	case PolicySourceDatabase, PolicySourceStatic:
	default:
		return errors.Errorf("unknown policy source %q", c.Policies.Source)
	}
	switch c.Cart.Store {
	case CartStorePostgres, CartStoreMemory:
	default:
		return errors.Errorf("unknown cart store %q", c.Cart.Store)
	}
	if _, err := c.MergePolicy(); err != nil {
		return err
	}
	if _, err := c.DeliveryPolicy(); err != nil {
		return err
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0 {
		return errors.Errorf("rate limit needs a positive max and window, got %d per %s", c.RateLimit.Max, c.RateLimit.Window)
	}
	if c.CORS.AllowCredentials && allowsAnyOrigin(c.CORS.Origins) {
		return errors.New("cors credentials need explicit origins, not *")
	}
	if c.Cart.CookieName == "" {
		return errors.New("cart cookie name is required")
	}
	return nil
}

func allowsAnyOrigin(origins []string) bool {
	return len(origins) == 0 || slices.Contains(origins, "*")
}

// MergePolicy parses the configured cart merge policy.
func (c *Config) MergePolicy() (cart.MergePolicy, error) {
	m, err := cart.ParseMergePolicy(c.Cart.Merge)
	if err != nil {
		return m, errors.Wrap(err, "cart merge policy")
	}
	return m, nil
}

// DeliveryPolicy parses the configured delivery fee rule.
func (c *Config) DeliveryPolicy() (pricing.DeliveryPolicy, error) {
	d, err := pricing.ParseDeliveryPolicy(c.Delivery.FreeThreshold, c.Delivery.Fee)
	if err != nil {
		return d, errors.Wrap(err, "delivery policy")
	}
	return d, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's KART_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
