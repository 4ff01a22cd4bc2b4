package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	apperrors "gptcatalog/internal/errors"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort     string
	Env            string
	DBDriver       string
	DatabaseDSN    string
	RedisAddr      string
	RedisDB        int
	RedisPass      string
	JWTSecret      string
	HotmartSecret  string
	CheckoutURL    string
	CatalogPath    string
	StaticDir      string
	AuthRateLimit  string
	GateFallback   string
	// TrustedProxies lists CIDRs allowed to set X-Forwarded-For. Empty means
	// the client IP is always the socket peer.
	TrustedProxies []string
	LogLevel       string
	LogJSON        bool
}

// Load builds Config from environment with sensible defaults. Values from an
// optional .env file in the working directory are applied first; real
// environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		Env:            getEnv("APP_ENV", "production"),
		DBDriver:       getEnv("DB_DRIVER", "mysql"),
		DatabaseDSN:    getEnv("DATABASE_DSN", "user:password@tcp(localhost:3306)/catalog?charset=utf8mb4&parseTime=True&loc=Local"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		RedisPass:      os.Getenv("REDIS_PASSWORD"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		HotmartSecret:  os.Getenv("HOTMART_SECRET"),
		CheckoutURL:    getEnv("CHECKOUT_URL", "https://pay.hotmart.com/EXAMPLE_CHECKOUT_CODE?checkoutMode=10&email={user_email}"),
		CatalogPath:    getEnv("CATALOG_PATH", "data/catalog_data.json"),
		StaticDir:      getEnv("STATIC_DIR", "public"),
		AuthRateLimit:  getEnv("AUTH_RATE_LIMIT", "20-M"),
		GateFallback:   getEnv("GATE_FALLBACK", "allow"),
		TrustedProxies: getEnvList("TRUSTED_PROXIES"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogJSON:        getEnvBool("LOG_JSON", false),
	}
}

// Validate reports configuration that must halt startup instead of being
// replaced by an insecure default.
func (c *Config) Validate() error {
	var missing []string
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.HotmartSecret == "" {
		missing = append(missing, "HOTMART_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrMissingSecret, strings.Join(missing, ", "))
	}
	switch c.GateFallback {
	case "allow", "deny":
	default:
		return fmt.Errorf("%w: GATE_FALLBACK %q, want allow or deny", apperrors.ErrInvalidConfig, c.GateFallback)
	}
	if _, err := c.TrustedProxyNets(); err != nil {
		return err
	}
	return nil
}

// TrustedProxyNets parses TrustedProxies.
func (c *Config) TrustedProxyNets() ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(c.TrustedProxies))
	for _, cidr := range c.TrustedProxies {
		_, n, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("%w: TRUSTED_PROXIES entry %q", apperrors.ErrInvalidConfig, cidr)
		}
		nets = append(nets, n)
	}
	return nets, nil
}

// IsDevelopment reports whether the app runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}
