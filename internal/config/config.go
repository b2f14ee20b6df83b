package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

const (
	defaultJWTSecret       = "change-me-jwt-secret"
	defaultInternalToken   = "change-me-internal-token"
	defaultTimezone        = "Asia/Ho_Chi_Minh"
	defaultCallTimeout     = "5s"
	defaultReadRetries     = "2"
	defaultPaymentHold     = "15m"
	defaultSweepInterval   = "60s"
	defaultSweepGrace      = "0s"
	defaultCartTTL         = "24h"
	defaultOrderServiceURL = "http://localhost:8003"
	defaultCartServiceURL  = "http://localhost:8002"
	defaultPaymentURL      = "http://localhost:8004"
	defaultMomoEndpoint    = "https://test-payment.momo.vn/v2/gateway/api/create"
)

// Endpoint describes how to reach another service.
type Endpoint struct {
	BaseURL     string
	Timeout     time.Duration
	ReadRetries int
}

// Common holds settings every service reads.
type Common struct {
	AppEnv        string
	Port          string
	DatabaseURL   string
	JWTSecret     string
	InternalToken string
	CORSOrigins   []string
}

type OrderConfig struct {
	Common
	Location      *time.Location
	PaymentHold   time.Duration
	SweepEnabled  bool
	SweepInterval time.Duration
	SweepGrace    time.Duration
	SeedTables    bool
	RabbitMQURL   string
	Cart          Endpoint
	Payment       Endpoint
}

type CartConfig struct {
	Common
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CartTTL       time.Duration
	Order         Endpoint
}

type MomoConfig struct {
	Endpoint    string
	PartnerCode string
	AccessKey   string
	SecretKey   string
	RedirectURL string
	IPNURL      string
	Timeout     time.Duration
}

func (m MomoConfig) Enabled() bool {
	return m.PartnerCode != "" && m.AccessKey != "" && m.SecretKey != ""
}

type PaymentConfig struct {
	Common
	RabbitMQURL string
	Order       Endpoint
	Momo        MomoConfig
}

func LoadOrderConfig() (*OrderConfig, error) {
	common, err := loadCommon("8003", "order.db")
	if err != nil {
		return nil, err
	}
	cfg := &OrderConfig{Common: *common}

	tz := strings.TrimSpace(getEnv("APP_TIMEZONE", defaultTimezone))
	cfg.Location, err = time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE value %q: %w", tz, err)
	}
	if cfg.PaymentHold, err = parseDurationEnv("PAYMENT_HOLD", defaultPaymentHold); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = parseDurationEnv("SWEEP_INTERVAL", defaultSweepInterval); err != nil {
		return nil, err
	}
	if cfg.SweepGrace, err = parseDurationEnv("SWEEP_GRACE", defaultSweepGrace); err != nil {
		return nil, err
	}
	cfg.SweepEnabled = parseBoolEnv("SWEEP_ENABLED", "true")
	cfg.SeedTables = parseBoolEnv("SEED_TABLES", "true")
	cfg.RabbitMQURL = strings.TrimSpace(os.Getenv("RABBITMQ_URL"))

	if cfg.Cart, err = loadEndpoint("CART_SERVICE", defaultCartServiceURL); err != nil {
		return nil, err
	}
	if cfg.Payment, err = loadEndpoint("PAYMENT_SERVICE", defaultPaymentURL); err != nil {
		return nil, err
	}

	if err := validateOrder(cfg); err != nil {
		return nil, err
	}
	log.Printf("order config: env=%s port=%s hold=%s sweep=%t/%s grace=%s tz=%s", cfg.AppEnv, cfg.Port, cfg.PaymentHold, cfg.SweepEnabled, cfg.SweepInterval, cfg.SweepGrace, tz)
	return cfg, nil
}

func LoadCartConfig() (*CartConfig, error) {
	common, err := loadCommon("8002", "cart.db")
	if err != nil {
		return nil, err
	}
	cfg := &CartConfig{Common: *common}

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		cfg.RedisAddr = host + ":" + port
	}
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.RedisDB, err = parseIntEnv("REDIS_DB", "0")
	if err != nil {
		return nil, err
	}
	if cfg.CartTTL, err = parseDurationEnv("CART_TTL", defaultCartTTL); err != nil {
		return nil, err
	}
	if cfg.Order, err = loadEndpoint("ORDER_SERVICE", defaultOrderServiceURL); err != nil {
		return nil, err
	}

	log.Printf("cart config: env=%s port=%s redis=%t ttl=%s", cfg.AppEnv, cfg.Port, cfg.RedisAddr != "", cfg.CartTTL)
	return cfg, nil
}

func LoadPaymentConfig() (*PaymentConfig, error) {
	common, err := loadCommon("8004", "payment.db")
	if err != nil {
		return nil, err
	}
	cfg := &PaymentConfig{Common: *common}
	cfg.RabbitMQURL = strings.TrimSpace(os.Getenv("RABBITMQ_URL"))

	if cfg.Order, err = loadEndpoint("ORDER_SERVICE", defaultOrderServiceURL); err != nil {
		return nil, err
	}

	cfg.Momo = MomoConfig{
		Endpoint:    strings.TrimSpace(getEnv("MOMO_ENDPOINT", defaultMomoEndpoint)),
		PartnerCode: strings.TrimSpace(os.Getenv("MOMO_PARTNER_CODE")),
		AccessKey:   strings.TrimSpace(os.Getenv("MOMO_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("MOMO_SECRET_KEY")),
		RedirectURL: strings.TrimSpace(os.Getenv("MOMO_REDIRECT_URL")),
		IPNURL:      strings.TrimSpace(os.Getenv("MOMO_IPN_URL")),
	}
	if cfg.Momo.Timeout, err = parseDurationEnv("MOMO_TIMEOUT", "10s"); err != nil {
		return nil, err
	}

	if err := validatePayment(cfg); err != nil {
		return nil, err
	}
	log.Printf("payment config: env=%s port=%s order=%s momo=%t", cfg.AppEnv, cfg.Port, cfg.Order.BaseURL, cfg.Momo.Enabled())
	return cfg, nil
}

func loadCommon(defaultPort, defaultDSN string) (*Common, error) {
	cfg := &Common{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)
	cfg.Port = strings.TrimSpace(getEnv("PORT", defaultPort))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDSN))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))
	cfg.InternalToken = strings.TrimSpace(getEnv("INTERNAL_SERVICE_TOKEN", defaultInternalToken))
	cfg.CORSOrigins = splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))

	if err := validateCommon(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEndpoint(prefix, defaultURL string) (Endpoint, error) {
	ep := Endpoint{BaseURL: strings.TrimRight(strings.TrimSpace(getEnv(prefix+"_URL", defaultURL)), "/")}
	var err error
	if ep.Timeout, err = parseDurationEnv(prefix+"_TIMEOUT", defaultCallTimeout); err != nil {
		return ep, err
	}
	if ep.ReadRetries, err = parseIntEnv(prefix+"_READ_RETRIES", defaultReadRetries); err != nil {
		return ep, err
	}
	if ep.BaseURL == "" {
		return ep, fmt.Errorf("%s_URL must not be empty", prefix)
	}
	if ep.Timeout <= 0 {
		return ep, fmt.Errorf("%s_TIMEOUT must be > 0", prefix)
	}
	if ep.ReadRetries < 0 {
		return ep, fmt.Errorf("%s_READ_RETRIES must be >= 0", prefix)
	}
	return ep, nil
}

func validateCommon(cfg *Common) error {
	if cfg.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if isEmptyOrDefault(cfg.InternalToken, defaultInternalToken) {
			return fmt.Errorf("in prod/release INTERNAL_SERVICE_TOKEN must be set and not default")
		}
	}
	return nil
}

func validateOrder(cfg *OrderConfig) error {
	if cfg.PaymentHold <= 0 {
		return fmt.Errorf("PAYMENT_HOLD must be > 0")
	}
	if cfg.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be > 0")
	}
	if cfg.SweepGrace < 0 {
		return fmt.Errorf("SWEEP_GRACE must be >= 0")
	}
	return nil
}

func validatePayment(cfg *PaymentConfig) error {
	if cfg.Momo.Timeout <= 0 {
		return fmt.Errorf("MOMO_TIMEOUT must be > 0")
	}
	partial := cfg.Momo.PartnerCode != "" || cfg.Momo.AccessKey != "" || cfg.Momo.SecretKey != ""
	if partial && !cfg.Momo.Enabled() {
		return fmt.Errorf("MOMO_PARTNER_CODE, MOMO_ACCESS_KEY and MOMO_SECRET_KEY must be set together")
	}
	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
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

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
