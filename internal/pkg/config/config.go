// Package config loads the storefront configuration from defaults, an
// optional YAML file and the environment. Nested keys map to upper snake
// case variables: pricing.tax_rate is read from PRICING_TAX_RATE.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	App           AppConfig         `mapstructure:"app"`
	HTTP          HTTPConfig        `mapstructure:"http"`
	OrderService  GRPCServiceConfig `mapstructure:"order_service"`
	WalletService GRPCServiceConfig `mapstructure:"wallet_service"`
	Redis         RedisConfig       `mapstructure:"redis"`
	Database      DatabaseConfig    `mapstructure:"database"`
	Kafka         KafkaConfig       `mapstructure:"kafka"`
	CheckoutLog   CheckoutLogConfig `mapstructure:"checkout_log"`
	Pricing       PricingConfig     `mapstructure:"pricing"`
	Delivery      DeliveryConfig    `mapstructure:"delivery"`
	Checkout      CheckoutConfig    `mapstructure:"checkout"`
	Reconciler    ReconcilerConfig  `mapstructure:"reconciler"`
	Wallet        WalletConfig      `mapstructure:"wallet"`
	Telemetry     TelemetryConfig   `mapstructure:"telemetry"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// GRPCServiceConfig describes one gRPC service: Listen is used by the
// service itself, Addr by its clients.
type GRPCServiceConfig struct {
	Listen string `mapstructure:"listen"`
	Addr   string `mapstructure:"addr"`
}

type RedisConfig struct {
	Addr    string        `mapstructure:"addr"`
	CartTTL time.Duration `mapstructure:"cart_ttl"`
}

// DatabaseConfig selects the order repository; an empty URL keeps orders in memory.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

type CheckoutLogConfig struct {
	Path string `mapstructure:"path"`
}

type PricingConfig struct {
	Currency              string          `mapstructure:"currency"`
	FreeShippingThreshold decimal.Decimal `mapstructure:"free_shipping_threshold"`
	FlatShippingFee       decimal.Decimal `mapstructure:"flat_shipping_fee"`
	TaxRate               decimal.Decimal `mapstructure:"tax_rate"`
}

type DeliveryConfig struct {
	ServiceAreaCities []string `mapstructure:"service_area_cities"`
}

type CheckoutConfig struct {
	CreateOrderTimeout time.Duration `mapstructure:"create_order_timeout"`
	CaptureTimeout     time.Duration `mapstructure:"capture_timeout"`
	ReconcileTimeout   time.Duration `mapstructure:"reconcile_timeout"`
	SessionIdleTTL     time.Duration `mapstructure:"session_idle_ttl"`
}

type ReconcilerConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Interval  time.Duration `mapstructure:"interval"`
	Grace     time.Duration `mapstructure:"grace"`
	BatchSize int           `mapstructure:"batch_size"`
}

type WalletConfig struct {
	DeclineAbove decimal.Decimal `mapstructure:"decline_above"`
	CaptureTTL   time.Duration   `mapstructure:"capture_ttl"`
}

type TelemetryConfig struct {
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// DefaultServiceAreaCities are the accepted spellings of Luxor.
var DefaultServiceAreaCities = []string{
	"luxor", "louxor", "al uqsur", "al-uqsur", "el uqsur", "el-uqsur", "الأقصر",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "local")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown_timeout", 10*time.Second)

	v.SetDefault("order_service.listen", ":9090")
	v.SetDefault("order_service.addr", "localhost:9090")
	v.SetDefault("wallet_service.listen", ":9091")
	v.SetDefault("wallet_service.addr", "localhost:9091")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.cart_ttl", 72*time.Hour)

	v.SetDefault("database.url", "")

	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "storefront.orders")

	v.SetDefault("checkout_log.path", "./data/checkout.db")

	v.SetDefault("pricing.currency", "USD")
	v.SetDefault("pricing.free_shipping_threshold", "50")
	v.SetDefault("pricing.flat_shipping_fee", "10")
	v.SetDefault("pricing.tax_rate", "0.10")

	v.SetDefault("delivery.service_area_cities", DefaultServiceAreaCities)

	v.SetDefault("checkout.create_order_timeout", 5*time.Second)
	v.SetDefault("checkout.capture_timeout", 10*time.Second)
	v.SetDefault("checkout.reconcile_timeout", 5*time.Second)
	v.SetDefault("checkout.session_idle_ttl", 30*time.Minute)

	v.SetDefault("reconciler.enabled", true)
	v.SetDefault("reconciler.interval", time.Minute)
	v.SetDefault("reconciler.grace", 2*time.Minute)
	v.SetDefault("reconciler.batch_size", 50)

	v.SetDefault("wallet.decline_above", "500")
	v.SetDefault("wallet.capture_ttl", 30*24*time.Hour)

	v.SetDefault("telemetry.service_name", "")
	v.SetDefault("telemetry.otlp_endpoint", "")
}

// Load reads the configuration. path may be empty, in which case only
// defaults and environment variables are used.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config failed: %w", err)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		stringToDecimalHook,
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("unmarshal config failed: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the services cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Pricing.Currency) == "" {
		errs = append(errs, errors.New("pricing.currency is required"))
	}
	if c.Pricing.FreeShippingThreshold.IsNegative() {
		errs = append(errs, errors.New("pricing.free_shipping_threshold must not be negative"))
	}
	if c.Pricing.FlatShippingFee.IsNegative() {
		errs = append(errs, errors.New("pricing.flat_shipping_fee must not be negative"))
	}
	if c.Pricing.TaxRate.IsNegative() || c.Pricing.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		errs = append(errs, errors.New("pricing.tax_rate must be between 0 and 1"))
	}
	if len(c.Delivery.ServiceAreaCities) == 0 {
		errs = append(errs, errors.New("delivery.service_area_cities must not be empty"))
	}
	for name, d := range map[string]time.Duration{
		"checkout.create_order_timeout": c.Checkout.CreateOrderTimeout,
		"checkout.capture_timeout":      c.Checkout.CaptureTimeout,
		"checkout.reconcile_timeout":    c.Checkout.ReconcileTimeout,
		"checkout.session_idle_ttl":     c.Checkout.SessionIdleTTL,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.Reconciler.Enabled && c.Reconciler.Interval <= 0 {
		errs = append(errs, errors.New("reconciler.interval must be positive"))
	}
	if !c.Wallet.DeclineAbove.IsPositive() {
		errs = append(errs, errors.New("wallet.decline_above must be positive"))
	}
	return errors.Join(errs...)
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

func stringToDecimalHook(_ reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
	if t != decimalType {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("invalid decimal %q: %w", v, err)
		}
		return d, nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	}
	return data, nil
}
