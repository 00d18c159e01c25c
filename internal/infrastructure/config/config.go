package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/erp/reversecharge/internal/domain/shared"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App           AppConfig           `key:"app"`
	Log           LogConfig           `key:"log"`
	ReverseCharge ReverseChargeConfig `key:"reverse_charge"`
	Lock          LockConfig          `key:"lock"`
	Telemetry     TelemetryConfig     `key:"telemetry"`
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string `key:"name" validate:"required"`
	Env  string `key:"env" validate:"required,oneof=development testing staging production"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `key:"level" validate:"oneof=debug info warn warning error"`
	Format string `key:"format" validate:"oneof=json console"`
	Output string `key:"output" validate:"required"` // stdout, stderr, or file path
}

// ReverseChargeConfig holds the intra-EU reverse charge settings
type ReverseChargeConfig struct {
	// Strategy is one of aggregate, offset, replace
	Strategy string `key:"strategy" validate:"oneof=aggregate offset replace"`
	// ZoneMatchMode is one of channel_identity, geographic
	ZoneMatchMode string `key:"zone_match_mode" validate:"oneof=channel_identity geographic"`
	// RoundedCurrencies get substracted amounts rounded to RoundingUnit
	RoundedCurrencies []string `key:"rounded_currencies" validate:"dive,len=3,uppercase,alpha"`
	RoundingUnit      int64    `key:"rounding_unit" validate:"gte=1"`
	AdjustmentLabel   string   `key:"adjustment_label" validate:"required,max=255"`
	// EuropeanZoneCountries seeds the default geographic zone matcher
	EuropeanZoneCode      string   `key:"european_zone_code" validate:"required"`
	EuropeanZoneCountries []string `key:"european_zone_countries" validate:"dive,len=2,uppercase,alpha"`
}

// LockConfig holds the per-order lock settings
type LockConfig struct {
	// Backend is one of memory, redis
	Backend       string        `key:"backend" validate:"oneof=memory redis"`
	KeyPrefix     string        `key:"key_prefix"`
	TTL           time.Duration `key:"ttl" validate:"gt=0"`
	RetryInterval time.Duration `key:"retry_interval" validate:"gt=0"`
	// Timeout bounds the wait for a busy order, zero waits as long as the caller's context allows
	Timeout time.Duration `key:"timeout" validate:"gte=0"`
	Redis   RedisConfig   `key:"redis"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string `key:"host" validate:"required"`
	Port     int    `key:"port" validate:"gte=1,lte=65535"`
	Password string `key:"password"`
	DB       int    `key:"db" validate:"gte=0"`
}

// TelemetryConfig holds OpenTelemetry instrumentation settings
type TelemetryConfig struct {
	Enabled           bool          `key:"enabled"`
	CollectorEndpoint string        `key:"collector_endpoint" validate:"required_if=Enabled true"`
	Insecure          bool          `key:"insecure"`
	SamplingRatio     float64       `key:"sampling_ratio" validate:"gte=0,lte=1"`
	ServiceName       string        `key:"service_name" validate:"required_if=Enabled true"`
	ExportInterval    time.Duration `key:"export_interval" validate:"gte=0"`
	LogsEnabled       bool          `key:"logs_enabled"`
}

// DefaultEuropeanZoneCountries are the EU member states
var DefaultEuropeanZoneCountries = []string{
	"AT", "BE", "BG", "CY", "CZ", "DE", "DK", "EE", "ES", "FI", "FR", "GR", "HR", "HU",
	"IE", "IT", "LT", "LU", "LV", "MT", "NL", "PL", "PT", "RO", "SE", "SI", "SK",
}

// Load reads config.toml when present, then VAT_ prefixed environment variables
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/reversecharge")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return fromViper(v)
}

// LoadFile reads configuration from an explicit file, environment variables still override it
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("VAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		ReverseCharge: ReverseChargeConfig{
			Strategy:              v.GetString("reverse_charge.strategy"),
			ZoneMatchMode:         v.GetString("reverse_charge.zone_match_mode"),
			RoundedCurrencies:     v.GetStringSlice("reverse_charge.rounded_currencies"),
			RoundingUnit:          v.GetInt64("reverse_charge.rounding_unit"),
			AdjustmentLabel:       v.GetString("reverse_charge.adjustment_label"),
			EuropeanZoneCode:      v.GetString("reverse_charge.european_zone_code"),
			EuropeanZoneCountries: v.GetStringSlice("reverse_charge.european_zone_countries"),
		},
		Lock: LockConfig{
			Backend:       v.GetString("lock.backend"),
			KeyPrefix:     v.GetString("lock.key_prefix"),
			TTL:           v.GetDuration("lock.ttl"),
			RetryInterval: v.GetDuration("lock.retry_interval"),
			Timeout:       v.GetDuration("lock.timeout"),
			Redis: RedisConfig{
				Host:     v.GetString("lock.redis.host"),
				Port:     v.GetInt("lock.redis.port"),
				Password: v.GetString("lock.redis.password"),
				DB:       v.GetInt("lock.redis.db"),
			},
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			Insecure:          v.GetBool("telemetry.insecure"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			ExportInterval:    v.GetDuration("telemetry.export_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
		},
	}

	applyDefaults(cfg, v)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills empty values. Lists are only defaulted when the key was never set,
// so an explicit empty list disables rounding.
func applyDefaults(cfg *Config, v *viper.Viper) {
	if cfg.App.Name == "" {
		cfg.App.Name = "reverse-charge"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		if cfg.App.Env == "production" {
			cfg.Log.Format = "json"
		} else {
			cfg.Log.Format = "console"
		}
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}

	rc := &cfg.ReverseCharge
	if rc.Strategy == "" {
		rc.Strategy = "aggregate"
	}
	if rc.ZoneMatchMode == "" {
		rc.ZoneMatchMode = "channel_identity"
	}
	if v == nil || !v.IsSet("reverse_charge.rounded_currencies") {
		rc.RoundedCurrencies = []string{"HUF", "RON"}
	}
	for i, c := range rc.RoundedCurrencies {
		rc.RoundedCurrencies[i] = strings.ToUpper(strings.TrimSpace(c))
	}
	if rc.RoundingUnit == 0 {
		rc.RoundingUnit = 100
	}
	if rc.AdjustmentLabel == "" {
		rc.AdjustmentLabel = "0% VAT"
	}
	if rc.EuropeanZoneCode == "" {
		rc.EuropeanZoneCode = "EU"
	}
	if len(rc.EuropeanZoneCountries) == 0 {
		rc.EuropeanZoneCountries = append([]string(nil), DefaultEuropeanZoneCountries...)
	}
	for i, c := range rc.EuropeanZoneCountries {
		rc.EuropeanZoneCountries[i] = strings.ToUpper(strings.TrimSpace(c))
	}

	lc := &cfg.Lock
	if lc.Backend == "" {
		lc.Backend = "memory"
	}
	if lc.KeyPrefix == "" {
		lc.KeyPrefix = "reverse_charge:lock:"
	}
	if lc.TTL == 0 {
		lc.TTL = 30 * time.Second
	}
	if lc.RetryInterval == 0 {
		lc.RetryInterval = 25 * time.Millisecond
	}
	if lc.Redis.Host == "" {
		lc.Redis.Host = "localhost"
	}
	if lc.Redis.Port == 0 {
		lc.Redis.Port = 6379
	}

	tc := &cfg.Telemetry
	if tc.ServiceName == "" {
		tc.ServiceName = cfg.App.Name
	}
	if tc.CollectorEndpoint == "" {
		tc.CollectorEndpoint = "localhost:4317"
	}
	if v == nil || !v.IsSet("telemetry.sampling_ratio") {
		tc.SamplingRatio = 1.0
	}
	if tc.ExportInterval == 0 {
		tc.ExportInterval = 15 * time.Second
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("key")
	})
	return v
}

// Validate checks the configuration and reports every invalid field in one error
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
	}

	messages := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		messages = append(messages, fmt.Sprintf("%s failed %s", configKey(fe), describeTag(fe)))
	}
	return fmt.Errorf("%w: %s", shared.ErrInvalidConfig, strings.Join(messages, "; "))
}

// configKey turns "Config.reverse_charge.strategy" into "reverse_charge.strategy"
func configKey(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return ns
}

func describeTag(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fmt.Sprintf("%s=%s", fe.Tag(), fe.Param())
}

// IsProduction returns true when running in production
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
