package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const envPrefix = "EDUDONOR"

type AppConfig struct {
	API      *APIConfig      `mapstructure:"api"`
	Gin      *GinConfig      `mapstructure:"gin"`
	Postgres *PostgresConfig `mapstructure:"postgres"`
	Ledger   *LedgerConfig   `mapstructure:"ledger"`
	Cache    *CacheConfig    `mapstructure:"cache"`
	Intake   *IntakeConfig   `mapstructure:"intake"`
	Storage  *StorageConfig  `mapstructure:"storage"`
}

type APIConfig struct {
	Environment        string   `mapstructure:"environment"`
	Port               string   `mapstructure:"port"`
	BaseURL            string   `mapstructure:"base_url"`
	JWTSigningKey      string   `mapstructure:"jwt_signing_key"`
	AllowedCORSDomains []string `mapstructure:"allowed_cors_domains"`
	AdminEmails        []string `mapstructure:"admin_emails"`
}

type GinConfig struct {
	Mode string `mapstructure:"mode"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DB       string `mapstructure:"db"`
	SSLMode  string `mapstructure:"sslmode"`
}

// LedgerConfig tunes the donation submission path. PaymentDelay stands in for
// the gateway round-trip; SubmitTimeout bounds the whole submitting window.
type LedgerConfig struct {
	PaymentDelay  time.Duration `mapstructure:"payment_delay"`
	SubmitTimeout time.Duration `mapstructure:"submit_timeout"`
	ReceiptPrefix string        `mapstructure:"receipt_prefix"`
}

type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type IntakeConfig struct {
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

type StorageConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Region   string `mapstructure:"region"`
	Bucket   string `mapstructure:"bucket"`
	MaxWidth int    `mapstructure:"max_width"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.environment", "development")
	v.SetDefault("api.port", "8080")
	v.SetDefault("gin.mode", "release")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("ledger.payment_delay", 2*time.Second)
	v.SetDefault("ledger.submit_timeout", 15*time.Second)
	v.SetDefault("ledger.receipt_prefix", "EDU")
	v.SetDefault("cache.ttl", 30*time.Second)
	v.SetDefault("intake.session_ttl", 30*time.Minute)
	v.SetDefault("storage.max_width", 1200)
}

// Load reads the YAML file at path and overlays EDUDONOR_* environment
// variables, e.g. EDUDONOR_API_JWT_SIGNING_KEY.
func Load(path string) (*AppConfig, error) {
	v := viper.GetViper()
	v.SetConfigFile(path)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("viper.ReadInConfig -> %w", err)
	}

	conf := &AppConfig{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("viper.Unmarshal -> %w", err)
	}

	if err := conf.validate(); err != nil {
		return nil, err
	}

	return conf, nil
}

// Watch logs edits to the loaded config file. Values already handed out are
// not swapped; a restart applies them.
func Watch() {
	viper.OnConfigChange(func(e fsnotify.Event) {
		zap.L().Info("config file changed, restart to apply", zap.String("file", e.Name), zap.String("op", e.Op.String()))
	})
	viper.WatchConfig()
}

func (c *AppConfig) validate() error {
	if c.API == nil || c.Gin == nil || c.Postgres == nil || c.Ledger == nil || c.Cache == nil || c.Intake == nil || c.Storage == nil {
		return fmt.Errorf("config: missing section")
	}
	if c.API.JWTSigningKey == "" {
		return fmt.Errorf("config: api.jwt_signing_key is required")
	}
	if c.Ledger.SubmitTimeout <= 0 {
		return fmt.Errorf("config: ledger.submit_timeout must be positive")
	}
	if c.Ledger.PaymentDelay >= c.Ledger.SubmitTimeout {
		return fmt.Errorf("config: ledger.payment_delay must be shorter than ledger.submit_timeout")
	}
	return nil
}

func (c *APIConfig) IsAdminEmail(email string) bool {
	for _, e := range c.AdminEmails {
		if strings.EqualFold(strings.TrimSpace(e), strings.TrimSpace(email)) {
			return true
		}
	}
	return false
}
