package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Local store drivers.
const (
	LocalFile     = "file"
	LocalRedis    = "redis"
	LocalDisabled = "none"
)

// Remote store and catalog drivers.
const (
	DriverCMS      = "cms"
	DriverPostgres = "postgres"
)

// Config holds the complete application configuration, loadable from
// environment variables (STOREFRONT_ prefix) or YAML config files.
type Config struct {
	CMS      CMSConfig
	Local    LocalConfig
	Remote   RemoteConfig
	Catalog  CatalogConfig
	Currency CurrencyConfig
	Watch    WatchConfig
	// DatabaseURL is required by the postgres remote store and catalog.
	DatabaseURL string `usage:"PostgreSQL connection URL (STOREFRONT_DATABASE_URL or DATABASE_URL)"`
}

// CMSConfig points at the headless CMS.
type CMSConfig struct {
	URL     string        `default:"http://localhost:3000" usage:"CMS base URL"`
	Timeout time.Duration `default:"10s" usage:"Timeout of a single CMS request"`
}

// LocalConfig selects where the anonymous cart is kept on the device.
type LocalConfig struct {
	Driver string `default:"file" usage:"Local cart store: file, redis or none"`
	// Dir defaults to the user config directory.
	Dir   string `default:"" usage:"Directory of the file store"`
	Redis RedisConfig
}

// RedisConfig configures the redis local store.
type RedisConfig struct {
	Addr     string        `default:"localhost:6379" usage:"Redis address"`
	Password string        `default:"" usage:"Redis password"`
	DB       int           `default:"0" usage:"Redis database"`
	Prefix   string        `default:"storefront:" usage:"Key prefix of this device"`
	TTL      time.Duration `default:"720h" usage:"Expiry of stored values, 0 keeps them"`
}

// RemoteConfig selects where the signed-in user's cart is saved.
type RemoteConfig struct {
	Driver  string        `default:"cms" usage:"Remote cart store: cms or postgres"`
	Timeout time.Duration `default:"10s" usage:"Timeout of a single remote cart write"`
}

// CatalogConfig selects where products are resolved from.
type CatalogConfig struct {
	Driver string `default:"cms" usage:"Product catalog: cms or postgres"`
}

// CurrencyConfig controls how totals are displayed.
type CurrencyConfig struct {
	Locale      string `default:"en-US" usage:"BCP 47 locale for amounts"`
	Symbol      string `default:"$" usage:"Currency symbol"`
	MinorUnits  int    `default:"2" usage:"Minor units per major unit"`
	SymbolAfter bool   `default:"false" usage:"Place the currency symbol after the amount"`
}

// WatchConfig controls the watch command.
type WatchConfig struct {
	Interval time.Duration `default:"15s" usage:"Identity poll interval"`
}

// LoadConfig loads configuration from environment variables and YAML config
// files. Command-line arguments are left to the command.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STOREFRONT",
		SkipFlags: true,
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps the standard DATABASE_URL variable to the
// STOREFRONT_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
}

func (c *Config) validate() error {
	switch c.Local.Driver {
	case LocalFile, LocalRedis, LocalDisabled:
	default:
		return errors.Errorf("unknown local driver %q", c.Local.Driver)
	}
	for name, driver := range map[string]string{
		"remote":  c.Remote.Driver,
		"catalog": c.Catalog.Driver,
	} {
		switch driver {
		case DriverCMS:
		case DriverPostgres:
			if c.DatabaseURL == "" {
				return errors.Errorf("%s driver %q requires STOREFRONT_DATABASE_URL or DATABASE_URL", name, driver)
			}
		default:
			return errors.Errorf("unknown %s driver %q", name, driver)
		}
	}
	return nil
}

// usesPostgres reports whether any component needs the database.
func (c *Config) usesPostgres() bool {
	return c.Remote.Driver == DriverPostgres || c.Catalog.Driver == DriverPostgres
}
