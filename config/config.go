package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DBPath      string
	DatabaseURL string // optional Postgres DSN; SQLite is used when empty
	ServerAddr  string
	LogLevel    string
	Scraper     ScraperConfig
	Scheduler   SchedulerConfig
	Providers   map[string]*ProviderConfig
}

type ScraperConfig struct {
	DelayMS          int
	NavTimeoutMS     int
	HeadingTimeoutMS int
	SettleDelayMS    int
	Headless         bool
}

type SchedulerConfig struct {
	Cron     string
	Interval time.Duration
	// RefreshBatch bounds how many stale deals one scheduled pass re-scrapes.
	RefreshBatch int
}

type ProviderConfig struct {
	Slug             string `yaml:"slug"`
	Name             string `yaml:"name"`
	BaseURL          string `yaml:"base_url"`
	DepartureAirport string `yaml:"departure_airport"`
	Active           bool   `yaml:"active"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBPath:      getEnv("DB_PATH", "deals.db"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		ServerAddr:  getEnv("SERVER_ADDR", ":8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Scraper: ScraperConfig{
			DelayMS:          getEnvInt("SCRAPE_DELAY_MS", 1000),
			NavTimeoutMS:     getEnvInt("SCRAPE_NAV_TIMEOUT_MS", 45000),
			HeadingTimeoutMS: getEnvInt("SCRAPE_HEADING_TIMEOUT_MS", 15000),
			SettleDelayMS:    getEnvInt("SCRAPE_SETTLE_DELAY_MS", 3000),
			Headless:         getEnv("SCRAPE_HEADLESS", "true") == "true",
		},
		Scheduler: SchedulerConfig{
			Cron:         os.Getenv("SCRAPE_CRON"),
			RefreshBatch: getEnvInt("SCRAPE_REFRESH_BATCH", 20),
		},
		Providers: make(map[string]*ProviderConfig),
	}

	if interval := os.Getenv("SCRAPE_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			cfg.Scheduler.Interval = d
		}
	}

	if err := cfg.loadProviderConfigs(); err != nil {
		return nil, err
	}

	// Jet2 is always present even without a config file; it is the
	// only provider the extraction pipeline currently understands.
	if _, ok := cfg.Providers["jet2"]; !ok {
		cfg.Providers["jet2"] = &ProviderConfig{
			Slug:             "jet2",
			Name:             "Jet2holidays",
			BaseURL:          "https://www.jet2holidays.com",
			DepartureAirport: "BFS",
			Active:           true,
		}
	}

	return cfg, nil
}

func (c *Config) loadProviderConfigs() error {
	configDir := "config/providers"
	entries, err := os.ReadDir(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(configDir, entry.Name()))
		if err != nil {
			return err
		}

		var provider ProviderConfig
		if err := yaml.Unmarshal(data, &provider); err != nil {
			return err
		}

		c.Providers[provider.Slug] = &provider
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
