package config

import (
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Broker    BrokerConfig
	Accounts  AccountsConfig
	Engine    EngineConfig
	Dashboard DashboardConfig
	Log       LogConfig
}

type BrokerConfig struct {
	BaseURL string
	Timeout time.Duration
	// Requests per second allowed against the broker API, per account.
	RateLimit float64
}

type AccountsConfig struct {
	File string
}

type EngineConfig struct {
	PollInterval    time.Duration
	FreshnessWindow time.Duration
}

type DashboardConfig struct {
	Enabled bool
	Addr    string
}

type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
	ChildDir   string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	viper.AddConfigPath("configs")
	viper.SetConfigName("config")
	viper.ReadInConfig()

	viper.SetDefault("broker.base_url", "https://api.dhan.co")
	viper.SetDefault("broker.timeout", "15s")
	viper.SetDefault("broker.rate_limit", 20.0)
	viper.SetDefault("accounts.file", "data/access_token.csv")
	viper.SetDefault("engine.poll_interval", "1s")
	viper.SetDefault("engine.freshness_window", "5s")
	viper.SetDefault("dashboard.enabled", true)
	viper.SetDefault("dashboard.addr", ":5000")
	viper.SetDefault("log.child_dir", "logs")

	cfg := &Config{}

	cfg.Broker = BrokerConfig{
		BaseURL:   viper.GetString("broker.base_url"),
		Timeout:   viper.GetDuration("broker.timeout"),
		RateLimit: viper.GetFloat64("broker.rate_limit"),
	}

	cfg.Accounts = AccountsConfig{
		File: envSub("accounts.file"),
	}

	cfg.Engine = EngineConfig{
		PollInterval:    viper.GetDuration("engine.poll_interval"),
		FreshnessWindow: viper.GetDuration("engine.freshness_window"),
	}

	cfg.Dashboard = DashboardConfig{
		Enabled: viper.GetBool("dashboard.enabled"),
		Addr:    viper.GetString("dashboard.addr"),
	}

	cfg.Log = LogConfig{
		Level:      viper.GetString("log.level"),
		Format:     viper.GetString("log.format"),
		File:       viper.GetString("log.file"),
		MaxSize:    viper.GetInt("log.max_size"),
		MaxBackups: viper.GetInt("log.max_backups"),
		MaxAge:     viper.GetInt("log.max_age"),
		Compress:   viper.GetBool("log.compress"),
		ChildDir:   viper.GetString("log.child_dir"),
	}

	return cfg, nil
}

func envSub(key string) string {
	val := viper.GetString(key)
	if val == "" {
		return ""
	}

	re := regexp.MustCompile(`\$\{(\w+)\}`)
	return re.ReplaceAllStringFunc(val, func(match string) string {
		envKey := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(envKey)
	})
}
