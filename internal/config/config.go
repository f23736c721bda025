// Package config loads the engine's configuration from environment
// variables (spec.md §6), with an optional YAML file overlay. It is
// built on viper the way _examples/portalco-dir/server/config does —
// the teacher itself has no env/file config layer, so this concern is
// adopted from elsewhere in the pack rather than hand-rolled with
// os.Getenv calls scattered across packages.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix = "FFEMONITOR"

	DefaultCheckInterval = 5 * time.Second
	DefaultDelayFree      = 600 * time.Second
	DefaultDelayPremium   = 60 * time.Second
	DefaultDelayPro       = 10 * time.Second

	DefaultDispatchInterval = 1 * time.Second
	DefaultDispatchLimit    = 100

	DefaultRateLimitInterval = 2 * time.Second
	DefaultRateLimitRPM      = 20

	DefaultScrapeTimeout  = 15 * time.Second
	DefaultAdapterTimeout = 12 * time.Second

	DefaultEventURLTemplate = "{BASE}/concours/{numero}"
)

// Config is the fully-resolved process configuration.
type Config struct {
	BaseURL           string
	EventURLTemplate  string
	DatastoreURL      string
	PushAppID         string
	PushAPIKey        string
	EmailAPIKey       string
	EmailFromAddress  string
	CheckInterval     time.Duration
	DelayFree         time.Duration
	DelayPremium      time.Duration
	DelayPro          time.Duration
	DispatchInterval  time.Duration
	DispatchLimit     int
	RateLimitInterval time.Duration
	RateLimitRPM      int
	LogLevel          string
	LogJSON           bool
	AdminListenAddr   string
}

// PlanDelay returns the delay the queue planner applies for plan, with
// the free-plan delay as the fallback for unknown plans (spec.md §4.7).
func (c Config) PlanDelay(plan string) time.Duration {
	switch plan {
	case "premium":
		return c.DelayPremium
	case "pro":
		return c.DelayPro
	default:
		return c.DelayFree
	}
}

// EventURL resolves the per-event public page URL from the template.
func (c Config) EventURL(numero int) string {
	url := strings.ReplaceAll(c.EventURLTemplate, "{BASE}", c.BaseURL)
	url = strings.ReplaceAll(url, "{numero}", fmt.Sprintf("%d", numero))
	return url
}

// Load reads configuration from the environment (FFEMONITOR_* vars, plus
// the bare names spec.md §6 lists for backward compatibility with the
// original deployment), an optional file at configPath, and defaults, in
// that order of decreasing priority: defaults < file < env.
func Load(configPath string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindBareEnvNames(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", configPath, err)
		}
	}

	cfg := Config{
		BaseURL:           v.GetString("base_url"),
		EventURLTemplate:  v.GetString("event_url_template"),
		DatastoreURL:      v.GetString("datastore_url"),
		PushAppID:         v.GetString("app_id"),
		PushAPIKey:        v.GetString("push_api_key"),
		EmailAPIKey:       v.GetString("email_api_key"),
		EmailFromAddress:  v.GetString("from_address"),
		CheckInterval:     secondsDuration(v, "check_interval"),
		DelayFree:         secondsDuration(v, "delay_free"),
		DelayPremium:      secondsDuration(v, "delay_premium"),
		DelayPro:          secondsDuration(v, "delay_pro"),
		DispatchInterval:  v.GetDuration("dispatch_interval"),
		DispatchLimit:     v.GetInt("dispatch_limit"),
		RateLimitInterval: v.GetDuration("rate_limit_interval"),
		RateLimitRPM:      v.GetInt("rate_limit_rpm"),
		LogLevel:          v.GetString("log_level"),
		LogJSON:           v.GetBool("log_json"),
		AdminListenAddr:   v.GetString("admin_listen_addr"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// secondsDuration reads spec.md §6's plain-integer-seconds env vars
// (CHECK_INTERVAL, DELAY_FREE, DELAY_PREMIUM, DELAY_PRO) as a duration.
// These are bound as bare seconds counts, not Go duration strings, so
// they're read as ints and scaled explicitly rather than via
// viper.GetDuration (which would treat a bare "5" as 5 nanoseconds).
func secondsDuration(v *viper.Viper, key string) time.Duration {
	return time.Duration(v.GetInt(key)) * time.Second
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("event_url_template", DefaultEventURLTemplate)
	v.SetDefault("check_interval", int(DefaultCheckInterval/time.Second))
	v.SetDefault("delay_free", int(DefaultDelayFree/time.Second))
	v.SetDefault("delay_premium", int(DefaultDelayPremium/time.Second))
	v.SetDefault("delay_pro", int(DefaultDelayPro/time.Second))
	v.SetDefault("dispatch_interval", DefaultDispatchInterval)
	v.SetDefault("dispatch_limit", DefaultDispatchLimit)
	v.SetDefault("rate_limit_interval", DefaultRateLimitInterval)
	v.SetDefault("rate_limit_rpm", DefaultRateLimitRPM)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
	v.SetDefault("admin_listen_addr", "127.0.0.1:8090")
	v.SetDefault("datastore_url", "boltdb://./data/ffemonitor.db")
}

// bindBareEnvNames binds the exact variable names spec.md §6 enumerates
// (BASE_URL, APP_ID, CHECK_INTERVAL, ...) in addition to the
// FFEMONITOR_-prefixed names viper's AutomaticEnv already resolves, so
// deployments following the spec literally keep working.
func bindBareEnvNames(v *viper.Viper) {
	bare := map[string]string{
		"base_url":            "BASE_URL",
		"event_url_template":  "EVENT_URL_TEMPLATE",
		"datastore_url":       "DATASTORE_URL",
		"app_id":              "APP_ID",
		"push_api_key":        "PUSH_API_KEY",
		"email_api_key":       "EMAIL_API_KEY",
		"from_address":        "FROM_ADDRESS",
		"check_interval":      "CHECK_INTERVAL",
		"delay_free":          "DELAY_FREE",
		"delay_premium":       "DELAY_PREMIUM",
		"delay_pro":           "DELAY_PRO",
		"log_level":           "LOG_LEVEL",
	}
	for key, env := range bare {
		_ = v.BindEnv(key, env)
	}
}

func (c Config) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("BASE_URL is required")
	}
	if c.DatastoreURL == "" {
		return fmt.Errorf("datastore URL is required")
	}
	return nil
}
