// Package appconf loads the YAML configuration shared by the API server and
// the notifier.
package appconf

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// KeyEnvVar overrides feed.key when set.
const KeyEnvVar = "MTA_KEY"

type ServerConfig struct {
	Port      int      `yaml:"port" validate:"gt=0,lte=65535"`
	Env       string   `yaml:"env" validate:"oneof=development test production"`
	APIKeys   []string `yaml:"apiKeys"`
	RateLimit int      `yaml:"rateLimit" validate:"gte=0"`
}

type FeedConfig struct {
	Key        string        `yaml:"key"`
	URLs       []string      `yaml:"urls" validate:"min=1,dive,url"`
	MaxTrains  int           `yaml:"maxTrains" validate:"gt=0"`
	MaxMinutes int           `yaml:"maxMinutes" validate:"gt=0"`
	Timeout    time.Duration `yaml:"timeout" validate:"gte=0"`
}

type CacheConfig struct {
	ExpiresSeconds      int  `yaml:"expiresSeconds" validate:"gt=0"`
	Threaded            bool `yaml:"threaded"`
	LeaseTimeoutSeconds int  `yaml:"leaseTimeoutSeconds" validate:"gt=0"`
}

type DataConfig struct {
	StationsFile  string `yaml:"stationsFile" validate:"required"`
	StopTimesFile string `yaml:"stopTimesFile" validate:"required"`
	Timezone      string `yaml:"timezone" validate:"required"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error DEBUG INFO WARN ERROR"`
	Format string `yaml:"format" validate:"oneof=json text"`
}

// NotifierConfig drives cmd/notifier.
type NotifierConfig struct {
	APIURL          string   `yaml:"apiUrl" validate:"omitempty,url"`
	APIKey          string   `yaml:"apiKey"`
	StationID       int      `yaml:"stationId" validate:"gte=0"`
	Routes          []string `yaml:"routes"`
	DeviceURL       string   `yaml:"deviceUrl" validate:"omitempty,url"`
	SyncURL         string   `yaml:"syncUrl" validate:"omitempty,url"`
	AccessToken     string   `yaml:"accessToken"`
	IntervalSeconds int      `yaml:"intervalSeconds" validate:"gt=0"`
	MaxEntries      int      `yaml:"maxEntries" validate:"gt=0"`
	MaxPayloadBytes int      `yaml:"maxPayloadBytes" validate:"gt=0"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Feed     FeedConfig     `yaml:"feed"`
	Cache    CacheConfig    `yaml:"cache"`
	Data     DataConfig     `yaml:"data"`
	Log      LogConfig      `yaml:"log"`
	Notifier NotifierConfig `yaml:"notifier"`
}

// Default returns the configuration used for every field a file leaves out.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:      4000,
			Env:       "development",
			RateLimit: 100,
		},
		Feed: FeedConfig{
			URLs: []string{
				"http://datamine.mta.info/mta_esi.php?feed_id=1",
				"http://datamine.mta.info/mta_esi.php?feed_id=2",
			},
			MaxTrains:  10,
			MaxMinutes: 30,
		},
		Cache: CacheConfig{
			ExpiresSeconds:      60,
			Threaded:            true,
			LeaseTimeoutSeconds: 300,
		},
		Data: DataConfig{
			StationsFile:  "data/stations.json",
			StopTimesFile: "data/stop_times.txt",
			Timezone:      "America/New_York",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Notifier: NotifierConfig{
			APIURL:          "http://localhost:4000",
			IntervalSeconds: 30,
			MaxEntries:      4,
			MaxPayloadBytes: 63,
		},
	}
}

// Parse decodes YAML on top of the defaults. It does not validate.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("error parsing config: %w", err)
	}
	return cfg, nil
}

// Load reads the .env files (missing ones are ignored), the YAML file at path,
// applies environment overrides and validates the result.
func Load(path string, envFiles ...string) (Config, error) {
	if err := LoadEnvFiles(envFiles...); err != nil {
		return Config{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("error reading config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, err
	}
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadEnvFiles loads KEY=value pairs into the process environment without
// overriding variables that are already set. With no arguments it loads .env.
func LoadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("error loading %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv copies environment overrides into the configuration.
func (c *Config) ApplyEnv() {
	if key := strings.TrimSpace(os.Getenv(KeyEnvVar)); key != "" {
		c.Feed.Key = key
	}
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := time.LoadLocation(c.Data.Timezone); err != nil {
		return fmt.Errorf("invalid config: data.timezone: %w", err)
	}
	return nil
}

// Location returns the timetable time zone.
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Data.Timezone)
}

func (c Config) Environment() Environment {
	return EnvFlagToEnvironment(c.Server.Env)
}

func (c CacheConfig) Expiry() time.Duration {
	return time.Duration(c.ExpiresSeconds) * time.Second
}

func (c CacheConfig) LeaseTimeout() time.Duration {
	return time.Duration(c.LeaseTimeoutSeconds) * time.Second
}

func (c FeedConfig) Horizon() time.Duration {
	return time.Duration(c.MaxMinutes) * time.Minute
}

func (c NotifierConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}
