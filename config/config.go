package config

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Astemirdum/odl-service/pkg/kafka"
	"github.com/Astemirdum/odl-service/pkg/logger"
	"github.com/Astemirdum/odl-service/pkg/postgres"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
)

type HTTPServer struct {
	Host         string        `yaml:"host" envconfig:"ODL_HTTP_HOST" default:"0.0.0.0"`
	Port         string        `yaml:"port" envconfig:"ODL_HTTP_PORT" default:"8080"`
	ReadTimeout  time.Duration `yaml:"readTimeout" envconfig:"HTTP_READ" default:"30s"`
	WriteTimeout time.Duration
}

// StatusClient configures access to the distributor's License Status
// Document endpoints.
type StatusClient struct {
	BearerToken string        `envconfig:"LSD_BEARER_TOKEN"`
	Timeout     time.Duration `envconfig:"LSD_TIMEOUT" default:"30s"`
}

// Circulation holds the collection-level loan terms.
type Circulation struct {
	// DefaultLoanPeriod bounds every loan granted from this collection.
	DefaultLoanPeriod time.Duration `envconfig:"ODL_LOAN_PERIOD" default:"504h"`
	// DefaultReservationPeriod is how long a reserved copy waits at the
	// front of the queue before it is released back to the pool.
	DefaultReservationPeriod time.Duration `envconfig:"ODL_RESERVATION_PERIOD" default:"72h"`
	// NotificationBaseURL is the externally reachable prefix for the
	// status-change callback the remote distributor POSTs to.
	NotificationBaseURL string `envconfig:"ODL_NOTIFICATION_BASE_URL" default:"http://localhost:8080"`
	LibraryShortName    string `envconfig:"ODL_LIBRARY_SHORT_NAME" default:"default"`
}

type Reaper struct {
	Interval time.Duration `envconfig:"REAPER_INTERVAL" default:"5m"`
}

type Config struct {
	Server       HTTPServer `yaml:"server"`
	Database     postgres.Config
	Kafka        kafka.Config
	StatusClient StatusClient
	Circulation  Circulation
	Reaper       Reaper
	Log          logger.Log `yaml:"log"`
}

var (
	once sync.Once
	cfg  Config
)

// NewConfig reads config from environment.
func NewConfig(ops ...Option) *Config {
	once.Do(func() {
		var config Config
		for _, op := range ops {
			op(&config)
		}
		err := envconfig.Process("", &config)
		if err != nil {
			log.Fatal("NewConfig ", err)
		}
		cfg = config
		printConfig(cfg)
	})

	return &cfg
}

func printConfig(cfg Config) {
	cfg.StatusClient.BearerToken = "***"
	cfg.Database.Password = "***"
	jscfg, _ := json.MarshalIndent(cfg, "", "	") //nolint:errcheck
	fmt.Println(string(jscfg))
}

type Option func(*Config)

func WithLogLevel(level zapcore.Level) Option {
	return func(c *Config) {
		c.Log.LogLevel = level
	}
}

func WithWriteTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Server.WriteTimeout = d
	}
}
