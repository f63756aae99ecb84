package config

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/openshelf/lending-service/pkg/auth"
	"github.com/openshelf/lending-service/pkg/kafka"
	"github.com/openshelf/lending-service/pkg/logger"
	"github.com/openshelf/lending-service/pkg/postgres"
)

type HTTPServer struct {
	Host         string        `yaml:"host" envconfig:"HTTP_HOST" default:"0.0.0.0"`
	Port         string        `yaml:"port" envconfig:"HTTP_PORT" default:"8080"`
	ReadTimeout  time.Duration `yaml:"readTimeout" envconfig:"HTTP_READ" default:"10s"`
	WriteTimeout time.Duration
}

type Config struct {
	Server   HTTPServer   `yaml:"server"`
	Database postgres.DB  `yaml:"db"`
	Kafka    kafka.Config `yaml:"kafka"`
	JWT      auth.Config  `yaml:"jwt"`
	Log      logger.Log   `yaml:"log"`
}

var (
	once sync.Once
	cfg  *Config
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
		cfg = &config
		printConfig(cfg)
	})

	return cfg
}

func printConfig(cfg *Config) {
	redacted := *cfg
	redacted.Database.Password = "***"
	redacted.JWT.Secret = "***"
	jscfg, _ := json.MarshalIndent(redacted, "", "	") //nolint:errcheck
	fmt.Println(string(jscfg))
}
