package udptracker

import (
	"time"

	"github.com/anthonyraymond/joal-udptracker/internal/configloader"
	"github.com/anthonyraymond/joal-udptracker/pkg/logs"
	"github.com/anthonyraymond/joal-udptracker/pkg/udptracker/connection"
	"github.com/anthonyraymond/joal-udptracker/pkg/udptracker/transaction"
	"github.com/pkg/errors"
)

type Config struct {
	// LocalAddress is where the session socket is bound, port 0 picks an ephemeral one.
	LocalAddress         string                `yaml:"localAddress" validate:"required"`
	ConnectionIDValidity time.Duration         `yaml:"connectionIdValidity" validate:"gt=0"`
	Retry                *transaction.Schedule `yaml:"retry" validate:"required"`
	// BorderlineMargin is how close to expiry a connection id has to be for a timeout to be blamed on it.
	BorderlineMargin  time.Duration   `yaml:"borderlineMargin" validate:"min=0"`
	ReceiveBufferSize int             `yaml:"receiveBufferSize" validate:"min=20"`
	Log               *logs.LogConfig `yaml:"log" validate:"required"`
}

func (c Config) Default() *Config {
	coordinator := transaction.Config{}.Default()
	return &Config{
		LocalAddress:         "0.0.0.0:0",
		ConnectionIDValidity: connection.DefaultValidity,
		Retry:                coordinator.Retry,
		BorderlineMargin:     5 * time.Second,
		ReceiveBufferSize:    coordinator.ReceiveBufferSize,
		Log:                  logs.LogConfig{}.Default(),
	}
}

func (c *Config) coordinatorConfig() *transaction.Config {
	return &transaction.Config{
		Retry:             c.Retry,
		ReceiveBufferSize: c.ReceiveBufferSize,
	}
}

// LoadConfig reads a yaml config over the defaults, validates it and installs its log configuration.
func LoadConfig(configFilePath string) (*Config, error) {
	conf := Config{}.Default()
	if err := configloader.ParseIntoDefault(configFilePath, conf); err != nil {
		return nil, err
	}
	if err := configloader.Validate(conf); err != nil {
		return nil, errors.Wrapf(err, "invalid config file '%s'", configFilePath)
	}
	if err := logs.ReplaceLogger(conf.Log); err != nil {
		return nil, err
	}
	return conf, nil
}

func SaveConfig(configFilePath string, conf *Config) error {
	return configloader.SaveToFile(configFilePath, conf)
}
