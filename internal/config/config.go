package config

import (
	"os"

	"github.com/go-yaml/yaml"

	"github.com/totegamma/lngateway/internal/domain"
)

type Config struct {
	Gateway Gateway `yaml:"gateway"`
	Server  Server  `yaml:"server"`
}

type Gateway struct {
	Domain      string `yaml:"domain"`
	MinSendable int64  `yaml:"minSendable"` // msats
	MaxSendable int64  `yaml:"maxSendable"` // msats

	Federations []domain.InviteDescriptor `yaml:"federations"`
}

type Server struct {
	Listen        string `yaml:"listen"`
	PostgresDsn   string `yaml:"postgresDsn"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB"`
	MemcachedAddr string `yaml:"memcachedAddr"`
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`
}

func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, err
	}

	if config.Server.Listen == "" {
		config.Server.Listen = ":8000"
	}
	if config.Gateway.MinSendable == 0 {
		config.Gateway.MinSendable = 1000
	}
	if config.Gateway.MaxSendable == 0 {
		config.Gateway.MaxSendable = 100000000
	}

	return config, nil
}
