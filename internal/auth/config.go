package auth

import (
	"fmt"

	"github.com/spf13/viper"
)

const defaultActorHeader = "X-User-ID"

type Config struct {
	ActorHeader string `mapstructure:"ACTOR_HEADER"`
}

// NewConfig читает настройки из файла. Если файла нет, используется заголовок по умолчанию.
func NewConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("ACTOR_HEADER", defaultActorHeader)
	v.BindEnv("ACTOR_HEADER", "AUTH_ACTOR_HEADER")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Warning: auth config %s not loaded, using defaults: %v\n", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal config: %w", err)
	}

	return &cfg, nil
}
