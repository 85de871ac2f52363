// Package conf holds the environment-driven settings for the cdctest
// container helpers: container image references and startup timeouts. All
// values can be overridden through CDCTEST_* environment variables, e.g.:
//
//	export CDCTEST_IMAGES_CONNECT=debezium/connect:3.0.0.Final
//	export CDCTEST_STARTUP_TIMEOUT=120s
package conf

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// envPrefix is the prefix for all cdctest environment variables.
const envPrefix = "CDCTEST"

// Images holds the container image references used by the container helpers.
type Images struct {
	Kafka    string `mapstructure:"kafka"`
	Connect  string `mapstructure:"connect"`
	Postgres string `mapstructure:"postgres"`
	MySQL    string `mapstructure:"mysql"`
}

// Settings holds all tunables for the container helpers.
type Settings struct {
	Images Images `mapstructure:"images"`

	// StartupTimeout bounds how long a single container may take to
	// become ready before its constructor fails.
	StartupTimeout Duration `mapstructure:"startup_timeout"`
}

// Load reads settings from the environment, falling back to defaults.
func Load() (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// AutomaticEnv alone does not surface env-only keys to Unmarshal, so
	// bind each key explicitly.
	for _, key := range []string{
		"images.kafka",
		"images.connect",
		"images.postgres",
		"images.mysql",
		"startup_timeout",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings, viper.DecodeHook(DurationDecodeHook())); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}

	return &settings, nil
}

// MustLoad is Load for contexts without error handling, such as package
// variable initialization in test helpers. It panics on decode failure.
func MustLoad() *Settings {
	settings, err := Load()
	if err != nil {
		panic("cdctest: invalid configuration: " + err.Error())
	}
	return settings
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("images.kafka", DefaultKafkaImage)
	v.SetDefault("images.connect", DefaultConnectImage)
	v.SetDefault("images.postgres", DefaultPostgresImage)
	v.SetDefault("images.mysql", DefaultMySQLImage)
	v.SetDefault("startup_timeout", defaultStartupTimeout.String())
}
