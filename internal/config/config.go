// Package config loads gateway configuration from an optional config file
// and CHATGATE_-prefixed environment variables. Provider API keys are not
// part of this struct: provider clients read their own credentials from the
// environment at construction time, after the bootstrap has loaded .env.
package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	// Address is the listen address for the HTTP server.
	Address string `mapstructure:"address"`

	// DBPath is the SQLite conversation database path.
	DBPath string `mapstructure:"db_path"`

	// SlackWebhookURL, when set, mirrors server-fault errors to a Slack
	// channel.
	SlackWebhookURL string `mapstructure:"slack_webhook_url"`

	// CORSOrigins is the allow-list of browser origins.
	CORSOrigins []string `mapstructure:"cors_origins"`

	// AuthTokens maps static bearer tokens to user identifiers. Credential
	// issuance lives upstream; the gateway only verifies membership.
	AuthTokens map[string]string `mapstructure:"auth_tokens"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("address", ":8100")
	v.SetDefault("db_path", "chatgate.db")

	// allow environment variables like CHATGATE_ADDRESS
	v.SetEnvPrefix("CHATGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// don't fail if config file is missing, allow env-only config
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, err
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	return &c, nil
}
