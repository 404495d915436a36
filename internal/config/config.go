package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vovakirdan/wirechat-channels/internal/chat"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr" validate:"required"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	DatabasePath string        `mapstructure:"database_path" yaml:"database_path" validate:"required"`
	JWTSecret    string        `mapstructure:"jwt_secret" yaml:"jwt_secret" validate:"required"`
	JWTIssuer    string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience  string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL       time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`

	ScriptsDir      string        `mapstructure:"scripts_dir" yaml:"scripts_dir"`
	HookMaxDepth    int           `mapstructure:"hook_max_depth" yaml:"hook_max_depth" validate:"gte=1"`
	MOTDDelay       time.Duration `mapstructure:"motd_delay" yaml:"motd_delay"`
	TalkRatePerSec  float64       `mapstructure:"talk_rate_per_sec" yaml:"talk_rate_per_sec" validate:"gte=0"`
	TalkBurst       int           `mapstructure:"talk_burst" yaml:"talk_burst" validate:"gte=0"`
	MaxMessageBytes int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes" validate:"gte=0"`

	Channels []Channel `mapstructure:"channels" yaml:"channels" validate:"unique=ID,dive"`
}

// Channel is a static channel definition. Ids below 2 belong to the guild
// and party channels and ids from 100 up to private channels.
type Channel struct {
	ID     uint16 `mapstructure:"id" yaml:"id" validate:"gte=2,lt=100"`
	Name   string `mapstructure:"name" yaml:"name" validate:"required,max=32"`
	Public bool   `mapstructure:"public" yaml:"public"`
	Script string `mapstructure:"script" yaml:"script,omitempty" validate:"omitempty,endswith=.lua"`
	MOTD   string `mapstructure:"motd" yaml:"motd,omitempty"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		DatabasePath:      "wirechat.db",
		JWTSecret:         "change-me",
		JWTIssuer:         "wirechat",
		JWTAudience:       "wirechat-clients",
		JWTTTL:            24 * time.Hour,
		ScriptsDir:        "data/chatchannels/scripts",
		HookMaxDepth:      16,
		MOTDDelay:         chat.DefaultMOTDDelay,
		TalkRatePerSec:    2,
		TalkBurst:         5,
		MaxMessageBytes:   4096,
		Channels: []Channel{
			{ID: 3, Name: "World Chat"},
			{ID: 5, Name: "Advertising", Script: "trade.lua"},
			{ID: 7, Name: "Help", Public: true, Script: "help.lua", MOTD: "Ask anything. Tutors answer in red."},
			{ID: 9, Name: "Staff", Script: "staff.lua"},
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and static channel definitions.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// StaticDefinitions converts the configured channels for the registry.
func (c *Config) StaticDefinitions() []chat.StaticDefinition {
	defs := make([]chat.StaticDefinition, 0, len(c.Channels))
	for _, ch := range c.Channels {
		defs = append(defs, chat.StaticDefinition{
			ID:     chat.ChannelID(ch.ID),
			Name:   ch.Name,
			Public: ch.Public,
			Script: ch.Script,
			MOTD:   ch.MOTD,
		})
	}
	return defs
}
