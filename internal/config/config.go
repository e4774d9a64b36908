package config

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	DiscordToken     string        `mapstructure:"discord_token"`
	CommandPrefix    string        `mapstructure:"command_prefix"`
	BotHandleTimeout time.Duration `mapstructure:"bot_handle_timeout"`
	PromptTimeout    time.Duration `mapstructure:"prompt_timeout"`

	ChallengeTTL      time.Duration `mapstructure:"challenge_ttl"`
	PromotionCooldown time.Duration `mapstructure:"promotion_cooldown"`
	SweepInterval     time.Duration `mapstructure:"sweep_interval"`

	DuelLogChannelID string `mapstructure:"duel_log_channel_id"`
	TicketCategoryID string `mapstructure:"ticket_category_id"`

	ModeratorRole string `mapstructure:"moderator_role"`
	AdminRole     string `mapstructure:"admin_role"`

	SQLitePath string `mapstructure:"sqlite_path"`

	ListenAddress string `mapstructure:"listen_address"`
}

func New() *Config {
	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		logrus.Fatalf("unmarshalling config: %v", err)
	}
	return cfg
}

func SetupCommon() {
	viper.SetDefault("command_prefix", "?")
	viper.SetDefault("sqlite_path", "bladebot.db")
	viper.SetDefault("moderator_role", "Moderator")
	viper.SetDefault("admin_role", "Admin")
	viper.SetEnvPrefix("BLADEBOT")

	viper.MustBindEnv("discord_token")
	viper.AutomaticEnv()
}
