package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/blademasters/bladebot/internal/bot"
	"github.com/blademasters/bladebot/internal/config"
	"github.com/blademasters/bladebot/internal/ladder"
	"github.com/blademasters/bladebot/internal/ledger"
	"github.com/blademasters/bladebot/internal/logging"
	"github.com/blademasters/bladebot/internal/roblox"
	"github.com/blademasters/bladebot/internal/storage"
)

func main() {
	setupConfig()
	logging.Init()

	cfg := config.New()
	logrus.Debugf("config: %+v", cfg)

	// TranslateError maps driver unique-constraint failures onto
	// gorm.ErrDuplicatedKey, which the ledger relies on for challenge
	// exclusivity.
	db, err := gorm.Open(sqlite.Open(cfg.SQLitePath), &gorm.Config{TranslateError: true})
	if err != nil {
		logrus.Fatalf("Failed to open database: %v", err)
	}

	store := storage.New(db)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	initCtx, migrateCancel := context.WithTimeout(ctx, 10*time.Second)
	defer migrateCancel()

	if err := store.Migrate(initCtx); err != nil {
		logrus.Fatalf("Failed to migrate database: %v", err)
	}

	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		logrus.Fatalf("Failed to create discord session: %v", err)
	}

	ldg := ledger.New(store, ladder.New(store), ledger.Config{
		ChallengeTTL:      cfg.ChallengeTTL,
		PromotionCooldown: cfg.PromotionCooldown,
	})

	b := bot.New(cfg, ldg, session, roblox.NewClient())

	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := b.Run(ctx); err != nil {
			logrus.Errorf("bot stopped: %v", err)
			cancel()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		ldg.RunSweeper(ctx, cfg.SweepInterval)
	}()

	<-ctx.Done()

	logrus.Info("waiting for services to finish")
	wg.Wait()
}

func setupConfig() {
	viper.SetDefault("bot_handle_timeout", "10s")
	viper.SetDefault("prompt_timeout", "2m")
	viper.SetDefault("challenge_ttl", "168h")
	viper.SetDefault("promotion_cooldown", "72h")
	viper.SetDefault("sweep_interval", "1m")
	config.SetupCommon()
}
