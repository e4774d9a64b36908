package main

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/blademasters/bladebot/internal/api"
	"github.com/blademasters/bladebot/internal/config"
	"github.com/blademasters/bladebot/internal/ladder"
	"github.com/blademasters/bladebot/internal/ledger"
	"github.com/blademasters/bladebot/internal/logging"
	"github.com/blademasters/bladebot/internal/storage"
)

func main() {
	setupConfig()
	logging.Init()

	cfg := config.New()
	logrus.Debugf("config: %+v", cfg)

	db, err := gorm.Open(sqlite.Open(cfg.SQLitePath), &gorm.Config{TranslateError: true})
	if err != nil {
		logrus.Fatalf("Failed to open database: %v", err)
	}

	store := storage.New(db)

	migrateCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Migrate(migrateCtx); err != nil {
		logrus.Fatalf("Failed to migrate database: %v", err)
	}

	ldg := ledger.New(store, ladder.New(store), ledger.Config{
		ChallengeTTL:      cfg.ChallengeTTL,
		PromotionCooldown: cfg.PromotionCooldown,
	})

	service := api.NewService(cfg, ldg)
	e := echo.New()
	service.Register(e)

	if err := e.Start(cfg.ListenAddress); err != nil {
		logrus.Fatalf("api server stopped: %v", err)
	}
}

func setupConfig() {
	viper.SetDefault("listen_address", ":8080")
	config.SetupCommon()
}
