// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, хранилище, движок наград,
// обработчики, рекламный сервер и собирает всё вместе.
package app

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/looteverything/rewardbot/internal/bot"
	"github.com/looteverything/rewardbot/internal/config"
	"github.com/looteverything/rewardbot/internal/db/postgres"
	"github.com/looteverything/rewardbot/internal/features/admin"
	"github.com/looteverything/rewardbot/internal/features/ledger"
	"github.com/looteverything/rewardbot/internal/features/membership"
	"github.com/looteverything/rewardbot/internal/features/rewards"
	"github.com/looteverything/rewardbot/internal/jobs"
	"github.com/looteverything/rewardbot/internal/web"
)

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Web       *web.Server
	Scheduler *jobs.Scheduler
	DB        *pgxpool.Pool
	Tokens    *web.TokenStore
	BotAPI    *tgbotapi.BotAPI
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Каталог рекламы ===
	catalog, err := config.LoadAds(cfg.AdsFile)
	if err != nil {
		return nil, err
	}
	log.WithField("ads", catalog.Len()).Info("Каталог рекламы загружен")

	// === 3. Telegram Bot API ===
	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	botAPI.Debug = cfg.AppEnv == "development"
	log.Infof("Авторизован как @%s", botAPI.Self.UserName)

	// === 4. Хранилище и движок ===
	store := ledger.NewRepository(pool)
	amounts := rewards.NewRandAmountSource(cfg.AdRewardMinPaise, cfg.AdRewardMaxPaise)
	engine := rewards.NewEngine(store, amounts, cfg)
	verifier := membership.NewTelegramVerifier(botAPI)
	tokens := web.NewTokenStore(cfg.AdTokenTTL)

	// === 5. Обработчики ===
	rewardsHandler := rewards.NewHandler(engine, verifier, tokens, catalog, cfg, botAPI)
	adminHandler := admin.NewHandler(engine, cfg, botAPI)

	// === 6. Собираем бота ===
	b := bot.New(botAPI, cfg, rewardsHandler, adminHandler)

	// === 7. Рекламный сервер ===
	webServer := web.NewServer(engine, catalog, tokens, b.SendMessageToUser, cfg)

	// === 8. Планировщик задач ===
	scheduler := jobs.NewScheduler(engine, verifier, cfg, b.SendMessageToUser)

	return &App{
		Bot:       b,
		Web:       webServer,
		Scheduler: scheduler,
		DB:        pool,
		Tokens:    tokens,
		BotAPI:    botAPI,
	}, nil
}

// runMigrations выполняет все SQL-миграции.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if err := postgres.EnsureMigrationsTable(ctx, pool); err != nil {
		return err
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration001Accounts},
		{2, migration002RewardLog},
	}

	for _, m := range migrations {
		if err := postgres.ExecMigrationSQL(ctx, pool, m.version, m.sql); err != nil {
			return fmt.Errorf("миграция %d: %w", m.version, err)
		}
		log.Infof("Миграция %d применена", m.version)
	}

	return nil
}

// SQL-миграции встроены в код для упрощения деплоя.

// Временные метки бонусов — TEXT в формате RFC3339: так их писал
// исторический леджер, и движок сам решает, что делать с нечитаемым
// значением (политика fail-open/fail-closed).
var migration001Accounts = `
CREATE TABLE IF NOT EXISTS accounts (
    user_id BIGINT PRIMARY KEY,
    balance_paise BIGINT NOT NULL DEFAULT 0,
    has_join_bonus BOOLEAN NOT NULL DEFAULT FALSE,
    joined_at TEXT,
    last_bonus_at TEXT,
    first_name VARCHAR(255) NOT NULL DEFAULT '',
    username VARCHAR(255) NOT NULL DEFAULT '',
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_accounts_username ON accounts(username);
`

var migration002RewardLog = `
CREATE TABLE IF NOT EXISTS reward_log (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    amount_paise BIGINT NOT NULL,
    entry_type VARCHAR(50) NOT NULL,
    description TEXT,
    created_at TIMESTAMP DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_reward_log_user_id ON reward_log(user_id);
CREATE INDEX IF NOT EXISTS idx_reward_log_created_at ON reward_log(created_at DESC);
`
