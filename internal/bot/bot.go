// Package bot содержит главный модуль бота — запуск polling,
// маршрутизацию команд и callback-кнопок.
package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"github.com/looteverything/rewardbot/internal/bot/middleware"
	"github.com/looteverything/rewardbot/internal/config"
	"github.com/looteverything/rewardbot/internal/features/admin"
	"github.com/looteverything/rewardbot/internal/features/rewards"
)

// Bot — главная структура бота, объединяющая все компоненты.
type Bot struct {
	api *tgbotapi.BotAPI
	cfg *config.Config

	rateLimiter *middleware.RateLimiter

	rewardsHandler *rewards.Handler
	adminHandler   *admin.Handler

	parser *CommandParser

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
}

// New создаёт новый экземпляр бота со всеми зависимостями.
func New(
	api *tgbotapi.BotAPI,
	cfg *config.Config,
	rewardsHandler *rewards.Handler,
	adminHandler *admin.Handler,
) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	return &Bot{
		api:            api,
		cfg:            cfg,
		rateLimiter:    middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		rewardsHandler: rewardsHandler,
		adminHandler:   adminHandler,
		parser:         NewCommandParser(api.Self.UserName),
		inflight:       make(chan struct{}, maxInFlight),
	}
}

// Start запускает polling обновлений от Telegram.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.BotUpdateTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)

	log.WithFields(log.Fields{
		"max_inflight": b.cfg.BotMaxInflight,
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			b.api.StopReceivingUpdates()
			b.rateLimiter.Close()
			return

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				return
			}

			// лимит параллелизма
			b.inflight <- struct{}{}
			go func(upd tgbotapi.Update) {
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer middleware.RecoverFromPanic()

	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}

	if update.Message == nil || update.Message.Text == "" || update.Message.From == nil {
		return
	}

	message := update.Message
	middleware.LogMessage(message)

	userID := message.From.ID
	chatID := message.Chat.ID

	if !b.rateLimiter.Allow(userID) {
		log.WithField("user_id", userID).Debug("rate limited")
		return
	}

	cmd, args, isCommand := b.parser.ParseCommand(message.Text)
	if !isCommand {
		return
	}

	log.WithFields(log.Fields{
		"cmd":  cmd,
		"args": args,
	}).Debug("routing command")

	b.routeCommand(ctx, chatID, userID, message.From, cmd, args)
}

// routeCommand маршрутизирует команду к нужному обработчику.
func (b *Bot) routeCommand(ctx context.Context, chatID, userID int64, from *tgbotapi.User, cmd string, args []string) {
	// Админские команды проверяют права сами, до движка
	if b.adminHandler.HandleCommand(ctx, chatID, userID, cmd, args) {
		return
	}

	switch cmd {
	case "start", "help":
		b.rewardsHandler.HandleStart(chatID)

	case "balance":
		b.rewardsHandler.HandleBalance(ctx, chatID, userID)

	case "bonus":
		b.rewardsHandler.HandleClaimBonus(ctx, chatID, userID, from.FirstName, from.UserName)

	case "refer":
		b.rewardsHandler.HandleRefer(chatID, userID)
	}
}

// handleCallback обрабатывает нажатие inline-кнопки.
func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	// Подтверждаем нажатие, чтобы убрать «часики» на кнопке
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		log.WithError(err).Debug("Не удалось подтвердить callback")
	}

	if query.Message == nil || query.From == nil {
		return
	}

	userID := query.From.ID
	chatID := query.Message.Chat.ID

	if !b.rateLimiter.Allow(userID) {
		log.WithField("user_id", userID).Debug("rate limited")
		return
	}

	switch query.Data {
	case "show_ad":
		b.rewardsHandler.HandleShowAd(ctx, chatID, userID)
	case "balance":
		b.rewardsHandler.HandleBalance(ctx, chatID, userID)
	case "claim_bonus":
		b.rewardsHandler.HandleClaimBonus(ctx, chatID, userID, query.From.FirstName, query.From.UserName)
	case "refer":
		b.rewardsHandler.HandleRefer(chatID, userID)
	}
}

// SendMessageToUser отправляет сообщение пользователю.
// Передаётся коллабораторам (рекламный сервер, аудит членства)
// как операция Notify.
func (b *Bot) SendMessageToUser(userID int64, text string) {
	msg := tgbotapi.NewMessage(userID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).WithField("user_id", userID).Debug("Не удалось отправить сообщение")
	}
}

// CommandParser парсит команды вида "/cmd arg1 arg2".
// Понимает адресованные команды "/cmd@BotName" в группах.
type CommandParser struct {
	botUsername string
}

// NewCommandParser создаёт парсер команд.
func NewCommandParser(botUsername string) *CommandParser {
	return &CommandParser{botUsername: strings.ToLower(botUsername)}
}

// ParseCommand разбирает текст на команду и аргументы.
func (p *CommandParser) ParseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", nil, false
	}

	parts := strings.Fields(strings.TrimPrefix(text, "/"))
	if len(parts) == 0 {
		return "", nil, false
	}

	command := strings.ToLower(parts[0])

	// "/balance@MyBot" → "balance", но чужие адресаты игнорируем
	if at := strings.Index(command, "@"); at >= 0 {
		target := command[at+1:]
		command = command[:at]
		if p.botUsername != "" && target != p.botUsername {
			return "", nil, false
		}
	}
	if command == "" {
		return "", nil, false
	}

	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}

	return command, args, true
}
