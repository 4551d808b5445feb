// Package admin обрабатывает команды модерации.
// Авторизация — единственный настроенный ADMIN_ID, ролей нет;
// проверка выполняется здесь, ДО обращения к движку наград.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"github.com/looteverything/rewardbot/internal/common"
	"github.com/looteverything/rewardbot/internal/config"
	"github.com/looteverything/rewardbot/internal/features/rewards"
)

// Handler обрабатывает админ-команды.
type Handler struct {
	engine *rewards.Engine
	cfg    *config.Config
	bot    *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик админ-команд.
func NewHandler(engine *rewards.Engine, cfg *config.Config, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{engine: engine, cfg: cfg, bot: bot}
}

// IsAdmin — единственная проверка привилегий во всём боте.
func (h *Handler) IsAdmin(userID int64) bool {
	return userID == h.cfg.AdminID
}

// HandleCommand маршрутизирует админ-команду.
// Возвращает true, если команда распознана и обработана.
func (h *Handler) HandleCommand(ctx context.Context, chatID, userID int64, cmd string, args []string) bool {
	switch cmd {
	case "penalty", "grant", "balanceof", "recent", "find":
	default:
		return false
	}

	if !h.IsAdmin(userID) {
		log.WithFields(log.Fields{"user_id": userID, "cmd": cmd}).Warn("Отказ: не админ")
		h.sendMessage(chatID, "❌ You are not allowed to use this command.")
		return true
	}

	switch cmd {
	case "penalty":
		h.handlePenalty(ctx, chatID, args)
	case "grant":
		h.handleGrant(ctx, chatID, args)
	case "balanceof":
		h.handleBalanceOf(ctx, chatID, args)
	case "recent":
		h.handleRecent(ctx, chatID, args)
	case "find":
		h.handleFind(ctx, chatID, args)
	}
	return true
}

// handlePenalty — /penalty <user_id> [paise].
// Без суммы применяется настроенный штраф.
func (h *Handler) handlePenalty(ctx context.Context, chatID int64, args []string) {
	if len(args) < 1 {
		h.sendMessage(chatID, "Usage: /penalty <user_id> [paise]")
		return
	}

	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		h.sendMessage(chatID, "❌ user_id must be a number")
		return
	}

	amount := h.cfg.PenaltyPaise
	if len(args) >= 2 {
		amount, err = strconv.ParseInt(args[1], 10, 64)
		if err != nil || amount <= 0 {
			h.sendMessage(chatID, "❌ amount must be a positive number of paise")
			return
		}
	}

	balance, err := h.engine.ApplyPenalty(ctx, targetID, amount, "Штраф, назначенный администратором")
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			h.sendMessage(chatID, fmt.Sprintf("❌ User %d not found", targetID))
			return
		}
		log.WithError(err).Error("Ошибка применения штрафа")
		h.sendMessage(chatID, "❌ Penalty failed, see logs")
		return
	}

	h.sendMessage(chatID, fmt.Sprintf(
		"✅ Penalty %s applied to %d\nNew balance: %s",
		common.FormatRupees(amount), targetID, common.FormatRupees(balance),
	))
}

// handleGrant — /grant <user_id> <paise>.
func (h *Handler) handleGrant(ctx context.Context, chatID int64, args []string) {
	if len(args) < 2 {
		h.sendMessage(chatID, "Usage: /grant <user_id> <paise>")
		return
	}

	targetID, err1 := strconv.ParseInt(args[0], 10, 64)
	amount, err2 := strconv.ParseInt(args[1], 10, 64)
	if err1 != nil || err2 != nil || amount <= 0 {
		h.sendMessage(chatID, "❌ Usage: /grant <user_id> <positive paise>")
		return
	}

	balance, err := h.engine.AdminCredit(ctx, targetID, amount)
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			h.sendMessage(chatID, fmt.Sprintf("❌ User %d not found", targetID))
			return
		}
		log.WithError(err).Error("Ошибка начисления")
		h.sendMessage(chatID, "❌ Grant failed, see logs")
		return
	}

	h.sendMessage(chatID, fmt.Sprintf(
		"✅ Credited %s to %d\nNew balance: %s",
		common.FormatRupees(amount), targetID, common.FormatRupees(balance),
	))
}

// handleBalanceOf — /balanceof <user_id>.
func (h *Handler) handleBalanceOf(ctx context.Context, chatID int64, args []string) {
	if len(args) < 1 {
		h.sendMessage(chatID, "Usage: /balanceof <user_id>")
		return
	}
	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		h.sendMessage(chatID, "❌ user_id must be a number")
		return
	}

	balance, err := h.engine.GetBalance(ctx, targetID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения баланса")
		h.sendMessage(chatID, "❌ Lookup failed, see logs")
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("💰 %d: %s", targetID, common.FormatRupees(balance)))
}

// handleRecent — /recent [n], по умолчанию 10.
func (h *Handler) handleRecent(ctx context.Context, chatID int64, args []string) {
	limit := 10
	if len(args) >= 1 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			limit = n
		}
	}

	claimants, err := h.engine.ListRecentClaimants(ctx, limit)
	if err != nil {
		log.WithError(err).Error("Ошибка выборки заявителей")
		h.sendMessage(chatID, "❌ Lookup failed, see logs")
		return
	}
	if len(claimants) == 0 {
		h.sendMessage(chatID, "📋 No bonus claimants yet")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📋 Last %d claimants:\n\n", len(claimants)))
	for i, a := range claimants {
		sb.WriteString(fmt.Sprintf("%d. %s (%d) — %s, last bonus: %s\n",
			i+1, a.DisplayName(), a.UserID, common.FormatRupees(a.BalancePaise), lastBonusLabel(a.LastBonusAt)))
	}
	h.sendMessage(chatID, sb.String())
}

// handleFind — /find <substring> по кэшированным имени и username.
func (h *Handler) handleFind(ctx context.Context, chatID int64, args []string) {
	if len(args) < 1 {
		h.sendMessage(chatID, "Usage: /find <substring>")
		return
	}

	found, err := h.engine.FindUsersByMetadata(ctx, strings.Join(args, " "))
	if err != nil {
		log.WithError(err).Error("Ошибка поиска")
		h.sendMessage(chatID, "❌ Lookup failed, see logs")
		return
	}
	if len(found) == 0 {
		h.sendMessage(chatID, "🔍 Nothing found")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🔍 Found %d:\n\n", len(found)))
	for i, a := range found {
		sb.WriteString(fmt.Sprintf("%d. %s (%d) — %s\n",
			i+1, a.DisplayName(), a.UserID, common.FormatRupees(a.BalancePaise)))
	}
	h.sendMessage(chatID, sb.String())
}

func lastBonusLabel(raw string) string {
	if raw == "" {
		return "never"
	}
	return raw
}

// sendMessage — вспомогательный метод для отправки текстовых сообщений.
func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
