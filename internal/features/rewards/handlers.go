// Package rewards — handlers.go обрабатывает пользовательские команды
// и callback-кнопки: просмотр рекламы, баланс, заявка на бонус, рефералка.
package rewards

import (
	"context"
	"fmt"
	"math/rand"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"github.com/looteverything/rewardbot/internal/common"
	"github.com/looteverything/rewardbot/internal/config"
	"github.com/looteverything/rewardbot/internal/features/membership"
)

// TokenIssuer выдаёт одноразовый токен просмотра рекламы.
// Реализуется рекламным сервером; бот только вклеивает токен в URL.
type TokenIssuer interface {
	Issue(userID int64, adID int) string
}

// Handler обрабатывает команды и кнопки, связанные с наградами.
type Handler struct {
	engine   *Engine
	verifier membership.Verifier
	tokens   TokenIssuer
	catalog  *config.AdCatalog
	cfg      *config.Config
	bot      *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик наград.
func NewHandler(engine *Engine, verifier membership.Verifier, tokens TokenIssuer, catalog *config.AdCatalog, cfg *config.Config, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{
		engine:   engine,
		verifier: verifier,
		tokens:   tokens,
		catalog:  catalog,
		cfg:      cfg,
		bot:      bot,
	}
}

// HandleStart отвечает на /start главным меню.
func (h *Handler) HandleStart(chatID int64) {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👁️ Watch Ad", "show_ad"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💰 Balance", "balance"),
			tgbotapi.NewInlineKeyboardButtonData("🎁 Claim Bonus", "claim_bonus"),
			tgbotapi.NewInlineKeyboardButtonData("👥 Refer", "refer"),
		),
	)

	msg := tgbotapi.NewMessage(chatID, "👋 Welcome! Choose an option below:")
	msg.ReplyMarkup = keyboard
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки меню")
	}
}

// HandleShowAd выбирает случайную рекламу, выпускает токен просмотра
// и отвечает кнопкой Mini App.
func (h *Handler) HandleShowAd(ctx context.Context, chatID, userID int64) {
	adID := rand.Intn(h.catalog.Len())
	token := h.tokens.Issue(userID, adID)
	adURL := fmt.Sprintf("%s/ad/%d?token=%s&uid=%d", h.cfg.Domain, adID, token, userID)

	// Кнопка открывает страницу внутри Telegram (Mini App), не в браузере
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.InlineKeyboardButton{
				Text:   "▶️ Watch Ad",
				WebApp: &tgbotapi.WebAppInfo{URL: adURL},
			},
		),
	)

	msg := tgbotapi.NewMessage(chatID, "📺 Please watch the full ad below:")
	msg.ReplyMarkup = keyboard
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки кнопки рекламы")
	}
}

// HandleBalance показывает текущий баланс.
func (h *Handler) HandleBalance(ctx context.Context, chatID, userID int64) {
	balance, err := h.engine.GetBalance(ctx, userID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения баланса")
		h.sendMessage(chatID, "❌ Something went wrong, try again later.")
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("💰 Your current balance: %s", common.FormatRupees(balance)))
}

// HandleClaimBonus проверяет членство в обеих группах через верификатор
// (заявленному клиентом членству не верим) и передаёт решение движку.
func (h *Handler) HandleClaimBonus(ctx context.Context, chatID, userID int64, firstName, username string) {
	m1 := h.verifier.IsMember(ctx, h.cfg.Group1ChatID, userID)
	m2 := h.verifier.IsMember(ctx, h.cfg.Group2ChatID, userID)

	res, err := h.engine.ClaimJoinBonus(ctx, userID, firstName, username, m1, m2)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка обработки заявки на бонус")
		h.sendMessage(chatID, "❌ Something went wrong, try again later.")
		return
	}

	h.sendMessage(chatID, h.formatClaim(res))
}

// formatClaim переводит структурированный результат движка
// в сообщение пользователю.
func (h *Handler) formatClaim(res *ClaimResult) string {
	switch res.Category {
	case CategoryNoMembership:
		return fmt.Sprintf(
			"❌ Join both groups to claim the bonus:\n%s\n%s",
			h.cfg.Group1URL, h.cfg.Group2URL,
		)
	case CategoryPartialMembership:
		return fmt.Sprintf(
			"🎉 Partial bonus! %s credited for joining one group.\nJoin the second group for the full bonus!\n💰 Balance: %s",
			common.FormatRupees(res.AmountPaise), common.FormatRupees(res.BalancePaise),
		)
	case CategoryFirstFullBonus:
		return fmt.Sprintf(
			"🎉 Congratulations! Full join bonus %s credited.\n💰 Balance: %s",
			common.FormatRupees(res.AmountPaise), common.FormatRupees(res.BalancePaise),
		)
	case CategoryCooldownActive:
		return fmt.Sprintf(
			"⏳ You already claimed the bonus. Try again in %s.",
			common.FormatWait(res.Wait),
		)
	case CategoryRepeatFullBonus:
		return fmt.Sprintf(
			"🎉 Welcome back! Bonus %s credited again.\n💰 Balance: %s",
			common.FormatRupees(res.AmountPaise), common.FormatRupees(res.BalancePaise),
		)
	}
	return "❌ Something went wrong, try again later."
}

// HandleRefer отвечает реферальной ссылкой.
func (h *Handler) HandleRefer(chatID, userID int64) {
	link := fmt.Sprintf("https://t.me/%s?start=%d", h.bot.Self.UserName, userID)
	h.sendMessage(chatID, fmt.Sprintf("👥 Share your referral link:\n%s", link))
}

// sendMessage — вспомогательный метод для отправки текстовых сообщений.
func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
