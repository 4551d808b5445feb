// Package membership проверяет членство пользователя в партнёрских группах.
// Внешняя способность: движок наград спрашивает «состоит ли X в Y»,
// а как именно это выясняется — деталь реализации (Telegram getChatMember).
package membership

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// Status — результат проверки членства.
type Status int

const (
	// StatusUnknown — проверка не удалась (сетевая ошибка и т.п.).
	// Для решения о бонусе приравнивается к StatusNotMember:
	// недоказанное членство консервативно считаем отсутствующим.
	StatusUnknown Status = iota
	// StatusMember — пользователь состоит в группе
	StatusMember
	// StatusNotMember — пользователь не состоит в группе
	StatusNotMember
)

// Verifier отвечает на вопрос «состоит ли пользователь в группе».
type Verifier interface {
	IsMember(ctx context.Context, chatID, userID int64) Status
}

// TelegramVerifier проверяет членство через Telegram Bot API.
type TelegramVerifier struct {
	api *tgbotapi.BotAPI
}

// NewTelegramVerifier создаёт верификатор поверх Bot API.
func NewTelegramVerifier(api *tgbotapi.BotAPI) *TelegramVerifier {
	return &TelegramVerifier{api: api}
}

// IsMember запрашивает getChatMember и маппит ответ на Status.
// Любая ошибка запроса — StatusUnknown, без ретраев: решение
// принимает движок, а он при Unknown просто не начисляет.
func (v *TelegramVerifier) IsMember(ctx context.Context, chatID, userID int64) Status {
	member, err := v.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: chatID,
			UserID: userID,
		},
	})
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"chat_id": chatID,
			"user_id": userID,
		}).Warn("getChatMember не удался, членство неизвестно")
		return StatusUnknown
	}

	switch member.Status {
	case "creator", "administrator", "member":
		return StatusMember
	case "restricted":
		// Ограниченный, но не покинувший группу пользователь — член
		if member.IsMember {
			return StatusMember
		}
		return StatusNotMember
	default: // "left", "kicked"
		return StatusNotMember
	}
}
