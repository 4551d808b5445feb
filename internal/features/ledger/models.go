// Package ledger — надёжное хранилище балансов и метаданных заявок.
// models.go описывает структуру аккаунта и записи журнала наград.
package ledger

import "time"

// Account представляет леджер-запись одного пользователя.
// Создаётся лениво при первом касании (просмотр рекламы или заявка
// на бонус) и никогда не удаляется.
type Account struct {
	UserID       int64 `db:"user_id"`       // Telegram user ID (ключ)
	BalancePaise int64 `db:"balance_paise"` // Баланс в пайсах, может уходить в минус (штрафы)
	HasJoinBonus bool  `db:"has_join_bonus"` // true после первого полного бонуса за вступление

	// Временные метки храним строками RFC3339 — так их писал
	// исторический леджер, и так нечитаемое значение остаётся
	// представимым состоянием, а не ошибкой скана.
	JoinedAt    string `db:"joined_at"`     // Первый полный бонус; ставится один раз
	LastBonusAt string `db:"last_bonus_at"` // Последний бонус любого вида; основа кулдауна

	// Кэш метаданных для админского поиска; перезаписывается
	// при каждой заявке на бонус.
	FirstName string `db:"first_name"`
	Username  string `db:"username"`
}

// ParseLastBonusAt разбирает last_bonus_at.
// Возвращает ok=false и при пустом значении, и при нечитаемом —
// различает их вызывающий по LastBonusAt == "".
func (a *Account) ParseLastBonusAt() (time.Time, bool) {
	if a.LastBonusAt == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, a.LastBonusAt)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DisplayName возвращает отображаемое имя для админских выборок.
func (a *Account) DisplayName() string {
	if a.Username != "" {
		return "@" + a.Username
	}
	if a.FirstName != "" {
		return a.FirstName
	}
	return "—"
}

// Типы записей журнала наград
const (
	EntryAdReward     = "ad_reward"     // Начисление за просмотр рекламы
	EntryBonusFull    = "bonus_full"    // Полный бонус за обе группы
	EntryBonusPartial = "bonus_partial" // Частичный бонус за одну группу
	EntryPenalty      = "penalty"       // Штраф (админ или аудит членства)
	EntryAdminGrant   = "admin_grant"   // Ручное начисление админом
)

// Entry — одна запись журнала наград (append-only история движений).
type Entry struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	AmountPaise int64     `db:"amount_paise"` // Подписанная дельта баланса
	EntryType   string    `db:"entry_type"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}
