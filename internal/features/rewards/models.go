// Package rewards — движок наград: начисления за рекламу, бонусы
// за вступление, штрафы. models.go описывает результаты операций.
package rewards

import "time"

// Category — исход заявки на бонус за вступление.
type Category string

const (
	// CategoryNoMembership — ни одной группы, баланс не тронут
	CategoryNoMembership Category = "no_membership"
	// CategoryPartialMembership — ровно одна группа, частичный бонус
	CategoryPartialMembership Category = "partial_membership"
	// CategoryFirstFullBonus — обе группы, первый полный бонус
	CategoryFirstFullBonus Category = "first_full_bonus"
	// CategoryCooldownActive — обе группы, но кулдаун ещё не истёк
	CategoryCooldownActive Category = "cooldown_active"
	// CategoryRepeatFullBonus — обе группы, повторный полный бонус
	CategoryRepeatFullBonus Category = "repeat_full_bonus"
)

// ClaimResult — структурированный результат заявки на бонус.
// Форматирование сообщения пользователю — забота обработчика,
// движок возвращает только факты.
type ClaimResult struct {
	Category     Category
	AmountPaise  int64         // Начисленная сумма (0 для no_membership и cooldown_active)
	BalancePaise int64         // Баланс после операции
	Wait         time.Duration // Остаток кулдауна (только для cooldown_active)
}
