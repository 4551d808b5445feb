// Package rewards — service.go содержит движок наград.
// Все мутирующие операции — read-modify-write над леджером под одним
// мьютексом: Save заменяет весь набор аккаунтов, поэтому полокальная
// блокировка по пользователю допускала бы потерю чужих обновлений.
package rewards

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/looteverything/rewardbot/internal/common"
	"github.com/looteverything/rewardbot/internal/config"
	"github.com/looteverything/rewardbot/internal/features/ledger"
	"github.com/looteverything/rewardbot/internal/features/membership"
)

// Engine — движок наград. Хранилище и источник сумм инжектируются.
type Engine struct {
	store   ledger.Store
	amounts AmountSource
	cfg     *config.Config

	mu  sync.Mutex
	now func() time.Time // подменяется в тестах
}

// NewEngine создаёт движок наград.
func NewEngine(store ledger.Store, amounts AmountSource, cfg *config.Config) *Engine {
	return &Engine{
		store:   store,
		amounts: amounts,
		cfg:     cfg,
		now:     time.Now,
	}
}

// CreditAdCompletion начисляет случайную награду за завершённый
// просмотр рекламы. Аккаунт создаётся при первом касании.
// Сумма возвращается только после успешного Save: без записи
// в леджер начисления не существует.
//
// Идемпотентности по событию нет намеренно: два вызова — два
// начисления, дедупликацию просмотров делает рекламный сервер.
func (e *Engine) CreditAdCompletion(ctx context.Context, userID int64) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	accounts, err := e.store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("леджер недоступен: %w", err)
	}

	acc := getOrCreate(accounts, userID)
	amount := e.amounts.Next()
	acc.BalancePaise += amount

	if err := e.store.Save(ctx, accounts); err != nil {
		return 0, fmt.Errorf("не удалось сохранить начисление: %w", err)
	}

	e.record(ctx, userID, amount, ledger.EntryAdReward, "Награда за просмотр рекламы")

	log.WithFields(log.Fields{
		"user_id": userID,
		"amount":  amount,
		"balance": acc.BalancePaise,
	}).Info("Начислена награда за рекламу")

	return amount, nil
}

// ClaimJoinBonus обрабатывает заявку на бонус за вступление.
// Статусы членства уже проверены верификатором; StatusUnknown
// приравнивается к «не состоит» (недоказанное членство не награждаем,
// но и не считаем ошибкой — пользователь просто попробует ещё раз).
//
// Таблица решений, в порядке проверки:
//  1. обе группы мимо            → no_membership, баланс не тронут
//  2. ровно одна группа          → частичный бонус, last_bonus_at = now
//  3. обе + бонусов не было      → первый полный бонус
//  4. обе + кулдаун не истёк     → cooldown_active с остатком ожидания
//  5. обе + кулдаун истёк        → повторный полный бонус
//
// Метаданные (имя, username) перезаписываются при каждой заявке.
func (e *Engine) ClaimJoinBonus(ctx context.Context, userID int64, firstName, username string, m1, m2 membership.Status) (*ClaimResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	accounts, err := e.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("леджер недоступен: %w", err)
	}

	acc := getOrCreate(accounts, userID)
	acc.FirstName = firstName
	acc.Username = username

	in1 := m1 == membership.StatusMember
	in2 := m2 == membership.StatusMember
	now := e.now()

	res := &ClaimResult{}

	switch {
	case !in1 && !in2:
		res.Category = CategoryNoMembership

	case in1 != in2:
		// Одна группа из двух: частичный бонус без оглядки на историю
		acc.BalancePaise += e.cfg.BonusPartialPaise
		acc.LastBonusAt = now.Format(time.RFC3339)
		res.Category = CategoryPartialMembership
		res.AmountPaise = e.cfg.BonusPartialPaise

	default:
		e.decideFullBonus(acc, now, res)
	}

	res.BalancePaise = acc.BalancePaise

	if err := e.store.Save(ctx, accounts); err != nil {
		return nil, fmt.Errorf("не удалось сохранить заявку: %w", err)
	}

	switch res.Category {
	case CategoryPartialMembership:
		e.record(ctx, userID, res.AmountPaise, ledger.EntryBonusPartial, "Частичный бонус: одна группа из двух")
	case CategoryFirstFullBonus, CategoryRepeatFullBonus:
		e.record(ctx, userID, res.AmountPaise, ledger.EntryBonusFull, "Полный бонус за вступление в обе группы")
	}

	log.WithFields(log.Fields{
		"user_id":  userID,
		"category": res.Category,
		"amount":   res.AmountPaise,
	}).Info("Заявка на бонус обработана")

	return res, nil
}

// decideFullBonus — ветка «обе группы подтверждены».
func (e *Engine) decideFullBonus(acc *ledger.Account, now time.Time, res *ClaimResult) {
	if acc.LastBonusAt == "" {
		e.grantFull(acc, now, res, CategoryFirstFullBonus)
		return
	}

	last, ok := acc.ParseLastBonusAt()
	if !ok {
		// Метка есть, но нечитаема. Исторически бот считал кулдаун
		// истёкшим (fail open); политика настраивается.
		if e.cfg.BonusCorruptFailClosed {
			log.WithField("user_id", acc.UserID).Warn("last_bonus_at нечитаем, отказ по политике fail-closed")
			res.Category = CategoryCooldownActive
			res.Wait = e.cfg.BonusCooldown
			return
		}
		log.WithField("user_id", acc.UserID).Warn("last_bonus_at нечитаем, считаем кулдаун истёкшим")
		e.grantFull(acc, now, res, CategoryRepeatFullBonus)
		return
	}

	// Ровно на границе окна — кулдаун истёк
	elapsed := now.Sub(last)
	if elapsed < e.cfg.BonusCooldown {
		res.Category = CategoryCooldownActive
		res.Wait = e.cfg.BonusCooldown - elapsed
		return
	}

	e.grantFull(acc, now, res, CategoryRepeatFullBonus)
}

// grantFull начисляет полный бонус и двигает временные метки.
func (e *Engine) grantFull(acc *ledger.Account, now time.Time, res *ClaimResult, cat Category) {
	acc.BalancePaise += e.cfg.BonusFullPaise
	acc.HasJoinBonus = true
	if acc.JoinedAt == "" {
		acc.JoinedAt = now.Format(time.RFC3339)
	}
	acc.LastBonusAt = now.Format(time.RFC3339)
	res.Category = cat
	res.AmountPaise = e.cfg.BonusFullPaise
}

// ApplyPenalty безусловно списывает amount пайс с баланса.
// Не трогает ни last_bonus_at, ни has_join_bonus. Неизвестный
// пользователь — ErrUserNotFound без создания аккаунта.
func (e *Engine) ApplyPenalty(ctx context.Context, userID, amountPaise int64, reason string) (int64, error) {
	if amountPaise <= 0 {
		return 0, common.ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	accounts, err := e.store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("леджер недоступен: %w", err)
	}

	acc, ok := accounts[userID]
	if !ok {
		return 0, common.ErrUserNotFound
	}

	acc.BalancePaise -= amountPaise

	if err := e.store.Save(ctx, accounts); err != nil {
		return 0, fmt.Errorf("не удалось сохранить штраф: %w", err)
	}

	e.record(ctx, userID, -amountPaise, ledger.EntryPenalty, reason)

	log.WithFields(log.Fields{
		"user_id": userID,
		"amount":  amountPaise,
		"balance": acc.BalancePaise,
	}).Info("Применён штраф")

	return acc.BalancePaise, nil
}

// AdminCredit — ручное начисление админом (зеркало штрафа).
func (e *Engine) AdminCredit(ctx context.Context, userID, amountPaise int64) (int64, error) {
	if amountPaise <= 0 {
		return 0, common.ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	accounts, err := e.store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("леджер недоступен: %w", err)
	}

	acc, ok := accounts[userID]
	if !ok {
		return 0, common.ErrUserNotFound
	}

	acc.BalancePaise += amountPaise

	if err := e.store.Save(ctx, accounts); err != nil {
		return 0, fmt.Errorf("не удалось сохранить начисление: %w", err)
	}

	e.record(ctx, userID, amountPaise, ledger.EntryAdminGrant, "Начисление администратором")
	return acc.BalancePaise, nil
}

// RevokeJoinBonus снимает флаг полученного бонуса, не трогая баланс.
// Используется аудитом членства: после штрафа за выход пользователь
// снова должен заявиться (и пройти кулдаун), чтобы считаться бонусным.
func (e *Engine) RevokeJoinBonus(ctx context.Context, userID int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	accounts, err := e.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("леджер недоступен: %w", err)
	}

	acc, ok := accounts[userID]
	if !ok {
		return common.ErrUserNotFound
	}
	if !acc.HasJoinBonus {
		return nil
	}

	acc.HasJoinBonus = false
	if err := e.store.Save(ctx, accounts); err != nil {
		return fmt.Errorf("не удалось сохранить отзыв бонуса: %w", err)
	}
	return nil
}

// GetBalance возвращает баланс пользователя.
// Неизвестный пользователь — ноль, аккаунт не создаётся: читающие
// операции леджер не мутируют.
func (e *Engine) GetBalance(ctx context.Context, userID int64) (int64, error) {
	accounts, err := e.store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("леджер недоступен: %w", err)
	}
	acc, ok := accounts[userID]
	if !ok {
		return 0, nil
	}
	return acc.BalancePaise, nil
}

// ListRecentClaimants возвращает до limit аккаунтов, упорядоченных
// по времени последнего бонуса (затем по joined_at) по убыванию.
// Ничьи разрешаются по user ID — порядок детерминирован.
func (e *Engine) ListRecentClaimants(ctx context.Context, limit int) ([]*ledger.Account, error) {
	accounts, err := e.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("леджер недоступен: %w", err)
	}

	out := make([]*ledger.Account, 0, len(accounts))
	for _, a := range accounts {
		if a.LastBonusAt != "" || a.JoinedAt != "" {
			out = append(out, a)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		ti, tj := claimSortKey(out[i]), claimSortKey(out[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return out[i].UserID < out[j].UserID
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// BonusHolders возвращает всех держателей полного бонуса (для аудита).
func (e *Engine) BonusHolders(ctx context.Context) ([]*ledger.Account, error) {
	accounts, err := e.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("леджер недоступен: %w", err)
	}

	var out []*ledger.Account
	for _, a := range accounts {
		if a.HasJoinBonus {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// FindUsersByMetadata ищет аккаунты по подстроке имени или username
// (без учёта регистра). Результат упорядочен по user ID.
func (e *Engine) FindUsersByMetadata(ctx context.Context, substring string) ([]*ledger.Account, error) {
	accounts, err := e.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("леджер недоступен: %w", err)
	}

	needle := strings.ToLower(strings.TrimSpace(substring))
	var out []*ledger.Account
	for _, a := range accounts {
		if needle == "" {
			continue
		}
		if strings.Contains(strings.ToLower(a.FirstName), needle) ||
			strings.Contains(strings.ToLower(a.Username), needle) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// record пишет запись журнала. Журнал вспомогательный: ошибку
// логируем, операцию не откатываем (начисление уже сохранено).
func (e *Engine) record(ctx context.Context, userID, amount int64, entryType, description string) {
	err := e.store.Record(ctx, &ledger.Entry{
		UserID:      userID,
		AmountPaise: amount,
		EntryType:   entryType,
		Description: description,
	})
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка записи журнала наград")
	}
}

// getOrCreate достаёт аккаунт или лениво создаёт пустой.
func getOrCreate(accounts map[int64]*ledger.Account, userID int64) *ledger.Account {
	if acc, ok := accounts[userID]; ok {
		return acc
	}
	acc := &ledger.Account{UserID: userID}
	accounts[userID] = acc
	return acc
}

// claimSortKey — время для сортировки недавних заявителей.
func claimSortKey(a *ledger.Account) time.Time {
	if t, ok := a.ParseLastBonusAt(); ok {
		return t
	}
	if a.JoinedAt != "" {
		if t, err := time.Parse(time.RFC3339, a.JoinedAt); err == nil {
			return t
		}
	}
	return time.Time{}
}
