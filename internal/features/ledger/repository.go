// Package ledger — repository.go реализует Store поверх PostgreSQL.
// Save выполняется одной транзакцией: либо все аккаунты записаны,
// либо откат и прежнее состояние целиком.
package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository — Postgres-реализация Store.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий леджера.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Load читает все аккаунты леджера.
func (r *Repository) Load(ctx context.Context) (map[int64]*Account, error) {
	query := `
		SELECT user_id, balance_paise, has_join_bonus,
		       COALESCE(joined_at, ''), COALESCE(last_bonus_at, ''),
		       first_name, username
		FROM accounts
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения леджера: %w", err)
	}
	defer rows.Close()

	accounts := make(map[int64]*Account)
	for rows.Next() {
		var a Account
		if err := rows.Scan(
			&a.UserID, &a.BalancePaise, &a.HasJoinBonus,
			&a.JoinedAt, &a.LastBonusAt,
			&a.FirstName, &a.Username,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования аккаунта: %w", err)
		}
		accounts[a.UserID] = &a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк леджера: %w", err)
	}

	return accounts, nil
}

// Save записывает набор аккаунтов одной транзакцией (upsert по user_id).
// Аккаунты не удаляются, поэтому upsert всех записей эквивалентен
// полной замене сохранённого набора.
func (r *Repository) Save(ctx context.Context, accounts map[int64]*Account) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO accounts (user_id, balance_paise, has_join_bonus, joined_at, last_bonus_at, first_name, username)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE
		SET balance_paise = EXCLUDED.balance_paise,
		    has_join_bonus = EXCLUDED.has_join_bonus,
		    joined_at = EXCLUDED.joined_at,
		    last_bonus_at = EXCLUDED.last_bonus_at,
		    first_name = EXCLUDED.first_name,
		    username = EXCLUDED.username,
		    updated_at = NOW()
	`
	for _, a := range accounts {
		if _, err := tx.Exec(ctx, query,
			a.UserID, a.BalancePaise, a.HasJoinBonus,
			a.JoinedAt, a.LastBonusAt, a.FirstName, a.Username,
		); err != nil {
			return fmt.Errorf("ошибка записи аккаунта %d: %w", a.UserID, err)
		}
	}

	return tx.Commit(ctx)
}

// Record добавляет запись в журнал наград.
func (r *Repository) Record(ctx context.Context, e *Entry) error {
	query := `
		INSERT INTO reward_log (user_id, amount_paise, entry_type, description)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.Exec(ctx, query, e.UserID, e.AmountPaise, e.EntryType, e.Description); err != nil {
		return fmt.Errorf("ошибка записи журнала наград: %w", err)
	}
	return nil
}
