// Package ledger — store.go задаёт контракт хранилища.
// Движок наград получает хранилище как зависимость и не знает,
// что за ним стоит (Postgres в проде, память в тестах).
package ledger

import "context"

// Store — контракт леджера.
//
// Save заменят весь сохранённый набор аккаунтов атомарно: либо
// новое состояние целиком, либо прежнее остаётся нетронутым.
// Это граница durability для денег — подтверждение пользователю
// отправляется только после успешного Save.
type Store interface {
	// Load возвращает все аккаунты, ключ — user ID.
	Load(ctx context.Context) (map[int64]*Account, error)
	// Save атомарно сохраняет набор аккаунтов.
	Save(ctx context.Context, accounts map[int64]*Account) error
	// Record добавляет запись в журнал наград. Журнал вспомогательный:
	// ошибку записи вызывающий логирует, но операцию не откатывает.
	Record(ctx context.Context, e *Entry) error
}
