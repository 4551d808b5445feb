// Package web — sessions.go: одноразовые токены просмотра рекламы.
// Callback, начисляющий деньги, принимается только с живым токеном,
// выписанным ботом при выдаче кнопки — защита от повторной отправки.
package web

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// viewToken — выписанный токен просмотра.
type viewToken struct {
	userID    int64
	adID      int
	expiresAt time.Time
}

// TokenStore хранит токены в памяти с TTL.
type TokenStore struct {
	mu     sync.Mutex
	tokens map[string]*viewToken
	ttl    time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewTokenStore создаёт хранилище токенов.
func NewTokenStore(ttl time.Duration) *TokenStore {
	s := &TokenStore{
		tokens: make(map[string]*viewToken),
		ttl:    ttl,
		stopCh: make(chan struct{}),
	}
	go s.cleanup()
	return s
}

// Close останавливает фоновую горутину очистки.
func (s *TokenStore) Close() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Issue выписывает новый токен для пары (пользователь, реклама).
func (s *TokenStore) Issue(userID int64, adID int) string {
	token := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = &viewToken{
		userID:    userID,
		adID:      adID,
		expiresAt: time.Now().Add(s.ttl),
	}
	return token
}

// Peek проверяет токен без расхода (для отдачи страницы рекламы).
func (s *TokenStore) Peek(token string, userID int64, adID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[token]
	return ok && t.userID == userID && t.adID == adID && time.Now().Before(t.expiresAt)
}

// Consume расходует токен. Второй Consume того же токена — false:
// токен строго одноразовый.
func (s *TokenStore) Consume(token string, userID int64, adID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[token]
	if !ok || t.userID != userID || t.adID != adID {
		return false
	}
	delete(s.tokens, token)
	return time.Now().Before(t.expiresAt)
}

func (s *TokenStore) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.mu.Lock()
			now := time.Now()
			for token, t := range s.tokens {
				if now.After(t.expiresAt) {
					delete(s.tokens, token)
				}
			}
			s.mu.Unlock()
		}
	}
}
