package web

import (
	"testing"
	"time"
)

func TestTokenStoreConsumeIsSingleUse(t *testing.T) {
	s := NewTokenStore(time.Minute)
	defer s.Close()

	token := s.Issue(100, 2)
	if token == "" {
		t.Fatal("empty token issued")
	}

	if !s.Consume(token, 100, 2) {
		t.Fatal("first consume must succeed")
	}
	if s.Consume(token, 100, 2) {
		t.Fatal("second consume must fail")
	}
}

func TestTokenStorePeekDoesNotConsume(t *testing.T) {
	s := NewTokenStore(time.Minute)
	defer s.Close()

	token := s.Issue(100, 2)
	if !s.Peek(token, 100, 2) {
		t.Fatal("peek on live token must succeed")
	}
	if !s.Peek(token, 100, 2) {
		t.Fatal("peek must not consume the token")
	}
	if !s.Consume(token, 100, 2) {
		t.Fatal("consume after peek must succeed")
	}
}

func TestTokenStoreRejectsMismatch(t *testing.T) {
	s := NewTokenStore(time.Minute)
	defer s.Close()

	token := s.Issue(100, 2)

	if s.Consume(token, 101, 2) {
		t.Fatal("consume with wrong user must fail")
	}
	if s.Consume(token, 100, 3) {
		t.Fatal("consume with wrong ad must fail")
	}
	if s.Consume("not-a-token", 100, 2) {
		t.Fatal("consume of unknown token must fail")
	}
	// Промахи не расходуют токен
	if !s.Consume(token, 100, 2) {
		t.Fatal("legitimate consume must still succeed")
	}
}

func TestTokenStoreExpiry(t *testing.T) {
	s := NewTokenStore(10 * time.Millisecond)
	defer s.Close()

	token := s.Issue(100, 2)
	time.Sleep(30 * time.Millisecond)

	if s.Peek(token, 100, 2) {
		t.Fatal("peek on expired token must fail")
	}
	if s.Consume(token, 100, 2) {
		t.Fatal("consume on expired token must fail")
	}
}
