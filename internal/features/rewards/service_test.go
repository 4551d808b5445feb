package rewards

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/looteverything/rewardbot/internal/common"
	"github.com/looteverything/rewardbot/internal/config"
	"github.com/looteverything/rewardbot/internal/features/ledger"
	"github.com/looteverything/rewardbot/internal/features/membership"
)

// memStore — леджер в памяти для тестов движка.
type memStore struct {
	mu       sync.Mutex
	accounts map[int64]*ledger.Account
	entries  []*ledger.Entry
	failSave bool
	failLoad bool
}

func newMemStore() *memStore {
	return &memStore{accounts: make(map[int64]*ledger.Account)}
}

func (m *memStore) Load(ctx context.Context) (map[int64]*ledger.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLoad {
		return nil, errors.New("load failed")
	}
	out := make(map[int64]*ledger.Account, len(m.accounts))
	for id, a := range m.accounts {
		cp := *a
		out[id] = &cp
	}
	return out, nil
}

func (m *memStore) Save(ctx context.Context, accounts map[int64]*ledger.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errors.New("save failed")
	}
	next := make(map[int64]*ledger.Account, len(accounts))
	for id, a := range accounts {
		cp := *a
		next[id] = &cp
	}
	m.accounts = next
	return nil
}

func (m *memStore) Record(ctx context.Context, e *ledger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

// fixedAmounts всегда выдаёт одну и ту же сумму.
type fixedAmounts struct{ amount int64 }

func (f fixedAmounts) Next() int64 { return f.amount }

func testConfig() *config.Config {
	return &config.Config{
		AdRewardMinPaise:  300,
		AdRewardMaxPaise:  500,
		BonusFullPaise:    5000,
		BonusPartialPaise: 2500,
		PenaltyPaise:      6000,
		BonusCooldown:     24 * time.Hour,
	}
}

func newTestEngine(store ledger.Store, cfg *config.Config, now time.Time) *Engine {
	e := NewEngine(store, fixedAmounts{amount: 400}, cfg)
	e.now = func() time.Time { return now }
	return e
}

func TestCreditAdCompletion(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	cfg := testConfig()
	e := NewEngine(store, NewRandAmountSource(cfg.AdRewardMinPaise, cfg.AdRewardMaxPaise), cfg)

	for i := 0; i < 50; i++ {
		amount, err := e.CreditAdCompletion(ctx, 100)
		if err != nil {
			t.Fatalf("CreditAdCompletion: %v", err)
		}
		if amount < cfg.AdRewardMinPaise || amount > cfg.AdRewardMaxPaise {
			t.Fatalf("amount %d outside [%d, %d]", amount, cfg.AdRewardMinPaise, cfg.AdRewardMaxPaise)
		}
	}

	// Каждый вызов начисляет отдельно: 50 вызовов — 50 начислений
	balance, err := e.GetBalance(ctx, 100)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if balance < 50*cfg.AdRewardMinPaise || balance > 50*cfg.AdRewardMaxPaise {
		t.Fatalf("balance %d inconsistent with 50 credits", balance)
	}
	if len(store.entries) != 50 {
		t.Fatalf("expected 50 reward_log entries, got %d", len(store.entries))
	}
}

func TestCreditAdCompletionStorageFault(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.failSave = true
	e := newTestEngine(store, testConfig(), time.Now())

	if _, err := e.CreditAdCompletion(ctx, 100); err == nil {
		t.Fatal("expected storage fault to propagate")
	}
	// Ничего не должно быть сохранено
	if len(store.accounts) != 0 {
		t.Fatalf("account persisted despite save failure")
	}
}

func TestClaimJoinBonusDecisionTable(t *testing.T) {
	t0 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		prior        *ledger.Account
		m1, m2       membership.Status
		failClosed   bool
		wantCategory Category
		wantBalance  int64
		wantLastSet  bool
	}{
		{
			name:         "both missing",
			m1:           membership.StatusNotMember,
			m2:           membership.StatusNotMember,
			wantCategory: CategoryNoMembership,
			wantBalance:  0,
		},
		{
			name:         "unknown counts as not member",
			m1:           membership.StatusUnknown,
			m2:           membership.StatusUnknown,
			wantCategory: CategoryNoMembership,
			wantBalance:  0,
		},
		{
			name:         "only first group",
			m1:           membership.StatusMember,
			m2:           membership.StatusNotMember,
			wantCategory: CategoryPartialMembership,
			wantBalance:  2500,
			wantLastSet:  true,
		},
		{
			name:         "only second group",
			m1:           membership.StatusNotMember,
			m2:           membership.StatusMember,
			wantCategory: CategoryPartialMembership,
			wantBalance:  2500,
			wantLastSet:  true,
		},
		{
			name:         "member plus unknown is partial",
			m1:           membership.StatusMember,
			m2:           membership.StatusUnknown,
			wantCategory: CategoryPartialMembership,
			wantBalance:  2500,
			wantLastSet:  true,
		},
		{
			name:         "first full bonus",
			m1:           membership.StatusMember,
			m2:           membership.StatusMember,
			wantCategory: CategoryFirstFullBonus,
			wantBalance:  5000,
			wantLastSet:  true,
		},
		{
			name: "cooldown active",
			prior: &ledger.Account{
				UserID:       1,
				BalancePaise: 5000,
				HasJoinBonus: true,
				LastBonusAt:  t0.Add(-23 * time.Hour).Format(time.RFC3339),
			},
			m1:           membership.StatusMember,
			m2:           membership.StatusMember,
			wantCategory: CategoryCooldownActive,
			wantBalance:  5000,
			wantLastSet:  true,
		},
		{
			name: "cooldown boundary counts as elapsed",
			prior: &ledger.Account{
				UserID:       1,
				BalancePaise: 5000,
				HasJoinBonus: true,
				LastBonusAt:  t0.Add(-24 * time.Hour).Format(time.RFC3339),
			},
			m1:           membership.StatusMember,
			m2:           membership.StatusMember,
			wantCategory: CategoryRepeatFullBonus,
			wantBalance:  10000,
			wantLastSet:  true,
		},
		{
			name: "repeat full bonus",
			prior: &ledger.Account{
				UserID:       1,
				BalancePaise: 5000,
				HasJoinBonus: true,
				LastBonusAt:  t0.Add(-25 * time.Hour).Format(time.RFC3339),
			},
			m1:           membership.StatusMember,
			m2:           membership.StatusMember,
			wantCategory: CategoryRepeatFullBonus,
			wantBalance:  10000,
			wantLastSet:  true,
		},
		{
			name: "corrupt timestamp fails open by default",
			prior: &ledger.Account{
				UserID:       1,
				BalancePaise: 5000,
				HasJoinBonus: true,
				LastBonusAt:  "yesterday-ish",
			},
			m1:           membership.StatusMember,
			m2:           membership.StatusMember,
			wantCategory: CategoryRepeatFullBonus,
			wantBalance:  10000,
			wantLastSet:  true,
		},
		{
			name: "corrupt timestamp denies when fail closed",
			prior: &ledger.Account{
				UserID:       1,
				BalancePaise: 5000,
				HasJoinBonus: true,
				LastBonusAt:  "yesterday-ish",
			},
			m1:           membership.StatusMember,
			m2:           membership.StatusMember,
			failClosed:   true,
			wantCategory: CategoryCooldownActive,
			wantBalance:  5000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := newMemStore()
			if tt.prior != nil {
				store.accounts[tt.prior.UserID] = tt.prior
			}
			cfg := testConfig()
			cfg.BonusCorruptFailClosed = tt.failClosed
			e := newTestEngine(store, cfg, t0)

			res, err := e.ClaimJoinBonus(ctx, 1, "Asha", "asha", tt.m1, tt.m2)
			if err != nil {
				t.Fatalf("ClaimJoinBonus: %v", err)
			}
			if res.Category != tt.wantCategory {
				t.Fatalf("category = %s, want %s", res.Category, tt.wantCategory)
			}
			if res.BalancePaise != tt.wantBalance {
				t.Fatalf("balance = %d, want %d", res.BalancePaise, tt.wantBalance)
			}

			saved := store.accounts[1]
			if saved == nil {
				t.Fatal("account not persisted")
			}
			if saved.BalancePaise != tt.wantBalance {
				t.Fatalf("persisted balance = %d, want %d", saved.BalancePaise, tt.wantBalance)
			}
			if tt.wantLastSet && saved.LastBonusAt == "" {
				t.Fatal("last_bonus_at expected to be set")
			}
			if !tt.wantLastSet && tt.prior == nil && saved.LastBonusAt != "" {
				t.Fatalf("last_bonus_at unexpectedly set: %s", saved.LastBonusAt)
			}
		})
	}
}

func TestClaimJoinBonusScenario(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	cfg := testConfig()
	t0 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	e := newTestEngine(store, cfg, t0)

	// Первая заявка: полный бонус
	res, err := e.ClaimJoinBonus(ctx, 7, "U", "u", membership.StatusMember, membership.StatusMember)
	if err != nil {
		t.Fatalf("claim 1: %v", err)
	}
	if res.Category != CategoryFirstFullBonus || res.BalancePaise != 5000 {
		t.Fatalf("claim 1: %+v", res)
	}
	if !store.accounts[7].HasJoinBonus {
		t.Fatal("has_join_bonus not set after first full bonus")
	}
	joined := store.accounts[7].JoinedAt
	if joined == "" {
		t.Fatal("joined_at not set after first full bonus")
	}

	// Через 23 часа: кулдаун
	e.now = func() time.Time { return t0.Add(23 * time.Hour) }
	res, err = e.ClaimJoinBonus(ctx, 7, "U", "u", membership.StatusMember, membership.StatusMember)
	if err != nil {
		t.Fatalf("claim 2: %v", err)
	}
	if res.Category != CategoryCooldownActive || res.BalancePaise != 5000 {
		t.Fatalf("claim 2: %+v", res)
	}
	if res.Wait <= 0 || res.Wait > time.Hour {
		t.Fatalf("claim 2 wait = %s, want (0, 1h]", res.Wait)
	}
	// lastBonusAt не двигается при отказе
	if store.accounts[7].LastBonusAt != t0.Format(time.RFC3339) {
		t.Fatalf("last_bonus_at moved on cooldown_active: %s", store.accounts[7].LastBonusAt)
	}

	// Через 25 часов: повторный полный бонус
	e.now = func() time.Time { return t0.Add(25 * time.Hour) }
	res, err = e.ClaimJoinBonus(ctx, 7, "U", "u", membership.StatusMember, membership.StatusMember)
	if err != nil {
		t.Fatalf("claim 3: %v", err)
	}
	if res.Category != CategoryRepeatFullBonus || res.BalancePaise != 10000 {
		t.Fatalf("claim 3: %+v", res)
	}
	if store.accounts[7].LastBonusAt != t0.Add(25*time.Hour).Format(time.RFC3339) {
		t.Fatalf("last_bonus_at not updated on repeat bonus")
	}
	// joined_at ставится один раз и не перезаписывается
	if store.accounts[7].JoinedAt != joined {
		t.Fatal("joined_at overwritten on repeat bonus")
	}
}

func TestClaimPartialKeepsFlagUnset(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	e := newTestEngine(store, testConfig(), time.Now())

	res, err := e.ClaimJoinBonus(ctx, 5, "V", "v", membership.StatusMember, membership.StatusNotMember)
	if err != nil {
		t.Fatalf("ClaimJoinBonus: %v", err)
	}
	if res.Category != CategoryPartialMembership || res.BalancePaise != 2500 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if store.accounts[5].HasJoinBonus {
		t.Fatal("partial bonus must not set has_join_bonus")
	}
	if store.accounts[5].JoinedAt != "" {
		t.Fatal("partial bonus must not set joined_at")
	}
}

func TestClaimUpdatesMetadata(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.accounts[9] = &ledger.Account{UserID: 9, FirstName: "Old", Username: "old"}
	e := newTestEngine(store, testConfig(), time.Now())

	if _, err := e.ClaimJoinBonus(ctx, 9, "New", "new", membership.StatusNotMember, membership.StatusNotMember); err != nil {
		t.Fatalf("ClaimJoinBonus: %v", err)
	}
	if store.accounts[9].FirstName != "New" || store.accounts[9].Username != "new" {
		t.Fatalf("metadata not refreshed: %+v", store.accounts[9])
	}
}

func TestApplyPenalty(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.accounts[3] = &ledger.Account{
		UserID:       3,
		BalancePaise: 1000,
		HasJoinBonus: true,
		LastBonusAt:  "2026-08-01T12:00:00Z",
	}
	e := newTestEngine(store, testConfig(), time.Now())

	// Неизвестный пользователь: ошибка, запись не создаётся
	if _, err := e.ApplyPenalty(ctx, 9999999, 6000, "test"); !errors.Is(err, common.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, ok := store.accounts[9999999]; ok {
		t.Fatal("penalty created a ledger entry for unknown user")
	}

	// Известный: применяется безусловно, баланс может уйти в минус
	balance, err := e.ApplyPenalty(ctx, 3, 6000, "test")
	if err != nil {
		t.Fatalf("ApplyPenalty: %v", err)
	}
	if balance != -5000 {
		t.Fatalf("balance = %d, want -5000", balance)
	}

	// Штраф не трогает метки бонуса
	saved := store.accounts[3]
	if !saved.HasJoinBonus || saved.LastBonusAt != "2026-08-01T12:00:00Z" {
		t.Fatalf("penalty touched bonus state: %+v", saved)
	}

	if _, err := e.ApplyPenalty(ctx, 3, 0, "test"); !errors.Is(err, common.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestAdminCreditAndRevoke(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.accounts[4] = &ledger.Account{UserID: 4, BalancePaise: 100, HasJoinBonus: true}
	e := newTestEngine(store, testConfig(), time.Now())

	balance, err := e.AdminCredit(ctx, 4, 900)
	if err != nil {
		t.Fatalf("AdminCredit: %v", err)
	}
	if balance != 1000 {
		t.Fatalf("balance = %d, want 1000", balance)
	}

	if _, err := e.AdminCredit(ctx, 404, 100); !errors.Is(err, common.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	if err := e.RevokeJoinBonus(ctx, 4); err != nil {
		t.Fatalf("RevokeJoinBonus: %v", err)
	}
	if store.accounts[4].HasJoinBonus {
		t.Fatal("flag not revoked")
	}
	if store.accounts[4].BalancePaise != 1000 {
		t.Fatal("revoke must not touch balance")
	}
}

func TestListRecentClaimants(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.accounts[1] = &ledger.Account{UserID: 1, LastBonusAt: "2026-08-01T10:00:00Z"}
	store.accounts[2] = &ledger.Account{UserID: 2, LastBonusAt: "2026-08-02T10:00:00Z"}
	store.accounts[3] = &ledger.Account{UserID: 3, LastBonusAt: "2026-08-02T10:00:00Z"}
	store.accounts[4] = &ledger.Account{UserID: 4} // никогда не заявлялся
	e := newTestEngine(store, testConfig(), time.Now())

	got, err := e.ListRecentClaimants(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecentClaimants: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3 (non-claimants excluded)", len(got))
	}
	// Свежие сверху, ничья по времени решается по user ID
	if got[0].UserID != 2 || got[1].UserID != 3 || got[2].UserID != 1 {
		t.Fatalf("order = [%d %d %d], want [2 3 1]", got[0].UserID, got[1].UserID, got[2].UserID)
	}

	got, err = e.ListRecentClaimants(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecentClaimants: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("limit not applied, len = %d", len(got))
	}
}

func TestFindUsersByMetadata(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.accounts[1] = &ledger.Account{UserID: 1, FirstName: "Asha", Username: "asha_k"}
	store.accounts[2] = &ledger.Account{UserID: 2, FirstName: "Rahul", Username: "rahul99"}
	store.accounts[3] = &ledger.Account{UserID: 3, FirstName: "Prakash", Username: ""}
	e := newTestEngine(store, testConfig(), time.Now())

	got, err := e.FindUsersByMetadata(ctx, "ASHA")
	if err != nil {
		t.Fatalf("FindUsersByMetadata: %v", err)
	}
	if len(got) != 1 || got[0].UserID != 1 {
		t.Fatalf("unexpected result: %+v", got)
	}

	got, err = e.FindUsersByMetadata(ctx, "a")
	if err != nil {
		t.Fatalf("FindUsersByMetadata: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].UserID != 1 || got[1].UserID != 2 || got[2].UserID != 3 {
		t.Fatal("results must be ordered by user ID")
	}

	got, err = e.FindUsersByMetadata(ctx, "  ")
	if err != nil {
		t.Fatalf("FindUsersByMetadata: %v", err)
	}
	if len(got) != 0 {
		t.Fatal("blank query must match nothing")
	}
}

func TestBonusHolders(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.accounts[2] = &ledger.Account{UserID: 2, HasJoinBonus: true}
	store.accounts[1] = &ledger.Account{UserID: 1, HasJoinBonus: true}
	store.accounts[3] = &ledger.Account{UserID: 3}
	e := newTestEngine(store, testConfig(), time.Now())

	got, err := e.BonusHolders(ctx)
	if err != nil {
		t.Fatalf("BonusHolders: %v", err)
	}
	if len(got) != 2 || got[0].UserID != 1 || got[1].UserID != 2 {
		t.Fatalf("unexpected holders: %+v", got)
	}
}
