package repositories

import (
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/songstream/internal/models"
	"github.com/desertthunder/songstream/internal/shared"
	tu "github.com/desertthunder/songstream/internal/testing"
)

func newAccount(externalID, session string) *models.Account {
	account := models.NewAccount(0, externalID, "Test User", externalID+"@example.com")
	account.SetTokens("access-"+externalID, "refresh-"+externalID, time.Now().Add(time.Hour).Truncate(time.Second))
	account.SetSessionToken(session)
	return account
}

func TestAccountRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		repo := NewAccountRepository(tu.NewTestDB(t))
		account := newAccount("user-1", "session-1")

		if err := repo.Create(account); err != nil {
			t.Fatalf("failed to create account: %v", err)
		}

		if account.ID() == "" {
			t.Error("account ID should be set after creation")
		}
		if account.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", account.Sequence())
		}
	})

	t.Run("Create Validation Error", func(t *testing.T) {
		repo := NewAccountRepository(tu.NewTestDB(t))
		account := models.NewAccount(0, "user-1", "", "")

		if err := repo.Create(account); !errors.Is(err, shared.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Create Duplicate External ID", func(t *testing.T) {
		repo := NewAccountRepository(tu.NewTestDB(t))

		if err := repo.Create(newAccount("user-1", "session-1")); err != nil {
			t.Fatalf("failed to create first account: %v", err)
		}

		err := repo.Create(newAccount("user-1", "session-2"))
		if !errors.Is(err, shared.ErrPersistence) {
			t.Fatalf("expected ErrPersistence for duplicate identity, got %v", err)
		}
	})

	t.Run("Get", func(t *testing.T) {
		repo := NewAccountRepository(tu.NewTestDB(t))
		account := newAccount("user-1", "session-1")

		if err := repo.Create(account); err != nil {
			t.Fatalf("failed to create account: %v", err)
		}

		retrieved, err := repo.Get(account.ID())
		if err != nil {
			t.Fatalf("failed to get account: %v", err)
		}

		if retrieved.ExternalID() != "user-1" {
			t.Errorf("expected external id user-1, got %s", retrieved.ExternalID())
		}
		if retrieved.Email() != "user-1@example.com" {
			t.Errorf("expected email, got %s", retrieved.Email())
		}
		if retrieved.RefreshToken() != "refresh-user-1" {
			t.Errorf("expected refresh token, got %s", retrieved.RefreshToken())
		}
		if !retrieved.TokenExpiry().Equal(account.TokenExpiry()) {
			t.Errorf("expected expiry %v, got %v", account.TokenExpiry(), retrieved.TokenExpiry())
		}
	})

	t.Run("Get Not Found", func(t *testing.T) {
		repo := NewAccountRepository(tu.NewTestDB(t))

		if _, err := repo.Get("nonexistent-id"); !errors.Is(err, shared.ErrRecordNotFound) {
			t.Fatalf("expected ErrRecordNotFound, got %v", err)
		}
	})

	t.Run("GetBySessionToken", func(t *testing.T) {
		repo := NewAccountRepository(tu.NewTestDB(t))
		account := newAccount("user-1", "session-1")

		if err := repo.Create(account); err != nil {
			t.Fatalf("failed to create account: %v", err)
		}

		retrieved, err := repo.GetBySessionToken("session-1")
		if err != nil {
			t.Fatalf("failed to get account by session: %v", err)
		}
		if retrieved.ID() != account.ID() {
			t.Errorf("expected ID %s, got %s", account.ID(), retrieved.ID())
		}

		if _, err := repo.GetBySessionToken(""); !errors.Is(err, shared.ErrRecordNotFound) {
			t.Errorf("expected ErrRecordNotFound for empty token, got %v", err)
		}
		if _, err := repo.GetBySessionToken("never-issued"); !errors.Is(err, shared.ErrRecordNotFound) {
			t.Errorf("expected ErrRecordNotFound for unknown token, got %v", err)
		}
	})

	t.Run("Upsert Inserts Then Rotates", func(t *testing.T) {
		repo := NewAccountRepository(tu.NewTestDB(t))

		first := newAccount("user-1", "session-1")
		if err := repo.Upsert(first); err != nil {
			t.Fatalf("first upsert failed: %v", err)
		}
		if first.ID() == "" {
			t.Fatal("expected ID to be set after upsert")
		}

		second := models.NewAccount(0, "user-1", "Renamed", "")
		second.SetTokens("access-2", "", time.Time{})
		second.SetSessionToken("session-2")
		if err := repo.Upsert(second); err != nil {
			t.Fatalf("second upsert failed: %v", err)
		}

		if second.ID() != first.ID() {
			t.Errorf("expected the same row, got %s and %s", first.ID(), second.ID())
		}
		if second.Sequence() != first.Sequence() {
			t.Errorf("expected sequence to be kept, got %d and %d", first.Sequence(), second.Sequence())
		}
		if second.RefreshToken() != "refresh-user-1" {
			t.Errorf("expected refresh token to be kept when omitted, got %q", second.RefreshToken())
		}

		if _, err := repo.GetBySessionToken("session-1"); !errors.Is(err, shared.ErrRecordNotFound) {
			t.Errorf("rotated session token should not resolve, got %v", err)
		}

		current, err := repo.GetBySessionToken("session-2")
		if err != nil {
			t.Fatalf("current session token should resolve: %v", err)
		}
		if current.DisplayName() != "Renamed" || current.AccessToken() != "access-2" {
			t.Errorf("expected updated profile and tokens, got %s / %s", current.DisplayName(), current.AccessToken())
		}

		all, err := repo.List(nil)
		if err != nil {
			t.Fatalf("failed to list accounts: %v", err)
		}
		if len(all) != 1 {
			t.Errorf("expected exactly one account per identity, got %d", len(all))
		}
	})

	t.Run("Upsert Restores Deleted Account", func(t *testing.T) {
		repo := NewAccountRepository(tu.NewTestDB(t))

		account := newAccount("user-1", "session-1")
		if err := repo.Upsert(account); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
		if err := repo.Delete(account.ID()); err != nil {
			t.Fatalf("delete failed: %v", err)
		}

		again := newAccount("user-1", "session-2")
		if err := repo.Upsert(again); err != nil {
			t.Fatalf("upsert after delete failed: %v", err)
		}
		if _, err := repo.GetBySessionToken("session-2"); err != nil {
			t.Errorf("expected restored account to resolve: %v", err)
		}
	})

	t.Run("Update", func(t *testing.T) {
		repo := NewAccountRepository(tu.NewTestDB(t))
		account := newAccount("user-1", "session-1")

		if err := repo.Create(account); err != nil {
			t.Fatalf("failed to create account: %v", err)
		}

		account.SetTokens("refreshed-access", "refreshed-refresh", time.Now().Add(2*time.Hour))
		if err := repo.Update(account); err != nil {
			t.Fatalf("failed to update account: %v", err)
		}

		retrieved, err := repo.Get(account.ID())
		if err != nil {
			t.Fatalf("failed to get account: %v", err)
		}
		if retrieved.AccessToken() != "refreshed-access" {
			t.Errorf("expected refreshed access token, got %s", retrieved.AccessToken())
		}
	})

	t.Run("Update Not Found", func(t *testing.T) {
		repo := NewAccountRepository(tu.NewTestDB(t))
		account := newAccount("user-1", "session-1")
		account.SetID("nonexistent-id")

		if err := repo.Update(account); !errors.Is(err, shared.ErrRecordNotFound) {
			t.Fatalf("expected ErrRecordNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewAccountRepository(tu.NewTestDB(t))
		account := newAccount("user-1", "session-1")

		if err := repo.Create(account); err != nil {
			t.Fatalf("failed to create account: %v", err)
		}
		if err := repo.Delete(account.ID()); err != nil {
			t.Fatalf("failed to delete account: %v", err)
		}

		if _, err := repo.Get(account.ID()); err == nil {
			t.Error("expected error when getting deleted account")
		}
		if _, err := repo.GetBySessionToken("session-1"); err == nil {
			t.Error("deleted account should not resolve by session token")
		}
		if err := repo.Delete(account.ID()); !errors.Is(err, shared.ErrRecordNotFound) {
			t.Errorf("expected ErrRecordNotFound on second delete, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := NewAccountRepository(tu.NewTestDB(t))

		for i, id := range []string{"user-1", "user-2", "user-3"} {
			if err := repo.Create(newAccount(id, "session-"+id)); err != nil {
				t.Fatalf("failed to create account %d: %v", i, err)
			}
		}

		all, err := repo.List(map[string]any{})
		if err != nil {
			t.Fatalf("failed to list accounts: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("expected 3 accounts, got %d", len(all))
		}
		for i := 1; i < len(all); i++ {
			if all[i].Sequence() <= all[i-1].Sequence() {
				t.Errorf("accounts not ordered by sequence")
			}
		}

		filtered, err := repo.List(map[string]any{"email": "user-2@example.com"})
		if err != nil {
			t.Fatalf("failed to list accounts by email: %v", err)
		}
		if len(filtered) != 1 || filtered[0].ExternalID() != "user-2" {
			t.Errorf("expected only user-2, got %d accounts", len(filtered))
		}
	})

	t.Run("Closed Database", func(t *testing.T) {
		db := tu.NewTestDB(t)
		repo := NewAccountRepository(db)
		db.Close()

		if _, err := repo.GetBySessionToken("session-1"); !errors.Is(err, shared.ErrPersistence) {
			t.Errorf("expected ErrPersistence, got %v", err)
		}
		if err := repo.Upsert(newAccount("user-1", "session-1")); !errors.Is(err, shared.ErrPersistence) {
			t.Errorf("expected ErrPersistence, got %v", err)
		}
	})
}

func TestNextSequence(t *testing.T) {
	db := tu.NewTestDB(t)

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "accounts")
		if err != nil {
			t.Fatalf("failed to get sequence: %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}

	if _, err := NextSequence(db, "missing"); err == nil {
		t.Error("expected error for table without sequence")
	}
}
