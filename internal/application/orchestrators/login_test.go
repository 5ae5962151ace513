package orchestrators

import (
	"context"
	"testing"
	"time"

	"celltrack/internal/domain/account"
	"celltrack/internal/domain/identity"
)

type mockAccountStore struct {
	accounts map[string]account.Account // keyed by email
	saved    []account.Account
}

func newMockAccountStore(accounts ...account.Account) *mockAccountStore {
	s := &mockAccountStore{accounts: make(map[string]account.Account)}
	for _, a := range accounts {
		s.accounts[a.Email] = a
	}
	return s
}

func (s *mockAccountStore) GetByEmail(_ context.Context, email string) (account.Account, error) {
	a, ok := s.accounts[email]
	if !ok {
		return account.Account{}, errNotFound
	}
	return a, nil
}

func (s *mockAccountStore) GetByID(_ context.Context, id string) (account.Account, error) {
	for _, a := range s.accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return account.Account{}, errNotFound
}

func (s *mockAccountStore) Save(_ context.Context, a account.Account) error {
	s.accounts[a.Email] = a
	s.saved = append(s.saved, a)
	return nil
}

func (s *mockAccountStore) Count(_ context.Context) (int, error) {
	return len(s.accounts), nil
}

func testAccount(t *testing.T, password string) account.Account {
	t.Helper()
	a := account.Account{
		ID:            "acct-1",
		Email:         "leader@example.com",
		ParticipantID: "part-leader",
		Capabilities:  []identity.Capability{identity.CapConfirmPD},
		Status:        account.StatusActive,
	}
	if err := a.SetPassword(password); err != nil {
		t.Fatalf("SetPassword() error = %v", err)
	}
	return a
}

func TestExecuteLogin(t *testing.T) {
	const password = "correct-horse-battery"

	t.Run("success", func(t *testing.T) {
		store := newMockAccountStore(testAccount(t, password))
		result, err := ExecuteLogin(context.Background(), LoginInput{
			Email:    "leader@example.com",
			Password: password,
		}, LoginDeps{AccountStore: store})
		if err != nil {
			t.Fatalf("ExecuteLogin() error = %v", err)
		}
		if result.AccountID != "acct-1" || result.ParticipantID != "part-leader" {
			t.Errorf("unexpected result %+v", result)
		}
		if len(result.Capabilities) != 1 || result.Capabilities[0] != identity.CapConfirmPD {
			t.Errorf("Capabilities = %v", result.Capabilities)
		}
	})

	t.Run("wrong password records the failure", func(t *testing.T) {
		store := newMockAccountStore(testAccount(t, password))
		_, err := ExecuteLogin(context.Background(), LoginInput{
			Email:    "leader@example.com",
			Password: "wrong-password-xx",
		}, LoginDeps{AccountStore: store})
		if err != ErrInvalidCredentials {
			t.Fatalf("error = %v, want ErrInvalidCredentials", err)
		}
		if store.accounts["leader@example.com"].FailedLogins != 1 {
			t.Error("failed login was not recorded")
		}
	})

	t.Run("success resets failed logins", func(t *testing.T) {
		a := testAccount(t, password)
		a.FailedLogins = 3
		store := newMockAccountStore(a)

		if _, err := ExecuteLogin(context.Background(), LoginInput{
			Email:    "leader@example.com",
			Password: password,
		}, LoginDeps{AccountStore: store}); err != nil {
			t.Fatalf("ExecuteLogin() error = %v", err)
		}
		if store.accounts["leader@example.com"].FailedLogins != 0 {
			t.Error("failed logins were not reset")
		}
	})

	t.Run("locked account", func(t *testing.T) {
		a := testAccount(t, password)
		a.FailedLogins = 5
		a.LockedUntil = time.Now().Add(15 * time.Minute)
		store := newMockAccountStore(a)

		_, err := ExecuteLogin(context.Background(), LoginInput{
			Email:    "leader@example.com",
			Password: password,
		}, LoginDeps{AccountStore: store})
		if err != ErrAccountLocked {
			t.Errorf("error = %v, want ErrAccountLocked", err)
		}
	})

	t.Run("disabled account", func(t *testing.T) {
		a := testAccount(t, password)
		a.Status = account.StatusDisabled
		store := newMockAccountStore(a)

		_, err := ExecuteLogin(context.Background(), LoginInput{
			Email:    "leader@example.com",
			Password: password,
		}, LoginDeps{AccountStore: store})
		if err != ErrAccountDisabled {
			t.Errorf("error = %v, want ErrAccountDisabled", err)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		store := newMockAccountStore()
		_, err := ExecuteLogin(context.Background(), LoginInput{
			Email:    "nobody@example.com",
			Password: password,
		}, LoginDeps{AccountStore: store})
		if err != ErrInvalidCredentials {
			t.Errorf("error = %v, want ErrInvalidCredentials", err)
		}
	})

	t.Run("empty credentials", func(t *testing.T) {
		store := newMockAccountStore(testAccount(t, password))
		if _, err := ExecuteLogin(context.Background(), LoginInput{}, LoginDeps{AccountStore: store}); err != ErrInvalidCredentials {
			t.Errorf("error = %v, want ErrInvalidCredentials", err)
		}
	})
}

func TestExecuteCreateAccount(t *testing.T) {
	t.Run("creates with hashed password", func(t *testing.T) {
		store := newMockAccountStore()
		id, err := ExecuteCreateAccount(context.Background(), CreateAccountInput{
			Email:        "new@example.com",
			Password:     "a-long-enough-password",
			Capabilities: []identity.Capability{identity.CapApproveEdits},
		}, CreateAccountDeps{AccountStore: store})
		if err != nil {
			t.Fatalf("ExecuteCreateAccount() error = %v", err)
		}
		if id == "" {
			t.Fatal("empty account ID")
		}
		saved := store.accounts["new@example.com"]
		if saved.PasswordHash == "" || saved.PasswordHash == "a-long-enough-password" {
			t.Error("password was not hashed")
		}
		if err := saved.CheckPassword("a-long-enough-password"); err != nil {
			t.Errorf("CheckPassword() on created account error = %v", err)
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		store := newMockAccountStore(testAccount(t, "correct-horse-battery"))
		_, err := ExecuteCreateAccount(context.Background(), CreateAccountInput{
			Email:    "leader@example.com",
			Password: "a-long-enough-password",
		}, CreateAccountDeps{AccountStore: store})
		if err != ErrEmailAlreadyExists {
			t.Errorf("error = %v, want ErrEmailAlreadyExists", err)
		}
	})

	t.Run("short password", func(t *testing.T) {
		store := newMockAccountStore()
		if _, err := ExecuteCreateAccount(context.Background(), CreateAccountInput{
			Email:    "new@example.com",
			Password: "short",
		}, CreateAccountDeps{AccountStore: store}); err == nil {
			t.Error("short password should fail")
		}
	})
}

func TestExecuteSeedAdmin(t *testing.T) {
	t.Run("seeds when empty", func(t *testing.T) {
		store := newMockAccountStore()
		if err := ExecuteSeedAdmin(context.Background(), CreateAccountDeps{AccountStore: store}, "admin@example.com", "a-long-enough-password"); err != nil {
			t.Fatalf("ExecuteSeedAdmin() error = %v", err)
		}
		admin := store.accounts["admin@example.com"]
		if len(admin.Capabilities) != len(identity.ValidCapabilities) {
			t.Errorf("Capabilities = %v, want all of them", admin.Capabilities)
		}
	})

	t.Run("skips when accounts exist", func(t *testing.T) {
		store := newMockAccountStore(testAccount(t, "correct-horse-battery"))
		if err := ExecuteSeedAdmin(context.Background(), CreateAccountDeps{AccountStore: store}, "admin@example.com", "a-long-enough-password"); err != nil {
			t.Fatalf("ExecuteSeedAdmin() error = %v", err)
		}
		if _, ok := store.accounts["admin@example.com"]; ok {
			t.Error("seeding ran despite existing accounts")
		}
	})
}
