package httpapi

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"clicknsell/pos/internal/domain"
)

type userStoreStub struct {
	mu      sync.Mutex
	users   map[string]domain.UserAccount
	updates int
}

func (s *userStoreStub) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users == nil {
		s.users = make(map[string]domain.UserAccount)
	}
	s.users[user.Username] = user
	return nil
}

func (s *userStoreStub) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UserAccount, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	return out, nil
}

func (s *userStoreStub) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.users[username]
	user.Password = password
	s.users[username] = user
	s.updates++
	return nil
}

func TestAuthManagerUpgradesLegacyPlainPassword(t *testing.T) {
	userStore := &userStoreStub{
		users: map[string]domain.UserAccount{
			"admin": {
				Username:  "admin",
				Password:  "admin123",
				Role:      "admin",
				Active:    true,
				CreatedAt: time.Now().UTC(),
			},
		},
	}

	manager := NewAuthManager("test-secret", time.Hour, userStore)
	_, err := manager.Login(context.Background(), domain.LoginRequest{
		Username: "admin",
		Password: "admin123",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	users, err := userStore.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(users))
	}
	if users[0].Password == "admin123" {
		t.Fatalf("expected password to be upgraded from plain-text")
	}
	if !strings.HasPrefix(users[0].Password, "$2") {
		t.Fatalf("expected bcrypt hash, got %q", users[0].Password)
	}
	if userStore.updates == 0 {
		t.Fatalf("expected an UpdateUserPassword call for the upgrade")
	}
}

func TestLoginRejectsBadCredentialsAndInactiveUsers(t *testing.T) {
	userStore := &userStoreStub{}
	hash, _ := hashPassword("secretpass")
	_ = userStore.CreateUser(context.Background(), domain.UserAccount{
		Username: "jo", Password: hash, Role: "cashier", Active: true, CreatedAt: time.Now().UTC(),
	})
	_ = userStore.CreateUser(context.Background(), domain.UserAccount{
		Username: "gone", Password: hash, Role: "cashier", Active: false, CreatedAt: time.Now().UTC(),
	})

	manager := NewAuthManager("test-secret", time.Hour, userStore)

	if _, err := manager.Login(context.Background(), domain.LoginRequest{Username: "jo", Password: "wrong"}); err == nil {
		t.Fatalf("wrong password should fail")
	}
	if _, err := manager.Login(context.Background(), domain.LoginRequest{Username: "nobody", Password: "secretpass"}); err == nil {
		t.Fatalf("unknown user should fail")
	}
	if _, err := manager.Login(context.Background(), domain.LoginRequest{Username: "gone", Password: "secretpass"}); err == nil {
		t.Fatalf("inactive user should fail")
	}
	if _, err := manager.Login(context.Background(), domain.LoginRequest{Username: "jo", Password: "secretpass"}); err != nil {
		t.Fatalf("valid login failed: %v", err)
	}
}

func TestParseTokenRoundTrip(t *testing.T) {
	userStore := &userStoreStub{}
	hash, _ := hashPassword("secretpass")
	_ = userStore.CreateUser(context.Background(), domain.UserAccount{
		Username: "jo", Password: hash, Role: "cashier", Active: true, CreatedAt: time.Now().UTC(),
	})

	manager := NewAuthManager("test-secret", time.Hour, userStore)
	resp, err := manager.Login(context.Background(), domain.LoginRequest{Username: "jo", Password: "secretpass"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	actor, err := manager.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if actor.Username != "jo" || actor.Role != "cashier" {
		t.Fatalf("actor = %+v", actor)
	}

	if _, err := manager.ParseToken("not-a-token"); err == nil {
		t.Fatalf("garbage token should fail")
	}

	// A token signed with a different secret is rejected.
	other := NewAuthManager("other-secret", time.Hour, userStore)
	if _, err := other.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("token from another secret should fail")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, nil)
	token, err := manager.sign("jo", "cashier", time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := manager.ParseToken(token); err == nil {
		t.Fatalf("expired token should fail")
	}
}
