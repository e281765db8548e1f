package httpapi

import (
	"context"
	"testing"
	"time"

	"barreldrop/backend/internal/domain"
	"barreldrop/backend/internal/store"
)

type userStoreStub struct {
	users map[string]domain.UserAccount
}

func (s *userStoreStub) GetUserByEmail(_ context.Context, email string) (domain.UserAccount, error) {
	user, ok := s.users[email]
	if !ok {
		return domain.UserAccount{}, store.ErrNotFound
	}
	return user, nil
}

func stubWithUser(t *testing.T, email, password, role string, active bool) *userStoreStub {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return &userStoreStub{users: map[string]domain.UserAccount{
		email: {
			ID:           "user-1",
			Name:         "Test User",
			Email:        email,
			PasswordHash: hash,
			Role:         role,
			Active:       active,
			CreatedAt:    time.Now().UTC(),
		},
	}}
}

func TestLoginAndParseTokenRoundTrip(t *testing.T) {
	users := stubWithUser(t, "owner@barreldrop.local", "secret123", domain.RoleAdmin, true)
	auth := NewAuthManager("test-secret", time.Hour, users)

	resp, err := auth.Login(context.Background(), domain.LoginRequest{
		Email:    "Owner@Barreldrop.Local",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.AccessToken == "" || resp.Role != domain.RoleAdmin {
		t.Fatalf("response = %+v", resp)
	}

	actor, err := auth.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if actor.ID != "user-1" || actor.Email != "owner@barreldrop.local" || actor.Role != domain.RoleAdmin {
		t.Fatalf("actor = %+v", actor)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	users := stubWithUser(t, "owner@barreldrop.local", "secret123", domain.RoleAdmin, true)
	auth := NewAuthManager("test-secret", time.Hour, users)

	if _, err := auth.Login(context.Background(), domain.LoginRequest{
		Email:    "owner@barreldrop.local",
		Password: "nope",
	}); err == nil {
		t.Fatal("expected error for wrong password")
	}
	if _, err := auth.Login(context.Background(), domain.LoginRequest{
		Email:    "nobody@barreldrop.local",
		Password: "secret123",
	}); err == nil {
		t.Fatal("expected error for unknown user")
	}
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	users := stubWithUser(t, "former@barreldrop.local", "secret123", domain.RoleUser, false)
	auth := NewAuthManager("test-secret", time.Hour, users)

	if _, err := auth.Login(context.Background(), domain.LoginRequest{
		Email:    "former@barreldrop.local",
		Password: "secret123",
	}); err == nil {
		t.Fatal("expected error for inactive account")
	}
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	users := stubWithUser(t, "owner@barreldrop.local", "secret123", domain.RoleAdmin, true)
	issuer := NewAuthManager("secret-one", time.Hour, users)
	verifier := NewAuthManager("secret-two", time.Hour, users)

	resp, err := issuer.Login(context.Background(), domain.LoginRequest{
		Email:    "owner@barreldrop.local",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := verifier.ParseToken(resp.AccessToken); err == nil {
		t.Fatal("expected error for token signed with another secret")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	users := stubWithUser(t, "owner@barreldrop.local", "secret123", domain.RoleAdmin, true)
	auth := NewAuthManager("test-secret", -time.Minute, users)

	// A non-positive TTL falls back to the default, so sign directly with a
	// past expiry instead.
	token, err := auth.sign(domain.UserAccount{ID: "user-1", Email: "owner@barreldrop.local", Role: domain.RoleAdmin}, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := auth.ParseToken(token); err == nil {
		t.Fatal("expected error for expired token")
	}
}
