package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/scoutfund/troopsales-backend/pkg/config"
)

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "troopsales",
		ExpirationMinutes: 30,
	}
	now := time.Now().UTC()
	accountID := uuid.New()

	payload := AccessTokenPayload{
		AccountID: accountID,
		Email:     "leader@example.com",
		IsAdmin:   true,
		JTI:       "session-1",
	}

	token, err := MintAccessToken(cfg, now, payload)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.AccountID != accountID {
		t.Errorf("account id = %s, want %s", claims.AccountID, accountID)
	}
	if claims.Email != "leader@example.com" {
		t.Errorf("email = %q", claims.Email)
	}
	if !claims.IsAdmin {
		t.Error("is_admin not carried")
	}
	if claims.ID != "session-1" {
		t.Errorf("jti = %q, want session-1", claims.ID)
	}
	if claims.Issuer != cfg.Issuer {
		t.Errorf("issuer = %q", claims.Issuer)
	}
}

func TestMintAccessTokenGeneratesJTI(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "troopsales", ExpirationMinutes: 5}

	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{AccountID: uuid.New()})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if strings.TrimSpace(claims.ID) == "" {
		t.Error("expected generated jti")
	}
}

func TestMintAccessTokenRequiresAccountID(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "troopsales", ExpirationMinutes: 5}
	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{}); err == nil {
		t.Fatal("expected error for missing account id")
	}
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "troopsales", ExpirationMinutes: 1}
	past := time.Now().Add(-time.Hour)

	token, err := MintAccessToken(cfg, past, AccessTokenPayload{AccountID: uuid.New()})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	if _, err := ParseAccessToken(cfg, token); err == nil {
		t.Fatal("expected expiry error")
	}
}

func TestParseAccessTokenAllowExpired(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "troopsales", ExpirationMinutes: 1}
	past := time.Now().Add(-time.Hour)
	accountID := uuid.New()

	token, err := MintAccessToken(cfg, past, AccessTokenPayload{AccountID: accountID, JTI: "stale"})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessTokenAllowExpired(cfg, token)
	if err != nil {
		t.Fatalf("parse expired token: %v", err)
	}
	if claims.AccountID != accountID {
		t.Errorf("account id = %s, want %s", claims.AccountID, accountID)
	}
	if claims.ID != "stale" {
		t.Errorf("jti = %q, want stale", claims.ID)
	}
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "troopsales", ExpirationMinutes: 5}

	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{AccountID: uuid.New()})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	other := cfg
	other.Secret = "different"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatal("expected signature error")
	}
}
