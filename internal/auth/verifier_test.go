package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dropDatabas3/collabsql/internal/domain"
	memstore "github.com/dropDatabas3/collabsql/internal/store/memory"
)

func newTokenFixture(t *testing.T, ttl time.Duration) (*TokenService, *memstore.Store, domain.Identity) {
	t.Helper()
	st := memstore.New()
	id := domain.Identity{ID: "u1", Email: "ana@example.com", Username: "ana"}
	if err := st.CreateUser(context.Background(), &domain.User{
		ID: id.ID, Email: id.Email, Username: id.Username, Status: "active",
	}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return NewTokenService("secreto-de-test", "collabsql", ttl, st), st, id
}

func TestSignVerifyRoundTrip(t *testing.T) {
	ts, _, id := newTokenFixture(t, time.Hour)

	tok, err := ts.Sign(id)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	got, err := ts.Verify(context.Background(), tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got != id {
		t.Fatalf("identidad: quería %+v, vino %+v", id, got)
	}
}

func TestVerifyMissingAndGarbage(t *testing.T) {
	ts, _, _ := newTokenFixture(t, time.Hour)
	ctx := context.Background()

	if _, err := ts.Verify(ctx, ""); !errors.Is(err, ErrTokenMissing) {
		t.Fatalf("vacío: quería ErrTokenMissing, vino %v", err)
	}
	if _, err := ts.Verify(ctx, "no.es.jwt"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("basura: quería ErrTokenInvalid, vino %v", err)
	}
}

func TestVerifyExpired(t *testing.T) {
	ts, _, id := newTokenFixture(t, -time.Minute)

	tok, err := ts.Sign(id)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := ts.Verify(context.Background(), tok); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("vencido: quería ErrTokenExpired, vino %v", err)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	ts, st, id := newTokenFixture(t, time.Hour)

	tok, err := ts.Sign(id)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	otro := NewTokenService("otro-secreto", "collabsql", time.Hour, st)
	if _, err := otro.Verify(context.Background(), tok); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("otra firma: quería ErrTokenInvalid, vino %v", err)
	}
}

func TestVerifyDisabledUser(t *testing.T) {
	ts, st, id := newTokenFixture(t, time.Hour)

	tok, err := ts.Sign(id)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	// suspender la cuenta después de emitir el token
	if err := st.UpdateUserStatus(context.Background(), id.ID, "suspended"); err != nil {
		t.Fatalf("UpdateUserStatus: %v", err)
	}

	if _, err := ts.Verify(context.Background(), tok); !errors.Is(err, ErrUserDisabled) {
		t.Fatalf("cuenta suspendida: quería ErrUserDisabled, vino %v", err)
	}
}
