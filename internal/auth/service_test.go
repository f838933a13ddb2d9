package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	memstore "github.com/dropDatabas3/collabsql/internal/store/memory"
)

func newAuthFixture(t *testing.T) *Service {
	t.Helper()
	st := memstore.New()
	tokens := NewTokenService("secreto-de-test", "collabsql", time.Hour, st)
	return NewService(st, tokens)
}

func TestRegisterThenLogin(t *testing.T) {
	svc := newAuthFixture(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, "ana@example.com", "ana", "contraseña123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.Token == "" || res.Identity.ID == "" {
		t.Fatalf("resultado incompleto: %+v", res)
	}

	got, err := svc.Login(ctx, "ana@example.com", "contraseña123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got.Identity.ID != res.Identity.ID {
		t.Fatalf("identidades distintas: %s vs %s", got.Identity.ID, res.Identity.ID)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newAuthFixture(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "ana@example.com", "ana", "contraseña123"); err != nil {
		t.Fatalf("primer Register: %v", err)
	}
	if _, err := svc.Register(ctx, "ana@example.com", "otra", "contraseña456"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("email repetido: quería ErrEmailTaken, vino %v", err)
	}
}

func TestRegisterMissingFields(t *testing.T) {
	svc := newAuthFixture(t)
	if _, err := svc.Register(context.Background(), "", "ana", "x"); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("quería ErrMissingFields, vino %v", err)
	}
}

// Usuario inexistente y contraseña equivocada devuelven el mismo error:
// el login no filtra cuáles cuentas existen.
func TestLoginSameErrorForMissAndWrongPassword(t *testing.T) {
	svc := newAuthFixture(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "ana@example.com", "ana", "contraseña123"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, errMiss := svc.Login(ctx, "nadie@example.com", "da igual")
	_, errPass := svc.Login(ctx, "ana@example.com", "incorrecta")

	if !errors.Is(errMiss, ErrInvalidCredentials) || !errors.Is(errPass, ErrInvalidCredentials) {
		t.Fatalf("ambos deberían ser ErrInvalidCredentials: %v / %v", errMiss, errPass)
	}
}
