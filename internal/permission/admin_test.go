package permission

import (
	"context"
	"errors"
	"testing"

	"github.com/dropDatabas3/collabsql/internal/domain"
)

func TestAdminGrantRequiresOwner(t *testing.T) {
	st, gate, owner, other, dbID := newFixture(t)
	ctx := context.Background()
	admin := NewAdmin(st, st, st, gate, nil)

	// u2 (sin grant) no puede otorgar
	if _, err := admin.Grant(ctx, other, dbID, owner.Email, domain.LevelViewer); err == nil {
		t.Fatal("un no-owner no debería poder otorgar")
	}

	// el owner sí
	g, err := admin.Grant(ctx, owner, dbID, other.Email, domain.LevelEditor)
	if err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if g.Level != domain.LevelEditor || g.UserID != other.ID {
		t.Fatalf("grant inesperado: %+v", g)
	}

	// y el grant queda visible para el gate
	lvl, err := gate.Authorize(ctx, other, dbID, domain.LevelEditor)
	if err != nil || lvl != domain.LevelEditor {
		t.Fatalf("nivel post-grant: %s, %v", lvl, err)
	}
}

func TestAdminGrantOwnerLevelRejected(t *testing.T) {
	st, gate, owner, other, dbID := newFixture(t)
	admin := NewAdmin(st, st, st, gate, nil)

	if _, err := admin.Grant(context.Background(), owner, dbID, other.Email, domain.LevelOwner); !errors.Is(err, ErrOwnershipFixed) {
		t.Fatalf("otorgar owner: quería ErrOwnershipFixed, vino %v", err)
	}
}

func TestAdminRevoke(t *testing.T) {
	st, gate, owner, other, dbID := newFixture(t)
	ctx := context.Background()
	admin := NewAdmin(st, st, st, gate, nil)

	if _, err := admin.Grant(ctx, owner, dbID, other.Email, domain.LevelViewer); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if err := admin.Revoke(ctx, owner, dbID, other.ID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	// revocar de nuevo: el grant ya no existe
	if err := admin.Revoke(ctx, owner, dbID, other.ID); !errors.Is(err, ErrGrantNotFound) {
		t.Fatalf("segundo revoke: quería ErrGrantNotFound, vino %v", err)
	}
	// y el gate vuelve a no encontrar nada
	if _, err := gate.Authorize(ctx, other, dbID, domain.LevelViewer); !errors.Is(err, ErrNotFound) {
		t.Fatalf("post-revoke: quería ErrNotFound, vino %v", err)
	}
}
