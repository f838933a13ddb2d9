package permission

import (
	"context"
	"errors"
	"testing"
	"time"

	memcache "github.com/dropDatabas3/collabsql/internal/cache/memory"
	"github.com/dropDatabas3/collabsql/internal/domain"
	memstore "github.com/dropDatabas3/collabsql/internal/store/memory"
)

func newFixture(t *testing.T) (*memstore.Store, *Gate, domain.Identity, domain.Identity, string) {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()

	owner := domain.Identity{ID: "u1", Username: "ana", Email: "ana@example.com"}
	other := domain.Identity{ID: "u2", Username: "beto", Email: "beto@example.com"}
	for _, u := range []domain.Identity{owner, other} {
		if err := st.CreateUser(ctx, &domain.User{ID: u.ID, Email: u.Email, Username: u.Username, Status: "active"}); err != nil {
			t.Fatalf("CreateUser %s: %v", u.ID, err)
		}
	}
	if err := st.CreateDatabase(ctx, &domain.Database{ID: "db1", Name: "ventas", OwnerID: owner.ID}); err != nil {
		t.Fatalf("CreateDatabase: %v", err)
	}

	gate := NewGate(st, st, memcache.New(time.Minute), 30*time.Second)
	return st, gate, owner, other, "db1"
}

func TestAuthorizeOwnerImplicit(t *testing.T) {
	_, gate, owner, _, dbID := newFixture(t)

	lvl, err := gate.Authorize(context.Background(), owner, dbID, domain.LevelOwner)
	if err != nil {
		t.Fatalf("el owner debería pasar sin fila de grant: %v", err)
	}
	if lvl != domain.LevelOwner {
		t.Fatalf("nivel: quería owner, vino %s", lvl)
	}
}

func TestAuthorizeNoGrantIsNotFound(t *testing.T) {
	_, gate, _, other, dbID := newFixture(t)

	_, err := gate.Authorize(context.Background(), other, dbID, domain.LevelViewer)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("sin grant: quería ErrNotFound, vino %v", err)
	}
}

func TestAuthorizeUnknownDatabaseIsNotFound(t *testing.T) {
	_, gate, owner, _, _ := newFixture(t)

	_, err := gate.Authorize(context.Background(), owner, "nope", domain.LevelViewer)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("database inexistente: quería ErrNotFound, vino %v", err)
	}
}

// El owner otorga viewer; un join que requiere editor responde
// Forbidden con el nivel real del caller adentro.
func TestViewerDeniedEditorCarriesActualLevel(t *testing.T) {
	st, gate, owner, other, dbID := newFixture(t)
	ctx := context.Background()

	if err := st.UpsertGrant(ctx, &domain.Grant{DatabaseID: dbID, UserID: other.ID, Level: domain.LevelViewer, GrantedBy: owner.ID}); err != nil {
		t.Fatalf("UpsertGrant: %v", err)
	}

	_, err := gate.Authorize(ctx, other, dbID, domain.LevelEditor)
	var forbidden *ForbiddenError
	if !errors.As(err, &forbidden) {
		t.Fatalf("quería ForbiddenError, vino %v", err)
	}
	if forbidden.Actual != domain.LevelViewer || forbidden.Required != domain.LevelEditor {
		t.Fatalf("niveles del error: required=%s actual=%s", forbidden.Required, forbidden.Actual)
	}

	// pero viewer sí alcanza para leer
	lvl, err := gate.Authorize(ctx, other, dbID, domain.LevelViewer)
	if err != nil {
		t.Fatalf("viewer debería poder leer: %v", err)
	}
	if lvl != domain.LevelViewer {
		t.Fatalf("nivel: quería viewer, vino %s", lvl)
	}
}

func TestInvalidateRefreshesCachedLevel(t *testing.T) {
	st, gate, owner, other, dbID := newFixture(t)
	ctx := context.Background()

	// primer lookup cachea el miss
	if _, err := gate.Level(ctx, other.ID, dbID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("quería ErrNotFound, vino %v", err)
	}

	if err := st.UpsertGrant(ctx, &domain.Grant{DatabaseID: dbID, UserID: other.ID, Level: domain.LevelEditor, GrantedBy: owner.ID}); err != nil {
		t.Fatalf("UpsertGrant: %v", err)
	}

	// sin invalidar, el miss cacheado sigue mandando
	if _, err := gate.Level(ctx, other.ID, dbID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("el miss cacheado debería seguir: %v", err)
	}

	gate.Invalidate(dbID, other.ID)
	lvl, err := gate.Level(ctx, other.ID, dbID)
	if err != nil {
		t.Fatalf("después de invalidar: %v", err)
	}
	if lvl != domain.LevelEditor {
		t.Fatalf("nivel: quería editor, vino %s", lvl)
	}
}
