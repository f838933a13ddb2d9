package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/dropDatabas3/collabsql/internal/domain"
	"github.com/dropDatabas3/collabsql/internal/store"
)

func seedUserAndDB(t *testing.T, s *Store) (userID, dbID string) {
	t.Helper()
	ctx := context.Background()
	u := &domain.User{ID: "u1", Email: "ana@example.com", Username: "ana", PasswordHash: "x", Status: "active"}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	db := &domain.Database{ID: "db1", Name: "ventas", OwnerID: u.ID}
	if err := s.CreateDatabase(ctx, db); err != nil {
		t.Fatalf("CreateDatabase: %v", err)
	}
	return u.ID, db.ID
}

func TestCreateUserConflict(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.CreateUser(ctx, &domain.User{ID: "u1", Email: "a@b.c", Username: "a"}); err != nil {
		t.Fatalf("primer create: %v", err)
	}
	err := s.CreateUser(ctx, &domain.User{ID: "u2", Email: "A@B.C", Username: "otro"})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("email repetido: quería ErrConflict, vino %v", err)
	}
}

func TestAppendCommitMonotonicPerDatabase(t *testing.T) {
	s := New()
	ctx := context.Background()
	userID, dbID := seedUserAndDB(t, s)

	var last int64
	for i := 0; i < 5; i++ {
		rec := &domain.CommitRecord{DatabaseID: dbID, UserID: userID, Operation: "INSERT INTO t VALUES (1)", Kind: domain.KindInsert}
		if err := s.AppendCommit(ctx, rec); err != nil {
			t.Fatalf("AppendCommit #%d: %v", i, err)
		}
		if rec.ID <= last {
			t.Fatalf("id no monótono: %d después de %d", rec.ID, last)
		}
		if rec.Timestamp.IsZero() {
			t.Fatal("AppendCommit no completó el timestamp")
		}
		last = rec.ID
	}

	// otra database arranca su propia secuencia
	if err := s.CreateDatabase(ctx, &domain.Database{ID: "db2", Name: "otra", OwnerID: userID}); err != nil {
		t.Fatalf("CreateDatabase db2: %v", err)
	}
	rec := &domain.CommitRecord{DatabaseID: "db2", UserID: userID, Operation: "UPDATE t SET x=1", Kind: domain.KindUpdate}
	if err := s.AppendCommit(ctx, rec); err != nil {
		t.Fatalf("AppendCommit db2: %v", err)
	}
	if rec.ID != 1 {
		t.Fatalf("secuencia de db2 debería arrancar en 1, vino %d", rec.ID)
	}
}

func TestListCommitsNewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()
	userID, dbID := seedUserAndDB(t, s)

	for i := 0; i < 7; i++ {
		rec := &domain.CommitRecord{DatabaseID: dbID, UserID: userID, Operation: "INSERT INTO t VALUES (1)", Kind: domain.KindInsert}
		if err := s.AppendCommit(ctx, rec); err != nil {
			t.Fatalf("AppendCommit: %v", err)
		}
	}

	page, err := s.ListCommits(ctx, dbID, 3, 0)
	if err != nil {
		t.Fatalf("ListCommits: %v", err)
	}
	if len(page) != 3 {
		t.Fatalf("quería 3 commits, vinieron %d", len(page))
	}
	if page[0].ID != 7 || page[1].ID != 6 || page[2].ID != 5 {
		t.Fatalf("orden incorrecto: %d, %d, %d", page[0].ID, page[1].ID, page[2].ID)
	}

	// segunda página con offset
	page2, err := s.ListCommits(ctx, dbID, 3, 3)
	if err != nil {
		t.Fatalf("ListCommits offset: %v", err)
	}
	if len(page2) != 3 || page2[0].ID != 4 {
		t.Fatalf("segunda página incorrecta: len=%d head=%d", len(page2), page2[0].ID)
	}
}

func TestGrantsUpsertAndDelete(t *testing.T) {
	s := New()
	ctx := context.Background()
	ownerID, dbID := seedUserAndDB(t, s)

	if err := s.CreateUser(ctx, &domain.User{ID: "u2", Email: "beto@example.com", Username: "beto"}); err != nil {
		t.Fatalf("CreateUser u2: %v", err)
	}

	g := &domain.Grant{DatabaseID: dbID, UserID: "u2", Level: domain.LevelViewer, GrantedBy: ownerID}
	if err := s.UpsertGrant(ctx, g); err != nil {
		t.Fatalf("UpsertGrant: %v", err)
	}

	// upsert con otro nivel reemplaza, no duplica
	g2 := &domain.Grant{DatabaseID: dbID, UserID: "u2", Level: domain.LevelEditor, GrantedBy: ownerID}
	if err := s.UpsertGrant(ctx, g2); err != nil {
		t.Fatalf("UpsertGrant update: %v", err)
	}

	got, err := s.GetGrant(ctx, dbID, "u2")
	if err != nil {
		t.Fatalf("GetGrant: %v", err)
	}
	if got.Level != domain.LevelEditor {
		t.Fatalf("nivel: quería editor, vino %s", got.Level)
	}

	collabs, err := s.ListGrants(ctx, dbID)
	if err != nil {
		t.Fatalf("ListGrants: %v", err)
	}
	if len(collabs) != 1 {
		t.Fatalf("quería 1 colaborador, vinieron %d", len(collabs))
	}

	if err := s.DeleteGrant(ctx, dbID, "u2"); err != nil {
		t.Fatalf("DeleteGrant: %v", err)
	}
	if _, err := s.GetGrant(ctx, dbID, "u2"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("grant borrado: quería ErrNotFound, vino %v", err)
	}
}

func TestResolveOwner(t *testing.T) {
	s := New()
	ctx := context.Background()
	ownerID, dbID := seedUserAndDB(t, s)

	got, err := s.ResolveOwner(ctx, dbID)
	if err != nil {
		t.Fatalf("ResolveOwner: %v", err)
	}
	if got != ownerID {
		t.Fatalf("owner: quería %s, vino %s", ownerID, got)
	}
	if _, err := s.ResolveOwner(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("database inexistente: quería ErrNotFound, vino %v", err)
	}
}
