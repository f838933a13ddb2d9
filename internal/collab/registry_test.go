package collab

import (
	"testing"
	"time"

	"github.com/dropDatabas3/collabsql/internal/domain"
)

var (
	ana  = domain.Identity{ID: "u1", Username: "ana"}
	beto = domain.Identity{ID: "u2", Username: "beto"}
)

func TestRegisterSingleRoomPerConnection(t *testing.T) {
	r := NewRegistry()

	if _, prev := r.Register("c1", ana, "db1"); prev != "" {
		t.Fatalf("primera registración no debería dejar sala previa: %q", prev)
	}

	// moverse a otra sala remueve la sesión anterior en el mismo paso
	_, prev := r.Register("c1", ana, "db2")
	if prev != "db1" {
		t.Fatalf("quería sala previa db1, vino %q", prev)
	}
	if got := r.ListByDatabase("db1"); len(got) != 0 {
		t.Fatalf("db1 no debería retener la sesión: %+v", got)
	}
	if got := r.ListByDatabase("db2"); len(got) != 1 || got[0].ConnID != "c1" {
		t.Fatalf("db2 debería tener c1: %+v", got)
	}

	// re-join a la misma sala no duplica
	if _, prev := r.Register("c1", ana, "db2"); prev != "" {
		t.Fatalf("re-join no debería reportar sala previa: %q", prev)
	}
	if got := r.ListByDatabase("db2"); len(got) != 1 {
		t.Fatalf("re-join duplicó la sesión: %+v", got)
	}
}

func TestRemoveIdempotent(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", ana, "db1")

	if _, ok := r.Remove("c1"); !ok {
		t.Fatal("primer remove debería encontrar la sesión")
	}
	if _, ok := r.Remove("c1"); ok {
		t.Fatal("segundo remove no debería encontrar nada")
	}
	// remover algo que nunca existió tampoco es error
	if _, ok := r.Remove("fantasma"); ok {
		t.Fatal("remove de conexión inexistente debería ser no-op")
	}
}

func TestListByDatabaseInsertionOrder(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", ana, "db1")
	r.Register("c2", beto, "db1")
	r.Register("c3", ana, "db1") // multi-device: misma identidad, otra conexión

	got := r.ListByDatabase("db1")
	if len(got) != 3 {
		t.Fatalf("quería 3 sesiones, vinieron %d", len(got))
	}
	for i, want := range []string{"c1", "c2", "c3"} {
		if got[i].ConnID != want {
			t.Fatalf("posición %d: quería %s, vino %s", i, want, got[i].ConnID)
		}
	}
}

func TestTouchUnknownConnectionIsSilent(t *testing.T) {
	r := NewRegistry()
	// no debe panicear ni registrar nada
	r.Touch("fantasma")
	if r.Count() != 0 {
		t.Fatal("touch no debería crear sesiones")
	}
}

func TestStaleDetection(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", ana, "db1")
	r.Register("c2", beto, "db1")

	// envejecer c1 a mano
	r.mu.Lock()
	r.byConn["c1"].LastActivity = time.Now().Add(-2 * time.Minute)
	r.mu.Unlock()

	stale := r.Stale(time.Minute)
	if len(stale) != 1 || stale[0].ConnID != "c1" {
		t.Fatalf("quería solo c1 stale, vino %+v", stale)
	}

	// un touch lo rescata
	r.Touch("c1")
	if got := r.Stale(time.Minute); len(got) != 0 {
		t.Fatalf("después del touch nada debería estar stale: %+v", got)
	}
}
