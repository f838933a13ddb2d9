package collab

import (
	"context"
	"testing"
	"time"

	"github.com/dropDatabas3/collabsql/internal/domain"
)

// U1 se desconecta sin leave; dentro de una ventana de staleness U2
// recibe el user-left sintético y la sesión desaparece del registro.
func TestSupervisorEvictsStaleSession(t *testing.T) {
	f := newHubFixture(t)
	f.grant(t, f.other, domain.LevelViewer)

	f.connect("c1")
	s2 := f.connect("c2")
	f.join("c1", f.owner)
	f.join("c2", f.other)

	reg := f.hub.registry
	reg.mu.Lock()
	reg.byConn["c1"].LastActivity = time.Now().Add(-5 * time.Minute)
	reg.mu.Unlock()

	sup := NewSupervisor(reg, f.hub.broadcaster, time.Minute, 10*time.Second)
	if n := sup.Sweep(); n != 1 {
		t.Fatalf("quería 1 evicción, vinieron %d", n)
	}

	for _, sess := range reg.ListByDatabase(f.dbID) {
		if sess.ConnID == "c1" {
			t.Fatal("c1 debería haber sido evictada")
		}
	}

	found := false
	for i, ev := range s2.events() {
		if ev == EvUserLeft {
			p := decode[PeerPayload](t, s2.frames[i])
			if p.UserID == f.owner.ID {
				found = true
			}
		}
	}
	if !found {
		t.Fatal("U2 debería recibir el user-left sintético de U1")
	}
}

// Una remoción explícita concurrente no duplica la evicción.
func TestSweepIdempotentWithExplicitRemoval(t *testing.T) {
	f := newHubFixture(t)
	f.connect("c1")
	f.join("c1", f.owner)

	reg := f.hub.registry
	reg.mu.Lock()
	reg.byConn["c1"].LastActivity = time.Now().Add(-5 * time.Minute)
	reg.mu.Unlock()

	// el leave explícito gana la carrera
	f.hub.HandleLeave(context.Background(), "c1")

	sup := NewSupervisor(reg, f.hub.broadcaster, time.Minute, 10*time.Second)
	if n := sup.Sweep(); n != 0 {
		t.Fatalf("la sesión ya removida no debería evictarse de nuevo: %d", n)
	}
}

// Una sesión sana sobrevive al barrido.
func TestSweepLeavesFreshSessionsAlone(t *testing.T) {
	f := newHubFixture(t)
	f.connect("c1")
	f.join("c1", f.owner)

	sup := NewSupervisor(f.hub.registry, f.hub.broadcaster, time.Minute, 10*time.Second)
	if n := sup.Sweep(); n != 0 {
		t.Fatalf("no debería evictar sesiones frescas: %d", n)
	}
	if f.hub.registry.Count() != 1 {
		t.Fatal("la sesión fresca debería seguir registrada")
	}
}

func TestSupervisorRunStopsOnCancel(t *testing.T) {
	f := newHubFixture(t)
	sup := NewSupervisor(f.hub.registry, f.hub.broadcaster, time.Minute, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("quería context.Canceled, vino %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("el supervisor no se detuvo tras cancelar el contexto")
	}
}
