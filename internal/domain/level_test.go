package domain

import "testing"

func TestLevelRank(t *testing.T) {
	cases := []struct {
		level Level
		rank  int
	}{
		{LevelOwner, 3},
		{LevelEditor, 2},
		{LevelViewer, 1},
		{Level("admin"), 0},
		{Level(""), 0},
	}
	for _, c := range cases {
		if got := c.level.Rank(); got != c.rank {
			t.Fatalf("Rank(%q) = %d, quería %d", c.level, got, c.rank)
		}
	}
}

func TestLevelAtLeast(t *testing.T) {
	if !LevelOwner.AtLeast(LevelEditor) {
		t.Fatal("owner debería alcanzar editor")
	}
	if !LevelEditor.AtLeast(LevelEditor) {
		t.Fatal("editor debería alcanzarse a sí mismo")
	}
	if LevelViewer.AtLeast(LevelEditor) {
		t.Fatal("viewer no debería alcanzar editor")
	}
	// requerido desconocido: siempre falla, aunque el rank del caller sea mayor
	if LevelOwner.AtLeast(Level("superuser")) {
		t.Fatal("un nivel requerido desconocido nunca debe pasar")
	}
	// caller desconocido tampoco pasa
	if Level("admin").AtLeast(LevelViewer) {
		t.Fatal("un nivel desconocido no debe alcanzar nada")
	}
}

func TestLevelValid(t *testing.T) {
	for _, l := range []Level{LevelOwner, LevelEditor, LevelViewer} {
		if !l.Valid() {
			t.Fatalf("%q debería ser válido", l)
		}
	}
	if Level("root").Valid() {
		t.Fatal("root no es un nivel válido")
	}
}
