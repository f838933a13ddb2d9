package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if c.Server.Addr != ":8080" {
		t.Fatalf("addr por defecto: %s", c.Server.Addr)
	}
	if c.Storage.Driver != "memory" {
		t.Fatalf("driver por defecto: %s", c.Storage.Driver)
	}
	if c.Collab.StalenessThreshold != 60*time.Second {
		t.Fatalf("staleness por defecto: %s", c.Collab.StalenessThreshold)
	}
	// el default del tick respeta la relación 1:5
	if c.Collab.SweepInterval*5 > c.Collab.StalenessThreshold {
		t.Fatalf("defaults violan la relación tick:threshold: %s vs %s",
			c.Collab.SweepInterval, c.Collab.StalenessThreshold)
	}
	if c.Collab.HistoryPageSize != 50 {
		t.Fatalf("page size por defecto: %d", c.Collab.HistoryPageSize)
	}
}

func TestSweepRatioValidation(t *testing.T) {
	path := writeYAML(t, `
collab:
  staleness_threshold: 60s
  sweep_interval: 30s
`)
	if _, err := Load(path); err == nil {
		t.Fatal("sweep de 30s con threshold de 60s debería fallar la validación")
	}

	ok := writeYAML(t, `
collab:
  staleness_threshold: 60s
  sweep_interval: 10s
`)
	c, err := Load(ok)
	if err != nil {
		t.Fatalf("relación 1:6 debería validar: %v", err)
	}
	if c.Collab.SweepInterval != 10*time.Second {
		t.Fatalf("sweep: quería 10s, vino %s", c.Collab.SweepInterval)
	}
}

func TestPostgresRequiresDSN(t *testing.T) {
	path := writeYAML(t, `
storage:
  driver: postgres
`)
	if _, err := Load(path); err == nil {
		t.Fatal("driver postgres sin dsn debería fallar")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":9999")
	t.Setenv("COLLAB_STALENESS_THRESHOLD", "120s")
	t.Setenv("COLLAB_SWEEP_INTERVAL", "20s")

	c, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if c.Server.Addr != ":9999" {
		t.Fatalf("env no pisó addr: %s", c.Server.Addr)
	}
	if c.Collab.StalenessThreshold != 120*time.Second || c.Collab.SweepInterval != 20*time.Second {
		t.Fatalf("env no pisó collab: %s / %s", c.Collab.StalenessThreshold, c.Collab.SweepInterval)
	}
}
