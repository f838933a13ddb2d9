package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
		// debug | info | warn | error
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	Storage struct {
		// memory | postgres
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxOpenConns    int    `yaml:"max_open_conns"`
			MaxIdleConns    int    `yaml:"max_idle_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		// memory | redis
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	JWT struct {
		Secret    string `yaml:"secret"`
		Issuer    string `yaml:"issuer"`
		AccessTTL string `yaml:"access_ttl"`
	} `yaml:"jwt"`

	// Collab controla la capa de presencia/liveness.
	Collab struct {
		// StalenessThreshold: máximo gap entre last-activity y "ahora"
		// antes de evictar la sesión.
		StalenessThreshold time.Duration `yaml:"staleness_threshold"`
		// SweepInterval: período del tick del supervisor. Debe ser
		// como mucho StalenessThreshold/5 (se valida en Load).
		SweepInterval time.Duration `yaml:"sweep_interval"`
		// SendBuffer: tamaño de la cola de salida por conexión.
		SendBuffer int `yaml:"send_buffer"`
		// HistoryPageSize: tamaño de página del historial de commits.
		HistoryPageSize int `yaml:"history_page_size"`
		// GrantCacheTTL: TTL del cache in-process de grants del gate.
		GrantCacheTTL time.Duration `yaml:"grant_cache_ttl"`
	} `yaml:"collab"`

	Rate struct {
		Enabled bool `yaml:"enabled"`
		Login   struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"login"`
		Register struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"register"`
	} `yaml:"rate"`

	SMTP struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		From     string `yaml:"from"`
	} `yaml:"smtp"`

	Flags struct {
		Migrate bool `yaml:"migrate"`
	} `yaml:"flags"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	c.applyDefaults()
	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Default construye una configuración sin YAML (solo defaults + env).
func Default() (*Config, error) {
	var c Config
	c.applyDefaults()
	c.applyEnvOverrides()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Memory.DefaultTTL == "" {
		c.Cache.Memory.DefaultTTL = "2m"
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "collabsql"
	}
	if c.JWT.AccessTTL == "" {
		c.JWT.AccessTTL = "12h"
	}
	if c.Collab.StalenessThreshold == 0 {
		c.Collab.StalenessThreshold = 60 * time.Second
	}
	if c.Collab.SweepInterval == 0 {
		c.Collab.SweepInterval = c.Collab.StalenessThreshold / 6
	}
	if c.Collab.SendBuffer == 0 {
		c.Collab.SendBuffer = 64
	}
	if c.Collab.HistoryPageSize == 0 {
		c.Collab.HistoryPageSize = 50
	}
	if c.Collab.GrantCacheTTL == 0 {
		c.Collab.GrantCacheTTL = 30 * time.Second
	}
	if c.Rate.Login.Limit == 0 {
		c.Rate.Login.Limit = 10
	}
	if c.Rate.Login.Window == "" {
		c.Rate.Login.Window = "1m"
	}
	if c.Rate.Register.Limit == 0 {
		c.Rate.Register.Limit = 5
	}
	if c.Rate.Register.Window == "" {
		c.Rate.Register.Window = "10m"
	}
}

// Validate verifica los valores críticos de configuración.
func (c *Config) Validate() error {
	if c.Storage.Driver == "postgres" && strings.TrimSpace(c.Storage.DSN) == "" {
		return fmt.Errorf("storage.dsn requerido con driver postgres")
	}
	if c.Collab.SweepInterval <= 0 || c.Collab.StalenessThreshold <= 0 {
		return fmt.Errorf("collab: intervalos deben ser positivos")
	}
	// La latencia de eviction queda acotada solo si el tick corre bien
	// por debajo del threshold (relación mínima 1:5).
	if c.Collab.SweepInterval*5 > c.Collab.StalenessThreshold {
		return fmt.Errorf("collab: sweep_interval (%s) debe ser <= staleness_threshold/5 (%s)",
			c.Collab.SweepInterval, c.Collab.StalenessThreshold/5)
	}
	for _, w := range []string{c.Rate.Login.Window, c.Rate.Register.Window, c.JWT.AccessTTL, c.Cache.Memory.DefaultTTL} {
		if w != "" {
			if _, err := time.ParseDuration(w); err != nil {
				return err
			}
		}
	}
	return nil
}

// AccessTTL parsea JWT.AccessTTL (ya validado en Load).
func (c *Config) AccessTTL() time.Duration {
	d, _ := time.ParseDuration(c.JWT.AccessTTL)
	return d
}

// LoginWindow parsea la ventana del rate limit de login.
func (c *Config) LoginWindow() time.Duration {
	return parseDurOr(c.Rate.Login.Window, time.Minute)
}

// RegisterWindow parsea la ventana del rate limit de register.
func (c *Config) RegisterWindow() time.Duration {
	return parseDurOr(c.Rate.Register.Window, time.Minute)
}

// MemoryCacheTTL parsea el TTL por defecto del cache in-process.
func (c *Config) MemoryCacheTTL() time.Duration {
	return parseDurOr(c.Cache.Memory.DefaultTTL, 2*time.Minute)
}

// PGConnMaxLifetime parsea la vida máxima de conexión del pool.
func (c *Config) PGConnMaxLifetime() time.Duration {
	return parseDurOr(c.Storage.Postgres.ConnMaxLifetime, 30*time.Minute)
}

func parseDurOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}

func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// applyEnvOverrides pisa el YAML con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.App.LogLevel = strings.ToLower(v)
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvCSV("SERVER_CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_OPEN_CONNS"); ok {
		c.Storage.Postgres.MaxOpenConns = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_IDLE_CONNS"); ok {
		c.Storage.Postgres.MaxIdleConns = v
	}
	if v, ok := getEnvStr("POSTGRES_CONN_MAX_LIFETIME"); ok {
		c.Storage.Postgres.ConnMaxLifetime = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}

	// JWT
	if v, ok := getEnvStr("JWT_SECRET"); ok {
		c.JWT.Secret = v
	}
	if v, ok := getEnvStr("JWT_ISSUER"); ok {
		c.JWT.Issuer = v
	}
	if v, ok := getEnvStr("JWT_ACCESS_TTL"); ok {
		c.JWT.AccessTTL = v
	}

	// COLLAB
	if v, ok := getEnvDur("COLLAB_STALENESS_THRESHOLD"); ok {
		c.Collab.StalenessThreshold = v
	}
	if v, ok := getEnvDur("COLLAB_SWEEP_INTERVAL"); ok {
		c.Collab.SweepInterval = v
	}
	if v, ok := getEnvInt("COLLAB_SEND_BUFFER"); ok {
		c.Collab.SendBuffer = v
	}
	if v, ok := getEnvInt("COLLAB_HISTORY_PAGE_SIZE"); ok {
		c.Collab.HistoryPageSize = v
	}
	if v, ok := getEnvDur("COLLAB_GRANT_CACHE_TTL"); ok {
		c.Collab.GrantCacheTTL = v
	}

	// RATE
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvInt("RATE_LOGIN_LIMIT"); ok {
		c.Rate.Login.Limit = v
	}
	if v, ok := getEnvStr("RATE_LOGIN_WINDOW"); ok {
		c.Rate.Login.Window = v
	}
	if v, ok := getEnvInt("RATE_REGISTER_LIMIT"); ok {
		c.Rate.Register.Limit = v
	}
	if v, ok := getEnvStr("RATE_REGISTER_WINDOW"); ok {
		c.Rate.Register.Window = v
	}

	// SMTP
	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_USERNAME"); ok {
		c.SMTP.Username = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	}
	if v, ok := getEnvStr("SMTP_FROM"); ok {
		c.SMTP.From = v
	}

	// FLAGS
	if v, ok := getEnvBool("FLAGS_MIGRATE"); ok {
		c.Flags.Migrate = v
	}
}
