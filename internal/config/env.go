package config

import (
	"os"
	"strings"
	"time"
)

type Env struct {
	AppAddr      string
	GinMode      string
	DBDSN        string
	JWTSecret    string
	SyncInterval time.Duration
}

func LoadEnv() Env {
	appAddr := strings.TrimSpace(os.Getenv("APP_ADDR"))
	if appAddr == "" {
		appAddr = ":8080"
	}

	ginMode := strings.TrimSpace(os.Getenv("GIN_MODE"))

	dsn := strings.TrimSpace(os.Getenv("DB_DSN"))
	if dsn == "" {
		dsn = "root:@tcp(127.0.0.1:3306)/train_app?parseTime=true&loc=Local&charset=utf8mb4&timeout=5s&readTimeout=30s&writeTimeout=30s"
	}

	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if secret == "" {
		secret = "super-secret-key-change-me"
	}

	interval := 5 * time.Minute
	if raw := strings.TrimSpace(os.Getenv("SYNC_INTERVAL")); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			interval = d
		}
	}

	return Env{
		AppAddr:      appAddr,
		GinMode:      ginMode,
		DBDSN:        dsn,
		JWTSecret:    secret,
		SyncInterval: interval,
	}
}
