package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/squares/internal/board"
	"github.com/robalobadob/squares/internal/httpserver"
	"github.com/robalobadob/squares/internal/store"
)

// memoryDSN selects the non-durable in-memory store.
const memoryDSN = ":memory:"

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	st, closeStore := openStore(getEnv("DB_PATH", "./data/squares.db"))
	defer closeStore()

	svc := board.NewService(st, board.Teams{
		X: getEnv("TEAM_X", "Away"),
		Y: getEnv("TEAM_Y", "Home"),
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := svc.EnsureInitialized(ctx); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("failed to initialize board")
	}
	cancel()

	opts := httpserver.Options{
		AdminKey:        os.Getenv("ADMIN_KEY"),
		AdminKeyHash:    os.Getenv("ADMIN_KEY_HASH"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		SessionTTL:      time.Duration(envInt("ADMIN_SESSION_HOURS", 12)) * time.Hour,
		ClientOrigin:    getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		ClaimRatePerMin: envInt("CLAIM_RATE_PER_MIN", 30),
		ClaimBurst:      envInt("CLAIM_RATE_BURST", 10),
		SecureCookies:   os.Getenv("NODE_ENV") == "production",
	}
	if opts.AdminKey == "" && opts.AdminKeyHash == "" {
		log.Warn().Msg("ADMIN_KEY is not configured; axis generation is disabled")
	}

	srv := httpserver.New(svc, opts)
	port := getEnv("PORT", "8788")
	log.Info().Str("port", port).Msg("starting squares server")
	if err := srv.Start(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

// openStore returns the board store for dsn and a func that releases it.
func openStore(dsn string) (store.Store, func()) {
	if dsn == memoryDSN {
		log.Warn().Msg("using in-memory store; the board is lost on restart")
		return store.NewMemoryStore(), func() {}
	}
	db, err := openDB(dsn)
	if err != nil {
		log.Fatal().Err(err).Str("path", dsn).Msg("failed to open database")
	}
	log.Info().Str("path", dsn).Msg("database opened")
	return store.NewSQLite(db), func() { _ = db.Close() }
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
