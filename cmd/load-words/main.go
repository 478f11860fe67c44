package main

import (
	"flag"

	"da-vinci/internal/config"
	"da-vinci/internal/db"
	"da-vinci/internal/logger"

	"github.com/rs/zerolog/log"
)

func main() {
	filePath := flag.String("file", "words.csv", "path to a theme,word csv")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Warn().Err(err).Msg("failed to load .env")
	}
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	conn, err := db.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	if err := db.Migrate(conn); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}

	loaded, err := db.LoadWordLibrary(conn, *filePath)
	if err != nil {
		log.Fatal().Err(err).Int("loaded", loaded).Msg("failed to load words")
	}
	log.Info().Int("loaded", loaded).Str("file", *filePath).Msg("word library loaded")
}
