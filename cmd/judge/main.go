// Command judge submits a PNG drawing to a running server as the current
// drawer, retrying transient failures the same way the game client does.
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"time"

	"da-vinci/internal/config"
	"da-vinci/internal/identity"
	"da-vinci/internal/judge"
	"da-vinci/internal/logger"

	"github.com/rs/zerolog/log"
)

func main() {
	baseURL := flag.String("server", "http://localhost:8080", "server base URL")
	roomID := flag.String("room", "", "room id")
	imagePath := flag.String("image", "", "path to a PNG drawing")
	token := flag.String("token", "", "bearer token; signed locally from JWT_SECRET when empty")
	uid := flag.String("uid", "", "player uid used when signing a token locally")
	email := flag.String("email", "", "player email used when signing a token locally")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Warn().Err(err).Msg("failed to load .env")
	}
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	if *roomID == "" || *imagePath == "" {
		log.Fatal().Msg("-room and -image are required")
	}
	raw, err := os.ReadFile(*imagePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read image")
	}

	bearer := *token
	if bearer == "" {
		if *uid == "" || cfg.JWTSecret == "" {
			log.Fatal().Msg("-token, or -uid with JWT_SECRET, is required")
		}
		bearer, err = identity.NewVerifier(cfg.JWTSecret, "").Issue(identity.Identity{
			UID:         *uid,
			DisplayName: *uid,
			Email:       *email,
		}, 10*time.Minute)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to sign token")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	endpoint := judge.NewHTTPEndpoint(*baseURL, func(context.Context) (string, error) {
		return bearer, nil
	})
	client := judge.NewClient(endpoint, nil)
	image := "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)
	result, err := client.Judge(ctx, *roomID, image)
	if err != nil {
		log.Fatal().Err(err).Bool("exhausted", judge.IsRetryError(err)).Msg("judgment failed")
	}
	_ = json.NewEncoder(os.Stdout).Encode(result)
}
