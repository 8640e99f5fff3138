// Command token issues an access token for an existing subscriber, for local
// development and operator use. Sessions are otherwise issued by the web app.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/quillpad/quillpad/internal/auth"
	"github.com/quillpad/quillpad/internal/config"
)

func main() {
	subscriber := flag.String("subscriber", "", "subscriber id (uuid)")
	email := flag.String("email", "", "subscriber email")
	flag.Parse()

	id, err := uuid.Parse(*subscriber)
	if err != nil {
		slog.Error("invalid -subscriber", "error", err)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	token, err := auth.NewJWTManager(cfg.JWT.AccessSecret, cfg.JWT.AccessExpiry).IssueAccessToken(id.String(), *email)
	if err != nil {
		slog.Error("issuing token", "error", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
