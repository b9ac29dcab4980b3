package main

// Issue a bearer token for local testing:
//   go run ./cmd/devtoken -user user-1 -ttl 2h

import (
	"flag"
	"fmt"
	"os"

	"budget-backend/internal/shared/auth"
	"budget-backend/internal/shared/config"
)

func main() {
	userID := flag.String("user", "", "user id placed in the token subject")
	ttl := flag.Duration("ttl", auth.DefaultTTL, "token lifetime")
	flag.Parse()

	cfg := config.Load()
	if cfg.Env == "production" {
		fmt.Fprintln(os.Stderr, "devtoken refuses to run with ENV=production")
		os.Exit(1)
	}
	token, err := auth.Sign([]byte(cfg.JWTSecret), *userID, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
