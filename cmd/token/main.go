// Command token issues a bearer token for local development. It signs with
// the same JWT_SECRET, JWT_ISSUER and TOKEN_TTL the server verifies with.
//
//	go run ./cmd/token -user alice
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/Shivanand-hulikatti/event-reg-coordinator/internal/auth"
	"github.com/Shivanand-hulikatti/event-reg-coordinator/internal/config"
)

func main() {
	user := flag.String("user", "", "caller id to put in the token subject")
	flag.Parse()

	if *user == "" {
		log.Fatal("-user is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	gk, err := auth.NewGatekeeper(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	if err != nil {
		log.Fatalf("auth: %v", err)
	}
	token, err := gk.Issue(*user)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	fmt.Println(token)
}
