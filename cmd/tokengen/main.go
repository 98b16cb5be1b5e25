// Command tokengen mints a signed development token for calling the API.
//
//	go run ./cmd/tokengen -sub <user-uuid> -role organizer
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"eventsphere/config"
	"eventsphere/internal/adapters/auth"
	"eventsphere/internal/domain"
)

func main() {
	sub := flag.String("sub", "", "user id (token subject)")
	role := flag.String("role", string(domain.RoleParticipant), "participant, organizer or admin")
	email := flag.String("email", "", "email claim")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *sub == "" {
		fmt.Fprintln(os.Stderr, "tokengen: -sub is required")
		flag.Usage()
		os.Exit(2)
	}
	if !domain.Role(*role).Valid() {
		log.Fatalf("tokengen: unknown role %q", *role)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	token, err := auth.NewJWTIssuer(cfg.JWTSecret).Issue(*sub, *email, []string{*role}, *ttl)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	fmt.Println(token)
}
