// Command add_user creates a dashboard account, since there is no sign-up page.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/apex/log"

	"github.com/lojf/garage/internal/auth"
	"github.com/lojf/garage/internal/config"
	"github.com/lojf/garage/internal/db"
)

func main() {
	email := flag.String("email", "", "account email")
	password := flag.String("password", "", "account password (min 8 characters)")
	flag.Parse()

	if *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: add_user -email you@example.com -password secret123")
		os.Exit(2)
	}

	cfg := config.Load()
	if err := db.Init(cfg.DSN()); err != nil {
		log.WithError(err).Fatal("db init")
	}

	a := auth.NewService(db.Conn(), cfg.JWTSecret, cfg.SessionTTL, cfg.PublicURL)
	u, err := a.CreateUser(context.Background(), *email, *password)
	if err != nil {
		log.WithError(err).Fatal("create user")
	}
	log.WithFields(log.Fields{"id": u.ID, "email": u.Email}).Info("user created")
}
