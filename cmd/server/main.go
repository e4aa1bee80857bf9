package main

import (
	"net/http"
	"os"

	"github.com/apex/log"
	"github.com/apex/log/handlers/json"
	"github.com/apex/log/handlers/text"

	"github.com/lojf/garage/internal/auth"
	"github.com/lojf/garage/internal/cache"
	"github.com/lojf/garage/internal/config"
	"github.com/lojf/garage/internal/db"
	"github.com/lojf/garage/internal/queries"
	"github.com/lojf/garage/internal/services"
	"github.com/lojf/garage/internal/web"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg)
	if cfg.InsecureSecret() {
		log.Warn("JWT_SECRET is not set; signing sessions with the built-in dev secret")
	}

	// Init DB (creates garage.db in working dir unless DB_PATH says otherwise)
	if err := db.Init(cfg.DSN()); err != nil {
		log.WithError(err).Fatal("db init")
	}
	gdb := db.Conn()

	q := queries.New(
		services.NewAttendanceService(gdb, cfg.Location()),
		services.NewLocationService(gdb),
		cache.New(),
	)
	a := auth.NewService(gdb, cfg.JWTSecret, cfg.SessionTTL, cfg.PublicURL)

	r := web.Router(web.Deps{
		DB:         gdb,
		Auth:       a,
		Queries:    q,
		PublicURL:  cfg.PublicURL,
		SignInRate: cfg.SignInRate,
	})

	log.WithFields(log.Fields{"addr": cfg.Addr, "tz": cfg.Timezone}).Info("garage attendance listening")
	if err := http.ListenAndServe(cfg.Addr, r); err != nil {
		log.WithError(err).Fatal("serve")
	}
}

func setupLogging(cfg *config.Config) {
	if cfg.LogFormat == "json" {
		log.SetHandler(json.New(os.Stderr))
	} else {
		log.SetHandler(text.New(os.Stderr))
	}
	lvl, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}
