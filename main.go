package main

import (
	"net/http"

	"github.com/joho/godotenv"

	"aushadhi/m/internal/api"
	"aushadhi/m/internal/config"
	"aushadhi/m/internal/database"
	"aushadhi/m/internal/migrations"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := config.NewLogger(cfg.LogLevel)

	db, err := database.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		log.WithError(err).Fatal("migrations failed")
	}

	handler := api.New(db, cfg, log)

	log.WithField("port", cfg.HTTPPort).Info("Aushadhi server starting")
	if err := http.ListenAndServe(":"+cfg.HTTPPort, handler.Router()); err != nil {
		log.WithError(err).Fatal("server error")
	}
}
