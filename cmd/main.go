package main

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/hemalab/hemassist/internal/config"
	"github.com/hemalab/hemassist/internal/handlers"
	"github.com/hemalab/hemassist/internal/services"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err == nil {
		log.Info().Msg("Loaded environment from .env")
	}
	configureLogging()

	svcs, err := services.InitializeServices()
	if err != nil {
		log.Fatal().Err(err).Msg("Service initialization failed")
	}

	router := setupRouter(svcs)

	addr := ":" + config.GetEnvOrDefault("PORT", "8080")
	log.Info().Str("addr", addr).Msg("Server starting")
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatal().Err(err).Msg("ListenAndServe error")
	}
}

func setupRouter(svcs *services.Services) *mux.Router {
	r := mux.NewRouter()
	handlers.RegisterRoutes(r, svcs)
	return r
}

func configureLogging() {
	level, err := zerolog.ParseLevel(strings.ToLower(config.GetEnvOrDefault("LOG_LEVEL", "info")))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
