package main

import (
	"log"

	"portfolio-mapper-backend/internal/config"
	"portfolio-mapper-backend/internal/shared/server"
)

func main() {
	cfg := config.Load()

	r, err := server.NewRouter(cfg)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
