package main

import (
	"log"

	httpapi "github.com/needahmed/pokemon-pvp-game/internal/api/http"
	"github.com/needahmed/pokemon-pvp-game/internal/api/ws"
	"github.com/needahmed/pokemon-pvp-game/internal/catalog"
	"github.com/needahmed/pokemon-pvp-game/internal/config"
	"github.com/needahmed/pokemon-pvp-game/internal/room"
	"github.com/needahmed/pokemon-pvp-game/internal/store"
)

func main() {
	cfg := config.Load()

	registry := room.NewRegistry()
	records := store.NewFileRecords(cfg.RecordsFile)
	mgr := room.NewManager(registry, cfg, records)
	hub := ws.NewHub(mgr)
	cat := catalog.New(cfg.PokeAPIBaseURL)

	r := httpapi.SetupRouter(mgr, cat, hub, cfg)

	log.Printf("listening on %s", cfg.HTTPAddr)
	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatal(err)
	}
}
