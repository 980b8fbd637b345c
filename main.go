package main

import (
	"log"
	"net/http"

	"github.com/redis/go-redis/v9"

	"canvasroom/server/internal/canvasstore"
	"canvasroom/server/internal/config"
	"canvasroom/server/internal/dispatcher"
	"canvasroom/server/internal/httpapi"
	"canvasroom/server/internal/invite"
	"canvasroom/server/internal/persistence"
	"canvasroom/server/internal/roommanager"
)

func main() {
	cfg := config.Load()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	pgStore, err := persistence.Open(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("failed to open postgres store: %v", err)
	}
	var roomStore roommanager.Store
	if pgStore != nil {
		roomStore = pgStore
		log.Println("📦 Postgres persistence enabled")
	} else {
		log.Println("📦 Postgres persistence disabled (POSTGRES_DSN unset)")
	}

	canvasStore, err := canvasstore.Open(cfg.S3Region, cfg.S3Bucket)
	if err != nil {
		log.Fatalf("failed to configure S3 canvas store: %v", err)
	}
	if canvasStore != nil {
		log.Println("🗄️  S3 canvas archival enabled")
	} else {
		log.Println("🗄️  S3 canvas archival disabled (S3_BUCKET unset)")
	}

	managerCfg := roommanager.Config{
		MaxUsersPerRoom: cfg.MaxUsersPerRoom,
		MaxOperations:   cfg.MaxOperations,
		EmptyRoomGrace:  cfg.EmptyRoomGrace,
		EmptyRoomReap:   cfg.EmptyRoomReap,
		IdleRoomReap:    cfg.IdleRoomReap,
		ReaperInterval:  cfg.ReaperInterval,
	}
	manager := roommanager.New(managerCfg, roomStore)
	manager.StartReaper()
	defer manager.Stop()

	inviteService := invite.New(redisClient)

	api := &httpapi.API{
		Manager: manager,
		Invites: inviteService,
		Canvas:  canvasStore,
	}

	mux := http.NewServeMux()
	api.RegisterRoutes(mux)
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		dispatcher.ServeWs(manager, inviteService, w, r)
	})

	addr := ":" + cfg.Port
	log.Printf("🎨 Canvas collaboration server listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, mux))
}
