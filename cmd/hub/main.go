package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"welfare-chat/internal/chat"
	"welfare-chat/internal/config"
	"welfare-chat/internal/db"
	"welfare-chat/internal/middleware"
	"welfare-chat/internal/relay"
	"welfare-chat/internal/repository"
	"welfare-chat/internal/tasks"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
)

func archiveHandler(repo repository.ArchiveRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 || n > 500 {
				http.Error(w, "limit must be between 1 and 500", http.StatusBadRequest)
				return
			}
			limit = n
		}

		rows, err := repo.Recent(r.Context(), limit)
		if err != nil {
			http.Error(w, "archive unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rows)
	}
}

func main() {
	cfg, err := config.LoadHub()
	if err != nil {
		log.Fatalf("[CONFIG] %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := chat.Options{
		Room:            cfg.Room,
		RejectMalformed: cfg.RejectMalformed,
	}

	var archive *repository.PostgresArchiveRepo
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal("Failed to connect to database:", err)
		}
		defer pool.Close()

		archive = repository.NewArchiveRepo(pool, cfg.Room)
		opts.Archiver = archive

		pruner := tasks.NewArchivePruner(archive, cfg.ArchiveRetentionDays)
		if err := pruner.Start(tasks.DefaultSchedule); err != nil {
			log.Fatal("Failed to schedule archive pruning:", err)
		}
		defer pruner.Stop()
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("❌ Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		log.Println("✅ Connected to Redis")
		opts.Relay = relay.NewRedis(redisClient, cfg.RedisChannel)
	}

	h := chat.NewHub(opts)
	go h.Run()

	if opts.Relay != nil {
		go func() {
			if err := h.ConsumeRelay(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("[RELAY] Consumer stopped: %v", err)
			}
		}()
	}

	newLimiter := func() *middleware.RateLimiter {
		return middleware.NewRatelimiter(cfg.RateBurst, cfg.RateInterval)
	}

	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	r.Get("/ws", chat.ServeWS(h, newLimiter))
	r.Get("/health", chat.HealthHandler(h))
	r.Get("/api/messages", chat.MessagesHandler(h))
	if archive != nil {
		r.Get("/api/archive", archiveHandler(archive))
	}

	srv := &http.Server{
		Addr:    net.JoinHostPort(cfg.Host, cfg.Port),
		Handler: r,
	}

	go func() {
		log.Printf("🚀 Hub for room %q starting on %s", h.Room(), srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-ctx.Done()

	log.Println("Shutdown signal received. Cleaning up...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}

	h.Stop()
	log.Println("Graceful shutdown complete. Goodnight!")
}
