package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"blindjudge/backend/internal/ai"
	"blindjudge/backend/internal/api/handler"
	"blindjudge/backend/internal/chat"
	"blindjudge/backend/internal/config"
	"blindjudge/backend/internal/models"
	"blindjudge/backend/internal/notify"
	"blindjudge/backend/internal/realtime"
	"blindjudge/backend/internal/room"
	"blindjudge/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies(cfg *config.Config) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Room{},
		&models.Participant{},
		&models.Conclusion{},
		&models.ChatSession{},
		&models.SessionMessage{},
	)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Database and Redis connections established, migrations complete.")
	return db, rdb
}

func main() {
	log.Println("Starting BlindJudge Backend...")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	if cfg.GeminiAPIKey == "" {
		log.Fatal("GEMINI_API_KEY is not set")
	}

	db, rdb := setupDependencies(cfg)
	store := storage.NewService(db, rdb)

	gateway, err := ai.NewGeminiGateway(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		log.Fatalf("Failed to init AI gateway: %v", err)
	}

	var alerter room.Alerter = room.NopAlerter{}
	if cfg.TelegramToken != "" && cfg.TelegramAdminID != 0 {
		tg, err := notify.NewTelegramAlerter(cfg.TelegramToken, cfg.TelegramAdminID)
		if err != nil {
			log.Fatalf("Failed to init telegram alerter: %v", err)
		}
		alerter = tg
	}

	engine := room.NewEngine(store)
	orchestrator := room.NewOrchestrator(store, gateway, alerter)
	chatMgr := chat.NewManager(store, gateway)
	hub := realtime.NewHub(store)

	go hub.Run()

	r := gin.Default()
	h := handler.NewHandler(engine, orchestrator, chatMgr, hub, store, []byte(cfg.JWTSecret))

	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)

	authorized := r.Group("/")
	authorized.Use(h.JWTMiddleware())
	{
		authorized.GET("/me", h.Me)
		authorized.POST("/rooms", h.CreateRoom)
		authorized.GET("/rooms/:id", h.RoomStatus)
		authorized.POST("/rooms/:id/join", h.JoinRoom)
		authorized.POST("/rooms/:id/conclusion", h.SubmitConclusion)
		authorized.POST("/rooms/:id/compare", h.CompareRoom)
		authorized.POST("/rooms/:id/chat", h.SendChatTurn)
		authorized.GET("/rooms/:id/chat", h.ChatHistory)
		authorized.GET("/rooms/:id/ws", h.ServeRoomEvents)
	}

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   2 * time.Minute, // gateway calls run inside request handlers
		MaxHeaderBytes: 1 << 20,
	}

	log.Fatal(server.ListenAndServe())
}
