package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"blindjudge/backend/internal/ai"
	"blindjudge/backend/internal/config"
	"blindjudge/backend/internal/room"
	"blindjudge/backend/internal/storage"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	store := storage.NewService(db, rdb)

	if len(os.Args) < 2 {
		fmt.Println("Usage: admin <command> [args]")
		fmt.Println("Commands: room <room_id> | compare <room_id>")
		os.Exit(1)
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "room":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin room <room_id>")
			os.Exit(1)
		}
		if err := inspectRoom(ctx, store, os.Args[2]); err != nil {
			log.Fatalf("Error inspecting room: %v", err)
		}
	case "compare":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin compare <room_id>")
			os.Exit(1)
		}
		if cfg.GeminiAPIKey == "" {
			log.Fatal("GEMINI_API_KEY is not set")
		}
		gateway, err := ai.NewGeminiGateway(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Fatalf("Failed to init AI gateway: %v", err)
		}
		orch := room.NewOrchestrator(store, gateway, nil)
		verdict, err := orch.CompareRoom(ctx, os.Args[2])
		if err != nil {
			log.Fatalf("Comparison failed: %v", err)
		}
		fmt.Println("Verdict stored:")
		fmt.Println(verdict)
	default:
		fmt.Println("Unknown command")
		os.Exit(1)
	}
}

// inspectRoom prints the persisted state of a room, including what the
// status projection keeps private.
func inspectRoom(ctx context.Context, store *storage.Service, roomID string) error {
	r, err := store.GetRoomByID(ctx, roomID)
	if err != nil {
		return err
	}

	fmt.Printf("Room %s\n", r.RoomID)
	fmt.Printf("  Question:  %s\n", r.Question)
	fmt.Printf("  Status:    %s\n", r.Status)
	fmt.Printf("  Creator:   %s\n", r.CreatorID)
	fmt.Printf("  Created:   %s\n", r.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  Participants (%d):\n", len(r.Participants))
	for _, p := range r.Participants {
		fmt.Printf("    %s (%s) submitted=%v joined=%s\n",
			p.DisplayName, p.UserID, p.Submitted, p.JoinedAt.Format("15:04:05"))
	}
	fmt.Printf("  Conclusions (%d):\n", len(r.Conclusions))
	for _, c := range r.Conclusions {
		fmt.Printf("    by %s at %s: %.80s\n", c.UserID, c.CreatedAt.Format("15:04:05"), c.Content)
	}
	if r.Verdict != "" {
		fmt.Printf("  Verdict:\n%s\n", r.Verdict)
	}
	return nil
}
