package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tk22kalal/chatbot/internal/config"
	"github.com/tk22kalal/chatbot/internal/storage"
	"github.com/tk22kalal/chatbot/internal/telegram"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  admin stats              Show user and session counters")
	fmt.Println("  admin getchat <token>    Print the transcript of a chat session")
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}
	cfg := config.Load()
	if cfg.DatabaseDSN == "" {
		log.Fatal("DATABASE_DSN is not set!")
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}
	store := storage.NewService(db, nil)

	switch os.Args[1] {
	case "stats":
		runStats(store)
	case "getchat":
		if len(os.Args) < 3 {
			usage()
		}
		runGetChat(store, os.Args[2])
	default:
		usage()
	}
}

func runStats(store *storage.Service) {
	users, err := store.CountUsers()
	if err != nil {
		log.Fatalf("Failed to count users: %v", err)
	}
	sessions, err := store.CountSessions()
	if err != nil {
		log.Fatalf("Failed to count sessions: %v", err)
	}
	active, err := store.CountActiveSessions()
	if err != nil {
		log.Fatalf("Failed to count active sessions: %v", err)
	}

	fmt.Printf("Users:           %d\n", users)
	fmt.Printf("Total chats:     %d\n", sessions)
	fmt.Printf("Active chats:    %d\n", active)
}

func runGetChat(store *storage.Service, token string) {
	token = strings.ToUpper(strings.TrimSpace(token))
	session, err := store.GetSessionByToken(token)
	if err != nil {
		log.Fatalf("Failed to load session: %v", err)
	}
	if session == nil {
		log.Fatalf("No chat found with token %s", token)
	}

	user1, err := store.GetUser(session.User1ID)
	if err != nil {
		log.Fatalf("Failed to load user %d: %v", session.User1ID, err)
	}
	user2, err := store.GetUser(session.User2ID)
	if err != nil {
		log.Fatalf("Failed to load user %d: %v", session.User2ID, err)
	}

	fmt.Print(telegram.FormatTranscript(session, user1, user2))
}
