package main

import (
	"context"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tk22kalal/chatbot/internal/api/handler"
	"github.com/tk22kalal/chatbot/internal/config"
	"github.com/tk22kalal/chatbot/internal/engine"
	"github.com/tk22kalal/chatbot/internal/gupshup"
	"github.com/tk22kalal/chatbot/internal/hub"
	"github.com/tk22kalal/chatbot/internal/storage"
	"github.com/tk22kalal/chatbot/internal/telegram"
)

func setupDependencies(cfg *config.Config) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	return db, rdb
}

func main() {
	log.Println("Starting Anonymous Chat Bot...")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}
	cfg := config.Load()
	if cfg.BotToken == "" {
		log.Fatal("TG_BOT_TOKEN is not set!")
	}
	if cfg.DatabaseDSN == "" {
		log.Fatal("DATABASE_DSN is not set!")
	}

	db, rdb := setupDependencies(cfg)
	store := storage.NewService(db, rdb)
	if err := store.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database and Redis connections established, migrations complete.")

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatalf("Failed to authorize Telegram bot: %v", err)
	}
	log.Printf("✅ Authorized on account %s", bot.Self.UserName)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	eng := engine.New(store, rng)
	eng.RecoverQueue()

	sender := telegram.NewSender(bot)
	channelLog := telegram.NewChannelLogger(bot, cfg.ChannelID)
	auditRng := rand.New(rand.NewSource(time.Now().UnixNano() + 1))
	relay := engine.NewRelay(store, eng, sender, channelLog, auditRng, cfg.AuditSampleRate)

	botService, err := telegram.NewBotService(cfg, store, eng, relay, channelLog, bot)
	if err != nil {
		log.Fatalf("Failed to start bot service: %v", err)
	}
	go botService.Run()

	presence := hub.New()
	groupChat := gupshup.NewService(presence, store, cfg.RoomRetention, cfg.HistoryLimit)

	r := gin.Default()
	h := handler.NewHandler(groupChat, store, cfg.JWTSecret)
	r.GET("/auth", h.GetToken)
	r.GET("/ws", h.ServeWebSocket)
	r.GET("/api/user", h.GetUser)
	r.POST("/api/user/update", h.UpdateUserProfile)

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	log.Printf("✅ Web server listening on port %s", cfg.Port)
	log.Fatal(server.ListenAndServe())
}
