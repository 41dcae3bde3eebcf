package database

import (
	"log"

	"whatsapp-deposit-bot/internal/config"
	"whatsapp-deposit-bot/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// InitDB opens the message history database. Sqlite by default, postgres when
// DB_DRIVER=postgres and a DSN is configured.
func InitDB(cfg *config.Config) {
	var (
		dialector gorm.Dialector
		err       error
	)

	switch cfg.DBDriver {
	case "postgres":
		dialector = postgres.Open(cfg.PostgresDSN)
	default:
		dialector = sqlite.Open(cfg.DBPath)
	}

	DB, err = gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := DB.AutoMigrate(&models.Message{}); err != nil {
		log.Fatalf("Failed to run auto-migration: %v", err)
	}

	log.Println("Database initialized successfully (messages)")
}

// LogMessage records one message for the dashboard history. Fire and forget;
// a failed write never blocks the flow that produced the message.
func LogMessage(chatID, direction, content, status string) {
	if DB == nil {
		return
	}
	msg := models.Message{
		ChatID:    chatID,
		Direction: direction,
		Content:   content,
		Status:    status,
	}
	if err := DB.Create(&msg).Error; err != nil {
		log.Printf("Error logging message for %s: %v", chatID, err)
	}
}
