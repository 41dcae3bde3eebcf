package api

import (
	"log"
	"net/http"

	"whatsapp-deposit-bot/internal/bridge"
	"whatsapp-deposit-bot/internal/database"
	"whatsapp-deposit-bot/internal/ledger"
	"whatsapp-deposit-bot/internal/models"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	Bridge *bridge.Client
	Book   *ledger.Ledger
}

func NewDashboardHandler(br *bridge.Client, book *ledger.Ledger) *DashboardHandler {
	return &DashboardHandler{Bridge: br, Book: book}
}

// GetPairingCode returns the current WhatsApp pairing code, empty once paired.
func (h *DashboardHandler) GetPairingCode(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pairing_code": h.Bridge.PairingCode()})
}

// GetTransactions returns the deposit ledger, most recent first.
func (h *DashboardHandler) GetTransactions(c *gin.Context) {
	c.JSON(http.StatusOK, h.Book.Snapshot())
}

// Restart asks the bridge to re-initialize its WhatsApp session.
func (h *DashboardHandler) Restart(c *gin.Context) {
	if err := h.Bridge.Restart(); err != nil {
		log.Printf("Bridge restart failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to restart: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Restart requested"})
}

// GetMessages returns the stored message history, newest first.
func (h *DashboardHandler) GetMessages(c *gin.Context) {
	var messages []models.Message
	if err := database.DB.Order("created_at DESC").Find(&messages).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, messages)
}
