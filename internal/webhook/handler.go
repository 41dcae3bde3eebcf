package webhook

import (
	"log"
	"net/http"

	"whatsapp-deposit-bot/internal/bridge"
	"whatsapp-deposit-bot/internal/cache"
	"whatsapp-deposit-bot/internal/config"
	"whatsapp-deposit-bot/internal/database"

	"github.com/gin-gonic/gin"
)

// Inbound is where received messages go.
type Inbound interface {
	HandleInbound(from, body string)
}

type Handler struct {
	Config     *config.Config
	Dispatcher Inbound
	Bridge     *bridge.Client
	Dedup      cache.DedupCache
}

func NewHandler(cfg *config.Config, dispatcher Inbound, br *bridge.Client, dedup cache.DedupCache) *Handler {
	return &Handler{
		Config:     cfg,
		Dispatcher: dispatcher,
		Bridge:     br,
		Dedup:      dedup,
	}
}

func (h *Handler) VerifyWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode != "" && token != "" {
		if mode == "subscribe" && token == h.Config.VerifyToken {
			log.Println("Webhook verified successfully!")
			c.String(http.StatusOK, challenge)
		} else {
			c.Status(http.StatusForbidden)
		}
	} else {
		c.Status(http.StatusBadRequest)
	}
}

type event struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	From string `json:"from"`
	Body string `json:"body"`
	Code string `json:"code"`
}

// HandleEvent receives bridge events: inbound messages and pairing-code
// updates.
func (h *Handler) HandleEvent(c *gin.Context) {
	var ev event
	if err := c.ShouldBindJSON(&ev); err != nil {
		log.Printf("Error binding JSON: %v", err)
		c.Status(http.StatusBadRequest)
		return
	}

	switch ev.Type {
	case "pairing":
		h.Bridge.SetPairingCode(ev.Code)
		log.Printf("Pairing code updated")

	case "message":
		if ev.From == "" {
			c.Status(http.StatusBadRequest)
			return
		}
		if ev.ID != "" && h.Dedup != nil {
			seen, err := h.Dedup.Seen(c.Request.Context(), ev.ID)
			if err != nil {
				log.Printf("Dedup check failed for %s: %v", ev.ID, err)
			} else if seen {
				log.Printf("Dropping redelivered message %s", ev.ID)
				c.Status(http.StatusOK)
				return
			}
		}
		database.LogMessage(ev.From, "in", ev.Body, "received")
		h.Dispatcher.HandleInbound(ev.From, ev.Body)

	default:
		log.Printf("Ignoring webhook event type %q", ev.Type)
	}

	c.Status(http.StatusOK)
}
