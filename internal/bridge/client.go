package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"whatsapp-deposit-bot/internal/config"
)

// Client talks to the whatsapp-web.js sidecar that owns the actual WhatsApp
// session. The sidecar delivers inbound messages and pairing-code updates to
// our webhook; we push outbound sends and restart requests to it.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client

	mu          sync.RWMutex
	pairingCode string
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type sendRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// SendMessage delivers one text message to a correspondent. Reports per-send
// failure; the caller decides what to do with it.
func (c *Client) SendMessage(to, body string) error {
	return c.post("/send", sendRequest{To: to, Message: body})
}

// Restart asks the sidecar to tear down and re-initialize its WhatsApp
// session.
func (c *Client) Restart() error {
	return c.post("/restart", nil)
}

// SetPairingCode stores the latest pairing code reported by the sidecar.
func (c *Client) SetPairingCode(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pairingCode = code
}

// PairingCode returns the most recent pairing code, empty if already paired.
func (c *Client) PairingCode() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pairingCode
}

func (c *Client) post(path string, payload interface{}) error {
	var bodyReader io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(http.MethodPost, c.cfg.BridgeURL+path, bodyReader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.BridgeToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.BridgeToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("bridge %s failed: %s - %s", path, resp.Status, string(body))
	}
	return nil
}
