package payhero

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"whatsapp-deposit-bot/internal/config"
)

var (
	// ErrUnreachable covers transport and auth failures talking to the gateway.
	ErrUnreachable = errors.New("payment gateway unreachable")
	// ErrRejected covers responses the gateway answered but did not accept.
	ErrRejected = errors.New("payment gateway rejected request")
)

type Client struct {
	cfg        *config.Config
	httpClient *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type initiateRequest struct {
	Amount            int    `json:"amount"`
	PhoneNumber       string `json:"phone_number"`
	ChannelID         int    `json:"channel_id"`
	Provider          string `json:"provider"`
	ExternalReference string `json:"external_reference"`
	CustomerName      string `json:"customer_name"`
	CallbackURL       string `json:"callback_url"`
	AccountReference  string `json:"account_reference"`
	TransactionDesc   string `json:"transaction_desc"`
	Remarks           string `json:"remarks"`
	BusinessName      string `json:"business_name"`
	CompanyName       string `json:"companyName"`
}

type initiateResponse struct {
	Success   bool   `json:"success"`
	Reference string `json:"reference"`
}

// StatusResponse is the gateway's answer to a settlement status query.
type StatusResponse struct {
	Status            string `json:"status"`
	ProviderReference string `json:"provider_reference"`
	ResultDesc        string `json:"ResultDesc"`
}

// Succeeded normalizes the gateway status vocabulary: anything that is not a
// case-insensitive SUCCESS counts as not settled.
func (s StatusResponse) Succeeded() bool {
	return strings.EqualFold(s.Status, "SUCCESS")
}

// Initiate pushes an STK-style payment request for amount against the deposit
// number and returns the gateway's tracking reference. No retries.
func (c *Client) Initiate(amount int, depositNumber string, channelID int) (string, error) {
	payload := initiateRequest{
		Amount:            amount,
		PhoneNumber:       depositNumber,
		ChannelID:         channelID,
		Provider:          c.cfg.Provider,
		ExternalReference: fmt.Sprintf("INV-%d", time.Now().UnixMilli()),
		CustomerName:      depositNumber,
		CallbackURL:       c.cfg.CallbackURL,
		AccountReference:  c.cfg.AccountReference,
		TransactionDesc:   "Deposit",
		Remarks:           "Deposit",
		BusinessName:      c.cfg.BusinessName,
		CompanyName:       c.cfg.BusinessName,
	}

	body, err := c.sendRequest(http.MethodPost, c.cfg.GatewayURL+"/payments", payload)
	if err != nil {
		return "", err
	}

	var resp initiateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrRejected, err)
	}
	if !resp.Success || resp.Reference == "" {
		return "", fmt.Errorf("%w: response %q", ErrRejected, string(body))
	}
	return resp.Reference, nil
}

// QueryStatus fetches the settlement state for a previously returned
// reference. Issued exactly once per deposit; retries are not this client's
// concern.
func (c *Client) QueryStatus(reference string) (*StatusResponse, error) {
	endpoint := fmt.Sprintf("%s/transaction-status?reference=%s",
		c.cfg.GatewayURL, url.QueryEscape(reference))

	body, err := c.sendRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var resp StatusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrRejected, err)
	}
	return &resp, nil
}

func (c *Client) sendRequest(method, endpoint string, payload interface{}) ([]byte, error) {
	var bodyReader io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, endpoint, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+c.cfg.GatewayAuth)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: %s - %s", ErrRejected, resp.Status, string(body))
	}
	return body, nil
}
