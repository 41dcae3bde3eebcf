package templates

import (
	"strconv"
	"strings"
	"sync"
)

// Key identifies a configurable message template.
type Key string

const (
	KeyWelcome          Key = "welcome"
	KeyDepositChosen    Key = "deposit_chosen"
	KeyPaymentInitiated Key = "payment_initiated"
	KeyCountdown        Key = "countdown"
	KeyPaymentSuccess   Key = "payment_success"
	KeyPaymentFooter    Key = "payment_footer"
	KeyAdminLabel       Key = "admin_label"
)

// Placeholders recognized by Render. Anything else in braces passes through
// untouched.
var placeholders = []string{"amount", "deposit", "code", "time", "name", "footer"}

// Render substitutes every recognized placeholder present in tmpl with the
// matching value from fields. Recognized placeholders missing from fields
// become the empty string.
func Render(tmpl string, fields map[string]string) string {
	out := tmpl
	for _, p := range placeholders {
		token := "{" + p + "}"
		if !strings.Contains(out, token) {
			continue
		}
		out = strings.ReplaceAll(out, token, fields[p])
	}
	return out
}

// Set holds the current template texts plus the payment channel identifier.
// It is mutated only by the admin flow and read by both session machines and
// the payment client.
type Set struct {
	mu        sync.RWMutex
	values    map[Key]string
	channelID int
}

func NewSet(channelID int) *Set {
	return &Set{
		channelID: channelID,
		values: map[Key]string{
			KeyWelcome:          "Welcome to {name}! Enter the amount you would like to deposit (KES).",
			KeyDepositChosen:    "Depositing KES {amount}. Now enter the M-Pesa number to charge (e.g. 0712345678).",
			KeyPaymentInitiated: "An M-Pesa prompt for KES {amount} has been sent to {deposit}. Enter your PIN to approve it.",
			KeyCountdown:        "Hang tight, we are confirming your payment...",
			KeyPaymentSuccess:   "Deposit received! KES {amount} from {deposit}. M-Pesa ref: {code} at {time}.\n{footer}",
			KeyPaymentFooter:    "Thank you for depositing with us.",
			KeyAdminLabel:       "Deposit Desk",
		},
	}
}

func (s *Set) Get(key Key) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key]
}

func (s *Set) Put(key Key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *Set) ChannelID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.channelID
}

func (s *Set) SetChannelID(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelID = id
}

// Render renders the template stored under key. The payment-success template
// always carries the current footer value; callers cannot supply their own.
func (s *Set) Render(key Key, fields map[string]string) string {
	if fields == nil {
		fields = map[string]string{}
	}
	if _, ok := fields["name"]; !ok {
		fields["name"] = s.Get(KeyAdminLabel)
	}
	if key == KeyPaymentSuccess {
		fields["footer"] = s.Get(KeyPaymentFooter)
	}
	return Render(s.Get(key), fields)
}

// EditableKeys lists the template-configuration submenu entries in menu order.
// The channel identifier is last and edits as an integer.
func EditableKeys() []Key {
	return []Key{
		KeyWelcome, KeyDepositChosen, KeyPaymentInitiated, KeyCountdown,
		KeyPaymentSuccess, KeyPaymentFooter, KeyAdminLabel,
	}
}

// FormatChannelID renders the channel identifier for display.
func (s *Set) FormatChannelID() string {
	return strconv.Itoa(s.ChannelID())
}
