package ledger

import (
	"log"
	"sync"
	"time"
)

const (
	StatusPending         = "Pending"
	StatusSuccess         = "Success"
	StatusErrorInitiating = "Error Initiating"
	StatusErrorFetching   = "Error Fetching"
)

// StatusFailed builds the terminal status for a rejected payment.
func StatusFailed(reason string) string {
	return "Failed: " + reason
}

// Entry is one deposit attempt. Only Status changes after Record.
type Entry struct {
	Amount int    `json:"amount"`
	From   string `json:"from"`
	Time   string `json:"time"`
	Status string `json:"status"`
}

// Handle points at exactly one recorded entry so its status can be updated
// later without re-searching the ledger.
type Handle struct {
	entry *Entry
}

// Ledger is an in-memory, most-recent-first log of deposit attempts. Entries
// are never removed.
type Ledger struct {
	mu      sync.RWMutex
	entries []*Entry
	loc     *time.Location
}

func New() *Ledger {
	loc, err := time.LoadLocation("Africa/Nairobi")
	if err != nil {
		loc = time.FixedZone("EAT", 3*60*60)
	}
	return &Ledger{loc: loc}
}

// Record prepends a Pending entry for the attempt and returns its handle.
func (l *Ledger) Record(amount int, from string) *Handle {
	e := &Entry{
		Amount: amount,
		From:   from,
		Time:   l.Now(),
		Status: StatusPending,
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append([]*Entry{e}, l.entries...)
	return &Handle{entry: e}
}

// UpdateStatus sets the status of the entry behind h. A nil or empty handle is
// logged and ignored.
func (l *Ledger) UpdateStatus(h *Handle, status string) {
	if h == nil || h.entry == nil {
		log.Printf("ledger: dropping status update %q for stale handle", status)
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	h.entry.Status = status
}

// Snapshot returns a copy of the ledger, most recent first. Safe to call
// concurrently with writers.
func (l *Ledger) Snapshot() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	for i, e := range l.entries {
		out[i] = *e
	}
	return out
}

// Now renders the current time in the ledger's fixed time zone.
func (l *Ledger) Now() string {
	return time.Now().In(l.loc).Format("02 Jan 2006 15:04:05")
}
