package bot

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"whatsapp-deposit-bot/internal/config"
	"whatsapp-deposit-bot/internal/directory"
	"whatsapp-deposit-bot/internal/ledger"
	"whatsapp-deposit-bot/internal/payhero"
	"whatsapp-deposit-bot/internal/templates"
)

const (
	testSuperOp = "254700000001@c.us"
	testUser    = "254712000000@c.us"
)

type sentMsg struct {
	to   string
	body string
}

type fakeSender struct {
	mu   sync.Mutex
	msgs []sentMsg
	fail map[string]bool
}

func (f *fakeSender) SendMessage(to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, sentMsg{to: to, body: body})
	if f.fail[to] {
		return errors.New("send failed")
	}
	return nil
}

func (f *fakeSender) sent() []sentMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMsg, len(f.msgs))
	copy(out, f.msgs)
	return out
}

func (f *fakeSender) lastTo(to string) string {
	var last string
	for _, m := range f.sent() {
		if m.to == to {
			last = m.body
		}
	}
	return last
}

func (f *fakeSender) countTo(to string) int {
	n := 0
	for _, m := range f.sent() {
		if m.to == to {
			n++
		}
	}
	return n
}

func (f *fakeSender) received(to, substr string) bool {
	return f.countContaining(to, substr) > 0
}

func (f *fakeSender) countContaining(to, substr string) int {
	n := 0
	for _, m := range f.sent() {
		if m.to == to && strings.Contains(m.body, substr) {
			n++
		}
	}
	return n
}

type fakeGateway struct {
	mu sync.Mutex

	reference   string
	initiateErr error
	status      *payhero.StatusResponse
	statusErr   error

	initiateCalls int
	statusCalls   int
	gotAmount     int
	gotDeposit    string
	gotChannelID  int
}

func (g *fakeGateway) Initiate(amount int, depositNumber string, channelID int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.initiateCalls++
	g.gotAmount = amount
	g.gotDeposit = depositNumber
	g.gotChannelID = channelID
	if g.initiateErr != nil {
		return "", g.initiateErr
	}
	return g.reference, nil
}

func (g *fakeGateway) QueryStatus(string) (*payhero.StatusResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statusCalls++
	if g.statusErr != nil {
		return nil, g.statusErr
	}
	return g.status, nil
}

func (g *fakeGateway) calls() (initiate, status int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.initiateCalls, g.statusCalls
}

type fixture struct {
	d      *Dispatcher
	sender *fakeSender
	gw     *fakeGateway
	store  *directory.Store
	tset   *templates.Set
	book   *ledger.Ledger
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithDelays(t, 5*time.Millisecond, 20*time.Millisecond)
}

func newFixtureWithDelays(t *testing.T, reminder, resolution time.Duration) *fixture {
	t.Helper()

	cfg := &config.Config{
		ReminderDelay:   reminder,
		ResolutionDelay: resolution,
	}
	sender := &fakeSender{fail: map[string]bool{}}
	gw := &fakeGateway{reference: "R1", status: &payhero.StatusResponse{
		Status:            "SUCCESS",
		ProviderReference: "MPESA123",
		ResultDesc:        "The service request is processed successfully.",
	}}
	store := directory.NewStore(testSuperOp)
	tset := templates.NewSet(911)
	book := ledger.New()

	d := NewDispatcher(cfg, sender, gw, store, tset, book)
	d.Start()
	t.Cleanup(d.Stop)

	return &fixture{d: d, sender: sender, gw: gw, store: store, tset: tset, book: book}
}

// flush waits until every task queued so far has run.
func (f *fixture) flush() {
	done := make(chan struct{})
	f.d.Enqueue(func() { close(done) })
	<-done
}

// say delivers an inbound message and waits for its task to complete.
func (f *fixture) say(from, body string) {
	f.d.HandleInbound(from, body)
	f.flush()
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
