package bot

import (
	"fmt"
	"log"
	"time"

	"whatsapp-deposit-bot/internal/config"
	"whatsapp-deposit-bot/internal/database"
	"whatsapp-deposit-bot/internal/directory"
	"whatsapp-deposit-bot/internal/ledger"
	"whatsapp-deposit-bot/internal/payhero"
	"whatsapp-deposit-bot/internal/templates"
)

// Sender delivers one outbound message and reports per-send failure.
type Sender interface {
	SendMessage(to, body string) error
}

// Gateway is the payment gateway surface the deposit flow needs.
type Gateway interface {
	Initiate(amount int, depositNumber string, channelID int) (string, error)
	QueryStatus(reference string) (*payhero.StatusResponse, error)
}

// Dispatcher routes inbound messages to the admin or deposit session machine
// and owns the event loop both machines run on. All session and store
// mutations happen on that single loop; gateway calls and timers run off-loop
// and post their continuations back onto it.
type Dispatcher struct {
	sender  Sender
	gateway Gateway
	store   *directory.Store
	tset    *templates.Set
	book    *ledger.Ledger

	adminChannel    string
	reminderDelay   time.Duration
	resolutionDelay time.Duration

	tasks chan func()
	quit  chan struct{}

	deposits map[string]*depositSession
	admins   map[string]*adminSession
}

func NewDispatcher(cfg *config.Config, sender Sender, gateway Gateway,
	store *directory.Store, tset *templates.Set, book *ledger.Ledger) *Dispatcher {
	return &Dispatcher{
		sender:          sender,
		gateway:         gateway,
		store:           store,
		tset:            tset,
		book:            book,
		adminChannel:    store.SuperOperator(),
		reminderDelay:   cfg.ReminderDelay,
		resolutionDelay: cfg.ResolutionDelay,
		tasks:           make(chan func(), 128),
		quit:            make(chan struct{}),
		deposits:        make(map[string]*depositSession),
		admins:          make(map[string]*adminSession),
	}
}

// Start launches the event loop goroutine.
func (d *Dispatcher) Start() {
	go d.run()
}

// Stop ends the event loop. Outstanding timers still fire but their tasks are
// dropped once the loop is gone.
func (d *Dispatcher) Stop() {
	close(d.quit)
}

func (d *Dispatcher) run() {
	for {
		select {
		case task := <-d.tasks:
			task()
		case <-d.quit:
			return
		}
	}
}

// Enqueue posts a task onto the event loop.
func (d *Dispatcher) Enqueue(task func()) {
	select {
	case d.tasks <- task:
	case <-d.quit:
	}
}

// After schedules a task on the event loop once delay has passed. There is no
// cancellation: once scheduled the task always runs.
func (d *Dispatcher) After(delay time.Duration, task func()) {
	time.AfterFunc(delay, func() {
		d.Enqueue(task)
	})
}

// HandleInbound accepts one inbound message from the transport. Safe to call
// from any goroutine.
func (d *Dispatcher) HandleInbound(from, body string) {
	d.Enqueue(func() {
		d.route(from, body)
	})
}

func (d *Dispatcher) route(from, body string) {
	if d.store.IsOperator(from) {
		d.handleAdmin(from, body)
		return
	}
	d.handleDeposit(from, body)
}

// Send delivers one outbound message. Delivery failure never propagates to the
// flow that produced the message; it is logged and, for ordinary recipients,
// escalated to the privileged channel.
func (d *Dispatcher) Send(to, body string) {
	status := "sent"
	if err := d.sender.SendMessage(to, body); err != nil {
		status = "failed"
		log.Printf("Failed to send message to %s: %v", to, err)
		if to != d.adminChannel {
			if nerr := d.sender.SendMessage(d.adminChannel,
				fmt.Sprintf("Delivery to %s failed: %v", to, err)); nerr != nil {
				log.Printf("Failed to escalate delivery failure: %v", nerr)
			}
		}
	}
	database.LogMessage(to, "out", body, status)
}

func (d *Dispatcher) notifyAdmin(body string) {
	d.Send(d.adminChannel, body)
}
