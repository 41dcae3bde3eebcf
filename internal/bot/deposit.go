package bot

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"whatsapp-deposit-bot/internal/ledger"
	"whatsapp-deposit-bot/internal/payhero"
	"whatsapp-deposit-bot/internal/templates"
)

const (
	// RestartKeyword discards any existing deposit session and starts over.
	RestartKeyword = "#"
	// CancelKeyword abandons an active deposit session.
	CancelKeyword = "cancel"
)

type depositStage int

const (
	stageAwaitingAmount depositStage = iota
	stageAwaitingDepositNumber
	stageProcessing
)

type depositSession struct {
	stage            depositStage
	amount           int
	depositNumber    string
	paymentReference string
}

func (d *Dispatcher) handleDeposit(from, body string) {
	text := strings.TrimSpace(body)
	sess, ok := d.deposits[from]

	if ok && strings.EqualFold(text, CancelKeyword) {
		delete(d.deposits, from)
		d.Send(from, "Your deposit has been cancelled. Send any message to start again.")
		return
	}

	if !ok || text == RestartKeyword {
		// A restart mid-Processing replaces the session; timers already
		// scheduled keep running against their captured data.
		d.deposits[from] = &depositSession{stage: stageAwaitingAmount}
		d.Send(from, d.tset.Render(templates.KeyWelcome, nil))
		return
	}

	switch sess.stage {
	case stageAwaitingAmount:
		amount, err := strconv.Atoi(text)
		if err != nil || amount <= 0 {
			d.Send(from, "Please enter a whole amount greater than zero, e.g. 500.")
			return
		}
		sess.amount = amount
		sess.stage = stageAwaitingDepositNumber
		d.Send(from, d.tset.Render(templates.KeyDepositChosen, map[string]string{
			"amount": strconv.Itoa(amount),
		}))

	case stageAwaitingDepositNumber:
		sess.depositNumber = text
		sess.stage = stageProcessing
		d.startPayment(from, sess)

	case stageProcessing:
		log.Printf("Ignoring message from %s while deposit is processing", from)
	}
}

// startPayment enters Processing: it records the Pending ledger entry, then
// initiates the push payment off-loop. Amount and deposit number are captured
// here; the continuations never re-read the live session.
func (d *Dispatcher) startPayment(from string, sess *depositSession) {
	amount := sess.amount
	deposit := sess.depositNumber
	handle := d.book.Record(amount, deposit)
	channelID := d.tset.ChannelID()

	go func() {
		ref, err := d.gateway.Initiate(amount, deposit, channelID)
		d.Enqueue(func() {
			d.finishInitiate(from, handle, amount, deposit, ref, err)
		})
	}()
}

func (d *Dispatcher) finishInitiate(from string, handle *ledger.Handle, amount int, deposit, ref string, err error) {
	if err != nil {
		log.Printf("Payment initiation for %s failed: %v", from, err)
		d.book.UpdateStatus(handle, ledger.StatusErrorInitiating)
		delete(d.deposits, from)
		d.Send(from, "We could not initiate your deposit right now. Please try again later.")
		return
	}

	if sess, ok := d.deposits[from]; ok && sess.stage == stageProcessing {
		sess.paymentReference = ref
	}

	d.notifyAdmin(fmt.Sprintf("New deposit attempt: KES %d from %s", amount, deposit))
	d.Send(from, d.tset.Render(templates.KeyPaymentInitiated, map[string]string{
		"amount":  strconv.Itoa(amount),
		"deposit": deposit,
	}))

	d.After(d.reminderDelay, func() {
		d.Send(from, d.tset.Render(templates.KeyCountdown, map[string]string{
			"amount":  strconv.Itoa(amount),
			"deposit": deposit,
		}))
	})
	d.After(d.resolutionDelay, func() {
		d.resolvePayment(from, handle, amount, deposit, ref)
	})
}

func (d *Dispatcher) resolvePayment(from string, handle *ledger.Handle, amount int, deposit, ref string) {
	go func() {
		status, err := d.gateway.QueryStatus(ref)
		d.Enqueue(func() {
			d.finishResolution(from, handle, amount, deposit, status, err)
		})
	}()
}

func (d *Dispatcher) finishResolution(from string, handle *ledger.Handle, amount int, deposit string, status *payhero.StatusResponse, err error) {
	delete(d.deposits, from)

	if err != nil {
		log.Printf("Status query for %s failed: %v", from, err)
		d.book.UpdateStatus(handle, ledger.StatusErrorFetching)
		d.Send(from, "We could not confirm your payment status. Please contact support.")
		return
	}

	if status.Succeeded() {
		d.book.UpdateStatus(handle, ledger.StatusSuccess)
		d.Send(from, d.tset.Render(templates.KeyPaymentSuccess, map[string]string{
			"amount":  strconv.Itoa(amount),
			"deposit": deposit,
			"code":    status.ProviderReference,
			"time":    d.book.Now(),
		}))
		d.notifyAdmin(fmt.Sprintf("Deposit settled: KES %d from %s (%s)", amount, deposit, status.ProviderReference))
		return
	}

	reason := failureReason(status.ResultDesc)
	d.book.UpdateStatus(handle, ledger.StatusFailed(reason))
	d.Send(from, reason)
	d.notifyAdmin(fmt.Sprintf("Deposit failed: KES %d from %s - %s", amount, deposit, reason))
}

// failureReason maps the gateway's free-text result description to a short
// message we can show the requester.
func failureReason(resultDesc string) string {
	desc := strings.ToLower(resultDesc)
	switch {
	case strings.Contains(desc, "insufficient"):
		return "Your M-Pesa balance is insufficient. Please top up and try again."
	case strings.Contains(desc, "pin"):
		return "The M-Pesa PIN entered was incorrect. Please try again."
	default:
		return "The payment was not completed. Please try again."
	}
}
