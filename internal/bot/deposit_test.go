package bot

import (
	"errors"
	"strings"
	"testing"
	"time"

	"whatsapp-deposit-bot/internal/ledger"
	"whatsapp-deposit-bot/internal/payhero"
)

func TestDepositHappyPath(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	f.say(testUser, "hi")
	if got := f.sender.lastTo(testUser); !strings.Contains(got, "Welcome") {
		t.Fatalf("expected welcome message, got %q", got)
	}

	f.say(testUser, "500")
	if got := f.sender.lastTo(testUser); !strings.Contains(got, "500") {
		t.Fatalf("expected amount echo, got %q", got)
	}

	f.say(testUser, "0712345678")

	waitFor(t, "initiated acknowledgment", func() bool {
		return f.sender.received(testUser, "prompt")
	})

	snap := f.book.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("ledger has %d entries, want 1", len(snap))
	}
	if snap[0].Amount != 500 || snap[0].From != "0712345678" {
		t.Fatalf("ledger entry = %+v", snap[0])
	}
	if !f.sender.received(testSuperOp, "New deposit attempt") {
		t.Fatal("expected privileged channel notification")
	}

	if f.gw.gotChannelID != 911 {
		t.Fatalf("gateway called with channel %d, want 911", f.gw.gotChannelID)
	}

	waitFor(t, "success message", func() bool {
		return f.sender.received(testUser, "MPESA123")
	})

	success := f.sender.lastTo(testUser)
	for _, want := range []string{"500", "0712345678", "MPESA123"} {
		if !strings.Contains(success, want) {
			t.Fatalf("success message %q missing %q", success, want)
		}
	}

	waitFor(t, "ledger settled", func() bool {
		return f.book.Snapshot()[0].Status == ledger.StatusSuccess
	})

	// Exactly one status query, exactly one entry, same entry updated.
	_, statusCalls := f.gw.calls()
	if statusCalls != 1 {
		t.Fatalf("status queried %d times, want 1", statusCalls)
	}
	if len(f.book.Snapshot()) != 1 {
		t.Fatalf("resolution must not add ledger entries")
	}

	// Session is gone: the next message starts a fresh flow.
	f.say(testUser, "hello again")
	if got := f.sender.lastTo(testUser); !strings.Contains(got, "Welcome") {
		t.Fatalf("expected new session welcome, got %q", got)
	}
}

// The countdown update fires between the initiation acknowledgment and the
// resolution outcome, never after it.
func TestDepositCountdownPrecedesResolution(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	f.say(testUser, "hi")
	f.say(testUser, "500")
	f.say(testUser, "0712345678")

	waitFor(t, "countdown update", func() bool {
		return f.sender.received(testUser, "Hang tight")
	})
	waitFor(t, "success message", func() bool {
		return f.sender.received(testUser, "MPESA123")
	})

	countdownAt, successAt := -1, -1
	for i, m := range f.sender.sent() {
		if m.to != testUser {
			continue
		}
		if countdownAt == -1 && strings.Contains(m.body, "Hang tight") {
			countdownAt = i
		}
		if successAt == -1 && strings.Contains(m.body, "MPESA123") {
			successAt = i
		}
	}
	if countdownAt == -1 || successAt == -1 || countdownAt > successAt {
		t.Fatalf("countdown at %d, success at %d; countdown must come first",
			countdownAt, successAt)
	}
	if f.sender.countContaining(testUser, "Hang tight") != 1 {
		t.Fatal("expected exactly one countdown update")
	}
}

func TestDepositAmountValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.say(testUser, "hi")

	for _, bad := range []string{"abc", "-5", "0", "12.50", ""} {
		f.say(testUser, bad)
		if got := f.sender.lastTo(testUser); !strings.Contains(got, "greater than zero") {
			t.Fatalf("input %q: expected re-prompt, got %q", bad, got)
		}
	}

	if len(f.book.Snapshot()) != 0 {
		t.Fatal("invalid amounts must never touch the ledger")
	}

	// Stage did not advance: a valid amount still works.
	f.say(testUser, "750")
	if got := f.sender.lastTo(testUser); !strings.Contains(got, "750") {
		t.Fatalf("expected amount echo after retries, got %q", got)
	}
}

func TestDepositInitiationFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.gw.initiateErr = payhero.ErrUnreachable

	f.say(testUser, "hi")
	f.say(testUser, "500")
	f.say(testUser, "0712345678")

	waitFor(t, "failure message", func() bool {
		return f.sender.received(testUser, "could not initiate")
	})

	snap := f.book.Snapshot()
	if len(snap) != 1 || snap[0].Status != ledger.StatusErrorInitiating {
		t.Fatalf("ledger = %+v, want one Error Initiating entry", snap)
	}

	// No timers were scheduled: the status endpoint is never queried.
	time.Sleep(50 * time.Millisecond)
	if _, statusCalls := f.gw.calls(); statusCalls != 0 {
		t.Fatalf("status queried %d times, want 0", statusCalls)
	}

	// Session destroyed immediately.
	f.say(testUser, "hello")
	if got := f.sender.lastTo(testUser); !strings.Contains(got, "Welcome") {
		t.Fatalf("expected fresh session, got %q", got)
	}
}

func TestDepositInsufficientFunds(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.gw.status = &payhero.StatusResponse{
		Status:     "FAILED",
		ResultDesc: "The balance is insufficient for the transaction",
	}

	f.say(testUser, "hi")
	f.say(testUser, "500")
	f.say(testUser, "0712345678")

	waitFor(t, "insufficient funds message", func() bool {
		return f.sender.received(testUser, "insufficient")
	})

	waitFor(t, "ledger failed status", func() bool {
		return strings.HasPrefix(f.book.Snapshot()[0].Status, "Failed: ")
	})
	if !strings.Contains(f.book.Snapshot()[0].Status, "insufficient") {
		t.Fatalf("ledger status = %q, want insufficient funds reason", f.book.Snapshot()[0].Status)
	}

	if !f.sender.received(testSuperOp, "Deposit failed") {
		t.Fatal("expected privileged channel failure notification")
	}
}

func TestDepositWrongPIN(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.gw.status = &payhero.StatusResponse{
		Status:     "FAILED",
		ResultDesc: "The initiator information is invalid: wrong PIN entered",
	}

	f.say(testUser, "hi")
	f.say(testUser, "500")
	f.say(testUser, "0712345678")

	waitFor(t, "wrong PIN message", func() bool {
		return f.sender.received(testUser, "incorrect")
	})
}

func TestDepositStatusQueryFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.gw.statusErr = errors.New("timeout")

	f.say(testUser, "hi")
	f.say(testUser, "500")
	f.say(testUser, "0712345678")

	waitFor(t, "status error message", func() bool {
		return f.sender.received(testUser, "could not confirm")
	})

	waitFor(t, "ledger error fetching", func() bool {
		return f.book.Snapshot()[0].Status == ledger.StatusErrorFetching
	})
}

func TestDepositCancel(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.say(testUser, "hi")
	f.say(testUser, "cancel")

	if got := f.sender.lastTo(testUser); !strings.Contains(got, "cancelled") {
		t.Fatalf("expected cancellation ack, got %q", got)
	}

	f.say(testUser, "hello")
	if got := f.sender.lastTo(testUser); !strings.Contains(got, "Welcome") {
		t.Fatalf("expected fresh session after cancel, got %q", got)
	}
}

// A restart keyword mid-Processing replaces the session, but the already
// scheduled resolution still runs against its captured data and still settles
// the original ledger entry. Intentional behavior, asserted here.
func TestDepositRestartMidProcessingStillResolves(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	f.say(testUser, "hi")
	f.say(testUser, "500")
	f.say(testUser, "0712345678")

	waitFor(t, "initiated acknowledgment", func() bool {
		return f.sender.received(testUser, "prompt")
	})

	welcomes := f.sender.countContaining(testUser, "Welcome")
	f.say(testUser, RestartKeyword)
	waitFor(t, "restart welcome", func() bool {
		return f.sender.countContaining(testUser, "Welcome") == welcomes+1
	})

	waitFor(t, "old attempt still settles", func() bool {
		return f.book.Snapshot()[0].Status == ledger.StatusSuccess
	})
	if !f.sender.received(testUser, "MPESA123") {
		t.Fatal("expected success message from the replaced session's timers")
	}
}

func TestDepositIgnoresChatterWhileProcessing(t *testing.T) {
	t.Parallel()

	// Long delays so neither timer interferes with the message counts.
	f := newFixtureWithDelays(t, time.Hour, 2*time.Hour)

	f.say(testUser, "hi")
	f.say(testUser, "500")
	f.say(testUser, "0712345678")

	waitFor(t, "initiated acknowledgment", func() bool {
		return f.sender.received(testUser, "prompt")
	})

	before := f.sender.countTo(testUser)
	f.say(testUser, "are you there?")
	if f.sender.countTo(testUser) != before {
		t.Fatal("messages during Processing should not produce replies")
	}

	if len(f.book.Snapshot()) != 1 {
		t.Fatal("chatter must not create ledger entries")
	}
}
