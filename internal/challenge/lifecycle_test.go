package challenge

import (
	"errors"
	"testing"
	"time"

	"github.com/pool-ladder/internal/domain"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func pending() *domain.Challenge {
	details := domain.DefaultMatchDetails(domain.Bracket499Under, domain.TypeChallenge)
	return New(domain.Bracket499Under, "challenger", "defender", domain.TypeChallenge, details, t0)
}

func assertStateError(t *testing.T, err error) *domain.ChallengeStateError {
	t.Helper()
	var stateErr *domain.ChallengeStateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("expected ChallengeStateError, got %v", err)
	}
	return stateErr
}

func TestNew(t *testing.T) {
	ch := pending()

	if ch.ID == "" {
		t.Error("expected generated id")
	}
	if ch.Status != domain.StatusPending {
		t.Errorf("Status = %s, want pending", ch.Status)
	}
	if ch.ProposerID != "challenger" {
		t.Errorf("ProposerID = %s, want the challenger", ch.ProposerID)
	}
	if want := t0.Add(domain.ResponseWindow); !ch.Deadline.Equal(want) {
		t.Errorf("Deadline = %v, want %v", ch.Deadline, want)
	}
}

func TestAccept(t *testing.T) {
	ch := pending()
	if err := Accept(ch, "defender", t0.Add(time.Hour)); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if ch.Status != domain.StatusAccepted {
		t.Errorf("Status = %s, want accepted", ch.Status)
	}
}

func TestAcceptByProposerRejected(t *testing.T) {
	ch := pending()
	err := Accept(ch, "challenger", t0.Add(time.Hour))
	assertStateError(t, err)
	if ch.Status != domain.StatusPending {
		t.Errorf("rejected accept changed status to %s", ch.Status)
	}
}

func TestAcceptByOutsiderRejected(t *testing.T) {
	ch := pending()
	assertStateError(t, Accept(ch, "stranger", t0.Add(time.Hour)))
}

func TestAcceptAfterDeadlineStillWins(t *testing.T) {
	// A response that reaches us before the sweep flips the status is
	// honored even when the clock has passed the deadline.
	ch := pending()
	late := ch.Deadline.Add(time.Hour)
	if err := Accept(ch, "defender", late); err != nil {
		t.Fatalf("Accept after deadline: %v", err)
	}
	if ch.Status != domain.StatusAccepted {
		t.Errorf("Status = %s, want accepted", ch.Status)
	}
}

func TestDecline(t *testing.T) {
	ch := pending()
	if err := Decline(ch, "defender", t0.Add(time.Hour)); err != nil {
		t.Fatalf("Decline: %v", err)
	}
	if ch.Status != domain.StatusDeclined {
		t.Errorf("Status = %s, want declined", ch.Status)
	}
	if !ch.Status.Terminal() {
		t.Error("declined should be terminal")
	}

	// No transitions out of a terminal status.
	assertStateError(t, Accept(ch, "defender", t0.Add(2*time.Hour)))
}

func TestCounterSwapsRoles(t *testing.T) {
	ch := pending()
	newTerms := domain.DefaultMatchDetails(domain.Bracket499Under, domain.TypeChallenge)
	newTerms.EntryFee = 40
	counterAt := t0.Add(24 * time.Hour)

	if err := Counter(ch, "defender", newTerms, counterAt); err != nil {
		t.Fatalf("Counter: %v", err)
	}
	if ch.Status != domain.StatusCountered {
		t.Errorf("Status = %s, want countered", ch.Status)
	}
	if ch.ProposerID != "defender" {
		t.Errorf("ProposerID = %s, want the countering defender", ch.ProposerID)
	}
	if ch.Details.EntryFee != 40 {
		t.Errorf("EntryFee = %d, want replaced terms", ch.Details.EntryFee)
	}
	if want := counterAt.Add(domain.ResponseWindow); !ch.Deadline.Equal(want) {
		t.Errorf("Deadline = %v, want restarted window %v", ch.Deadline, want)
	}

	// Now the original challenger answers; the defender may not respond
	// to their own counter.
	assertStateError(t, Accept(ch, "defender", counterAt.Add(time.Hour)))
	if err := Accept(ch, "challenger", counterAt.Add(time.Hour)); err != nil {
		t.Fatalf("Accept of counter: %v", err)
	}
	if ch.Status != domain.StatusAccepted {
		t.Errorf("Status = %s, want accepted", ch.Status)
	}
}

func TestCounterOfCounter(t *testing.T) {
	ch := pending()
	terms := ch.Details

	if err := Counter(ch, "defender", terms, t0.Add(time.Hour)); err != nil {
		t.Fatalf("first counter: %v", err)
	}
	if err := Counter(ch, "challenger", terms, t0.Add(2*time.Hour)); err != nil {
		t.Fatalf("second counter: %v", err)
	}
	if ch.ProposerID != "challenger" {
		t.Errorf("ProposerID = %s, want back to challenger", ch.ProposerID)
	}
}

func TestConfirm(t *testing.T) {
	ch := pending()
	if err := Confirm(ch, t0); err == nil {
		t.Fatal("confirm before accept must fail")
	}
	if err := Accept(ch, "defender", t0.Add(time.Hour)); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if err := Confirm(ch, t0.Add(time.Hour)); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if ch.Status != domain.StatusConfirmed {
		t.Errorf("Status = %s, want confirmed", ch.Status)
	}
}

func TestCompleteIsOneShot(t *testing.T) {
	ch := pending()
	if err := Accept(ch, "defender", t0); err != nil {
		t.Fatal(err)
	}
	if err := Confirm(ch, t0); err != nil {
		t.Fatal(err)
	}

	result := domain.Result{WinnerID: "challenger", Score: "5-3"}
	doneAt := t0.Add(48 * time.Hour)
	if err := Complete(ch, result, doneAt); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if ch.Status != domain.StatusCompleted {
		t.Errorf("Status = %s, want completed", ch.Status)
	}
	if ch.Result == nil || ch.Result.WinnerID != "challenger" {
		t.Errorf("Result = %+v", ch.Result)
	}
	if ch.CompletedAt == nil || !ch.CompletedAt.Equal(doneAt) {
		t.Errorf("CompletedAt = %v, want %v", ch.CompletedAt, doneAt)
	}

	// A duplicate report is rejected, not reapplied.
	assertStateError(t, Complete(ch, result, doneAt.Add(time.Minute)))
}

func TestCompleteRequiresConfirmedAndParticipantWinner(t *testing.T) {
	ch := pending()
	result := domain.Result{WinnerID: "challenger", Score: "5-3"}
	assertStateError(t, Complete(ch, result, t0))

	if err := Accept(ch, "defender", t0); err != nil {
		t.Fatal(err)
	}
	if err := Confirm(ch, t0); err != nil {
		t.Fatal(err)
	}
	assertStateError(t, Complete(ch, domain.Result{WinnerID: "stranger"}, t0))
	if ch.Status != domain.StatusConfirmed {
		t.Errorf("rejected completion changed status to %s", ch.Status)
	}
}

func TestCancel(t *testing.T) {
	// Either party may cancel while the proposal is open.
	for _, playerID := range []string{"challenger", "defender"} {
		ch := pending()
		if err := Cancel(ch, playerID, t0.Add(time.Hour)); err != nil {
			t.Fatalf("Cancel by %s: %v", playerID, err)
		}
		if ch.Status != domain.StatusCancelled {
			t.Errorf("Status = %s, want cancelled", ch.Status)
		}
	}

	ch := pending()
	assertStateError(t, Cancel(ch, "stranger", t0))

	// Confirmed challenges are out of cancel's reach.
	if err := Accept(ch, "defender", t0); err != nil {
		t.Fatal(err)
	}
	if err := Confirm(ch, t0); err != nil {
		t.Fatal(err)
	}
	assertStateError(t, Cancel(ch, "challenger", t0))
}

func TestExpire(t *testing.T) {
	ch := pending()

	// Not yet overdue: no-op.
	changed, err := Expire(ch, ch.Deadline.Add(-time.Minute))
	if err != nil || changed {
		t.Fatalf("Expire before deadline = (%v, %v), want no-op", changed, err)
	}
	if ch.Status != domain.StatusPending {
		t.Errorf("Status = %s, want pending", ch.Status)
	}

	changed, err = Expire(ch, ch.Deadline.Add(time.Minute))
	if err != nil || !changed {
		t.Fatalf("Expire after deadline = (%v, %v), want transition", changed, err)
	}
	if ch.Status != domain.StatusExpired {
		t.Errorf("Status = %s, want expired", ch.Status)
	}

	// Second sweep over the same challenge is idempotent.
	changed, err = Expire(ch, ch.Deadline.Add(2*time.Minute))
	if err != nil || changed {
		t.Fatalf("repeat Expire = (%v, %v), want no-op", changed, err)
	}
}

func TestExpireCounteredUsesRestartedClock(t *testing.T) {
	ch := pending()
	counterAt := t0.Add(48 * time.Hour)
	if err := Counter(ch, "defender", ch.Details, counterAt); err != nil {
		t.Fatal(err)
	}

	// The original deadline has passed but the counter restarted it.
	changed, err := Expire(ch, t0.Add(domain.ResponseWindow).Add(time.Hour))
	if err != nil || changed {
		t.Fatalf("Expire = (%v, %v), want no-op under restarted window", changed, err)
	}

	changed, err = Expire(ch, counterAt.Add(domain.ResponseWindow).Add(time.Minute))
	if err != nil || !changed {
		t.Fatalf("Expire = (%v, %v), want transition", changed, err)
	}
}

func TestExpireCompletedIsError(t *testing.T) {
	ch := pending()
	if err := Accept(ch, "defender", t0); err != nil {
		t.Fatal(err)
	}
	if err := Confirm(ch, t0); err != nil {
		t.Fatal(err)
	}
	if err := Complete(ch, domain.Result{WinnerID: "defender"}, t0); err != nil {
		t.Fatal(err)
	}

	if _, err := Expire(ch, t0.Add(domain.ResponseWindow).Add(time.Hour)); err == nil {
		t.Fatal("expected error expiring a completed challenge")
	}
}
