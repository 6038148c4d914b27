package dashboard

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/fraudguard/internal/failure"
	"github.com/congo-pay/fraudguard/internal/risk"
	"github.com/congo-pay/fraudguard/internal/transaction"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

type stubSubmitter struct {
	result  transaction.Result
	err     error
	release chan struct{}
	entered chan struct{}

	mu     sync.Mutex
	tokens []string
}

func (s *stubSubmitter) Submit(ctx context.Context, fields transaction.Fields, token string) (transaction.Result, error) {
	s.mu.Lock()
	s.tokens = append(s.tokens, token)
	s.mu.Unlock()
	if s.entered != nil {
		close(s.entered)
	}
	if s.release != nil {
		<-s.release
	}
	return s.result, s.err
}

func filled() transaction.Fields {
	return transaction.Fields{SenderEmail: "a@b.com", ReceiverEmail: "c@d.com", Amount: "100", Type: "PAYMENT"}
}

func TestGateRejectsConcurrentRun(t *testing.T) {
	var g Gate
	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error)

	go func() {
		done <- g.Run(func() error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	if !g.Busy() {
		t.Fatal("expected gate to be busy")
	}
	if err := g.Run(func() error { return nil }); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := g.Run(func() error { return nil }); err != nil {
		t.Fatalf("gate should reopen, got %v", err)
	}
}

func TestFormClearsFieldsOnCleanSuccess(t *testing.T) {
	sub := &stubSubmitter{result: transaction.Result{ID: 1, IsFraudSuspected: false}}
	form := NewForm(sub, staticToken("T"), nil)
	form.SetFields(filled())

	if _, err := form.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	got := form.Fields()
	if got.SenderEmail != "" || got.Amount != "" || got.Type != string(transaction.TypeTransfer) {
		t.Fatalf("expected blank form, got %+v", got)
	}
	if _, ok := form.Result(); !ok {
		t.Fatal("expected result to be displayed")
	}
	if sub.tokens[0] != "T" {
		t.Fatalf("expected session token, got %q", sub.tokens[0])
	}
}

func TestFormKeepsFieldsWhenFlagged(t *testing.T) {
	sub := &stubSubmitter{result: transaction.Result{ID: 1, IsFraudSuspected: true}}
	form := NewForm(sub, staticToken("T"), nil)
	form.SetFields(filled())

	if _, err := form.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if form.Fields() != filled() {
		t.Fatalf("flagged submission must keep input, got %+v", form.Fields())
	}

	form.Dismiss()
	if _, ok := form.Result(); ok {
		t.Fatal("expected result to be dismissed")
	}
}

func TestFormRecordsFailureMessage(t *testing.T) {
	sub := &stubSubmitter{err: failure.New(failure.KindHTTP, "Insufficient balance")}
	form := NewForm(sub, staticToken("T"), nil)
	form.SetFields(filled())

	if _, err := form.Submit(context.Background()); err == nil {
		t.Fatal("expected failure")
	}
	if form.LastError() != "Insufficient balance" {
		t.Fatalf("unexpected last error %q", form.LastError())
	}
	if form.Fields() != filled() {
		t.Fatal("failed submission must keep input")
	}

	sub.err = nil
	if _, err := form.Submit(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if form.LastError() != "" {
		t.Fatalf("expected last error to reset, got %q", form.LastError())
	}
}

func TestFormRejectsResubmissionInFlight(t *testing.T) {
	sub := &stubSubmitter{entered: make(chan struct{}), release: make(chan struct{})}
	form := NewForm(sub, staticToken("T"), nil)
	form.SetFields(filled())

	done := make(chan error)
	go func() {
		_, err := form.Submit(context.Background())
		done <- err
	}()
	<-sub.entered

	if _, err := form.Submit(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	close(sub.release)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if len(sub.tokens) != 1 {
		t.Fatalf("expected one submission, got %d", len(sub.tokens))
	}
}

func TestRenderFlaggedResult(t *testing.T) {
	p := 0.9
	r := transaction.Result{
		ID:                   42,
		SenderEmail:          "a@b.com",
		ReceiverEmail:        "c@d.com",
		Amount:               decimal.RequireFromString("100"),
		Type:                 transaction.TypeTransfer,
		FraudProbability:     &p,
		IsFraudSuspected:     true,
		RequiresManualReview: true,
		Risk:                 risk.Classify(p),
	}

	var buf bytes.Buffer
	if err := Render(&buf, r); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Transaction Under Review", "#42", "100.00", "a@b.com", "c@d.com", "TRANSFER", "HIGH", "90.0%", "Requires manual review"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderCleanResultWithoutScore(t *testing.T) {
	r := transaction.Result{
		ID:                  3,
		Amount:              decimal.RequireFromString("5"),
		Type:                transaction.TypePayment,
		FraudDetectionError: "model offline",
	}

	var buf bytes.Buffer
	if err := Render(&buf, r); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Transaction Successful") || strings.Contains(out, "Risk Level") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "model offline") || strings.Contains(out, "manual review") {
		t.Fatalf("unexpected notes:\n%s", out)
	}
}
