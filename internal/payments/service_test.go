package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/fraudguard/internal/identity"
	"github.com/congo-pay/fraudguard/internal/ledger"
	"github.com/congo-pay/fraudguard/internal/notification"
	"github.com/congo-pay/fraudguard/internal/transaction"
)

type testNotifier struct {
	sent []notification.Message
}

func (n *testNotifier) Send(_ context.Context, msg notification.Message) error {
	n.sent = append(n.sent, msg)
	return nil
}

func (n *testNotifier) kinds() map[string]int {
	out := map[string]int{}
	for _, m := range n.sent {
		out[m.Kind]++
	}
	return out
}

type stubScorer struct {
	prediction Prediction
	err        error
}

func (s stubScorer) Score(context.Context, Features) (Prediction, error) {
	return s.prediction, s.err
}

type fixture struct {
	svc      *Service
	ledger   ledger.Ledger
	notifier *testNotifier
}

func newFixture(t *testing.T, scorer Scorer) fixture {
	t.Helper()
	ctx := context.Background()
	led := ledger.NewInMemory()
	users := identity.NewService(identity.NewMemoryRepository(), led)
	for _, email := range []string{"alice@example.com", "bob@example.com"} {
		if _, err := users.Register(ctx, identity.Registration{Name: email, Email: email, Password: "secret1"}); err != nil {
			t.Fatalf("register %s: %v", email, err)
		}
	}
	if _, err := users.SeedAdmin(ctx, "admin@example.com", "secret1"); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	notifier := &testNotifier{}
	return fixture{
		svc:      NewService(users, led, scorer, notifier, nil),
		ledger:   led,
		notifier: notifier,
	}
}

func (f fixture) balance(t *testing.T, email string) string {
	t.Helper()
	b, err := f.ledger.Balance(context.Background(), email)
	if err != nil {
		t.Fatalf("balance %s: %v", email, err)
	}
	return b.StringFixed(2)
}

func input(amount string, typ transaction.Type) Input {
	return Input{
		RequesterEmail: "alice@example.com",
		RequesterRole:  identity.RoleUser,
		SenderEmail:    "alice@example.com",
		ReceiverEmail:  "bob@example.com",
		Amount:         decimal.RequireFromString(amount),
		Type:           typ,
	}
}

func TestHeuristicScorer(t *testing.T) {
	cases := []struct {
		name    string
		typ     transaction.Type
		amount  string
		dest    string
		want    float64
		isFraud bool
	}{
		{"small transfer", transaction.TypeTransfer, "100", "1000", 0.32, false},
		{"draining transfer", transaction.TypeTransfer, "950", "1000", 0.915, true},
		{"cash out to empty account", transaction.TypeCashOut, "500", "0", 0.65, false},
		{"payment", transaction.TypePayment, "500", "1000", 0.35, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			amount := decimal.RequireFromString(tc.amount)
			orig := decimal.RequireFromString("1000")
			dest := decimal.RequireFromString(tc.dest)
			p, err := HeuristicScorer{}.Score(context.Background(), Features{
				Type:           tc.typ,
				Amount:         amount,
				OldBalanceOrig: orig,
				NewBalanceOrig: orig.Sub(amount),
				OldBalanceDest: dest,
				NewBalanceDest: dest.Add(amount),
			})
			if err != nil {
				t.Fatalf("score: %v", err)
			}
			if p.Probability != tc.want || p.IsFraud != tc.isFraud {
				t.Fatalf("expected p=%v fraud=%v, got %+v", tc.want, tc.isFraud, p)
			}
		})
	}
}

func TestSubmitPostsTransfer(t *testing.T) {
	f := newFixture(t, HeuristicScorer{})

	out, err := f.svc.Submit(context.Background(), input("100.005", transaction.TypeTransfer))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if out.ID == 0 {
		t.Fatal("expected a transaction id")
	}
	if out.Amount.StringFixed(2) != "100.00" {
		t.Fatalf("expected banker's rounding to 100.00, got %s", out.Amount.StringFixed(2))
	}
	if out.FraudProbability == nil || *out.FraudProbability != 0.32 {
		t.Fatalf("unexpected probability %v", out.FraudProbability)
	}
	if out.IsFraudSuspected || out.RequiresManualReview {
		t.Fatalf("did not expect flags: %+v", out)
	}
	if out.Timestamp.IsZero() {
		t.Fatal("expected a default timestamp")
	}
	if got := f.balance(t, "alice@example.com"); got != "900.00" {
		t.Fatalf("sender balance %s", got)
	}
	if got := f.balance(t, "bob@example.com"); got != "1100.00" {
		t.Fatalf("receiver balance %s", got)
	}
	kinds := f.notifier.kinds()
	if kinds[notification.KindTransferReceived] != 1 || kinds[notification.KindFraudReview] != 0 {
		t.Fatalf("unexpected notifications %+v", f.notifier.sent)
	}
}

func TestSubmitBlocksConfidentFraud(t *testing.T) {
	f := newFixture(t, HeuristicScorer{})

	_, err := f.svc.Submit(context.Background(), input("950", transaction.TypeTransfer))
	if !errors.Is(err, ErrBlocked) {
		t.Fatalf("expected ErrBlocked, got %v", err)
	}
	if got := f.balance(t, "alice@example.com"); got != "1000.00" {
		t.Fatalf("blocked transfer moved funds: %s", got)
	}
	if len(f.notifier.sent) != 1 || f.notifier.sent[0].Destination != ReviewQueue {
		t.Fatalf("expected one review notification, got %+v", f.notifier.sent)
	}
}

func TestSubmitFlagsSuspectedFraudForReview(t *testing.T) {
	f := newFixture(t, stubScorer{prediction: Prediction{IsFraud: true, Probability: 0.85}})

	out, err := f.svc.Submit(context.Background(), input("300", transaction.TypeCashOut))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !out.IsFraudSuspected || !out.RequiresManualReview {
		t.Fatalf("expected fraud flags, got %+v", out)
	}
	if got := f.balance(t, "bob@example.com"); got != "1300.00" {
		t.Fatalf("flagged transfer should still post, receiver has %s", got)
	}
	if f.notifier.kinds()[notification.KindFraudReview] != 1 {
		t.Fatalf("expected a review notification, got %+v", f.notifier.sent)
	}
}

func TestSubmitReviewWithoutFraudVerdict(t *testing.T) {
	f := newFixture(t, stubScorer{prediction: Prediction{Probability: 0.75}})

	out, err := f.svc.Submit(context.Background(), input("10", transaction.TypePayment))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if out.IsFraudSuspected || !out.RequiresManualReview {
		t.Fatalf("expected review only, got %+v", out)
	}
}

func TestSubmitScorerFailureStillPosts(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"unreachable", errors.New("dial tcp: refused"), "Fraud detection service is not available"},
		{"model error", &ScoringError{Message: "model not loaded"}, "Error during fraud detection: model not loaded"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, stubScorer{err: tc.err})
			out, err := f.svc.Submit(context.Background(), input("10", transaction.TypeTransfer))
			if err != nil {
				t.Fatalf("submit: %v", err)
			}
			if out.FraudProbability != nil {
				t.Fatalf("expected no probability, got %v", *out.FraudProbability)
			}
			if out.FraudDetectionError != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, out.FraudDetectionError)
			}
			if out.ID == 0 {
				t.Fatal("expected the transfer to post")
			}
		})
	}
}

func TestSubmitRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Input)
		want   error
	}{
		{"unknown sender", func(in *Input) { in.SenderEmail = "nobody@example.com" }, ErrSenderNotFound},
		{"unknown receiver", func(in *Input) { in.ReceiverEmail = "nobody@example.com" }, ErrReceiverNotFound},
		{"self transfer", func(in *Input) { in.ReceiverEmail = "ALICE@example.com" }, ErrSameParty},
		{"not owner", func(in *Input) { in.RequesterEmail = "bob@example.com" }, ErrNotOwner},
		{"insufficient", func(in *Input) { in.Amount = decimal.RequireFromString("1000.01") }, ledger.ErrInsufficientFunds},
		{"zero", func(in *Input) { in.Amount = decimal.Zero }, ledger.ErrInvalidAmount},
		{"rounds to zero", func(in *Input) { in.Amount = decimal.RequireFromString("0.004") }, ledger.ErrInvalidAmount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, HeuristicScorer{})
			in := input("10", transaction.TypePayment)
			tc.mutate(&in)
			if _, err := f.svc.Submit(context.Background(), in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestSubmitAdminMayActForSender(t *testing.T) {
	f := newFixture(t, HeuristicScorer{})
	in := input("10", transaction.TypePayment)
	in.RequesterEmail = "admin@example.com"
	in.RequesterRole = identity.RoleAdmin

	if _, err := f.svc.Submit(context.Background(), in); err != nil {
		t.Fatalf("admin submit: %v", err)
	}
}

func TestSubmitDuplicateClientTxID(t *testing.T) {
	f := newFixture(t, HeuristicScorer{})
	in := input("10", transaction.TypePayment)
	in.ClientTxID = "tx-1"

	if _, err := f.svc.Submit(context.Background(), in); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := f.svc.Submit(context.Background(), in); !errors.Is(err, ledger.ErrDuplicateTransaction) {
		t.Fatalf("expected duplicate, got %v", err)
	}
}
