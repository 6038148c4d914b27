package payments

import (
	"context"
	"math"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/fraudguard/internal/apiclient"
	"github.com/congo-pay/fraudguard/internal/transaction"
)

// Features are the model inputs for one transfer, before and after balances
// for both parties.
type Features struct {
	Type           transaction.Type
	Amount         decimal.Decimal
	OldBalanceOrig decimal.Decimal
	NewBalanceOrig decimal.Decimal
	OldBalanceDest decimal.Decimal
	NewBalanceDest decimal.Decimal
}

const fracEpsilon = 1e-6

// FracSent is the share of the sender's balance being moved.
func (f Features) FracSent() float64 {
	return ratio(f.Amount, f.OldBalanceOrig)
}

// FracReceived is the amount relative to the receiver's prior balance.
func (f Features) FracReceived() float64 {
	return ratio(f.Amount, f.OldBalanceDest)
}

func ratio(amount, base decimal.Decimal) float64 {
	a, _ := amount.Float64()
	b, _ := base.Float64()
	return a / (b + fracEpsilon)
}

// Prediction is a scorer verdict.
type Prediction struct {
	IsFraud     bool
	Probability float64
	Confidence  string
}

// Scorer estimates the fraud probability of a transfer.
type Scorer interface {
	Score(ctx context.Context, f Features) (Prediction, error)
}

func confidence(p float64) string {
	if p > 0.8 || p < 0.2 {
		return "high"
	}
	return "medium"
}

// HeuristicScorer is a deterministic stand-in for the trained model. Draining
// transfers and cash-outs score highest, as in the training data.
type HeuristicScorer struct{}

var typeWeights = map[transaction.Type]float64{
	transaction.TypeTransfer: 0.25,
	transaction.TypeCashOut:  0.25,
}

// Score implements Scorer.
func (HeuristicScorer) Score(_ context.Context, f Features) (Prediction, error) {
	weight := typeWeights[f.Type]
	p := weight + 0.7*math.Min(f.FracSent(), 1)
	if weight > 0 && f.OldBalanceDest.IsZero() {
		p += 0.05
	}
	p = math.Round(math.Max(0, math.Min(p, 1))*1e4) / 1e4

	return Prediction{
		IsFraud:     p > FraudThreshold,
		Probability: p,
		Confidence:  confidence(p),
	}, nil
}

// RemoteScorer calls a model server exposing POST /predict.
type RemoteScorer struct {
	api *apiclient.Client
}

// NewRemoteScorer builds a scorer on top of api.
func NewRemoteScorer(api *apiclient.Client) *RemoteScorer {
	return &RemoteScorer{api: api}
}

type predictRequest struct {
	Type           transaction.Type `json:"type"`
	Amount         decimal.Decimal  `json:"amount"`
	OldBalanceOrig decimal.Decimal  `json:"oldbalanceOrg"`
	NewBalanceOrig decimal.Decimal  `json:"newbalanceOrig"`
	OldBalanceDest decimal.Decimal  `json:"oldbalanceDest"`
	NewBalanceDest decimal.Decimal  `json:"newbalanceDest"`
}

type predictResponse struct {
	IsFraud     bool    `json:"is_fraud"`
	Probability float64 `json:"fraud_probability"`
	Confidence  string  `json:"confidence"`
	Error       string  `json:"error"`
}

// Score implements Scorer.
func (s *RemoteScorer) Score(ctx context.Context, f Features) (Prediction, error) {
	var resp predictResponse
	err := s.api.Do(ctx, apiclient.Call{
		Method: http.MethodPost,
		Path:   "/predict",
		Body: predictRequest{
			Type:           f.Type,
			Amount:         f.Amount,
			OldBalanceOrig: f.OldBalanceOrig,
			NewBalanceOrig: f.NewBalanceOrig,
			OldBalanceDest: f.OldBalanceDest,
			NewBalanceDest: f.NewBalanceDest,
		},
	}, &resp)
	if err != nil {
		return Prediction{}, err
	}
	if resp.Error != "" {
		return Prediction{}, &ScoringError{Message: resp.Error}
	}
	return Prediction{IsFraud: resp.IsFraud, Probability: resp.Probability, Confidence: resp.Confidence}, nil
}

// ScoringError is a failure reported by the model server itself.
type ScoringError struct {
	Message string
}

func (e *ScoringError) Error() string {
	return "scoring failed: " + e.Message
}
