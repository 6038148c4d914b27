package dashboard

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/congo-pay/fraudguard/internal/transaction"
)

// Render writes a text summary of a scored transaction.
func Render(w io.Writer, r transaction.Result) error {
	if r.IsFraudSuspected {
		fmt.Fprintln(w, "Transaction Under Review")
		fmt.Fprintln(w, "This transaction has been flagged for manual review due to fraud detection.")
		fmt.Fprintln(w, "It will be processed after verification.")
	} else {
		fmt.Fprintln(w, "Transaction Successful")
		fmt.Fprintln(w, "Your transaction has been processed successfully.")
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Transaction ID:\t#%d\n", r.ID)
	fmt.Fprintf(tw, "Amount:\t%s\n", r.Amount.StringFixed(2))
	fmt.Fprintf(tw, "From:\t%s\n", r.SenderEmail)
	fmt.Fprintf(tw, "To:\t%s\n", r.ReceiverEmail)
	fmt.Fprintf(tw, "Type:\t%s\n", r.Type)
	if r.Description != "" {
		fmt.Fprintf(tw, "Description:\t%s\n", r.Description)
	}
	if r.HasRisk() {
		fmt.Fprintf(tw, "Risk Level:\t%s\n", r.Risk)
		fmt.Fprintf(tw, "Fraud Score:\t%.1f%%\n", *r.FraudProbability*100)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if r.RequiresManualReview {
		fmt.Fprintln(w, "Requires manual review")
	}
	if r.FraudDetectionError != "" {
		fmt.Fprintf(w, "Fraud scoring unavailable: %s\n", r.FraudDetectionError)
	}
	return nil
}
