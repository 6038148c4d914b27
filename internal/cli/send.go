package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/congo-pay/fraudguard/internal/dashboard"
	"github.com/congo-pay/fraudguard/internal/transaction"
)

func newSendCommand(app func() *App) *cobra.Command {
	var fields transaction.Fields
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Submit a transaction for fraud scoring",
		Long: `Submit a transaction for fraud scoring. The sender defaults to the
signed-in account. Types: TRANSFER, PAYMENT, DEBIT, CASH_OUT, CASH_IN.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app()
			if fields.SenderEmail == "" {
				if view := a.Session.View(); view.Identity != nil {
					fields.SenderEmail = view.Identity.Subject
				}
			}

			form := dashboard.NewForm(a.Submitter, a.Session, nil)
			form.SetFields(fields)
			result, err := form.Submit(cmd.Context())
			if err != nil {
				return err
			}
			if err := dashboard.Render(cmd.OutOrStdout(), result); err != nil {
				return fmt.Errorf("render result: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&fields.SenderEmail, "from", "", "Sender email (defaults to the signed-in account)")
	cmd.Flags().StringVar(&fields.ReceiverEmail, "to", "", "Receiver email (required)")
	cmd.Flags().StringVar(&fields.Amount, "amount", "", "Amount, rounded to 2 decimals (required)")
	cmd.Flags().StringVar(&fields.Description, "description", "", "Optional description")
	cmd.Flags().StringVar(&fields.Type, "type", string(transaction.TypeTransfer), "Transaction type")
	return cmd
}
