package cli

import (
	"github.com/spf13/cobra"
)

func newRootCommand(boot Bootstrap, app **App) *cobra.Command {
	root := &cobra.Command{
		Use:   "fraudguard",
		Short: "FraudGuard - fraud-aware payments client",
		Long: `fraudguard signs in to the payments service, keeps the session between
invocations and submits transactions for fraud scoring.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := boot(cmd.Context())
			if err != nil {
				return err
			}
			*app = a
			// Commands only run once the persisted session has been restored.
			a.Session.Restore(cmd.Context())
			return a.Session.WaitReady(cmd.Context())
		},
	}

	get := func() *App { return *app }
	root.AddCommand(
		newLoginCommand(get),
		newRegisterCommand(get),
		newLogoutCommand(get),
		newWhoamiCommand(get),
		newSendCommand(get),
		newRiskCommand(),
	)
	return root
}
