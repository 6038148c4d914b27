// Package cli implements the fraudguard command line client.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/congo-pay/fraudguard/internal/apiclient"
	"github.com/congo-pay/fraudguard/internal/auth"
	"github.com/congo-pay/fraudguard/internal/config"
	"github.com/congo-pay/fraudguard/internal/failure"
	"github.com/congo-pay/fraudguard/internal/session"
	"github.com/congo-pay/fraudguard/internal/token"
	"github.com/congo-pay/fraudguard/internal/tokenstore"
	"github.com/congo-pay/fraudguard/internal/transaction"
)

// App holds the collaborators shared by every command.
type App struct {
	Session   *session.Manager
	Submitter *transaction.Submitter
	Logger    *slog.Logger

	close func() error
}

// Close releases the token store.
func (a *App) Close() error {
	if a == nil || a.close == nil {
		return nil
	}
	return a.close()
}

// Bootstrap builds the App for one invocation.
type Bootstrap func(ctx context.Context) (*App, error)

// NewApp wires the session and transaction layers from cfg. Extra client
// options are applied before the configured timeout.
func NewApp(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...apiclient.Option) (*App, error) {
	store, closeStore, err := tokenstore.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open token store: %w", err)
	}

	opts = append(opts, apiclient.WithTimeout(cfg.RequestTimeout), apiclient.WithLogger(logger))
	api, err := apiclient.New(cfg.APIBaseURL, opts...)
	if err != nil {
		_ = closeStore()
		return nil, err
	}

	return &App{
		Session:   session.NewManager(store, auth.NewGateway(api), token.NewCodec(), logger),
		Submitter: transaction.NewSubmitter(api, transaction.WithLogger(logger)),
		Logger:    logger,
		close:     closeStore,
	}, nil
}

// Execute runs one command line against the App produced by boot. Errors are
// written to stderr as their display message.
func Execute(ctx context.Context, boot Bootstrap, args []string, stdout, stderr io.Writer) error {
	var app *App
	root := newRootCommand(boot, &app)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	defer func() {
		if err := app.Close(); err != nil && app.Logger != nil {
			app.Logger.Warn("close token store", slog.Any("error", err))
		}
	}()

	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", failure.Message(err))
	}
	return err
}
