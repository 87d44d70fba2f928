package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jonesrussell/north-cloud/draft-review/internal/client"
	"github.com/jonesrussell/north-cloud/draft-review/internal/config"
	"github.com/jonesrussell/north-cloud/draft-review/internal/logger"
	"github.com/jonesrussell/north-cloud/draft-review/internal/review"
	"github.com/jonesrussell/north-cloud/draft-review/internal/session"
	"github.com/spf13/cobra"
)

const defaultAPIURL = "http://localhost:8095"

// options are the persistent flags shared by every command.
type options struct {
	apiURL   string
	token    string
	parallel bool
	limit    int
	logLevel string
}

// app is what every command runs against.
type app struct {
	console *review.Console
	guard   *session.Guard
	log     logger.Logger
	out     io.Writer
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "reviewctl",
		Short:         "Review machine-extracted opportunity drafts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.apiURL, "api", envOr("REVIEW_API_URL", defaultAPIURL), "draft review service URL")
	flags.StringVar(&opts.token, "token", os.Getenv("REVIEW_TOKEN"), "bearer token")
	flags.BoolVar(&opts.parallel, "parallel", os.Getenv("REVIEW_REFETCH_MODE") == config.RefetchParallel,
		"refetch list and stats in parallel after writes")
	flags.IntVar(&opts.limit, "limit", 0, "page size")
	flags.StringVar(&opts.logLevel, "log-level", envOr("LOG_LEVEL", "warn"), "log level")

	newApp := func(cmd *cobra.Command) (*app, error) {
		return buildApp(opts, cmd.OutOrStdout())
	}

	root.AddCommand(
		newListCommand(newApp),
		newStatsCommand(newApp),
		newShowCommand(newApp),
		newApproveCommand(newApp),
		newRejectCommand(newApp),
		newEditCommand(newApp),
		newRegenerateCommand(newApp),
		newDeleteCommand(newApp),
		newBulkReviewCommand(newApp),
		newBulkDeleteCommand(newApp),
		newWatchCommand(newApp),
		newTokenCommand(),
	)
	return root
}

type appFactory func(cmd *cobra.Command) (*app, error)

func buildApp(opts *options, out io.Writer) (*app, error) {
	log, err := logger.New(logger.Config{Level: opts.logLevel, OutputPaths: []string{"stderr"}})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	guard := session.NewGuard(true)
	tokens, err := tokenSource(opts.token, guard)
	if err != nil {
		return nil, err
	}

	mode := review.RefetchSequential
	if opts.parallel {
		mode = review.RefetchParallel
	}

	rc := client.New(opts.apiURL, client.WithTokenSource(tokens), client.WithGuard(guard))
	console := review.NewConsole(rc,
		review.WithRefetchMode(mode),
		review.WithSession(guard),
		review.WithLogger(log),
		review.WithDefaultLimit(opts.limit),
	)

	return &app{console: console, guard: guard, log: log, out: out}, nil
}

// tokenSource tracks expiry for JWTs and passes anything else through unchanged.
func tokenSource(raw string, guard *session.Guard) (session.TokenSource, error) {
	if strings.Count(raw, ".") != 2 {
		return session.StaticToken(raw), nil
	}
	t, err := session.NewJWTToken(raw, guard)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return t, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
