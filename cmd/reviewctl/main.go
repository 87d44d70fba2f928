// Command reviewctl drives the draft review console from a terminal.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jonesrussell/north-cloud/draft-review/internal/apperrors"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", describeError(err))
		os.Exit(1)
	}
}

// describeError adds a hint for the failures an operator can act on.
func describeError(err error) string {
	switch {
	case apperrors.IsUnauthorized(err):
		return fmt.Sprintf("%v (token rejected; mint one with `reviewctl token` or set REVIEW_TOKEN)", err)
	case apperrors.IsNotFound(err):
		return fmt.Sprintf("%v (the draft may have been deleted; run `reviewctl list`)", err)
	default:
		return err.Error()
	}
}
