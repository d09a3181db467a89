package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/genomehc/hcverify/cmd/internal/cmdutil"
	"github.com/genomehc/hcverify/cmd/keys"
	"github.com/genomehc/hcverify/cmd/sources"
	"github.com/genomehc/hcverify/cmd/suite"
	"github.com/genomehc/hcverify/cmd/tables"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "hcverify",
	Short: "Health checks across relational sources",
	Long: `hcverify checks that tables, keys and query results agree across relational
sources, reporting every inconsistency found up to a limit.`,
	SilenceUsage: true,
}

// Execute runs the command line. The process exits with status 1 when a
// check did not pass and 2 on any other error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		if errors.Is(err, cmdutil.ErrChecksFailed) {
			os.Exit(1)
		}
		os.Exit(2)
	}
}

func init() {
	rootCmd.AddCommand(tables.Command())
	rootCmd.AddCommand(keys.Command())
	rootCmd.AddCommand(sources.Command())
	rootCmd.AddCommand(suite.Command())
}
