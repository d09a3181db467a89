package sources

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/genomehc/hcverify/cmd/internal/cmdutil"
	"github.com/genomehc/hcverify/dbconn"
	"github.com/genomehc/hcverify/verify"
	"github.com/spf13/cobra"
)

func Command() *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "sources [flags] <url>...",
		Short: "Check a query returns the same rows on every source.",
		Long: `Sources runs --query on every source given as an argument and reports the first
row at which a source differs from the first source. Each argument is a URL, optionally
prefixed with id===.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger, err := cmdutil.Logger()
			if err != nil {
				return err
			}
			cmdutil.RunMetricsServer(logger)
			if query == "" {
				return errors.New("--query must be set")
			}

			reporter := cmdutil.Reporter(logger)
			defer reporter.Close()

			ids := make([]dbconn.ID, len(args))
			connStrs := make([]string, len(args))
			for i, arg := range args {
				ids[i], connStrs[i] = cmdutil.ParseSourceArg(arg)
				if ids[i] == "" {
					ids[i] = dbconn.ID(fmt.Sprintf("source%d", i+1))
				}
			}
			conns, err := cmdutil.ConnectAll(ctx, logger, ids, connStrs)
			if err != nil {
				return err
			}
			defer cmdutil.CloseAll(ctx, conns)

			res, err := verify.CompareAcrossSources(ctx, query, conns, reporter, logger)
			return cmdutil.PrintResults(cmd.OutOrStdout(), []verify.CheckResult{
				{Name: "sources", Result: res, Err: err},
			})
		},
	}

	cmd.PersistentFlags().StringVar(
		&query,
		"query",
		"",
		"query to run on every source; it should have an ORDER BY",
	)
	cmdutil.RegisterLoggerFlags(cmd)
	cmdutil.RegisterMetricsFlags(cmd)
	cmdutil.RegisterRetryFlags(cmd)
	return cmd
}
