package suite

import (
	"fmt"

	"github.com/genomehc/hcverify/cmd/internal/cmdutil"
	"github.com/genomehc/hcverify/config"
	"github.com/genomehc/hcverify/dbconn"
	"github.com/genomehc/hcverify/verify"
	"github.com/genomehc/hcverify/verify/inconsistency"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func Command() *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "suite <file>",
		Short: "Run every check of a suite file.",
		Long: `Suite runs the checks declared in a YAML, JSON or TOML file concurrently. Top level
settings of the file may be overridden with HCVERIFY_ environment variables.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger, err := cmdutil.Logger()
			if err != nil {
				return err
			}
			logger = logger.With().Str("run_id", uuid.New().String()).Logger()
			cmdutil.RunMetricsServer(logger)

			s, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("filter") {
				s.Filter = filter
			}
			checks, err := s.VerifyChecks()
			if err != nil {
				return err
			}

			reporter := cmdutil.Reporter(logger)
			defer reporter.Close()

			ids := make([]dbconn.ID, len(s.Sources))
			connStrs := make([]string, len(s.Sources))
			for i, src := range s.Sources {
				ids[i], connStrs[i] = dbconn.ID(src.Name), src.URL
			}
			conns, err := cmdutil.ConnectAll(ctx, logger, ids, connStrs)
			if err != nil {
				return err
			}
			defer cmdutil.CloseAll(ctx, conns)
			byName := make(map[string]dbconn.Conn, len(conns))
			for i, conn := range conns {
				byName[s.Sources[i].Name] = conn
			}

			reporter.Report(inconsistency.StatusReport{
				Info: fmt.Sprintf("running %d of %d checks", len(checks), len(s.Checks)),
			})
			results, err := verify.RunSuite(ctx, checks, byName, reporter, logger, s.Opts()...)
			if err != nil {
				return err
			}
			return cmdutil.PrintResults(cmd.OutOrStdout(), results)
		},
	}

	cmd.PersistentFlags().StringVar(
		&filter,
		"filter",
		config.DefaultFilterString,
		"POSIX regexp filter for the names of checks to run",
	)
	cmdutil.RegisterLoggerFlags(cmd)
	cmdutil.RegisterMetricsFlags(cmd)
	cmdutil.RegisterRetryFlags(cmd)
	return cmd
}
