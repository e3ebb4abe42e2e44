package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/framework-cg/pgload/internal/runlog"
	"github.com/framework-cg/pgload/pkg/pgload"
)

var trackingCmd = &cobra.Command{
	Use:   "tracking",
	Short: "Manage the run tracking tables",
}

var trackingInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create processamento and processamento_log if missing",
	Long: `Init creates the run tracking tables in the current schema:

  processamento      one row per run (process, start, end, user, status)
  processamento_log  events of a run (level, stage, code, message, jsonb detail)

Existing tables are left as they are. --without-message omits the
processamento.mensagem column that stores each run's log summary.`,
	Args: cobra.NoArgs,
	RunE: runTrackingInit,
}

type trackingFlagValues struct {
	conn           connectionFlags
	withoutMessage bool
	timeout        time.Duration
}

var trackingFlags trackingFlagValues

func init() {
	rootCmd.AddCommand(trackingCmd)
	trackingCmd.AddCommand(trackingInitCmd)
	addConnectionFlags(trackingInitCmd, &trackingFlags.conn)

	trackingInitCmd.Flags().BoolVar(&trackingFlags.withoutMessage, "without-message", false,
		"Do not add the processamento.mensagem column")
	trackingInitCmd.Flags().DurationVar(&trackingFlags.timeout, "timeout", time.Minute, "Maximum run time")
}

func runTrackingInit(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.ErrOrStderr(), trackingFlags.conn)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := commandContext(cmd.Context(), trackingFlags.timeout)
	defer cancel()

	pool, err := s.pool(ctx)
	if err != nil {
		return err
	}
	if err := runlog.CreateSchema(ctx, pool, !trackingFlags.withoutMessage); err != nil {
		return fmt.Errorf("%w: %w", err, pgload.ErrExecutionFailed)
	}
	s.logger.Info("Tracking tables ready in database %s", s.conn.Database)
	return nil
}
