package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/framework-cg/pgload/internal/extract"
	"github.com/framework-cg/pgload/internal/files/filesystem"
)

var moveCmd = &cobra.Command{
	Use:   "move <name>",
	Short: "Archive a downloaded export under a dated name",
	Long: `Move finds the .csv, .xlsx or .xls file in --from whose name matches
<name> (ignoring case and extension) and moves it into --to as
<name>_<date><ext>, lowercased with spaces replaced by underscores.
The new path is printed to stdout.

Example:
  pgload move "Relatorio Vendas.csv" --from ~/Downloads --to ./data --date 20240131
  # ./data/relatorio_vendas_20240131.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runMove,
}

type moveFlagValues struct {
	from string
	to   string
	date string
}

var moveFlags moveFlagValues

func init() {
	rootCmd.AddCommand(moveCmd)

	moveCmd.Flags().StringVar(&moveFlags.from, "from", "", "Directory to search (required)")
	moveCmd.Flags().StringVar(&moveFlags.to, "to", "", "Destination directory (required)")
	moveCmd.Flags().StringVar(&moveFlags.date, "date", "", "Date suffix (default: today as YYYYMMDD)")
	_ = moveCmd.MarkFlagRequired("from")
	_ = moveCmd.MarkFlagRequired("to")
}

func runMove(cmd *cobra.Command, args []string) error {
	logger, closeLog, err := newLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	date := moveFlags.date
	if date == "" {
		date = time.Now().Format("20060102")
	}

	target, err := extract.NewMover(filesystem.NewOSFileSystem(), logger).Move(moveFlags.from, args[0], moveFlags.to, date)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), target)
	return nil
}
