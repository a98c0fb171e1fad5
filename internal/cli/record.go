package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/treetop/internal/config"
	"github.com/rileyhilliard/treetop/internal/errors"
	"github.com/rileyhilliard/treetop/internal/logger"
	"github.com/rileyhilliard/treetop/internal/metric"
	"github.com/rileyhilliard/treetop/internal/pcp"
	"github.com/rileyhilliard/treetop/internal/util"
)

var (
	recordSource   SourceFlags
	recordCount    int
	recordInterval time.Duration
)

// recordCmd samples the source into an archive that --archive can replay.
var recordCmd = &cobra.Command{
	Use:   "record <file>",
	Short: "Record samples of every metric treetop reads into an archive",
	Long: `Sample the configured source and write the samples to a YAML archive.
Replay it later with 'treetop --archive <file>'.

Examples:
  treetop record lab.yaml
  treetop record lab.yaml --count 120 --interval 2s
  treetop record lab.yaml --ssh gpu-box`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if recordCount < 1 {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Can't record %d samples", recordCount),
				"Use --count 1 or more.")
		}
		if recordInterval < config.MinRefreshInterval {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Interval %s is too short", recordInterval),
				fmt.Sprintf("Use at least %s.", config.MinRefreshInterval))
		}

		cfg, path, err := loadConfig(func(cfg *config.Config) error {
			return ApplySourceFlags(cfg, recordSource)
		})
		if err != nil {
			return err
		}
		s, err := openSession(cmd.Context(), cfg, path, logger.Default())
		if err != nil {
			return err
		}
		defer s.Close()

		names := registeredNames(s.reg)
		fmt.Fprintf(cmd.OutOrStdout(), "Recording %d %s from %s...\n",
			recordCount, util.Pluralize(recordCount, "sample", "samples"), s.plat.Provider().Source().Name())

		f, err := pcp.Record(cmd.Context(), s.plat.Provider().Source(), names, recordCount, recordInterval)
		if err != nil && f == nil {
			return errors.WrapWithCode(err, errors.ErrFetch,
				"Recording failed",
				"Check the source with 'treetop metrics'.")
		}
		if saveErr := f.Save(args[0]); saveErr != nil {
			return errors.WrapWithCode(saveErr, errors.ErrConfig,
				"Can't write archive "+args[0],
				"Check the directory exists and is writable.")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d %s of %d metrics to %s\n",
			len(f.Samples), util.Pluralize(len(f.Samples), "sample", "samples"), len(f.Metrics), args[0])
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrFetch,
				"Recording stopped early",
				"The samples taken so far were saved.")
		}
		return nil
	},
}

func init() {
	AddSourceFlags(recordCmd, &recordSource)
	recordCmd.Flags().IntVarP(&recordCount, "count", "n", 60, "number of samples to take")
	recordCmd.Flags().DurationVar(&recordInterval, "interval", time.Second, "delay between samples")
	rootCmd.AddCommand(recordCmd)
}

// registeredNames returns the name of every metric in reg, in ID order.
func registeredNames(reg *metric.Registry) []string {
	names := make([]string, reg.Count())
	for i := range names {
		names[i] = reg.Name(metric.ID(i))
	}
	return names
}
