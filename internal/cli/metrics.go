package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/treetop/internal/config"
	"github.com/rileyhilliard/treetop/internal/logger"
	"github.com/rileyhilliard/treetop/internal/metric"
	"github.com/rileyhilliard/treetop/internal/pcp"
	"github.com/rileyhilliard/treetop/internal/util"
)

var (
	metricsSource  SourceFlags
	metricsMissing bool
)

// metricsCmd lists every metric treetop reads and whether the source has it.
var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "List the metrics treetop reads and whether the source exports them",
	Long: `Connect to the configured source and resolve every metric the screens,
columns and meters need.

Examples:
  treetop metrics
  treetop metrics --missing
  treetop metrics --archive recording.yaml --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig(func(cfg *config.Config) error {
			return ApplySourceFlags(cfg, metricsSource)
		})
		if err != nil {
			return err
		}
		s, err := openSession(cmd.Context(), cfg, path, logger.Default())
		if err != nil {
			return err
		}
		defer s.Close()

		infos := collectMetrics(s.reg, metricsMissing)
		if MachineMode() {
			return WriteJSONSuccess(cmd.OutOrStdout(), infos)
		}
		return writeMetrics(cmd.OutOrStdout(), infos, s.reg)
	},
}

func init() {
	AddSourceFlags(metricsCmd, &metricsSource)
	metricsCmd.Flags().BoolVar(&metricsMissing, "missing", false, "only list metrics the source does not export")
	metricsCmd.Flags().BoolVar(&machineMode, "json", false, "output as JSON")
	rootCmd.AddCommand(metricsCmd)
}

// MetricInfo describes one registered metric.
type MetricInfo struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	PMID      string `json:"pmid,omitempty"`
	Type      string `json:"type,omitempty"`
	Instances bool   `json:"instances"`
	Semantics string `json:"semantics,omitempty"`
	Units     string `json:"units,omitempty"`
}

func collectMetrics(reg *metric.Registry, missingOnly bool) []MetricInfo {
	infos := make([]MetricInfo, 0, reg.Count())
	for i := 0; i < reg.Count(); i++ {
		id := metric.ID(i)
		available := reg.Available(id)
		if missingOnly && available {
			continue
		}
		info := MetricInfo{Name: reg.Name(id), Available: available}
		if available {
			d := reg.Descriptor(id)
			info.PMID = pcp.FormatPMID(d.PMID)
			info.Type = d.Type.String()
			info.Instances = !d.Scalar()
			info.Semantics = d.Semantics
			info.Units = d.Units
		}
		infos = append(infos, info)
	}
	return infos
}

func writeMetrics(w io.Writer, infos []MetricInfo, reg *metric.Registry) error {
	width := 0
	for _, info := range infos {
		width = max(width, len(info.Name))
	}

	for _, info := range infos {
		if !info.Available {
			fmt.Fprintf(w, "✗ %-*s  not exported\n", width, info.Name)
			continue
		}
		kind := "scalar"
		if info.Instances {
			kind = "instances"
		}
		fmt.Fprintf(w, "✓ %-*s  %-8s %-7s %-9s %s\n", width, info.Name, info.PMID, info.Type, kind, info.Units)
	}

	fmt.Fprintf(w, "\n%d of %d %s resolved\n",
		reg.Resolved(), reg.Count(), util.Pluralize(reg.Count(), "metric", "metrics"))
	return nil
}
