package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/treetop/internal/config"
	"github.com/rileyhilliard/treetop/internal/errors"
	"github.com/rileyhilliard/treetop/internal/screen"
	"github.com/rileyhilliard/treetop/internal/util"
)

// SourceFlags holds the flags that pick a metric source.
type SourceFlags struct {
	Host    string
	Archive string
	SSH     []string
	Local   bool
	Loop    bool
}

// TopFlags holds the flags of the table view.
type TopFlags struct {
	SourceFlags
	Delay     time.Duration
	Screen    string
	SortKey   string
	Once      bool
	Telemetry string
}

var topFlagValues TopFlags

// AddSourceFlags registers --host, --archive, --ssh, --local and --loop on a command.
func AddSourceFlags(cmd *cobra.Command, flags *SourceFlags) {
	cmd.Flags().StringVar(&flags.Host, "host", "", "pmproxy URL, e.g. http://localhost:44322")
	cmd.Flags().StringVar(&flags.Archive, "archive", "", "replay a recording made with 'treetop record'")
	cmd.Flags().StringSliceVar(&flags.SSH, "ssh", nil, "run pminfo on this SSH host (repeat for fallbacks)")
	cmd.Flags().BoolVar(&flags.Local, "local", false, "run pminfo on this machine")
	cmd.Flags().BoolVar(&flags.Loop, "loop", false, "restart the archive after its last sample")
}

func addTopFlags(cmd *cobra.Command, flags *TopFlags) {
	AddSourceFlags(cmd, &flags.SourceFlags)
	cmd.Flags().DurationVarP(&flags.Delay, "delay", "d", 0, "delay between refreshes (e.g. 1.5s, 500ms)")
	cmd.Flags().StringVar(&flags.Screen, "screen", "", "screen to start on")
	cmd.Flags().StringVar(&flags.SortKey, "sort-key", "", "column to sort the starting screen by")
	cmd.Flags().BoolVar(&flags.Once, "once", false, "print one refreshed table and exit")
	cmd.Flags().StringVar(&flags.Telemetry, "telemetry", "", "serve Prometheus metrics on this address, e.g. :9411")
}

// ApplySourceFlags overrides the configured source with the one the flags
// name. At most one source flag may be given.
func ApplySourceFlags(cfg *config.Config, flags SourceFlags) error {
	var picked []string
	if flags.Host != "" {
		picked = append(picked, "--host")
		cfg.Source.Kind = config.SourceHost
		cfg.Source.Host = flags.Host
	}
	if flags.Archive != "" {
		picked = append(picked, "--archive")
		cfg.Source.Kind = config.SourceArchive
		cfg.Source.Archive = config.ExpandPath(flags.Archive)
	}
	if len(flags.SSH) > 0 {
		picked = append(picked, "--ssh")
		cfg.Source.Kind = config.SourceSSH
		cfg.Source.SSH = flags.SSH
	}
	if flags.Local {
		picked = append(picked, "--local")
		cfg.Source.Kind = config.SourceLocal
	}
	if len(picked) > 1 {
		return errors.New(errors.ErrConfig,
			strings.Join(picked, " and ")+" can't be used together",
			"Pick one source: --host, --archive, --ssh or --local.")
	}
	if flags.Loop {
		cfg.Source.Loop = true
	}
	return nil
}

// ApplyTopFlags overrides cfg with the flags the user set. changed reports
// whether a flag was given on the command line.
func ApplyTopFlags(cfg *config.Config, flags TopFlags, changed func(string) bool) error {
	if err := ApplySourceFlags(cfg, flags.SourceFlags); err != nil {
		return err
	}
	if changed("delay") {
		if flags.Delay < config.MinRefreshInterval {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Delay %s is too short", flags.Delay),
				fmt.Sprintf("Use at least %s.", config.MinRefreshInterval))
		}
		cfg.Refresh.Interval = flags.Delay
	}
	if changed("telemetry") {
		cfg.Telemetry.Listen = flags.Telemetry
	}
	if colorArg != "" {
		cfg.Output.Color = colorArg
	}
	return nil
}

// selectStart switches to the requested screen and sort. Unknown names are
// reported with the closest valid one.
func selectStart(set *screen.Set, name, sortKey string) error {
	if name != "" && !set.Select(name) {
		names := make([]string, 0, len(set.Screens()))
		for _, sc := range set.Screens() {
			names = append(names, sc.Name)
		}
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("No screen named '%s'", name),
			suggestion(name, names, "Screens: "+strings.Join(names, ", ")))
	}

	if sortKey == "" {
		return nil
	}
	if err := set.SortBy(strings.ToUpper(sortKey)); err != nil {
		sc := set.Active()
		names := make([]string, 0, len(sc.Columns))
		for _, f := range sc.Columns {
			names = append(names, set.Fields().Info(f).Name)
		}
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Screen %s has no column '%s'", sc.Name, sortKey),
			suggestion(strings.ToUpper(sortKey), names, "Columns: "+strings.Join(names, ", ")))
	}
	return nil
}

func suggestion(input string, candidates []string, fallback string) string {
	if similar := util.SuggestSimilar(input, candidates, 1); len(similar) > 0 {
		return fmt.Sprintf("Did you mean '%s'?", similar[0])
	}
	return fallback
}

// applyColor sets the lipgloss color profile for output.color. "auto"
// leaves terminal detection to lipgloss.
func applyColor(mode string) {
	switch mode {
	case "never":
		lipgloss.SetColorProfile(termenv.Ascii)
	case "always":
		lipgloss.SetColorProfile(termenv.TrueColor)
	}
}
