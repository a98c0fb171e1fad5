package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Set from main, which receives them through -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of treetop.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if MachineMode() {
			return WriteJSONSuccess(cmd.OutOrStdout(), currentBuild())
		}
		printVersion(cmd, versionShort)
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "print only the version number")
	versionCmd.Flags().BoolVar(&machineMode, "json", false, "output as JSON")
	rootCmd.AddCommand(versionCmd)
}

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Built   string `json:"built"`
	Go      string `json:"go"`
	Target  string `json:"target"`
}

func currentBuild() BuildInfo {
	return BuildInfo{
		Version: formatVersion(version),
		Commit:  commit,
		Built:   date,
		Go:      runtime.Version(),
		Target:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func printVersion(cmd *cobra.Command, short bool) {
	w := cmd.OutOrStdout()
	if short {
		fmt.Fprintln(w, version)
		return
	}
	b := currentBuild()
	fmt.Fprintf(w, "treetop %s\n", b.Version)
	fmt.Fprintf(w, "commit: %s\n", b.Commit)
	fmt.Fprintf(w, "built: %s\n", b.Built)
	fmt.Fprintf(w, "go: %s\n", b.Go)
	fmt.Fprintf(w, "os/arch: %s\n", b.Target)
}

// formatVersion adds the v prefix to release versions.
func formatVersion(v string) string {
	if v == "" || v == "dev" || v[0] == 'v' {
		return v
	}
	return "v" + v
}

// SetVersionInfo records build metadata; main calls it before Execute.
func SetVersionInfo(v, c, d string) {
	version, commit, date = v, c, d
	rootCmd.Version = formatVersion(v)
}

// GetVersion returns the raw version string.
func GetVersion() string {
	return version
}
