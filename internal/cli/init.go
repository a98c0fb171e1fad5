package cli

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/rileyhilliard/treetop/internal/config"
	"github.com/rileyhilliard/treetop/internal/errors"
	"github.com/rileyhilliard/treetop/pkg/sshutil"
)

var (
	initSource         SourceFlags
	initForce          bool
	initNonInteractive bool
)

// initCmd creates a new .treetop.yaml configuration
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create .treetop.yaml configuration",
	Long: `Create a .treetop.yaml file in the current directory.

Prompts for where metrics come from: a pmproxy URL, an SSH host from
~/.ssh/config, pminfo on this machine, or a recorded archive.

Examples:
  treetop init
  treetop init --host http://pcp.lab:44322
  treetop init --ssh gpu-box --non-interactive`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Init(InitOptions{
			Source:         initSource,
			Overwrite:      initForce,
			NonInteractive: initNonInteractive || !term.IsTerminal(int(os.Stdin.Fd())),
			Dir:            ".",
		})
	},
}

func init() {
	AddSourceFlags(initCmd, &initSource)
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config")
	initCmd.Flags().BoolVar(&initNonInteractive, "non-interactive", false, "skip prompts and use flags and defaults")
	rootCmd.AddCommand(initCmd)
}

// InitOptions holds options for the init command.
type InitOptions struct {
	Source         SourceFlags
	Overwrite      bool
	NonInteractive bool
	// Dir is where the config file is written.
	Dir string
}

// InitAnswers are the values the config file is built from.
type InitAnswers struct {
	Kind     string
	Host     string
	SSH      string
	Archive  string
	Interval string
}

// initFile is the written config. Durations are kept as strings so the
// file reads "1.5s" rather than nanoseconds.
type initFile struct {
	Version int `yaml:"version"`
	Source  struct {
		Kind    string   `yaml:"kind"`
		Host    string   `yaml:"host,omitempty"`
		Archive string   `yaml:"archive,omitempty"`
		SSH     []string `yaml:"ssh,omitempty"`
		Timeout string   `yaml:"timeout"`
	} `yaml:"source"`
	Refresh struct {
		Interval string `yaml:"interval"`
	} `yaml:"refresh"`
	Output struct {
		Color string `yaml:"color"`
	} `yaml:"output"`
}

// Init creates a new .treetop.yaml configuration file.
func Init(opts InitOptions) error {
	configPath := filepath.Join(opts.Dir, config.ConfigFileName)

	if _, err := os.Stat(configPath); err == nil && !opts.Overwrite {
		if opts.NonInteractive {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Config file already exists: %s", configPath),
				"Use --force to overwrite")
		}
		var overwrite bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Config file '%s' already exists. Overwrite?", config.ConfigFileName)).
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Try running with --force to overwrite")
		}
		if !overwrite {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	answers := defaultAnswers(opts.Source)
	if !opts.NonInteractive {
		if err := promptAnswers(&answers); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Check terminal compatibility or use --non-interactive")
		}
	}

	content, err := renderInitConfig(answers)
	if err != nil {
		return err
	}
	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Failed to write config file: %s", configPath),
			"Check directory permissions")
	}

	fmt.Printf("✓ Created %s\n\n", configPath)
	fmt.Println("Next steps:")
	fmt.Println("  treetop metrics  - Check the source exports what treetop reads")
	fmt.Println("  treetop          - Start the live view")
	return nil
}

// defaultAnswers seeds the answers from the source flags.
func defaultAnswers(flags SourceFlags) InitAnswers {
	d := config.DefaultConfig()
	a := InitAnswers{
		Kind:     d.Source.Kind,
		Host:     d.Source.Host,
		Interval: d.Refresh.Interval.String(),
	}
	switch {
	case flags.Host != "":
		a.Kind, a.Host = config.SourceHost, flags.Host
	case flags.Archive != "":
		a.Kind, a.Archive = config.SourceArchive, flags.Archive
	case len(flags.SSH) > 0:
		a.Kind, a.SSH = config.SourceSSH, strings.Join(flags.SSH, ",")
	case flags.Local:
		a.Kind = config.SourceLocal
	}
	return a
}

func promptAnswers(a *InitAnswers) error {
	kindForm := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Where do metrics come from?").
				Options(
					huh.NewOption("pmproxy (HTTP)", config.SourceHost),
					huh.NewOption("pminfo over SSH", config.SourceSSH),
					huh.NewOption("pminfo on this machine", config.SourceLocal),
					huh.NewOption("Recorded archive", config.SourceArchive),
				).
				Value(&a.Kind),
		),
	)
	if err := kindForm.Run(); err != nil {
		return err
	}

	var fields []huh.Field
	switch a.Kind {
	case config.SourceHost:
		fields = append(fields, huh.NewInput().
			Title("pmproxy URL").
			Placeholder("http://localhost:44322").
			Value(&a.Host).
			Validate(validateURL))
	case config.SourceSSH:
		fields = append(fields, sshHostField(a))
	case config.SourceArchive:
		fields = append(fields, huh.NewInput().
			Title("Archive file").
			Description("A recording made with 'treetop record'").
			Value(&a.Archive).
			Validate(required("archive path")))
	}
	fields = append(fields, huh.NewInput().
		Title("Refresh interval").
		Placeholder("1.5s").
		Value(&a.Interval).
		Validate(validateInterval))

	return huh.NewForm(huh.NewGroup(fields...)).Run()
}

// sshHostField offers the aliases from ~/.ssh/config, falling back to free
// text when there are none.
func sshHostField(a *InitAnswers) huh.Field {
	hosts, _ := sshutil.ParseSSHConfig()
	if len(hosts) == 0 {
		return huh.NewInput().
			Title("SSH host or alias").
			Placeholder("user@gpu-box").
			Value(&a.SSH).
			Validate(required("SSH host"))
	}
	options := make([]huh.Option[string], 0, len(hosts))
	for _, h := range hosts {
		options = append(options, huh.NewOption(fmt.Sprintf("%s (%s)", h.Alias, h.Description()), h.Target()))
	}
	return huh.NewSelect[string]().
		Title("SSH host").
		Options(options...).
		Value(&a.SSH)
}

func required(what string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", what)
		}
		return nil
	}
}

func validateURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("enter a URL like http://localhost:44322")
	}
	return nil
}

func validateInterval(s string) error {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("enter a duration like 1.5s")
	}
	if d < config.MinRefreshInterval {
		return fmt.Errorf("use at least %s", config.MinRefreshInterval)
	}
	return nil
}

// renderInitConfig turns answers into the config file contents.
func renderInitConfig(a InitAnswers) ([]byte, error) {
	if err := validateInterval(a.Interval); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Invalid refresh interval '%s'", a.Interval),
			"Use a duration like 1.5s or 2s.")
	}

	d := config.DefaultConfig()
	var f initFile
	f.Version = config.CurrentConfigVersion
	f.Source.Kind = a.Kind
	f.Source.Timeout = d.Source.Timeout.String()
	f.Refresh.Interval = strings.TrimSpace(a.Interval)
	f.Output.Color = d.Output.Color

	switch a.Kind {
	case config.SourceHost:
		if err := validateURL(a.Host); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("Invalid pmproxy URL '%s'", a.Host), "Use a URL like http://localhost:44322.")
		}
		f.Source.Host = strings.TrimSpace(a.Host)
	case config.SourceSSH:
		for _, h := range strings.Split(a.SSH, ",") {
			if h = strings.TrimSpace(h); h != "" {
				f.Source.SSH = append(f.Source.SSH, h)
			}
		}
		if len(f.Source.SSH) == 0 {
			return nil, errors.New(errors.ErrConfig,
				"SSH host is required for the ssh source",
				"Provide --ssh or run interactively")
		}
	case config.SourceArchive:
		if strings.TrimSpace(a.Archive) == "" {
			return nil, errors.New(errors.ErrConfig,
				"Archive path is required for the archive source",
				"Provide --archive or run interactively")
		}
		f.Source.Archive = strings.TrimSpace(a.Archive)
	case config.SourceLocal:
	default:
		return nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown source kind '%s'", a.Kind),
			"Use host, ssh, local or archive.")
	}

	data, err := yaml.Marshal(&f)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to generate config",
			"This shouldn't happen - please report this bug")
	}

	header := `# treetop configuration
# Run 'treetop' to start the live view, 'treetop metrics' to check the source.

`
	return append([]byte(header), data...), nil
}
