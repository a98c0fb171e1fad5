package top

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/rileyhilliard/treetop/internal/config"
	"github.com/rileyhilliard/treetop/internal/logger"
	"github.com/rileyhilliard/treetop/internal/refresh"
)

// Options controls how Run presents the cycle.
type Options struct {
	Interval time.Duration
	Timeout  time.Duration
	// Once prints a single refreshed frame instead of starting the TUI.
	Once bool
	// Output defaults to os.Stdout.
	Output io.Writer
	// ConfigPath, when set, receives the sort of every screen whose sort
	// changed during the session.
	ConfigPath string
	Log        logger.Logger
}

// Run shows the cycle until the user quits or ctx is cancelled. When Once
// is set or the output is not a terminal, one frame is printed instead.
func Run(ctx context.Context, cycle *refresh.Cycle, opts Options) error {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	log := opts.Log
	if log == nil {
		log = logger.Noop()
	}

	if opts.Once || !isTerminal(out) {
		runCtx := ctx
		if opts.Timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
			defer cancel()
		}
		frame, err := cycle.Run(runCtx)
		if err != nil {
			return err
		}
		return PrintFrame(out, frame)
	}

	initial := cycle.SortStates()
	p := tea.NewProgram(
		NewModel(ctx, cycle, opts.Interval, opts.Timeout),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithOutput(out),
	)
	final, err := p.Run()
	saveSorts(opts.ConfigPath, initial, cycle.SortStates(), log)

	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}
	if m, ok := final.(Model); ok && m.Err() != nil && !errors.Is(m.Err(), context.Canceled) {
		return m.Err()
	}
	return nil
}

// saveSorts writes back the sort of each screen that changed. Failures are
// only logged.
func saveSorts(path string, before, after map[string]config.SortConfig, log logger.Logger) {
	if path == "" {
		return
	}
	for name, sort := range after {
		if before[name] == sort {
			continue
		}
		if err := config.SaveSort(path, name, sort.Key, sort.Direction); err != nil {
			log.Warn("could not save sort for screen %s: %v", name, err)
			return
		}
		log.Debug("saved sort %s %s for screen %s", sort.Key, sort.Direction, name)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
