package cli

import (
	"context"

	"github.com/rileyhilliard/treetop/internal/config"
	"github.com/rileyhilliard/treetop/internal/logger"
	"github.com/rileyhilliard/treetop/internal/meter"
	"github.com/rileyhilliard/treetop/internal/metric"
	"github.com/rileyhilliard/treetop/internal/pcp"
	"github.com/rileyhilliard/treetop/internal/platform"
	"github.com/rileyhilliard/treetop/internal/refresh"
	"github.com/rileyhilliard/treetop/internal/screen"
	"github.com/rileyhilliard/treetop/internal/telemetry"
	"github.com/rileyhilliard/treetop/internal/top"
)

// session is everything a command needs once the source is connected.
type session struct {
	cfg     *config.Config
	path    string
	reg     *metric.Registry
	screens *screen.Set
	meters  *meter.Set
	plat    *platform.Platform
}

func (s *session) Close() error {
	if s.plat == nil {
		return nil
	}
	return s.plat.Close()
}

// loadConfig finds and loads the config, applies override to it and
// validates the result.
func loadConfig(override func(cfg *config.Config) error) (*config.Config, string, error) {
	cfg, path, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return nil, "", err
	}
	if override != nil {
		if err := override(cfg); err != nil {
			return nil, "", err
		}
	}
	if err := config.Validate(cfg); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// openSession registers every metric the screens and meters need, connects
// to the source and performs the first fetch.
func openSession(ctx context.Context, cfg *config.Config, path string, log logger.Logger) (*session, error) {
	s := &session{cfg: cfg, path: path, reg: metric.NewRegistry(log)}

	var err error
	if s.screens, err = screen.Build(cfg, s.reg, log); err != nil {
		return nil, err
	}
	if s.meters, err = meter.NewSet(cfg.Meters, s.reg); err != nil {
		return nil, err
	}

	openCtx := ctx
	if cfg.Source.Timeout > 0 {
		var cancel context.CancelFunc
		openCtx, cancel = context.WithTimeout(ctx, cfg.Source.Timeout)
		defer cancel()
	}

	src, err := pcp.Open(openCtx, cfg.Source, log)
	if err != nil {
		return nil, err
	}
	s.plat = platform.New(s.reg, src, log)
	if err := s.plat.Init(openCtx); err != nil {
		s.plat.Close()
		return nil, err
	}
	log.Debug("connected to %s (%s)", src.Name(), s.plat.Hostname())
	return s, nil
}

// topCommand runs the live table view.
func topCommand(ctx context.Context, flags *TopFlags, changed func(string) bool) error {
	cfg, path, err := loadConfig(func(cfg *config.Config) error {
		return ApplyTopFlags(cfg, *flags, changed)
	})
	if err != nil {
		return err
	}
	applyColor(cfg.Output.Color)
	log := logger.Default()

	s, err := openSession(ctx, cfg, path, log)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := selectStart(s.screens, flags.Screen, flags.SortKey); err != nil {
		return err
	}

	tel := telemetry.New()
	tel.SetRefreshInterval(cfg.Refresh.Interval)
	tel.Preset(telemetry.Cycle{
		SampleInterval: cfg.Sampling.Interval.Seconds(),
		SampleCount:    cfg.Sampling.Count,
		TrainingWindow: cfg.Training.Window.Seconds(),
		Target:         cfg.Target.Metric,
	})
	if cfg.Telemetry.Listen != "" {
		addr, err := tel.Start(ctx, cfg.Telemetry.Listen, log)
		if err != nil {
			return err
		}
		log.Info("serving telemetry on http://%s/metrics", addr)
	}

	cycle := refresh.New(s.plat, s.screens, s.meters, refresh.Options{Telemetry: tel, Log: log})
	return top.Run(ctx, cycle, top.Options{
		Interval:   cfg.Refresh.Interval,
		Timeout:    cfg.Source.Timeout,
		Once:       flags.Once,
		ConfigPath: path,
		Log:        log,
	})
}
