// Package meter renders the header meters: one line of text each, derived
// from the platform getters after every fetch.
package meter

import (
	"fmt"
	"strings"

	"github.com/rileyhilliard/treetop/internal/config"
	"github.com/rileyhilliard/treetop/internal/errors"
	"github.com/rileyhilliard/treetop/internal/metric"
	"github.com/rileyhilliard/treetop/internal/platform"
)

// Level tells the view how to color a reading.
type Level int

const (
	Normal Level = iota
	OK
	Warn
	Shadow
	Active
)

// Unknown and Unreachable are the texts shown when a meter has no data.
const (
	Unknown     = "(unknown)"
	Unreachable = "(unreachable)"
)

// Reading is the rendered state of one meter.
type Reading struct {
	Name    string
	Caption string
	Text    string
	Level   Level

	// Series and Max feed the sparkline of meters that track history.
	Series []float64
	Max    float64
}

// Meter turns platform values into a Reading.
type Meter interface {
	Name() string
	// Metrics lists the metrics that must be fetched for Read.
	Metrics() []metric.ID
	Read(p *platform.Platform) Reading
}

// Set is the ordered list of header meters.
type Set struct {
	meters []Meter
}

// NewSet returns the built-in meters followed by one dynamic meter per
// entry of cfgs. Dynamic meter metrics are registered in reg.
func NewSet(cfgs []config.MeterConfig, reg *metric.Registry) (*Set, error) {
	s := &Set{meters: Builtin()}
	seen := make(map[string]bool, len(s.meters)+len(cfgs))
	for _, m := range s.meters {
		seen[m.Name()] = true
	}
	for _, c := range cfgs {
		name := strings.ToLower(c.Name)
		if seen[name] {
			return nil, errors.New(errors.ErrConfig,
				fmt.Sprintf("Meter %q is defined twice", c.Name),
				"Give each entry under meters a unique name")
		}
		seen[name] = true
		s.meters = append(s.meters, NewDynamic(c, reg))
	}
	return s, nil
}

// Meters returns the meters in display order.
func (s *Set) Meters() []Meter { return s.meters }

// Metrics returns every metric the set reads, without duplicates.
func (s *Set) Metrics() []metric.ID {
	seen := make(map[metric.ID]bool)
	var ids []metric.ID
	for _, m := range s.meters {
		for _, id := range m.Metrics() {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// Read renders every meter. When the source is unreachable each meter shows
// Unreachable instead of stale values.
func (s *Set) Read(p *platform.Platform, reachable bool) []Reading {
	out := make([]Reading, 0, len(s.meters))
	for _, m := range s.meters {
		if !reachable {
			r := m.Read(p)
			out = append(out, Reading{Name: r.Name, Caption: r.Caption, Text: Unreachable, Level: Shadow})
			continue
		}
		out = append(out, m.Read(p))
	}
	return out
}
