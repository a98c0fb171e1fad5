package meter

import (
	"strconv"
	"strings"

	"github.com/rileyhilliard/treetop/internal/config"
	"github.com/rileyhilliard/treetop/internal/metric"
	"github.com/rileyhilliard/treetop/internal/platform"
)

// Dynamic shows the value of one configured metric.
type Dynamic struct {
	name    string
	caption string
	unit    string
	id      metric.ID
}

// NewDynamic registers c.Metric in reg and returns its meter.
func NewDynamic(c config.MeterConfig, reg *metric.Registry) *Dynamic {
	caption := c.Caption
	if caption == "" {
		caption = c.Name
	}
	if !strings.HasSuffix(caption, " ") {
		caption += ": "
	}
	return &Dynamic{
		name:    strings.ToLower(c.Name),
		caption: caption,
		unit:    c.Unit,
		id:      reg.Register(c.Metric),
	}
}

func (d *Dynamic) Name() string         { return d.name }
func (d *Dynamic) Metrics() []metric.ID { return []metric.ID{d.id} }

func (d *Dynamic) Read(p *platform.Platform) Reading {
	r := Reading{Name: d.name, Caption: d.caption, Text: Unknown, Level: Shadow}
	v, ok := p.Provider().Value(d.id)
	if !ok {
		return r
	}
	var text string
	switch v.Type() {
	case metric.TypeFloat, metric.TypeDouble:
		text = strconv.FormatFloat(v.Float(), 'f', 2, 64)
	default:
		text = v.String()
	}
	if d.unit != "" {
		text += " " + d.unit
	}
	r.Text = text
	r.Level = Normal
	return r
}
