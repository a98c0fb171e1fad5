// Package pcp provides the metric sources treetop reads from: a pmproxy
// REST endpoint, a recorded archive replayed from YAML, and the pminfo
// command run locally or over SSH.
package pcp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rileyhilliard/treetop/internal/metric"
)

// ParsePMID converts the dotted "domain.cluster.item" form to a PMID.
func ParsePMID(s string) (metric.PMID, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 {
		return metric.NullPMID, fmt.Errorf("malformed pmid %q", s)
	}
	domain, err1 := strconv.ParseUint(parts[0], 10, 9)
	cluster, err2 := strconv.ParseUint(parts[1], 10, 12)
	item, err3 := strconv.ParseUint(parts[2], 10, 10)
	if err1 != nil || err2 != nil || err3 != nil {
		return metric.NullPMID, fmt.Errorf("malformed pmid %q", s)
	}
	return metric.PMID(domain<<22 | cluster<<10 | item), nil
}

// FormatPMID is the inverse of ParsePMID.
func FormatPMID(id metric.PMID) string {
	if id == metric.NullPMID {
		return "PM_ID_NULL"
	}
	return fmt.Sprintf("%d.%d.%d", id>>22, (id>>10)&0xfff, id&0x3ff)
}

// ParseInDom converts the dotted "domain.serial" form to an InDom. Empty
// strings and "none"/"PM_INDOM_NULL" mark a scalar metric.
func ParseInDom(s string) (metric.InDom, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "none", "pm_indom_null":
		return metric.NullInDom, nil
	}
	parts := strings.Split(s, ".")
	if len(parts) != 2 {
		return metric.NullInDom, fmt.Errorf("malformed indom %q", s)
	}
	domain, err1 := strconv.ParseUint(parts[0], 10, 9)
	serial, err2 := strconv.ParseUint(parts[1], 10, 22)
	if err1 != nil || err2 != nil {
		return metric.NullInDom, fmt.Errorf("malformed indom %q", s)
	}
	return metric.InDom(domain<<22 | serial), nil
}
