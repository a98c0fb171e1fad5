package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodes(t *testing.T) {
	codes := []string{
		ErrConfig,
		ErrSource,
		ErrMetric,
		ErrFetch,
		ErrField,
		ErrSSH,
		ErrExec,
	}

	seen := make(map[string]bool)
	for _, code := range codes {
		assert.NotEmpty(t, code, "error code should not be empty")
		assert.False(t, seen[code], "error code %q should be unique", code)
		seen[code] = true
	}
}

func TestNew(t *testing.T) {
	err := New(ErrConfig, "Invalid configuration in .treetop.yaml", "Check your configuration file syntax")

	require.NotNil(t, err)
	assert.Equal(t, ErrConfig, err.Code)
	assert.Equal(t, "Invalid configuration in .treetop.yaml", err.Message)
	assert.Equal(t, "Check your configuration file syntax", err.Suggestion)
	assert.Nil(t, err.Cause)
}

func TestError_Format(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name:     "message only",
			err:      New(ErrFetch, "Fetching metric values failed", ""),
			contains: []string{"✗ Fetching metric values failed\n"},
		},
		{
			name: "message cause and suggestion",
			err: WrapWithCode(fmt.Errorf("connection refused"), ErrSource,
				"Cannot reach pmproxy", "Start pmproxy"),
			contains: []string{"✗ Cannot reach pmproxy", "connection refused", "Start pmproxy"},
		},
		{
			name:     "no suggestion",
			err:      Wrap(fmt.Errorf("boom"), "Something broke"),
			contains: []string{"✗ Something broke", "boom"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.err.Error()
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			assert.True(t, strings.HasPrefix(out, "✗ "))
		})
	}
}

func TestWrap_DefaultsToSourceCode(t *testing.T) {
	err := Wrap(fmt.Errorf("dial tcp: refused"), "Cannot connect")
	assert.Equal(t, ErrSource, err.Code)
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := WrapWithCode(cause, ErrFetch, "fetch", "")

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestIsCode(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		expect bool
	}{
		{"nil error", nil, ErrSource, false},
		{"plain error", fmt.Errorf("plain"), ErrSource, false},
		{"matching code", SourceUnavailable(fmt.Errorf("x"), "local:"), ErrSource, true},
		{"different code", FetchFailed(fmt.Errorf("x")), ErrSource, false},
		{"wrapped structured error", fmt.Errorf("outer: %w", MetricUnresolved("a.b")), ErrMetric, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, IsCode(tt.err, tt.code))
		})
	}
}

func TestTaxonomyConstructors(t *testing.T) {
	src := SourceUnavailable(fmt.Errorf("refused"), "http://localhost:44322")
	assert.Equal(t, ErrSource, src.Code)
	assert.Contains(t, src.Message, "http://localhost:44322")
	assert.NotEmpty(t, src.Suggestion)

	unresolved := MetricUnresolved("mmv.treetop.server.sampling.count")
	assert.Equal(t, ErrMetric, unresolved.Code)
	assert.Contains(t, unresolved.Message, "sampling.count")

	fetch := FetchFailed(fmt.Errorf("timeout"))
	assert.Equal(t, ErrFetch, fetch.Code)
	assert.Contains(t, fetch.Error(), "timeout")

	field := InstanceMissingField("mmv.treetop.server.explaining.model.importance", 7)
	assert.Equal(t, ErrField, field.Code)
	assert.Contains(t, field.Message, "instance 7")
}
