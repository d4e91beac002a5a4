package observability

import (
	"strings"
	"testing"
)

func TestSamplerFor(t *testing.T) {
	if got := samplerFor(1.5).Description(); got != "AlwaysOnSampler" {
		t.Errorf("expected AlwaysOnSampler, got %s", got)
	}
	if got := samplerFor(0).Description(); got != "AlwaysOffSampler" {
		t.Errorf("expected AlwaysOffSampler, got %s", got)
	}
	if got := samplerFor(0.25).Description(); !strings.HasPrefix(got, "TraceIDRatioBased") {
		t.Errorf("expected TraceIDRatioBased sampler, got %s", got)
	}
}
