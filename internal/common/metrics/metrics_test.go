// internal/common/metrics/metrics_test.go
package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestAnalysesTotal(t *testing.T) {
	before := testutil.ToFloat64(AnalysesTotal.WithLabelValues("ok"))
	AnalysesTotal.WithLabelValues("ok").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(AnalysesTotal.WithLabelValues("ok")))
}

func TestSideEffectFailures(t *testing.T) {
	before := testutil.ToFloat64(SideEffectFailures.WithLabelValues("postgres"))
	SideEffectFailures.WithLabelValues("postgres").Add(2)
	assert.Equal(t, before+2, testutil.ToFloat64(SideEffectFailures.WithLabelValues("postgres")))
}
