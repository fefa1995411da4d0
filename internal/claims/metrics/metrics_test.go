package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())

	m.IncrementClaimsCreated()
	m.IncrementDamagesAdded(3)
	m.RecordTransition("Pending", "In Review")
	m.RecordRuleViolation("BR-02")
	m.RecordRuleViolation("")
	m.RecordCacheHit()
	m.RecordCacheMiss()
	m.ObserveOperation("create_claim", time.Now())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ClaimsCreated))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.DamagesAdded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("Pending", "In Review")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RuleViolations.WithLabelValues("BR-02")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RuleViolations.WithLabelValues("other")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.OperationDuration))
}
