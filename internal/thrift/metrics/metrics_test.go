package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.ObserveOperation(OpContribute, time.Now(), nil)
	m.ObserveOperation(OpContribute, time.Now(), errors.New("insufficient funds"))
	m.ObserveOperation(OpDisburse, time.Now(), nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues(OpContribute, OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues(OpContribute, OutcomeError)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.OperationDuration))

	m.RecordContribution(975, 25)
	m.RecordContribution(975, 25)
	assert.Equal(t, 2000.0, testutil.ToFloat64(m.Contributed))
	assert.Equal(t, 50.0, testutil.ToFloat64(m.InsuranceSkimmed))

	m.RecordPayout(1950)
	m.RecordInsurancePayout(50)
	m.RecordPublished(3)
	assert.Equal(t, 1950.0, testutil.ToFloat64(m.PaidOut))
	assert.Equal(t, 50.0, testutil.ToFloat64(m.InsurancePaidOut))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.EventsPublished))
}
