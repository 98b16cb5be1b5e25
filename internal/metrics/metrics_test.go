package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordRegistrationOp(t *testing.T) {
	before := testutil.ToFloat64(registrationOps.WithLabelValues("approve", "capacity_exceeded"))
	RecordRegistrationOp("approve", "capacity_exceeded")
	RecordRegistrationOp("approve", "capacity_exceeded")
	after := testutil.ToFloat64(registrationOps.WithLabelValues("approve", "capacity_exceeded"))
	assert.Equal(t, before+2, after)
}

func TestSetQueueDepth(t *testing.T) {
	SetQueueDepth(7)
	assert.Equal(t, float64(7), testutil.ToFloat64(workerQueueDepth))
}
