package tracing

import (
	"errors"
	"net/http"
	"testing"

	"example.com/backstage/services/procurement/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTracerWithoutLicenseIsNoop(t *testing.T) {
	tracer, err := NewTracer(config.TracingConfig{AppName: "Procurement Console"})
	require.NoError(t, err)

	txn := tracer.StartTransaction("api.list_deliveries")
	assert.Nil(t, txn)

	req, err := http.NewRequest(http.MethodGet, "http://localhost:8080/api/v1/deliveries", nil)
	require.NoError(t, err)
	assert.Nil(t, tracer.StartExternalSegment(txn, req))

	// Must not panic on nil transactions
	tracer.RecordError(txn, errors.New("boom"))
	tracer.AddAttribute(txn, "supplier_id", 1)
	tracer.EndTransaction(txn)
	tracer.Close()
	assert.Nil(t, tracer.Application())
}
