package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresConfiguration(t *testing.T) {
	_, err := New(nil, "claims.audit")
	require.Error(t, err)

	_, err = New([]string{"localhost:9092"}, "")
	require.Error(t, err)
}

func TestDecode(t *testing.T) {
	event, err := Decode([]byte(`{
		"id": "0b0c5a5e-7d55-4a43-9c7e-3f7f5ad8d0a1",
		"category": "compliance",
		"timestamp": "2026-05-01T08:30:00Z",
		"claimId": "6f1c2b8e-2f44-4c1e-a9b5-8d7f0c3e9a10",
		"action": "claim_status_changed",
		"fromStatus": "Pending",
		"toStatus": "In Review"
	}`))
	require.NoError(t, err)
	assert.Equal(t, "claim_status_changed", event.Action)
	assert.Equal(t, "6f1c2b8e-2f44-4c1e-a9b5-8d7f0c3e9a10", event.ClaimID.String())
	assert.Equal(t, "In Review", event.ToStatus)

	_, err = Decode([]byte(`{"timestamp":"yesterday"}`))
	require.Error(t, err)
}
