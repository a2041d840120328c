package events

import (
	"encoding/json"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeStreamMessage(t *testing.T) {
	data, err := json.Marshal(Event{Type: EventDeposit, Payload: map[string]any{"ref": "ton:1"}})
	require.NoError(t, err)

	e, err := decodeStreamMessage(redis.XMessage{ID: "1-0", Values: map[string]any{streamField: string(data)}})
	require.NoError(t, err)
	assert.Equal(t, EventDeposit, e.Type)
	assert.Equal(t, "ton:1", e.Payload["ref"])

	tests := []struct {
		name   string
		values map[string]any
	}{
		{"no field", map[string]any{"other": "x"}},
		{"not json", map[string]any{streamField: "{"}},
		{"wrong type", map[string]any{streamField: 42}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeStreamMessage(redis.XMessage{ID: "2-0", Values: tt.values})
			assert.Error(t, err)
		})
	}
}
