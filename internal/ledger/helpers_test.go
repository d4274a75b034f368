package ledger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- strPtr Tests ---

func TestStrPtr(t *testing.T) {
	t.Run("non-empty string", func(t *testing.T) {
		p := strPtr("spin-1")
		require.NotNil(t, p)
		assert.Equal(t, "spin-1", *p)
	})

	t.Run("empty string returns nil", func(t *testing.T) {
		p := strPtr("")
		assert.Nil(t, p)
	})
}

// --- ensureJSON Tests ---

func TestEnsureJSON(t *testing.T) {
	t.Run("nil returns empty object", func(t *testing.T) {
		result := ensureJSON(nil)
		assert.Equal(t, json.RawMessage(`{}`), result)
	})

	t.Run("non-nil passthrough", func(t *testing.T) {
		data := json.RawMessage(`{"key":"value"}`)
		result := ensureJSON(data)
		assert.Equal(t, data, result)
	})
}

// --- mergeMeta Tests ---

func TestMergeMeta(t *testing.T) {
	t.Run("nil base with extras", func(t *testing.T) {
		result := mergeMeta(nil, map[string]interface{}{"prizeType": "coins", "prizeValue": 50})
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(result, &m))
		assert.Equal(t, "coins", m["prizeType"])
		assert.Equal(t, float64(50), m["prizeValue"])
	})

	t.Run("existing base with extras", func(t *testing.T) {
		base := json.RawMessage(`{"segmentId":"seg-4"}`)
		result := mergeMeta(base, map[string]interface{}{"prizeValue": 200})
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(result, &m))
		assert.Equal(t, "seg-4", m["segmentId"])
		assert.Equal(t, float64(200), m["prizeValue"])
	})

	t.Run("extras overwrite base", func(t *testing.T) {
		base := json.RawMessage(`{"prizeValue":100}`)
		result := mergeMeta(base, map[string]interface{}{"prizeValue": 200})
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(result, &m))
		assert.Equal(t, float64(200), m["prizeValue"])
	})

	t.Run("empty extras", func(t *testing.T) {
		base := json.RawMessage(`{"key":"val"}`)
		result := mergeMeta(base, map[string]interface{}{})
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(result, &m))
		assert.Equal(t, "val", m["key"])
	})
}
