package diagnostics

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackCarriesError(t *testing.T) {
	d := Fallback("gpio", errors.New("no pin GPIO4"))
	assert.Equal(t, Warn, d.Severity)
	assert.Equal(t, CodeFallback, d.Code)
	assert.Equal(t, "no pin GPIO4", d.Detail)
	assert.Equal(t, "gpio", d.Evidence["driver"])
}

func TestStampKeepsExistingTime(t *testing.T) {
	d := Diagnostic{T: 42}.Stamp()
	assert.Equal(t, int64(42), d.T)
	assert.NotZero(t, Started("sim").Stamp().T)
}

func TestJSONOmitsEmpty(t *testing.T) {
	b, err := json.Marshal(LinkFailed(nil))
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, "error", m["severity"])
	assert.NotContains(t, m, "detail")
	assert.NotContains(t, m, "evidence")
}
