package email

import (
	"testing"

	"github.com/smallbiznis/salesengine/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_LowStock(t *testing.T) {
	body, err := Render("low_stock", map[string]any{"product_name": "Rice", "quantity": 2, "threshold": 5})
	require.NoError(t, err)
	assert.Contains(t, body, "<strong>Rice</strong>")
	assert.Contains(t, body, "2 left")
}

func TestRender_UnknownTemplate(t *testing.T) {
	_, err := Render("missing", nil)
	assert.Error(t, err)
}

func TestNewFromConfig_NoHostIsNoop(t *testing.T) {
	_, ok := NewFromConfig(config.Config{}).(*NoOpProvider)
	assert.True(t, ok)
}
