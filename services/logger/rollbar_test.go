package logsvc

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

func TestRollbarLogger_writesStructuredLines(t *testing.T) {
	conf := core.NewTestConfig()
	var buf bytes.Buffer
	logger := NewRollbarLogger(&buf, conf, ComponentAPI)

	logger.Error("saving fee",
		errors.New("boom"),
		map[string]interface{}{"fee_id": "f1"},
		user.User{ID: "u1"},
	)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "saving fee", line["message"])
	assert.Equal(t, "api", line["component"])
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, "f1", line["fee_id"])
	assert.Equal(t, "u1", line["user_id"])
}

func TestRollbarLogger_levels(t *testing.T) {
	conf := core.NewTestConfig()
	var buf bytes.Buffer
	logger := NewRollbarLogger(&buf, conf, ComponentDB)

	logger.Debug("not shown")
	assert.Empty(t, buf.String())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"component":"db"`)
}
