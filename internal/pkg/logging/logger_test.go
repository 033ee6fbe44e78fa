package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_TextInDev(t *testing.T) {
	var buf bytes.Buffer
	log := New("dev", &buf)

	log.With("request_id", "r-1").Info(context.Background(), "login", "user_id", "u-1")

	out := buf.String()
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, "msg=login")
	assert.Contains(t, out, "request_id=r-1")
	assert.Contains(t, out, "user_id=u-1")
}

func TestNew_JSONInProd(t *testing.T) {
	var buf bytes.Buffer
	log := New("production", &buf)

	log.Error(context.Background(), "store failed", "op", "swap_refresh_token")

	var line map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &line))
	assert.Equal(t, "ERROR", line["level"])
	assert.Equal(t, "store failed", line["msg"])
	assert.Equal(t, "swap_refresh_token", line["op"])
}
