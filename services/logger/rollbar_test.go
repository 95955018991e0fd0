package logsvc

import (
	"bytes"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/asistencia/core"
)

func newTestLogger(buf *bytes.Buffer) *RollbarLogger {
	conf := &core.Config{Env: "TEST", Debug: true}
	return NewRollbarLogger(log.New(buf, "", 0), conf)
}

func TestRollbarLogger_prepare(t *testing.T) {
	l := newTestLogger(new(bytes.Buffer))
	errBoom := errors.New("boom")

	args := l.prepare("finishing session", []interface{}{
		errBoom,
		core.Identity{ID: "1", Username: "teacher"},
		map[string]interface{}{"session_code": "A-101-20250106-0800"},
		core.Identity{ID: "2", Username: "other"},
		map[string]interface{}{"room": "A-101"},
	})
	require.Len(t, args, 3)
	assert.Equal(t, "finishing session", args[0])
	assert.Equal(t, errBoom, args[1])
	assert.Equal(t, map[string]interface{}{"session_code": "A-101-20250106-0800", "room": "A-101"}, args[2])

	args = l.prepare("resolved", nil)
	assert.Equal(t, []interface{}{"resolved"}, args)
}

func TestRollbarLogger_print(t *testing.T) {
	buf := new(bytes.Buffer)
	l := newTestLogger(buf)

	l.Info("session A-101-20250106-0800 blocked", core.Identity{ID: "1"}, map[string]interface{}{"delay": 35})
	l.Error("marking failed", errors.New("boom"))

	assert.Equal(t,
		"[info] session A-101-20250106-0800 blocked\n  map[delay:35]\n[error] marking failed\n  boom\n",
		buf.String(),
	)
}
