package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/asistencia/core/session"
	"github.com/trezcool/asistencia/core/settings"
	"github.com/trezcool/asistencia/storage"
	"github.com/trezcool/asistencia/tests"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	conf := testutil.NewConfig()
	conf.Database.Repository = storage.RepositoryInmem
	repos, err := storage.Open(context.Background(), conf, false)
	require.NoError(t, err)

	out := new(bytes.Buffer)
	return newCommandLine(conf, testutil.NewLogger(conf), repos, out), out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.ErrorIs(t, err, tt.wantErr)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Contains(t, err.Error(), tt.wantErrStr)
		}
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	// never connected: goose is mocked
	db, err := sql.Open("postgres", "postgres://localhost/asistencia_unused?sslmode=disable")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	cli.repos.SQL = db

	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "attendance_notes", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}
}

func Test_commandLine_migrate_noSQL(t *testing.T) {
	cli, _ := setup(t)
	assert.ErrorIs(t, cli.run([]string{"admin", "migrate", "up"}), errNoSQL)
}

func Test_commandLine_settings(t *testing.T) {
	cli, out := setup(t)

	tests := []cliTest{
		{name: "no subcommand", args: []string{"settings"}},
		{name: "show defaults", args: []string{"settings", "show"}},
		{name: "late below tolerance", args: []string{"settings", "set", "--tolerance", "20", "--late", "10"}, wantErrStr: "invalid"},
		{name: "negative", args: []string{"settings", "set", "--tolerance", "-1", "--late", "10"}, wantErrStr: "invalid"},
		{name: "not a number", args: []string{"settings", "set", "--tolerance", "lol"}, wantErrStr: "invalid argument"},
		{name: "set", args: []string{"settings", "set", "--tolerance", "5", "--late", "25"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "settings", "show"}))
	var st settings.Settings
	require.NoError(t, json.Unmarshal(out.Bytes(), &st))
	assert.Equal(t, 5, st.AttendanceToleranceMin)
	assert.Equal(t, 25, st.LateThresholdMin)
}

func Test_commandLine_slots(t *testing.T) {
	cli, out := setup(t)

	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}
	valid := write("valid.json", `[
		{"room_code": "A-101", "weekday": 1, "subject": "Math", "group_name": "1A", "start_time": "08:00", "end_time": "09:00"},
		{"room_code": "A-101", "weekday": 3, "subject": "Physics", "group_name": "1A", "start_time": "10:00", "end_time": "11:00"},
		{"room_code": "B-202", "weekday": 1, "subject": "Art", "group_name": "2B", "start_time": "12:00", "end_time": "13:00"}
	]`)
	invalid := write("invalid.json", `[{"room_code": "A-101", "weekday": 9, "subject": "Math", "group_name": "1A", "start_time": "08:00", "end_time": "09:00"}]`)
	broken := write("broken.json", `{`)

	tests := []cliTest{
		{name: "import: no file", args: []string{"slots", "import"}, wantErrStr: "accepts 1 arg"},
		{name: "import: missing file", args: []string{"slots", "import", filepath.Join(dir, "nope.json")}, wantErrStr: "no such file"},
		{name: "import: bad json", args: []string{"slots", "import", broken}, wantErrStr: "decoding"},
		{name: "import: invalid slot", args: []string{"slots", "import", invalid}, wantErrStr: "slot #1"},
		{name: "import", args: []string{"slots", "import", valid}},
		{name: "list: bad weekday", args: []string{"slots", "list", "--weekday", "someday"}, wantErrStr: "invalid weekday"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	t.Run("import twice skips", func(t *testing.T) {
		out.Reset()
		require.NoError(t, cli.run([]string{"admin", "slots", "import", valid}))
		assert.Equal(t, "created 0, skipped 3\n", out.String())
	})

	t.Run("list", func(t *testing.T) {
		out.Reset()
		require.NoError(t, cli.run([]string{"admin", "slots", "list", "--weekday", "monday"}))
		assert.Contains(t, out.String(), "Math")
		assert.Contains(t, out.String(), "Art")
		assert.NotContains(t, out.String(), "Physics")

		out.Reset()
		require.NoError(t, cli.run([]string{"admin", "slots", "list", "--room", "a-101"}))
		assert.Contains(t, out.String(), "Physics")
		assert.NotContains(t, out.String(), "Art")
	})
}

func Test_commandLine_resolve(t *testing.T) {
	cli, out := setup(t)
	loc := cli.conf.Location()
	testutil.CreateSlot(t, cli.slots, "A-101", time.Monday, "08:00", "09:00", "Math", "1A")
	testutil.SetSettings(t, cli.settings, 10, 20)

	tests := []struct {
		name        string
		at          time.Time
		wantOutcome string
		wantCode    string
	}{
		{name: "on time", at: testutil.Monday(loc, 8, 5), wantOutcome: session.OutcomeOpen, wantCode: "A-101-20250106-0800"},
		{name: "tolerance edge", at: testutil.Monday(loc, 7, 50), wantOutcome: session.OutcomeOpen, wantCode: "A-101-20250106-0800"},
		{name: "too late", at: testutil.Monday(loc, 8, 21), wantOutcome: session.OutcomeBlocked, wantCode: "A-101-20250106-0800"},
		{name: "no class", at: testutil.Monday(loc, 15, 0), wantOutcome: session.OutcomeNotFound, wantCode: "A-101-20250106-manual"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := cli.resolve("a-101", tt.at)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOutcome, res.Outcome())
			assert.Equal(t, tt.wantCode, res.SessionCode)
		})
	}

	t.Run("command", func(t *testing.T) {
		out.Reset()
		at := testutil.Monday(loc, 8, 5).Format(time.RFC3339)
		require.NoError(t, cli.run([]string{"admin", "resolve", "--room", "A-101", "--at", at}))
		var res session.Resolution
		require.NoError(t, json.Unmarshal(out.Bytes(), &res))
		assert.True(t, res.Found)
		assert.Equal(t, "A-101-20250106-0800", res.SessionCode)
	})

	t.Run("command errors", func(t *testing.T) {
		for _, tt := range []cliTest{
			{name: "no room", args: []string{"resolve"}, wantErrStr: "required flag"},
			{name: "blank room", args: []string{"resolve", "--room", " "}, wantErr: session.ErrBadRequest},
			{name: "bad instant", args: []string{"resolve", "--room", "A-101", "--at", "monday"}, wantErrStr: "RFC3339"},
		} {
			t.Run(tt.name, func(t *testing.T) {
				tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
			})
		}
	})

	// resolving records nothing
	sessions, err := cli.repos.Sessions.QuerySessions(context.Background(), session.QueryFilter{})
	require.NoError(t, err)
	assert.Empty(t, sessions)
}
