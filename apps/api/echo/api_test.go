package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/asistencia/apps/api/echo"
	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/attendance"
	"github.com/trezcool/asistencia/core/session"
	"github.com/trezcool/asistencia/tests"
)

const code = "A-101-20250106-0800"

type httpTest struct {
	name     string
	method   string
	path     string
	body     interface{}
	token    string
	wantCode int
	wantErr  string
}

type httpErr struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

type testApp struct {
	env        *testutil.Env
	server     *echoapi.Server
	token      string
	adminToken string
}

func newTestApp(t *testing.T, hh, mm int) *testApp {
	env := testutil.NewEnv(t, testutil.Monday(testutil.Location(t), hh, mm))
	testutil.SetSettings(t, env.Settings, 15, 30)
	testutil.CreateSlot(t, env.Slots, "A-101", time.Monday, "08:00", "09:30", "Math", "1A")

	validate, translator := testutil.NewValidation()
	server := echoapi.NewServer(echoapi.Deps{
		Conf:       env.Conf,
		Logger:     testutil.NewLogger(env.Conf),
		Validate:   validate,
		Translator: translator,
		Sessions:   env.Sessions,
		Attendance: env.Attendance,
		Slots:      env.Slots,
		Settings:   env.Settings,
	})

	return &testApp{
		env:        env,
		server:     server,
		token:      getToken(t, env.Conf, false),
		adminToken: getToken(t, env.Conf, true),
	}
}

func getToken(t *testing.T, conf *core.Config, isAdmin bool) string {
	id := core.Identity{ID: "u1", Username: "prof"}
	if isAdmin {
		id = core.Identity{ID: "u0", Username: "admin"}
	}
	token, err := echoapi.GenerateToken(conf, echoapi.NewClaims(conf, id, isAdmin, time.Hour))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func (app *testApp) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)
	return rec
}

func (app *testApp) run(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantErr != "" {
				var herr httpErr
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &herr))
				assert.Equal(t, tt.wantErr, herr.Error)
			}
		})
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestServer_home(t *testing.T) {
	app := newTestApp(t, 8, 0)
	rec := app.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Asistencia API!", rec.Body.String())
}

func TestServer_auth(t *testing.T) {
	app := newTestApp(t, 8, 0)
	badToken, err := echoapi.GenerateToken(&core.Config{SecretKey: "other"}, echoapi.NewClaims(app.env.Conf, core.Identity{ID: "x"}, true, time.Hour))
	require.NoError(t, err)

	app.run(t, []httpTest{
		{name: "missing token", method: http.MethodGet, path: "/v1/sessions", wantCode: http.StatusUnauthorized, wantErr: "missing or malformed jwt"},
		{name: "wrong signature", method: http.MethodGet, path: "/v1/sessions", token: badToken, wantCode: http.StatusUnauthorized},
		{name: "ok", method: http.MethodGet, path: "/v1/sessions", token: app.token, wantCode: http.StatusOK},
	})
}

func TestSessionAPI_resolve(t *testing.T) {
	app := newTestApp(t, 8, 10)

	rec := app.do(t, http.MethodGet, "/v1/sessions/resolve?room=a-101", app.token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp echoapi.ResolveResponse
	decode(t, rec, &resp)
	assert.True(t, resp.Found)
	assert.False(t, resp.Blocked)
	assert.Equal(t, code, resp.SessionCode)
	assert.Equal(t, session.ArrivalOnTime, resp.ArrivalStatus)
	assert.Equal(t, 10, resp.ArrivalDelayMin)
	require.NotNil(t, resp.Session)
	assert.Equal(t, session.StatusNotStarted, resp.Session.Status)

	rec = app.do(t, http.MethodGet, "/v1/sessions/resolve?room=B-9", app.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = echoapi.ResolveResponse{}
	decode(t, rec, &resp)
	assert.False(t, resp.Found)
	assert.Equal(t, "B-9-20250106-manual", resp.SessionCode)
	assert.Nil(t, resp.Session)

	app.run(t, []httpTest{
		{name: "empty room", method: http.MethodGet, path: "/v1/sessions/resolve?room=+", token: app.token, wantCode: http.StatusBadRequest, wantErr: "bad_request"},
	})
}

func TestSessionAPI_resolve_blocked(t *testing.T) {
	app := newTestApp(t, 8, 35)

	rec := app.do(t, http.MethodGet, "/v1/sessions/resolve?room=A-101", app.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp echoapi.ResolveResponse
	decode(t, rec, &resp)
	assert.True(t, resp.Found)
	assert.True(t, resp.Blocked)
	assert.Equal(t, session.ArrivalTooLate, resp.ArrivalStatus)
	assert.Nil(t, resp.Session, "a blocked resolution records nothing")
}

func TestSessionAPI_lifecycle(t *testing.T) {
	app := newTestApp(t, 8, 5)

	rec := app.do(t, http.MethodPost, "/v1/sessions/start", app.token, map[string]interface{}{
		"session_code": code,
		"roster": []map[string]string{
			{"student_id": "s1", "student_name": "Ana"},
			{"student_id": "s2", "student_name": "Bruno"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var started session.StartResult
	decode(t, rec, &started)
	assert.Equal(t, session.StatusInProgress, started.Status)
	require.NotNil(t, started.ArrivalStatus)
	assert.Equal(t, session.ArrivalOnTime, *started.ArrivalStatus)

	rec = app.do(t, http.MethodGet, "/v1/sessions/"+code, app.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail echoapi.SessionDetail
	decode(t, rec, &detail)
	assert.True(t, detail.WindowOpen)
	assert.Equal(t, "Math", detail.Session.Subject)

	rec = app.do(t, http.MethodPut, "/v1/sessions/"+code+"/attendance", app.token, map[string]string{
		"student_id": "s2", "student_name": "Bruno", "status": "Tarde",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var rec1 attendance.Record
	decode(t, rec, &rec1)
	assert.Equal(t, attendance.StatusLate, rec1.Status)
	assert.Equal(t, "prof", rec1.UpdatedBy)

	rec = app.do(t, http.MethodPut, "/v1/sessions/"+code+"/attendance", app.token, map[string]interface{}{
		"records": []map[string]string{{"student_id": "s1", "student_name": "Ana", "status": "Presente"}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodGet, "/v1/sessions/"+code+"/attendance", app.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sheet attendance.Sheet
	decode(t, rec, &sheet)
	require.Len(t, sheet.Records, 2)
	assert.Equal(t, attendance.StatusPresent, sheet.Records[0].Status)
	assert.Equal(t, attendance.StatusLate, sheet.Records[1].Status)

	app.run(t, []httpTest{
		{
			name: "invalid status", method: http.MethodPut, path: "/v1/sessions/" + code + "/attendance", token: app.token,
			body:     map[string]string{"student_id": "s1", "student_name": "Ana", "status": "present"},
			wantCode: http.StatusBadRequest, wantErr: "invalid_status",
		},
		{
			name: "missing fields", method: http.MethodPut, path: "/v1/sessions/" + code + "/attendance", token: app.token,
			body:     map[string]string{"student_id": "s1", "status": "Presente"},
			wantCode: http.StatusBadRequest, wantErr: "missing_fields",
		},
		{name: "finish", method: http.MethodPost, path: "/v1/sessions/" + code + "/finish", token: app.token, wantCode: http.StatusOK},
		{
			name: "finish twice", method: http.MethodPost, path: "/v1/sessions/" + code + "/finish", token: app.token,
			wantCode: http.StatusConflict, wantErr: "invalid_transition",
		},
		{
			name: "finish unknown", method: http.MethodPost, path: "/v1/sessions/X-1-20250101-manual/finish", token: app.token,
			wantCode: http.StatusNotFound, wantErr: "session_not_found",
		},
		{
			name: "malformed code", method: http.MethodGet, path: "/v1/sessions/nope", token: app.token,
			wantCode: http.StatusBadRequest, wantErr: "invalid session code",
		},
	})
	assert.Len(t, app.env.Mail.SentMessages(), 0, "no report recipients configured")
}

func TestSessionAPI_windowClosed(t *testing.T) {
	app := newTestApp(t, 8, 5)
	rec := app.do(t, http.MethodPost, "/v1/sessions/start", app.token, map[string]string{"session_code": code})
	require.Equal(t, http.StatusOK, rec.Code)

	app.env.Clock.Set(testutil.Monday(testutil.Location(t), 8, 16))
	app.run(t, []httpTest{
		{
			name: "present", method: http.MethodPut, path: "/v1/sessions/" + code + "/attendance", token: app.token,
			body:     map[string]string{"student_id": "s1", "student_name": "Ana", "status": "Presente"},
			wantCode: http.StatusConflict, wantErr: "window_closed",
		},
		{
			name: "excused", method: http.MethodPut, path: "/v1/sessions/" + code + "/attendance", token: app.token,
			body:     map[string]string{"student_id": "s1", "student_name": "Ana", "status": "Justificado"},
			wantCode: http.StatusOK,
		},
	})
}

func TestSessionAPI_manualAndList(t *testing.T) {
	app := newTestApp(t, 11, 0)

	app.run(t, []httpTest{
		{
			name: "manual", method: http.MethodPost, path: "/v1/sessions/manual", token: app.token,
			body:     map[string]string{"room_code": "Lab-2", "subject": "Robotics", "group_name": "3A"},
			wantCode: http.StatusCreated,
		},
		{
			name: "manual missing group", method: http.MethodPost, path: "/v1/sessions/manual", token: app.token,
			body:     map[string]string{"room_code": "Lab-2", "subject": "Robotics"},
			wantCode: http.StatusBadRequest,
		},
		{name: "bad status filter", method: http.MethodGet, path: "/v1/sessions?status=done", token: app.token, wantCode: http.StatusBadRequest},
		{name: "bad date filter", method: http.MethodGet, path: "/v1/sessions?date=06-01-2025", token: app.token, wantCode: http.StatusBadRequest},
	})

	rec := app.do(t, http.MethodGet, "/v1/sessions?date=2025-01-06&status=in_progress&room=lab-2", app.token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sessions []session.Session
	decode(t, rec, &sessions)
	require.Len(t, sessions, 1)
	assert.Equal(t, "Lab-2-20250106-manual", sessions[0].Code)
	assert.True(t, sessions[0].IsManual)
}

func TestCatalogAPI(t *testing.T) {
	app := newTestApp(t, 8, 0)
	newSlot := map[string]interface{}{
		"room_code": "B-202", "weekday": 2, "subject": "History", "group_name": "2B", "start_time": "10:00", "end_time": "11:00",
	}

	app.run(t, []httpTest{
		{name: "settings", method: http.MethodGet, path: "/v1/settings", token: app.token, wantCode: http.StatusOK},
		{
			name: "settings, not admin", method: http.MethodPut, path: "/v1/settings", token: app.token,
			body:     map[string]int{"attendance_tolerance_min": 10, "late_threshold_min": 20},
			wantCode: http.StatusForbidden, wantErr: "permission denied",
		},
		{
			name: "settings, threshold below tolerance", method: http.MethodPut, path: "/v1/settings", token: app.adminToken,
			body:     map[string]int{"attendance_tolerance_min": 40, "late_threshold_min": 20},
			wantCode: http.StatusBadRequest, wantErr: "invalid settings",
		},
		{
			name: "settings, admin", method: http.MethodPut, path: "/v1/settings", token: app.adminToken,
			body:     map[string]int{"attendance_tolerance_min": 10, "late_threshold_min": 20},
			wantCode: http.StatusOK,
		},
		{name: "slot, not admin", method: http.MethodPost, path: "/v1/slots", token: app.token, body: newSlot, wantCode: http.StatusForbidden},
		{name: "slot", method: http.MethodPost, path: "/v1/slots", token: app.adminToken, body: newSlot, wantCode: http.StatusCreated},
		{name: "slot, duplicate", method: http.MethodPost, path: "/v1/slots", token: app.adminToken, body: newSlot, wantCode: http.StatusConflict},
		{
			name: "slot, bad time", method: http.MethodPost, path: "/v1/slots", token: app.adminToken,
			body: map[string]interface{}{
				"room_code": "B-202", "weekday": 2, "subject": "History", "group_name": "2B", "start_time": "25:00", "end_time": "11:00",
			},
			wantCode: http.StatusBadRequest,
		},
		{name: "slots, bad weekday", method: http.MethodGet, path: "/v1/slots?weekday=funday", token: app.token, wantCode: http.StatusBadRequest},
		{name: "slot, unknown", method: http.MethodDelete, path: "/v1/slots/6f1c2c1e-1111-4a4a-9b9b-000000000000", token: app.adminToken, wantCode: http.StatusNotFound},
	})

	st, err := app.env.Settings.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, st.AttendanceToleranceMin)

	rec := app.do(t, http.MethodGet, "/v1/slots?weekday=martes", app.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var slots []map[string]interface{}
	decode(t, rec, &slots)
	require.Len(t, slots, 1)
	assert.Equal(t, "B-202", slots[0]["room_code"])

	rec = app.do(t, http.MethodDelete, "/v1/slots/"+slots[0]["id"].(string), app.adminToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRoomAPI_qr(t *testing.T) {
	app := newTestApp(t, 8, 0)

	rec := app.do(t, http.MethodGet, "/v1/rooms/A-101/qr", app.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	app.run(t, []httpTest{
		{name: "bad room", method: http.MethodGet, path: "/v1/rooms/a!b/qr", token: app.token, wantCode: http.StatusBadRequest, wantErr: "invalid room"},
	})
	assert.Equal(t, "http://localhost:3000/scan/A-101", echoapi.ScanURL(app.env.Conf, "A-101"))
}
