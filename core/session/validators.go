package session

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/asistencia/core"
)

var (
	roomMismatchTag  = "roommatchescode"
	roomMismatchText = "does not match the room of the session code"

	sessionCodeTag  = "sessioncode"
	sessionCodeText = "must look like <room>-<YYYYMMDD>-<HHMM|manual>"
)

// InitValidators registers the session validators. The "timeofday" tag comes from the schedule package.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(startSessionValidation, StartSession{})
	core.RegisterCustomTranslation(validate, translator, roomMismatchTag, roomMismatchText)
	core.RegisterCustomTranslation(validate, translator, sessionCodeTag, sessionCodeText)
}

// startSessionValidation rejects a room that contradicts the code being started.
func startSessionValidation(sl validator.StructLevel) {
	ss, ok := sl.Current().Interface().(StartSession)
	if !ok || ss.RoomCode == "" || ss.SessionCode == "" {
		return
	}
	// only the room matters here, any location will do
	code, err := ParseCode(ss.SessionCode, time.UTC)
	if err != nil {
		sl.ReportError(ss.SessionCode, "session_code", "SessionCode", sessionCodeTag, "")
		return
	}
	if !core.SameFold(code.Room, ss.RoomCode) {
		sl.ReportError(ss.RoomCode, "room_code", "RoomCode", roomMismatchTag, "")
	}
}
