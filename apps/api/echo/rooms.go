package echoapi

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/skip2/go-qrcode"

	"github.com/trezcool/asistencia/core"
)

const qrSize = 256

func registerRoomAPI(g *echo.Group, conf *core.Config) {
	g.GET("/rooms/:room/qr", func(ctx echo.Context) error {
		return roomQRCode(ctx, conf)
	})
}

// ScanURL is what a room's QR code points at.
func ScanURL(conf *core.Config, room string) string {
	return conf.FrontendBaseURL + "/scan/" + url.PathEscape(room)
}

func roomQRCode(ctx echo.Context, conf *core.Config) error {
	room := core.CleanString(ctx.Param("room"))
	if !core.ValidRoomCode(room) {
		return core.NewValidationError(errors.New("invalid room"), core.FieldError{Field: "room", Error: "only letters, digits, dots, underscores and hyphens are allowed"})
	}
	png, err := qrcode.Encode(ScanURL(conf, room), qrcode.Medium, qrSize)
	if err != nil {
		return errors.Wrap(err, "encoding QR code")
	}
	return ctx.Blob(http.StatusOK, "image/png", png)
}
