package utils

import (
	"errors"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

var (
	XConn *xgb.Conn
	XRoot xproto.Window

	xRootWidth  int
	xRootHeight int
)

var ErrNoX11 = errors.New("x11 connection unavailable")

func InitX11() error {
	var err error
	XConn, err = xgb.NewConn()
	if err != nil {
		XConn = nil
		return errors.Join(ErrNoX11, err)
	}

	screen := xproto.Setup(XConn).DefaultScreen(XConn)
	XRoot = screen.Root
	xRootWidth = int(screen.WidthInPixels)
	xRootHeight = int(screen.HeightInPixels)
	return nil
}

// GetGlobalMousePosition queries the pointer relative to the root window.
// Used in wallpaper mode, where the renderer window sits below every other
// window and never receives pointer events of its own.
func GetGlobalMousePosition() (int, int, error) {
	if XConn == nil {
		if err := InitX11(); err != nil {
			return 0, 0, err
		}
	}

	reply, err := xproto.QueryPointer(XConn, XRoot).Reply()
	if err != nil {
		return 0, 0, err
	}

	return int(reply.RootX), int(reply.RootY), nil
}

// GetRootSize returns the root window size in pixels.
func GetRootSize() (int, int, error) {
	if XConn == nil {
		if err := InitX11(); err != nil {
			return 0, 0, err
		}
	}
	return xRootWidth, xRootHeight, nil
}

func CloseX11() {
	if XConn != nil {
		XConn.Close()
		XConn = nil
	}
}
