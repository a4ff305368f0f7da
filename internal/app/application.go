package app

import (
	"log/slog"

	"github.com/subwaytime/mtapi/internal/appconf"
	"github.com/subwaytime/mtapi/internal/transit"
)

// Application holds the dependencies shared by the HTTP handlers, helpers and
// middleware.
type Application struct {
	Config  appconf.Config
	Logger  *slog.Logger
	Transit *transit.Manager
}
