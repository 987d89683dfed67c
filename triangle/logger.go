//go:build !nogpu

package triangle

import (
	"log/slog"

	"github.com/gogpu/trimesh"
)

// slogger returns the logger configured with trimesh.SetLogger.
func slogger() *slog.Logger { return trimesh.Logger() }
