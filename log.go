package pilot

import (
	"io"
	"os"

	kitlog "github.com/go-kit/kit/log"
)

// NewLogger returns a logfmt logger tagged with the provided subsystem.
func NewLogger(w io.Writer, subsys string) kitlog.Logger {
	if w == nil {
		w = os.Stdout
	}
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(w))
	return kitlog.With(logger, "subsys", subsys)
}

// orNop returns a no-op logger when none is provided.
func orNop(logger kitlog.Logger) kitlog.Logger {
	if logger == nil {
		return kitlog.NewNopLogger()
	}
	return logger
}
