// Package logx builds the zerolog loggers used across the engine. Protocol
// traffic owns stdout, so logs default to stderr.
package logx

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a console logger writing to w at the given level. A nil w
// means stderr.
func New(w io.Writer, level zerolog.Level) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
		NoColor:    w != os.Stderr,
	}
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		short := file
		if i := strings.LastIndexByte(file, '/'); i >= 0 {
			short = file[i+1:]
		}
		return fmt.Sprintf("%-20s", fmt.Sprintf("%s:%d", short, line))
	}
	return zerolog.New(output).Level(level).With().Timestamp().Caller().Logger()
}

// Nop discards everything. Tests and library callers without a logger use it.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

// ParseLevel maps a flag value such as "debug" or "warn" to a level,
// falling back to info.
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil || s == "" {
		return zerolog.InfoLevel
	}
	return lvl
}
