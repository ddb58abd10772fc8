// Package logx provides the leveled, free-function logging style used
// throughout this module: each call takes an arbitrary "object" for
// context plus a format string, rather than threading a per-component
// logger value everywhere.
package logx

import (
	"fmt"
	"log"
	"os"
	"sync/atomic"
)

// Level controls which calls are emitted.
type Level int32

const (
	LevelError Level = iota
	LevelInfo
	LevelDebug
)

var (
	level  atomic.Int32
	logger = log.New(os.Stderr, "", log.LstdFlags)
)

func init() {
	level.Store(int32(LevelInfo))
}

// SetLevel changes the global log level.
func SetLevel(l Level) {
	level.Store(int32(l))
}

func enabled(l Level) bool {
	return Level(level.Load()) >= l
}

// describe renders the context object: its String() method if it has
// one, "-" for nil, or %v otherwise.
func describe(o any) string {
	if o == nil {
		return "-"
	}
	if s, ok := o.(interface{ String() string }); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", o)
}

// Debugf logs at debug level.
func Debugf(o any, format string, args ...any) {
	if !enabled(LevelDebug) {
		return
	}
	logger.Printf("DEBUG : %s: %s", describe(o), fmt.Sprintf(format, args...))
}

// Infof logs at info level.
func Infof(o any, format string, args ...any) {
	if !enabled(LevelInfo) {
		return
	}
	logger.Printf("INFO  : %s: %s", describe(o), fmt.Sprintf(format, args...))
}

// Logf is an alias for Infof, for call sites that read better as a
// plain log statement.
func Logf(o any, format string, args ...any) {
	Infof(o, format, args...)
}

// Errorf logs at error level; errors are always emitted regardless of
// the configured level.
func Errorf(o any, format string, args ...any) {
	logger.Printf("ERROR : %s: %s", describe(o), fmt.Sprintf(format, args...))
}
