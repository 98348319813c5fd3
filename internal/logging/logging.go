package logging

import (
	"log"
	"os"
	"strings"
)

var order = map[string]int{"debug": 10, "info": 20, "warn": 30, "error": 40}

// Logger is a small leveled wrapper over the stdlib logger. Components
// tag their lines with a scope prefix via With.
type Logger struct {
	level string
	scope string
	base  *log.Logger
}

func New(level string) *Logger {
	lv := strings.ToLower(strings.TrimSpace(level))
	if _, ok := order[lv]; !ok {
		lv = "info"
	}
	return &Logger{level: lv, base: log.New(os.Stdout, "", log.LstdFlags)}
}

// With returns a logger whose lines carry the given scope tag.
func (l *Logger) With(scope string) *Logger {
	return &Logger{level: l.level, scope: scope, base: l.base}
}

func (l *Logger) enabled(level string) bool {
	cur, ok := order[l.level]
	if !ok {
		cur = 20
	}
	v, ok := order[level]
	if !ok {
		v = 20
	}
	return v >= cur
}

func (l *Logger) printf(tag, format string, args ...any) {
	if l.scope != "" {
		format = "[" + l.scope + "] " + format
	}
	l.base.Printf(tag+" "+format, args...)
}

func (l *Logger) Debugf(format string, args ...any) {
	if l.enabled("debug") {
		l.printf("[DEBUG]", format, args...)
	}
}

func (l *Logger) Infof(format string, args ...any) {
	if l.enabled("info") {
		l.printf("[INFO]", format, args...)
	}
}

func (l *Logger) Warnf(format string, args ...any) {
	if l.enabled("warn") {
		l.printf("[WARN]", format, args...)
	}
}

func (l *Logger) Errorf(format string, args ...any) {
	if l.enabled("error") {
		l.printf("[ERROR]", format, args...)
	}
}
