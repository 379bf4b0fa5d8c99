// Package logging filters the standard logger by the level prefix each
// message starts with ("DEBUG:", "INFO:", "WARN:", "ERROR:"). Lines without
// a prefix count as INFO.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"strings"
)

// Level is a log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var prefixes = []struct {
	tag   []byte
	level Level
}{
	{[]byte("DEBUG:"), LevelDebug},
	{[]byte("INFO:"), LevelInfo},
	{[]byte("WARN:"), LevelWarn},
	{[]byte("ERROR:"), LevelError},
}

// headerScan bounds how far into a line the level tag is looked for. It
// covers the date and time header of log.LstdFlags.
const headerScan = 40

// ParseLevel maps "debug", "info", "warn" and "error" to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Writer drops lines below min before passing them to w.
type Writer struct {
	w   io.Writer
	min Level
}

// NewWriter wraps w.
func NewWriter(w io.Writer, minLevel Level) *Writer {
	return &Writer{w: w, min: minLevel}
}

func (lw *Writer) Write(p []byte) (int, error) {
	if lineLevel(p) < lw.min {
		return len(p), nil
	}
	return lw.w.Write(p)
}

func lineLevel(p []byte) Level {
	head := p
	if len(head) > headerScan {
		head = head[:headerScan]
	}
	best, level := -1, LevelInfo
	for _, pr := range prefixes {
		if i := bytes.Index(head, pr.tag); i >= 0 && (best < 0 || i < best) {
			best, level = i, pr.level
		}
	}
	return level
}

// Setup routes the standard logger through a level filter writing to w.
func Setup(w io.Writer, level string) error {
	minLevel, err := ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetOutput(NewWriter(w, minLevel))
	return nil
}
