package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// statusKind classifies one status line for badge and color selection.
type statusKind int

const (
	statusInfo statusKind = iota // neutral, also the zero value
	statusOK
	statusError
	statusWarn
)

const (
	escReset  = "\x1b[0m"
	escRed    = "\x1b[31m"
	escGreen  = "\x1b[32m"
	escYellow = "\x1b[33m"
	escBlue   = "\x1b[34m"
)

// Labels are padded to a fixed width so the bracket badges line up in a column.
const (
	statusIndent     = "  "
	statusLabelWidth = 20
)

// kindBadges maps each status kind to its bracket badge and terminal color.
var kindBadges = map[statusKind]struct {
	label string
	color string
}{
	statusInfo:  {"INFO", escBlue},
	statusOK:    {"OK", escGreen},
	statusWarn:  {"WARN", escYellow},
	statusError: {"ERROR", escRed},
}

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	badge, ok := kindBadges[kind]
	if !ok {
		badge = kindBadges[statusInfo]
	}
	text := "[" + badge.label + "]"
	if message != "" {
		text += " " + message
	}
	line := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", text)
	if colorize && badge.color != "" {
		return badge.color + line + escReset
	}
	return line
}

func statusKindFromSeverity(severity string) statusKind {
	switch strings.ToLower(strings.TrimSpace(severity)) {
	case "ok":
		return statusOK
	case "warn", "warning":
		return statusWarn
	case "error":
		return statusError
	default:
		return statusInfo
	}
}

// renderSectionHeader returns the heading and its underline rule.
func renderSectionHeader(title string, colorize bool) []string {
	header := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(header))
	if !colorize {
		return []string{header, rule}
	}
	return []string{escBlue + header + escReset, escBlue + rule + escReset}
}

func shouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}
