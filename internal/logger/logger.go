package logger

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

var (
	mu      sync.Mutex
	out     io.Writer = color.Output
	debugOn bool

	gray   = color.New(color.FgHiBlack).SprintFunc()
	blue   = color.New(color.FgBlue).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	purple = color.New(color.FgMagenta).SprintFunc()
	white  = color.New(color.FgWhite).SprintFunc()
)

// SetOutput redirige les logs (tests)
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// SetLevel active le niveau DEBUG si level vaut "debug"
func SetLevel(level string) {
	mu.Lock()
	defer mu.Unlock()
	debugOn = strings.EqualFold(level, "debug")
}

func write(line string) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintln(out, line)
}

func stamp() string {
	return gray("[" + time.Now().Format("15:04:05") + "]")
}

// Info log une information générale (bleu)
func Info(message string, args ...interface{}) {
	write(fmt.Sprintf("%s %s", stamp(), blue(fmt.Sprintf(message, args...))))
}

// Success log un succès (vert)
func Success(message string, args ...interface{}) {
	write(fmt.Sprintf("%s %s", stamp(), green("✓ "+fmt.Sprintf(message, args...))))
}

// Warning log un avertissement (jaune)
func Warning(message string, args ...interface{}) {
	write(fmt.Sprintf("%s %s", stamp(), yellow("⚠ "+fmt.Sprintf(message, args...))))
}

// Error log une erreur (rouge)
func Error(message string, args ...interface{}) {
	write(fmt.Sprintf("%s %s", stamp(), red("✗ "+fmt.Sprintf(message, args...))))
}

// Debug log un message de debug (gris), seulement si LOG_LEVEL=debug
func Debug(message string, args ...interface{}) {
	mu.Lock()
	enabled := debugOn
	mu.Unlock()
	if !enabled {
		return
	}
	write(fmt.Sprintf("%s %s", stamp(), gray("DEBUG: "+fmt.Sprintf(message, args...))))
}

// Request log une requête HTTP avec durée
func Request(method, path string, statusCode int, duration time.Duration) {
	var status string
	switch {
	case statusCode >= 200 && statusCode < 300:
		status = green(fmt.Sprintf("[%d]", statusCode))
	case statusCode >= 300 && statusCode < 400:
		status = cyan(fmt.Sprintf("[%d]", statusCode))
	case statusCode >= 400 && statusCode < 500:
		status = yellow(fmt.Sprintf("[%d]", statusCode))
	default:
		status = red(fmt.Sprintf("[%d]", statusCode))
	}

	write(fmt.Sprintf("%s %s %s %s %s",
		stamp(),
		purple(fmt.Sprintf("%-6s", method)),
		white(fmt.Sprintf("%-50s", path)),
		status,
		gray("("+formatDuration(duration)+")"),
	))
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}
