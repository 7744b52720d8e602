package diagnostics

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// ansi codes used when the destination is a terminal. Kept minimal:
// one color per diagnostic kind, reset after the message.
const (
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
	ansiReset  = "\x1b[0m"
)

// colorFor picks the ansi prefix for err's kind, or "" for anything
// this package doesn't define (printed plain).
func colorFor(err error) string {
	switch err.(type) {
	case *UndefinedError, *RedefinitionError:
		return ansiRed
	case *NotYetImplementedError:
		return ansiYellow
	case *InternalError:
		return ansiBlue
	default:
		return ""
	}
}

// Render writes err to w as one diagnostic line (spec §6.3: file
// position, error code, node lexeme), colorized when w is a terminal
// file descriptor and isatty confirms it, plain otherwise (the color
// follows the first diagnostic type found along err's %w chain) — so piping
// `purc build` output to a file or another process never embeds escape
// codes. Colorization is also skipped when NO_COLOR is set, regardless
// of isatty, per the NO_COLOR convention.
func Render(w io.Writer, err error) {
	cause := Cause(err)
	color := ""
	for e := cause; e != nil && color == ""; e = errors.Unwrap(e) {
		color = colorFor(e)
	}
	if color == "" || os.Getenv("NO_COLOR") != "" || !isTerminal(w) {
		fmt.Fprintf(w, "%v\n", cause)
		return
	}
	fmt.Fprintf(w, "%s%v%s\n", color, cause, ansiReset)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
