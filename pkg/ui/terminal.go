package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// ASCIILogo is printed by PrintLogo
const ASCIILogo = `
 ┏━┓┏━╸╺┳┓╺┳┓╻╺┳╸┏━┓┏━┓╻ ╻┏━╸┏━┓
 ┣┳┛┣╸  ┃┃ ┃┃┃ ┃ ┗━┓┣━┫┃┏┛┣╸ ┣┳┛
 ╹┗╸┗━╸╺┻┛╺┻┛╹ ╹ ┗━┛╹ ╹┗┛ ┗━╸╹┗╸
`

var (
	mu    sync.Mutex
	out   io.Writer = os.Stdout
	quiet bool
)

// SetOutput redirects all printing. nil restores stdout.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = os.Stdout
	}
	out = w
}

// SetQuietMode suppresses everything except errors
func SetQuietMode(q bool) {
	mu.Lock()
	defer mu.Unlock()
	quiet = q
}

// IsQuietMode reports whether quiet mode is on
func IsQuietMode() bool {
	mu.Lock()
	defer mu.Unlock()
	return quiet
}

func write(force bool, s string) {
	mu.Lock()
	defer mu.Unlock()
	if quiet && !force {
		return
	}
	fmt.Fprint(out, s)
}

// PrintLogo prints the logo
func PrintLogo() {
	write(false, logoStyle.Render(ASCIILogo)+"\n")
}

// PrintError prints an error message in red. It is shown in quiet mode.
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	write(true, Red(msg)+"\n")
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	write(false, Green(msg)+"\n")
}

// PrintInfo prints a label/value pair
func PrintInfo(label string, value string) {
	write(false, fmt.Sprintf("%s: %s\n", Cyan(label), Yellow(value)))
}

// PrintWarning prints a warning message
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	write(false, warningStyle.Render(msg)+"\n")
}

// PrintHighlight prints a highlighted message
func PrintHighlight(msg string) {
	write(false, Magenta(msg)+"\n")
}

// PrintRaw prints s unstyled, even in quiet mode. Used for machine-readable output.
func PrintRaw(s string) {
	write(true, s)
}
