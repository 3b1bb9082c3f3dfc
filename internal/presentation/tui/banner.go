package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the epa banner to w.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	s1 := out.String("   ___ _ __   __ _ ").Foreground(out.Color("#818cf8"))
	s2 := out.String("  / _ \\ '_ \\ / _` |").Foreground(out.Color("#c084fc"))
	s3 := out.String(" |  __/ |_) | (_| |").Foreground(out.Color("#f472b6"))
	s4 := out.String("  \\___| .__/ \\__,_|").Foreground(out.Color("#fb7185"))
	s5 := out.String("      |_|          ").Foreground(out.Color("#fb7185"))

	fmt.Fprintln(w)
	fmt.Fprintln(w, s1)
	fmt.Fprintln(w, s2)
	fmt.Fprintln(w, s3)
	fmt.Fprintln(w, s4)
	fmt.Fprintln(w, s5)
	fmt.Fprintln(w)
}

// Success writes a green check line.
func Success(w io.Writer, format string, args ...any) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w, out.String("✔ "+fmt.Sprintf(format, args...)).Foreground(out.Color("#22c55e")))
}

// Failure writes a red cross line.
func Failure(w io.Writer, format string, args ...any) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w, out.String("✘ "+fmt.Sprintf(format, args...)).Foreground(out.Color("#ef4444")))
}

// Warning writes a yellow line.
func Warning(w io.Writer, format string, args ...any) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w, out.String("! "+fmt.Sprintf(format, args...)).Foreground(out.Color("#eab308")))
}
