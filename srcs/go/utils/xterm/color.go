// Package xterm colours worker names in the launcher's console output.
package xterm

import "strconv"

type Color interface {
	S(text string) string
}

// sgr is a bold ANSI foreground colour.
type sgr uint8

const (
	Red     sgr = 31
	Green   sgr = 32
	Yellow  sgr = 33
	Blue    sgr = 34
	Magenta sgr = 35
	Cyan    sgr = 36
)

func (c sgr) S(text string) string {
	return "\x1b[1;" + strconv.Itoa(int(c)) + "m" + text + "\x1b[m"
}

type ColorSet []Color

// Choose cycles through the set, so rank i and rank i+len(cs) share a colour.
func (cs ColorSet) Choose(i int) Color {
	return cs[i%len(cs)]
}

var (
	WorkerColors = ColorSet{Green, Blue, Yellow, Cyan, Magenta}

	Warn Color = Red
)

var NoColor = noColor{}

type noColor struct{}

func (noColor) S(text string) string { return text }
