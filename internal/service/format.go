package service

import "strings"

var lineBreaks = strings.NewReplacer("\r\n", lineBreakMarker, "\n", lineBreakMarker, "\r", lineBreakMarker)

// FormatResult replaces line breaks with an HTML break marker so the text
// can be embedded into rendered output as-is.
func FormatResult(text string) string {
	if text == "" {
		return text
	}
	return lineBreaks.Replace(text)
}

// streamFormatter applies FormatResult to a sequence of deltas. A trailing
// "\r" is held back until the next delta so that a "\r\n" split across two
// deltas still yields a single marker.
type streamFormatter struct {
	pendingCR bool
}

func (f *streamFormatter) Push(delta string) string {
	if f.pendingCR {
		delta = "\r" + delta
		f.pendingCR = false
	}
	if strings.HasSuffix(delta, "\r") {
		f.pendingCR = true
		delta = delta[:len(delta)-1]
	}
	return FormatResult(delta)
}

// Flush returns whatever Push held back.
func (f *streamFormatter) Flush() string {
	if !f.pendingCR {
		return ""
	}
	f.pendingCR = false
	return lineBreakMarker
}
