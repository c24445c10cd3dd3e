package tuitest

import (
	"regexp"
	"strings"
)

// Render is one full-screen draw, with escape sequences stripped.
type Render struct {
	Seq  int
	Text string
}

var (
	clearScreen  = regexp.MustCompile(`\x1b\[[0-9;]*J`)
	csiSequence  = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)
	oscSequence  = regexp.MustCompile(`\x1b\][^\x07]*(\x07|\x1b\\)`)
	shiftCharset = strings.NewReplacer("\x0e", "", "\x0f", "")
)

// splitRenders cuts the raw terminal stream on clear-screen sequences,
// one Render per draw, dropping blank segments.
func splitRenders(raw []byte) []Render {
	cleaned := strings.ReplaceAll(string(raw), "\r", "")
	renders := make([]Render, 0, 8)
	for _, segment := range clearScreen.Split(cleaned, -1) {
		text := tidy(scrub(segment))
		if strings.TrimSpace(text) == "" {
			continue
		}
		renders = append(renders, Render{Seq: len(renders), Text: text})
	}
	if len(renders) == 0 && len(cleaned) > 0 {
		renders = append(renders, Render{Text: tidy(scrub(cleaned))})
	}
	return renders
}

// Final returns the last render; ok is false when nothing was drawn.
func (c *Capture) Final() (Render, bool) {
	if c == nil || len(c.Renders) == 0 {
		return Render{}, false
	}
	return c.Renders[len(c.Renders)-1], true
}

// Contains reports whether any render shows the given text.
func (c *Capture) Contains(text string) bool {
	if c == nil {
		return false
	}
	for _, r := range c.Renders {
		if strings.Contains(r.Text, text) {
			return true
		}
	}
	return false
}

func scrub(s string) string {
	s = oscSequence.ReplaceAllString(s, "")
	s = csiSequence.ReplaceAllString(s, "")
	return shiftCharset.Replace(s)
}

func tidy(s string) string {
	lines := strings.Split(strings.Trim(s, "\x00"), "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
