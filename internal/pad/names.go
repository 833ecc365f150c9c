package pad

import (
	"unicode"
	"unicode/utf8"
)

const maxNameBytes = 16

// allowedTerms are the TERM values a session may set. Anything else falls
// back to xterm-256color.
var allowedTerms = map[string]bool{
	"xterm":                 true,
	"xterm-256color":        true,
	"screen":                true,
	"screen-256color":       true,
	"tmux":                  true,
	"tmux-256color":         true,
	"linux":                 true,
	"vt100":                 true,
	"vt220":                 true,
	"rxvt-unicode":          true,
	"rxvt-unicode-256color": true,
}

const defaultTerm = "xterm-256color"

// sanitizeName drops control characters and caps the result at
// maxNameBytes without splitting a rune.
func sanitizeName(s string) string {
	out := make([]byte, 0, maxNameBytes)
	for _, r := range s {
		if unicode.IsControl(r) || r == utf8.RuneError {
			continue
		}
		if len(out)+utf8.RuneLen(r) > maxNameBytes {
			break
		}
		out = utf8.AppendRune(out, r)
	}
	return string(out)
}

// termFor picks the TERM from a session environment.
func termFor(environ []string) string {
	for _, env := range environ {
		if len(env) > 5 && env[:5] == "TERM=" {
			if t := env[5:]; allowedTerms[t] {
				return t
			}
			return defaultTerm
		}
	}
	return defaultTerm
}
