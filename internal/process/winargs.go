package process

import (
	"strings"
	"unicode/utf16"
)

// joinCommandLine builds the single command-line string Windows hands to a
// new process, quoting each argument so CommandLineToArgvW splits it back
// into the original argv. Arguments are joined with single spaces and there
// is no trailing separator.
func joinCommandLine(args []string) string {
	var b strings.Builder
	for i, arg := range args {
		if i > 0 {
			b.WriteByte(' ')
		}
		appendEscapedArg(&b, arg)
	}
	return b.String()
}

// appendEscapedArg writes arg with the documented argv-splitting rules: an
// argument containing space, tab or quote (or an empty argument) is wrapped
// in quotes, backslashes immediately preceding a quote are doubled, and
// embedded quotes are escaped.
func appendEscapedArg(b *strings.Builder, arg string) {
	if arg == "" {
		b.WriteString(`""`)
		return
	}
	if !strings.ContainsAny(arg, " \t\"") {
		b.WriteString(arg)
		return
	}

	b.WriteByte('"')
	slashes := 0
	for i := 0; i < len(arg); i++ {
		c := arg[i]
		switch c {
		case '\\':
			slashes++
		case '"':
			// Backslashes before a quote must themselves be escaped.
			for ; slashes > 0; slashes-- {
				b.WriteByte('\\')
			}
			b.WriteByte('\\')
		default:
			slashes = 0
		}
		b.WriteByte(c)
	}
	// Trailing backslashes would otherwise escape the closing quote.
	for ; slashes > 0; slashes-- {
		b.WriteByte('\\')
	}
	b.WriteByte('"')
}

// buildEnvBlock flattens NAME=VALUE entries into the UTF-16, NUL-separated,
// double-NUL-terminated block CreateProcess expects. A nil list returns nil,
// meaning the child inherits the parent's environment unmodified.
func buildEnvBlock(env []string) []uint16 {
	if env == nil {
		return nil
	}
	var block []uint16
	for _, entry := range env {
		block = append(block, utf16.Encode([]rune(entry))...)
		block = append(block, 0)
	}
	if len(env) == 0 {
		block = append(block, 0)
	}
	block = append(block, 0)
	return block
}
