package runner

import "strings"

// SplitCommandLine splits a command string into arguments, using the same rules as the MS C runtime:
//  1. Arguments are delimited by white space, which is either a space or a tab.
//  2. A string surrounded by double quotation marks is interpreted as a single argument,
//     regardless of white space contained within. A quoted string can be embedded in an argument.
//  3. A double quotation mark preceded by a backslash is interpreted as a literal double quotation mark.
//
// Single quotes group the same way double quotes do. Runs of white space
// outside quotes produce no empty arguments.
func SplitCommandLine(cmd string) []string {
	var parts []string
	var inQuote rune
	var quoted bool

	var b strings.Builder
	flush := func() {
		if b.Len() > 0 || quoted {
			parts = append(parts, b.String())
		}
		b.Reset()
		quoted = false
	}

	prev := rune(0)
	for _, ch := range cmd {
		switch {
		case (ch == '"' || ch == '\'') && prev == '\\':
			s := b.String()
			b.Reset()
			b.WriteString(s[:len(s)-1])
			b.WriteRune(ch)
		case ch == '"' || ch == '\'':
			switch inQuote {
			case 0:
				inQuote = ch
				quoted = true
			case ch:
				inQuote = 0
			default:
				b.WriteRune(ch)
			}
		case (ch == ' ' || ch == '\t') && inQuote == 0:
			flush()
		default:
			b.WriteRune(ch)
		}
		prev = ch
	}
	flush()
	return parts
}
