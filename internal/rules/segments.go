package rules

import (
	"strings"

	shellwords "github.com/mattn/go-shellwords"
)

// shell operators that end one command segment and start the next.
var separators = map[string]bool{
	"&&": true,
	"||": true,
	";":  true,
	"|":  true,
	"&":  true,
}

// Split breaks a compound command line into its constituent simple
// commands so each can be inspected independently. Separators inside
// quotes do not split. The second return is true when the line could not
// be tokenized (unbalanced quotes and the like); callers then fall back
// to treating the whole line as one segment.
//
// The parser stops at the first unquoted ;, &, |, < or > and reports
// where, so each segment comes from re-parsing the remainder.
func Split(cmd string) ([]string, bool) {
	var segments []string

	rest := []rune(cmd)
	for len(rest) > 0 {
		p := shellwords.NewParser()
		p.ParseEnv = false
		p.ParseBacktick = false

		tokens, err := p.Parse(string(rest))
		if err != nil {
			return []string{cmd}, true
		}
		if len(tokens) > 0 {
			segments = append(segments, strings.Join(tokens, " "))
		}
		if p.Position < 0 {
			break
		}

		next := rest[p.Position:]
		for len(next) > 0 && isOperator(next[0]) {
			next = next[1:]
		}
		// Guarantee progress even when the parser stops without leaving
		// an operator at the reported position (fd redirects like 2>).
		if len(next) >= len(rest) {
			next = rest[1:]
		}
		rest = next
	}

	if len(segments) == 0 {
		return []string{cmd}, false
	}
	return segments, false
}

func isOperator(r rune) bool {
	switch r {
	case ';', '&', '|', '<', '>':
		return true
	}
	return false
}
