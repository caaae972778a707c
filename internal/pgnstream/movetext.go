package pgnstream

import "strings"

// ParseMovetext splits PGN movetext into mainline moves. Comments are
// attached to the move they follow; variations, NAGs, move numbers and the
// result token are dropped. Check and annotation suffixes are stripped.
func ParseMovetext(s string) []Move {
	var moves []Move
	depth := 0

	attach := func(comment string) {
		comment = strings.TrimSpace(comment)
		if depth > 0 || len(moves) == 0 || comment == "" {
			return
		}
		last := &moves[len(moves)-1]
		if last.Comment != "" {
			last.Comment += " "
		}
		last.Comment += comment
	}

	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '{':
			end := strings.IndexByte(s[i+1:], '}')
			if end < 0 {
				attach(s[i+1:])
				i = len(s)
				continue
			}
			attach(s[i+1 : i+1+end])
			i += end + 2
		case c == ';':
			end := strings.IndexByte(s[i:], '\n')
			if end < 0 {
				end = len(s) - i
			}
			attach(s[i+1 : i+end])
			i += end
		case c == '}':
			i++
		case c == '(':
			depth++
			i++
		case c == ')':
			if depth > 0 {
				depth--
			}
			i++
		case isSpace(c):
			i++
		default:
			j := i
			for j < len(s) && !isSpace(s[j]) && !strings.ContainsRune("{}();", rune(s[j])) {
				j++
			}
			tok := s[i:j]
			i = j
			if depth > 0 {
				continue
			}
			if san := cleanToken(tok); san != "" {
				moves = append(moves, Move{SAN: san})
			}
		}
	}
	return moves
}

func cleanToken(tok string) string {
	if tok == "" || tok[0] == '$' || isResult(tok) {
		return ""
	}
	// Move numbers: "12." "12..." and the glued form "12...Nf6"
	if tok[0] >= '0' && tok[0] <= '9' {
		k := 0
		for k < len(tok) && tok[k] >= '0' && tok[k] <= '9' {
			k++
		}
		if k < len(tok) && tok[k] == '.' {
			for k < len(tok) && tok[k] == '.' {
				k++
			}
			tok = tok[k:]
		} else if k == len(tok) {
			return ""
		}
	}
	return strings.TrimRight(tok, "+#!?")
}

func isResult(tok string) bool {
	switch tok {
	case "1-0", "0-1", "1/2-1/2", "*":
		return true
	}
	return false
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t'
}
