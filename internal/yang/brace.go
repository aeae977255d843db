package yang

// scanState tracks what the brace scanner is currently inside of. Only
// stateCode characters affect brace depth or start a new mode.
type scanState uint8

const (
	stateCode scanState = iota
	stateLineComment
	stateBlockComment
	stateDQString
	stateSQString
)

// MatchBrace returns the index of the '}' closing the '{' at open. The scan
// ignores braces inside line comments, block comments, and single- or
// double-quoted strings; backslash-escaped quotes do not terminate a string.
//
// Unterminated input returns the last index of text: callers must treat that
// as "matched to end of document", never as an error. Single pass, no
// backtracking.
func MatchBrace(text string, open int) int {
	depth := 1
	state := stateCode
	for i := open + 1; i < len(text); i++ {
		c := text[i]
		switch state {
		case stateCode:
			switch c {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return i
				}
			case '"':
				state = stateDQString
			case '\'':
				state = stateSQString
			case '/':
				if i+1 < len(text) {
					switch text[i+1] {
					case '/':
						state = stateLineComment
						i++
					case '*':
						state = stateBlockComment
						i++
					}
				}
			}
		case stateLineComment:
			if c == '\n' {
				state = stateCode
			}
		case stateBlockComment:
			if c == '*' && i+1 < len(text) && text[i+1] == '/' {
				state = stateCode
				i++
			}
		case stateDQString:
			switch c {
			case '\\':
				i++
			case '"':
				state = stateCode
			}
		case stateSQString:
			switch c {
			case '\\':
				i++
			case '\'':
				state = stateCode
			}
		}
	}
	return len(text) - 1
}
