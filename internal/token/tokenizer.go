package token

import "strings"

var twoCharOps = map[string]bool{">=": true, "<=": true, "==": true, "!=": true}

const singleCharOps = "+-*/%><"

// logicalLine is one continuation-joined, comment-stripped source line.
type logicalLine struct {
	lineNo int
	text   string
}

// Tokenize converts PineScript-dialect source into a flat token stream.
//
// Lexing never fails: unrecognized characters are silently skipped, since
// upstream-builder output is assumed well-formed (see design notes on parse
// tolerance).
func Tokenize(source string) []Token {
	lines := preprocess(source)
	tokens := make([]Token, 0, len(lines)*8)
	indentStack := []int{0}

	for _, ll := range lines {
		if strings.TrimSpace(ll.text) == "" {
			continue
		}

		stripped := strings.TrimLeft(ll.text, " ")
		indent := len(ll.text) - len(stripped)

		if indent > indentStack[len(indentStack)-1] {
			indentStack = append(indentStack, indent)
			tokens = append(tokens, Token{Kind: Indent, Value: "", Line: ll.lineNo})
		}
		for indent < indentStack[len(indentStack)-1] {
			indentStack = indentStack[:len(indentStack)-1]
			tokens = append(tokens, Token{Kind: Dedent, Value: "", Line: ll.lineNo})
		}

		tokens = tokenizeLine(stripped, ll.lineNo, tokens)
		tokens = append(tokens, Token{Kind: Newline, Value: "\n", Line: ll.lineNo})
	}

	for len(indentStack) > 1 {
		indentStack = indentStack[:len(indentStack)-1]
		tokens = append(tokens, Token{Kind: Dedent, Value: "", Line: 0})
	}
	tokens = append(tokens, Token{Kind: Eof, Value: "", Line: 0})
	return tokens
}

// preprocess strips line comments and joins continuation lines (lines whose
// cumulative paren/bracket depth stays above zero). Depth is tracked across
// every character of the line, including inside string literals — treated
// as opaque, since the dialect never nests paren characters in its strings.
func preprocess(source string) []logicalLine {
	rawLines := strings.Split(source, "\n")
	var out []logicalLine

	parenDepth := 0
	bracketDepth := 0
	var accum strings.Builder
	accumStart := 0
	haveAccum := false

	flush := func() {
		if haveAccum {
			out = append(out, logicalLine{lineNo: accumStart, text: accum.String()})
		}
		accum.Reset()
		haveAccum = false
	}

	for i, rawLine := range rawLines {
		lineNo := i + 1
		line := stripComment(rawLine)

		if parenDepth > 0 || bracketDepth > 0 {
			accum.WriteString(" ")
			accum.WriteString(strings.TrimSpace(line))
		} else {
			flush()
			accum.WriteString(strings.TrimRight(line, " \t\r"))
			accumStart = lineNo
			haveAccum = true
		}

		for _, ch := range line {
			switch ch {
			case '(':
				parenDepth++
			case ')':
				if parenDepth > 0 {
					parenDepth--
				}
			case '[':
				bracketDepth++
			case ']':
				if bracketDepth > 0 {
					bracketDepth--
				}
			}
		}
	}
	flush()
	return out
}

// stripComment removes a trailing "//" comment, preserving string literals.
func stripComment(line string) string {
	inString := false
	runes := []rune(line)
	for i, ch := range runes {
		if ch == '"' && (i == 0 || runes[i-1] != '\\') {
			inString = !inString
		} else if ch == '/' && !inString && i+1 < len(runes) && runes[i+1] == '/' {
			return string(runes[:i])
		}
	}
	return line
}

func tokenizeLine(text string, lineNo int, tokens []Token) []Token {
	runes := []rune(text)
	n := len(runes)
	i := 0

	for i < n {
		ch := runes[i]

		if ch == ' ' || ch == '\t' {
			i++
			continue
		}

		if ch == '"' {
			j := i + 1
			for j < n && runes[j] != '"' {
				if runes[j] == '\\' {
					j++
				}
				j++
			}
			j++ // closing quote
			hi := j - 1
			if hi > n {
				hi = n
			}
			tokens = append(tokens, Token{Kind: String, Value: string(runes[i+1 : min(hi, n)]), Line: lineNo})
			i = j
			continue
		}

		if isDigit(ch) || (ch == '.' && i+1 < n && isDigit(runes[i+1])) {
			j := i
			hasDot := false
			for j < n && (isDigit(runes[j]) || runes[j] == '.') {
				if runes[j] == '.' {
					if hasDot {
						break
					}
					hasDot = true
				}
				j++
			}
			tokens = append(tokens, Token{Kind: Number, Value: string(runes[i:j]), Line: lineNo})
			i = j
			continue
		}

		if i+1 < n && twoCharOps[string(runes[i:i+2])] {
			tokens = append(tokens, Token{Kind: Op, Value: string(runes[i : i+2]), Line: lineNo})
			i += 2
			continue
		}

		if strings.ContainsRune(singleCharOps, ch) {
			tokens = append(tokens, Token{Kind: Op, Value: string(ch), Line: lineNo})
			i++
			continue
		}

		if ch == '=' {
			tokens = append(tokens, Token{Kind: Assign, Value: "=", Line: lineNo})
			i++
			continue
		}

		switch ch {
		case '(':
			tokens = append(tokens, Token{Kind: LParen, Value: "(", Line: lineNo})
			i++
			continue
		case ')':
			tokens = append(tokens, Token{Kind: RParen, Value: ")", Line: lineNo})
			i++
			continue
		case '[':
			tokens = append(tokens, Token{Kind: LBracket, Value: "[", Line: lineNo})
			i++
			continue
		case ']':
			tokens = append(tokens, Token{Kind: RBracket, Value: "]", Line: lineNo})
			i++
			continue
		case ',':
			tokens = append(tokens, Token{Kind: Comma, Value: ",", Line: lineNo})
			i++
			continue
		case '.':
			tokens = append(tokens, Token{Kind: Dot, Value: ".", Line: lineNo})
			i++
			continue
		}

		if isAlpha(ch) || ch == '_' {
			j := i
			for j < n && (isAlnum(runes[j]) || runes[j] == '_') {
				j++
			}
			word := string(runes[i:j])
			if Keywords[word] {
				tokens = append(tokens, Token{Kind: Keyword, Value: word, Line: lineNo})
			} else {
				tokens = append(tokens, Token{Kind: Ident, Value: word, Line: lineNo})
			}
			i = j
			continue
		}

		// Unknown character — skip.
		i++
	}
	return tokens
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }
func isAlpha(r rune) bool { return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') }
func isAlnum(r rune) bool { return isAlpha(r) || isDigit(r) }

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
