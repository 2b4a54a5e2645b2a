package declopt

// Tokenize splits a single command line string into argument tokens using
// the minimal rule set of spec.md §4.2: space, tab and newline separate tokens;
// single or double quotes group characters verbatim until the matching
// closing quote; mismatched quotes keep consuming to end of input.
// Backslash escaping is deliberately not interpreted.
func Tokenize(line string) []string {
	tokens, _, _ := tokenizeWithCursor(line, -1)
	return tokens
}

// tokenizeWithCursor additionally locates the completion cursor: the index
// of the token containing byte offset cursor within line, and the
// completion prefix (t_c up to the cursor). When the cursor sits on a
// whitespace boundary or at end of input, an empty synthetic token is
// inserted into tokens at that position, its index is returned, and the
// prefix is "". cursor < 0 disables cursor tracking.
func tokenizeWithCursor(line string, cursor int) (tokens []string, cursorTokenIndex int, prefix string) {
	type span struct{ start, end int }
	var spans []span

	i := 0
	n := len(line)
	cursorTokenIndex = -1

	for i < n {
		for i < n && isSpace(line[i]) {
			i++
		}
		if i >= n {
			break
		}
		start := i
		var b []byte
		for i < n && !isSpace(line[i]) {
			c := line[i]
			if c == '\'' || c == '"' {
				quote := c
				i++
				for i < n && line[i] != quote {
					b = append(b, line[i])
					i++
				}
				if i < n {
					i++ // consume closing quote
				}
				continue
			}
			b = append(b, c)
			i++
		}
		tokens = append(tokens, string(b))
		spans = append(spans, span{start: start, end: i})
	}

	if cursor < 0 {
		return tokens, -1, ""
	}

	for idx, sp := range spans {
		if cursor >= sp.start && cursor <= sp.end {
			return tokens, idx, rawPrefix(line, sp.start, cursor)
		}
	}

	// Cursor sits at a whitespace boundary, or at end of input: synthetic
	// empty token inserted at the right position.
	insertAt := len(tokens)
	for idx, sp := range spans {
		if cursor < sp.start {
			insertAt = idx
			break
		}
	}
	tokens = insertTokenAt(tokens, insertAt, "")
	return tokens, insertAt, ""
}

// rawPrefix mirrors the substring of the *raw* line (quotes included) up to
// cursor, then strips quote characters the same minimal way
// tokenizeWithCursor does, so
// that the reported completion prefix matches the dequoted token content.
func rawPrefix(line string, start, cursor int) string {
	var b []byte
	i := start
	for i < cursor && i < len(line) {
		c := line[i]
		if c == '\'' || c == '"' {
			quote := c
			i++
			for i < cursor && i < len(line) && line[i] != quote {
				b = append(b, line[i])
				i++
			}
			continue
		}
		b = append(b, c)
		i++
	}
	return string(b)
}

func insertTokenAt(tokens []string, at int, tok string) []string {
	out := make([]string, 0, len(tokens)+1)
	out = append(out, tokens[:at]...)
	out = append(out, tok)
	out = append(out, tokens[at:]...)
	return out
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n'
}
