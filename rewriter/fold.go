package rewriter

var newline = []byte{'\r', '\n'}

const foldWidth = 78

// splitItems splits a written address list at the ", " separators that are
// outside quoted strings and comments.
func splitItems(v string) []string {
	var items []string
	start, depth, inQuote := 0, 0, false
	for i := 0; i < len(v); i++ {
		c := v[i]
		switch {
		case c == '\\' && (inQuote || depth > 0):
			i++
		case c == '"' && depth == 0:
			inQuote = !inQuote
		case inQuote:
		case c == '(':
			depth++
		case c == ')' && depth > 0:
			depth--
		case depth == 0 && c == ',' && i+1 < len(v) && v[i+1] == ' ':
			items = append(items, v[start:i])
			start = i + 2
			i++
		}
	}
	return append(items, v[start:])
}

// fold lays out "name: value" over as many lines as needed to keep them
// under foldWidth, breaking only after list separators.
func fold(name []byte, value string) [][]byte {
	var chunks [][]byte
	line := make([]byte, 0, foldWidth)
	line = append(line, name...)
	line = append(line, ':', ' ')
	for i, item := range splitItems(value) {
		if i > 0 {
			if len(line)+2+len(item) > foldWidth {
				chunks = append(chunks, append(line, ','))
				line = make([]byte, 0, foldWidth)
				line = append(line, ' ')
			} else {
				line = append(line, ',', ' ')
			}
		}
		line = append(line, item...)
	}
	return append(chunks, line)
}
