// Package export turns the model's markdown reply into a WordprocessingML document.
package export

import "strings"

// Run is a span of text sharing one style
type Run struct {
	Text string
	Bold bool
}

var boldDelimiters = []string{"**", "__"}

// Tokenize splits one line into styled runs. A delimiter pair ("**" or "__")
// enclosing at least one character becomes a bold run without the delimiters;
// a delimiter without a partner stays literal. Bold does not nest.
func Tokenize(line string) []Run {
	var runs []Run
	var plain strings.Builder

	flush := func() {
		if plain.Len() > 0 {
			runs = append(runs, Run{Text: plain.String()})
			plain.Reset()
		}
	}

	for i := 0; i < len(line); {
		delimiter, closing := matchBold(line, i)
		if closing < 0 {
			plain.WriteByte(line[i])
			i++
			continue
		}
		flush()
		runs = append(runs, Run{Text: line[i+len(delimiter) : closing], Bold: true})
		i = closing + len(delimiter)
	}
	flush()

	return runs
}

// matchBold reports the delimiter opening at position i and the index of its
// partner, or -1 when no bold span starts there
func matchBold(line string, i int) (string, int) {
	for _, delimiter := range boldDelimiters {
		if !strings.HasPrefix(line[i:], delimiter) {
			continue
		}
		// the enclosed text must be at least one character long
		searchFrom := i + len(delimiter) + 1
		if searchFrom > len(line) {
			return "", -1
		}
		offset := strings.Index(line[searchFrom:], delimiter)
		if offset < 0 {
			return "", -1
		}
		return delimiter, searchFrom + offset
	}
	return "", -1
}

// PlainText joins the runs back into unstyled text
func PlainText(runs []Run) string {
	var text strings.Builder
	for _, run := range runs {
		text.WriteString(run.Text)
	}
	return text.String()
}
