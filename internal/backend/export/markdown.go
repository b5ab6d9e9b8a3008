package export

import "strings"

const maxHeadingLevel = 3

// Block is one document-level element produced from the markdown reply
type Block interface {
	block()
}

type Heading struct {
	Level int
	Text  string
}

type Paragraph struct {
	Runs []Run
}

type PageBreak struct{}

func (Heading) block()   {}
func (Paragraph) block() {}
func (PageBreak) block() {}

// ParseMarkdown is a single line-oriented pass: '#' lines become headings,
// a line that is exactly "---" becomes a page break, blank lines are dropped
// and everything else becomes a paragraph of styled runs.
func ParseMarkdown(markdown string) []Block {
	var blocks []Block

	normalized := strings.ReplaceAll(markdown, "\r\n", "\n")
	for _, line := range strings.Split(normalized, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "#"):
			blocks = append(blocks, parseHeading(line))
		case trimmed == "---":
			blocks = append(blocks, PageBreak{})
		case trimmed == "":
			continue
		default:
			blocks = append(blocks, Paragraph{Runs: Tokenize(line)})
		}
	}

	return blocks
}

func parseHeading(line string) Heading {
	text := strings.TrimLeft(line, "#")
	level := len(line) - len(text)
	if level > maxHeadingLevel {
		level = maxHeadingLevel
	}
	// inline bold markers carry no meaning inside a heading
	return Heading{Level: level, Text: PlainText(Tokenize(strings.TrimSpace(text)))}
}
