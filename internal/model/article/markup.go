package article

import (
	"regexp"
	"strings"
)

// BlockKind classifies one line of section markup.
type BlockKind string

const (
	BlockHeading   BlockKind = "heading"
	BlockBullet    BlockKind = "bullet"
	BlockNumbered  BlockKind = "numbered"
	BlockParagraph BlockKind = "paragraph"
)

// Span is a run of inline text, optionally bold.
type Span struct {
	Text string `json:"text"`
	Bold bool   `json:"bold,omitempty"`
}

// Block is a parsed line of section markup.
type Block struct {
	Kind  BlockKind `json:"kind"`
	Spans []Span    `json:"spans"`
}

var (
	numberedPrefix = regexp.MustCompile(`^\d+\.\s`)
	boldSpan       = regexp.MustCompile(`\*\*[^*]+\*\*`)
)

// ParseBlocks splits a section body into blocks. Blank lines are dropped.
func ParseBlocks(body string) []Block {
	lines := strings.Split(body, "\n")
	blocks := make([]Block, 0, len(lines))

	for _, line := range lines {
		switch {
		case strings.TrimSpace(line) == "":
			continue
		case len(line) > 4 && strings.HasPrefix(line, "**") && strings.HasSuffix(line, "**"):
			blocks = append(blocks, Block{
				Kind:  BlockHeading,
				Spans: []Span{{Text: strings.ReplaceAll(line, "**", ""), Bold: true}},
			})
		case strings.HasPrefix(line, "- "):
			blocks = append(blocks, Block{Kind: BlockBullet, Spans: parseSpans(line[2:])})
		case numberedPrefix.MatchString(line):
			blocks = append(blocks, Block{Kind: BlockNumbered, Spans: parseSpans(numberedPrefix.ReplaceAllString(line, ""))})
		default:
			blocks = append(blocks, Block{Kind: BlockParagraph, Spans: parseSpans(line)})
		}
	}

	return blocks
}

func parseSpans(text string) []Span {
	var spans []Span
	last := 0
	for _, loc := range boldSpan.FindAllStringIndex(text, -1) {
		if loc[0] > last {
			spans = append(spans, Span{Text: text[last:loc[0]]})
		}
		spans = append(spans, Span{Text: text[loc[0]+2 : loc[1]-2], Bold: true})
		last = loc[1]
	}
	if last < len(text) {
		spans = append(spans, Span{Text: text[last:]})
	}
	return spans
}
