package agent

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// ExtractJSON returns the first balanced JSON object in text. Braces inside
// string literals are ignored. The object must also be valid JSON.
func ExtractJSON(text string) (string, bool) {
	for start := strings.IndexByte(text, '{'); start >= 0; {
		if end := matchBrace(text, start); end >= 0 {
			if candidate := text[start : end+1]; gjson.Valid(candidate) {
				return candidate, true
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// matchBrace returns the index of the brace closing the one at start, or -1.
func matchBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

var svgBlock = regexp.MustCompile(`(?is)<svg[\s>].*?</svg>`)

// ExtractSVG returns the first <svg>...</svg> document in text.
func ExtractSVG(text string) (string, bool) {
	block := svgBlock.FindString(text)
	return block, block != ""
}
