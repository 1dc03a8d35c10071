package voice

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// Detector matches the activation keyword in a transcript.
type Detector struct {
	keyword string
	// fuzzy is the largest edit distance a single word may have from the
	// keyword and still count. Zero disables fuzzy matching.
	fuzzy int
}

func NewDetector(keyword string, fuzzy int) *Detector {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		keyword = "help"
	}
	if fuzzy < 0 {
		fuzzy = 0
	}
	return &Detector{keyword: keyword, fuzzy: fuzzy}
}

// Keyword returns the normalized keyword.
func (d *Detector) Keyword() string { return d.keyword }

// Match reports whether text contains the keyword, case-insensitively.
func (d *Detector) Match(text string) bool {
	text = strings.ToLower(text)
	if strings.Contains(text, d.keyword) {
		return true
	}
	if d.fuzzy == 0 {
		return false
	}

	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	for _, w := range words {
		// Short words are too easily within range of a short keyword.
		if len(w) < 2 {
			continue
		}
		if levenshtein.ComputeDistance(w, d.keyword) <= d.fuzzy {
			return true
		}
	}
	return false
}
