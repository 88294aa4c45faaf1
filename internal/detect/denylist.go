package detect

import (
	"strings"
	"unicode"

	"github.com/xrash/smetrics"
)

// DenyList forces redaction of user-supplied terms regardless of what the
// detector backends find. Matching is case-insensitive. With fuzzy matching
// enabled, candidates within MaxDistance edits are accepted; WholePhrase
// controls whether multi-word terms are matched as phrases or split into
// independent single-word terms.
type DenyList struct {
	Terms       []string
	Fuzzy       bool
	MaxDistance int
	WholePhrase bool
}

// textWord is a tokenized word with its rune offsets.
type textWord struct {
	text  string
	start int
	end   int
}

// Detect runs the deny-list pass over one line of text. Exact matches come
// out as CUSTOM entities, fuzzy matches as CUSTOM_FUZZY.
func (d *DenyList) Detect(text string) []Entity {
	if len(d.Terms) == 0 || text == "" {
		return nil
	}

	var entities []Entity
	entities = append(entities, d.exactMatches(text)...)
	if d.Fuzzy && d.MaxDistance > 0 {
		entities = append(entities, d.fuzzyMatches(text)...)
	}
	return entities
}

func (d *DenyList) exactMatches(text string) []Entity {
	// Compare rune-by-rune rather than over strings.ToLower output: string
	// lowercasing can change byte and rune length (U+0130 lowers to two
	// runes), which would desync offsets from the original text.
	runes := []rune(text)
	lower := lowerRunes(runes)

	var entities []Entity
	for _, term := range d.Terms {
		needle := lowerRunes([]rune(strings.TrimSpace(term)))
		if len(needle) == 0 {
			continue
		}
		from := 0
		for {
			idx := indexRunes(lower[from:], needle)
			if idx < 0 {
				break
			}
			start := from + idx
			end := start + len(needle)
			entities = append(entities, Entity{
				Type:  TypeCustom,
				Text:  string(runes[start:end]),
				Score: 1.0,
				Start: start,
				End:   end,
			})
			from = end
		}
	}
	return entities
}

func lowerRunes(rs []rune) []rune {
	out := make([]rune, len(rs))
	for i, r := range rs {
		out[i] = unicode.ToLower(r)
	}
	return out
}

func indexRunes(haystack, needle []rune) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		j := 0
		for j < len(needle) && haystack[i+j] == needle[j] {
			j++
		}
		if j == len(needle) {
			return i
		}
	}
	return -1
}

func (d *DenyList) fuzzyMatches(text string) []Entity {
	words := tokenize(text)
	if len(words) == 0 {
		return nil
	}

	var entities []Entity
	for _, term := range d.Terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		if d.WholePhrase {
			entities = append(entities, d.fuzzyPhrase(text, words, term)...)
		} else {
			// Split the term and match each word independently.
			for _, termWord := range strings.Fields(term) {
				entities = append(entities, d.fuzzyWords(text, words, termWord)...)
			}
		}
	}
	return entities
}

// fuzzyPhrase slides a window of the term's word count across the text and
// accepts windows within the edit-distance budget.
func (d *DenyList) fuzzyPhrase(text string, words []textWord, term string) []Entity {
	termWords := strings.Fields(term)
	n := len(termWords)
	if n == 0 || n > len(words) {
		return nil
	}
	needle := strings.ToLower(strings.Join(termWords, " "))

	var entities []Entity
	for i := 0; i+n <= len(words); i++ {
		var parts []string
		for _, w := range words[i : i+n] {
			parts = append(parts, strings.ToLower(w.text))
		}
		window := strings.Join(parts, " ")

		dist := smetrics.WagnerFischer(window, needle, 1, 1, 1)
		if dist > d.MaxDistance {
			continue
		}
		start := words[i].start
		end := words[i+n-1].end
		entities = append(entities, Entity{
			Type:  TypeCustomFuzzy,
			Text:  sliceRunes(text, start, end),
			Score: fuzzyScore(dist, len(needle)),
			Start: start,
			End:   end,
		})
	}
	return entities
}

func (d *DenyList) fuzzyWords(text string, words []textWord, termWord string) []Entity {
	needle := strings.ToLower(termWord)

	var entities []Entity
	for _, w := range words {
		dist := smetrics.WagnerFischer(strings.ToLower(w.text), needle, 1, 1, 1)
		if dist > d.MaxDistance {
			continue
		}
		entities = append(entities, Entity{
			Type:  TypeCustomFuzzy,
			Text:  w.text,
			Score: fuzzyScore(dist, len(needle)),
			Start: w.start,
			End:   w.end,
		})
	}
	return entities
}

func fuzzyScore(dist, termLen int) float64 {
	if termLen <= 0 {
		return 0
	}
	score := 1.0 - float64(dist)/float64(termLen)
	if score < 0 {
		return 0
	}
	return score
}

// tokenize splits text into words with rune offsets. Punctuation adjacent
// to a word is kept out of the token so edit distances are not inflated.
func tokenize(text string) []textWord {
	var words []textWord
	runes := []rune(text)

	i := 0
	for i < len(runes) {
		for i < len(runes) && !isWordRune(runes[i]) {
			i++
		}
		start := i
		for i < len(runes) && isWordRune(runes[i]) {
			i++
		}
		if i > start {
			words = append(words, textWord{
				text:  string(runes[start:i]),
				start: start,
				end:   i,
			})
		}
	}
	return words
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '-'
}

func sliceRunes(s string, start, end int) string {
	runes := []rune(s)
	if start < 0 {
		start = 0
	}
	if end > len(runes) {
		end = len(runes)
	}
	if start >= end {
		return ""
	}
	return string(runes[start:end])
}
