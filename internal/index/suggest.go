package index

import (
	"strings"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2/search"
)

// MaxSuggestDistance is the largest edit distance accepted for a correction
const MaxSuggestDistance = 2

// suggestField is the term dictionary used for spelling corrections
const suggestField = "content"

// Suggest proposes a corrected version of q
// Each word that analyzes to a single unknown term is replaced by the closest
// dictionary term within MaxSuggestDistance; ties go to the more frequent term.
// The dictionary is walked once per call, whatever the number of words.
// Returns false when nothing was corrected.
func (si *SiteIndex) Suggest(q string) (string, bool) {
	words := strings.Fields(strings.ToLower(q))
	if len(words) == 0 {
		return "", false
	}

	terms := make(map[int]string, len(words))
	m := newTermMatcher()
	for i, word := range words {
		analyzed := si.analyze(word)
		if len(analyzed) != 1 {
			continue
		}
		terms[i] = analyzed[0]
		m.add(analyzed[0])
	}
	if len(terms) == 0 {
		return "", false
	}

	if err := si.scanDictionary(m); err != nil {
		return "", false
	}

	changed := false
	for i, term := range terms {
		correction, ok := m.best(term)
		if !ok {
			continue
		}
		words[i] = correction
		changed = true
	}

	if !changed {
		return "", false
	}
	return strings.Join(words, " "), true
}

// scanDictionary feeds every term of the suggest field to m
func (si *SiteIndex) scanDictionary(m *termMatcher) error {
	dict, err := si.index.FieldDict(suggestField)
	if err != nil {
		return err
	}
	defer func() {
		_ = dict.Close() // Ignore close error, dictionary is read-only
	}()

	for {
		entry, err := dict.Next()
		if err != nil {
			return err
		}
		if entry == nil {
			return nil
		}
		m.observe(entry.Term, entry.Count)
	}
}

// termMatch is the closest dictionary term seen so far for one query term
type termMatch struct {
	runes    int
	known    bool
	term     string
	distance int
	count    uint64
}

// termMatcher tracks corrections for several query terms during one dictionary scan
type termMatcher struct {
	matches map[string]*termMatch
}

func newTermMatcher() *termMatcher {
	return &termMatcher{matches: make(map[string]*termMatch)}
}

func (m *termMatcher) add(term string) {
	if _, ok := m.matches[term]; ok {
		return
	}
	m.matches[term] = &termMatch{
		runes:    utf8.RuneCountInString(term),
		distance: MaxSuggestDistance + 1,
	}
}

// observe compares one dictionary entry against every pending term
// Entries whose length differs by more than MaxSuggestDistance runes are skipped
// without computing the edit distance.
func (m *termMatcher) observe(entry string, count uint64) {
	n := utf8.RuneCountInString(entry)
	for term, match := range m.matches {
		if match.known {
			continue
		}
		if entry == term {
			match.known = true
			continue
		}
		if diff := n - match.runes; diff > MaxSuggestDistance || diff < -MaxSuggestDistance {
			continue
		}

		distance := search.LevenshteinDistance(term, entry)
		if distance > MaxSuggestDistance {
			continue
		}
		if distance < match.distance || (distance == match.distance && count > match.count) {
			match.term = entry
			match.distance = distance
			match.count = count
		}
	}
}

// best returns the correction for term
// Returns false if the term is in the dictionary or nothing was close enough.
func (m *termMatcher) best(term string) (string, bool) {
	match, ok := m.matches[term]
	if !ok || match.known || match.term == "" {
		return "", false
	}
	return match.term, true
}
