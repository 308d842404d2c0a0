// Package keyword provides lexical retrieval over raw document text,
// used when no vector data exists for a document.
package keyword

import (
	"sort"
	"strings"
)

// minSegmentLength filters out fragments too short to carry meaning
// (page numbers, headings, artifacts of PDF extraction).
const minSegmentLength = 20

// SplitSegments splits text into sentence-like segments on '.', '!' and '?'
// boundaries, trims them, and drops segments of minSegmentLength characters
// or fewer.
func SplitSegments(text string) []string {
	raw := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	segments := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if len(s) > minSegmentLength {
			segments = append(segments, s)
		}
	}
	return segments
}

// Retrieve scores each segment of fullText by how many query terms it
// contains and returns the best maxChunks segments, best-first. A term
// matches by lower-cased substring containment. When no segment matches
// any term, the first maxChunks segments are returned instead so that
// callers always get some context when extractable text exists.
func Retrieve(fullText, query string, maxChunks int) []string {
	segments := SplitSegments(fullText)
	if len(segments) == 0 || maxChunks <= 0 {
		return nil
	}

	terms := strings.Fields(strings.ToLower(query))

	type scored struct {
		segment string
		score   int
	}
	matched := make([]scored, 0, len(segments))
	for _, seg := range segments {
		lower := strings.ToLower(seg)
		score := 0
		for _, term := range terms {
			if strings.Contains(lower, term) {
				score++
			}
		}
		if score > 0 {
			matched = append(matched, scored{segment: seg, score: score})
		}
	}

	if len(matched) == 0 {
		if maxChunks > len(segments) {
			maxChunks = len(segments)
		}
		return segments[:maxChunks]
	}

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].score > matched[j].score })
	if maxChunks > len(matched) {
		maxChunks = len(matched)
	}
	result := make([]string, maxChunks)
	for i := 0; i < maxChunks; i++ {
		result[i] = matched[i].segment
	}
	return result
}
