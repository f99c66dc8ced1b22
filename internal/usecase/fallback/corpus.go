// Package fallback serves locally generated answers when the inference
// service cannot: a keyword-indexed corpus with per-category response
// templates, plus the moderation short-circuit for banned topics.
package fallback

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Entry is one corpus record. The field names follow the corpus file
// produced by the content team.
type Entry struct {
	Intent            string   `json:"intent"`
	Keywords          []string `json:"keywords"`
	Context           string   `json:"context_for_indexing"`
	Response          string   `json:"response_to_display"`
	FollowUpQuestions []string `json:"follow_up_questions"`
	FollowUpAnswers   []string `json:"follow_up_answers"`
}

// LoadCorpus reads and decodes a corpus file.
func LoadCorpus(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode corpus %s: %w", path, err)
	}
	return entries, nil
}

// indexEntry is one keyword flattened out of a corpus entry.
type indexEntry struct {
	keyword         string
	intent          string
	context         string
	response        string
	followUps       []string
	followUpAnswers []string
}

// buildIndex flattens entries into one row per keyword, sorted longest
// keyword first so more specific phrases win ties.
func buildIndex(entries []Entry) []indexEntry {
	var index []indexEntry
	for _, e := range entries {
		for _, kw := range e.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			index = append(index, indexEntry{
				keyword:         kw,
				intent:          e.Intent,
				context:         e.Context,
				response:        e.Response,
				followUps:       e.FollowUpQuestions,
				followUpAnswers: e.FollowUpAnswers,
			})
		}
	}
	// Stable sort keeps corpus order for equal-length keywords.
	sort.SliceStable(index, func(i, j int) bool {
		return len(index[i].keyword) > len(index[j].keyword)
	})
	return index
}
