// Package review finds evidence snippets attached to more than one question
// in merged extraction output, asks an LLM whether each snippet belongs on
// every question it is attached to, and applies the decisions.
package review

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Entry is one (question, snippet) attachment inside a duplicate group.
type Entry struct {
	QuestionID     string `json:"question_id"`
	QuestionText   string `json:"question_text"`
	Category       string `json:"category"`
	SnippetID      string `json:"snippet_id,omitempty"`
	Classification string `json:"classification,omitempty"`
}

// Group is one snippet that appears under multiple distinct questions.
type Group struct {
	Text    string  `json:"text"`
	File    string  `json:"file"`
	Entries []Entry `json:"entries"`
}

// NormalizeText collapses whitespace and lowercases, so near-identical
// snippets group together.
func NormalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// FindDuplicateGroups scans merged JSON files and returns every snippet
// attached to more than one distinct question. Placeholder snippets
// ("No disclosure found...") are skipped when skipPlaceholder is set.
func FindDuplicateGroups(files []string, skipPlaceholder bool) ([]Group, error) {
	var groups []Group
	for _, path := range files {
		fileGroups, err := duplicateGroupsInFile(path, skipPlaceholder)
		if err != nil {
			return nil, err
		}
		groups = append(groups, fileGroups...)
	}
	return groups, nil
}

func duplicateGroupsInFile(path string, skipPlaceholder bool) ([]Group, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read merged file: %w", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	type bucket struct {
		text    string
		entries []Entry
	}
	snippetMap := map[string]*bucket{}
	var keyOrder []string

	for _, q := range asSlice(doc["analysis_results"]) {
		question, ok := q.(map[string]any)
		if !ok {
			continue
		}
		qid := questionID(question)
		if qid == "" {
			continue
		}
		qText := strings.TrimSpace(asString(question["question_text"]))
		category := asString(question["category"])

		for _, d := range asSlice(question["disclosures"]) {
			snip, ok := d.(map[string]any)
			if !ok {
				continue
			}
			text := snippetText(snip)
			if text == "" {
				continue
			}
			if skipPlaceholder && strings.HasPrefix(strings.ToLower(text), "no disclosure found") {
				continue
			}

			key := NormalizeText(text)
			b, exists := snippetMap[key]
			if !exists {
				b = &bucket{text: text}
				snippetMap[key] = b
				keyOrder = append(keyOrder, key)
			}
			b.entries = append(b.entries, Entry{
				QuestionID:     qid,
				QuestionText:   qText,
				Category:       category,
				SnippetID:      asString(snip["snippet_id"]),
				Classification: asString(snip["classification"]),
			})
		}
	}

	var groups []Group
	for _, key := range keyOrder {
		b := snippetMap[key]
		distinct := map[string]struct{}{}
		for _, e := range b.entries {
			distinct[e.QuestionID] = struct{}{}
		}
		if len(distinct) > 1 {
			groups = append(groups, Group{Text: b.text, File: path, Entries: b.entries})
		}
	}
	return groups, nil
}

// questionID prefers question_id and falls back to question_number.
func questionID(q map[string]any) string {
	if id := asString(q["question_id"]); id != "" {
		return id
	}
	switch v := q["question_number"].(type) {
	case string:
		return v
	case float64:
		return strconv.Itoa(int(v))
	}
	return ""
}

// snippetText prefers the "text" field and falls back to "quote".
func snippetText(snip map[string]any) string {
	if t := strings.TrimSpace(asString(snip["text"])); t != "" {
		return t
	}
	return strings.TrimSpace(asString(snip["quote"]))
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
