package review

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mergedFixture = `{
  "company": "acme",
  "analysis_results": [
    {
      "question_id": "Q1",
      "question_text": "Does the company disclose water pollution incidents?",
      "category": "environment",
      "disclosures": [
        {"snippet_id": "s1", "text": "The company faced two lawsuits over river contamination.", "classification": "direct"},
        {"snippet_id": "s2", "text": "No disclosure found for this topic."}
      ]
    },
    {
      "question_id": "Q2",
      "question_text": "Does the company report legal proceedings?",
      "category": "governance",
      "disclosures": [
        {"snippet_id": "s3", "text": "The company  faced two lawsuits over river contamination."},
        {"snippet_id": "s4", "quote": "Board met four times in 2024."}
      ]
    },
    {
      "question_number": 3,
      "question_text": "Board activity?",
      "category": "governance",
      "disclosures": [
        {"text": "Board met four times in 2024."}
      ]
    }
  ]
}`

func writeMerged(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "a b c", NormalizeText("  A \n B\tC "))
	assert.Equal(t, NormalizeText("The  Company"), NormalizeText("the company"))
}

func TestFindDuplicateGroups(t *testing.T) {
	path := writeMerged(t, "acme_deduped.json", mergedFixture)

	groups, err := FindDuplicateGroups([]string{path}, true)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	// Whitespace-variant snippets group together; original text of the first
	// occurrence is kept.
	lawsuits := groups[0]
	assert.Equal(t, "The company faced two lawsuits over river contamination.", lawsuits.Text)
	assert.Equal(t, path, lawsuits.File)
	require.Len(t, lawsuits.Entries, 2)
	assert.Equal(t, "Q1", lawsuits.Entries[0].QuestionID)
	assert.Equal(t, "Q2", lawsuits.Entries[1].QuestionID)
	assert.Equal(t, "s1", lawsuits.Entries[0].SnippetID)
	assert.Equal(t, "direct", lawsuits.Entries[0].Classification)

	// "quote" field and numeric question_number both resolve.
	board := groups[1]
	assert.Equal(t, "Board met four times in 2024.", board.Text)
	assert.ElementsMatch(t, []string{"Q2", "3"},
		[]string{board.Entries[0].QuestionID, board.Entries[1].QuestionID})
}

func TestFindDuplicateGroupsSkipsPlaceholders(t *testing.T) {
	doc := `{
  "analysis_results": [
    {"question_id": "Q1", "question_text": "a", "category": "c",
     "disclosures": [{"text": "No disclosure found for this topic."}]},
    {"question_id": "Q2", "question_text": "b", "category": "c",
     "disclosures": [{"text": "no disclosure found for this topic."}]}
  ]
}`
	path := writeMerged(t, "x_deduped.json", doc)

	groups, err := FindDuplicateGroups([]string{path}, true)
	require.NoError(t, err)
	assert.Empty(t, groups)

	// With skipping off the placeholder is a duplicate like any other.
	groups, err = FindDuplicateGroups([]string{path}, false)
	require.NoError(t, err)
	assert.Len(t, groups, 1)
}

func TestFindDuplicateGroupsSameQuestionNotDuplicate(t *testing.T) {
	doc := `{
  "analysis_results": [
    {"question_id": "Q1", "question_text": "a", "category": "c",
     "disclosures": [{"text": "repeated"}, {"text": "repeated"}]}
  ]
}`
	path := writeMerged(t, "y_deduped.json", doc)

	groups, err := FindDuplicateGroups([]string{path}, true)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestFindDuplicateGroupsBadJSON(t *testing.T) {
	path := writeMerged(t, "bad.json", "{not json")
	_, err := FindDuplicateGroups([]string{path}, true)
	assert.Error(t, err)
}
