package offset

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	v := Validate(nil, 50)
	assert.False(t, v.IsValid)
	assert.Equal(t, "No offset detected", v.Message)

	v = Validate(intp(0), 50)
	assert.True(t, v.IsValid)
	assert.Equal(t, "Zero offset: PDF and document pages match", v.Message)

	v = Validate(intp(4), 50)
	assert.True(t, v.IsValid)
	assert.Equal(t, "Positive offset (4): PDF pages numbered higher than document pages", v.Message)

	v = Validate(intp(-3), 50)
	assert.True(t, v.IsValid)
	assert.Equal(t, "Negative offset (-3): PDF pages numbered lower than document pages", v.Message)

	v = Validate(intp(75), 50)
	assert.False(t, v.IsValid)
	assert.Equal(t, "Offset 75 exceeds maximum 50. May be incorrect.", v.Message)

	v = Validate(intp(-75), 50)
	assert.False(t, v.IsValid)
}

func TestBuildMapping(t *testing.T) {
	samples := []Sample{
		NewSample(25, intp(21)),
		NewSample(50, intp(46)),
		NewSample(75, intp(71)),
	}
	res := Consensus(samples)

	dm := BuildMapping("acme", "2024", "annual_report.pdf", res, []string{"a.png", "b.png"}, "", 0)
	assert.Equal(t, "acme", dm.Company)
	assert.Equal(t, "acme_2024", dm.CompanyKey)
	assert.Equal(t, "annual_report.pdf", dm.DocumentName)
	require.NotNil(t, dm.Offset)
	assert.Equal(t, 4, *dm.Offset)
	assert.Equal(t, ConfidenceHigh, dm.Confidence)
	assert.Equal(t, MethodOCRAuto, dm.Method)
	assert.Equal(t, []string{"a.png", "b.png"}, dm.EvidenceImages)
	assert.True(t, dm.Validation.IsValid)
}

func TestMappingJSONRoundTrip(t *testing.T) {
	samples := []Sample{
		NewSample(10, intp(8)),
		NewSample(20, intp(18)),
		NewSample(30, nil),
	}
	dm := BuildMapping("acme", "2024", "report.pdf", Consensus(samples), nil, MethodOCRAuto, DefaultMaxOffset)

	data, err := json.Marshal(dm)
	require.NoError(t, err)

	var back DocumentMapping
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, dm.CompanyKey, back.CompanyKey)
	require.NotNil(t, back.Offset)
	assert.Equal(t, *dm.Offset, *back.Offset)
	assert.Equal(t, dm.OffsetDistribution, back.OffsetDistribution)
	assert.Equal(t, dm.Evidence, back.Evidence)
	assert.Equal(t, dm.Validation, back.Validation)
}

func TestMappingNullOffsetStaysNull(t *testing.T) {
	dm := BuildMapping("acme", "2024", "report.pdf",
		Consensus([]Sample{NewSample(10, nil)}), nil, MethodOCRAuto, DefaultMaxOffset)

	data, err := json.Marshal(dm)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"offset":null`)

	var back DocumentMapping
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Nil(t, back.Offset)
}

func TestMappingsSaveLoad(t *testing.T) {
	m := Mappings{}
	m.Add(BuildMapping("acme", "2024", "a.pdf",
		Consensus([]Sample{NewSample(25, intp(21))}), nil, MethodOCRAuto, DefaultMaxOffset))
	m.Add(BuildMapping("globex", "2024", "b.pdf",
		Consensus([]Sample{NewSample(25, nil)}), nil, MethodOCRAuto, DefaultMaxOffset))

	path := filepath.Join(t.TempDir(), "out", "page_offset_mappings.json")
	require.NoError(t, m.Save(path))

	loaded, err := LoadMappings(path)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, m["acme_2024"].Offset, loaded["acme_2024"].Offset)
	assert.Nil(t, loaded["globex_2024"].Offset)
}

func TestMappingsAddLastWriteWins(t *testing.T) {
	m := Mappings{}
	first := BuildMapping("acme", "2024", "old.pdf",
		Consensus([]Sample{NewSample(25, intp(21))}), nil, MethodOCRAuto, DefaultMaxOffset)
	second := BuildMapping("acme", "2024", "new.pdf",
		Consensus([]Sample{NewSample(25, intp(20))}), nil, MethodOCRAuto, DefaultMaxOffset)

	m.Add(first)
	m.Add(second)
	require.Len(t, m, 1)
	assert.Equal(t, "new.pdf", m["acme_2024"].DocumentName)
}

func TestSummarize(t *testing.T) {
	m := Mappings{}
	m.Add(BuildMapping("acme", "2024", "a.pdf",
		Consensus([]Sample{NewSample(25, intp(21)), NewSample(50, intp(46))}), nil, MethodOCRAuto, DefaultMaxOffset))
	m.Add(BuildMapping("globex", "2024", "b.pdf",
		Consensus([]Sample{NewSample(25, nil)}), nil, MethodOCRAuto, DefaultMaxOffset))

	s := Summarize(m)
	assert.Equal(t, 2, s.TotalDocuments)
	assert.Equal(t, 1, s.ConfidenceDistribution[ConfidenceHigh])
	assert.Equal(t, 1, s.ConfidenceDistribution[ConfidenceNone])
	assert.Equal(t, 1, s.DocumentsWithOffset)
	assert.Equal(t, 1, s.DocumentsNoOffset)
	require.NotNil(t, s.Offsets)
	assert.Equal(t, 4, s.Offsets.Min)
	assert.Equal(t, 4, s.Offsets.Mode)
}

func TestOffsetStats(t *testing.T) {
	st := offsetStats([]int{4, 2, 4, 8})
	assert.Equal(t, 2, st.Min)
	assert.Equal(t, 8, st.Max)
	assert.Equal(t, 4.5, st.Mean)
	assert.Equal(t, 4.0, st.Median)
	assert.Equal(t, 4, st.Mode)
}
