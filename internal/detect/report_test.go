package detect

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/pagealign/internal/offset"
)

func intp(n int) *int { return &n }

func sampleRun(t *testing.T) *RunResult {
	t.Helper()
	res := &RunResult{
		RunID:    "test-run",
		Mappings: offset.Mappings{},
		Duration: 3 * time.Second,
	}

	high := offset.Consensus([]offset.Sample{
		offset.NewSample(25, intp(21)),
		offset.NewSample(50, intp(46)),
		offset.NewSample(75, intp(71)),
	})
	res.Mappings.Add(offset.BuildMapping("acme", "2024", "annual.pdf", high, nil, offset.MethodOCRAuto, offset.DefaultMaxOffset))

	none := offset.Consensus([]offset.Sample{
		offset.NewSample(25, nil),
		offset.NewSample(50, nil),
	})
	res.Mappings.Add(offset.BuildMapping("globex", "2024", "report.pdf", none, nil, offset.MethodOCRAuto, offset.DefaultMaxOffset))

	res.Flagged = []string{"globex_2024"}
	for _, dm := range res.Mappings {
		res.Results = append(res.Results, DocResult{Outcome: OutcomeMapped, Mapping: dm})
	}
	return res
}

func TestWriteReport(t *testing.T) {
	res := sampleRun(t)
	path := filepath.Join(t.TempDir(), "out", ReportFile)
	require.NoError(t, WriteReport(path, res))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	report := string(data)

	assert.Contains(t, report, "PAGE OFFSET DETECTION REPORT")
	assert.Contains(t, report, "Run ID:    test-run")
	assert.Contains(t, report, "Documents mapped:    2")
	assert.Contains(t, report, "acme_2024 (annual.pdf)")
	assert.Contains(t, report, "Offset:     4")
	assert.Contains(t, report, "globex_2024 (report.pdf)")
	assert.Contains(t, report, "Offset:     none")
	assert.Contains(t, report, "HIGH   1")
	assert.Contains(t, report, "NONE   1")
	// acme sorts before globex
	assert.Less(t, strings.Index(report, "acme_2024"), strings.Index(report, "globex_2024"))
}

func TestWriteFlagged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FlaggedFile)
	require.NoError(t, WriteFlagged(path, []string{"globex_2024", "initech_2024"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Documents flagged for manual review (confidence below HIGH)\nglobex_2024\ninitech_2024\n", string(data))
}

func TestWriteFlaggedEmptyStillWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FlaggedFile)
	require.NoError(t, WriteFlagged(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "flagged for manual review")
}
