package detect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/pagealign/internal/config"
)

func sourceTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, p := range []string{
		"acme/2024/annual.pdf",
		"acme/2024/notes.txt",
		"acme/2023/old.pdf",
		"globex/2024/report.pdf",
		"globex/2024/sustainability.PDF",
	} {
		full := filepath.Join(root, p)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("%PDF-1.7"), 0o644))
	}
	return root
}

func newTestRunner(root string, companies []string) *Runner {
	cfg := config.Config{}
	cfg.Source = config.SourceConfig{Root: root, Year: "2024", Companies: companies}
	return NewRunner(cfg, nil, nil)
}

func TestCollectJobsDiscoversCompanies(t *testing.T) {
	root := sourceTree(t)
	jobs, err := newTestRunner(root, nil).collectJobs()
	require.NoError(t, err)
	require.Len(t, jobs, 3)

	assert.Equal(t, "acme", jobs[0].Company)
	assert.Equal(t, "annual.pdf", jobs[0].DocumentName)
	assert.Equal(t, filepath.Join(root, "acme", "2024", "annual.pdf"), jobs[0].Ref)

	// extension match is case-insensitive, non-PDFs and other years excluded
	names := []string{jobs[0].DocumentName, jobs[1].DocumentName, jobs[2].DocumentName}
	assert.ElementsMatch(t, []string{"annual.pdf", "report.pdf", "sustainability.PDF"}, names)
}

func TestCollectJobsExplicitCompanyList(t *testing.T) {
	root := sourceTree(t)
	jobs, err := newTestRunner(root, []string{"globex"}).collectJobs()
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	for _, j := range jobs {
		assert.Equal(t, "globex", j.Company)
		assert.Equal(t, "2024", j.Year)
	}
}

func TestCollectJobsMissingCompanySkipped(t *testing.T) {
	root := sourceTree(t)
	jobs, err := newTestRunner(root, []string{"initech"}).collectJobs()
	require.NoError(t, err)
	assert.Empty(t, jobs)
}
