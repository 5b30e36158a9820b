package offset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(n int) *int { return &n }

func TestNewSampleComputesOffset(t *testing.T) {
	s := NewSample(47, intp(42))
	require.NotNil(t, s.Offset())
	assert.Equal(t, 5, *s.Offset())

	none := NewSample(47, nil)
	assert.Nil(t, none.Offset())
}

func TestConsensusUnanimousIsHigh(t *testing.T) {
	samples := []Sample{
		NewSample(25, intp(21)),
		NewSample(50, intp(46)),
		NewSample(75, intp(71)),
	}

	res := Consensus(samples)
	require.NotNil(t, res.Offset)
	assert.Equal(t, 4, *res.Offset)
	assert.Equal(t, ConfidenceHigh, res.Confidence)
	assert.Equal(t, 3, res.SamplesProcessed)
	assert.Equal(t, 3, res.SamplesValid)
	assert.Equal(t, 3, res.SamplesAgreed)
	assert.Equal(t, 1.0, res.AgreementRatio)
	assert.Empty(t, res.Warning)
	for _, ev := range res.Evidence {
		assert.True(t, ev.AgreesWithConsensus)
	}
}

func TestConsensusTwoOfThreeIsMedium(t *testing.T) {
	samples := []Sample{
		NewSample(10, intp(8)),  // offset 2
		NewSample(20, intp(17)), // offset 3
		NewSample(30, intp(27)), // offset 3
	}

	res := Consensus(samples)
	require.NotNil(t, res.Offset)
	assert.Equal(t, 3, *res.Offset)
	assert.Equal(t, ConfidenceMedium, res.Confidence)
	assert.Equal(t, 2, res.SamplesAgreed)
	assert.Equal(t, "Medium confidence: 2/3 samples agree. Consider manual verification.", res.Warning)
}

func TestConsensusNoAgreementIsLow(t *testing.T) {
	samples := []Sample{
		NewSample(10, intp(9)),
		NewSample(20, intp(18)),
		NewSample(30, intp(27)),
		NewSample(40, intp(36)),
	}

	res := Consensus(samples)
	require.NotNil(t, res.Offset)
	assert.Equal(t, ConfidenceLow, res.Confidence)
	assert.Equal(t, 1, res.SamplesAgreed)
	assert.Equal(t, "Low confidence: Only 1/4 samples agree. Manual review recommended.", res.Warning)
}

func TestConsensusNoValidSamplesIsNone(t *testing.T) {
	samples := []Sample{
		NewSample(10, nil),
		NewSample(20, nil),
		NewSample(30, nil),
	}

	res := Consensus(samples)
	assert.Nil(t, res.Offset)
	assert.Equal(t, ConfidenceNone, res.Confidence)
	assert.Equal(t, 3, res.SamplesProcessed)
	assert.Zero(t, res.SamplesValid)
	assert.Equal(t, "No labeled page numbers detected. Document may use PDF page numbers directly (offset = 0).", res.Message)
	assert.Len(t, res.Evidence, 3)
}

func TestConsensusTieBreaksOnFirstEncountered(t *testing.T) {
	samples := []Sample{
		NewSample(10, intp(5)),  // offset 5
		NewSample(20, intp(13)), // offset 7
		NewSample(30, intp(25)), // offset 5
		NewSample(40, intp(33)), // offset 7
	}

	res := Consensus(samples)
	require.NotNil(t, res.Offset)
	assert.Equal(t, 5, *res.Offset)
}

func TestConsensusDistributionMatchesOffsets(t *testing.T) {
	samples := []Sample{
		NewSample(10, intp(8)),
		NewSample(20, intp(17)),
		NewSample(30, nil),
	}

	res := Consensus(samples)
	assert.Equal(t, []int{2, 3}, res.AllOffsets)
	assert.Equal(t, map[int]int{2: 1, 3: 1}, res.OffsetDistribution)

	total := 0
	for _, n := range res.OffsetDistribution {
		total += n
	}
	assert.Equal(t, res.SamplesValid, total)
}

func TestConsensusMixedValidityEvidenceOrder(t *testing.T) {
	samples := []Sample{
		NewSample(10, nil),
		NewSample(20, intp(16)),
		NewSample(30, intp(26)),
	}

	res := Consensus(samples)
	require.Len(t, res.Evidence, 3)
	assert.Equal(t, 10, res.Evidence[0].PDFPage)
	assert.Nil(t, res.Evidence[0].DetectedLabel)
	assert.False(t, res.Evidence[0].AgreesWithConsensus)
	assert.True(t, res.Evidence[1].AgreesWithConsensus)
	assert.True(t, res.Evidence[2].AgreesWithConsensus)
}

func TestOutliers(t *testing.T) {
	samples := []Sample{
		NewSample(10, intp(8)),  // offset 2
		NewSample(20, intp(18)), // offset 2
		NewSample(30, intp(20)), // offset 10
	}

	out := Outliers(samples)
	require.Len(t, out, 1)
	assert.Equal(t, 30, out[0].PhysicalPage)

	assert.Nil(t, Outliers([]Sample{NewSample(10, intp(8))}))
}
