package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSeverity(t *testing.T) {
	assert.Equal(t, SeverityLow, NormalizeSeverity("Low"))
	assert.Equal(t, SeverityMedium, NormalizeSeverity("Medium"))
	assert.Equal(t, SeverityHigh, NormalizeSeverity("High"))
	assert.Equal(t, SeverityHigh, NormalizeSeverity("Critical"))
	assert.Equal(t, SeverityLow, NormalizeSeverity("whatever"))
	assert.Equal(t, SeverityLow, NormalizeSeverity(""))
}

func TestReviewScannable(t *testing.T) {
	assert.True(t, (&Review{ReviewID: "R1", Body: "has content"}).Scannable())
	assert.False(t, (&Review{ReviewID: "R1", Body: "   "}).Scannable())
	assert.False(t, (&Review{Body: "has content"}).Scannable())
}

func TestTaskStatusTerminal(t *testing.T) {
	assert.True(t, TaskStatusCompleted.Terminal())
	assert.True(t, TaskStatusFailed.Terminal())
	assert.False(t, TaskStatusPending.Terminal())
	assert.False(t, TaskStatusProcessing.Terminal())
}
