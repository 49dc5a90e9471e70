package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewmonitor/internal/domain/entity"
)

func TestDecodeEnvelopeFlatList(t *testing.T) {
	body := []byte(`{
		"violations": [
			{"review_id": "R1", "type": "Profanity", "severity": "High", "recommended_action": "Remove"},
			{"review_id": "R1", "type": "Spam", "severity": "Low", "recommended_action": "Keep"},
			{"review_id": "R2", "type": "Off-topic", "severity": "Medium", "recommended_action": "Edit"}
		]
	}`)

	findings, err := decodeEnvelope(body, []string{"R1", "R2"})
	require.NoError(t, err)

	assert.Len(t, findings["R1"], 2)
	assert.Len(t, findings["R2"], 1)
	assert.Equal(t, "Profanity", findings["R1"][0].Type)
	assert.Equal(t, entity.SeverityHigh, findings["R1"][0].Severity)
	assert.Equal(t, entity.ActionRemove, findings["R1"][0].Action)
}

func TestDecodeEnvelopeFlatListWithoutIDsSingleReview(t *testing.T) {
	// Per-review mode: the classifier omits review_id when asked about one
	// review, so the findings belong to that review.
	body := []byte(`{
		"violations": [
			{"type": "Policy Violation", "severity": "High", "recommended_action": "Remove", "details": "review contains seller contact info"}
		]
	}`)

	findings, err := decodeEnvelope(body, []string{"R1"})
	require.NoError(t, err)

	require.Len(t, findings["R1"], 1)
	assert.Equal(t, "Policy Violation", findings["R1"][0].Type)
	assert.Equal(t, entity.SeverityHigh, findings["R1"][0].Severity)
}

func TestDecodeEnvelopeFlatListWithoutIDsMultiReview(t *testing.T) {
	// With several reviews in flight an id-less finding cannot be
	// attributed; guessing would misfile it, so the envelope is rejected.
	body := []byte(`{
		"violations": [
			{"type": "Policy Violation", "severity": "High", "recommended_action": "Remove"}
		]
	}`)

	_, err := decodeEnvelope(body, []string{"R1", "R2"})
	assert.ErrorIs(t, err, ErrUnrecognizedEnvelope)
}

func TestDecodeEnvelopeResultList(t *testing.T) {
	body := []byte(`{
		"results": [
			{"review_id": "R1", "violations": [{"type": "Spam", "severity": "Low", "recommended_action": "Keep"}]},
			{"review_id": "R2", "violations": []}
		]
	}`)

	findings, err := decodeEnvelope(body, []string{"R1", "R2"})
	require.NoError(t, err)

	assert.Len(t, findings["R1"], 1)
	assert.Empty(t, findings["R2"])
	assert.Equal(t, "Spam", findings["R1"][0].Type)
}

func TestDecodeEnvelopeResultListWithoutIDSingleReview(t *testing.T) {
	body := []byte(`{
		"results": [
			{"violations": [{"type": "Spam", "severity": "Low", "recommended_action": "Keep"}]}
		]
	}`)

	findings, err := decodeEnvelope(body, []string{"R1"})
	require.NoError(t, err)
	assert.Len(t, findings["R1"], 1)

	_, err = decodeEnvelope(body, []string{"R1", "R2"})
	assert.ErrorIs(t, err, ErrUnrecognizedEnvelope)
}

func TestDecodeEnvelopeReviewMap(t *testing.T) {
	body := []byte(`{
		"R1": [{"type": "Profanity", "severity": "Critical", "recommended_action": "Remove"}],
		"R2": []
	}`)

	findings, err := decodeEnvelope(body, []string{"R1", "R2"})
	require.NoError(t, err)

	require.Len(t, findings["R1"], 1)
	// Critical collapses onto the stored High severity
	assert.Equal(t, entity.SeverityHigh, findings["R1"][0].Severity)
}

func TestDecodeEnvelopeUnrecognizedShapes(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"top-level array", `[{"review_id": "R1"}]`},
		{"scalar", `42`},
		{"violations not a list", `{"violations": {"R1": []}}`},
		{"results not a list", `{"results": {"R1": []}}`},
		{"map with non-list values", `{"R1": {"type": "Spam"}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := decodeEnvelope([]byte(tc.body), []string{"R1"})
			assert.ErrorIs(t, err, ErrUnrecognizedEnvelope)
		})
	}
}

func TestDecodeEnvelopeEmptyObject(t *testing.T) {
	// No findings at all is a valid response
	findings, err := decodeEnvelope([]byte(`{}`), []string{"R1"})
	require.NoError(t, err)
	assert.Empty(t, findings)
}
