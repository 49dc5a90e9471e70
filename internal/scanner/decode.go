package scanner

import (
	"encoding/json"
	"errors"
	"fmt"

	"reviewmonitor/internal/domain/entity"
)

// ErrUnrecognizedEnvelope is returned when the classifier response matches
// none of the known shapes, or when findings cannot be attributed to a
// submitted review.
var ErrUnrecognizedEnvelope = errors.New("unrecognized classifier response shape")

// wireFinding is one finding as it appears on the wire, with an optional
// inline review id for the flat shapes.
type wireFinding struct {
	ReviewID string `json:"review_id,omitempty"`
	Type     string `json:"type"`
	Category string `json:"category,omitempty"`
	Severity string `json:"severity"`
	Benefit  string `json:"user_benefit,omitempty"`
	Action   string `json:"recommended_action"`
	Details  string `json:"details,omitempty"`
}

func (w *wireFinding) toFinding() entity.Finding {
	return entity.Finding{
		Type:     w.Type,
		Category: w.Category,
		Severity: entity.NormalizeSeverity(w.Severity),
		Benefit:  w.Benefit,
		Action:   entity.Action(w.Action),
		Details:  w.Details,
	}
}

// The classifier has shipped three response shapes over time:
//
//	{"violations": [{"review_id": "...", ...}, ...]}
//	{"results": [{"review_id": "...", "violations": [...]}, ...]}
//	{"R1ABC": [...], "R2DEF": [...]}
//
// decodeEnvelope tries each in turn and fails loudly on anything else
// instead of silently yielding zero findings. submitted is the set of
// review ids sent in the request: findings that carry no inline review_id
// are attributed to the sole submitted review when there is exactly one
// (the classifier omits the id in per-review mode), and rejected otherwise.
func decodeEnvelope(body []byte, submitted []string) (map[string][]entity.Finding, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, fmt.Errorf("%w: not a JSON object", ErrUnrecognizedEnvelope)
	}

	sole := ""
	if len(submitted) == 1 {
		sole = submitted[0]
	}

	if raw, ok := probe["violations"]; ok {
		return decodeFlatList(raw, sole)
	}
	if raw, ok := probe["results"]; ok {
		return decodeResultList(raw, sole)
	}
	return decodeReviewMap(probe)
}

// decodeFlatList handles {"violations": [...]} where each entry carries
// its own review_id, or none in per-review mode.
func decodeFlatList(raw json.RawMessage, sole string) (map[string][]entity.Finding, error) {
	var entries []wireFinding
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: violations is not a finding list", ErrUnrecognizedEnvelope)
	}

	out := make(map[string][]entity.Finding)
	for i := range entries {
		e := &entries[i]
		id, err := attributeFinding(e.ReviewID, sole)
		if err != nil {
			return nil, err
		}
		out[id] = append(out[id], e.toFinding())
	}
	return out, nil
}

// decodeResultList handles {"results": [{"review_id", "violations": [...]}]}.
func decodeResultList(raw json.RawMessage, sole string) (map[string][]entity.Finding, error) {
	var entries []struct {
		ReviewID   string        `json:"review_id"`
		Violations []wireFinding `json:"violations"`
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: results is not a result list", ErrUnrecognizedEnvelope)
	}

	out := make(map[string][]entity.Finding)
	for _, e := range entries {
		if len(e.Violations) == 0 {
			continue
		}
		id, err := attributeFinding(e.ReviewID, sole)
		if err != nil {
			return nil, err
		}
		for i := range e.Violations {
			out[id] = append(out[id], e.Violations[i].toFinding())
		}
	}
	return out, nil
}

// attributeFinding resolves which review a finding belongs to. An id-less
// finding is only attributable when the request carried a single review;
// guessing across several would misfile violations, so the envelope is
// rejected instead.
func attributeFinding(inlineID, sole string) (string, error) {
	if inlineID != "" {
		return inlineID, nil
	}
	if sole != "" {
		return sole, nil
	}
	return "", fmt.Errorf("%w: finding carries no review_id and the request held more than one review", ErrUnrecognizedEnvelope)
}

// decodeReviewMap handles the map-keyed-by-review-id shape. Every value
// must decode as a finding list or the whole envelope is rejected.
func decodeReviewMap(probe map[string]json.RawMessage) (map[string][]entity.Finding, error) {
	out := make(map[string][]entity.Finding, len(probe))
	for reviewID, raw := range probe {
		var entries []wireFinding
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("%w: value for %q is not a finding list", ErrUnrecognizedEnvelope, reviewID)
		}
		for i := range entries {
			out[reviewID] = append(out[reviewID], entries[i].toFinding())
		}
	}
	return out, nil
}
