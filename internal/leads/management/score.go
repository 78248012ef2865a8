package management

import (
	"encoding/json"
	"fmt"

	"lead_portal_backend/internal/questionnaire"
	"lead_portal_backend/internal/scoring"
)

func marshalBreakdown(b scoring.Breakdown) ([]byte, error) {
	raw, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encode score breakdown: %w", err)
	}
	return raw, nil
}

func textAnswer(responses questionnaire.ResponseSet, questionID string) *string {
	v, ok := responses[questionID].AsText()
	if !ok || v == "" {
		return nil
	}
	return &v
}
