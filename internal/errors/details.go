package errors

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
)

const detailsPrefix = "__json__:"

// DisplayMessage returns the first user-facing hint attached to err
func DisplayMessage(err error) string {
	// GetAllHints is a post-order traversal
	for _, hint := range errors.GetAllHints(err) {
		if hint = strings.TrimSpace(hint); hint != "" {
			return hint
		}
	}
	return "An unexpected error occurred"
}

// ReportableDetails merges every detail map attached with WithReportableDetails
func ReportableDetails(err error) map[string]any {
	details := make(map[string]any)

	for _, sdp := range errors.GetAllSafeDetails(err) {
		for _, payload := range sdp.SafeDetails {
			if !strings.HasPrefix(payload, detailsPrefix) || len(payload) == len(detailsPrefix) {
				continue
			}
			var jsonDetails map[string]any
			if err := json.Unmarshal([]byte(payload[len(detailsPrefix):]), &jsonDetails); err == nil {
				for k, v := range jsonDetails {
					details[k] = v
				}
			}
		}
	}
	return details
}
