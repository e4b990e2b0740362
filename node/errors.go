package node

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/oraclesuite/go-oraclepool/submit"
)

// Rejection phrases of the reference node, matched case-insensitively on
// the response body. The node reports errors as free text, there is no
// machine-readable code to switch on.
var (
	staleMarkers = []string{
		"double spend",
		"double-spend",
		"unknown box",
		"box not found",
		"already spent",
		"missing inputs",
	}
	rejectMarkers = []string{
		"script",
		"verification failed",
		"reduced to false",
		"malformed",
	}
)

// apiError maps an HTTP error response onto the submission sentinels.
// Unrecognized client errors stay unclassified and fall through to the
// coordinator's bounded retry.
func apiError(path string, status int, body []byte) error {
	detail := strings.TrimSpace(string(body))
	if len(detail) > 300 {
		detail = detail[:300]
	}
	switch {
	case status >= http.StatusInternalServerError:
		return fmt.Errorf("node: %s: http %d: %s: %w", path, status, detail, submit.ErrUnavailable)
	case containsAny(detail, staleMarkers):
		return fmt.Errorf("node: %s: %s: %w", path, detail, submit.ErrStaleInput)
	case containsAny(detail, rejectMarkers):
		return fmt.Errorf("node: %s: %s: %w", path, detail, submit.ErrRejected)
	default:
		return fmt.Errorf("node: %s: http %d: %s", path, status, detail)
	}
}

func containsAny(s string, markers []string) bool {
	s = strings.ToLower(s)
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
