// Package reference generates the external, human-shareable identifiers
// for submissions: a kind prefix plus eight uppercase hex characters
// drawn from a UUID (e.g. "BS-3FA8C21D").
package reference

import (
	"fmt"
	"strings"

	"github.com/bookfairhq/bookfair-backend/internal/model"
	"github.com/google/uuid"
)

var prefixes = map[model.Kind]string{
	model.KindAttendee: "AR",
	model.KindStand:    "BS",
	model.KindDonation: "DN",
}

var kindsByPrefix = map[string]model.Kind{
	"AR": model.KindAttendee,
	"BS": model.KindStand,
	"DN": model.KindDonation,
}

// New produces a fresh reference for the given kind. Uniqueness is
// probabilistic; the store retries on the rare collision.
func New(kind model.Kind) string {
	id := uuid.New()
	hex := strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))
	return fmt.Sprintf("%s-%s", prefixes[kind], hex[:8])
}

// KindOf extracts the submission kind from a reference, for endpoints
// that receive only a reference (badge scans, payment callbacks).
func KindOf(ref string) (model.Kind, error) {
	prefix, rest, ok := strings.Cut(ref, "-")
	if !ok || len(rest) != 8 {
		return "", fmt.Errorf("malformed reference %q", ref)
	}
	kind, ok := kindsByPrefix[prefix]
	if !ok {
		return "", fmt.Errorf("unknown reference prefix %q", prefix)
	}
	return kind, nil
}
