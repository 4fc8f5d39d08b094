package badge

import (
	"testing"

	"github.com/bookfairhq/bookfair-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSubmission() *model.Submission {
	return &model.Submission{Reference: "BS-3FA8C21D", Kind: model.KindStand}
}

func TestEncode_StablePerReference(t *testing.T) {
	issuer := NewIssuer("https://fair.example.com/checkin", "secret")
	first := issuer.Encode(testSubmission())
	second := issuer.Encode(testSubmission())

	// Reprints must produce the identical code.
	assert.Equal(t, first, second)
	assert.Contains(t, first, "ref=BS-3FA8C21D")
}

func TestDecode_RoundTrip(t *testing.T) {
	issuer := NewIssuer("https://fair.example.com/checkin", "secret")
	ref, err := issuer.Decode(issuer.Encode(testSubmission()))
	require.NoError(t, err)
	assert.Equal(t, "BS-3FA8C21D", ref)
}

func TestDecode_InvalidFormat(t *testing.T) {
	issuer := NewIssuer("https://fair.example.com/checkin", "secret")

	for _, scanned := range []string{
		"not-a-valid-url",
		"",
		"https://fair.example.com/checkin",             // no query
		"https://fair.example.com/checkin?ref=BS-1234", // no signature
		"https://fair.example.com/checkin?sig=abcd",    // no reference
	} {
		_, err := issuer.Decode(scanned)
		assert.ErrorIs(t, err, ErrInvalidFormat, "scanned=%q", scanned)
	}
}

func TestDecode_TamperedSignature(t *testing.T) {
	issuer := NewIssuer("https://fair.example.com/checkin", "secret")
	other := NewIssuer("https://fair.example.com/checkin", "different-secret")

	_, err := issuer.Decode(other.Encode(testSubmission()))
	assert.ErrorIs(t, err, ErrBadSignature)
}
