package reference

import (
	"testing"

	"github.com/bookfairhq/bookfair-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_MatchesKindPattern(t *testing.T) {
	assert.Regexp(t, `^BS-[A-F0-9]{8}$`, New(model.KindStand))
	assert.Regexp(t, `^AR-[A-F0-9]{8}$`, New(model.KindAttendee))
	assert.Regexp(t, `^DN-[A-F0-9]{8}$`, New(model.KindDonation))
}

func TestNew_ProducesDistinctReferences(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		ref := New(model.KindStand)
		assert.False(t, seen[ref], "duplicate reference %s", ref)
		seen[ref] = true
	}
}

func TestKindOf(t *testing.T) {
	ref := New(model.KindStand)
	kind, err := KindOf(ref)
	require.NoError(t, err)
	assert.Equal(t, model.KindStand, kind)

	_, err = KindOf("BS12345678")
	assert.Error(t, err)

	_, err = KindOf("XX-12345678")
	assert.Error(t, err)

	_, err = KindOf("BS-123")
	assert.Error(t, err)
}
