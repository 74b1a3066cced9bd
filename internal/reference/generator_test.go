package reference

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClaimReferenceFormat(t *testing.T) {
	gen := NewGenerator()
	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

	assert.Equal(t, "CLM-20240309140507", gen.ClaimReference(now))
}

func TestClaimReferenceNeverRepeats(t *testing.T) {
	gen := NewGenerator()
	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

	first := gen.ClaimReference(now)
	second := gen.ClaimReference(now.Add(200 * time.Millisecond))
	third := gen.ClaimReference(now.Add(-time.Minute))

	assert.Equal(t, "CLM-20240309140507", first)
	assert.Equal(t, "CLM-20240309140508", second)
	assert.Equal(t, "CLM-20240309140509", third)
}

func TestInvoiceReferenceFormat(t *testing.T) {
	gen := NewGenerator()
	pattern := regexp.MustCompile(`^INV-[0-9A-F]{8}$`)

	seen := map[string]struct{}{}
	for i := 0; i < 50; i++ {
		ref := gen.InvoiceReference()
		assert.Regexp(t, pattern, ref)
		seen[ref] = struct{}{}
	}
	assert.Greater(t, len(seen), 1)
}
