package testutil

import "testing"

// AssertColumnsAligned checks that every per-token column of an encoding has
// the same length as the first and that masks only hold 0 or 1.
func AssertColumnsAligned(tb testing.TB, ids, typeIDs, specialMask, attentionMask []uint32) {
	tb.Helper()

	n := len(ids)
	for name, col := range map[string][]uint32{
		"type_ids":            typeIDs,
		"special_tokens_mask": specialMask,
		"attention_mask":      attentionMask,
	} {
		if len(col) != n {
			tb.Fatalf("%s: len %d, want %d", name, len(col), n)
		}
	}

	for i := 0; i < n; i++ {
		if specialMask[i] > 1 {
			tb.Fatalf("special_tokens_mask[%d] = %d, want 0 or 1", i, specialMask[i])
		}
		if attentionMask[i] > 1 {
			tb.Fatalf("attention_mask[%d] = %d, want 0 or 1", i, attentionMask[i])
		}
	}
}
