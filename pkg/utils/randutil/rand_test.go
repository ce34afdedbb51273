package randutil

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHex16(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 64; i++ {
		h := Hex16()
		v, err := strconv.ParseUint(h, 16, 32)
		require.NoError(t, err)
		assert.Less(t, v, uint64(0xffff))
		seen[h] = struct{}{}
	}
	assert.Greater(t, len(seen), 1)
}

func TestHex16Differs(t *testing.T) {
	expect := Hex16()
	for i := 0; i < 8; i++ {
		if actual := Hex16(); actual != expect {
			return
		}
	}
	t.Errorf("Hex16 returned %v nine times in a row", expect)
}
