package entropy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xssnick/tonutils-go/ton"
)

type fakeMasterchain struct {
	block *ton.BlockIDExt
	err   error
}

func (f *fakeMasterchain) CurrentMasterchainInfo(context.Context) (*ton.BlockIDExt, error) {
	return f.block, f.err
}

func TestSeed_LengthPrefixed(t *testing.T) {
	a := Seed([]byte("ab"), []byte("c"))
	b := Seed([]byte("a"), []byte("bc"))
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, Seed([]byte("ab"), []byte("c")))
	assert.NotEqual(t, Seed(nil, []byte("x")), Seed([]byte("x")))
}

func TestPick(t *testing.T) {
	assert.Equal(t, -1, Pick([]byte{1}, 0))
	assert.Equal(t, 0, Pick([]byte{0xff}, 1))
	assert.Equal(t, 4, Pick([]byte{0x01, 0x00}, 7)) // 256 mod 7

	seen := map[int]bool{}
	for i := int64(0); i < 200; i++ {
		n := Pick(Seed(Int64(i)), 5)
		require.GreaterOrEqual(t, n, 0)
		require.Less(t, n, 5)
		seen[n] = true
	}
	assert.Len(t, seen, 5)
}

func TestStatic(t *testing.T) {
	b, err := Static("abc").Entropy(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), b)
}

func TestTonSource_Entropy(t *testing.T) {
	api := &fakeMasterchain{block: &ton.BlockIDExt{
		Workchain: -1,
		SeqNo:     0x01020304,
		RootHash:  []byte{0xaa, 0xbb},
		FileHash:  []byte{0xcc},
	}}

	b, err := NewTonSource(api).Entropy(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04, 0xaa, 0xbb, 0xcc}, b)
}

func TestTonSource_Errors(t *testing.T) {
	_, err := NewTonSource(&fakeMasterchain{err: errors.New("timeout")}).Entropy(context.Background())
	require.Error(t, err)

	_, err = NewTonSource(&fakeMasterchain{block: &ton.BlockIDExt{SeqNo: 1}}).Entropy(context.Background())
	require.Error(t, err)
}
