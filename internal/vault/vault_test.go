package vault

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func master() []byte {
	return bytes.Repeat([]byte{7}, KeySize)
}

func TestNewRejectsShortKey(t *testing.T) {
	_, err := New([]byte("short"))
	assert.ErrorIs(t, err, ErrKeySize)
}

func TestDataKeyRoundTrip(t *testing.T) {
	v, err := New(master())
	require.NoError(t, err)

	key, wrapped, nonce, err := v.NewDataKey()
	require.NoError(t, err)
	assert.Len(t, key, KeySize)
	assert.NotEqual(t, key, wrapped)

	got, err := v.Unwrap(wrapped, nonce)
	require.NoError(t, err)
	assert.Equal(t, key, got)
}

func TestUnwrapWithOtherMasterFails(t *testing.T) {
	v, _ := New(master())
	_, wrapped, nonce, err := v.NewDataKey()
	require.NoError(t, err)

	other, _ := New(bytes.Repeat([]byte{8}, KeySize))
	_, err = other.Unwrap(wrapped, nonce)
	assert.ErrorIs(t, err, ErrOpen)
}

func TestSealOpen(t *testing.T) {
	key := bytes.Repeat([]byte{1}, KeySize)

	ct, nonce, err := Seal(key, []byte("Grocery\nmilk\neggs"))
	require.NoError(t, err)
	assert.Len(t, nonce, 24)
	assert.NotContains(t, string(ct), "milk")

	pt, err := Open(key, nonce, ct)
	require.NoError(t, err)
	assert.Equal(t, "Grocery\nmilk\neggs", string(pt))

	ct[0] ^= 0xff
	_, err = Open(key, nonce, ct)
	assert.ErrorIs(t, err, ErrOpen)
}

func TestOpenBadNonce(t *testing.T) {
	key := bytes.Repeat([]byte{1}, KeySize)
	_, err := Open(key, []byte{1, 2, 3}, []byte("x"))
	assert.ErrorIs(t, err, ErrOpen)
}
