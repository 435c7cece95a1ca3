package crypto

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	k := make([]byte, 32)
	for i := range k {
		k[i] = byte(255 - i)
	}
	return k
}

func TestSealOpen(t *testing.T) {
	s, err := NewSealer(testKey())
	require.NoError(t, err)

	sealed, err := s.Seal("dear diary")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, sealedPrefix))
	assert.NotContains(t, sealed, "diary")

	again, err := s.Seal("dear diary")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonce must differ")

	plain, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "dear diary", plain)
}

func TestOpen_PlaintextPassthrough(t *testing.T) {
	s, err := NewSealer(testKey())
	require.NoError(t, err)
	plain, err := s.Open("written before a key existed")
	require.NoError(t, err)
	assert.Equal(t, "written before a key existed", plain)

	empty, err := s.Seal("")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestOpen_WrongKey(t *testing.T) {
	s1, err := NewSealer(testKey())
	require.NoError(t, err)
	other := make([]byte, 32)
	s2, err := NewSealer(other)
	require.NoError(t, err)

	sealed, err := s1.Seal("secret")
	require.NoError(t, err)
	_, err = s2.Open(sealed)
	assert.Error(t, err)
}

func TestNewSealer_KeyLength(t *testing.T) {
	_, err := NewSealer([]byte("short"))
	assert.Error(t, err)

	_, err = NewSealerFromBase64(base64.StdEncoding.EncodeToString(testKey()))
	assert.NoError(t, err)
	_, err = NewSealerFromBase64("%%%")
	assert.Error(t, err)
}
