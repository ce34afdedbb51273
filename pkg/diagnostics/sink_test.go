package diagnostics

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bufferPort struct {
	bytes.Buffer
	closed bool
}

func (b *bufferPort) Close() error {
	b.closed = true
	return nil
}

func TestSinkWriteAndClose(t *testing.T) {
	port := &bufferPort{}
	s := &Sink{port: port, name: "test"}

	n, err := s.Write([]byte("link up\n"))
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, "link up\n", port.String())

	require.NoError(t, s.Close())
	assert.True(t, port.closed)

	n, err = s.Write([]byte("dropped"))
	assert.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, "link up\n", port.String())
	assert.NoError(t, s.Close())
}

func TestOpenMissingPort(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "ttyS9"), 0)
	assert.Error(t, err)
}
