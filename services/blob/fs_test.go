package blobsvc

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gleeworld/gleeworld/core"
)

func TestFSStore(t *testing.T) {
	s, err := NewFSStore(t.TempDir(), "http://localhost:8000/media/")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "legacy/Ave Maria.pdf", strings.NewReader("score"), "application/pdf"))
	require.NoError(t, s.Copy(ctx, "legacy/Ave Maria.pdf", "pdfs/1.pdf"))

	r, err := s.Get(ctx, "pdfs/1.pdf")
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	r.Close()
	require.NoError(t, err)
	assert.Equal(t, "score", string(data))

	assert.Equal(t, "http://localhost:8000/media/pdfs/1.pdf", s.URL("/pdfs/1.pdf"))

	_, err = s.Get(ctx, "pdfs/2.pdf")
	assert.Equal(t, core.ErrBlobNotFound, err)
	assert.Equal(t, core.ErrBlobNotFound, s.Copy(ctx, "nope.pdf", "pdfs/3.pdf"))

	require.NoError(t, s.Delete(ctx, "pdfs/1.pdf"))
	assert.Equal(t, core.ErrBlobNotFound, s.Delete(ctx, "pdfs/1.pdf"))

	assert.Error(t, s.Put(ctx, "../escape.pdf", strings.NewReader("x"), ""))
	_, err = s.Get(ctx, "../../etc/passwd")
	assert.Error(t, err)
}
