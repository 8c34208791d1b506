package readersvc

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gleeworld/gleeworld/core"
	"github.com/gleeworld/gleeworld/core/library"
)

func TestClient_FetchPDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/pdfs/abc.pdf":
			_, _ = w.Write([]byte("%PDF-1.4"))
		case "/pdfs/broken.pdf":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	conf := new(core.Config)
	conf.Reader.BaseURL = srv.URL + "/"
	conf.Reader.APIKey = "s3cret"
	c := NewClient(conf, srv.Client())
	ctx := context.Background()

	body, err := c.FetchPDF(ctx, "abc")
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	body.Close()
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	_, err = c.FetchPDF(ctx, "missing")
	assert.Equal(t, library.ErrPDFNotFound, err)

	_, err = c.FetchPDF(ctx, "broken")
	require.Error(t, err)
	assert.Equal(t, library.ErrPDFNotFound, errors.Cause(err))
	assert.Contains(t, err.Error(), "HTTP 500")

	conf.Reader.APIKey = ""
	_, err = NewClient(conf, srv.Client()).FetchPDF(ctx, "abc")
	assert.Equal(t, library.ErrPDFNotFound, errors.Cause(err))
}
