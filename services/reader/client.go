// Package readersvc fetches sheet-music PDFs from the legacy reader service.
package readersvc

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/gleeworld/gleeworld/core"
	"github.com/gleeworld/gleeworld/core/library"
)

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

var _ library.PDFSource = (*Client)(nil)

func NewClient(conf *core.Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(conf.Reader.BaseURL, "/"),
		apiKey:  conf.Reader.APIKey,
		http:    httpClient,
	}
}

// FetchPDF downloads {base}/pdfs/{id}.pdf. The caller closes the returned body.
func (c *Client) FetchPDF(ctx context.Context, id string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/pdfs/"+url.PathEscape(id)+".pdf", nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetching pdf")
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return nil, library.ErrPDFNotFound
		}
		return nil, errors.Wrapf(library.ErrPDFNotFound, "HTTP %d", resp.StatusCode)
	}
	return resp.Body, nil
}
