package api

import (
	"fmt"
	"strings"
)

// RenderPreview asks the server to render a document snapshot and
// returns the artifact URL.
func (c *Client) RenderPreview(req PreviewRenderRequest) (*PreviewRenderResponse, error) {
	data, err := c.post("/preview/pdf", req)
	if err != nil {
		return nil, err
	}
	resp, err := decodeOne[PreviewRenderResponse](data)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.PreviewURL) == "" {
		return nil, fmt.Errorf("decode response: missing preview_url")
	}
	return resp, nil
}
