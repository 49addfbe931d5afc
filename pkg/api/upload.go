package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/google/go-github/v69/github"
)

// UploadReleaseAsset streams a local file to the uploads host as a release
// asset. The asset is named after the file's base name.
func (c *Client) UploadReleaseAsset(ctx context.Context, owner, repo string, releaseID int64, assetPath string) (*github.ReleaseAsset, error) {
	name := filepath.Base(assetPath)
	uploadURL, err := appendQuery(
		fmt.Sprintf("%s/repos/%s/%s/releases/%d/assets", c.uploadsURL, owner, repo, releaseID),
		"name", name,
	)
	if err != nil {
		return nil, err
	}

	resp, err := c.Do(ctx, Request{
		URL:        uploadURL,
		Method:     http.MethodPost,
		BinaryPath: assetPath,
		Scopes:     scopeRepo,
		Resource:   fmt.Sprintf("%s/%s release %d asset %s", owner, repo, releaseID, name),
	})
	if err != nil {
		return nil, err
	}

	var out github.ReleaseAsset
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// appendQuery adds one query parameter to an absolute URL.
func appendQuery(rawURL, key, value string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %q", errURLNotAbsolute, rawURL)
	}
	q := parsed.Query()
	q.Set(key, value)
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}
