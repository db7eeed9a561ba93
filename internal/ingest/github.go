package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// Archive is an open snapshot download.
type Archive struct {
	Body io.ReadCloser
	// Size is the declared Content-Length, or -1 when unknown.
	Size int64
}

// Source opens snapshot archives. Implementations classify their failures
// with the sentinels in this package (ErrNotFound, ErrFetch).
type Source interface {
	OpenArchive(ctx context.Context, owner, name, ref string) (*Archive, error)
}

// GitHubClientConfig configures the GitHub API client.
type GitHubClientConfig struct {
	// BaseURL overrides https://api.github.com/ (GitHub Enterprise, tests).
	BaseURL string
	// Token is optional; anonymous requests get a lower rate limit.
	Token     string
	UserAgent string
	// HTTPClient is the base transport. Defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// NewGitHubClient builds a go-github client, authenticated when a token is
// configured.
func NewGitHubClient(cfg GitHubClientConfig) (*github.Client, error) {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if cfg.Token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		httpClient = oauth2.NewClient(ctx, ts)
	}

	client := github.NewClient(httpClient)
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", cfg.BaseURL, err)
		}
		client.BaseURL = u
	}
	if cfg.UserAgent != "" {
		client.UserAgent = cfg.UserAgent
	}
	return client, nil
}

// GitHubSource downloads zipball snapshots through the GitHub REST API.
type GitHubSource struct {
	client   *github.Client
	download *http.Client
}

// NewGitHubSource wraps a go-github client. Archive bodies are fetched with
// download, which must carry no API credentials; nil means
// http.DefaultClient.
func NewGitHubSource(client *github.Client, download *http.Client) *GitHubSource {
	if download == nil {
		download = http.DefaultClient
	}
	return &GitHubSource{client: client, download: download}
}

// OpenArchive resolves GET /repos/{owner}/{repo}/zipball/{ref} to its
// codeload link without following the redirect, then fetches the link with
// the download client so the API token never leaves api.github.com. The
// caller must close the returned body.
func (s *GitHubSource) OpenArchive(ctx context.Context, owner, name, ref string) (*Archive, error) {
	link, resp, err := s.client.Repositories.GetArchiveLink(ctx,
		url.PathEscape(owner), url.PathEscape(name), github.Zipball,
		&github.RepositoryContentGetOptions{Ref: escapeRef(ref)}, 0)
	if err != nil {
		return nil, archiveLinkError(resp, err)
	}
	link = s.client.BaseURL.ResolveReference(link)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrIngest, err)
	}
	if s.client.UserAgent != "" {
		req.Header.Set("User-Agent", s.client.UserAgent)
	}

	res, err := s.download.Do(req)
	if err != nil {
		return nil, classifyGitHubError(err)
	}
	switch res.StatusCode {
	case http.StatusOK:
		return &Archive{Body: res.Body, Size: res.ContentLength}, nil
	case http.StatusNotFound:
		res.Body.Close()
		return nil, fmt.Errorf("%w: archive link for %s/%s@%s is gone", ErrNotFound, owner, name, ref)
	default:
		res.Body.Close()
		return nil, fmt.Errorf("%w: archive download returned status %d", ErrFetch, res.StatusCode)
	}
}

// archiveLinkError classifies a failed link lookup. GetArchiveLink reports
// any non-redirect answer as a plain error, so the status is rechecked
// through go-github to recover the typed API errors.
func archiveLinkError(resp *github.Response, err error) error {
	if resp == nil || resp.Response == nil {
		return classifyGitHubError(err)
	}
	if apiErr := github.CheckResponse(resp.Response); apiErr != nil {
		return classifyGitHubError(apiErr)
	}
	return fmt.Errorf("%w: expected an archive redirect, got status %d", ErrFetch, resp.StatusCode)
}

// escapeRef escapes each segment so refs like "release/1.x" keep their
// slashes.
func escapeRef(ref string) string {
	segs := strings.Split(ref, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

// classifyGitHubError maps go-github errors onto the ingestion taxonomy.
// Context errors pass through unchanged so the caller can tell a timeout
// from a cancellation.
func classifyGitHubError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("%w: rate limited until %s", ErrFetch, rateErr.Rate.Reset.Time.Format("15:04:05 MST"))
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return fmt.Errorf("%w: secondary rate limit: %s", ErrFetch, abuseErr.Message)
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch code := respErr.Response.StatusCode; {
		case code == http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, respErr.Message)
		case code == http.StatusTooManyRequests:
			return fmt.Errorf("%w: rate limited (status %d)", ErrFetch, code)
		default:
			return fmt.Errorf("%w: unexpected status %d: %s", ErrFetch, code, respErr.Message)
		}
	}

	return fmt.Errorf("%w: %v", ErrFetch, err)
}
