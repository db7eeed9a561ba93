package ingest

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/fyrsmithlabs/vibeguard/internal/ingest/ingesttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGitHubSource_TokenStaysOnAPIHost(t *testing.T) {
	srv := ingesttest.NewServer(t)
	want := sampleArchive(t)
	srv.AddArchive("octo", "widgets", "main", want)

	client, err := NewGitHubClient(GitHubClientConfig{BaseURL: srv.URL, Token: "ghp_secret"})
	require.NoError(t, err)

	archive, err := NewGitHubSource(client, nil).OpenArchive(context.Background(), "octo", "widgets", "main")
	require.NoError(t, err)
	data, err := io.ReadAll(archive.Body)
	require.NoError(t, archive.Body.Close())
	require.NoError(t, err)

	assert.Equal(t, want, data)
	assert.Equal(t, []string{"Bearer ghp_secret"}, srv.APIAuthorizations())
	assert.Equal(t, []string{""}, srv.ArchiveAuthorizations(), "archive host must not see the token")
}

func TestGitHubSource_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"missing ref", http.StatusNotFound, ErrNotFound},
		{"rate limited", http.StatusForbidden, ErrFetch},
		{"server error", http.StatusInternalServerError, ErrFetch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := ingesttest.NewServer(t)
			srv.SetStatus("octo", "widgets", "main", tt.status)

			_, err := NewGitHubSource(srv.Client(t), nil).OpenArchive(context.Background(), "octo", "widgets", "main")
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, srv.ArchiveAuthorizations(), "no archive download after a failed lookup")
		})
	}
}

func TestEscapeRef(t *testing.T) {
	assert.Equal(t, "release/1.x", escapeRef("release/1.x"))
	assert.Equal(t, "feature/a%20b", escapeRef("feature/a b"))
}
