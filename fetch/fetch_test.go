package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/team_members/alice.md":
			_, _ = w.Write([]byte("---\nrole: Engineer\n---\nHello"))
		case "/team_members/broken.md":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	source := NewHTTPSource(srv.URL+"/team_members/", srv.Client())

	body, err := source.Fetch(context.Background(), "alice.md")
	require.NoError(t, err)
	assert.Equal(t, "---\nrole: Engineer\n---\nHello", string(body))

	_, err = source.Fetch(context.Background(), "missing.md")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = source.Fetch(context.Background(), "broken.md")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
}

func TestHTTPSourceCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("late"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHTTPSource(srv.URL, srv.Client()).Fetch(ctx, "alice.md")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestFSSourceFetch(t *testing.T) {
	source := NewFSSource(fstest.MapFS{
		"alice.md": {Data: []byte("Hello")},
	})

	body, err := source.Fetch(context.Background(), "alice.md")
	require.NoError(t, err)
	assert.Equal(t, "Hello", string(body))

	_, err = source.Fetch(context.Background(), "bob.md")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestValidateName(t *testing.T) {
	for _, name := range []string{"", ".", "..", "../secret.md", "a/b.md", `a\b.md`, "..md"} {
		err := ValidateName(name)
		assert.Error(t, err, name)
		assert.True(t, errors.Is(err, ErrNotFound), name)
	}
	assert.NoError(t, ValidateName("alice.md"))
	assert.NoError(t, ValidateName("members.json"))
}

func TestParseHTMLDocument(t *testing.T) {
	page := `<!DOCTYPE html>
<html>
<head>
  <title>Carol Example</title>
  <meta name="role" content="Designer">
  <meta name="description" content="Designs calm interfaces.">
  <meta name="keywords" content="Figma, Design Systems">
</head>
<body>
  <nav>skip me</nav>
  <main><h2>About</h2><p>Carol <strong>designs</strong>.</p></main>
</body>
</html>`

	meta, md, err := ParseHTMLDocument([]byte(page), "")
	require.NoError(t, err)
	assert.Equal(t, "Carol Example", meta.Title)
	assert.Equal(t, "Designer", meta.Role)
	assert.Equal(t, "Designs calm interfaces.", meta.Bio)
	assert.Equal(t, []string{"Figma", "Design Systems"}, meta.Expertise)
	assert.Contains(t, string(md), "## About")
	assert.Contains(t, string(md), "**designs**")
	assert.NotContains(t, string(md), "skip me")
}

func TestParseHTMLDocumentSelectors(t *testing.T) {
	page := `<html><body><div class="profile card" id="bio"><p>Selected</p></div><p>Other</p></body></html>`

	_, md, err := ParseHTMLDocument([]byte(page), ".card")
	require.NoError(t, err)
	assert.Contains(t, string(md), "Selected")
	assert.NotContains(t, string(md), "Other")

	_, md, err = ParseHTMLDocument([]byte(page), "#bio")
	require.NoError(t, err)
	assert.NotContains(t, string(md), "Other")

	// falls back to <body>
	_, md, err = ParseHTMLDocument([]byte(page), "article")
	require.NoError(t, err)
	assert.Contains(t, string(md), "Other")
}
