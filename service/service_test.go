package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/foomo/teamdirectory/fetch"
	"github.com/foomo/teamdirectory/service/vo"
)

var testSettings = SiteSettings{
	ManifestName: "members.json",
	DocumentExt:  ".md",
	DefaultRole:  "Unknown Role",
	DefaultImage: "/images/default.jpg",
}

// stubSource serves documents from memory after an optional per-name delay.
type stubSource struct {
	files  map[string]string
	delays map[string]time.Duration

	mu      sync.Mutex
	fetched []string
}

func (s *stubSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	s.mu.Lock()
	s.fetched = append(s.fetched, name)
	s.mu.Unlock()

	if delay, ok := s.delays[name]; ok {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	content, ok := s.files[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, fetch.ErrNotFound)
	}
	return []byte(content), nil
}

func newTestService(t *testing.T, source fetch.Source) (Service, *observer.ObservedLogs, *Metrics) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	metrics := NewMetrics(prometheus.NewRegistry())
	return NewService(zap.New(core), testSettings, source, nil, metrics), logs, metrics
}

func memberIDs(members []vo.Member) []string {
	ids := make([]string, len(members))
	for i, member := range members {
		ids[i] = member.ID
	}
	return ids
}

func TestListMembers(t *testing.T) {
	source := fetch.NewFSSource(fstest.MapFS{
		"members.json": {Data: []byte(`["alice.md", "bob.md"]`)},
		"alice.md": {Data: []byte(`---
title: Alice Example
role: Engineer
image: /images/alice.jpg
bio: Builds things.
github: https://github.com/alice
---
# Alice
`)},
		"bob.md": {Data: []byte("No frontmatter here.")},
	})
	svc, _, _ := newTestService(t, source)

	members := svc.ListMembers(context.Background())
	require.Len(t, members, 2, spew.Sdump(members))

	assert.Equal(t, vo.Member{
		ID:          "alice",
		Document:    "alice.md",
		Route:       "alice",
		Name:        "Alice Example",
		Role:        "Engineer",
		Image:       "/images/alice.jpg",
		Bio:         "Builds things.",
		SocialLinks: vo.SocialLinks{GitHub: "https://github.com/alice"},
	}, members[0])

	assert.Equal(t, vo.Member{
		ID:       "bob",
		Document: "bob.md",
		Route:    "bob",
		Name:     "bob",
		Role:     "Unknown Role",
		Image:    "/images/default.jpg",
	}, members[1])
}

func TestListMembersRoutesResolveToProfiles(t *testing.T) {
	source := fetch.NewFSSource(fstest.MapFS{
		"members.json": {Data: []byte(`["alice.md", "priya.html", "john.doe.md", "notes.md.md", "kim.MD"]`)},
		"alice.md":     {Data: []byte("---\ntitle: Alice\n---\n")},
		"priya.html":   {Data: []byte("<html><head><title>Priya</title></head><body><p>Ops</p></body></html>")},
		"john.doe.md":  {Data: []byte("---\ntitle: John Doe\n---\n")},
		"notes.md.md":  {Data: []byte("---\ntitle: Notes\n---\n")},
		"kim.MD":       {Data: []byte("---\ntitle: Kim\n---\n")},
	})
	svc, _, _ := newTestService(t, source)

	members := svc.ListMembers(context.Background())
	require.Len(t, members, 5, spew.Sdump(members))

	routes := make([]string, len(members))
	for i, member := range members {
		routes[i] = member.Route
		profile := svc.GetProfile(context.Background(), member.Route)
		assert.Equal(t, vo.ProfileStateLoaded, profile.State, member.Route)
		assert.Equal(t, member.Document, profile.Document, member.Route)
		assert.Equal(t, member.Name, profile.DisplayName(), member.Route)
	}
	assert.Equal(t, []string{"alice", "priya.html", "john.doe", "notes.md.md", "kim.MD"}, routes)
}

func TestListMembersSkipsBlankEntries(t *testing.T) {
	source := fetch.NewFSSource(fstest.MapFS{
		"members.json": {Data: []byte(`["", "alice.md", "  "]`)},
		"alice.md":     {Data: []byte("---\ntitle: Alice\n---\n")},
	})
	svc, logs, _ := newTestService(t, source)

	members := svc.ListMembers(context.Background())
	assert.Equal(t, []string{"alice"}, memberIDs(members))
	assert.Equal(t, 2, logs.FilterMessage("skipping blank manifest entry").Len())
}

func TestListMembersNamePreference(t *testing.T) {
	source := fetch.NewFSSource(fstest.MapFS{
		"members.json": {Data: []byte(`["both.md", "named.md", "bare.md"]`)},
		"both.md":      {Data: []byte("---\ntitle: Dr. Both\nname: Both\n---\n")},
		"named.md":     {Data: []byte("---\nname: Named Person\n---\n")},
		"bare.md":      {Data: []byte("---\nrole: Engineer\n---\n")},
	})
	svc, _, _ := newTestService(t, source)

	var names, headings []string
	for _, member := range svc.ListMembers(context.Background()) {
		names = append(names, member.Name)
		headings = append(headings, svc.GetProfile(context.Background(), member.Route).DisplayName())
	}
	assert.Equal(t, []string{"Dr. Both", "Named Person", "bare"}, names)
	assert.Equal(t, names, headings)
}

func TestResolveAllKeepsManifestOrderAndDropsFailures(t *testing.T) {
	defer goleak.VerifyNone(t)

	source := &stubSource{files: map[string]string{}, delays: map[string]time.Duration{}}
	manifest := vo.Manifest{}
	failing := map[int]bool{2: true, 5: true, 9: true}
	var want []string
	for i := 0; i < 10; i++ {
		document := fmt.Sprintf("member%02d.md", i)
		manifest = append(manifest, document)
		// earlier entries settle last
		source.delays[document] = time.Duration(10-i) * 5 * time.Millisecond
		if failing[i] {
			continue
		}
		source.files[document] = fmt.Sprintf("---\nrole: Role %d\n---\nBody %d", i, i)
		want = append(want, vo.MemberID(document))
	}

	svc, logs, metrics := newTestService(t, source)

	var settledOrder []int
	members := svc.ResolveAll(context.Background(), manifest, func(s Settlement) {
		settledOrder = append(settledOrder, s.Index)
		if failing[s.Index] {
			assert.Nil(t, s.Member)
			assert.NotEmpty(t, s.Error)
		} else {
			assert.Equal(t, vo.MemberID(manifest[s.Index]), s.Member.ID)
		}
	})

	require.Len(t, members, 7, spew.Sdump(members))
	if diff := cmp.Diff(want, memberIDs(members)); diff != "" {
		t.Errorf("unexpected member order (-want +got):\n%s", diff)
	}
	distinct := map[string]struct{}{}
	for _, member := range members {
		distinct[member.ID] = struct{}{}
	}
	assert.Len(t, distinct, len(members))

	require.Len(t, settledOrder, 10)
	assert.False(t, sort.IntsAreSorted(settledOrder), "settlements should arrive in completion order")

	failures := logs.FilterMessage("failed to resolve member").All()
	require.Len(t, failures, 3)
	var failed []string
	for _, entry := range failures {
		failed = append(failed, entry.ContextMap()["document"].(string))
	}
	sort.Strings(failed)
	assert.Equal(t, []string{"member02.md", "member05.md", "member09.md"}, failed)

	assert.Equal(t, 7.0, testutil.ToFloat64(metrics.documentFetches.WithLabelValues(outcomeOK)))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.documentFetches.WithLabelValues(outcomeNotFound)))
}

func TestResolveAllConcurrencyLimit(t *testing.T) {
	defer goleak.VerifyNone(t)

	source := &stubSource{files: map[string]string{"a.md": "A", "b.md": "B", "c.md": "C"}}
	settings := testSettings
	settings.Concurrency = 1
	svc := NewService(zap.NewNop(), settings, source, nil, nil)

	members := svc.ResolveAll(context.Background(), vo.Manifest{"a.md", "b.md", "c.md"}, nil)
	assert.Equal(t, []string{"a", "b", "c"}, memberIDs(members))
	// a limit of one runs fetches sequentially in manifest order
	assert.Equal(t, []string{"a.md", "b.md", "c.md"}, source.fetched)
}

func TestResolveAllCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	source := &stubSource{
		files:  map[string]string{"a.md": "A", "b.md": "B"},
		delays: map[string]time.Duration{"a.md": time.Minute, "b.md": time.Minute},
	}
	svc, _, _ := newTestService(t, source)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	members := svc.ResolveAll(ctx, vo.Manifest{"a.md", "b.md"}, nil)
	assert.Empty(t, members)
}

func TestLoadManifest(t *testing.T) {
	for name, tc := range map[string]struct {
		content string
		want    vo.Manifest
		logged  bool
	}{
		"valid":         {content: `["alice.md","bob.md"]`, want: vo.Manifest{"alice.md", "bob.md"}},
		"duplicates":    {content: `["alice.md","bob.md","alice.md"]`, want: vo.Manifest{"alice.md", "bob.md"}},
		"empty":         {content: `[]`, want: vo.Manifest{}},
		"invalid json":  {content: `["alice.md",`, want: vo.Manifest{}, logged: true},
		"not an array":  {content: `{"members":["alice.md"]}`, want: vo.Manifest{}, logged: true},
		"non strings":   {content: `["alice.md", 42]`, want: vo.Manifest{}, logged: true},
		"blank entries": {content: `["alice.md", "", "  "]`, want: vo.Manifest{"alice.md"}},
	} {
		t.Run(name, func(t *testing.T) {
			svc, logs, _ := newTestService(t, fetch.NewFSSource(fstest.MapFS{
				"members.json": {Data: []byte(tc.content)},
			}))
			assert.Equal(t, tc.want, svc.LoadManifest(context.Background()))

			entries := logs.FilterMessage("failed to load manifest").All()
			if !tc.logged {
				assert.Empty(t, entries)
				return
			}
			require.Len(t, entries, 1)
			err, ok := entries[0].ContextMap()["error"].(string)
			require.True(t, ok)
			assert.Contains(t, err, ErrManifestUnavailable.Error())
		})
	}
}

func TestManifestNotFoundOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	svc, logs, metrics := newTestService(t, fetch.NewHTTPSource(srv.URL, srv.Client()))

	assert.Empty(t, svc.ListMembers(context.Background()))
	assert.Equal(t, 1, logs.FilterMessage("failed to load manifest").Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.manifestLoads.WithLabelValues(outcomeNotFound)))
}

func TestGetProfile(t *testing.T) {
	source := fetch.NewFSSource(fstest.MapFS{
		"alice.md": {Data: []byte(`---
title: Alice Example
role: Engineer
location: Berlin
expertise: [Go, Kubernetes]
---
## About

Alice builds things.
`)},
		"bob.md": {Data: []byte("---\nrole: [broken\n---\nBob's page")},
		"carol.html": {Data: []byte(`<html><head><title>Carol</title><meta name="role" content="Designer"></head>` +
			`<body><main><p>Carol designs.</p></main></body></html>`)},
	})
	svc, logs, _ := newTestService(t, source)
	ctx := context.Background()

	alice := svc.GetProfile(ctx, "alice")
	assert.Equal(t, vo.ProfileStateLoaded, alice.State)
	assert.Equal(t, "alice", alice.ID)
	assert.Equal(t, "alice.md", alice.Document)
	assert.Equal(t, "Alice Example", alice.Metadata.Title)
	assert.Equal(t, []string{"Go", "Kubernetes"}, alice.Metadata.Expertise)
	assert.Equal(t, vo.Markdown("## About\n\nAlice builds things.\n"), alice.Body)
	assert.Contains(t, alice.HTML, `<h2 id="about">About</h2>`)

	bob := svc.GetProfile(ctx, "bob.md")
	assert.Equal(t, vo.ProfileStateLoaded, bob.State)
	assert.True(t, bob.Metadata.IsEmpty())
	assert.Equal(t, vo.Markdown("---\nrole: [broken\n---\nBob's page"), bob.Body)
	malformed := logs.FilterMessage("failed to parse document metadata").All()
	require.Len(t, malformed, 1)
	assert.Equal(t, "bob.md", malformed[0].ContextMap()["document"])

	carol := svc.GetProfile(ctx, "carol.html")
	assert.Equal(t, vo.ProfileStateLoaded, carol.State)
	assert.Equal(t, "carol", carol.ID)
	assert.Equal(t, "Designer", carol.Metadata.Role)
	assert.Contains(t, string(carol.Body), "Carol designs.")
}

func TestGetProfileNotFound(t *testing.T) {
	svc, logs, _ := newTestService(t, fetch.NewFSSource(fstest.MapFS{}))

	for _, name := range []string{"nobody", "../etc/passwd", ""} {
		profile := svc.GetProfile(context.Background(), name)
		assert.True(t, profile.NotFound(), name)
		assert.Equal(t, vo.NotFoundBody, profile.Body)
		assert.True(t, profile.Metadata.IsEmpty())
		assert.Contains(t, profile.HTML, "Content Not Found")
	}
	assert.Equal(t, 3, logs.FilterMessage("profile not found").Len())
}

func TestGetProfileTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	svc, logs, _ := newTestService(t, fetch.NewHTTPSource(srv.URL, srv.Client()))
	profile := svc.GetProfile(context.Background(), "alice")
	assert.True(t, profile.NotFound())

	entries := logs.FilterMessage("profile not found").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.ErrorLevel, entries[0].Level)
	assert.Contains(t, entries[0].ContextMap()["error"], ErrDocumentUnavailable.Error())
}

func TestResolveWrapsDocumentErrors(t *testing.T) {
	svc := NewService(nil, testSettings, fetch.NewFSSource(fstest.MapFS{}), nil, nil).(*service)
	_, _, err := svc.resolve(context.Background(), "missing.md")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDocumentUnavailable))
	assert.True(t, errors.Is(err, fetch.ErrNotFound))
}
