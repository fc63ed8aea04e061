package tui

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/foomo/teamdirectory/fetch"
	"github.com/foomo/teamdirectory/markdown"
	"github.com/foomo/teamdirectory/service"
	"github.com/foomo/teamdirectory/service/vo"
)

func newTestModel(t *testing.T) Model {
	t.Helper()
	source := fetch.NewFSSource(fstest.MapFS{
		"members.json": {Data: []byte(`["alice.md", "bob.md"]`)},
		"alice.md": {Data: []byte(`---
title: Alice Example
role: Chief Robotics Officer
location: Berlin
achievements:
  - Shipped the first arm
---
Alice builds robots.
`)},
		"bob.md": {Data: []byte("Bob writes firmware.")},
	})
	svc := service.NewService(zap.NewNop(), service.SiteSettings{DefaultRole: "Unknown Role"}, source, nil, nil)
	renderer, err := markdown.NewTerminalRenderer("notty", 80)
	require.NoError(t, err)
	return NewModel(context.Background(), svc, renderer)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	model, cmd := m.Update(msg)
	next, ok := model.(Model)
	require.True(t, ok)
	return next, cmd
}

func TestBrowserListingAndProfile(t *testing.T) {
	m := newTestModel(t)
	assert.Contains(t, m.View(), "Loading team members")

	m, _ = update(t, m, m.loadMembers()())
	require.Len(t, m.list.Items(), 2)
	assert.Contains(t, m.View(), "Alice Example")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, pageProfile, m.page)
	assert.Contains(t, m.View(), "Loading alice")

	m, _ = update(t, m, cmd())
	view := m.View()
	assert.Contains(t, view, "Alice Example")
	assert.Contains(t, view, "Shipped the first arm")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, pageListing, m.page)

	// the profile shown last is reused without another load
	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "Alice Example")
}

func TestBrowserDropsStaleResults(t *testing.T) {
	m := newTestModel(t)

	stale := m.loadMembers()
	fresh := m.loadMembers()
	m, _ = update(t, m, membersLoadedMsg{generation: stale().(membersLoadedMsg).generation, members: []vo.Member{{ID: "ghost", Name: "Ghost"}}})
	assert.Empty(t, m.list.Items())

	m, _ = update(t, m, fresh())
	assert.Len(t, m.list.Items(), 2)
}

func TestBrowserQuit(t *testing.T) {
	m := newTestModel(t)
	m, _ = update(t, m, m.loadMembers()())

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	// results arriving after quitting are discarded
	assert.False(t, m.listing.Commit(m.listing.Begin(), nil))
}

func TestProfileMarkdown(t *testing.T) {
	profile := &vo.Profile{
		ID:    "alice",
		State: vo.ProfileStateLoaded,
		Metadata: vo.Metadata{
			Title:       "Alice Example",
			Role:        "Engineer",
			Expertise:   []string{"Go", "Robotics"},
			SocialLinks: vo.SocialLinks{GitHub: "https://github.com/alice"},
		},
		Body: "Hello.",
	}
	md := string(ProfileMarkdown(profile))
	assert.True(t, strings.HasPrefix(md, "# Alice Example\n"))
	assert.Contains(t, md, "*Engineer*")
	assert.Contains(t, md, "**Expertise:** Go, Robotics")
	assert.Contains(t, md, "- GitHub: https://github.com/alice")
	assert.True(t, strings.HasSuffix(md, "Hello."))

	assert.Equal(t, vo.NotFoundBody, ProfileMarkdown(&vo.Profile{State: vo.ProfileStateNotFound}))
	assert.Equal(t, vo.NotFoundBody, ProfileMarkdown(nil))
}
