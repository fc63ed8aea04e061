package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/foomo/teamdirectory/markdown"
	"github.com/foomo/teamdirectory/service"
	"github.com/foomo/teamdirectory/service/vo"
	"github.com/foomo/teamdirectory/view"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	roleStyle   = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#A49FA5"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	statusStyle = lipgloss.NewStyle().Padding(1, 2)
)

type page int

const (
	pageListing page = iota
	pageProfile
)

type membersLoadedMsg struct {
	generation uint64
	members    []vo.Member
}

type profileLoadedMsg struct {
	generation uint64
	profile    *vo.Profile
}

type memberItem struct {
	member vo.Member
}

func (i memberItem) Title() string       { return i.member.Name }
func (i memberItem) Description() string { return i.member.Role }
func (i memberItem) FilterValue() string { return i.member.Name + " " + i.member.Role }

// Model browses the directory: a filterable member list and a scrollable
// profile rendered for the terminal.
type Model struct {
	ctx      context.Context
	service  service.Service
	renderer *markdown.TerminalRenderer

	listing *view.ListingView
	profile *view.ProfileView

	page     page
	list     list.Model
	viewport viewport.Model
	spinner  spinner.Model
	width    int
	height   int
}

func NewModel(ctx context.Context, serviceInstance service.Service, renderer *markdown.TerminalRenderer) Model {
	delegate := list.NewDefaultDelegate()
	members := list.New(nil, delegate, 80, 20)
	members.Title = "Team"

	s := spinner.New()
	s.Spinner = spinner.Dot

	return Model{
		ctx:      ctx,
		service:  serviceInstance,
		renderer: renderer,
		listing:  view.NewListingView(),
		profile:  view.NewProfileView(),
		list:     members,
		viewport: viewport.New(80, 20),
		spinner:  s,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadMembers())
}

func (m Model) loadMembers() tea.Cmd {
	generation := m.listing.Begin()
	return func() tea.Msg {
		return membersLoadedMsg{generation: generation, members: m.service.ListMembers(m.ctx)}
	}
}

func (m Model) loadProfile(name string) tea.Cmd {
	generation, started := m.profile.Navigate(name)
	if !started {
		return nil
	}
	return func() tea.Msg {
		return profileLoadedMsg{generation: generation, profile: m.service.GetProfile(m.ctx, name)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.list.SetSize(msg.Width, msg.Height-1)
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 2
		m.refreshProfile()
		return m, nil

	case membersLoadedMsg:
		if m.listing.Commit(msg.generation, msg.members) {
			items := make([]list.Item, len(msg.members))
			for i, member := range msg.members {
				items[i] = memberItem{member: member}
			}
			return m, m.list.SetItems(items)
		}
		return m, nil

	case profileLoadedMsg:
		if m.profile.Commit(msg.generation, msg.profile) {
			m.refreshProfile()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m.quit()
		}
		if m.page == pageProfile {
			switch msg.String() {
			case "q":
				return m.quit()
			case "esc", "backspace", "left", "h":
				m.page = pageListing
				return m, nil
			}
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		if m.list.FilterState() != list.Filtering {
			switch msg.String() {
			case "q":
				return m.quit()
			case "r":
				return m, m.loadMembers()
			case "enter", "right", "l":
				if item, ok := m.list.SelectedItem().(memberItem); ok {
					m.page = pageProfile
					cmd := m.loadProfile(item.member.Route)
					m.refreshProfile()
					return m, cmd
				}
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.listing.Close()
	m.profile.Close()
	return m, tea.Quit
}

func (m *Model) refreshProfile() {
	snapshot := m.profile.Snapshot()
	if snapshot.State != vo.ProfileStateLoaded && snapshot.State != vo.ProfileStateNotFound {
		return
	}
	content, err := m.renderer.Render(ProfileMarkdown(snapshot.Profile))
	if err != nil {
		content = errorStyle.Render(err.Error())
	}
	m.viewport.SetContent(content)
	m.viewport.GotoTop()
}

func (m Model) View() string {
	if m.page == pageProfile {
		snapshot := m.profile.Snapshot()
		if snapshot.State == vo.ProfileStateLoading {
			return statusStyle.Render(fmt.Sprintf("%s Loading %s...", m.spinner.View(), snapshot.Name))
		}
		return m.viewport.View() + "\n" + helpStyle.Render("esc back • ↑/↓ scroll • q quit")
	}
	if m.listing.Snapshot().Loading {
		return statusStyle.Render(m.spinner.View() + " Loading team members...")
	}
	return m.list.View()
}

// ProfileMarkdown lays out a profile as a single markdown document.
func ProfileMarkdown(profile *vo.Profile) vo.Markdown {
	if profile.NotFound() {
		return vo.NotFoundBody
	}

	var sb strings.Builder
	meta := profile.Metadata
	fmt.Fprintf(&sb, "# %s\n\n", profile.DisplayName())
	if meta.Role != "" {
		fmt.Fprintf(&sb, "*%s*\n\n", meta.Role)
	}
	var facts []string
	if meta.Location != "" {
		facts = append(facts, "📍 "+meta.Location)
	}
	if meta.JoinDate != "" {
		facts = append(facts, "Joined "+meta.JoinDate)
	}
	if len(facts) > 0 {
		sb.WriteString(strings.Join(facts, " · ") + "\n\n")
	}
	if meta.Bio != "" {
		sb.WriteString("> " + meta.Bio + "\n\n")
	}
	if len(meta.Expertise) > 0 {
		sb.WriteString("**Expertise:** " + strings.Join(meta.Expertise, ", ") + "\n\n")
	}
	if len(meta.Achievements) > 0 {
		sb.WriteString("## Achievements\n\n")
		for _, achievement := range meta.Achievements {
			sb.WriteString("- " + achievement + "\n")
		}
		sb.WriteString("\n")
	}
	if meta.Education != "" {
		sb.WriteString("## Education\n\n" + meta.Education + "\n\n")
	}
	links := meta.SocialLinks
	for _, link := range []struct{ label, href string }{
		{"LinkedIn", links.LinkedIn},
		{"Twitter", links.Twitter},
		{"GitHub", links.GitHub},
		{"Email", links.Email},
	} {
		if link.href != "" {
			fmt.Fprintf(&sb, "- %s: %s\n", link.label, link.href)
		}
	}
	if strings.TrimSpace(string(profile.Body)) != "" {
		sb.WriteString("\n---\n\n" + string(profile.Body))
	}
	return vo.Markdown(sb.String())
}

// MemberLine renders a member for plain listings outside the browser.
func MemberLine(member vo.Member) string {
	return titleStyle.Render(member.Name) + "  " + roleStyle.Render(member.Role)
}
