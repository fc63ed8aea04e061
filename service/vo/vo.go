package vo

import (
	"path"
	"strings"

	"github.com/spf13/cast"
)

type Markdown string

// NotFoundBody is the body presented when a profile could not be resolved.
const NotFoundBody Markdown = "## Content Not Found\n\nSorry, the profile you are looking for does not exist."

// Manifest lists member document identifiers in display order.
type Manifest []string

type ProfileState string

const (
	ProfileStateLoading  ProfileState = "loading"
	ProfileStateLoaded   ProfileState = "loaded"
	ProfileStateNotFound ProfileState = "not-found"
)

type SocialLinks struct {
	LinkedIn string `json:"linkedin,omitempty"` // Professional network profile URL
	Twitter  string `json:"twitter,omitempty"`  // Short-form social profile URL
	GitHub   string `json:"github,omitempty"`   // Code hosting profile URL
	Email    string `json:"email,omitempty"`    // Contact email address
}

// Metadata holds the recognized frontmatter attributes of a member document.
type Metadata struct {
	Title        string   `json:"title,omitempty"` // Display name
	Role         string   `json:"role,omitempty"`
	Image        string   `json:"image,omitempty"`
	Bio          string   `json:"bio,omitempty"`
	Location     string   `json:"location,omitempty"`
	JoinDate     string   `json:"joinDate,omitempty"`
	Expertise    []string `json:"expertise,omitempty"`
	Achievements []string `json:"achievements,omitempty"`
	Education    string   `json:"education,omitempty"`
	SocialLinks
}

func (m Metadata) IsEmpty() bool {
	return m.Title == "" && m.Role == "" && m.Image == "" && m.Bio == "" &&
		m.Location == "" && m.JoinDate == "" && m.Education == "" &&
		len(m.Expertise) == 0 && len(m.Achievements) == 0 &&
		m.SocialLinks == SocialLinks{}
}

// MetadataFromMap projects decoded frontmatter onto Metadata. Unknown keys
// are ignored and scalar values of any type are coerced to strings.
func MetadataFromMap(raw map[string]any) Metadata {
	if len(raw) == 0 {
		return Metadata{}
	}
	title := text(raw["title"])
	if title == "" {
		title = text(raw["name"])
	}
	joinDate := text(raw["joinDate"])
	if joinDate == "" {
		joinDate = text(raw["joined"])
	}
	return Metadata{
		Title:        title,
		Role:         text(raw["role"]),
		Image:        text(raw["image"]),
		Bio:          text(raw["bio"]),
		Location:     text(raw["location"]),
		JoinDate:     joinDate,
		Expertise:    list(raw["expertise"]),
		Achievements: list(raw["achievements"]),
		Education:    text(raw["education"]),
		SocialLinks: SocialLinks{
			LinkedIn: text(raw["linkedin"]),
			Twitter:  text(raw["twitter"]),
			GitHub:   text(raw["github"]),
			Email:    text(raw["email"]),
		},
	}
}

func text(v any) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(cast.ToString(v))
}

func list(v any) []string {
	var values []string
	switch typed := v.(type) {
	case nil:
		return nil
	case string:
		values = strings.Split(typed, ",")
	case []any, []string:
		values = cast.ToStringSlice(typed)
	default:
		values = []string{cast.ToString(typed)}
	}
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Member is the listing card projection of a resolved document.
type Member struct {
	ID       string `json:"id"`       // Document identifier without extension
	Document string `json:"document"` // Document identifier as listed in the manifest
	Route    string `json:"route"`    // Profile route name resolving back to Document
	Name     string `json:"name"`
	Role     string `json:"role"`
	Image    string `json:"image"`
	Bio      string `json:"bio,omitempty"`
	SocialLinks
}

// Profile is the detail page projection of a single document.
type Profile struct {
	ID       string       `json:"id"`
	Document string       `json:"document"`
	State    ProfileState `json:"state"`
	Metadata Metadata     `json:"metadata"`
	Body     Markdown     `json:"body"`           // Markdown body without frontmatter
	HTML     string       `json:"html,omitempty"` // Rendered body
}

func (p *Profile) NotFound() bool {
	return p == nil || p.State == ProfileStateNotFound
}

// DisplayName falls back to the identifier when no title is set.
func (p *Profile) DisplayName() string {
	if p.Metadata.Title != "" {
		return p.Metadata.Title
	}
	return p.ID
}

// MemberID strips the file extension from a document identifier.
func MemberID(document string) string {
	return strings.TrimSuffix(document, path.Ext(document))
}
