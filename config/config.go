package config

import (
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"net/url"
	"os"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/foomo/teamdirectory/fetch"
	"github.com/foomo/teamdirectory/markdown"
)

// Config is constructed once at startup and passed to every component.
type Config struct {
	// BaseURL is the HTTP location of the manifest and member documents. When
	// empty, documents are read from ContentDir.
	BaseURL string `yaml:"baseURL"`
	// ContentDir is the local directory holding the manifest and documents.
	// It is also served as static assets under AssetsPath.
	ContentDir   string `yaml:"contentDir"`
	ManifestName string `yaml:"manifestName"`
	// DocumentExt is appended to route names that carry no extension.
	DocumentExt string `yaml:"documentExt"`
	// HTMLContentSelector picks the content element of HTML member documents.
	HTMLContentSelector string `yaml:"htmlContentSelector"`
	DefaultRole         string `yaml:"defaultRole"`
	DefaultImage        string `yaml:"defaultImage"`
	// Concurrency bounds parallel document fetches; 0 means unbounded.
	Concurrency int `yaml:"concurrency"`

	// Company and CareersEmail fill the listing headline and call to action.
	Company      string `yaml:"company"`
	CareersEmail string `yaml:"careersEmail"`

	Addr        string `yaml:"addr"`
	MCPEndpoint string `yaml:"mcpEndpoint"`
	// AssetsPath is the URL prefix of the static content and the profile routes.
	AssetsPath  string `yaml:"assetsPath"`
	ListingPath string `yaml:"listingPath"`

	Render        markdown.RenderOptions `yaml:"render"`
	TerminalStyle string                 `yaml:"terminalStyle"`
}

func Default() Config {
	return Config{
		ContentDir:          "content/team_members",
		ManifestName:        "members.json",
		DocumentExt:         ".md",
		HTMLContentSelector: "main",
		DefaultRole:         "Unknown Role",
		DefaultImage:        "/images/default.jpg",
		Company:             "Atlas",
		CareersEmail:        "careers@atlas-robotics.com",
		Addr:                ":8080",
		MCPEndpoint:         "/mcp",
		AssetsPath:          "/team_members/",
		ListingPath:         "/team-members",
		TerminalStyle:       "auto",
	}
}

// Load reads a YAML file over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, validation.By(absoluteURL)),
		validation.Field(&c.ContentDir, validation.When(c.BaseURL == "", validation.Required.Error("either baseURL or contentDir is required"))),
		validation.Field(&c.ManifestName, validation.Required, validation.By(plainName)),
		validation.Field(&c.DocumentExt, validation.Required, validation.By(func(value any) error {
			if !strings.HasPrefix(value.(string), ".") {
				return errors.New("must start with a dot")
			}
			return nil
		})),
		validation.Field(&c.Concurrency, validation.Min(0)),
		validation.Field(&c.CareersEmail, validation.By(emailAddress)),
		validation.Field(&c.MCPEndpoint, validation.Required, validation.By(rootedPath)),
		validation.Field(&c.AssetsPath, validation.Required, validation.By(rootedPath)),
		validation.Field(&c.ListingPath, validation.Required, validation.By(rootedPath)),
	)
}

// Source returns the document source the configuration points at.
func (c Config) Source(httpClient *http.Client) fetch.Source {
	if c.BaseURL != "" {
		return fetch.NewHTTPSource(c.BaseURL, httpClient)
	}
	return fetch.NewFSSource(os.DirFS(c.ContentDir))
}

func absoluteURL(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return errors.New("must be an absolute http(s) URL")
	}
	return nil
}

func plainName(value any) error {
	return fetch.ValidateName(value.(string))
}

func rootedPath(value any) error {
	if !strings.HasPrefix(value.(string), "/") {
		return errors.New("must start with a slash")
	}
	return nil
}

func emailAddress(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := mail.ParseAddress(s); err != nil {
		return errors.New("must be a valid email address")
	}
	return nil
}
