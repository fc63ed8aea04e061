package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/foomo/teamdirectory/fetch"
	"github.com/foomo/teamdirectory/markdown"
	"github.com/foomo/teamdirectory/service/vo"
)

// Service resolves the team directory. None of its methods fail: unavailable
// manifests and documents are logged and degrade to empty or not-found
// results.
type Service interface {
	LoadManifest(ctx context.Context) vo.Manifest
	ResolveAll(ctx context.Context, manifest vo.Manifest, settled SettledFunc) []vo.Member
	ListMembers(ctx context.Context) []vo.Member
	GetProfile(ctx context.Context, name string) *vo.Profile
}

// Settlement is the outcome of resolving one manifest entry.
type Settlement struct {
	Index    int        `json:"index"`
	Document string     `json:"document"`
	Member   *vo.Member `json:"member,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// SettledFunc observes settlements in completion order. Calls are serialized.
type SettledFunc func(Settlement)

type SiteSettings struct {
	ManifestName        string
	DocumentExt         string
	HTMLContentSelector string
	DefaultRole         string
	DefaultImage        string
	Concurrency         int
}

type service struct {
	logger       *zap.Logger
	source       fetch.Source
	renderer     *markdown.Renderer
	metrics      *Metrics
	siteSettings SiteSettings
}

func NewService(
	logger *zap.Logger,
	siteSettings SiteSettings,
	source fetch.Source,
	renderer *markdown.Renderer,
	metrics *Metrics,
) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if renderer == nil {
		renderer = markdown.NewRenderer(markdown.RenderOptions{})
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if siteSettings.ManifestName == "" {
		siteSettings.ManifestName = "members.json"
	}
	if siteSettings.DocumentExt == "" {
		siteSettings.DocumentExt = ".md"
	}
	return &service{
		logger:       logger,
		source:       source,
		renderer:     renderer,
		metrics:      metrics,
		siteSettings: siteSettings,
	}
}

func (s *service) ListMembers(ctx context.Context) []vo.Member {
	return s.ResolveAll(ctx, s.LoadManifest(ctx), nil)
}
