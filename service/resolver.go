package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/foomo/teamdirectory/fetch"
	"github.com/foomo/teamdirectory/markdown"
	"github.com/foomo/teamdirectory/service/vo"
)

// DocumentParser splits raw document content into metadata and body.
type DocumentParser func(siteSettings SiteSettings, data []byte) (vo.Metadata, vo.Markdown, error)

var documentParsers = map[string]DocumentParser{
	".md":       parseMarkdown,
	".markdown": parseMarkdown,
	".html":     parseHTML,
	".htm":      parseHTML,
}

func parseMarkdown(_ SiteSettings, data []byte) (vo.Metadata, vo.Markdown, error) {
	doc, err := markdown.ParseDocument(data)
	return doc.Metadata, doc.Body, err
}

func parseHTML(siteSettings SiteSettings, data []byte) (vo.Metadata, vo.Markdown, error) {
	meta, body, err := fetch.ParseHTMLDocument(data, siteSettings.HTMLContentSelector)
	if err != nil {
		return vo.Metadata{}, vo.Markdown(data), err
	}
	return meta, body, nil
}

// resolve fetches and parses a single document. Only retrieval failures are
// returned; malformed metadata is logged and parsing falls back to an empty
// metadata block.
func (s *service) resolve(ctx context.Context, document string) (vo.Metadata, vo.Markdown, error) {
	data, err := s.source.Fetch(ctx, document)
	if err != nil {
		s.metrics.documentFetches.WithLabelValues(outcome(err)).Inc()
		return vo.Metadata{}, "", fmt.Errorf("%w: %w", ErrDocumentUnavailable, err)
	}

	parse, ok := documentParsers[strings.ToLower(path.Ext(document))]
	if !ok {
		parse = parseMarkdown
	}
	meta, body, err := parse(s.siteSettings, data)
	if err != nil {
		s.metrics.documentFetches.WithLabelValues(outcomeMalformed).Inc()
		s.logger.Warn("failed to parse document metadata",
			zap.String("document", document),
			zap.Error(fmt.Errorf("%w: %w", ErrMetadataMalformed, err)),
		)
		return meta, body, nil
	}
	s.metrics.documentFetches.WithLabelValues(outcomeOK).Inc()
	return meta, body, nil
}

func (s *service) resolveMember(ctx context.Context, document string) (*vo.Member, error) {
	meta, _, err := s.resolve(ctx, document)
	if err != nil {
		return nil, err
	}

	id := vo.MemberID(document)
	member := &vo.Member{
		ID:          id,
		Document:    document,
		Route:       s.routeName(document),
		Name:        meta.Title,
		Role:        meta.Role,
		Image:       meta.Image,
		Bio:         meta.Bio,
		SocialLinks: meta.SocialLinks,
	}
	if member.Name == "" {
		member.Name = id
	}
	if member.Role == "" {
		member.Role = s.siteSettings.DefaultRole
	}
	if member.Image == "" {
		member.Image = s.siteSettings.DefaultImage
	}
	return member, nil
}

// ResolveAll resolves every manifest entry concurrently and waits for all of
// them to settle. Members are returned in manifest order with failed entries
// left out.
func (s *service) ResolveAll(ctx context.Context, manifest vo.Manifest, settled SettledFunc) []vo.Member {
	start := time.Now()
	defer func() {
		s.metrics.resolutionDuration.Observe(time.Since(start).Seconds())
	}()

	slots := make([]*vo.Member, len(manifest))
	var settledMu sync.Mutex

	var g errgroup.Group
	if s.siteSettings.Concurrency > 0 {
		g.SetLimit(s.siteSettings.Concurrency)
	}
	for i, document := range manifest {
		g.Go(func() error {
			member, err := s.resolveMember(ctx, document)
			if err != nil {
				s.logger.Error("failed to resolve member",
					zap.String("document", document),
					zap.Int("index", i),
					zap.Error(err),
				)
			}
			slots[i] = member

			if settled != nil {
				settlement := Settlement{Index: i, Document: document, Member: member}
				if err != nil {
					settlement.Error = err.Error()
				}
				settledMu.Lock()
				settled(settlement)
				settledMu.Unlock()
			}
			// failures stay in their slot, the group itself never fails
			return nil
		})
	}
	_ = g.Wait()

	members := make([]vo.Member, 0, len(slots))
	for _, member := range slots {
		if member != nil {
			members = append(members, *member)
		}
	}
	return members
}

// IsDocument reports whether name carries an extension a document parser is
// registered for.
func IsDocument(name string) bool {
	_, ok := documentParsers[strings.ToLower(path.Ext(name))]
	return ok
}

// routeName returns the name GetProfile resolves back to document: the bare
// identifier for default extension documents, the full name otherwise.
func (s *service) routeName(document string) string {
	id := vo.MemberID(document)
	if path.Ext(document) == s.siteSettings.DocumentExt && !IsDocument(id) {
		return id
	}
	return document
}

// GetProfile resolves the document named by a route parameter. The document
// extension is appended when name has none. Retrieval failures yield a
// not-found profile carrying vo.NotFoundBody and no metadata.
func (s *service) GetProfile(ctx context.Context, name string) *vo.Profile {
	document := strings.TrimSpace(name)
	if !IsDocument(document) {
		document += s.siteSettings.DocumentExt
	}
	id := vo.MemberID(document)

	meta, body, err := s.resolve(ctx, document)
	if err != nil {
		level := s.logger.Error
		if errors.Is(err, fetch.ErrNotFound) {
			level = s.logger.Warn
		}
		level("profile not found", zap.String("document", document), zap.Error(err))
		return s.profile(id, document, vo.ProfileStateNotFound, vo.Metadata{}, vo.NotFoundBody)
	}
	return s.profile(id, document, vo.ProfileStateLoaded, meta, body)
}

func (s *service) profile(id, document string, state vo.ProfileState, meta vo.Metadata, body vo.Markdown) *vo.Profile {
	html, err := s.renderer.Render(body)
	if err != nil {
		s.logger.Error("failed to render profile", zap.String("document", document), zap.Error(err))
	}
	return &vo.Profile{
		ID:       id,
		Document: document,
		State:    state,
		Metadata: meta,
		Body:     body,
		HTML:     html,
	}
}
