package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"

	"github.com/foomo/teamdirectory/fetch"
	"github.com/foomo/teamdirectory/service/vo"
)

const manifestSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "array",
	"items": {"type": "string"}
}`

var compiledManifestSchema = jsonschema.MustCompileString("members.schema.json", manifestSchema)

// LoadManifest fetches and validates the manifest. Any failure is logged and
// yields an empty manifest. Blank entries are skipped and duplicate
// identifiers keep their first position.
func (s *service) LoadManifest(ctx context.Context) vo.Manifest {
	manifest, err := s.loadManifest(ctx)
	if err != nil {
		s.metrics.manifestLoads.WithLabelValues(outcome(err)).Inc()
		s.logger.Error("failed to load manifest",
			zap.String("manifest", s.siteSettings.ManifestName),
			zap.Error(fmt.Errorf("%w: %w", ErrManifestUnavailable, err)),
		)
		return vo.Manifest{}
	}
	s.metrics.manifestLoads.WithLabelValues(outcomeOK).Inc()

	seen := make(map[string]struct{}, len(manifest))
	unique := make(vo.Manifest, 0, len(manifest))
	for i, document := range manifest {
		document = strings.TrimSpace(document)
		if document == "" {
			s.logger.Warn("skipping blank manifest entry", zap.Int("index", i))
			continue
		}
		if _, ok := seen[document]; ok {
			s.logger.Warn("dropping duplicate manifest entry", zap.String("document", document))
			continue
		}
		seen[document] = struct{}{}
		unique = append(unique, document)
	}
	return unique
}

func (s *service) loadManifest(ctx context.Context) (vo.Manifest, error) {
	data, err := s.source.Fetch(ctx, s.siteSettings.ManifestName)
	if err != nil {
		return nil, err
	}

	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	if err := compiledManifestSchema.Validate(decoded); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	var manifest vo.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return manifest, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, fetch.ErrNotFound):
		return outcomeNotFound
	default:
		return outcomeError
	}
}
