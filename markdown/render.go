package markdown

import (
	"bytes"
	"fmt"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/foomo/teamdirectory/service/vo"
)

type RenderOptions struct {
	HardWraps bool `yaml:"hardWraps"`
	// Unsafe passes raw HTML embedded in markdown through to the output.
	Unsafe bool `yaml:"unsafe"`
	// Sanitize runs the rendered HTML through a user generated content policy.
	Sanitize bool `yaml:"sanitize"`
}

// Renderer turns markdown bodies into HTML with GitHub flavored extensions.
// It is stateless and safe for concurrent use.
type Renderer struct {
	engine goldmark.Markdown
	policy *bluemonday.Policy
}

func NewRenderer(opts RenderOptions) *Renderer {
	rendererOptions := []renderer.Option{}
	if opts.HardWraps {
		rendererOptions = append(rendererOptions, html.WithHardWraps())
	}
	if opts.Unsafe {
		rendererOptions = append(rendererOptions, html.WithUnsafe())
	}

	engine := goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.TaskList),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(rendererOptions...),
	)

	r := &Renderer{engine: engine}
	if opts.Sanitize {
		r.policy = bluemonday.UGCPolicy()
	}
	return r
}

// Render converts markdown to HTML.
func (r *Renderer) Render(md vo.Markdown) (string, error) {
	var buf bytes.Buffer
	if err := r.engine.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	if r.policy != nil {
		return string(r.policy.SanitizeBytes(buf.Bytes())), nil
	}
	return buf.String(), nil
}
