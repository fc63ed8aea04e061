package markdown

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"

	"github.com/foomo/teamdirectory/service/vo"
)

const delimiter = "---"

// ErrMalformed reports a delimited metadata block that could not be decoded.
var ErrMalformed = errors.New("malformed frontmatter")

var yamlFormat = frontmatter.NewFormat(delimiter, delimiter, yaml.Unmarshal)

// Document is a member document split into metadata and body.
type Document struct {
	Metadata vo.Metadata
	Raw      map[string]any
	Body     vo.Markdown
}

// ParseDocument splits source into frontmatter metadata and markdown body.
// Without a complete "---" fenced block at the very start, metadata is empty
// and the body is the full source. A block that fails to decode yields the
// same fallback together with an error wrapping ErrMalformed.
func ParseDocument(source []byte) (Document, error) {
	if !hasBlock(source) {
		return Document{Body: vo.Markdown(source)}, nil
	}

	raw := map[string]any{}
	body, err := frontmatter.Parse(bytes.NewReader(source), &raw, yamlFormat)
	if err != nil {
		return Document{Body: vo.Markdown(source)}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	return Document{
		Metadata: vo.MetadataFromMap(raw),
		Raw:      raw,
		Body:     vo.Markdown(body),
	}, nil
}

// hasBlock reports whether source opens with a delimiter line that is
// closed by a later delimiter line.
func hasBlock(source []byte) bool {
	scanner := bufio.NewScanner(bytes.NewReader(source))
	if !scanner.Scan() || strings.TrimRight(scanner.Text(), " \t\r") != delimiter {
		return false
	}
	for scanner.Scan() {
		if strings.TrimRight(scanner.Text(), " \t\r") == delimiter {
			return true
		}
	}
	return false
}
