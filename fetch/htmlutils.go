package fetch

import (
	"bytes"
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"

	"github.com/foomo/teamdirectory/service/vo"
)

// ParseHTMLDocument reads member metadata from an HTML page's <title> and
// <meta name="..."> tags and converts the element matched by selector
// ("main" when empty), or <body> when nothing matches, to markdown.
func ParseHTMLDocument(source []byte, selector string) (vo.Metadata, vo.Markdown, error) {
	if selector == "" {
		selector = "main"
	}
	doc, err := html.Parse(bytes.NewReader(source))
	if err != nil {
		return vo.Metadata{}, "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	raw := extractMetaTags(doc)
	if title := extractTitle(doc); title != "" {
		raw["title"] = title
	}
	if description, ok := raw["description"]; ok {
		if _, hasBio := raw["bio"]; !hasBio {
			raw["bio"] = description
		}
	}
	if keywords, ok := raw["keywords"]; ok {
		if _, hasExpertise := raw["expertise"]; !hasExpertise {
			raw["expertise"] = keywords
		}
	}

	content, err := extractNodeBySelector(doc, selector)
	if err != nil {
		if content, err = extractNodeBySelector(doc, "body"); err != nil {
			return vo.MetadataFromMap(raw), "", fmt.Errorf("failed to extract content: %w", err)
		}
	}

	markdownBytes, err := htmltomarkdown.ConvertNode(content)
	if err != nil {
		return vo.MetadataFromMap(raw), "", fmt.Errorf("failed to convert HTML to markdown: %w", err)
	}

	return vo.MetadataFromMap(raw), vo.Markdown(markdownBytes), nil
}

// extractNodeBySelector finds a node in the HTML document using a minimal
// selector: "#id", ".class" or a tag name.
func extractNodeBySelector(doc *html.Node, selector string) (*html.Node, error) {
	if strings.HasPrefix(selector, "#") {
		return findNodeByID(doc, strings.TrimPrefix(selector, "#"))
	} else if strings.HasPrefix(selector, ".") {
		return findNodeByClass(doc, strings.TrimPrefix(selector, "."))
	}
	return findNodeByTag(doc, selector)
}

func findNodeByID(n *html.Node, id string) (*html.Node, error) {
	if n.Type == html.ElementNode {
		for _, attr := range n.Attr {
			if attr.Key == "id" && attr.Val == id {
				return n, nil
			}
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if result, err := findNodeByID(c, id); err == nil {
			return result, nil
		}
	}

	return nil, fmt.Errorf("element with id '%s' not found", id)
}

func findNodeByClass(n *html.Node, class string) (*html.Node, error) {
	if n.Type == html.ElementNode {
		for _, attr := range n.Attr {
			if attr.Key == "class" && hasClass(attr.Val, class) {
				return n, nil
			}
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if result, err := findNodeByClass(c, class); err == nil {
			return result, nil
		}
	}

	return nil, fmt.Errorf("element with class '%s' not found", class)
}

func hasClass(value, class string) bool {
	for _, field := range strings.Fields(value) {
		if field == class {
			return true
		}
	}
	return false
}

func findNodeByTag(n *html.Node, tag string) (*html.Node, error) {
	if n.Type == html.ElementNode && n.Data == tag {
		return n, nil
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if result, err := findNodeByTag(c, tag); err == nil {
			return result, nil
		}
	}

	return nil, fmt.Errorf("element with tag '%s' not found", tag)
}

// extractTitle returns the text of the first <title> element.
func extractTitle(doc *html.Node) string {
	node, err := findNodeByTag(doc, "title")
	if err != nil || node.FirstChild == nil || node.FirstChild.Type != html.TextNode {
		return ""
	}
	return strings.TrimSpace(node.FirstChild.Data)
}

// extractMetaTags collects name/content pairs of all named <meta> elements.
// The first occurrence of a name wins.
func extractMetaTags(doc *html.Node) map[string]any {
	tags := map[string]any{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "meta" {
			var name, content string
			for _, attr := range n.Attr {
				switch attr.Key {
				case "name":
					name = attr.Val
				case "content":
					content = attr.Val
				}
			}
			if _, seen := tags[name]; name != "" && content != "" && !seen {
				tags[name] = content
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return tags
}
