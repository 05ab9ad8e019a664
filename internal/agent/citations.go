package agent

import (
	"regexp"
	"strings"
)

// Citation is one source reference attached to an assistant reply.
type Citation struct {
	Type   string `json:"type"`
	Source string `json:"source,omitempty"`
	Title  string `json:"title,omitempty"`
	URL    string `json:"url,omitempty"`
}

var (
	ragCitationRe = regexp.MustCompile(`\[RAG\]\s*Source:\s*([^\n]+)`)
	webCitationRe = regexp.MustCompile(`\[WEB\]\s*(.*?)\s*\|\s*(https?://\S+)`)
)

// ExtractCitations derives the citation list for a turn. Structured tool
// outputs are the primary source; the tag patterns over the flattened
// transcript are a fallback for sources that only survive as text, such
// as tool renderings the model quoted into its reply. Duplicates collapse
// on the (type, source or title, url) tuple, first occurrence wins, so
// two web hits on the same page under different titles both survive.
func ExtractCitations(outputs []ToolOutput, transcript string) []Citation {
	var citations []Citation
	seen := map[[3]string]bool{}

	add := func(c Citation) {
		name := c.Source
		if c.Type == "web" {
			if c.Title == "" {
				c.Title = "web"
			}
			name = c.Title
		}
		key := [3]string{c.Type, name, c.URL}
		if seen[key] {
			return
		}
		seen[key] = true
		citations = append(citations, c)
	}

	for _, o := range outputs {
		switch o.Kind {
		case OutputWeb:
			add(Citation{Type: "web", Title: o.Title, URL: o.URL})
		default:
			add(Citation{Type: "rag", Source: o.Title})
		}
	}

	for _, m := range ragCitationRe.FindAllStringSubmatch(transcript, -1) {
		add(Citation{Type: "rag", Source: strings.TrimSpace(m[1])})
	}
	for _, m := range webCitationRe.FindAllStringSubmatch(transcript, -1) {
		add(Citation{Type: "web", Title: m[1], URL: m[2]})
	}
	return citations
}
