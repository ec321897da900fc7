// Package markdown turns content-store records into publishable markdown
// artifacts: a YAML front matter block followed by a blank line and the
// body. Body generation is pure except for the optional image rewriter
// collaborator, which is a plain function so tests can substitute it.
package markdown

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"gopkg.in/yaml.v3"

	"github.com/valpere/perepost/internal/source"
)

// summaryMaxRunes bounds the generated front matter summary.
const summaryMaxRunes = 200

// FrontMatter is the metadata block of one artifact. Tags render as a
// flow-style list of quoted strings.
type FrontMatter struct {
	Title   string
	Date    string
	Tags    []string
	Summary string
}

// ImageRewriter maps a remote image URL to the reference written into the
// artifact. A nil rewriter keeps the remote URL. Errors fall back to the
// remote URL as well; a missing local copy of an image must not block
// publication.
type ImageRewriter func(url string) (string, error)

// Render assembles the complete artifact text.
func Render(fm FrontMatter, body string) (string, error) {
	meta, err := renderFrontMatter(fm)
	if err != nil {
		return "", err
	}
	return "---\n" + meta + "---\n\n" + body, nil
}

func renderFrontMatter(fm FrontMatter) (string, error) {
	quoted := func(v string) *yaml.Node {
		return &yaml.Node{Kind: yaml.ScalarNode, Style: yaml.DoubleQuotedStyle, Value: v}
	}
	plain := func(v string) *yaml.Node {
		return &yaml.Node{Kind: yaml.ScalarNode, Value: v}
	}

	root := &yaml.Node{Kind: yaml.MappingNode}
	add := func(key string, val *yaml.Node) {
		root.Content = append(root.Content, plain(key), val)
	}

	add("title", quoted(fm.Title))
	if fm.Date != "" {
		add("date", plain(fm.Date))
	}
	tags := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, t := range fm.Tags {
		tags.Content = append(tags.Content, quoted(t))
	}
	add("tags", tags)
	if fm.Summary != "" {
		add("summary", quoted(fm.Summary))
	}

	out, err := yaml.Marshal(root)
	if err != nil {
		return "", fmt.Errorf("failed to render front matter: %w", err)
	}
	return string(out), nil
}

// FromBlocks renders content blocks to a markdown body. Consecutive list
// items stay in one list; everything else is separated by blank lines.
// Image markup is emitted verbatim and, because it contains no translatable
// prose of its own beyond the alt text, is kept on its own line.
func FromBlocks(blocks []source.Block, rewrite ImageRewriter) string {
	var parts []string
	number := 0

	for _, b := range blocks {
		if b.Type != "numbered_list_item" {
			number = 0
		}

		switch b.Type {
		case "paragraph":
			if text := RichText(b.Text); text != "" {
				parts = append(parts, text)
			}
		case "heading_1":
			parts = append(parts, "# "+RichText(b.Text))
		case "heading_2":
			parts = append(parts, "## "+RichText(b.Text))
		case "heading_3":
			parts = append(parts, "### "+RichText(b.Text))
		case "bulleted_list_item":
			parts = appendListItem(parts, "- "+RichText(b.Text))
		case "numbered_list_item":
			number++
			parts = appendListItem(parts, fmt.Sprintf("%d. %s", number, RichText(b.Text)))
		case "quote":
			parts = append(parts, "> "+RichText(b.Text))
		case "divider":
			parts = append(parts, "---")
		case "code":
			parts = append(parts, "```"+b.Language+"\n"+plainText(b.Text)+"\n```")
		case "image":
			parts = append(parts, imageMarkup(b, rewrite))
		}
	}
	return strings.Join(parts, "\n\n")
}

// appendListItem glues a list item to a preceding item of the same list
// instead of opening a new block.
func appendListItem(parts []string, item string) []string {
	if n := len(parts); n > 0 {
		last := parts[n-1]
		tail := last[strings.LastIndexByte(last, '\n')+1:]
		if strings.HasPrefix(tail, "- ") || listNumberRe(tail) {
			parts[n-1] = last + "\n" + item
			return parts
		}
	}
	return append(parts, item)
}

func listNumberRe(line string) bool {
	dot := strings.Index(line, ". ")
	if dot < 1 {
		return false
	}
	for _, r := range line[:dot] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func imageMarkup(b source.Block, rewrite ImageRewriter) string {
	ref := b.URL
	if rewrite != nil {
		if local, err := rewrite(b.URL); err == nil {
			ref = local
		}
	}
	return fmt.Sprintf("![%s](%s)", plainText(b.Caption), ref)
}

// RichText renders styled text runs to inline markdown. Code annotation
// wins over the styling annotations; a link wraps whatever styling the run
// carries.
func RichText(runs []source.RichText) string {
	var sb strings.Builder
	for _, r := range runs {
		text := r.PlainText
		switch {
		case r.Code:
			text = "`" + text + "`"
		default:
			if r.Bold {
				text = "**" + text + "**"
			}
			if r.Italic {
				text = "_" + text + "_"
			}
			if r.Strikethrough {
				text = "~~" + text + "~~"
			}
		}
		if r.Href != "" {
			text = fmt.Sprintf("[%s](%s)", text, r.Href)
		}
		sb.WriteString(text)
	}
	return sb.String()
}

func plainText(runs []source.RichText) string {
	var sb strings.Builder
	for _, r := range runs {
		sb.WriteString(r.PlainText)
	}
	return sb.String()
}

// Summary extracts a plain-text snippet from the first paragraph of a
// markdown body, for the front matter summary field.
func Summary(body string) string {
	for _, block := range strings.Split(body, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" || !isProseBlock(block) {
			continue
		}
		text := strings.Join(strings.Fields(ToPlainText([]byte(block))), " ")
		if runes := []rune(text); len(runes) > summaryMaxRunes {
			text = strings.TrimSpace(string(runes[:summaryMaxRunes-1])) + "…"
		}
		return text
	}
	return ""
}

func isProseBlock(block string) bool {
	for _, prefix := range []string{"#", ">", "```", "- ", "![", "---"} {
		if strings.HasPrefix(block, prefix) {
			return false
		}
	}
	return !listNumberRe(block)
}

// ToPlainText strips markdown formatting by rendering to HTML and dropping
// the tags.
func ToPlainText(md []byte) string {
	opts := html.RendererOptions{Flags: html.CommonFlags}
	renderer := html.NewRenderer(opts)
	p := parser.NewWithExtensions(parser.CommonExtensions)
	doc := p.Parse(md)
	return stripHTMLTags(string(markdown.Render(doc, renderer)))
}

func stripHTMLTags(htmlContent string) string {
	var sb strings.Builder
	inTag := false
	for _, ch := range htmlContent {
		switch ch {
		case '<':
			inTag = true
		case '>':
			inTag = false
		default:
			if !inTag {
				sb.WriteRune(ch)
			}
		}
	}
	return sb.String()
}
