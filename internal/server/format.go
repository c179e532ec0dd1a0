package server

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/ziadkadry99/salesiq/internal/aggregate"
	"github.com/ziadkadry99/salesiq/internal/query"
)

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// Markdown renders an answer for chat clients: the text, the insight, any
// clarification candidates and the ranking table.
func Markdown(ans *query.Answer) string {
	f := aggregate.NewFormatter("")
	var b strings.Builder

	b.WriteString(ans.Text())
	b.WriteString("\n")

	if ans.Insight != "" {
		fmt.Fprintf(&b, "\n> %s\n", ans.Insight)
	}

	if p := ans.Problem; p != nil {
		if len(p.Candidates) > 0 {
			b.WriteString("\nDid you mean:\n\n")
			for _, c := range p.Candidates {
				fmt.Fprintf(&b, "- %s\n", c)
			}
		}
		if p.Suggestion != "" {
			fmt.Fprintf(&b, "\nTry: *%s*\n", p.Suggestion)
		}
	}

	if d := ans.Detail; d != nil && len(d.Ranking) > 0 {
		fmt.Fprintf(&b, "\n| %s | Value | Orders | Units | Revenue |\n", cell(string(d.Dimension)))
		b.WriteString("|---|---:|---:|---:|---:|\n")
		for _, en := range d.Ranking {
			fmt.Fprintf(&b, "| %s | %s | %d | %s | %s |\n",
				cell(en.Label), f.Number(en.Value), en.Count, f.Number(en.Units), f.Money(en.Revenue))
		}
	}

	if len(ans.Sources) > 0 {
		b.WriteString("\nSources:\n\n")
		for _, h := range ans.Sources {
			fmt.Fprintf(&b, "- %s\n", h.Content)
		}
	}

	if ans.Stale {
		b.WriteString("\n_Live data was unavailable; this answer uses the last saved snapshot._\n")
	}
	return b.String()
}

// HTML renders Markdown(ans) to HTML.
func HTML(ans *query.Answer) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(Markdown(ans)), &buf); err != nil {
		return "", fmt.Errorf("render answer: %w", err)
	}
	return buf.String(), nil
}

func cell(s string) string {
	if s == "" {
		return " "
	}
	return strings.ReplaceAll(s, "|", `\|`)
}
