package app

import (
	"fmt"
	"os"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/sent-hil/scholar-metrics/page"
)

// renderIntro fills the optional intro element from the Markdown file.
func (a *App) renderIntro() error {
	if a.opts.IntroPath == "" {
		return nil
	}
	el := a.page.Element(page.IntroID)
	if !el.Exists() {
		a.logger.Debug().Str("path", a.opts.IntroPath).Msg("no intro element, skipping")
		return nil
	}

	md, err := os.ReadFile(a.opts.IntroPath)
	if err != nil {
		return fmt.Errorf("reading intro: %w", err)
	}
	el.SetHTML(string(MarkdownHTML(md)))
	return nil
}

// MarkdownHTML converts Markdown to HTML. Raw HTML in the source is dropped
// and only safe link schemes are kept.
func MarkdownHTML(md []byte) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	r := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.SkipHTML | html.Safelink | html.HrefTargetBlank,
	})
	return markdown.ToHTML(md, p, r)
}
