package compose

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"

	"github.com/TobiSchelling/AIDigest/internal/article"
	"github.com/TobiSchelling/AIDigest/internal/config"
	"github.com/TobiSchelling/AIDigest/internal/enrich"
	"github.com/TobiSchelling/AIDigest/internal/refresher"
)

//go:embed templates/digest.html
var templateFS embed.FS

var md = goldmark.New()

const socialPostArticles = 3

const socialPrompt = `You are a professional LinkedIn content creator for AI/ML news.

Create an engaging LinkedIn post with:
- Opening hook (2-3 sentences, attention-grabbing)
- 3 bullet points highlighting key articles (title + one key insight each)
- Call-to-action to read full digest
- 5-7 relevant hashtags

Keep it professional, concise, and optimized for LinkedIn's algorithm.
Use emojis sparingly (max 3 total).
Format for readability with line breaks.

Theme: %s
Description: %s

Top Articles:
%s
Create a LinkedIn post for this digest. Respond with the post only.`

// Generator is the subset of llm.Provider the composer needs.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Digest is a rendered newsletter issue.
type Digest struct {
	Subject    string
	Markdown   string
	HTML       string
	SocialPost *string
}

type pageData struct {
	Subject     string
	ThemeName   string
	Description string
	Date        string
	Joke        string
	Body        template.HTML
	Refresher   *refresher.Refresher
}

// Composer renders digests and social posts.
type Composer struct {
	provider Generator
	tmpl     *template.Template
}

// NewComposer creates a composer. provider may be nil, in which case no
// social post is produced.
func NewComposer(provider Generator) (*Composer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/digest.html")
	if err != nil {
		return nil, fmt.Errorf("parsing digest template: %w", err)
	}
	return &Composer{provider: provider, tmpl: tmpl}, nil
}

// Compose renders the digest for theme. extras may be nil.
func (c *Composer) Compose(ctx context.Context, theme config.Theme, articles []*article.Article, extras *enrich.Result, day time.Time) (*Digest, error) {
	d := &Digest{
		Subject:  fmt.Sprintf("%s - AI News Digest %s", theme.Name, day.Format("2006-01-02")),
		Markdown: Markdown(theme.Category, articles),
	}

	data := pageData{
		Subject:     d.Subject,
		ThemeName:   theme.Name,
		Description: theme.Description,
		Date:        day.Format("Monday, January 2, 2006"),
		Body:        renderMarkdown(d.Markdown),
	}
	if extras != nil {
		data.Joke = extras.Joke
		data.Refresher = extras.Refresher
	}

	var buf bytes.Buffer
	if err := c.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendering digest: %w", err)
	}
	d.HTML = buf.String()
	d.SocialPost = c.SocialPost(ctx, theme, articles)

	log.Info().Str("subject", d.Subject).Int("articles", len(articles)).Bool("social_post", d.SocialPost != nil).Msg("digest composed")
	return d, nil
}

// Markdown lays out the category section of the digest.
func Markdown(category article.Category, articles []*article.Article) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n", category)
	for _, a := range articles {
		fmt.Fprintf(&b, "\n### [%s](%s)\n\n", escapeMarkdown(a.Title), a.Link)
		meta := "**Source:** " + escapeMarkdown(orUnknown(a.Source))
		if a.Metrics != nil {
			meta += fmt.Sprintf(" · **Score:** %.1f/10", a.Metrics.FinalScore)
		}
		b.WriteString(meta + "\n")
		if s := strings.TrimSpace(a.Summary); s != "" {
			b.WriteString("\n" + escapeMarkdown(s) + "\n")
		}
	}
	return b.String()
}

// SocialPost asks the model for a post about the top three articles.
// Returns nil when there are no articles or the call fails.
func (c *Composer) SocialPost(ctx context.Context, theme config.Theme, articles []*article.Article) *string {
	if c.provider == nil || len(articles) == 0 {
		return nil
	}
	if len(articles) > socialPostArticles {
		articles = articles[:socialPostArticles]
	}

	var list strings.Builder
	for i, a := range articles {
		fmt.Fprintf(&list, "%d. %s\n   %s...\n\n", i+1, a.Title, article.Truncate(a.Summary, 150))
	}

	resp, err := c.provider.Generate(ctx, fmt.Sprintf(socialPrompt, theme.Name, theme.Description, list.String()), 400)
	if err != nil {
		log.Warn().Err(err).Msg("social post generation failed")
		return nil
	}
	post := strings.TrimSpace(resp)
	if post == "" {
		return nil
	}
	return &post
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`, "<", `\<`, "#", `\#`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
