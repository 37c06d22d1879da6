package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/net/html"

	"ai-docchat-be/pkg/apperrors"
)

const (
	userAgent      = "DocChat/1.0 (document conversation service; respectful API usage)"
	defaultTimeout = 15 * time.Second
	defaultCacheTT = 1 * time.Hour
	cachePurge     = 10 * time.Minute
)

// Article is a fetched document ready for chunking.
type Article struct {
	Title   string
	URL     string
	Lang    string
	Content string
}

// WikipediaFetcher loads article text through the MediaWiki Action API:
// a plain-text intro extract first, then the parsed full page HTML reduced
// to text. Responses are cached per article.
type WikipediaFetcher struct {
	client      *http.Client
	cache       *cache.Cache
	apiOverride string // replaces the per-language endpoint, used in tests
}

func NewWikipediaFetcher(apiOverride string, cacheTTL time.Duration) *WikipediaFetcher {
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTT
	}
	return &WikipediaFetcher{
		client:      &http.Client{Timeout: defaultTimeout},
		cache:       cache.New(cacheTTL, cachePurge),
		apiOverride: apiOverride,
	}
}

// ParseArticleURL validates a Wikipedia article URL and extracts the language
// edition and article title. Underscores in the title are kept; the API
// accepts them.
func ParseArticleURL(rawURL string) (lang, title string, err error) {
	invalid := apperrors.New(apperrors.KindInvalidInput, "Invalid Wikipedia URL")

	u, perr := url.Parse(strings.TrimSpace(rawURL))
	if perr != nil {
		return "", "", invalid
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", "", invalid
	}
	host := strings.ToLower(u.Hostname())
	if host != "wikipedia.org" && !strings.HasSuffix(host, ".wikipedia.org") {
		return "", "", invalid
	}

	lang = "en"
	if parts := strings.Split(host, "."); len(parts) >= 3 && parts[0] != "www" {
		lang = parts[0]
	}

	// url.Parse already decodes percent escapes into Path.
	if !strings.HasPrefix(u.Path, "/wiki/") {
		return "", "", invalid
	}
	title = strings.TrimPrefix(u.Path, "/wiki/")
	if strings.TrimSpace(title) == "" {
		return "", "", invalid
	}
	return lang, title, nil
}

// FetchArticle resolves the URL and returns the article's cleaned text.
func (f *WikipediaFetcher) FetchArticle(ctx context.Context, rawURL string) (*Article, error) {
	lang, title, err := ParseArticleURL(rawURL)
	if err != nil {
		return nil, err
	}

	cacheKey := lang + ":" + title
	if cached, ok := f.cache.Get(cacheKey); ok {
		return cached.(*Article), nil
	}

	endpoint := f.apiOverride
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.wikipedia.org/w/api.php", lang)
	}

	canonicalTitle, extract, err := f.fetchExtract(ctx, endpoint, title)
	if err != nil {
		return nil, err
	}

	fullText, err := f.fetchFullText(ctx, endpoint, title)
	if err != nil {
		if errors.Is(err, context.Canceled) || apperrors.KindOf(err) != apperrors.KindInternal {
			return nil, err
		}
		// Parse-side failures degrade to the intro extract; transport
		// failures propagate.
		fullText = ""
	}

	content := fullText
	if extract != "" && !strings.Contains(fullText, extract) {
		content = extract
		if fullText != "" {
			content = extract + "\n\n" + fullText
		}
	}

	article := &Article{
		Title:   canonicalTitle,
		URL:     rawURL,
		Lang:    lang,
		Content: cleanupText(content),
	}
	f.cache.Set(cacheKey, article, cache.DefaultExpiration)
	return article, nil
}

// --- Phase 1: intro extract ---

type queryResponse struct {
	Query struct {
		Pages map[string]struct {
			PageID  int    `json:"pageid"`
			Title   string `json:"title"`
			Extract string `json:"extract"`
		} `json:"pages"`
	} `json:"query"`
}

func (f *WikipediaFetcher) fetchExtract(ctx context.Context, endpoint, title string) (string, string, error) {
	params := url.Values{
		"action":      {"query"},
		"prop":        {"extracts"},
		"titles":      {title},
		"exintro":     {"1"},
		"explaintext": {"1"},
		"format":      {"json"},
	}

	body, err := f.get(ctx, endpoint, params)
	if err != nil {
		return "", "", err
	}

	var parsed queryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", "", apperrors.Wrap(err, apperrors.KindInternal, "unexpected Wikipedia API response")
	}

	if _, missing := parsed.Query.Pages["-1"]; missing || len(parsed.Query.Pages) == 0 {
		return "", "", apperrors.New(apperrors.KindNotFound, "Article not found")
	}
	for _, page := range parsed.Query.Pages {
		return page.Title, page.Extract, nil
	}
	return "", "", apperrors.New(apperrors.KindNotFound, "Article not found")
}

// --- Phase 2: full page text ---

type parseResponse struct {
	Parse struct {
		Title string `json:"title"`
		Text  struct {
			Content string `json:"*"`
		} `json:"text"`
	} `json:"parse"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

func (f *WikipediaFetcher) fetchFullText(ctx context.Context, endpoint, title string) (string, error) {
	params := url.Values{
		"action": {"parse"},
		"page":   {title},
		"prop":   {"text"},
		"format": {"json"},
	}

	body, err := f.get(ctx, endpoint, params)
	if err != nil {
		return "", err
	}

	var parsed parseResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", apperrors.Wrap(err, apperrors.KindInternal, "unexpected Wikipedia API response")
	}
	if parsed.Error != nil {
		return "", apperrors.Newf(apperrors.KindInternal, "Wikipedia parse error: %s", parsed.Error.Code)
	}

	return htmlToText(parsed.Parse.Text.Content)
}

func (f *WikipediaFetcher) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.Wrap(err, apperrors.KindServiceTimeout, "Wikipedia request timed out")
		}
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, apperrors.Wrap(err, apperrors.KindServiceTimeout, "Wikipedia request timed out")
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, apperrors.Wrap(err, apperrors.KindServiceUnavailable, "Wikipedia is unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindServiceUnavailable, "Wikipedia is unreachable")
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("wikipedia api: status %d", resp.StatusCode)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return nil, apperrors.Wrap(err, apperrors.KindServiceUnavailable, "Wikipedia is temporarily unavailable")
		}
		return nil, apperrors.Wrap(err, apperrors.KindInternal, "Wikipedia request rejected")
	}
	return body, nil
}

// --- HTML reduction ---

var skipDivClasses = []string{"navbox", "infobox", "metadata", "hatnote"}

// htmlToText reduces rendered article HTML to plain text: navigation chrome,
// tables, reference markers, and citation links are dropped; block elements
// become paragraph breaks.
func htmlToText(htmlStr string) (string, error) {
	if strings.TrimSpace(htmlStr) == "" {
		return "", nil
	}
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.KindInternal, "unparseable Wikipedia HTML")
	}

	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "sup", "table":
				return
			case "div":
				cls := attrValue(n, "class")
				for _, skip := range skipDivClasses {
					if strings.Contains(cls, skip) {
						return
					}
				}
			case "a":
				if strings.HasPrefix(attrValue(n, "href"), "#cite_note") {
					return
				}
			}
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "h1", "h2", "h3", "h4", "h5", "h6", "li", "blockquote", "br":
				sb.WriteString("\n\n")
			}
		}
	}
	walk(doc)

	return cleanupText(sb.String()), nil
}

func attrValue(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

var (
	blankLineRunRe = regexp.MustCompile(`\n\s*\n`)
	spaceRunRe     = regexp.MustCompile(` +`)
)

func cleanupText(text string) string {
	text = blankLineRunRe.ReplaceAllString(text, "\n\n")
	text = spaceRunRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
