package fetcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"ai-docchat-be/pkg/apperrors"
)

func TestParseArticleURL(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantLang  string
		wantTitle string
		wantErr   bool
	}{
		{
			name:      "english article",
			url:       "https://en.wikipedia.org/wiki/Rose",
			wantLang:  "en",
			wantTitle: "Rose",
		},
		{
			name:      "other language edition",
			url:       "https://de.wikipedia.org/wiki/Rosen",
			wantLang:  "de",
			wantTitle: "Rosen",
		},
		{
			name:      "percent encoded title",
			url:       "https://en.wikipedia.org/wiki/Caf%C3%A9",
			wantLang:  "en",
			wantTitle: "Café",
		},
		{
			name:      "underscores preserved",
			url:       "https://en.wikipedia.org/wiki/Rosa_rubiginosa",
			wantLang:  "en",
			wantTitle: "Rosa_rubiginosa",
		},
		{
			name:      "bare host defaults to english",
			url:       "https://wikipedia.org/wiki/Rose",
			wantLang:  "en",
			wantTitle: "Rose",
		},
		{
			name:      "www host defaults to english",
			url:       "https://www.wikipedia.org/wiki/Rose",
			wantLang:  "en",
			wantTitle: "Rose",
		},
		{
			name:      "literal percent in title",
			url:       "https://en.wikipedia.org/wiki/100%25_club",
			wantLang:  "en",
			wantTitle: "100%_club",
		},
		{name: "wrong host", url: "https://example.com/wiki/Rose", wantErr: true},
		{name: "lookalike host", url: "https://en.wikipedia.org.evil.com/wiki/Rose", wantErr: true},
		{name: "suffix lookalike host", url: "https://notwikipedia.org/wiki/Rose", wantErr: true},
		{name: "missing wiki path", url: "https://en.wikipedia.org/w/index.php?title=Rose", wantErr: true},
		{name: "empty title", url: "https://en.wikipedia.org/wiki/", wantErr: true},
		{name: "bad scheme", url: "ftp://en.wikipedia.org/wiki/Rose", wantErr: true},
		{name: "not a url", url: "definitely not a url", wantErr: true},
		{name: "empty string", url: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lang, title, err := ParseArticleURL(tt.url)
			if tt.wantErr {
				if apperrors.KindOf(err) != apperrors.KindInvalidInput {
					t.Errorf("ParseArticleURL(%q) kind = %v, want KindInvalidInput", tt.url, apperrors.KindOf(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseArticleURL(%q) error = %v", tt.url, err)
			}
			if lang != tt.wantLang || title != tt.wantTitle {
				t.Errorf("ParseArticleURL(%q) = (%q, %q), want (%q, %q)", tt.url, lang, title, tt.wantLang, tt.wantTitle)
			}
		})
	}
}

type stubWiki struct {
	requests int64
	extract  string
	fullHTML string
	missing  bool
	parseErr bool
	status   int
}

func (s *stubWiki) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&s.requests, 1)
		if s.status != 0 {
			w.WriteHeader(s.status)
			return
		}
		switch r.URL.Query().Get("action") {
		case "query":
			if s.missing {
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"query": map[string]interface{}{
						"pages": map[string]interface{}{
							"-1": map[string]interface{}{"title": "Nope", "missing": ""},
						},
					},
				})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"query": map[string]interface{}{
					"pages": map[string]interface{}{
						"12345": map[string]interface{}{"pageid": 12345, "title": "Rose", "extract": s.extract},
					},
				},
			})
		case "parse":
			if s.parseErr {
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"error": map[string]interface{}{"code": "missingtitle", "info": "The page you specified doesn't exist."},
				})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"parse": map[string]interface{}{
					"title": "Rose",
					"text":  map[string]interface{}{"*": s.fullHTML},
				},
			})
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}
}

func TestFetchArticle(t *testing.T) {
	stub := &stubWiki{
		extract: "A rose is a woody perennial.",
		fullHTML: `<div class="mw-parser-output">
			<div class="hatnote">For other uses, see Rose (disambiguation).</div>
			<p>The rose family contains many species<sup>[2]</sup> worldwide.</p>
			<p>Cultivars are bred for <a href="#cite_note-3">citation anchor</a>garden display.</p>
			<table class="wikitable"><tr><td>taxonomy table cell</td></tr></table>
			<div class="navbox">Navigation junk</div>
		</div>`,
	}
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	f := NewWikipediaFetcher(server.URL, time.Hour)
	article, err := f.FetchArticle(context.Background(), "https://en.wikipedia.org/wiki/Rose")
	if err != nil {
		t.Fatalf("FetchArticle() error = %v", err)
	}

	if article.Title != "Rose" {
		t.Errorf("Title = %q, want Rose", article.Title)
	}
	if article.Lang != "en" {
		t.Errorf("Lang = %q, want en", article.Lang)
	}
	for _, want := range []string{
		"A rose is a woody perennial.",
		"The rose family contains many species worldwide.",
		"garden display.",
	} {
		if !strings.Contains(article.Content, want) {
			t.Errorf("Content missing %q:\n%s", want, article.Content)
		}
	}
	for _, reject := range []string{"[2]", "Navigation junk", "taxonomy table cell", "disambiguation", "citation anchor"} {
		if strings.Contains(article.Content, reject) {
			t.Errorf("Content should not contain %q:\n%s", reject, article.Content)
		}
	}
	if !strings.Contains(article.Content, "\n\n") {
		t.Error("Content lost its paragraph structure")
	}
}

func TestFetchArticleCaches(t *testing.T) {
	stub := &stubWiki{extract: "Intro.", fullHTML: "<p>Body text here.</p>"}
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	f := NewWikipediaFetcher(server.URL, time.Hour)
	for i := 0; i < 3; i++ {
		if _, err := f.FetchArticle(context.Background(), "https://en.wikipedia.org/wiki/Rose"); err != nil {
			t.Fatalf("FetchArticle() #%d error = %v", i, err)
		}
	}
	// One extract request plus one parse request, then cache hits.
	if got := atomic.LoadInt64(&stub.requests); got != 2 {
		t.Errorf("upstream requests = %d, want 2", got)
	}
}

func TestFetchArticleNotFound(t *testing.T) {
	stub := &stubWiki{missing: true}
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	f := NewWikipediaFetcher(server.URL, time.Hour)
	_, err := f.FetchArticle(context.Background(), "https://en.wikipedia.org/wiki/Never_heard_of_it")
	if apperrors.KindOf(err) != apperrors.KindNotFound {
		t.Errorf("FetchArticle() kind = %v, want KindNotFound", apperrors.KindOf(err))
	}
}

func TestFetchArticleInvalidURL(t *testing.T) {
	f := NewWikipediaFetcher("", time.Hour)
	_, err := f.FetchArticle(context.Background(), "https://example.com/not/wikipedia")
	if apperrors.KindOf(err) != apperrors.KindInvalidInput {
		t.Errorf("FetchArticle() kind = %v, want KindInvalidInput", apperrors.KindOf(err))
	}
}

func TestFetchArticleUpstreamDown(t *testing.T) {
	stub := &stubWiki{status: http.StatusInternalServerError}
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	f := NewWikipediaFetcher(server.URL, time.Hour)
	_, err := f.FetchArticle(context.Background(), "https://en.wikipedia.org/wiki/Rose")
	if apperrors.KindOf(err) != apperrors.KindServiceUnavailable {
		t.Errorf("FetchArticle() kind = %v, want KindServiceUnavailable", apperrors.KindOf(err))
	}
}

func TestFetchArticleParseFailureDegradesToExtract(t *testing.T) {
	stub := &stubWiki{extract: "Only the intro survives.", parseErr: true}
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	f := NewWikipediaFetcher(server.URL, time.Hour)
	article, err := f.FetchArticle(context.Background(), "https://en.wikipedia.org/wiki/Rose")
	if err != nil {
		t.Fatalf("FetchArticle() error = %v", err)
	}
	if article.Content != "Only the intro survives." {
		t.Errorf("Content = %q, want the extract alone", article.Content)
	}
}

func TestHtmlToTextEmpty(t *testing.T) {
	got, err := htmlToText("   ")
	if err != nil || got != "" {
		t.Errorf("htmlToText(blank) = (%q, %v), want empty", got, err)
	}
}
