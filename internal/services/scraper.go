package services

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/qufrids/ad-analyzer-sub000/internal/metrics"
)

const (
	scrapeTimeout   = 15 * time.Second
	maxScrapeBytes  = 2 * 1024 * 1024
	maxDescription  = 1500
	maxReviewsChars = 400

	scrapeUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// ProductInfo is the scraped (or fallback) context fed into the ad-copy
// prompt and stored on the generation record. FetchSuccess is false when the
// page could not be fetched and the info was derived from the URL alone.
type ProductInfo struct {
	Name         string `json:"product_name"`
	Description  string `json:"description"`
	Reviews      string `json:"reviews,omitempty"`
	URL          string `json:"url"`
	FetchSuccess bool   `json:"fetch_success"`
}

// ProductScraper fetches product pages for the URL-to-ad-copy flow. It is
// best-effort text extraction, not a crawler: one GET, a bounded read, and a
// few regexes over the HTML.
type ProductScraper struct {
	httpClient *http.Client
	sanitizer  *bluemonday.Policy
}

func NewProductScraper() *ProductScraper {
	return &ProductScraper{
		httpClient: &http.Client{Timeout: scrapeTimeout},
		// StrictPolicy strips every tag, leaving text content only.
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// ValidateScrapeURL rejects URLs the scraper must never fetch: non-HTTP
// schemes and hosts that resolve into loopback, private, or link-local space.
// DNS-rebinding is still possible between this check and the fetch; closing
// that needs a dialer-level guard.
func ValidateScrapeURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("unparseable url: %w", ErrInvalidURL)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("scheme %q not allowed: %w", parsed.Scheme, ErrInvalidURL)
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return fmt.Errorf("missing host: %w", ErrInvalidURL)
	}

	if host == "localhost" || strings.HasSuffix(host, ".local") {
		return fmt.Errorf("host %q not allowed: %w", host, ErrInvalidURL)
	}

	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
			return fmt.Errorf("address %q not allowed: %w", host, ErrInvalidURL)
		}
	}

	return nil
}

var (
	titleRe    = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	metaDescRe = regexp.MustCompile(`(?is)<meta[^>]+name=["']description["'][^>]+content=["']([^"']+)["']`)
	ogTitleRe  = regexp.MustCompile(`(?is)<meta[^>]+property=["']og:title["'][^>]+content=["']([^"']+)["']`)
	reviewRe   = regexp.MustCompile(`(?i)[^.!?]*\breviews?\b[^.!?]*[.!?]`)
	spaceRe    = regexp.MustCompile(`\s+`)
)

// Fetch downloads and extracts product info from a validated URL. Non-2xx
// responses and transport errors are hard failures with no retry here; the
// caller decides whether to degrade to FallbackFromURL.
func (s *ProductScraper) Fetch(ctx context.Context, rawURL string) (*ProductInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", scrapeUserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("page returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxScrapeBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}

	html := string(body)
	info := &ProductInfo{URL: rawURL, FetchSuccess: true}

	if m := ogTitleRe.FindStringSubmatch(html); m != nil {
		info.Name = cleanText(m[1], 200)
	} else if m := titleRe.FindStringSubmatch(html); m != nil {
		info.Name = cleanText(m[1], 200)
	}

	if m := metaDescRe.FindStringSubmatch(html); m != nil {
		info.Description = cleanText(m[1], maxDescription)
	} else {
		// No meta description: strip every tag and take the page text.
		info.Description = cleanText(s.sanitizer.Sanitize(html), maxDescription)
	}

	// Review snippets are a nice-to-have conditioning signal for the prompt.
	if sentences := reviewRe.FindAllString(s.sanitizer.Sanitize(html), 3); sentences != nil {
		info.Reviews = cleanText(strings.Join(sentences, " "), maxReviewsChars)
	}

	if info.Name == "" {
		info.Name = productNameFromURL(rawURL)
	}

	debugLog("Scraped %s: name=%q desc_len=%d", rawURL, info.Name, len(info.Description))
	return info, nil
}

// FallbackFromURL builds degraded product info from the URL's path segments.
// Total scraping failure must not abort the generation flow; it just produces
// lower-quality input flagged with fetch_success=false.
func FallbackFromURL(rawURL string) *ProductInfo {
	metrics.ScrapeFallbacksTotal.Inc()
	return &ProductInfo{
		Name:         productNameFromURL(rawURL),
		Description:  "",
		URL:          rawURL,
		FetchSuccess: false,
	}
}

// productNameFromURL guesses a product name from the last meaningful path
// segment, e.g. "/products/ergo-desk-v2" -> "ergo desk v2".
func productNameFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "product"
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		seg := segments[i]
		if seg == "" || seg == "products" || seg == "product" || seg == "item" || seg == "p" {
			continue
		}
		// Drop a file extension and common id suffixes
		if dot := strings.LastIndex(seg, "."); dot > 0 {
			seg = seg[:dot]
		}
		seg = strings.NewReplacer("-", " ", "_", " ", "+", " ").Replace(seg)
		seg = spaceRe.ReplaceAllString(strings.TrimSpace(seg), " ")
		if seg != "" {
			return seg
		}
	}

	if parsed.Hostname() != "" {
		return strings.TrimPrefix(parsed.Hostname(), "www.")
	}
	return "product"
}

func cleanText(s string, max int) string {
	s = spaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
	runes := []rune(s)
	if len(runes) > max {
		return string(runes[:max])
	}
	return s
}
