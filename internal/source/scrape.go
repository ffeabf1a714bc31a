package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"duende/internal/config"
	"duende/internal/event"
)

// Scrape fetches a listing page, collects detail-page links whose href
// contains the configured marker, then extracts candidate fields from each
// detail page with the configured between-markers rules. Individual detail
// pages failing skip that page only; the batch survives.
type Scrape struct {
	listingURL string
	linkMarker string
	maxDetails int
	fields     map[string]config.FieldRule
	userAgent  string
	client     *http.Client
}

func NewScrape(cfg config.ScrapeConfig) *Scrape {
	return &Scrape{
		listingURL: cfg.ListingURL,
		linkMarker: cfg.LinkMarker,
		maxDetails: cfg.MaxDetails,
		fields:     cfg.Fields,
		userAgent:  cfg.UserAgent,
		client:     &http.Client{Timeout: cfg.Timeout.Std()},
	}
}

func (s *Scrape) Name() string { return "scrape" }

// Fetch scrapes the listing for one query. The query is appended to the
// listing URL as ?q=... so one strategy file can drive many searches.
func (s *Scrape) Fetch(ctx context.Context, query string) ([]event.Candidate, error) {
	listing, err := s.get(ctx, s.searchURL(query))
	if err != nil {
		return nil, fmt.Errorf("fetch listing: %w", err)
	}

	links := ExtractLinks(listing, s.linkMarker)
	if len(links) > s.maxDetails {
		links = links[:s.maxDetails]
	}

	cands := make([]event.Candidate, 0, len(links))
	for _, link := range links {
		detail, err := s.get(ctx, s.resolve(link))
		if err != nil {
			// One broken detail page must not sink the batch.
			continue
		}
		if c := s.extract(detail, query); len(c) > 0 {
			cands = append(cands, c)
		}
	}
	return cands, nil
}

func (s *Scrape) searchURL(query string) string {
	u, err := url.Parse(s.listingURL)
	if err != nil {
		return s.listingURL
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()
	return u.String()
}

func (s *Scrape) resolve(link string) string {
	base, err := url.Parse(s.listingURL)
	if err != nil {
		return link
	}
	ref, err := url.Parse(link)
	if err != nil {
		return link
	}
	return base.ResolveReference(ref).String()
}

// extract applies the field rules to one detail page. Dates are accepted in
// ISO form directly or converted from Spanish long form; a page with neither
// yields a candidate the normalizer will reject, which is the point: the
// decision stays in one place.
func (s *Scrape) extract(page, query string) event.Candidate {
	c := event.Candidate{}
	for field, rule := range s.fields {
		v := strings.TrimSpace(ExtractBetween(page, rule.After, rule.Until))
		if v == "" {
			continue
		}
		if field == "date" {
			if _, err := time.Parse(event.DateLayout, v); err != nil {
				v = ParseLocaleDate(v)
			}
			if v == "" {
				continue
			}
		}
		c[field] = v
	}
	if len(c) == 0 {
		return nil
	}
	if _, ok := c["artist"]; !ok {
		c["artist"] = query
	}
	return c
}

func (s *Scrape) get(ctx context.Context, u string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GET %s: status %d", u, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// ExtractLinks returns every href value in the markup whose target contains
// marker, in document order and de-duplicated.
func ExtractLinks(markup, marker string) []string {
	var links []string
	seen := map[string]bool{}
	rest := markup
	for {
		i := strings.Index(rest, `href="`)
		if i < 0 {
			break
		}
		rest = rest[i+len(`href="`):]
		j := strings.IndexByte(rest, '"')
		if j < 0 {
			break
		}
		href := rest[:j]
		rest = rest[j:]
		if marker != "" && !strings.Contains(href, marker) {
			continue
		}
		if href == "" || seen[href] {
			continue
		}
		seen[href] = true
		links = append(links, href)
	}
	return links
}

// ExtractBetween returns the text between the first occurrence of after and
// the next occurrence of until, or "" when either marker is absent.
func ExtractBetween(markup, after, until string) string {
	if after == "" {
		return ""
	}
	i := strings.Index(markup, after)
	if i < 0 {
		return ""
	}
	rest := markup[i+len(after):]
	if until == "" {
		return rest
	}
	j := strings.Index(rest, until)
	if j < 0 {
		return ""
	}
	return rest[:j]
}

var _ Adapter = (*Scrape)(nil)
