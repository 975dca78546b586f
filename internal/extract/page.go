package extract

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/answerengine/internal/fetch"
	"github.com/hyperifyio/answerengine/internal/model"
	"github.com/hyperifyio/answerengine/internal/robots"
)

// PageFetcher fetches and parses one page into the shared model, as used by
// the Page Extractor (spec.md §4.4). Any failure — network, robots denial,
// or unparseable content — is swallowed and reported as a nil PageExtract so
// that one bad source never aborts the pipeline.
type PageFetcher struct {
	HTTP      *fetch.Client
	Robots    *robots.Manager
	UserAgent string
	Extractor Extractor
	Now       func() time.Time
}

func (p *PageFetcher) extractor() Extractor {
	if p.Extractor != nil {
		return p.Extractor
	}
	return HeuristicExtractor{}
}

func (p *PageFetcher) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now().UTC()
}

// Fetch retrieves pageURL, honoring robots.txt, and returns the extracted
// content plus a best-effort published date and nil feature tags (filled in
// separately by the Feature Tagger). It never returns an error; failures are
// logged and reported via a nil *model.PageExtract.
func (p *PageFetcher) Fetch(ctx context.Context, pageURL string) *model.PageExtract {
	if p.HTTP == nil {
		log.Debug().Str("url", pageURL).Msg("extract: no HTTP client configured")
		return nil
	}
	if p.Robots != nil {
		if blocked, err := p.checkRobots(ctx, pageURL); err != nil {
			log.Debug().Err(err).Str("url", pageURL).Msg("extract: robots check failed, proceeding")
		} else if blocked {
			log.Debug().Str("url", pageURL).Msg("extract: blocked by robots.txt")
			return nil
		}
	}

	body, _, err := p.HTTP.Get(ctx, pageURL)
	if err != nil {
		log.Debug().Err(err).Str("url", pageURL).Msg("extract: fetch failed")
		return nil
	}

	doc := p.extractor().Extract(body)
	text := strings.TrimSpace(doc.Text)
	if text == "" {
		return nil
	}

	var published *time.Time
	if hint := FindMetaPublishedDate(string(body)); hint != "" {
		published = ParsePublishedDate(hint, p.now())
	}

	excerpt := text
	if len(excerpt) > 500 {
		excerpt = excerpt[:500]
	}

	return &model.PageExtract{
		URL:           pageURL,
		Title:         doc.Title,
		Body:          text,
		Excerpt:       excerpt,
		PublishedDate: published,
	}
}

func (p *PageFetcher) checkRobots(ctx context.Context, pageURL string) (bool, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return false, fmt.Errorf("parse url: %w", err)
	}
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)
	rules, _, err := p.Robots.Get(ctx, robotsURL)
	if err != nil {
		return false, err
	}
	return isDisallowed(rules, p.UserAgent, u.Path), nil
}

func isDisallowed(rules robots.Rules, userAgent, path string) bool {
	ua := strings.ToLower(userAgent)
	var best *robots.Group
	bestSpecificity := -1
	for i := range rules.Groups {
		g := &rules.Groups[i]
		for _, agent := range g.Agents {
			specificity := -1
			if agent == "*" {
				specificity = 0
			} else if strings.Contains(ua, agent) {
				specificity = len(agent)
			}
			if specificity > bestSpecificity {
				bestSpecificity = specificity
				best = g
			}
		}
	}
	if best == nil {
		return false
	}
	longestAllow, longestDisallow := -1, -1
	for _, rule := range best.Allow {
		if rule != "" && strings.HasPrefix(path, rule) && len(rule) > longestAllow {
			longestAllow = len(rule)
		}
	}
	for _, rule := range best.Disallow {
		if rule != "" && strings.HasPrefix(path, rule) && len(rule) > longestDisallow {
			longestDisallow = len(rule)
		}
	}
	return longestDisallow > longestAllow
}
