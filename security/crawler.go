package security

import (
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// crawlerPattern pairs a lowercase user-agent substring with a stable crawler
// name used in logs.
type crawlerPattern struct {
	substring string
	name      string
}

// knownCrawlers is checked in order; earlier entries win when an agent
// impersonates several crawlers at once.
var knownCrawlers = []crawlerPattern{
	{"whatsapp", "whatsapp"},
	{"telegrambot", "telegram"},
	{"slackbot", "slack"},
	{"slack-imgproxy", "slack"},
	{"twitterbot", "twitter"},
	{"facebookexternalhit", "facebook"},
	{"linkedinbot", "linkedin"},
	{"discordbot", "discord"},
	{"skypeuripreview", "skype"},
	{"googlebot", "google"},
	{"bingbot", "bing"},
	{"duckduckbot", "duckduckgo"},
	{"applebot", "apple"},
	{"pingdom", "pingdom"},
	{"uptimerobot", "uptimerobot"},
}

// genericMarkers catch automated clients that are not on the named list.
var genericMarkers = []string{"bot/", "bot;", "crawler", "spider", "preview", "headless"}

// CrawlerDetector classifies requests from link-preview crawlers and other
// automated clients. Messaging apps fetch a shared short link to build a
// preview card; without classification those fetches would consume the
// visitor's first-scan state and count against the link's scan quota.
type CrawlerDetector struct {
	mu       sync.RWMutex
	patterns []crawlerPattern
}

// NewCrawlerDetector creates a detector seeded with the known crawler list.
func NewCrawlerDetector() *CrawlerDetector {
	patterns := make([]crawlerPattern, len(knownCrawlers))
	copy(patterns, knownCrawlers)
	return &CrawlerDetector{patterns: patterns}
}

// Detect reports whether the user agent belongs to a crawler and, if so, a
// stable name for it. Unknown but clearly automated agents are reported as
// "generic".
func (cd *CrawlerDetector) Detect(userAgent string) (bool, string) {
	if userAgent == "" {
		return true, "generic"
	}

	lower := strings.ToLower(userAgent)

	cd.mu.RLock()
	for _, p := range cd.patterns {
		if strings.Contains(lower, p.substring) {
			cd.mu.RUnlock()
			return true, p.name
		}
	}
	cd.mu.RUnlock()

	for _, marker := range genericMarkers {
		if strings.Contains(lower, marker) {
			return true, "generic"
		}
	}

	return false, ""
}

// Register adds a user-agent substring to the named crawler list at runtime.
func (cd *CrawlerDetector) Register(pattern, name string) {
	cd.mu.Lock()
	cd.patterns = append(cd.patterns, crawlerPattern{substring: strings.ToLower(pattern), name: name})
	cd.mu.Unlock()
	log.Info().Str("pattern", pattern).Str("name", name).Msg("Crawler pattern registered")
}
