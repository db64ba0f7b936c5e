// Package sitemap renders the public sitemap.xml and robots.txt.
package sitemap

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Entry is one public route.
type Entry struct {
	Route      string
	LastMod    time.Time
	ChangeFreq string // always, hourly, daily, weekly, monthly, yearly, never
	Priority   float64
}

var validChangeFreq = map[string]bool{
	"always": true, "hourly": true, "daily": true, "weekly": true,
	"monthly": true, "yearly": true, "never": true,
}

type urlEntry struct {
	location   string
	lastMod    time.Time
	changeFreq string
	priority   float64
}

// Build renders a sitemaps.org urlset. Entries are deduplicated by location
// and sorted; entries without LastMod use fallback.
func Build(baseURL string, entries []Entry, fallback time.Time) string {
	base := normalizeBase(baseURL)

	urls := make([]urlEntry, 0, len(entries))
	seen := map[string]struct{}{}
	for _, e := range entries {
		route := strings.TrimSpace(e.Route)
		if route == "" {
			route = "/"
		}
		if !strings.HasPrefix(route, "/") {
			route = "/" + route
		}
		location := base + route
		if _, ok := seen[location]; ok {
			continue
		}
		seen[location] = struct{}{}

		lastMod := e.LastMod
		if lastMod.IsZero() {
			lastMod = fallback
		}
		freq := strings.ToLower(strings.TrimSpace(e.ChangeFreq))
		if !validChangeFreq[freq] {
			freq = ""
		}
		urls = append(urls, urlEntry{
			location:   location,
			lastMod:    lastMod,
			changeFreq: freq,
			priority:   e.Priority,
		})
	}

	sort.Slice(urls, func(i, j int) bool {
		return urls[i].location < urls[j].location
	})

	var builder strings.Builder
	builder.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	builder.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">` + "\n")
	for _, u := range urls {
		builder.WriteString("  <url>\n")
		builder.WriteString(fmt.Sprintf("    <loc>%s</loc>\n", escape(u.location)))
		if !u.lastMod.IsZero() {
			builder.WriteString(fmt.Sprintf("    <lastmod>%s</lastmod>\n", u.lastMod.UTC().Format(time.RFC3339)))
		}
		if u.changeFreq != "" {
			builder.WriteString(fmt.Sprintf("    <changefreq>%s</changefreq>\n", u.changeFreq))
		}
		if u.priority > 0 && u.priority <= 1 {
			builder.WriteString(fmt.Sprintf("    <priority>%.1f</priority>\n", u.priority))
		}
		builder.WriteString("  </url>\n")
	}
	builder.WriteString(`</urlset>` + "\n")
	return builder.String()
}

// Robots renders robots.txt. The API and the signed-in app are disallowed.
func Robots(baseURL string, includeSitemap bool) string {
	var builder strings.Builder
	builder.WriteString("User-agent: *\n")
	builder.WriteString("Allow: /\n")
	builder.WriteString("Disallow: /api/\n")
	builder.WriteString("Disallow: /app/\n")
	if includeSitemap {
		builder.WriteString("\n")
		builder.WriteString(fmt.Sprintf("Sitemap: %s/sitemap.xml\n", normalizeBase(baseURL)))
	}
	return builder.String()
}

// Routes turns plain route paths into entries, giving the home page the
// top priority.
func Routes(routes []string) []Entry {
	entries := make([]Entry, 0, len(routes))
	for _, r := range routes {
		e := Entry{Route: r, ChangeFreq: "weekly", Priority: 0.5}
		if strings.TrimSpace(r) == "/" {
			e.ChangeFreq = "daily"
			e.Priority = 1.0
		}
		entries = append(entries, e)
	}
	return entries
}

func normalizeBase(baseURL string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = "http://localhost"
	}
	return base
}

func escape(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s))
	return b.String()
}
