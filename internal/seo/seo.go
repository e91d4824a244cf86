// Package seo builds page metadata, structured data and the sitemap.
package seo

import (
	"encoding/json"
	"encoding/xml"
	"time"
)

// Meta is the per-page head metadata.
type Meta struct {
	Title       string
	Description string
	Canonical   string
	OG          OpenGraph
}

// OpenGraph holds og:* properties.
type OpenGraph struct {
	Title       string
	Description string
	Type        string
	URL         string
}

// JSON marshals v for a JSON-LD script tag; "" on error.
func JSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// WebApplication is the schema.org description of the tool.
func WebApplication(name, url, description string) map[string]any {
	m := map[string]any{
		"@context":            "https://schema.org",
		"@type":               "WebApplication",
		"name":                name,
		"applicationCategory": "LifestyleApplication",
		"operatingSystem":     "Any",
		"offers":              map[string]any{"@type": "Offer", "price": "0"},
	}
	if url != "" {
		m["url"] = url
	}
	if description != "" {
		m["description"] = description
	}
	return m
}

type urlSet struct {
	XMLName xml.Name `xml:"urlset"`
	XMLNS   string   `xml:"xmlns,attr"`
	URLs    []entry  `xml:"url"`
}

type entry struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

// Sitemap renders the single-page sitemap for baseURL.
func Sitemap(baseURL string, lastMod time.Time) ([]byte, error) {
	set := urlSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs: []entry{{
			Loc:        baseURL,
			LastMod:    lastMod.UTC().Format("2006-01-02"),
			ChangeFreq: "monthly",
			Priority:   "1",
		}},
	}
	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}
