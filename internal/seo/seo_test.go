package seo

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestSitemap(t *testing.T) {
	t.Parallel()

	out, err := Sitemap("https://example.test", time.Date(2026, 10, 16, 23, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(out), "<?xml"))

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(out)))
	require.NoError(t, err)
	require.Equal(t, 1, doc.Find("url").Length())
	require.Equal(t, "https://example.test", doc.Find("loc").Text())
	require.Equal(t, "2026-10-16", doc.Find("lastmod").Text())
	require.Equal(t, "monthly", doc.Find("changefreq").Text())
	require.Equal(t, "1", doc.Find("priority").Text())
}

func TestWebApplication(t *testing.T) {
	t.Parallel()

	out := JSON(WebApplication("Wheel of Life", "https://example.test", ""))
	require.Contains(t, out, `"@type":"WebApplication"`)
	require.NotContains(t, out, "description")
	require.Empty(t, JSON(make(chan int)))
}
