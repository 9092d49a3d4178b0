package extract

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pankajkandpal99/web-scrapper/internal/scraper"
)

func TestExtract_BasicDocument(t *testing.T) {
	t.Parallel()

	html := `<html><head><title>T</title><meta name="description" content="D"></head>` +
		`<body><h1>H1</h1><a href="/x">link</a></body></html>`

	page := New(nil).Extract(html, "https://example.com")

	require.Equal(t, "T", page.Title)
	require.Equal(t, "D", page.Description)
	require.Equal(t, scraper.Headings{H1: []string{"H1"}, H2: []string{}, H3: []string{}}, page.Headings)
	require.Equal(t, []scraper.Link{{Text: "link", Href: "/x"}}, page.Links)
	require.Empty(t, page.Images)
	require.NotNil(t, page.Images)
}

func TestExtract_SkipsEmptyHrefAndSrc(t *testing.T) {
	t.Parallel()

	html := `<body>
		<a>no href</a><a href="  ">blank</a><a href="/ok"> ok </a>
		<img alt="none"><img src="" alt="blank"><img src="/a.png">
	</body>`

	page := New(nil).Extract(html, "https://example.com")
	require.Equal(t, []scraper.Link{{Text: "ok", Href: "/ok"}}, page.Links)
	require.Equal(t, []scraper.Image{{Alt: "", Src: "/a.png"}}, page.Images)
}

func TestExtract_CapsLinksAndImages(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	b.WriteString("<body>")
	for i := 0; i < 80; i++ {
		fmt.Fprintf(&b, `<a href="/p/%d">p%d</a><img src="/i/%d.png">`, i, i, i)
	}
	b.WriteString("</body>")

	page := New(nil).Extract(b.String(), "https://example.com")
	require.Len(t, page.Links, maxLinks)
	require.Len(t, page.Images, maxImages)
	require.Equal(t, "/p/0", page.Links[0].Href)
	require.Equal(t, "/p/49", page.Links[49].Href)
	require.Equal(t, "/i/19.png", page.Images[19].Src)
}

func TestExtract_ContentExcludesScripts(t *testing.T) {
	t.Parallel()

	html := `<html><head><style>.x{}</style></head><body>
		<p>Hello   world</p>
		<script>var secret = 1;</script>
		<noscript>enable js</noscript>
		<style>p { color: red }</style>
		<p>again</p>
	</body></html>`

	page := New(nil).Extract(html, "https://example.com")
	require.Equal(t, "Hello world again", page.Content)
}

func TestExtract_MalformedInputIsTotal(t *testing.T) {
	t.Parallel()

	cases := []string{"", "not html at all", "<html><body><div><p>unclosed", "<<<>>>"}
	for _, html := range cases {
		page := New(nil).Extract(html, "https://example.com")
		require.NotNil(t, page.Links)
		require.NotNil(t, page.Images)
		require.NotNil(t, page.Headings.H1)
	}
}
