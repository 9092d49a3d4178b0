package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pankajkandpal99/web-scrapper/internal/scraper"
)

// probe reads either an element's text or, when attr is set, one of its attributes.
type probe struct {
	selector string
	attr     string
}

var (
	nameProbes = []probe{
		{selector: `[data-testid="company-name"]`},
		{selector: ".company-name"},
		{selector: `meta[property="og:site_name"]`, attr: "content"},
		{selector: `[itemtype*="Organization"] [itemprop="name"]`},
		{selector: "h1"},
	}
	descriptionProbes = []probe{
		{selector: `[data-testid="company-description"]`},
		{selector: ".company-description"},
		{selector: ".about"},
		{selector: `meta[property="og:description"]`, attr: "content"},
		{selector: `meta[name="description"]`, attr: "content"},
	}
	locationProbes = []probe{
		{selector: `[data-testid="company-location"]`},
		{selector: ".company-location"},
		{selector: ".location"},
		{selector: `[itemprop="address"]`},
		{selector: "address"},
	}
	industryProbes = []probe{
		{selector: `[data-testid="company-industry"]`},
		{selector: ".company-industry"},
		{selector: ".industry"},
	}
	employeeProbes = []probe{
		{selector: `[data-testid="company-size"]`},
		{selector: ".company-size"},
		{selector: ".employees"},
		{selector: ".employee-count"},
	}
	foundedProbes = []probe{
		{selector: `[data-testid="company-founded"]`},
		{selector: ".founded"},
		{selector: ".founded-year"},
	}
	addressProbes = []probe{
		{selector: `[itemprop="streetAddress"]`},
		{selector: ".address"},
		{selector: "address"},
	}

	emailPattern   = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phonePattern   = regexp.MustCompile(`(?:\+\d{1,3}[\s.-]?)?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}\b`)
	foundedPattern = regexp.MustCompile(`(?i)founded\s+in\s+(\d{4})`)
)

type socialNetwork struct {
	hosts  []string
	assign func(*scraper.SocialMedia, string)
}

var socialNetworks = []socialNetwork{
	{hosts: []string{"linkedin.com"}, assign: func(s *scraper.SocialMedia, v string) { s.LinkedIn = v }},
	{hosts: []string{"twitter.com", "x.com"}, assign: func(s *scraper.SocialMedia, v string) { s.Twitter = v }},
	{hosts: []string{"facebook.com"}, assign: func(s *scraper.SocialMedia, v string) { s.Facebook = v }},
	{hosts: []string{"instagram.com"}, assign: func(s *scraper.SocialMedia, v string) { s.Instagram = v }},
}

// companyInfo runs the heuristic probes and returns nil when none of them resolved.
func companyInfo(doc *goquery.Document, rawHTML, sourceURL string) *scraper.CompanyInfo {
	text := cleanText(doc.Find("body").Text())

	info := &scraper.CompanyInfo{
		Name:        firstMatch(doc, nameProbes),
		Description: firstMatch(doc, descriptionProbes),
		Location:    firstMatch(doc, locationProbes),
		Industry:    firstMatch(doc, industryProbes),
		Employees:   firstMatch(doc, employeeProbes),
		Founded:     firstMatch(doc, foundedProbes),
	}
	if info.Founded == "" {
		if m := foundedPattern.FindStringSubmatch(text); m != nil {
			info.Founded = m[1]
		}
	}

	contact := &scraper.Contact{
		Email:   emailPattern.FindString(rawHTML),
		Phone:   strings.TrimSpace(phonePattern.FindString(text)),
		Address: firstMatch(doc, addressProbes),
	}
	if !contact.IsEmpty() {
		info.Contact = contact
	}

	social := socialLinks(doc)
	if !social.IsEmpty() {
		info.SocialMedia = social
	}

	if info.Name == "" && info.Description == "" && info.Location == "" && info.Industry == "" &&
		info.Employees == "" && info.Founded == "" && info.Contact == nil && info.SocialMedia == nil {
		return nil
	}
	info.Website = sourceURL
	return info
}

func firstMatch(doc *goquery.Document, probes []probe) string {
	for _, p := range probes {
		sel := doc.Find(p.selector)
		value := ""
		sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if p.attr != "" {
				value = strings.TrimSpace(s.AttrOr(p.attr, ""))
			} else {
				value = cleanText(s.Text())
			}
			return value == ""
		})
		if value != "" {
			return value
		}
	}
	return ""
}

func socialLinks(doc *goquery.Document) *scraper.SocialMedia {
	social := &scraper.SocialMedia{}
	for _, network := range socialNetworks {
		doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			href := strings.TrimSpace(s.AttrOr("href", ""))
			if !onHost(href, network.hosts) {
				return true
			}
			network.assign(social, href)
			return false
		})
	}
	return social
}

// onHost reports whether href points at one of domains or a subdomain of it.
func onHost(href string, domains []string) bool {
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return false
	}
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
