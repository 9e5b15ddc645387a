package promo

import (
	"net/url"
	"strings"
)

// DedupeCategories turns raw anchors into category links. Hrefs are resolved
// against base; the first anchor for each absolute URL wins and keeps its
// position. Anchors without the marker or without an href are dropped.
func DedupeCategories(raw []RawLink, base, marker, fallbackName string) []Link {
	baseURL, _ := url.Parse(base)

	seen := make(map[string]bool, len(raw))
	links := make([]Link, 0, len(raw))
	for _, r := range raw {
		href := strings.TrimSpace(r.Href)
		if href == "" {
			continue
		}
		abs := resolve(baseURL, href)
		if !strings.Contains(abs, marker) || seen[abs] {
			continue
		}
		seen[abs] = true

		name := strings.TrimSpace(r.Text)
		if name == "" {
			name = fallbackName
		}
		links = append(links, Link{Name: name, URL: abs})
	}
	return links
}

// resolve makes ref absolute against base. Unparseable refs are returned as is.
func resolve(base *url.URL, ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if base == nil {
		return u.String()
	}
	return base.ResolveReference(u).String()
}
