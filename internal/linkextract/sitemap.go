package linkextract

import (
	"encoding/xml"
	"io"
)

// sitemapDoc matches both <urlset> and <sitemapindex> documents: both use
// repeated child elements carrying a <loc> child, so a single loose
// structure captures either (spec §4.2, "XML sitemaps and sitemap
// indexes").
type sitemapDoc struct {
	Entries []struct {
		Loc string `xml:"loc"`
	} `xml:",any"`
}

// ExtractSitemap extracts every <loc> value from an XML sitemap or
// sitemap index document. encoding/xml is used rather than a third-party
// XML library: no XML parser appears anywhere else in the retrieved
// pack, and Go's standard decoder already handles the flat <loc>
// extraction this format needs (see DESIGN.md).
func ExtractSitemap(r io.Reader, page int) ([]Link, error) {
	var doc sitemapDoc
	dec := xml.NewDecoder(r)
	dec.Strict = false
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}

	var out []Link
	for _, e := range doc.Entries {
		if e.Loc == "" {
			continue
		}
		out = append(out, Link{URL: e.Loc, Page: page})
	}
	return out, nil
}
