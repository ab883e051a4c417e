package fetch

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/solewatch/solewatch/internal/release"
)

const siteOrigin = "https://www.soleretriever.com"

// ExtractItems parses a listing page body into release items. A page with no
// release cards yields an empty slice, which the crawler reads as the end of
// the listing.
func ExtractItems(r io.Reader) ([]release.Item, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var items []release.Item
	doc.Find(`div[data-test-id="raffle-item"]`).Each(func(_ int, card *goquery.Selection) {
		items = append(items, extractItem(card))
	})
	return items, nil
}

func extractItem(card *goquery.Selection) release.Item {
	item := release.Item{
		Name:        strings.TrimSpace(card.Find("div.line-clamp-2").First().Text()),
		ReleaseDate: strings.TrimSpace(card.Find("span.text-gray-600").First().Text()),
		IsTrending:  card.Find(`div[title="Trending now"]`).Length() > 0,
	}

	if href, ok := card.Find("a").First().Attr("href"); ok && href != "" {
		if strings.HasPrefix(href, "/") {
			href = siteOrigin + href
		}
		item.Link = href
	}

	// Price and SKU share one element, "$180 • DD1391-100".
	if meta := strings.TrimSpace(card.Find("p.text-sm").First().Text()); meta != "" {
		parts := strings.SplitN(meta, "•", 2)
		item.Price = strings.TrimSpace(parts[0])
		if len(parts) > 1 {
			item.SKU = strings.TrimSpace(parts[1])
		}
	}
	return item
}
