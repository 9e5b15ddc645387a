package promo

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"promoscan/internal/config"
)

// field reads one value from a product card. ok is false when the lookup
// found nothing to read.
type field func(card *goquery.Selection) (value string, ok bool)

// textOf reads the collapsed text of the first match of selector inside the card.
func textOf(selector string) field {
	return func(card *goquery.Selection) (string, bool) {
		s := card.Find(selector).First()
		if s.Length() == 0 {
			return "", false
		}
		return collapse(s.Text()), true
	}
}

// urlOf reads attribute attr as an absolute URL. An empty selector reads the
// card element itself.
func urlOf(selector, attr string, base *url.URL) field {
	return func(card *goquery.Selection) (string, bool) {
		s := card
		if selector != "" {
			s = card.Find(selector).First()
		}
		v, ok := s.Attr(attr)
		if !ok {
			return "", false
		}
		v = strings.TrimSpace(v)
		if v == "" {
			return "", true
		}
		return resolve(base, v), true
	}
}

// orEmpty runs f and falls back to the empty string when the lookup fails.
func orEmpty(f field, card *goquery.Selection) string {
	v, _ := f(card)
	return v
}

// ExtractProducts reads every product card in doc, in document order. Cards
// without a name element are not products and are skipped; any other missing
// field is left empty. Relative URLs are resolved against pageURL.
func ExtractProducts(doc *goquery.Document, pageURL string, sel config.Selectors, site string) []Product {
	base, _ := url.Parse(pageURL)

	name := textOf(sel.Name)
	brand := textOf(sel.Brand)
	price := textOf(sel.Price)
	image := urlOf(sel.Image, "src", base)
	period := textOf(sel.Period)
	link := urlOf("", "href", base)

	products := []Product{}
	doc.Find(sel.Item).Each(func(_ int, card *goquery.Selection) {
		n, ok := name(card)
		if !ok {
			return
		}
		products = append(products, Product{
			Name:   n,
			Brand:  orEmpty(brand, card),
			Price:  orEmpty(price, card),
			Image:  orEmpty(image, card),
			Period: orEmpty(period, card),
			Link:   orEmpty(link, card),
			Site:   site,
		})
	})
	return products
}

// ExtractProductsHTML parses html and runs ExtractProducts on it.
func ExtractProductsHTML(html, pageURL string, sel config.Selectors, site string) ([]Product, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	return ExtractProducts(doc, pageURL, sel, site), nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
