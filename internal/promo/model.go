package promo

// Product is one promotional item. Every field is best-effort: a value that
// could not be read is an empty string.
type Product struct {
	Name   string `json:"nome"`
	Brand  string `json:"brand"`
	Price  string `json:"prezzo"` // as displayed, locale formatted
	Image  string `json:"immagine"`
	Period string `json:"periodo"`
	Link   string `json:"link"`
	Site   string `json:"supermercato"`
}

// Category is a promotional grouping and the products scraped from its page.
type Category struct {
	Name     string    `json:"nome"`
	URL      string    `json:"url"`
	Products []Product `json:"prodotti"`
}

// Link is a discovered category before it has been crawled.
type Link struct {
	Name string
	URL  string
}

// RawLink is an anchor as reported by the page script.
type RawLink struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// NewCategory builds a Category whose product list is never nil, so it
// serializes as an empty array.
func NewCategory(link Link, products []Product) Category {
	if products == nil {
		products = []Product{}
	}
	return Category{Name: link.Name, URL: link.URL, Products: products}
}

// Totals returns the number of categories and products in categories.
func Totals(categories []Category) (int, int) {
	products := 0
	for _, c := range categories {
		products += len(c.Products)
	}
	return len(categories), products
}
