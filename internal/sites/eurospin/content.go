package eurospin

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"

	"promoscan/internal/promo"
)

// CatalogContent holds the categories of one crawl and implements scraper.Content.
type CatalogContent struct {
	label      string
	source     string
	categories []promo.Category
}

// NewCatalogContent creates a CatalogContent. Nil product lists are replaced
// with empty ones so every format sees the same shape.
func NewCatalogContent(label, source string, categories []promo.Category) *CatalogContent {
	normalized := make([]promo.Category, 0, len(categories))
	for _, c := range categories {
		normalized = append(normalized, promo.NewCategory(promo.Link{Name: c.Name, URL: c.URL}, c.Products))
	}
	return &CatalogContent{label: label, source: source, categories: normalized}
}

func (c *CatalogContent) Categories() []promo.Category {
	return c.categories
}

// ToJSON writes the category array with two-space indentation and without
// escaping non-ASCII or HTML characters.
func (c *CatalogContent) ToJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c.categories); err != nil {
		return nil, fmt.Errorf("failed to encode categories: %w", err)
	}
	return unescapeLineSeparators(buf.Bytes()), nil
}

// unescapeLineSeparators turns the \u2028 and \u2029 escapes that
// encoding/json always emits back into raw characters. Every backslash in
// encoder output starts an escape, so escapes are consumed in pairs and an
// escaped backslash followed by "u2028" is left alone.
func unescapeLineSeparators(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != '\\' || i+1 >= len(b) {
			out = append(out, b[i])
			continue
		}
		if b[i+1] == 'u' && i+6 <= len(b) {
			switch string(b[i+2 : i+6]) {
			case "2028":
				out = append(out, "\u2028"...)
				i += 5
				continue
			case "2029":
				out = append(out, "\u2029"...)
				i += 5
				continue
			}
		}
		out = append(out, b[i], b[i+1])
		i++
	}
	return out
}

// ToCSV returns one row per product, prefixed with its category.
func (c *CatalogContent) ToCSV() (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"categoria", "url_categoria", "nome", "brand", "prezzo", "immagine", "periodo", "link", "supermercato"})
	for _, cat := range c.categories {
		for _, p := range cat.Products {
			_ = w.Write([]string{cat.Name, cat.URL, p.Name, p.Brand, p.Price, p.Image, p.Period, p.Link, p.Site})
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to write CSV: %w", err)
	}
	return buf.String(), nil
}

// ToHTML renders one table per category.
func (c *CatalogContent) ToHTML() (string, error) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<h1>Promozioni %s</h1>\n", html.EscapeString(c.label)))
	if c.source != "" {
		sb.WriteString(fmt.Sprintf("<p>Fonte: <a href=%q>%s</a></p>\n", c.source, html.EscapeString(c.source)))
	}
	for _, cat := range c.categories {
		sb.WriteString(fmt.Sprintf("<h2><a href=%q>%s</a></h2>\n", cat.URL, html.EscapeString(cat.Name)))
		if len(cat.Products) == 0 {
			sb.WriteString("<p>Nessun prodotto</p>\n")
			continue
		}
		sb.WriteString("<table>\n<thead><tr><th>Prodotto</th><th>Brand</th><th>Prezzo</th><th>Periodo</th><th>Link</th></tr></thead>\n<tbody>\n")
		for _, p := range cat.Products {
			sb.WriteString(fmt.Sprintf("<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>\n",
				html.EscapeString(p.Name),
				html.EscapeString(p.Brand),
				html.EscapeString(p.Price),
				html.EscapeString(p.Period),
				html.EscapeString(p.Link),
			))
		}
		sb.WriteString("</tbody>\n</table>\n")
	}
	return sb.String(), nil
}

// ToMarkdown converts the HTML rendering; tables become GitHub-flavored tables.
func (c *CatalogContent) ToMarkdown() (string, error) {
	h, err := c.ToHTML()
	if err != nil {
		return "", err
	}

	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	markdown, err := converter.ConvertString(h)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to Markdown: %w", err)
	}
	return markdown, nil
}

func (c *CatalogContent) ToText() (string, error) {
	var sb strings.Builder
	categories, products := promo.Totals(c.categories)
	sb.WriteString(fmt.Sprintf("Promozioni %s: %d categorie, %d prodotti\n\n", c.label, categories, products))
	for i, cat := range c.categories {
		sb.WriteString(fmt.Sprintf("%d. %s (%d)\n   %s\n", i+1, cat.Name, len(cat.Products), cat.URL))
		for _, p := range cat.Products {
			line := p.Name
			if p.Brand != "" {
				line += " - " + p.Brand
			}
			if p.Price != "" {
				line += " - " + p.Price
			}
			sb.WriteString("   * " + line + "\n")
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
