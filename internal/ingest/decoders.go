package ingest

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// shopifyTagList accepts both tag encodings Shopify emits: a JSON array in
// products.json exports and a comma-joined string from the admin API.
type shopifyTagList []string

func (t *shopifyTagList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var arr []string
		if err := json.Unmarshal(data, &arr); err != nil {
			return err
		}
		*t = CleanTags(arr)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = SplitTags(s)
	return nil
}

type shopifyFeed struct {
	Products []shopifyProduct `json:"products"`
}

type shopifyProduct struct {
	ID          int64            `json:"id"`
	Title       string           `json:"title"`
	Handle      string           `json:"handle"`
	Vendor      string           `json:"vendor"`
	ProductType string           `json:"product_type"`
	BodyHTML    string           `json:"body_html"`
	Tags        shopifyTagList   `json:"tags"`
	Variants    []shopifyVariant `json:"variants"`
}

type shopifyVariant struct {
	SKU       string `json:"sku"`
	Price     string `json:"price"`
	Available bool   `json:"available"`
}

func decodeShopify(vendorKey string, r io.Reader) ([]FeedProduct, []FeedWarning, error) {
	var feed shopifyFeed
	if err := json.NewDecoder(r).Decode(&feed); err != nil {
		return nil, nil, fmt.Errorf("decode shopify feed: %w", err)
	}

	var products []FeedProduct
	var warnings []FeedWarning
	for i, p := range feed.Products {
		if strings.TrimSpace(p.Title) == "" {
			warnings = append(warnings, FeedWarning{Record: i, Message: "missing title"})
			continue
		}

		product := FeedProduct{
			ExternalID:  externalID(strconv.FormatInt(p.ID, 10), p.Handle, p.Title),
			Name:        strings.TrimSpace(p.Title),
			Brand:       strings.TrimSpace(p.Vendor),
			Category:    strings.TrimSpace(p.ProductType),
			Description: stripHTML(p.BodyHTML),
			Tags:        p.Tags,
		}
		if p.Handle != "" {
			product.ProductURL = "/products/" + p.Handle
		}
		for _, v := range p.Variants {
			if product.PartNumber == "" && strings.TrimSpace(v.SKU) != "" {
				product.PartNumber = strings.TrimSpace(v.SKU)
			}
			if product.PriceCents == 0 && v.Price != "" {
				product.PriceCents = parsePriceCents(v.Price)
			}
			if v.Available {
				product.InStock = true
			}
		}
		product.RecordID = RecordID(vendorKey, product.ExternalID)
		products = append(products, product)
	}
	return products, warnings, nil
}

type wooProduct struct {
	ID               int64    `json:"id"`
	Name             string   `json:"name"`
	Permalink        string   `json:"permalink"`
	SKU              string   `json:"sku"`
	Price            string   `json:"price"`
	RegularPrice     string   `json:"regular_price"`
	StockStatus      string   `json:"stock_status"`
	Description      string   `json:"description"`
	ShortDescription string   `json:"short_description"`
	Tags             []wooRef `json:"tags"`
	Categories       []wooRef `json:"categories"`
	Attributes       []struct {
		Name    string   `json:"name"`
		Options []string `json:"options"`
	} `json:"attributes"`
}

type wooRef struct {
	Name string `json:"name"`
}

func decodeWooCommerce(vendorKey string, r io.Reader) ([]FeedProduct, []FeedWarning, error) {
	var feed []wooProduct
	if err := json.NewDecoder(r).Decode(&feed); err != nil {
		return nil, nil, fmt.Errorf("decode woocommerce feed: %w", err)
	}

	var products []FeedProduct
	var warnings []FeedWarning
	for i, p := range feed {
		if strings.TrimSpace(p.Name) == "" {
			warnings = append(warnings, FeedWarning{Record: i, Message: "missing name"})
			continue
		}

		price := p.Price
		if price == "" {
			price = p.RegularPrice
		}
		description := p.ShortDescription
		if strings.TrimSpace(stripHTML(description)) == "" {
			description = p.Description
		}

		product := FeedProduct{
			ExternalID:  externalID(strconv.FormatInt(p.ID, 10), p.SKU, p.Name),
			Name:        strings.TrimSpace(p.Name),
			Brand:       wooBrand(p),
			PartNumber:  strings.TrimSpace(p.SKU),
			Description: stripHTML(description),
			ProductURL:  p.Permalink,
			PriceCents:  parsePriceCents(price),
			InStock:     p.StockStatus == "instock",
		}
		if len(p.Categories) > 0 {
			product.Category = p.Categories[0].Name
		}
		tags := make([]string, 0, len(p.Tags))
		for _, tag := range p.Tags {
			tags = append(tags, tag.Name)
		}
		product.Tags = CleanTags(tags)
		product.RecordID = RecordID(vendorKey, product.ExternalID)
		products = append(products, product)
	}
	return products, warnings, nil
}

// wooBrand digs the manufacturer out of product attributes; WooCommerce has
// no first-class brand field.
func wooBrand(p wooProduct) string {
	for _, attr := range p.Attributes {
		name := strings.ToLower(strings.TrimSpace(attr.Name))
		if name != "brand" && name != "manufacturer" {
			continue
		}
		if len(attr.Options) > 0 {
			return strings.TrimSpace(attr.Options[0])
		}
	}
	return ""
}

type bigCommerceFeed struct {
	Data []bigCommerceProduct `json:"data"`
}

type bigCommerceProduct struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	SKU            string  `json:"sku"`
	Price          float64 `json:"price"`
	BrandName      string  `json:"brand_name"`
	Availability   string  `json:"availability"`
	InventoryLevel int     `json:"inventory_level"`
	SearchKeywords string  `json:"search_keywords"`
	Description    string  `json:"description"`
	CustomURL      struct {
		URL string `json:"url"`
	} `json:"custom_url"`
}

func decodeBigCommerce(vendorKey string, r io.Reader) ([]FeedProduct, []FeedWarning, error) {
	var feed bigCommerceFeed
	if err := json.NewDecoder(r).Decode(&feed); err != nil {
		return nil, nil, fmt.Errorf("decode bigcommerce feed: %w", err)
	}

	var products []FeedProduct
	var warnings []FeedWarning
	for i, p := range feed.Data {
		if strings.TrimSpace(p.Name) == "" {
			warnings = append(warnings, FeedWarning{Record: i, Message: "missing name"})
			continue
		}

		product := FeedProduct{
			ExternalID:  externalID(strconv.FormatInt(p.ID, 10), p.SKU, p.Name),
			Name:        strings.TrimSpace(p.Name),
			Brand:       strings.TrimSpace(p.BrandName),
			PartNumber:  strings.TrimSpace(p.SKU),
			Description: stripHTML(p.Description),
			ProductURL:  p.CustomURL.URL,
			PriceCents:  int64(math.Round(p.Price * 100)),
			InStock:     p.Availability == "available" || (p.Availability == "" && p.InventoryLevel > 0),
			Tags:        SplitTags(p.SearchKeywords),
		}
		product.RecordID = RecordID(vendorKey, product.ExternalID)
		products = append(products, product)
	}
	return products, warnings, nil
}

type customFeed struct {
	Products []customProduct `json:"products"`
}

type customProduct struct {
	ExternalID  string   `json:"external_id"`
	Name        string   `json:"name"`
	Brand       string   `json:"brand"`
	Category    string   `json:"category"`
	PartNumber  string   `json:"part_number"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	PriceCents  int64    `json:"price_cents"`
	Currency    string   `json:"currency"`
	InStock     bool     `json:"in_stock"`
	Tags        []string `json:"tags"`
}

func decodeCustomJSON(vendorKey string, r io.Reader) ([]FeedProduct, []FeedWarning, error) {
	var feed customFeed
	if err := json.NewDecoder(r).Decode(&feed); err != nil {
		return nil, nil, fmt.Errorf("decode custom feed: %w", err)
	}

	var products []FeedProduct
	var warnings []FeedWarning
	for i, p := range feed.Products {
		if strings.TrimSpace(p.Name) == "" {
			warnings = append(warnings, FeedWarning{Record: i, Message: "missing name"})
			continue
		}

		product := FeedProduct{
			ExternalID:  externalID(p.ExternalID, p.PartNumber, p.Name),
			Name:        strings.TrimSpace(p.Name),
			Brand:       strings.TrimSpace(p.Brand),
			Category:    strings.TrimSpace(p.Category),
			PartNumber:  strings.TrimSpace(p.PartNumber),
			Description: strings.TrimSpace(p.Description),
			ProductURL:  p.URL,
			PriceCents:  p.PriceCents,
			Currency:    strings.ToUpper(strings.TrimSpace(p.Currency)),
			InStock:     p.InStock,
			Tags:        CleanTags(p.Tags),
		}
		product.RecordID = RecordID(vendorKey, product.ExternalID)
		products = append(products, product)
	}
	return products, warnings, nil
}

// externalID picks the first stable identifier available. Name is the last
// resort; it keeps the record id deterministic even for feeds that carry no
// native ids.
func externalID(id, secondary, name string) string {
	if id != "" && id != "0" {
		return id
	}
	if s := strings.TrimSpace(secondary); s != "" {
		return s
	}
	return strings.ToLower(strings.TrimSpace(name))
}

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

// stripHTML flattens vendor description HTML to plain text.
func stripHTML(s string) string {
	if s == "" {
		return ""
	}
	text := htmlTagRe.ReplaceAllString(s, " ")
	text = html.UnescapeString(text)
	return strings.Join(strings.Fields(text), " ")
}
