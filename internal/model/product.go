package model

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// ReviewDateLayout is the dd/mm/yyyy layout reviews are dated with.
const ReviewDateLayout = "02/01/2006"

// Product represents a vape product in the catalog.
type Product struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Price       Money    `json:"price"`
	Stock       int      `json:"stock"`
	ImageURL    string   `json:"imageUrl"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
	Reviews     []Review `json:"reviews"`
}

// Review is a customer review attached to a product.
type Review struct {
	ID      string `json:"id" yaml:"id"`
	Author  string `json:"author" yaml:"author"`
	Avatar  string `json:"avatar" yaml:"avatar"`
	Rating  int    `json:"rating" yaml:"rating"`
	Comment string `json:"comment" yaml:"comment"`
	Date    string `json:"date" yaml:"date"`
}

// RatingSummary is the derived review average of a product.
type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// Rating averages the product's reviews, rounded to one decimal.
// A product without reviews rates zero.
func (p Product) Rating() RatingSummary {
	if len(p.Reviews) == 0 {
		return RatingSummary{}
	}
	sum := 0
	for _, r := range p.Reviews {
		sum += r.Rating
	}
	avg := float64(sum) / float64(len(p.Reviews))
	return RatingSummary{
		Average: math.Round(avg*10) / 10,
		Count:   len(p.Reviews),
	}
}

// Validate checks the catalog invariants of a product.
func (p Product) Validate() error {
	switch {
	case p.ID < 0:
		return InvalidProduct("product id must be positive")
	case p.Name == "":
		return InvalidProduct("product name is required")
	case p.Price < 0:
		return ErrInvalidPrice
	case p.Stock < 0:
		return InvalidProduct("stock cannot be negative")
	}
	for _, r := range p.Reviews {
		if r.Rating < 1 || r.Rating > 5 {
			return ErrInvalidRating
		}
	}
	return nil
}

// Clone returns a deep copy so snapshots never alias catalog data.
func (p Product) Clone() Product {
	c := p
	if p.Features != nil {
		c.Features = append([]string(nil), p.Features...)
	}
	if p.Reviews != nil {
		c.Reviews = append([]Review(nil), p.Reviews...)
	}
	return c
}

type productJSON struct {
	ID           int           `json:"id"`
	Name         string        `json:"name"`
	Category     string        `json:"category"`
	Price        Money         `json:"price"`
	PriceDisplay string        `json:"priceDisplay"`
	Stock        int           `json:"stock"`
	ImageURL     string        `json:"imageUrl"`
	Description  string        `json:"description"`
	Features     []string      `json:"features"`
	Reviews      []Review      `json:"reviews"`
	Rating       RatingSummary `json:"rating"`
}

// MarshalJSON adds the display price and rating summary.
func (p Product) MarshalJSON() ([]byte, error) {
	features := p.Features
	if features == nil {
		features = []string{}
	}
	reviews := p.Reviews
	if reviews == nil {
		reviews = []Review{}
	}
	return json.Marshal(productJSON{
		ID:           p.ID,
		Name:         p.Name,
		Category:     p.Category,
		Price:        p.Price,
		PriceDisplay: p.Price.Display(),
		Stock:        p.Stock,
		ImageURL:     p.ImageURL,
		Description:  p.Description,
		Features:     features,
		Reviews:      reviews,
		Rating:       p.Rating(),
	})
}

// UnmarshalJSON accepts the price either as a number or as a display string.
func (p *Product) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID          int             `json:"id"`
		Name        string          `json:"name"`
		Category    string          `json:"category"`
		Price       json.RawMessage `json:"price"`
		Stock       int             `json:"stock"`
		ImageURL    string          `json:"imageUrl"`
		Description string          `json:"description"`
		Features    []string        `json:"features"`
		Reviews     []Review        `json:"reviews"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	price, err := decodePrice(raw.Price)
	if err != nil {
		return err
	}
	*p = Product{
		ID:          raw.ID,
		Name:        raw.Name,
		Category:    raw.Category,
		Price:       price,
		Stock:       raw.Stock,
		ImageURL:    raw.ImageURL,
		Description: raw.Description,
		Features:    raw.Features,
		Reviews:     raw.Reviews,
	}
	return nil
}

func decodePrice(raw json.RawMessage) (Money, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return ParsePrice(s)
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, ErrInvalidPrice
	}
	if n < 0 {
		return 0, ErrInvalidPrice
	}
	return Money(n), nil
}

// NewReview builds a review stamped with the given time.
func NewReview(author, avatar string, rating int, comment string, now time.Time) Review {
	return Review{
		ID:      strconv.FormatInt(now.UnixMilli(), 10),
		Author:  author,
		Avatar:  avatar,
		Rating:  rating,
		Comment: comment,
		Date:    now.Format(ReviewDateLayout),
	}
}
