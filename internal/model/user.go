package model

import (
	"net/url"
	"strings"
)

// Supported display currencies.
const (
	CurrencyUYU = "UYU"
	CurrencyUSD = "USD"
)

// User is the storefront identity held in a session. It is never persisted.
type User struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Avatar   string  `json:"avatar"`
	Currency string  `json:"currency"`
	Orders   []Order `json:"orders"`
}

// AvatarURL returns the generated initials avatar for a display name.
func AvatarURL(name string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(strings.TrimSpace(name)) + "&background=random"
}

// ValidCurrency reports whether c is a supported display currency.
func ValidCurrency(c string) bool {
	return c == CurrencyUYU || c == CurrencyUSD
}
