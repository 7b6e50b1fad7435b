package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Card is a registered Tullave card. Serial is the digits-only unique
// identifier; at most one card is active at any time. Balance is not
// persisted at registration, it is refreshed on demand.
type Card struct {
	Serial         string           `json:"serial"`
	FullName       string           `json:"full_name"`
	Profile        string           `json:"profile"`
	IsActive       bool             `json:"is_active"`
	RegisteredDate time.Time        `json:"registered_date"`
	Balance        *decimal.Decimal `json:"balance,omitempty"`
}
