package domain

import "github.com/shopspring/decimal"

// Stats is the read-only aggregate exposed to organizers. Revenue counts
// completed payments only.
type Stats struct {
	TotalEvents        int
	TotalRegistrations int
	Revenue            decimal.Decimal
}
