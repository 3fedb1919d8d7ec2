package service

import "github.com/shopspring/decimal"

// decimalZero returns a zero decimal for seeding fresh market volumes.
func decimalZero() decimal.Decimal {
	return decimal.NewFromInt(0)
}
