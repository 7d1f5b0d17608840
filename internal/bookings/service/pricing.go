package service

import (
	"crypto/rand"
	"fmt"

	"github.com/shopspring/decimal"

	"tourhub/pkg/model"
	"tourhub/pkg/validation"
)

const (
	ReferencePrefix = "TB-"
	referenceLength = 8
	// 32 symbols so a random byte maps without modulo bias.
	referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// NewReference returns a human friendly booking reference like TB-7KQ2M9XD.
func NewReference() (string, error) {
	b := make([]byte, referenceLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate booking reference: %w", err)
	}
	for i := range b {
		b[i] = referenceAlphabet[int(b[i])%len(referenceAlphabet)]
	}
	return ReferencePrefix + string(b), nil
}

// Quote is the server side price of a booking. Total equals
// Subtotal+Fees-Discount exactly in decimal. The float64 amounts stored on the
// booking are each the nearest double to a 2dp value, so the identity holds
// after rounding to cents, not under float addition.
type Quote struct {
	Items    []model.BookingItem
	Subtotal decimal.Decimal
	Fees     decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// PriceItems prices the requested items from the attraction's own options.
// Client supplied prices are never trusted.
func PriceItems(a *model.Attraction, items []ItemRequest, feeRate decimal.Decimal) (*Quote, error) {
	q := &Quote{Items: make([]model.BookingItem, 0, len(items))}
	seen := make(map[string]bool, len(items))

	for i, it := range items {
		field := fmt.Sprintf("items[%d]", i)
		if seen[it.OptionID] {
			return nil, validation.Single(field+".optionId", "option is listed more than once")
		}
		seen[it.OptionID] = true

		opt, ok := a.Option(it.OptionID)
		if !ok {
			return nil, validation.Single(field+".optionId", fmt.Sprintf("unknown option %q", it.OptionID))
		}
		if opt.MinQuantity > 0 && it.Quantity < opt.MinQuantity {
			return nil, validation.Single(field+".quantity", fmt.Sprintf("must be at least %d", opt.MinQuantity))
		}
		if opt.MaxQuantity > 0 && it.Quantity > opt.MaxQuantity {
			return nil, validation.Single(field+".quantity", fmt.Sprintf("must be at most %d", opt.MaxQuantity))
		}

		unit := decimal.NewFromFloat(opt.Price).Round(2)
		line := unit.Mul(decimal.NewFromInt(int64(it.Quantity)))
		q.Subtotal = q.Subtotal.Add(line)
		q.Items = append(q.Items, model.BookingItem{
			OptionID:   opt.ID,
			Name:       opt.Name,
			Quantity:   it.Quantity,
			UnitPrice:  unit.InexactFloat64(),
			TotalPrice: line.InexactFloat64(),
		})
	}

	q.Fees = q.Subtotal.Mul(feeRate).Round(2)
	q.Total = q.Subtotal.Add(q.Fees).Sub(q.Discount)
	return q, nil
}
