package service

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"tourhub/pkg/model"
)

// Evaluation is the outcome of checking a code against an order subtotal.
type Evaluation struct {
	Code     string          `json:"code"`
	Valid    bool            `json:"valid"`
	Reason   string          `json:"reason,omitempty"`
	Type     model.PromoType `json:"type,omitempty"`
	Value    float64         `json:"value,omitempty"`
	Subtotal float64         `json:"subtotal"`
	Discount float64         `json:"discount"`
}

func invalid(code string, subtotal decimal.Decimal, reason string) *Evaluation {
	f, _ := subtotal.Float64()
	return &Evaluation{Code: code, Reason: reason, Subtotal: f}
}

// Evaluate computes the discount p grants on subtotal. The discount is
// rounded to cents and never exceeds the subtotal.
func Evaluate(p *model.PromoCode, subtotal decimal.Decimal, tenant *primitive.ObjectID, now time.Time) *Evaluation {
	switch {
	case !p.IsActive:
		return invalid(p.Code, subtotal, "Promo code is not active")
	case p.ValidFrom != nil && now.Before(*p.ValidFrom):
		return invalid(p.Code, subtotal, "Promo code is not valid yet")
	case p.ValidUntil != nil && now.After(*p.ValidUntil):
		return invalid(p.Code, subtotal, "Promo code has expired")
	case p.UsageLimit != nil && p.UsedCount >= *p.UsageLimit:
		return invalid(p.Code, subtotal, "Promo code usage limit reached")
	case !availableTo(p, tenant):
		return invalid(p.Code, subtotal, "Promo code is not valid for this store")
	}

	minOrder := decimal.NewFromFloat(p.MinOrderAmount)
	if subtotal.LessThan(minOrder) {
		return invalid(p.Code, subtotal, fmt.Sprintf("Minimum order amount is %s", minOrder.StringFixed(2)))
	}

	value := decimal.NewFromFloat(p.Value)
	var discount decimal.Decimal
	switch p.Type {
	case model.PromoTypePercentage:
		discount = subtotal.Mul(value).Div(decimal.NewFromInt(100))
	case model.PromoTypeFixed:
		discount = value
	default:
		return invalid(p.Code, subtotal, "Promo code type is not supported")
	}

	if p.MaxDiscount != nil {
		discount = decimal.Min(discount, decimal.NewFromFloat(*p.MaxDiscount))
	}
	discount = decimal.Min(discount, subtotal).Round(2)

	sub, _ := subtotal.Float64()
	d, _ := discount.Float64()
	return &Evaluation{
		Code:     p.Code,
		Valid:    true,
		Type:     p.Type,
		Value:    p.Value,
		Subtotal: sub,
		Discount: d,
	}
}

// availableTo treats a code without tenants as valid on every storefront.
func availableTo(p *model.PromoCode, tenant *primitive.ObjectID) bool {
	if len(p.Tenants) == 0 {
		return true
	}
	if tenant == nil {
		return false
	}
	for _, t := range p.Tenants {
		if t == *tenant {
			return true
		}
	}
	return false
}
