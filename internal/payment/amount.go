package payment

import "github.com/shopspring/decimal"

const (
	PurchaseEvent      = "event"
	PurchaseMembership = "membership"

	CurrencyINR = "INR"
)

var (
	eventFee      = decimal.RequireFromString("1.00")
	membershipFee = decimal.RequireFromString("590.00")
	hostedFee     = decimal.RequireFromString("10")
)

// AmountFor returns the fee in rupees for a purchase type. Anything that is
// not an event ticket is charged as a membership.
func AmountFor(purchaseType string) decimal.Decimal {
	if purchaseType == PurchaseEvent {
		return eventFee
	}
	return membershipFee
}

// HostedCheckoutAmount is the fixed fee charged through the hosted checkout.
func HostedCheckoutAmount() decimal.Decimal {
	return hostedFee
}

// MinorUnits converts rupees to paise.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
