package domain

const (
	// FreeShippingThreshold is the subtotal at or above which shipping is free.
	FreeShippingThreshold int64 = 50000
	// FlatShippingFee applies to non-empty selections below the threshold.
	FlatShippingFee int64 = 3000
)

// ShippingFeeFor returns the shipping fee for a subtotal.
func ShippingFeeFor(subtotal int64) int64 {
	if subtotal <= 0 || subtotal >= FreeShippingThreshold {
		return 0
	}
	return FlatShippingFee
}
