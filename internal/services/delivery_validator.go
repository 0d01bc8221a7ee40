package services

import (
	"strings"

	"github.com/danseongsa/storefront/internal/domain"
	"github.com/danseongsa/storefront/internal/platform/textutil"
)

const (
	maxMemoLength     = 200
	maxDeliveryLength = 200
)

// ValidateDeliveryInfo checks required fields in a fixed order and reports the first missing one.
func ValidateDeliveryInfo(info domain.DeliveryInfo) error {
	required := []struct {
		field string
		value string
	}{
		{"recipientName", info.RecipientName},
		{"recipientPhone", info.RecipientPhone},
		{"postalCode", info.PostalCode},
		{"address", info.Address},
		{"detailAddress", info.DetailAddress},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return missingField(r.field)
		}
	}
	return nil
}

// NormalizeDeliveryInfo trims every field and strips markup from free text.
func NormalizeDeliveryInfo(info domain.DeliveryInfo) domain.DeliveryInfo {
	return domain.DeliveryInfo{
		RecipientName:  textutil.PlainText(info.RecipientName, maxDeliveryLength),
		RecipientPhone: strings.TrimSpace(info.RecipientPhone),
		PostalCode:     strings.TrimSpace(info.PostalCode),
		Address:        textutil.PlainText(info.Address, maxDeliveryLength),
		DetailAddress:  textutil.PlainText(info.DetailAddress, maxDeliveryLength),
		Memo:           textutil.PlainText(info.Memo, maxMemoLength),
	}
}
