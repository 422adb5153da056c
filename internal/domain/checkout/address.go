package checkout

import "strings"

// 注文に保存する配送先の文字列
func ShippingAddress(d DeliveryData) string {
	switch d.Method {
	case DeliveryNovaPoshta:
		return "Nova Poshta, " + d.City + ", Branch No." + d.Office
	case DeliveryUkrposhta:
		return "Ukrposhta, " + d.City + ", " + d.PostalCode
	case DeliveryPickup:
		return "Self-pickup"
	}

	parts := make([]string, 0, 2)
	for _, p := range []string{d.City, d.Address} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
