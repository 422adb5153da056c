package checkout

import (
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	minNameLen  = 2
	minCityLen  = 2
	minPhoneLen = 10
)

// 前後の空白を落としてNFCに揃える
func clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func NormalizePersonal(p PersonalData) PersonalData {
	return PersonalData{
		FirstName: clean(p.FirstName),
		LastName:  clean(p.LastName),
		Email:     strings.ToLower(clean(p.Email)),
		Phone:     clean(p.Phone),
	}
}

func ValidatePersonal(p PersonalData) error {
	ve := &ValidationError{}

	if utf8.RuneCountInString(p.FirstName) < minNameLen {
		ve.add("first_name", "must be at least 2 characters")
	}
	if utf8.RuneCountInString(p.LastName) < minNameLen {
		ve.add("last_name", "must be at least 2 characters")
	}
	if !isEmail(p.Email) {
		ve.add("email", "invalid email")
	}
	if countDigits(p.Phone) < minPhoneLen {
		ve.add("phone", "must contain at least 10 digits")
	}

	return ve.orNil()
}

func NormalizeDelivery(d DeliveryData) DeliveryData {
	return DeliveryData{
		Method:     DeliveryMethod(strings.ToLower(clean(string(d.Method)))),
		City:       clean(d.City),
		Office:     clean(d.Office),
		PostalCode: clean(d.PostalCode),
		Address:    clean(d.Address),
		Notes:      clean(d.Notes),
	}
}

func ValidateDelivery(d DeliveryData) error {
	ve := &ValidationError{}

	switch d.Method {
	case DeliveryNovaPoshta:
		if d.Office == "" {
			ve.add("office", "required for nova_poshta")
		}
	case DeliveryUkrposhta:
		if d.PostalCode == "" {
			ve.add("postal_code", "required for ukrposhta")
		}
	case DeliveryPickup:
	default:
		ve.add("method", "must be one of nova_poshta, ukrposhta, pickup")
	}

	if utf8.RuneCountInString(d.City) < minCityLen {
		ve.add("city", "must be at least 2 characters")
	}

	return ve.orNil()
}

func ValidatePayment(p PaymentData) error {
	switch p.Method {
	case PaymentCard, PaymentCash:
		return nil
	}
	ve := &ValidationError{}
	ve.add("method", "must be one of card, cash")
	return ve
}

func isEmail(s string) bool {
	if s == "" {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	// "Name <a@b>" 形式は不可
	return addr.Address == s && strings.Contains(s[strings.LastIndex(s, "@"):], ".")
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
