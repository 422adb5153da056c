// Package checkout は3ステップのチェックアウト（お客様情報→配送→支払い）を扱う。
package checkout

import (
	"errors"
	"sort"
	"strings"
)

var (
	// 今のステップでは受け付けない送信
	ErrWrongStep = errors.New("wrong checkout step")
	// 最初のステップからは戻れない
	ErrNoPreviousStep = errors.New("no previous checkout step")
	// お客様情報か配送情報が無い
	ErrIncompleteCheckout = errors.New("checkout data incomplete")
)

type PersonalData struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

func (p PersonalData) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

type DeliveryMethod string

const (
	// 支店受け取り（支店番号が必要）
	DeliveryNovaPoshta DeliveryMethod = "nova_poshta"
	// 郵便（郵便番号が必要）
	DeliveryUkrposhta DeliveryMethod = "ukrposhta"
	// 店頭受け取り
	DeliveryPickup DeliveryMethod = "pickup"
)

type DeliveryData struct {
	Method     DeliveryMethod `json:"method"`
	City       string         `json:"city"`
	Office     string         `json:"office,omitempty"`
	PostalCode string         `json:"postal_code,omitempty"`
	Address    string         `json:"address,omitempty"`
	Notes      string         `json:"notes,omitempty"`
}

type PaymentMethod string

const (
	PaymentCard PaymentMethod = "card"
	PaymentCash PaymentMethod = "cash"
)

type PaymentData struct {
	Method PaymentMethod `json:"method"`
}

// 各ステップで集めたデータ
type Aggregate struct {
	Personal *PersonalData `json:"personal,omitempty"`
	Delivery *DeliveryData `json:"delivery,omitempty"`
}

// 注文送信の前提条件
func (a Aggregate) Complete() error {
	if a.Personal == nil || a.Delivery == nil {
		return ErrIncompleteCheckout
	}
	return nil
}

// 項目ごとのエラー
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	e.Fields[field] = msg
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// errors.As用
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}
