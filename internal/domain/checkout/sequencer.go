package checkout

type Step string

const (
	StepPersonalInfo Step = "personal_info"
	StepDelivery     Step = "delivery"
	StepPayment      Step = "payment"
)

// セッションごとのチェックアウト状態
type Session struct {
	Step      Step      `json:"step"`
	Aggregate Aggregate `json:"aggregate"`
}

func NewSession() Session {
	return Session{Step: StepPersonalInfo}
}

// お客様情報 → 配送
func (s *Session) SubmitPersonal(p PersonalData) error {
	if s.Step != StepPersonalInfo {
		return ErrWrongStep
	}
	p = NormalizePersonal(p)
	if err := ValidatePersonal(p); err != nil {
		return err
	}
	s.Aggregate.Personal = &p
	s.Step = StepDelivery
	return nil
}

// 配送 → 支払い
func (s *Session) SubmitDelivery(d DeliveryData) error {
	if s.Step != StepDelivery {
		return ErrWrongStep
	}
	d = NormalizeDelivery(d)
	if err := ValidateDelivery(d); err != nil {
		return err
	}
	s.Aggregate.Delivery = &d
	s.Step = StepPayment
	return nil
}

// 1つ戻る。入力済みのデータは残す。
func (s *Session) Back() error {
	switch s.Step {
	case StepPayment:
		s.Step = StepDelivery
	case StepDelivery:
		s.Step = StepPersonalInfo
	default:
		return ErrNoPreviousStep
	}
	return nil
}

func (s *Session) Reset() {
	*s = NewSession()
}
