package enums

// PaymentMethod names how a ledger entry is settled.
type PaymentMethod string

const (
	PaymentMethodCard PaymentMethod = "card"
)

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	return p == PaymentMethodCard
}
