package payment

// Provider identifies one external payment network
type Provider string

const (
	// ProviderQPay is the QPay QR payment network
	ProviderQPay Provider = "qpay"
	// ProviderMonPay is the MonPay wallet
	ProviderMonPay Provider = "monpay"
	// ProviderGolomt is Golomt bank's SocialPay
	ProviderGolomt Provider = "golomt"
	// ProviderHiPay is the HiPay wallet
	ProviderHiPay Provider = "hipay"
	// ProviderStorePay is the StorePay installment service
	ProviderStorePay Provider = "storepay"
	// ProviderLendPay is the LendPay installment service
	ProviderLendPay Provider = "lendpay"
	// ProviderKhanBank is KhanBank's superapp payment
	ProviderKhanBank Provider = "khanbank"
)

// String returns the string representation of Provider
func (p Provider) String() string {
	return string(p)
}

// IsValid returns true if the provider is a known payment network
func (p Provider) IsValid() bool {
	switch p {
	case ProviderQPay, ProviderMonPay, ProviderGolomt, ProviderHiPay,
		ProviderStorePay, ProviderLendPay, ProviderKhanBank:
		return true
	default:
		return false
	}
}

// Action identifies one logical request cycle against a provider
type Action string

const (
	// ActionAuth is the authentication sub-flow
	ActionAuth Action = "auth"
	// ActionCreateInvoice creates a provider-side invoice
	ActionCreateInvoice Action = "create_invoice"
	// ActionCheckInvoice queries settlement status of an invoice
	ActionCheckInvoice Action = "check_invoice"
)

// String returns the string representation of Action
func (a Action) String() string {
	return string(a)
}

// IsValid returns true if the action is known
func (a Action) IsValid() bool {
	switch a {
	case ActionAuth, ActionCreateInvoice, ActionCheckInvoice:
		return true
	default:
		return false
	}
}

// Idempotent reports whether the action may be retried safely against
// the provider without creating duplicate side effects.
func (a Action) Idempotent() bool {
	return a == ActionCheckInvoice
}
