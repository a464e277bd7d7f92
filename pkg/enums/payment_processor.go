package enums

import "fmt"

// PaymentProcessor identifies the hosted processor that charged an order.
type PaymentProcessor string

const (
	PaymentProcessorSquare PaymentProcessor = "square"
	PaymentProcessorStripe PaymentProcessor = "stripe"
)

var validPaymentProcessors = []PaymentProcessor{
	PaymentProcessorSquare,
	PaymentProcessorStripe,
}

// String implements fmt.Stringer.
func (p PaymentProcessor) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentProcessor.
func (p PaymentProcessor) IsValid() bool {
	for _, candidate := range validPaymentProcessors {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentProcessor converts raw input into a PaymentProcessor.
func ParsePaymentProcessor(value string) (PaymentProcessor, error) {
	for _, candidate := range validPaymentProcessors {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment processor %q", value)
}
