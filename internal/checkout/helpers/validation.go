package helpers

import (
	"net/mail"
	"strings"

	pkgerrors "github.com/greenrow/seedshop-backend/pkg/errors"
	"github.com/greenrow/seedshop-backend/pkg/types"
)

// NormalizeEmail lowercases and validates the order contact address.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "email is invalid")
	}
	return email, nil
}

// ValidateShippingAddress checks the fields shipping and tax depend on and
// returns the address with country and state normalized.
func ValidateShippingAddress(addr *types.Address) (*types.Address, error) {
	if addr == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address is required")
	}
	out := *addr
	out.Country = normalizeCode(out.Country)
	out.State = normalizeCode(out.State)
	missing := []string{}
	if strings.TrimSpace(out.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(out.Line1) == "" {
		missing = append(missing, "line1")
	}
	if strings.TrimSpace(out.City) == "" {
		missing = append(missing, "city")
	}
	if strings.TrimSpace(out.PostalCode) == "" {
		missing = append(missing, "postal_code")
	}
	if len(out.Country) != 2 {
		missing = append(missing, "country")
	}
	if len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address is incomplete").
			WithDetails(map[string]any{"fields": missing})
	}
	return &out, nil
}

func normalizeCode(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}
