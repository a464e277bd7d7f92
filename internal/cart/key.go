package cart

import (
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/greenrow/seedshop-backend/pkg/errors"
)

const (
	KindCustomer = "customer"
	KindSession  = "session"
)

// Key identifies a cart: a signed-in customer's open order, or an anonymous
// session cart. A customer key wins when both are set.
type Key struct {
	CustomerID *uuid.UUID
	SessionID  string
}

func CustomerKey(id uuid.UUID) Key { return Key{CustomerID: &id} }

func SessionKey(id string) Key { return Key{SessionID: strings.TrimSpace(id)} }

func (k Key) Kind() string {
	if k.CustomerID != nil {
		return KindCustomer
	}
	return KindSession
}

// ID returns the customer id or session id as a string, for logs and metrics.
func (k Key) ID() string {
	if k.CustomerID != nil {
		return k.CustomerID.String()
	}
	return k.SessionID
}

func (k Key) Validate() error {
	if k.CustomerID != nil && *k.CustomerID != uuid.Nil {
		return nil
	}
	if k.CustomerID == nil && k.SessionID != "" {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "cart session or customer is required")
}
