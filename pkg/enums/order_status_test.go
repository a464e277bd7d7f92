package enums

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		from OrderStatus
		to   OrderStatus
		ok   bool
	}{
		{OrderStatusNew, OrderStatusPendingPayment, true},
		{OrderStatusNew, OrderStatusPaid, false},
		{OrderStatusPendingPayment, OrderStatusPaymentRejected, true},
		{OrderStatusPaymentRejected, OrderStatusPaid, true},
		{OrderStatusPaid, OrderStatusNew, false},
		{OrderStatusPaid, OrderStatusShipped, true},
		{OrderStatusShipped, OrderStatusRefunded, true},
		{OrderStatusRefunded, OrderStatusShipped, false},
		{OrderStatusCancelled, OrderStatusNew, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.ok {
			t.Fatalf("%s -> %s: expected %v got %v", tt.from, tt.to, tt.ok, got)
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	for _, s := range []OrderStatus{OrderStatusRefunded, OrderStatusCancelled} {
		if !s.IsTerminal() {
			t.Fatalf("expected %s terminal", s)
		}
	}
	if OrderStatusPaid.IsTerminal() {
		t.Fatalf("paid is not terminal")
	}
	if !OrderStatusNew.IsOpen() || OrderStatusPendingPayment.IsOpen() {
		t.Fatalf("only new orders are open")
	}
}

func TestParseOrderStatus(t *testing.T) {
	if _, err := ParseOrderStatus("shipped"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseOrderStatus("lost"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}

func TestUserRoleCapabilities(t *testing.T) {
	if UserRoleCustomer.CanManageCatalog() {
		t.Fatalf("customers cannot manage the catalog")
	}
	if !UserRoleStaff.CanManageCatalog() || !UserRoleAdmin.CanManageCatalog() {
		t.Fatalf("staff and admins manage the catalog")
	}
	if UserRoleStaff.CanManageOrders() {
		t.Fatalf("staff cannot move orders")
	}
}

func TestCatalogNodeKindGrowsWith(t *testing.T) {
	if CatalogNodeSection.CanGrowWith() {
		t.Fatalf("sections carry no grows-with list")
	}
	if !CatalogNodeSection.IsGrowsWithTarget() {
		t.Fatalf("sections can be referenced")
	}
	if CatalogNodeIndex.IsGrowsWithTarget() {
		t.Fatalf("indexes cannot be referenced")
	}
}
