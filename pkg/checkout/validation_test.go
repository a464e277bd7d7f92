package checkout

import (
	"testing"

	"github.com/google/uuid"

	pkgerrors "github.com/greenrow/seedshop-backend/pkg/errors"
)

func TestValidatePurchasable_NoViolations(t *testing.T) {
	lines := []LineCheck{
		{PacketID: uuid.New(), SKU: "TOM-100", InStock: true},
		{PacketID: uuid.New(), SKU: "BEA-50", InStock: true},
	}
	if err := ValidatePurchasable(lines); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidatePurchasable_ReportsBlockedLines(t *testing.T) {
	lines := []LineCheck{
		{PacketID: uuid.New(), SKU: "TOM-100", InStock: true},
		{PacketID: uuid.New(), SKU: "POT-1", InStock: true, Noship: true},
		{PacketID: uuid.New(), SKU: "GAR-5", InStock: false, Noship: true},
	}
	err := ValidatePurchasable(lines)
	if err == nil {
		t.Fatal("expected error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("unexpected details type %T", typed.Details())
	}
	skus, ok := details["skus"].([]string)
	if !ok || len(skus) != 2 || skus[0] != "POT-1" || skus[1] != "GAR-5" {
		t.Fatalf("unexpected skus %v", details["skus"])
	}
	blocked := details["blocked"].([]BlockedLineDetail)
	if blocked[0].Reason != ReasonNoship || blocked[1].Reason != ReasonOutOfStock {
		t.Fatalf("unexpected reasons %+v", blocked)
	}
}
