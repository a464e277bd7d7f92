package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/greenrow/seedshop-backend/internal/analytics/types"
)

type fakeSalesService struct {
	lastReq  types.SalesQueryRequest
	response *types.SalesQueryResponse
	err      error
}

func (f *fakeSalesService) Query(ctx context.Context, req types.SalesQueryRequest) (*types.SalesQueryResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	if f.response == nil {
		f.response = &types.SalesQueryResponse{}
	}
	return f.response, nil
}

func TestServiceSalesReturnsResponse(t *testing.T) {
	fake := &fakeSalesService{}
	srv := &service{sales: fake}
	now := time.Now().UTC()
	req := types.SalesQueryRequest{Start: now, End: now.Add(2 * time.Hour)}

	resp, err := srv.Sales(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp != fake.response {
		t.Fatalf("expected response to be forwarded")
	}
	if !fake.lastReq.Start.Equal(req.Start) || !fake.lastReq.End.Equal(req.End) {
		t.Fatalf("unexpected request window: %v - %v", fake.lastReq.Start, fake.lastReq.End)
	}
}

func TestServiceSalesPropagatesError(t *testing.T) {
	want := errors.New("query failed")
	srv := &service{sales: &fakeSalesService{err: want}}
	now := time.Now().UTC()

	resp, err := srv.Sales(context.Background(), types.SalesQueryRequest{Start: now, End: now.Add(time.Minute)})
	if !errors.Is(err, want) {
		t.Fatalf("expected error %v, got %v", want, err)
	}
	if resp != nil {
		t.Fatalf("expected nil response on error")
	}
}

func TestNewServiceRequiresClient(t *testing.T) {
	if _, err := NewService(nil, time.Hour); err == nil {
		t.Fatal("expected error without client")
	}
}
