package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/greenrow/seedshop-backend/api/middleware"
	"github.com/greenrow/seedshop-backend/internal/cart"
	"github.com/greenrow/seedshop-backend/internal/checkout"
	"github.com/greenrow/seedshop-backend/internal/orders"
	"github.com/greenrow/seedshop-backend/pkg/enums"
	pkgerrors "github.com/greenrow/seedshop-backend/pkg/errors"
	"github.com/greenrow/seedshop-backend/pkg/pagination"
)

type stubCheckoutService struct {
	checkout.Service
	detail *checkout.OrderDetail
	list   *orders.OrderList
	err    error

	gotKey        cart.Key
	gotBegin      checkout.BeginInput
	gotPay        checkout.PayInput
	gotViewer     orders.Viewer
	gotTransition checkout.TransitionInput
	gotParams     pagination.Params
}

func (s *stubCheckoutService) Begin(ctx context.Context, key cart.Key, input checkout.BeginInput) (*checkout.OrderDetail, error) {
	s.gotKey, s.gotBegin = key, input
	return s.detail, s.err
}

func (s *stubCheckoutService) Pay(ctx context.Context, viewer orders.Viewer, orderID uuid.UUID, input checkout.PayInput) (*checkout.OrderDetail, error) {
	s.gotViewer, s.gotPay = viewer, input
	return s.detail, s.err
}

func (s *stubCheckoutService) GetOrder(ctx context.Context, viewer orders.Viewer, orderID uuid.UUID) (*checkout.OrderDetail, error) {
	s.gotViewer = viewer
	return s.detail, s.err
}

func (s *stubCheckoutService) ListOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*orders.OrderList, error) {
	s.gotParams = params
	return s.list, s.err
}

func (s *stubCheckoutService) Transition(ctx context.Context, orderID uuid.UUID, input checkout.TransitionInput) (*checkout.OrderDetail, error) {
	s.gotTransition = input
	return s.detail, s.err
}

func newOrderDetail(status enums.OrderStatus) *checkout.OrderDetail {
	return &checkout.OrderDetail{Summary: cart.Summary{OrderID: uuid.New(), Status: status, Lines: []cart.LineSummary{}}}
}

const checkoutBody = `{
	"email": "grower@example.com",
	"shipping_address": {"name": "Pat", "line1": "1 Main St", "city": "Portland", "state": "OR", "postal_code": "97201", "country": "US"}
}`

func TestCheckoutCreatesPendingOrder(t *testing.T) {
	svc := &stubCheckoutService{detail: newOrderDetail(enums.OrderStatusPendingPayment)}
	handler := Checkout(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(checkoutBody))
	req = req.WithContext(middleware.WithSessionID(req.Context(), "sess-9"))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.gotBegin.Email != "grower@example.com" {
		t.Fatalf("unexpected email %q", svc.gotBegin.Email)
	}
	if svc.gotBegin.ShippingAddress == nil || svc.gotBegin.ShippingAddress.Country != "US" {
		t.Fatalf("shipping address not forwarded: %+v", svc.gotBegin.ShippingAddress)
	}
	if svc.gotKey.SessionID != "sess-9" {
		t.Fatalf("unexpected cart key %+v", svc.gotKey)
	}
}

func TestCheckoutRejectsBadCountry(t *testing.T) {
	handler := Checkout(&stubCheckoutService{}, nil)
	body := strings.Replace(checkoutBody, `"US"`, `"USA"`, 1)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	req = req.WithContext(middleware.WithSessionID(req.Context(), "sess-9"))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestPayOrderForwardsViewer(t *testing.T) {
	orderID := uuid.New()
	svc := &stubCheckoutService{detail: newOrderDetail(enums.OrderStatusPaid)}
	handler := PayOrder(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/pay", strings.NewReader(`{"processor":"square","source_token":"cnon:abc"}`))
	req = withURLParams(req, map[string]string{"orderId": orderID.String()})
	req = req.WithContext(middleware.WithSessionID(req.Context(), "sess-9"))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.gotViewer.SessionID != "sess-9" || svc.gotViewer.CanManageOrders {
		t.Fatalf("unexpected viewer %+v", svc.gotViewer)
	}
	if svc.gotPay.Processor != "square" || svc.gotPay.SourceToken != "cnon:abc" {
		t.Fatalf("unexpected pay input %+v", svc.gotPay)
	}
}

func TestPayOrderDeclined(t *testing.T) {
	orderID := uuid.New()
	svc := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodePayment, "card declined")}
	handler := PayOrder(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/pay", strings.NewReader(`{"processor":"stripe","source_token":"tok_x"}`))
	req = withURLParams(req, map[string]string{"orderId": orderID.String()})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402 got %d", resp.Code)
	}
}

func TestOrderDetailAdminViewer(t *testing.T) {
	orderID := uuid.New()
	svc := &stubCheckoutService{detail: newOrderDetail(enums.OrderStatusPaid)}
	handler := OrderDetail(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orderID.String(), nil)
	req = withURLParams(req, map[string]string{"orderId": orderID.String()})
	ctx := middleware.WithUserID(req.Context(), uuid.NewString())
	ctx = middleware.WithRole(ctx, string(enums.UserRoleAdmin))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req.WithContext(ctx))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !svc.gotViewer.CanManageOrders || svc.gotViewer.CustomerID == nil {
		t.Fatalf("unexpected viewer %+v", svc.gotViewer)
	}
}

func TestOrderListRequiresCustomer(t *testing.T) {
	handler := OrderList(&stubCheckoutService{}, nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestOrderListPagination(t *testing.T) {
	svc := &stubCheckoutService{list: &orders.OrderList{Orders: []orders.OrderListItem{}}}
	handler := OrderList(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?limit=5&cursor=abc", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.gotParams.Limit != 5 || svc.gotParams.Cursor != "abc" {
		t.Fatalf("unexpected params %+v", svc.gotParams)
	}
}

func TestAdminTransitionOrder(t *testing.T) {
	orderID := uuid.New()
	svc := &stubCheckoutService{detail: newOrderDetail(enums.OrderStatusShipped)}
	handler := AdminTransitionOrder(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/orders/"+orderID.String()+"/transition", strings.NewReader(`{"to":"shipped","reason":"label printed"}`))
	req = withURLParams(req, map[string]string{"orderId": orderID.String()})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.gotTransition.To != "shipped" || svc.gotTransition.Reason != "label printed" {
		t.Fatalf("unexpected transition %+v", svc.gotTransition)
	}
}

func TestAdminTransitionOrderConflict(t *testing.T) {
	orderID := uuid.New()
	svc := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "cannot move paid order to new")}
	handler := AdminTransitionOrder(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"to":"new"}`))
	req = withURLParams(req, map[string]string{"orderId": orderID.String()})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}
