package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/greenrow/seedshop-backend/internal/orders"
	"github.com/greenrow/seedshop-backend/pkg/config"
	"github.com/greenrow/seedshop-backend/pkg/db/models"
	"github.com/greenrow/seedshop-backend/pkg/enums"
	pkgerrors "github.com/greenrow/seedshop-backend/pkg/errors"
	"github.com/greenrow/seedshop-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type catalogLookup interface {
	FindPacket(ctx context.Context, id uuid.UUID) (*models.Packet, error)
	FindPacketsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Packet, error)
	FindCultivarsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Cultivar, error)
}

type mutationCounter interface {
	IncCartMutation(op, kind string)
}

// Service exposes cart reads and mutations for both cart kinds.
type Service interface {
	Get(ctx context.Context, key Key) (*Summary, error)
	AddLine(ctx context.Context, key Key, packetID uuid.UUID, qty int) (*Summary, error)
	RemoveLine(ctx context.Context, key Key, packetID uuid.UUID) (*Summary, error)
	SetQuantity(ctx context.Context, key Key, packetID uuid.UUID, qty int) (*Summary, error)
	Merge(ctx context.Context, sessionID string, customerID uuid.UUID) (*Summary, error)
	Load(ctx context.Context, key Key) (*models.Order, map[uuid.UUID]models.Cultivar, error)
	Discard(ctx context.Context, key Key) error
}

type ServiceParams struct {
	Orders   orders.Repository
	Catalog  catalogLookup
	Sessions SessionStore
	Tx       txRunner
	Config   config.CartConfig
	Logger   *logger.Logger
	Metrics  mutationCounter
}

type service struct {
	orders   orders.Repository
	catalog  catalogLookup
	sessions SessionStore
	tx       txRunner
	cfg      config.CartConfig
	logg     *logger.Logger
	metrics  mutationCounter
}

func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog lookup required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		orders:   params.Orders,
		catalog:  params.Catalog,
		sessions: params.Sessions,
		tx:       params.Tx,
		cfg:      params.Config,
		logg:     params.Logger,
		metrics:  params.Metrics,
	}, nil
}

func (s *service) Get(ctx context.Context, key Key) (*Summary, error) {
	order, cultivars, err := s.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	summary := Summarize(order, cultivars)
	return &summary, nil
}

func (s *service) AddLine(ctx context.Context, key Key, packetID uuid.UUID, qty int) (*Summary, error) {
	packet, err := s.availablePacket(ctx, packetID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, key, "add_line", func(order *models.Order) error {
		_, err := AddLine(order, *packet, qty)
		return err
	})
}

func (s *service) RemoveLine(ctx context.Context, key Key, packetID uuid.UUID) (*Summary, error) {
	return s.mutate(ctx, key, "remove_line", func(order *models.Order) error {
		return RemoveLine(order, packetID)
	})
}

func (s *service) SetQuantity(ctx context.Context, key Key, packetID uuid.UUID, qty int) (*Summary, error) {
	return s.mutate(ctx, key, "set_quantity", func(order *models.Order) error {
		return SetQuantity(order, packetID, qty)
	})
}

// Merge folds a session cart into the customer's cart after sign-in and drops
// the session cart. Merged quantities are capped at the configured maximum.
func (s *service) Merge(ctx context.Context, sessionID string, customerID uuid.UUID) (*Summary, error) {
	sessionKey := SessionKey(sessionID)
	customerKey := CustomerKey(customerID)
	if err := sessionKey.Validate(); err != nil {
		return nil, err
	}
	session, _, err := s.Load(ctx, sessionKey)
	if err != nil {
		return nil, err
	}
	if len(session.Lines) == 0 {
		return s.Get(ctx, customerKey)
	}

	packetIDs := make([]uuid.UUID, 0, len(session.Lines))
	for _, l := range session.Lines {
		packetIDs = append(packetIDs, l.PacketID)
	}
	packets, err := s.catalog.FindPacketsByIDs(ctx, packetIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load packets")
	}

	summary, err := s.mutate(ctx, customerKey, "merge", func(order *models.Order) error {
		for _, l := range session.Lines {
			packet, ok := packets[l.PacketID]
			if !ok {
				continue
			}
			if _, err := AddLine(order, packet, l.Quantity); err != nil {
				return err
			}
		}
		if s.cfg.MaxQuantity > 0 {
			for i := range order.Lines {
				if order.Lines[i].Quantity > s.cfg.MaxQuantity {
					order.Lines[i].Quantity = s.cfg.MaxQuantity
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Delete(ctx, sessionKey.SessionID); err != nil {
		s.logg.Warn(s.logg.WithCartKey(ctx, KindSession, sessionKey.SessionID), "failed to drop merged session cart")
	}
	return summary, nil
}

// Load returns the cart as an order together with the cultivars its lines
// reference. A customer without an open order gets an unsaved empty one.
func (s *service) Load(ctx context.Context, key Key) (*models.Order, map[uuid.UUID]models.Cultivar, error) {
	if err := key.Validate(); err != nil {
		return nil, nil, err
	}
	var (
		order *models.Order
		err   error
	)
	if key.Kind() == KindCustomer {
		order, err = s.loadCustomer(ctx, *key.CustomerID)
	} else {
		order, err = s.loadSession(ctx, key.SessionID)
	}
	if err != nil {
		return nil, nil, err
	}
	cultivars, err := s.catalog.FindCultivarsByIDs(ctx, orders.CultivarIDs(order))
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cultivars")
	}
	return order, cultivars, nil
}

// Discard drops a session cart once it has become an order. Customer carts
// turn into the order itself, so there is nothing to remove.
func (s *service) Discard(ctx context.Context, key Key) error {
	if key.Kind() != KindSession || key.SessionID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, key.SessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete session cart")
	}
	return nil
}

func (s *service) loadCustomer(ctx context.Context, customerID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.FindOpenByCustomer(ctx, customerID)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer cart")
	}
	id := customerID
	return &models.Order{CustomerID: &id, Status: enums.OrderStatusNew}, nil
}

func (s *service) loadSession(ctx context.Context, sessionID string) (*models.Order, error) {
	lines, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session cart")
	}
	sid := sessionID
	order := &models.Order{SessionID: &sid, Status: enums.OrderStatusNew}
	if len(lines) == 0 {
		return order, nil
	}

	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.PacketID)
	}
	packets, err := s.catalog.FindPacketsByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load packets")
	}

	kept := make([]SessionLine, 0, len(lines))
	for _, l := range lines {
		packet, ok := packets[l.PacketID]
		if !ok || l.Quantity < 1 {
			continue
		}
		if _, err := AddLine(order, packet, l.Quantity); err != nil {
			return nil, err
		}
		kept = append(kept, l)
	}
	if len(kept) != len(lines) {
		logCtx := s.logg.WithCartKey(ctx, KindSession, sessionID)
		s.logg.Info(s.logg.WithField(logCtx, "pruned", len(lines)-len(kept)), "pruned stale session cart lines")
		if err := s.sessions.Save(ctx, sessionID, kept); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save session cart")
		}
	}
	return order, nil
}

func (s *service) availablePacket(ctx context.Context, packetID uuid.UUID) (*models.Packet, error) {
	packet, err := s.catalog.FindPacket(ctx, packetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "packet not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load packet")
	}
	cultivars, err := s.catalog.FindCultivarsByIDs(ctx, []uuid.UUID{packet.CultivarID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cultivar")
	}
	if cv, ok := cultivars[packet.CultivarID]; !ok || !cv.Active {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "packet not found")
	}
	return packet, nil
}

// mutate applies fn to the cart and persists it. A customer cart is read and
// written in one transaction with its row locked, so concurrent edits queue up
// and a cart placed in the meantime is never rewritten.
func (s *service) mutate(ctx context.Context, key Key, op string, fn func(order *models.Order) error) (*Summary, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	var (
		order *models.Order
		err   error
	)
	if key.Kind() == KindCustomer {
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.orders.WithTx(tx)
			locked, err := lockCustomer(ctx, repo, *key.CustomerID)
			if err != nil {
				return err
			}
			if err := s.apply(locked, fn); err != nil {
				return err
			}
			if err := repo.Save(ctx, locked); err != nil {
				if errors.Is(err, orders.ErrStatusChanged) {
					return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "cart was checked out").
						WithDetails(map[string]any{"order_id": locked.ID.String()})
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
			}
			order = locked
			return nil
		})
		if err != nil && pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
		}
	} else {
		order, err = s.loadSession(ctx, key.SessionID)
		if err == nil {
			err = s.apply(order, fn)
		}
		if err == nil {
			if saveErr := s.sessions.Save(ctx, key.SessionID, toSessionLines(order)); saveErr != nil {
				err = pkgerrors.Wrap(pkgerrors.CodeDependency, saveErr, "save cart")
			}
		}
	}
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncCartMutation(op, key.Kind())
	}

	cultivars, err := s.catalog.FindCultivarsByIDs(ctx, orders.CultivarIDs(order))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cultivars")
	}
	summary := Summarize(order, cultivars)
	return &summary, nil
}

func (s *service) apply(order *models.Order, fn func(order *models.Order) error) error {
	if err := fn(order); err != nil {
		return err
	}
	return s.checkLimits(order)
}

func lockCustomer(ctx context.Context, repo orders.Repository, customerID uuid.UUID) (*models.Order, error) {
	order, err := repo.LockOpenByCustomer(ctx, customerID)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer cart")
	}
	id := customerID
	return &models.Order{CustomerID: &id, Status: enums.OrderStatusNew}, nil
}

func (s *service) checkLimits(order *models.Order) error {
	if s.cfg.MaxLines > 0 && len(order.Lines) > s.cfg.MaxLines {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart has too many lines").
			WithDetails(map[string]any{"max_lines": s.cfg.MaxLines})
	}
	if s.cfg.MaxQuantity <= 0 {
		return nil
	}
	for _, l := range order.Lines {
		if l.Quantity > s.cfg.MaxQuantity {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds the per-line maximum").
				WithDetails(map[string]any{"sku": l.SKU, "max_quantity": s.cfg.MaxQuantity})
		}
	}
	return nil
}

func toSessionLines(order *models.Order) []SessionLine {
	lines := make([]SessionLine, 0, len(order.Lines))
	for _, l := range order.Lines {
		lines = append(lines, SessionLine{PacketID: l.PacketID, Quantity: l.Quantity})
	}
	return lines
}
