package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/greenrow/seedshop-backend/pkg/db"
	"github.com/greenrow/seedshop-backend/pkg/db/models"
	"github.com/greenrow/seedshop-backend/pkg/enums"
	pkgerrors "github.com/greenrow/seedshop-backend/pkg/errors"
	"github.com/greenrow/seedshop-backend/pkg/money"
)

// Update inputs carry only the fields being changed. A nil pointer leaves the
// column alone; an empty string clears an optional text column.

type UpdateIndexInput struct {
	Name        *string
	Slug        *string
	Description *string
}

type UpdateCommonNameInput struct {
	Name           *string
	Slug           *string
	Subtitle       *string
	BotanicalNames *string
	Sunlight       *enums.Sunlight
	ClearSunlight  bool
	Instructions   *string
	Description    *string
	Visible        *bool
}

type UpdateSectionInput struct {
	Name         *string
	Slug         *string
	Subtitle     *string
	Description  *string
	ThumbnailKey *string
}

type UpdateCultivarInput struct {
	Name            *string
	Slug            *string
	Subtitle        *string
	BotanicalName   *string
	Description     *string
	NewFor          *int
	OpenPollinated  *bool
	MaturationDays  *string
	NoshipCountries []string
	NoshipStates    []string
}

type UpdatePacketInput struct {
	SKU      *string
	Price    *string
	Quantity *string
	Units    *string
}

type columns map[string]any

func (c columns) required(col string, v *string) error {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, col+" cannot be blank")
	}
	c[col] = trimmed
	return nil
}

func (c columns) optional(col string, v *string) {
	if v == nil {
		return
	}
	if trimmed := strings.TrimSpace(*v); trimmed != "" {
		c[col] = trimmed
		return
	}
	c[col] = nil
}

func (c columns) check() error {
	if len(c) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "no fields supplied")
	}
	return nil
}

func (s *adminService) UpdateIndex(ctx context.Context, id uuid.UUID, input UpdateIndexInput) (*models.Index, error) {
	cols := columns{}
	if err := cols.required("name", input.Name); err != nil {
		return nil, err
	}
	if err := cols.required("slug", input.Slug); err != nil {
		return nil, err
	}
	cols.optional("description", input.Description)
	if err := s.update(ctx, &models.Index{}, id, cols, "index"); err != nil {
		return nil, err
	}
	row, err := s.repo.FindIndexByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "index")
	}
	return row, nil
}

func (s *adminService) UpdateCommonName(ctx context.Context, id uuid.UUID, input UpdateCommonNameInput) (*models.CommonName, error) {
	cols := columns{}
	if err := cols.required("name", input.Name); err != nil {
		return nil, err
	}
	if err := cols.required("slug", input.Slug); err != nil {
		return nil, err
	}
	cols.optional("subtitle", input.Subtitle)
	cols.optional("botanical_names", input.BotanicalNames)
	cols.optional("instructions", input.Instructions)
	cols.optional("description", input.Description)
	switch {
	case input.ClearSunlight:
		cols["sunlight"] = nil
	case input.Sunlight != nil:
		if !input.Sunlight.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid sunlight")
		}
		cols["sunlight"] = *input.Sunlight
	}
	if input.Visible != nil {
		cols["visible"] = *input.Visible
	}
	if err := s.update(ctx, &models.CommonName{}, id, cols, "common name"); err != nil {
		return nil, err
	}
	row, err := s.repo.FindCommonNameByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "common name")
	}
	return row, nil
}

func (s *adminService) UpdateSection(ctx context.Context, id uuid.UUID, input UpdateSectionInput) (*models.Section, error) {
	cols := columns{}
	if err := cols.required("name", input.Name); err != nil {
		return nil, err
	}
	if err := cols.required("slug", input.Slug); err != nil {
		return nil, err
	}
	cols.optional("subtitle", input.Subtitle)
	cols.optional("description", input.Description)
	cols.optional("thumbnail_key", input.ThumbnailKey)
	if err := s.update(ctx, &models.Section{}, id, cols, "section"); err != nil {
		return nil, err
	}
	row, err := s.repo.FindSectionByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "section")
	}
	return row, nil
}

func (s *adminService) UpdateCultivar(ctx context.Context, id uuid.UUID, input UpdateCultivarInput) (*models.Cultivar, error) {
	cols := columns{}
	if err := cols.required("name", input.Name); err != nil {
		return nil, err
	}
	if err := cols.required("slug", input.Slug); err != nil {
		return nil, err
	}
	cols.optional("subtitle", input.Subtitle)
	cols.optional("botanical_name", input.BotanicalName)
	cols.optional("description", input.Description)
	cols.optional("maturation_days", input.MaturationDays)
	if input.NewFor != nil {
		if *input.NewFor < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "new_for cannot be negative")
		}
		cols["new_for"] = *input.NewFor
	}
	if input.OpenPollinated != nil {
		cols["open_pollinated"] = *input.OpenPollinated
	}
	if input.NoshipCountries != nil {
		for _, code := range input.NoshipCountries {
			if len(strings.TrimSpace(code)) != 2 {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "noship countries must be two-letter codes").
					WithDetails(map[string]any{"code": code})
			}
		}
		cols["noship_countries"] = pq.StringArray(upperAll(input.NoshipCountries))
	}
	if input.NoshipStates != nil {
		cols["noship_states"] = pq.StringArray(upperAll(input.NoshipStates))
	}
	if err := s.update(ctx, &models.Cultivar{}, id, cols, "cultivar"); err != nil {
		return nil, err
	}
	row, err := s.repo.FindCultivarByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "cultivar")
	}
	return row, nil
}

// UpdatePacket changes a packet's sku, price or size. Open carts pick up the
// new price the next time the line is written; placed orders keep their snapshot.
func (s *adminService) UpdatePacket(ctx context.Context, id uuid.UUID, input UpdatePacketInput) (*models.Packet, error) {
	cols := columns{}
	if err := cols.required("sku", input.SKU); err != nil {
		return nil, err
	}
	if err := cols.required("quantity", input.Quantity); err != nil {
		return nil, err
	}
	cols.optional("units", input.Units)
	if input.Price != nil {
		cents, err := money.Parse(*input.Price)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price")
		}
		cols["price_cents"] = cents
	}
	if err := s.update(ctx, &models.Packet{}, id, cols, "packet"); err != nil {
		return nil, err
	}
	row, err := s.repo.FindPacket(ctx, id)
	if err != nil {
		return nil, lookupError(err, "packet")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"packet_id": id.String(), "sku": row.SKU, "price_cents": row.PriceCents})
	s.logg.Info(ctx, "packet updated")
	return row, nil
}

// Delete removes an index, common name, section or cultivar. Containers must be
// empty first. A cultivar takes its packets with it unless one of them sits on
// a placed order; such cultivars should be deactivated instead.
func (s *adminService) Delete(ctx context.Context, kind enums.CatalogNodeKind, id uuid.UUID) error {
	model, entity, err := nodeModel(kind)
	if err != nil {
		return err
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		children, err := repo.CountChildren(ctx, kind, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count children")
		}
		if children > 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, entity+" is not empty").
				WithDetails(map[string]any{"children": children})
		}
		if kind == enums.CatalogNodeCultivar {
			packetIDs, err := repo.ListPacketIDs(ctx, id)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list packets")
			}
			if err := removePackets(ctx, repo, packetIDs); err != nil {
				return err
			}
		}
		if err := repo.DeleteGrowsWithFor(ctx, kind, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete grows-with references")
		}
		removed, err := repo.DeleteRow(ctx, model, id)
		if err != nil {
			return deleteError(err, entity)
		}
		if !removed {
			return pkgerrors.New(pkgerrors.CodeNotFound, entity+" not found")
		}
		return nil
	})
	if err != nil {
		return err
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"kind": kind.String(), "id": id.String()})
	s.logg.Info(ctx, "catalog entry deleted")
	return nil
}

// DeletePacket removes a packet that no placed order references, dropping it
// from open carts.
func (s *adminService) DeletePacket(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindPacket(ctx, id); err != nil {
			return lookupError(err, "packet")
		}
		return removePackets(ctx, repo, []uuid.UUID{id})
	})
}

func removePackets(ctx context.Context, repo *Repository, packetIDs []uuid.UUID) error {
	ordered, err := repo.PacketsOrdered(ctx, packetIDs)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check ordered packets")
	}
	if ordered {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "packet appears on placed orders")
	}
	if err := repo.DropCartLines(ctx, packetIDs); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "drop cart lines")
	}
	if err := repo.DeletePackets(ctx, packetIDs); err != nil {
		return deleteError(err, "packet")
	}
	return nil
}

func (s *adminService) update(ctx context.Context, model any, id uuid.UUID, cols columns, entity string) error {
	if err := cols.check(); err != nil {
		return err
	}
	err := s.repo.UpdateColumns(ctx, model, id, cols)
	switch {
	case err == nil:
		return nil
	case db.IsNotFound(err):
		return pkgerrors.New(pkgerrors.CodeNotFound, entity+" not found")
	case db.IsUniqueViolation(err, ""):
		return pkgerrors.New(pkgerrors.CodeConflict, entity+" already exists")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update "+entity)
	}
}

func nodeModel(kind enums.CatalogNodeKind) (any, string, error) {
	switch kind {
	case enums.CatalogNodeIndex:
		return &models.Index{}, "index", nil
	case enums.CatalogNodeCommonName:
		return &models.CommonName{}, "common name", nil
	case enums.CatalogNodeSection:
		return &models.Section{}, "section", nil
	case enums.CatalogNodeCultivar:
		return &models.Cultivar{}, "cultivar", nil
	}
	return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "invalid catalog node kind")
}

func deleteError(err error, entity string) error {
	if db.IsForeignKeyViolation(err) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, entity+" is still referenced")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete "+entity)
}
