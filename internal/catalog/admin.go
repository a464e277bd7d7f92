package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/greenrow/seedshop-backend/internal/positions"
	"github.com/greenrow/seedshop-backend/pkg/db"
	"github.com/greenrow/seedshop-backend/pkg/db/models"
	"github.com/greenrow/seedshop-backend/pkg/enums"
	pkgerrors "github.com/greenrow/seedshop-backend/pkg/errors"
	"github.com/greenrow/seedshop-backend/pkg/logger"
	"github.com/greenrow/seedshop-backend/pkg/money"
)

// AdminService holds the catalog write operations. Every position change goes
// through the positions package inside one transaction.
type AdminService interface {
	CreateIndex(ctx context.Context, input CreateIndexInput) (*models.Index, error)
	CreateCommonName(ctx context.Context, input CreateCommonNameInput) (*models.CommonName, error)
	CreateSection(ctx context.Context, input CreateSectionInput) (*models.Section, error)
	CreateCultivar(ctx context.Context, input CreateCultivarInput) (*models.Cultivar, error)
	CreatePacket(ctx context.Context, input CreatePacketInput) (*models.Packet, error)
	UpdateIndex(ctx context.Context, id uuid.UUID, input UpdateIndexInput) (*models.Index, error)
	UpdateCommonName(ctx context.Context, id uuid.UUID, input UpdateCommonNameInput) (*models.CommonName, error)
	UpdateSection(ctx context.Context, id uuid.UUID, input UpdateSectionInput) (*models.Section, error)
	UpdateCultivar(ctx context.Context, id uuid.UUID, input UpdateCultivarInput) (*models.Cultivar, error)
	UpdatePacket(ctx context.Context, id uuid.UUID, input UpdatePacketInput) (*models.Packet, error)
	UpdateCultivarFlags(ctx context.Context, cultivarID uuid.UUID, input CultivarFlagsInput) (*models.Cultivar, error)
	Delete(ctx context.Context, kind enums.CatalogNodeKind, id uuid.UUID) error
	DeletePacket(ctx context.Context, id uuid.UUID) error
	Move(ctx context.Context, kind enums.CatalogNodeKind, id uuid.UUID, delta int) (positions.Plan, error)
	ReparentSection(ctx context.Context, sectionID uuid.UUID, parentID *uuid.UUID) (*models.Section, error)
	ReparentCultivar(ctx context.Context, cultivarID uuid.UUID, sectionID *uuid.UUID) (*models.Cultivar, error)
	AddGrowsWith(ctx context.Context, input GrowsWithInput) (*models.GrowsWithLink, error)
	RemoveGrowsWith(ctx context.Context, id uuid.UUID) error
}

type CreateIndexInput struct {
	Name        string
	Slug        string
	Description *string
}

type CreateCommonNameInput struct {
	IndexID        uuid.UUID
	Name           string
	Slug           string
	Subtitle       *string
	BotanicalNames *string
	Sunlight       *enums.Sunlight
	Instructions   *string
	Description    *string
	Visible        bool
}

type CreateSectionInput struct {
	CommonNameID uuid.UUID
	ParentID     *uuid.UUID
	Name         string
	Slug         string
	Subtitle     *string
	Description  *string
	ThumbnailKey *string
}

type CreateCultivarInput struct {
	CommonNameID    uuid.UUID
	SectionID       *uuid.UUID
	Name            string
	Slug            string
	Subtitle        *string
	BotanicalName   *string
	Description     *string
	Active          bool
	Visible         bool
	InStock         bool
	Organic         bool
	Taxable         bool
	Featured        bool
	Favorite        bool
	NewFor          *int
	OpenPollinated  *bool
	MaturationDays  *string
	NoshipCountries []string
	NoshipStates    []string
}

type CreatePacketInput struct {
	CultivarID uuid.UUID
	SKU        string
	Price      string
	Quantity   string
	Units      *string
}

// CultivarFlagsInput flips any subset of a cultivar's booleans.
type CultivarFlagsInput struct {
	Active   *bool
	Visible  *bool
	InStock  *bool
	Organic  *bool
	Taxable  *bool
	Featured *bool
	Favorite *bool
}

type GrowsWithInput struct {
	SubjectKind enums.CatalogNodeKind
	SubjectID   uuid.UUID
	TargetKind  enums.CatalogNodeKind
	TargetID    uuid.UUID
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type adminService struct {
	repo  *Repository
	store *positions.Store
	tx    txRunner
	logg  *logger.Logger
}

// NewAdminService wires catalog administration.
func NewAdminService(repo *Repository, store *positions.Store, tx txRunner, logg *logger.Logger) (AdminService, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if store == nil {
		return nil, fmt.Errorf("positions store required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &adminService{repo: repo, store: store, tx: tx, logg: logg}, nil
}

func (s *adminService) CreateIndex(ctx context.Context, input CreateIndexInput) (*models.Index, error) {
	if err := requireNameSlug(input.Name, input.Slug); err != nil {
		return nil, err
	}
	row := &models.Index{
		Name:        strings.TrimSpace(input.Name),
		Slug:        strings.TrimSpace(input.Slug),
		Description: input.Description,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		position, err := s.nextPosition(ctx, tx, positions.Scope{Kind: enums.CatalogNodeIndex})
		if err != nil {
			return err
		}
		row.Position = position
		return createError(s.repo.WithTx(tx).CreateIndex(ctx, row), "index")
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (s *adminService) CreateCommonName(ctx context.Context, input CreateCommonNameInput) (*models.CommonName, error) {
	if err := requireNameSlug(input.Name, input.Slug); err != nil {
		return nil, err
	}
	if input.Sunlight != nil && !input.Sunlight.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid sunlight")
	}
	row := &models.CommonName{
		IndexID:        input.IndexID,
		Name:           strings.TrimSpace(input.Name),
		Slug:           strings.TrimSpace(input.Slug),
		Subtitle:       input.Subtitle,
		BotanicalNames: input.BotanicalNames,
		Sunlight:       input.Sunlight,
		Instructions:   input.Instructions,
		Description:    input.Description,
		Visible:        input.Visible,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindIndexByID(ctx, input.IndexID); err != nil {
			return lookupError(err, "index")
		}
		position, err := s.nextPosition(ctx, tx, positions.Scope{Kind: enums.CatalogNodeCommonName, OwnerID: input.IndexID})
		if err != nil {
			return err
		}
		row.Position = position
		return createError(repo.CreateCommonName(ctx, row), "common name")
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (s *adminService) CreateSection(ctx context.Context, input CreateSectionInput) (*models.Section, error) {
	if err := requireNameSlug(input.Name, input.Slug); err != nil {
		return nil, err
	}
	row := &models.Section{
		CommonNameID: input.CommonNameID,
		ParentID:     input.ParentID,
		Name:         strings.TrimSpace(input.Name),
		Slug:         strings.TrimSpace(input.Slug),
		Subtitle:     input.Subtitle,
		Description:  input.Description,
		ThumbnailKey: input.ThumbnailKey,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindCommonNameByID(ctx, input.CommonNameID); err != nil {
			return lookupError(err, "common name")
		}
		if err := sectionBelongs(ctx, repo, input.ParentID, input.CommonNameID); err != nil {
			return err
		}
		position, err := s.nextPosition(ctx, tx, positions.Scope{
			Kind:     enums.CatalogNodeSection,
			OwnerID:  input.CommonNameID,
			ParentID: input.ParentID,
		})
		if err != nil {
			return err
		}
		row.Position = position
		return createError(repo.CreateSection(ctx, row), "section")
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (s *adminService) CreateCultivar(ctx context.Context, input CreateCultivarInput) (*models.Cultivar, error) {
	if err := requireNameSlug(input.Name, input.Slug); err != nil {
		return nil, err
	}
	row := &models.Cultivar{
		CommonNameID:    input.CommonNameID,
		SectionID:       input.SectionID,
		Name:            strings.TrimSpace(input.Name),
		Slug:            strings.TrimSpace(input.Slug),
		Subtitle:        input.Subtitle,
		BotanicalName:   input.BotanicalName,
		Description:     input.Description,
		Active:          input.Active,
		Visible:         input.Visible,
		InStock:         input.InStock,
		Organic:         input.Organic,
		Taxable:         input.Taxable,
		Featured:        input.Featured,
		Favorite:        input.Favorite,
		NewFor:          input.NewFor,
		OpenPollinated:  input.OpenPollinated,
		MaturationDays:  input.MaturationDays,
		NoshipCountries: upperAll(input.NoshipCountries),
		NoshipStates:    upperAll(input.NoshipStates),
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindCommonNameByID(ctx, input.CommonNameID); err != nil {
			return lookupError(err, "common name")
		}
		if err := sectionBelongs(ctx, repo, input.SectionID, input.CommonNameID); err != nil {
			return err
		}
		position, err := s.nextPosition(ctx, tx, positions.Scope{
			Kind:     enums.CatalogNodeCultivar,
			OwnerID:  input.CommonNameID,
			ParentID: input.SectionID,
		})
		if err != nil {
			return err
		}
		row.Position = position
		return createError(repo.CreateCultivar(ctx, row), "cultivar")
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (s *adminService) CreatePacket(ctx context.Context, input CreatePacketInput) (*models.Packet, error) {
	sku := strings.TrimSpace(input.SKU)
	if sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	if strings.TrimSpace(input.Quantity) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity is required")
	}
	cents, err := money.Parse(input.Price)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price")
	}
	if _, err := s.repo.FindCultivarByID(ctx, input.CultivarID); err != nil {
		return nil, lookupError(err, "cultivar")
	}
	row := &models.Packet{
		CultivarID: input.CultivarID,
		SKU:        sku,
		PriceCents: cents,
		Quantity:   strings.TrimSpace(input.Quantity),
		Units:      input.Units,
	}
	if err := createError(s.repo.CreatePacket(ctx, row), "packet"); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *adminService) UpdateCultivarFlags(ctx context.Context, cultivarID uuid.UUID, input CultivarFlagsInput) (*models.Cultivar, error) {
	flags := map[string]any{}
	set := func(col string, v *bool) {
		if v != nil {
			flags[col] = *v
		}
	}
	set("active", input.Active)
	set("visible", input.Visible)
	set("in_stock", input.InStock)
	set("organic", input.Organic)
	set("taxable", input.Taxable)
	set("featured", input.Featured)
	set("favorite", input.Favorite)
	if len(flags) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no flags supplied")
	}
	if err := s.repo.UpdateCultivarFlags(ctx, cultivarID, flags); err != nil {
		return nil, lookupError(err, "cultivar")
	}
	row, err := s.repo.FindCultivarByID(ctx, cultivarID)
	if err != nil {
		return nil, lookupError(err, "cultivar")
	}
	return row, nil
}

// Move shifts one row a single step within its container. A move past either
// end is reported as Moved=false and changes nothing.
func (s *adminService) Move(ctx context.Context, kind enums.CatalogNodeKind, id uuid.UUID, delta int) (positions.Plan, error) {
	if !kind.IsValid() {
		return positions.Plan{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid catalog node kind")
	}
	var plan positions.Plan
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		store := s.store.WithTx(tx)
		scope, err := store.ScopeOf(ctx, kind, id)
		if err != nil {
			return err
		}
		siblings, err := store.Siblings(ctx, scope)
		if err != nil {
			return err
		}
		plan, err = positions.Move(siblings, id, delta)
		if err != nil {
			return err
		}
		if !plan.Moved {
			return nil
		}
		return store.Apply(ctx, kind, plan.Updates)
	})
	if err != nil {
		return positions.Plan{}, err
	}
	if plan.Moved {
		ctx = s.logg.WithFields(ctx, map[string]any{"kind": kind.String(), "id": id.String(), "delta": delta})
		s.logg.Info(ctx, "catalog position moved")
	}
	return plan, nil
}

// ReparentSection moves a section, with its subtree, under another section of
// the same common name or to the top level. It always lands last.
func (s *adminService) ReparentSection(ctx context.Context, sectionID uuid.UUID, parentID *uuid.UUID) (*models.Section, error) {
	var section *models.Section
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		section, err = repo.FindSectionByID(ctx, sectionID)
		if err != nil {
			return lookupError(err, "section")
		}
		if parentID != nil {
			if *parentID == sectionID {
				return pkgerrors.New(pkgerrors.CodeValidation, "section cannot be its own parent")
			}
			parent, err := repo.FindSectionByID(ctx, *parentID)
			if err != nil {
				return lookupError(err, "parent section")
			}
			if parent.CommonNameID != section.CommonNameID {
				return pkgerrors.New(pkgerrors.CodeValidation, "section cannot move to another common name")
			}
			siblings, err := repo.ListSections(ctx, section.CommonNameID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sections")
			}
			path, err := SectionPath(siblings, *parentID)
			if err != nil {
				return err
			}
			for _, ancestor := range path {
				if ancestor.ID == sectionID {
					return pkgerrors.New(pkgerrors.CodeValidation, "section cannot move under its own descendant")
				}
			}
		}
		position, err := s.nextPosition(ctx, tx, positions.Scope{
			Kind:     enums.CatalogNodeSection,
			OwnerID:  section.CommonNameID,
			ParentID: parentID,
		})
		if err != nil {
			return err
		}
		if err := repo.ReparentSection(ctx, sectionID, parentID, position); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reparent section")
		}
		section.ParentID = parentID
		section.Position = position
		return nil
	})
	if err != nil {
		return nil, err
	}
	return section, nil
}

// ReparentCultivar moves a cultivar into a section of its common name, or back
// to the common name when sectionID is nil. It always lands last.
func (s *adminService) ReparentCultivar(ctx context.Context, cultivarID uuid.UUID, sectionID *uuid.UUID) (*models.Cultivar, error) {
	var cultivar *models.Cultivar
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		cultivar, err = repo.FindCultivarByID(ctx, cultivarID)
		if err != nil {
			return lookupError(err, "cultivar")
		}
		if err := sectionBelongs(ctx, repo, sectionID, cultivar.CommonNameID); err != nil {
			return err
		}
		position, err := s.nextPosition(ctx, tx, positions.Scope{
			Kind:     enums.CatalogNodeCultivar,
			OwnerID:  cultivar.CommonNameID,
			ParentID: sectionID,
		})
		if err != nil {
			return err
		}
		if err := repo.ReparentCultivar(ctx, cultivarID, sectionID, position); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reparent cultivar")
		}
		cultivar.SectionID = sectionID
		cultivar.Position = position
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cultivar, nil
}

func (s *adminService) AddGrowsWith(ctx context.Context, input GrowsWithInput) (*models.GrowsWithLink, error) {
	if !input.SubjectKind.CanGrowWith() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subject cannot carry grows-with references")
	}
	if !input.TargetKind.IsGrowsWithTarget() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid grows-with target")
	}
	if input.SubjectKind == input.TargetKind && input.SubjectID == input.TargetID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entity cannot grow with itself")
	}
	for _, end := range []struct {
		kind enums.CatalogNodeKind
		id   uuid.UUID
	}{{input.SubjectKind, input.SubjectID}, {input.TargetKind, input.TargetID}} {
		if _, err := s.store.ScopeOf(ctx, end.kind, end.id); err != nil {
			return nil, err
		}
	}
	row := &models.GrowsWithLink{
		SubjectType: input.SubjectKind,
		SubjectID:   input.SubjectID,
		TargetType:  input.TargetKind,
		TargetID:    input.TargetID,
	}
	if err := createError(s.repo.CreateGrowsWith(ctx, row), "grows-with reference"); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *adminService) RemoveGrowsWith(ctx context.Context, id uuid.UUID) error {
	removed, err := s.repo.DeleteGrowsWith(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete grows-with reference")
	}
	if !removed {
		return pkgerrors.New(pkgerrors.CodeNotFound, "grows-with reference not found")
	}
	return nil
}

func (s *adminService) nextPosition(ctx context.Context, tx *gorm.DB, scope positions.Scope) (int, error) {
	siblings, err := s.store.WithTx(tx).Siblings(ctx, scope)
	if err != nil {
		return 0, err
	}
	return positions.NextPosition(siblings), nil
}

func sectionBelongs(ctx context.Context, repo *Repository, sectionID *uuid.UUID, commonNameID uuid.UUID) error {
	if sectionID == nil {
		return nil
	}
	section, err := repo.FindSectionByID(ctx, *sectionID)
	if err != nil {
		return lookupError(err, "section")
	}
	if section.CommonNameID != commonNameID {
		return pkgerrors.New(pkgerrors.CodeValidation, "section belongs to another common name")
	}
	return nil
}

func requireNameSlug(name, slug string) error {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(slug) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name and slug are required")
	}
	return nil
}

func createError(err error, entity string) error {
	if err == nil {
		return nil
	}
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.New(pkgerrors.CodeConflict, entity+" already exists")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create "+entity)
}

func upperAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToUpper(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
