package positions

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/greenrow/seedshop-backend/pkg/enums"
	pkgerrors "github.com/greenrow/seedshop-backend/pkg/errors"
)

// Scope identifies one container. OwnerID is the index for common names and the
// common name for sections and cultivars; it is zero for indexes. ParentID is
// the enclosing section for sections and cultivars, nil at the top level.
type Scope struct {
	Kind     enums.CatalogNodeKind
	OwnerID  uuid.UUID
	ParentID *uuid.UUID
}

type tableSpec struct {
	table     string
	ownerCol  string
	parentCol string
}

var tables = map[enums.CatalogNodeKind]tableSpec{
	enums.CatalogNodeIndex:      {table: "indexes"},
	enums.CatalogNodeCommonName: {table: "common_names", ownerCol: "index_id"},
	enums.CatalogNodeSection:    {table: "sections", ownerCol: "common_name_id", parentCol: "parent_id"},
	enums.CatalogNodeCultivar:   {table: "cultivars", ownerCol: "common_name_id", parentCol: "section_id"},
}

// Store reads sibling positions and writes plans.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) WithTx(tx *gorm.DB) *Store {
	if tx == nil {
		return s
	}
	return &Store{db: tx}
}

type scopeRow struct {
	Owner  *uuid.UUID `gorm:"column:owner"`
	Parent *uuid.UUID `gorm:"column:parent"`
}

// ScopeOf resolves the container of an existing row. It fails with not found
// when the row is absent and with an invariant error when its container rows
// are missing.
func (s *Store) ScopeOf(ctx context.Context, kind enums.CatalogNodeKind, id uuid.UUID) (Scope, error) {
	spec, ok := tables[kind]
	if !ok {
		return Scope{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown catalog node kind")
	}
	if spec.ownerCol == "" {
		var count int64
		if err := s.db.WithContext(ctx).Table(spec.table).Where("id = ?", id).Count(&count).Error; err != nil {
			return Scope{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load position scope")
		}
		if count == 0 {
			return Scope{}, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("%s not found", kind))
		}
		return Scope{Kind: kind}, nil
	}

	selectCols := spec.ownerCol + " AS owner"
	if spec.parentCol != "" {
		selectCols += ", " + spec.parentCol + " AS parent"
	}
	var row scopeRow
	err := s.db.WithContext(ctx).Table(spec.table).Select(selectCols).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Scope{}, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("%s not found", kind))
	}
	if err != nil {
		return Scope{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load position scope")
	}
	if row.Owner == nil || *row.Owner == uuid.Nil {
		return Scope{}, pkgerrors.New(pkgerrors.CodeInvariant, fmt.Sprintf("%s has no container", kind))
	}

	scope := Scope{Kind: kind, OwnerID: *row.Owner, ParentID: row.Parent}
	if err := s.checkContainer(ctx, scope); err != nil {
		return Scope{}, err
	}
	return scope, nil
}

func (s *Store) checkContainer(ctx context.Context, scope Scope) error {
	ownerTable := "indexes"
	if scope.Kind != enums.CatalogNodeCommonName {
		ownerTable = "common_names"
	}
	if ok, err := s.exists(ctx, ownerTable, "id = ?", scope.OwnerID); err != nil {
		return err
	} else if !ok {
		return pkgerrors.New(pkgerrors.CodeInvariant, fmt.Sprintf("%s container is missing", scope.Kind))
	}
	if scope.ParentID == nil {
		return nil
	}
	ok, err := s.exists(ctx, "sections", "id = ? AND common_name_id = ?", *scope.ParentID, scope.OwnerID)
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeInvariant, fmt.Sprintf("%s parent section is missing", scope.Kind))
	}
	return nil
}

func (s *Store) exists(ctx context.Context, table, where string, args ...any) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Table(table).Where(where, args...).Count(&count).Error; err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check container")
	}
	return count > 0, nil
}

// Siblings lists every row in the container.
func (s *Store) Siblings(ctx context.Context, scope Scope) ([]Item, error) {
	spec, ok := tables[scope.Kind]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown catalog node kind")
	}
	q := s.db.WithContext(ctx).Table(spec.table).Select("id, position")
	if spec.ownerCol != "" {
		q = q.Where(spec.ownerCol+" = ?", scope.OwnerID)
	}
	if spec.parentCol != "" {
		if scope.ParentID == nil {
			q = q.Where(spec.parentCol + " IS NULL")
		} else {
			q = q.Where(spec.parentCol+" = ?", *scope.ParentID)
		}
	}
	var items []Item
	if err := q.Order("position ASC").Order("id ASC").Scan(&items).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list siblings")
	}
	return items, nil
}

// Apply writes each update. Run it inside the caller's transaction.
func (s *Store) Apply(ctx context.Context, kind enums.CatalogNodeKind, updates []Update) error {
	spec, ok := tables[kind]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown catalog node kind")
	}
	for _, u := range updates {
		res := s.db.WithContext(ctx).Table(spec.table).Where("id = ?", u.ID).Update("position", u.Position)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update position")
		}
		if res.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeInvariant, "position target vanished").
				WithDetails(map[string]any{"id": u.ID.String()})
		}
	}
	return nil
}
