package positions

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/greenrow/seedshop-backend/pkg/enums"
	pkgerrors "github.com/greenrow/seedshop-backend/pkg/errors"
)

func setupPositionsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())), &gorm.Config{})
	require.NoError(t, err)

	stmts := []string{
		`CREATE TABLE indexes (id TEXT PRIMARY KEY, position INTEGER NOT NULL DEFAULT 0)`,
		`CREATE TABLE common_names (id TEXT PRIMARY KEY, index_id TEXT NOT NULL, position INTEGER NOT NULL DEFAULT 0)`,
		`CREATE TABLE sections (id TEXT PRIMARY KEY, common_name_id TEXT NOT NULL, parent_id TEXT, position INTEGER NOT NULL DEFAULT 0)`,
		`CREATE TABLE cultivars (id TEXT PRIMARY KEY, common_name_id TEXT NOT NULL, section_id TEXT, position INTEGER NOT NULL DEFAULT 0)`,
	}
	for _, stmt := range stmts {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func TestStoreMoveCultivarInsideSection(t *testing.T) {
	db := setupPositionsTestDB(t)
	ctx := context.Background()
	store := NewStore(db)

	indexID, cnID, sectionID := uuid.New(), uuid.New(), uuid.New()
	require.NoError(t, db.Exec(`INSERT INTO indexes (id, position) VALUES (?, 0)`, indexID).Error)
	require.NoError(t, db.Exec(`INSERT INTO common_names (id, index_id, position) VALUES (?, ?, 0)`, cnID, indexID).Error)
	require.NoError(t, db.Exec(`INSERT INTO sections (id, common_name_id, position) VALUES (?, ?, 0)`, sectionID, cnID).Error)

	first, second, loose := uuid.New(), uuid.New(), uuid.New()
	require.NoError(t, db.Exec(`INSERT INTO cultivars (id, common_name_id, section_id, position) VALUES (?, ?, ?, 0)`, first, cnID, sectionID).Error)
	require.NoError(t, db.Exec(`INSERT INTO cultivars (id, common_name_id, section_id, position) VALUES (?, ?, ?, 1)`, second, cnID, sectionID).Error)
	require.NoError(t, db.Exec(`INSERT INTO cultivars (id, common_name_id, section_id, position) VALUES (?, ?, NULL, 0)`, loose, cnID).Error)

	scope, err := store.ScopeOf(ctx, enums.CatalogNodeCultivar, second)
	require.NoError(t, err)
	require.NotNil(t, scope.ParentID)
	assert.Equal(t, sectionID, *scope.ParentID)

	siblings, err := store.Siblings(ctx, scope)
	require.NoError(t, err)
	require.Len(t, siblings, 2)

	plan, err := Move(siblings, second, Backward)
	require.NoError(t, err)
	require.NoError(t, store.Apply(ctx, enums.CatalogNodeCultivar, plan.Updates))

	siblings, err = store.Siblings(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, second, siblings[0].ID)
	assert.Equal(t, first, siblings[1].ID)

	topScope, err := store.ScopeOf(ctx, enums.CatalogNodeCultivar, loose)
	require.NoError(t, err)
	top, err := store.Siblings(ctx, topScope)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, loose, top[0].ID)
}

func TestStoreScopeOfMissingContainer(t *testing.T) {
	db := setupPositionsTestDB(t)
	ctx := context.Background()
	store := NewStore(db)

	orphan := uuid.New()
	require.NoError(t, db.Exec(`INSERT INTO sections (id, common_name_id, position) VALUES (?, ?, 0)`, orphan, uuid.New()).Error)

	_, err := store.ScopeOf(ctx, enums.CatalogNodeSection, orphan)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInvariant), "expected invariant error, got %v", err)

	_, err = store.ScopeOf(ctx, enums.CatalogNodeSection, uuid.New())
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound), "expected not found, got %v", err)
}

func TestStoreIndexScope(t *testing.T) {
	db := setupPositionsTestDB(t)
	ctx := context.Background()
	store := NewStore(db)

	a, b := uuid.New(), uuid.New()
	require.NoError(t, db.Exec(`INSERT INTO indexes (id, position) VALUES (?, 0), (?, 1)`, a, b).Error)

	scope, err := store.ScopeOf(ctx, enums.CatalogNodeIndex, b)
	require.NoError(t, err)
	items, err := store.Siblings(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, 2, NextPosition(items))
}
