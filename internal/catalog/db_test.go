package catalog

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/greenrow/seedshop-backend/pkg/db"
	"github.com/greenrow/seedshop-backend/pkg/db/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())), &gorm.Config{})
	require.NoError(t, err)

	stmts := []string{
		`CREATE TABLE indexes (
			id TEXT PRIMARY KEY, name TEXT NOT NULL, slug TEXT NOT NULL UNIQUE, description TEXT,
			position INTEGER NOT NULL DEFAULT 0, created_at DATETIME, updated_at DATETIME)`,
		`CREATE TABLE common_names (
			id TEXT PRIMARY KEY, index_id TEXT NOT NULL, name TEXT NOT NULL, slug TEXT NOT NULL,
			subtitle TEXT, botanical_names TEXT, sunlight TEXT, instructions TEXT, description TEXT,
			position INTEGER NOT NULL DEFAULT 0, visible BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME, updated_at DATETIME, UNIQUE (index_id, slug))`,
		`CREATE TABLE sections (
			id TEXT PRIMARY KEY, common_name_id TEXT NOT NULL, parent_id TEXT, name TEXT NOT NULL,
			slug TEXT NOT NULL, subtitle TEXT, description TEXT, position INTEGER NOT NULL DEFAULT 0,
			thumbnail_key TEXT, created_at DATETIME, updated_at DATETIME)`,
		`CREATE TABLE cultivars (
			id TEXT PRIMARY KEY, common_name_id TEXT NOT NULL, section_id TEXT, name TEXT NOT NULL,
			slug TEXT NOT NULL, subtitle TEXT, botanical_name TEXT, description TEXT,
			position INTEGER NOT NULL DEFAULT 0, active BOOLEAN NOT NULL, visible BOOLEAN NOT NULL,
			in_stock BOOLEAN NOT NULL, organic BOOLEAN NOT NULL, taxable BOOLEAN NOT NULL,
			featured BOOLEAN NOT NULL, favorite BOOLEAN NOT NULL, new_for INTEGER, open_pollinated BOOLEAN,
			maturation_days TEXT, noship_countries TEXT, noship_states TEXT,
			created_at DATETIME, updated_at DATETIME, UNIQUE (common_name_id, slug))`,
		`CREATE TABLE packets (
			id TEXT PRIMARY KEY, cultivar_id TEXT NOT NULL, sku TEXT NOT NULL UNIQUE,
			price_cents INTEGER NOT NULL, quantity TEXT NOT NULL, units TEXT,
			created_at DATETIME, updated_at DATETIME)`,
		`CREATE TABLE grows_with_links (
			id TEXT PRIMARY KEY, subject_type TEXT NOT NULL, subject_id TEXT NOT NULL,
			target_type TEXT NOT NULL, target_id TEXT NOT NULL, created_at DATETIME)`,
		`CREATE TABLE orders (
			id TEXT PRIMARY KEY, customer_id TEXT, session_id TEXT, email TEXT,
			status TEXT NOT NULL DEFAULT 'new', shipping_address TEXT, billing_address TEXT,
			shipping_cents INTEGER, tax_cents INTEGER, payment_processor TEXT, payment_reference TEXT, payment_attempts INTEGER NOT NULL DEFAULT 0,
			placed_at DATETIME, paid_at DATETIME, created_at DATETIME, updated_at DATETIME)`,
		`CREATE TABLE order_lines (
			id TEXT PRIMARY KEY, order_id TEXT NOT NULL, packet_id TEXT NOT NULL, cultivar_id TEXT NOT NULL,
			sku TEXT NOT NULL, label TEXT NOT NULL, quantity INTEGER NOT NULL,
			unit_price_cents INTEGER NOT NULL, created_at DATETIME, updated_at DATETIME)`,
	}
	for _, stmt := range stmts {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

type fixture struct {
	conn  *gorm.DB
	repo  *Repository
	index models.Index
	cn    models.CommonName
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := openTestDB(t)
	f := &fixture{conn: conn, repo: NewRepository(conn)}
	f.index = models.Index{ID: uuid.New(), Name: "Vegetables", Slug: "vegetables"}
	require.NoError(t, conn.Create(&f.index).Error)
	f.cn = models.CommonName{ID: uuid.New(), IndexID: f.index.ID, Name: "Tomato", Slug: "tomato", Visible: true}
	require.NoError(t, conn.Create(&f.cn).Error)
	return f
}

func (f *fixture) client() *db.Client {
	return db.NewFromConn(f.conn)
}
