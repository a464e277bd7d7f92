package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/greenrow/seedshop-backend/pkg/db/models"
	"github.com/greenrow/seedshop-backend/pkg/enums"
)

// Repository reads and writes catalog rows.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) ListIndexes(ctx context.Context) ([]models.Index, error) {
	var rows []models.Index
	err := r.db.WithContext(ctx).Order("position ASC").Order("id ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) FindIndexBySlug(ctx context.Context, slug string) (*models.Index, error) {
	var row models.Index
	if err := r.db.WithContext(ctx).First(&row, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) FindIndexByID(ctx context.Context, id uuid.UUID) (*models.Index, error) {
	var row models.Index
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) ListCommonNames(ctx context.Context, indexID uuid.UUID) ([]models.CommonName, error) {
	var rows []models.CommonName
	err := r.db.WithContext(ctx).
		Where("index_id = ?", indexID).
		Order("position ASC").
		Order("id ASC").
		Find(&rows).
		Error
	return rows, err
}

func (r *Repository) FindCommonName(ctx context.Context, indexID uuid.UUID, slug string) (*models.CommonName, error) {
	var row models.CommonName
	if err := r.db.WithContext(ctx).First(&row, "index_id = ? AND slug = ?", indexID, slug).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) FindCommonNameByID(ctx context.Context, id uuid.UUID) (*models.CommonName, error) {
	var row models.CommonName
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) ListSections(ctx context.Context, commonNameID uuid.UUID) ([]models.Section, error) {
	var rows []models.Section
	err := r.db.WithContext(ctx).
		Where("common_name_id = ?", commonNameID).
		Order("position ASC").
		Find(&rows).
		Error
	return rows, err
}

func (r *Repository) FindSectionByID(ctx context.Context, id uuid.UUID) (*models.Section, error) {
	var row models.Section
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// ListCultivars returns every cultivar of a common name with its packets.
func (r *Repository) ListCultivars(ctx context.Context, commonNameID uuid.UUID) ([]models.Cultivar, error) {
	var rows []models.Cultivar
	err := r.db.WithContext(ctx).
		Preload("Packets", func(db *gorm.DB) *gorm.DB {
			return db.Order("sku ASC")
		}).
		Where("common_name_id = ?", commonNameID).
		Order("position ASC").
		Find(&rows).
		Error
	return rows, err
}

func (r *Repository) FindCultivar(ctx context.Context, commonNameID uuid.UUID, slug string) (*models.Cultivar, error) {
	var row models.Cultivar
	err := r.db.WithContext(ctx).
		Preload("Packets", func(db *gorm.DB) *gorm.DB {
			return db.Order("sku ASC")
		}).
		First(&row, "common_name_id = ? AND slug = ?", commonNameID, slug).
		Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) FindCultivarByID(ctx context.Context, id uuid.UUID) (*models.Cultivar, error) {
	var row models.Cultivar
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindCultivarsByIDs loads cultivars keyed by id. Missing ids are absent from the map.
func (r *Repository) FindCultivarsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Cultivar, error) {
	out := make(map[uuid.UUID]models.Cultivar, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Cultivar
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, c := range rows {
		out[c.ID] = c
	}
	return out, nil
}

func (r *Repository) FindPacket(ctx context.Context, id uuid.UUID) (*models.Packet, error) {
	var row models.Packet
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindPacketsByIDs loads packets keyed by id. Missing ids are absent from the map.
func (r *Repository) FindPacketsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Packet, error) {
	out := make(map[uuid.UUID]models.Packet, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Packet
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}

// CountPublicCultivars counts active, visible cultivars per common name.
func (r *Repository) CountPublicCultivars(ctx context.Context, commonNameIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(commonNameIDs))
	if len(commonNameIDs) == 0 {
		return counts, nil
	}
	type row struct {
		CommonNameID uuid.UUID
		Total        int
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.Cultivar{}).
		Select("common_name_id, COUNT(*) AS total").
		Where("common_name_id IN ? AND active = ? AND visible = ?", commonNameIDs, true, true).
		Group("common_name_id").
		Scan(&rows).
		Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		counts[r.CommonNameID] = r.Total
	}
	return counts, nil
}

func (r *Repository) ListGrowsWith(ctx context.Context, subject enums.CatalogNodeKind, subjectID uuid.UUID) ([]models.GrowsWithLink, error) {
	var rows []models.GrowsWithLink
	err := r.db.WithContext(ctx).
		Where("subject_type = ? AND subject_id = ?", subject, subjectID).
		Order("created_at ASC").
		Find(&rows).
		Error
	return rows, err
}

// ResolveGrowsWith loads names and slugs for the links' targets. Targets that no
// longer exist are skipped.
func (r *Repository) ResolveGrowsWith(ctx context.Context, links []models.GrowsWithLink) ([]GrowsWithRef, error) {
	idsByKind := map[enums.CatalogNodeKind][]uuid.UUID{}
	for _, l := range links {
		idsByKind[l.TargetType] = append(idsByKind[l.TargetType], l.TargetID)
	}

	type named struct {
		ID   uuid.UUID
		Name string
		Slug string
	}
	found := map[uuid.UUID]named{}
	for kind, ids := range idsByKind {
		var table string
		switch kind {
		case enums.CatalogNodeCommonName:
			table = "common_names"
		case enums.CatalogNodeSection:
			table = "sections"
		case enums.CatalogNodeCultivar:
			table = "cultivars"
		default:
			continue
		}
		var rows []named
		if err := r.db.WithContext(ctx).Table(table).Select("id, name, slug").Where("id IN ?", ids).Scan(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			found[row.ID] = row
		}
	}

	refs := make([]GrowsWithRef, 0, len(links))
	for _, l := range links {
		n, ok := found[l.TargetID]
		if !ok {
			continue
		}
		refs = append(refs, GrowsWithRef{Kind: l.TargetType, ID: n.ID, Name: n.Name, Slug: n.Slug})
	}
	return refs, nil
}

func (r *Repository) CreateIndex(ctx context.Context, row *models.Index) error {
	ensureID(&row.ID)
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *Repository) CreateCommonName(ctx context.Context, row *models.CommonName) error {
	ensureID(&row.ID)
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *Repository) CreateSection(ctx context.Context, row *models.Section) error {
	ensureID(&row.ID)
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *Repository) CreateCultivar(ctx context.Context, row *models.Cultivar) error {
	ensureID(&row.ID)
	return r.db.WithContext(ctx).Omit("Packets").Create(row).Error
}

func (r *Repository) CreatePacket(ctx context.Context, row *models.Packet) error {
	ensureID(&row.ID)
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *Repository) CreateGrowsWith(ctx context.Context, row *models.GrowsWithLink) error {
	ensureID(&row.ID)
	return r.db.WithContext(ctx).Create(row).Error
}

// DeleteGrowsWith removes one link. It reports whether a row was removed.
func (r *Repository) DeleteGrowsWith(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.GrowsWithLink{})
	return res.RowsAffected > 0, res.Error
}

// UpdateCultivarFlags writes the given boolean columns.
func (r *Repository) UpdateCultivarFlags(ctx context.Context, id uuid.UUID, flags map[string]any) error {
	return r.UpdateColumns(ctx, &models.Cultivar{}, id, flags)
}

// UpdateColumns writes values to the row with the given id in model's table.
// A missing row yields gorm.ErrRecordNotFound.
func (r *Repository) UpdateColumns(ctx context.Context, model any, id uuid.UUID, values map[string]any) error {
	res := r.db.WithContext(ctx).Model(model).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteRow removes one row from model's table and reports whether it existed.
func (r *Repository) DeleteRow(ctx context.Context, model any, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(model)
	return res.RowsAffected > 0, res.Error
}

// CountChildren counts the rows that still hang off a container: common names
// of an index, sections and cultivars of a common name, child sections and
// cultivars of a section.
func (r *Repository) CountChildren(ctx context.Context, kind enums.CatalogNodeKind, id uuid.UUID) (int64, error) {
	type childTable struct {
		model any
		where string
	}
	var tables []childTable
	switch kind {
	case enums.CatalogNodeIndex:
		tables = []childTable{{&models.CommonName{}, "index_id = ?"}}
	case enums.CatalogNodeCommonName:
		tables = []childTable{{&models.Section{}, "common_name_id = ?"}, {&models.Cultivar{}, "common_name_id = ?"}}
	case enums.CatalogNodeSection:
		tables = []childTable{{&models.Section{}, "parent_id = ?"}, {&models.Cultivar{}, "section_id = ?"}}
	default:
		return 0, nil
	}
	var total int64
	for _, p := range tables {
		var n int64
		if err := r.db.WithContext(ctx).Model(p.model).Where(p.where, id).Count(&n).Error; err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func (r *Repository) ListPacketIDs(ctx context.Context, cultivarID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Packet{}).
		Where("cultivar_id = ?", cultivarID).
		Pluck("id", &ids).
		Error
	return ids, err
}

// PacketsOrdered reports whether a placed order holds a line for any of the packets.
func (r *Repository) PacketsOrdered(ctx context.Context, packetIDs []uuid.UUID) (bool, error) {
	if len(packetIDs) == 0 {
		return false, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderLine{}).
		Joins("JOIN orders ON orders.id = order_lines.order_id").
		Where("order_lines.packet_id IN ? AND orders.status <> ?", packetIDs, enums.OrderStatusNew).
		Count(&count).
		Error
	return count > 0, err
}

// DropCartLines removes the packets from every open cart order.
func (r *Repository) DropCartLines(ctx context.Context, packetIDs []uuid.UUID) error {
	if len(packetIDs) == 0 {
		return nil
	}
	open := r.db.Model(&models.Order{}).Select("id").Where("status = ?", enums.OrderStatusNew)
	return r.db.WithContext(ctx).
		Where("packet_id IN ? AND order_id IN (?)", packetIDs, open).
		Delete(&models.OrderLine{}).
		Error
}

func (r *Repository) DeletePackets(ctx context.Context, packetIDs []uuid.UUID) error {
	if len(packetIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", packetIDs).Delete(&models.Packet{}).Error
}

// DeleteGrowsWithFor removes every link that names the entity at either end.
func (r *Repository) DeleteGrowsWithFor(ctx context.Context, kind enums.CatalogNodeKind, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("(subject_type = ? AND subject_id = ?) OR (target_type = ? AND target_id = ?)", kind, id, kind, id).
		Delete(&models.GrowsWithLink{}).
		Error
}

// Reparent moves a section or cultivar under a new container at the given position.
func (r *Repository) ReparentSection(ctx context.Context, id uuid.UUID, parentID *uuid.UUID, position int) error {
	return r.db.WithContext(ctx).
		Model(&models.Section{}).
		Where("id = ?", id).
		Updates(map[string]any{"parent_id": parentID, "position": position}).
		Error
}

func (r *Repository) ReparentCultivar(ctx context.Context, id uuid.UUID, sectionID *uuid.UUID, position int) error {
	return r.db.WithContext(ctx).
		Model(&models.Cultivar{}).
		Where("id = ?", id).
		Updates(map[string]any{"section_id": sectionID, "position": position}).
		Error
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
