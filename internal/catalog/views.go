package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/greenrow/seedshop-backend/pkg/db/models"
	"github.com/greenrow/seedshop-backend/pkg/enums"
	"github.com/greenrow/seedshop-backend/pkg/money"
)

// CommonNameTree is a common name with every section and cultivar under it,
// as flat slices. Nesting is resolved through ParentID and SectionID.
type CommonNameTree struct {
	CommonName models.CommonName
	Sections   []models.Section
	Cultivars  []models.Cultivar
}

// IndexTree is an index with its common names and their public cultivar counts.
type IndexTree struct {
	Index        models.Index
	CommonNames  []models.CommonName
	PublicCounts map[uuid.UUID]int
}

type PacketView struct {
	ID       uuid.UUID       `json:"id"`
	SKU      string          `json:"sku"`
	Price    decimal.Decimal `json:"price"`
	Quantity string          `json:"quantity"`
	Units    *string         `json:"units,omitempty"`
	Label    string          `json:"label"`
}

type CultivarView struct {
	ID             uuid.UUID    `json:"id"`
	SectionID      *uuid.UUID   `json:"section_id,omitempty"`
	Name           string       `json:"name"`
	Slug           string       `json:"slug"`
	Subtitle       *string      `json:"subtitle,omitempty"`
	BotanicalName  *string      `json:"botanical_name,omitempty"`
	Description    *string      `json:"description,omitempty"`
	Position       int          `json:"position"`
	Active         bool         `json:"active"`
	Visible        bool         `json:"visible"`
	InStock        bool         `json:"in_stock"`
	Organic        bool         `json:"organic"`
	Taxable        bool         `json:"taxable"`
	Featured       bool         `json:"featured"`
	Favorite       bool         `json:"favorite"`
	NewFor         *int         `json:"new_for,omitempty"`
	OpenPollinated *bool        `json:"open_pollinated,omitempty"`
	MaturationDays *string      `json:"maturation_days,omitempty"`
	Packets        []PacketView `json:"packets"`
}

type SectionNode struct {
	ID           uuid.UUID      `json:"id"`
	Name         string         `json:"name"`
	Slug         string         `json:"slug"`
	Subtitle     *string        `json:"subtitle,omitempty"`
	Description  *string        `json:"description,omitempty"`
	Position     int            `json:"position"`
	ThumbnailKey *string        `json:"thumbnail_key,omitempty"`
	Cultivars    []CultivarView `json:"cultivars"`
	Children     []*SectionNode `json:"children"`
}

// GrowsWithRef is a resolved "grows well with" target.
type GrowsWithRef struct {
	Kind enums.CatalogNodeKind `json:"kind"`
	ID   uuid.UUID             `json:"id"`
	Name string                `json:"name"`
	Slug string                `json:"slug"`
}

// CommonNameView partitions the cultivars of a common name into featured ones,
// the section tree and the loose direct children.
type CommonNameView struct {
	ID             uuid.UUID       `json:"id"`
	IndexID        uuid.UUID       `json:"index_id"`
	Name           string          `json:"name"`
	Slug           string          `json:"slug"`
	Subtitle       *string         `json:"subtitle,omitempty"`
	BotanicalNames *string         `json:"botanical_names,omitempty"`
	Sunlight       *enums.Sunlight `json:"sunlight,omitempty"`
	Instructions   *string         `json:"instructions,omitempty"`
	Description    *string         `json:"description,omitempty"`
	Visible        bool            `json:"visible"`
	Featured       []CultivarView  `json:"featured"`
	Sections       []*SectionNode  `json:"sections"`
	Individuals    []CultivarView  `json:"individuals"`
	GrowsWith      []GrowsWithRef  `json:"grows_with"`
}

type CommonNameSummary struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	Subtitle      *string   `json:"subtitle,omitempty"`
	Visible       bool      `json:"visible"`
	CultivarCount int       `json:"cultivar_count"`
}

type IndexView struct {
	ID          uuid.UUID           `json:"id"`
	Name        string              `json:"name"`
	Slug        string              `json:"slug"`
	Description *string             `json:"description,omitempty"`
	CommonNames []CommonNameSummary `json:"common_names"`
}

type IndexSummary struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description,omitempty"`
}

type Breadcrumb struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

// CultivarDetail backs the single cultivar page.
type CultivarDetail struct {
	CultivarView
	CommonName Breadcrumb     `json:"common_name"`
	Sections   []Breadcrumb   `json:"sections"`
	GrowsWith  []GrowsWithRef `json:"grows_with"`
}

func newPacketView(p models.Packet) PacketView {
	return PacketView{
		ID:       p.ID,
		SKU:      p.SKU,
		Price:    money.FromCents(p.PriceCents),
		Quantity: p.Quantity,
		Units:    p.Units,
		Label:    p.Label(),
	}
}

func newCultivarView(c models.Cultivar) CultivarView {
	packets := sortedPackets(c.Packets)
	views := make([]PacketView, 0, len(packets))
	for _, p := range packets {
		views = append(views, newPacketView(p))
	}
	return CultivarView{
		ID:             c.ID,
		SectionID:      c.SectionID,
		Name:           c.Name,
		Slug:           c.Slug,
		Subtitle:       c.Subtitle,
		BotanicalName:  c.BotanicalName,
		Description:    c.Description,
		Position:       c.Position,
		Active:         c.Active,
		Visible:        c.Visible,
		InStock:        c.InStock,
		Organic:        c.Organic,
		Taxable:        c.Taxable,
		Featured:       c.Featured,
		Favorite:       c.Favorite,
		NewFor:         c.NewFor,
		OpenPollinated: c.OpenPollinated,
		MaturationDays: c.MaturationDays,
		Packets:        views,
	}
}

func newSectionNode(s models.Section) *SectionNode {
	return &SectionNode{
		ID:           s.ID,
		Name:         s.Name,
		Slug:         s.Slug,
		Subtitle:     s.Subtitle,
		Description:  s.Description,
		Position:     s.Position,
		ThumbnailKey: s.ThumbnailKey,
		Cultivars:    []CultivarView{},
		Children:     []*SectionNode{},
	}
}
