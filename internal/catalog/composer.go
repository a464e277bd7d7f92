package catalog

import (
	"sort"

	"github.com/google/uuid"

	"github.com/greenrow/seedshop-backend/internal/positions"
	"github.com/greenrow/seedshop-backend/pkg/db/models"
	pkgerrors "github.com/greenrow/seedshop-backend/pkg/errors"
)

// MaxDepth bounds section nesting. The deepest tree observed in practice is two.
const MaxDepth = 64

// Compose builds the common name view. It is pure: the tree is a snapshot and
// canManage is the caller's "manage catalog" capability. Without it, only
// active and visible cultivars appear, and sections with no such cultivar
// anywhere beneath them are dropped.
func Compose(tree CommonNameTree, canManage bool) (*CommonNameView, error) {
	cn := tree.CommonName
	shows := func(c models.Cultivar) bool { return canManage || c.Public() }

	order, children, err := walkSections(cn.ID, tree.Sections)
	if err != nil {
		return nil, err
	}

	sectionIDs := make(map[uuid.UUID]struct{}, len(order))
	for _, s := range order {
		sectionIDs[s.ID] = struct{}{}
	}

	// nil key holds the common name's direct cultivars.
	byContainer := map[uuid.UUID][]models.Cultivar{}
	var direct []models.Cultivar
	for _, c := range tree.Cultivars {
		if c.CommonNameID != cn.ID {
			return nil, structural("cultivar belongs to another common name", c.ID)
		}
		if c.SectionID == nil {
			direct = append(direct, c)
			continue
		}
		if _, ok := sectionIDs[*c.SectionID]; !ok {
			return nil, structural("cultivar references a section outside the common name", c.ID)
		}
		byContainer[*c.SectionID] = append(byContainer[*c.SectionID], c)
	}
	sortCultivars(direct)
	for id := range byContainer {
		sortCultivars(byContainer[id])
	}

	view := &CommonNameView{
		ID:             cn.ID,
		IndexID:        cn.IndexID,
		Name:           cn.Name,
		Slug:           cn.Slug,
		Subtitle:       cn.Subtitle,
		BotanicalNames: cn.BotanicalNames,
		Sunlight:       cn.Sunlight,
		Instructions:   cn.Instructions,
		Description:    cn.Description,
		Visible:        cn.Visible,
		Featured:       []CultivarView{},
		Sections:       []*SectionNode{},
		Individuals:    []CultivarView{},
		GrowsWith:      []GrowsWithRef{},
	}

	for _, c := range direct {
		if !shows(c) {
			continue
		}
		if c.Featured {
			view.Featured = append(view.Featured, newCultivarView(c))
		} else {
			view.Individuals = append(view.Individuals, newCultivarView(c))
		}
	}
	for _, s := range order {
		for _, c := range byContainer[s.ID] {
			if c.Featured && shows(c) {
				view.Featured = append(view.Featured, newCultivarView(c))
			}
		}
	}

	// Reverse pre-order visits every child before its parent.
	nodes := make(map[uuid.UUID]*SectionNode, len(order))
	populated := make(map[uuid.UUID]bool, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		s := order[i]
		node := newSectionNode(s)
		for _, c := range byContainer[s.ID] {
			// Featured cultivars count even though they render above the sections.
			if c.Public() {
				populated[s.ID] = true
			}
			if c.Featured || !shows(c) {
				continue
			}
			node.Cultivars = append(node.Cultivars, newCultivarView(c))
		}
		for _, child := range children[s.ID] {
			if populated[child.ID] {
				populated[s.ID] = true
			}
			if n, ok := nodes[child.ID]; ok {
				node.Children = append(node.Children, n)
			}
		}
		if canManage || populated[s.ID] {
			nodes[s.ID] = node
		}
	}
	for _, s := range children[uuid.Nil] {
		if n, ok := nodes[s.ID]; ok {
			view.Sections = append(view.Sections, n)
		}
	}

	return view, nil
}

type frame struct {
	section models.Section
	depth   int
}

// walkSections returns the sections in pre-order, siblings by position, with
// each parent's sorted children keyed by id (uuid.Nil for the top level).
func walkSections(commonNameID uuid.UUID, sections []models.Section) ([]models.Section, map[uuid.UUID][]models.Section, error) {
	known := make(map[uuid.UUID]struct{}, len(sections))
	for _, s := range sections {
		if s.CommonNameID != commonNameID {
			return nil, nil, structural("section belongs to another common name", s.ID)
		}
		if _, dup := known[s.ID]; dup {
			return nil, nil, structural("section listed twice", s.ID)
		}
		known[s.ID] = struct{}{}
	}

	children := map[uuid.UUID][]models.Section{}
	for _, s := range sections {
		parent := uuid.Nil
		if s.ParentID != nil {
			parent = *s.ParentID
			if _, ok := known[parent]; !ok {
				return nil, nil, structural("section parent is outside the common name", s.ID)
			}
		}
		children[parent] = append(children[parent], s)
	}
	for id := range children {
		sortSections(children[id])
	}

	order := make([]models.Section, 0, len(sections))
	stack := make([]frame, 0, len(sections))
	pushChildren := func(parent uuid.UUID, depth int) {
		kids := children[parent]
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, frame{section: kids[i], depth: depth})
		}
	}
	pushChildren(uuid.Nil, 1)
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.depth > MaxDepth {
			return nil, nil, structural("section nesting exceeds maximum depth", top.section.ID)
		}
		order = append(order, top.section)
		pushChildren(top.section.ID, top.depth+1)
	}

	if len(order) != len(sections) {
		return nil, nil, pkgerrors.New(pkgerrors.CodeStructural, "section graph contains a cycle").
			WithDetails(map[string]any{"unreachable": len(sections) - len(order)})
	}
	return order, children, nil
}

// ComposeIndex lists an index's common names in position order. Hidden common
// names are dropped unless canManage.
func ComposeIndex(tree IndexTree, canManage bool) *IndexView {
	names := make([]models.CommonName, len(tree.CommonNames))
	copy(names, tree.CommonNames)
	sort.SliceStable(names, func(i, j int) bool {
		return positions.Less(
			positions.Item{ID: names[i].ID, Position: names[i].Position},
			positions.Item{ID: names[j].ID, Position: names[j].Position},
		)
	})

	view := &IndexView{
		ID:          tree.Index.ID,
		Name:        tree.Index.Name,
		Slug:        tree.Index.Slug,
		Description: tree.Index.Description,
		CommonNames: []CommonNameSummary{},
	}
	for _, cn := range names {
		if !cn.Visible && !canManage {
			continue
		}
		view.CommonNames = append(view.CommonNames, CommonNameSummary{
			ID:            cn.ID,
			Name:          cn.Name,
			Slug:          cn.Slug,
			Subtitle:      cn.Subtitle,
			Visible:       cn.Visible,
			CultivarCount: tree.PublicCounts[cn.ID],
		})
	}
	return view
}

// SectionPath returns the chain of sections from the top level down to
// sectionID, following parent links in sections.
func SectionPath(sections []models.Section, sectionID uuid.UUID) ([]models.Section, error) {
	byID := make(map[uuid.UUID]models.Section, len(sections))
	for _, s := range sections {
		byID[s.ID] = s
	}
	var path []models.Section
	current := sectionID
	for depth := 0; ; depth++ {
		if depth >= MaxDepth {
			return nil, structural("section nesting exceeds maximum depth", sectionID)
		}
		s, ok := byID[current]
		if !ok {
			return nil, structural("section chain is broken", current)
		}
		path = append(path, s)
		if s.ParentID == nil {
			break
		}
		current = *s.ParentID
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

func sortSections(s []models.Section) {
	sort.SliceStable(s, func(i, j int) bool {
		return positions.Less(
			positions.Item{ID: s[i].ID, Position: s[i].Position},
			positions.Item{ID: s[j].ID, Position: s[j].Position},
		)
	})
}

func sortCultivars(c []models.Cultivar) {
	sort.SliceStable(c, func(i, j int) bool {
		return positions.Less(
			positions.Item{ID: c[i].ID, Position: c[i].Position},
			positions.Item{ID: c[j].ID, Position: c[j].Position},
		)
	})
}

func sortedPackets(p []models.Packet) []models.Packet {
	out := make([]models.Packet, len(p))
	copy(out, p)
	sort.SliceStable(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out
}

func structural(msg string, id uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeStructural, msg).WithDetails(map[string]any{"id": id.String()})
}
