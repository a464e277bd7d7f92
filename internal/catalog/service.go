package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/greenrow/seedshop-backend/pkg/db/models"
	"github.com/greenrow/seedshop-backend/pkg/enums"
	pkgerrors "github.com/greenrow/seedshop-backend/pkg/errors"
	"github.com/greenrow/seedshop-backend/pkg/logger"
)

// Service serves the shopper-facing catalog pages.
type Service interface {
	ListIndexes(ctx context.Context) ([]IndexSummary, error)
	GetIndex(ctx context.Context, slug string, canManage bool) (*IndexView, error)
	GetCommonName(ctx context.Context, indexSlug, commonNameSlug string, canManage bool) (*CommonNameView, error)
	GetCultivar(ctx context.Context, indexSlug, commonNameSlug, cultivarSlug string, canManage bool) (*CultivarDetail, error)
}

type catalogReader interface {
	ListIndexes(ctx context.Context) ([]models.Index, error)
	FindIndexBySlug(ctx context.Context, slug string) (*models.Index, error)
	ListCommonNames(ctx context.Context, indexID uuid.UUID) ([]models.CommonName, error)
	FindCommonName(ctx context.Context, indexID uuid.UUID, slug string) (*models.CommonName, error)
	ListSections(ctx context.Context, commonNameID uuid.UUID) ([]models.Section, error)
	ListCultivars(ctx context.Context, commonNameID uuid.UUID) ([]models.Cultivar, error)
	FindCultivar(ctx context.Context, commonNameID uuid.UUID, slug string) (*models.Cultivar, error)
	CountPublicCultivars(ctx context.Context, commonNameIDs []uuid.UUID) (map[uuid.UUID]int, error)
	ListGrowsWith(ctx context.Context, subject enums.CatalogNodeKind, subjectID uuid.UUID) ([]models.GrowsWithLink, error)
	ResolveGrowsWith(ctx context.Context, links []models.GrowsWithLink) ([]GrowsWithRef, error)
}

type composeObserver interface {
	ObserveCompose(view string, elapsed time.Duration)
}

type service struct {
	repo    catalogReader
	logg    *logger.Logger
	metrics composeObserver
}

// NewService wires the read side of the catalog. metrics may be nil.
func NewService(repo catalogReader, logg *logger.Logger, metrics composeObserver) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg, metrics: metrics}, nil
}

func (s *service) ListIndexes(ctx context.Context) ([]IndexSummary, error) {
	rows, err := s.repo.ListIndexes(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list indexes")
	}
	out := make([]IndexSummary, 0, len(rows))
	for _, idx := range rows {
		out = append(out, IndexSummary{ID: idx.ID, Name: idx.Name, Slug: idx.Slug, Description: idx.Description})
	}
	return out, nil
}

func (s *service) GetIndex(ctx context.Context, slug string, canManage bool) (*IndexView, error) {
	start := time.Now()
	idx, err := s.repo.FindIndexBySlug(ctx, slug)
	if err != nil {
		return nil, lookupError(err, "index")
	}
	names, err := s.repo.ListCommonNames(ctx, idx.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list common names")
	}
	ids := make([]uuid.UUID, 0, len(names))
	for _, cn := range names {
		ids = append(ids, cn.ID)
	}
	counts, err := s.repo.CountPublicCultivars(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count cultivars")
	}
	view := ComposeIndex(IndexTree{Index: *idx, CommonNames: names, PublicCounts: counts}, canManage)
	s.observe("index", start)
	return view, nil
}

func (s *service) GetCommonName(ctx context.Context, indexSlug, commonNameSlug string, canManage bool) (*CommonNameView, error) {
	start := time.Now()
	tree, err := s.loadTree(ctx, indexSlug, commonNameSlug, canManage)
	if err != nil {
		return nil, err
	}
	view, err := Compose(*tree, canManage)
	if err != nil {
		s.logStructural(ctx, err, tree.CommonName.ID)
		return nil, err
	}
	refs, err := s.growsWith(ctx, enums.CatalogNodeCommonName, tree.CommonName.ID)
	if err != nil {
		return nil, err
	}
	view.GrowsWith = refs
	s.observe("common_name", start)
	return view, nil
}

func (s *service) GetCultivar(ctx context.Context, indexSlug, commonNameSlug, cultivarSlug string, canManage bool) (*CultivarDetail, error) {
	cn, err := s.findCommonName(ctx, indexSlug, commonNameSlug, canManage)
	if err != nil {
		return nil, err
	}
	cv, err := s.repo.FindCultivar(ctx, cn.ID, cultivarSlug)
	if err != nil {
		return nil, lookupError(err, "cultivar")
	}
	if !cv.Public() && !canManage {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cultivar not found")
	}

	detail := &CultivarDetail{
		CultivarView: newCultivarView(*cv),
		CommonName:   Breadcrumb{ID: cn.ID, Name: cn.Name, Slug: cn.Slug},
		Sections:     []Breadcrumb{},
	}
	if cv.SectionID != nil {
		sections, err := s.repo.ListSections(ctx, cn.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sections")
		}
		path, err := SectionPath(sections, *cv.SectionID)
		if err != nil {
			s.logStructural(ctx, err, cn.ID)
			return nil, err
		}
		for _, sec := range path {
			detail.Sections = append(detail.Sections, Breadcrumb{ID: sec.ID, Name: sec.Name, Slug: sec.Slug})
		}
	}
	refs, err := s.growsWith(ctx, enums.CatalogNodeCultivar, cv.ID)
	if err != nil {
		return nil, err
	}
	detail.GrowsWith = refs
	return detail, nil
}

func (s *service) findCommonName(ctx context.Context, indexSlug, commonNameSlug string, canManage bool) (*models.CommonName, error) {
	idx, err := s.repo.FindIndexBySlug(ctx, indexSlug)
	if err != nil {
		return nil, lookupError(err, "index")
	}
	cn, err := s.repo.FindCommonName(ctx, idx.ID, commonNameSlug)
	if err != nil {
		return nil, lookupError(err, "common name")
	}
	if !cn.Visible && !canManage {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "common name not found")
	}
	return cn, nil
}

func (s *service) loadTree(ctx context.Context, indexSlug, commonNameSlug string, canManage bool) (*CommonNameTree, error) {
	cn, err := s.findCommonName(ctx, indexSlug, commonNameSlug, canManage)
	if err != nil {
		return nil, err
	}
	sections, err := s.repo.ListSections(ctx, cn.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sections")
	}
	cultivars, err := s.repo.ListCultivars(ctx, cn.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cultivars")
	}
	return &CommonNameTree{CommonName: *cn, Sections: sections, Cultivars: cultivars}, nil
}

func (s *service) growsWith(ctx context.Context, kind enums.CatalogNodeKind, id uuid.UUID) ([]GrowsWithRef, error) {
	links, err := s.repo.ListGrowsWith(ctx, kind, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list grows-with")
	}
	if len(links) == 0 {
		return []GrowsWithRef{}, nil
	}
	refs, err := s.repo.ResolveGrowsWith(ctx, links)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve grows-with")
	}
	return refs, nil
}

func (s *service) observe(view string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveCompose(view, time.Since(start))
	}
}

func (s *service) logStructural(ctx context.Context, err error, commonNameID uuid.UUID) {
	ctx = s.logg.WithField(ctx, "common_name_id", commonNameID.String())
	s.logg.Error(ctx, "catalog structure rejected", err)
}

func lookupError(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, entity+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+entity)
}
