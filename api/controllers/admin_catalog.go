package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/greenrow/seedshop-backend/api/responses"
	"github.com/greenrow/seedshop-backend/api/validators"
	"github.com/greenrow/seedshop-backend/internal/catalog"
	"github.com/greenrow/seedshop-backend/internal/positions"
	"github.com/greenrow/seedshop-backend/pkg/db/models"
	"github.com/greenrow/seedshop-backend/pkg/enums"
	pkgerrors "github.com/greenrow/seedshop-backend/pkg/errors"
	"github.com/greenrow/seedshop-backend/pkg/logger"
	"github.com/greenrow/seedshop-backend/pkg/types"
)

type createIndexRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Slug        string  `json:"slug" validate:"required,max=128"`
	Description *string `json:"description,omitempty"`
}

type createCommonNameRequest struct {
	IndexID        uuid.UUID `json:"index_id" validate:"required"`
	Name           string    `json:"name" validate:"required,max=200"`
	Slug           string    `json:"slug" validate:"required,max=128"`
	Subtitle       *string   `json:"subtitle,omitempty"`
	BotanicalNames *string   `json:"botanical_names,omitempty"`
	Sunlight       *string   `json:"sunlight,omitempty"`
	Instructions   *string   `json:"instructions,omitempty"`
	Description    *string   `json:"description,omitempty"`
	Visible        bool      `json:"visible"`
}

type createSectionRequest struct {
	CommonNameID uuid.UUID  `json:"common_name_id" validate:"required"`
	ParentID     *uuid.UUID `json:"parent_id,omitempty"`
	Name         string     `json:"name" validate:"required,max=200"`
	Slug         string     `json:"slug" validate:"required,max=128"`
	Subtitle     *string    `json:"subtitle,omitempty"`
	Description  *string    `json:"description,omitempty"`
	ThumbnailKey *string    `json:"thumbnail_key,omitempty"`
}

type createCultivarRequest struct {
	CommonNameID    uuid.UUID  `json:"common_name_id" validate:"required"`
	SectionID       *uuid.UUID `json:"section_id,omitempty"`
	Name            string     `json:"name" validate:"required,max=200"`
	Slug            string     `json:"slug" validate:"required,max=128"`
	Subtitle        *string    `json:"subtitle,omitempty"`
	BotanicalName   *string    `json:"botanical_name,omitempty"`
	Description     *string    `json:"description,omitempty"`
	Active          bool       `json:"active"`
	Visible         bool       `json:"visible"`
	InStock         bool       `json:"in_stock"`
	Organic         bool       `json:"organic"`
	Taxable         bool       `json:"taxable"`
	Featured        bool       `json:"featured"`
	Favorite        bool       `json:"favorite"`
	NewFor          *int       `json:"new_for,omitempty"`
	OpenPollinated  *bool      `json:"open_pollinated,omitempty"`
	MaturationDays  *string    `json:"maturation_days,omitempty"`
	NoshipCountries []string   `json:"noship_countries,omitempty" validate:"omitempty,dive,len=2"`
	NoshipStates    []string   `json:"noship_states,omitempty"`
}

type createPacketRequest struct {
	CultivarID uuid.UUID `json:"cultivar_id" validate:"required"`
	SKU        string    `json:"sku" validate:"required,max=64"`
	Price      string    `json:"price" validate:"required"`
	Quantity   string    `json:"quantity" validate:"required"`
	Units      *string   `json:"units,omitempty"`
}

type cultivarFlagsRequest struct {
	Active   *bool `json:"active,omitempty"`
	Visible  *bool `json:"visible,omitempty"`
	InStock  *bool `json:"in_stock,omitempty"`
	Organic  *bool `json:"organic,omitempty"`
	Taxable  *bool `json:"taxable,omitempty"`
	Featured *bool `json:"featured,omitempty"`
	Favorite *bool `json:"favorite,omitempty"`
}

type moveRequest struct {
	Delta int `json:"delta"`
}

// Reparent bodies must name the new container; null means the top level of
// the common name.
type reparentSectionRequest struct {
	ParentID types.NullableUUID `json:"parent_id"`
}

type reparentCultivarRequest struct {
	SectionID types.NullableUUID `json:"section_id"`
}

type growsWithRequest struct {
	SubjectKind string    `json:"subject_kind" validate:"required"`
	SubjectID   uuid.UUID `json:"subject_id" validate:"required"`
	TargetKind  string    `json:"target_kind" validate:"required"`
	TargetID    uuid.UUID `json:"target_id" validate:"required"`
}

type indexResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description,omitempty"`
	Position    int       `json:"position"`
}

type commonNameResponse struct {
	ID             uuid.UUID       `json:"id"`
	IndexID        uuid.UUID       `json:"index_id"`
	Name           string          `json:"name"`
	Slug           string          `json:"slug"`
	Subtitle       *string         `json:"subtitle,omitempty"`
	BotanicalNames *string         `json:"botanical_names,omitempty"`
	Sunlight       *enums.Sunlight `json:"sunlight,omitempty"`
	Position       int             `json:"position"`
	Visible        bool            `json:"visible"`
}

type sectionResponse struct {
	ID           uuid.UUID  `json:"id"`
	CommonNameID uuid.UUID  `json:"common_name_id"`
	ParentID     *uuid.UUID `json:"parent_id,omitempty"`
	Name         string     `json:"name"`
	Slug         string     `json:"slug"`
	Position     int        `json:"position"`
}

type cultivarResponse struct {
	ID           uuid.UUID  `json:"id"`
	CommonNameID uuid.UUID  `json:"common_name_id"`
	SectionID    *uuid.UUID `json:"section_id,omitempty"`
	Name         string     `json:"name"`
	Slug         string     `json:"slug"`
	Position     int        `json:"position"`
	Active       bool       `json:"active"`
	Visible      bool       `json:"visible"`
	InStock      bool       `json:"in_stock"`
	Organic      bool       `json:"organic"`
	Taxable      bool       `json:"taxable"`
	Featured     bool       `json:"featured"`
	Favorite     bool       `json:"favorite"`
}

type packetResponse struct {
	ID         uuid.UUID       `json:"id"`
	CultivarID uuid.UUID       `json:"cultivar_id"`
	SKU        string          `json:"sku"`
	Price      decimal.Decimal `json:"price"`
	Quantity   string          `json:"quantity"`
	Units      *string         `json:"units,omitempty"`
}

type growsWithResponse struct {
	ID          uuid.UUID             `json:"id"`
	SubjectKind enums.CatalogNodeKind `json:"subject_kind"`
	SubjectID   uuid.UUID             `json:"subject_id"`
	TargetKind  enums.CatalogNodeKind `json:"target_kind"`
	TargetID    uuid.UUID             `json:"target_id"`
}

type positionUpdateResponse struct {
	ID       uuid.UUID `json:"id"`
	Position int       `json:"position"`
}

type moveResponse struct {
	Moved   bool                     `json:"moved"`
	Updates []positionUpdateResponse `json:"updates"`
}

func newIndexResponse(m *models.Index) indexResponse {
	return indexResponse{ID: m.ID, Name: m.Name, Slug: m.Slug, Description: m.Description, Position: m.Position}
}

func newCommonNameResponse(m *models.CommonName) commonNameResponse {
	return commonNameResponse{
		ID:             m.ID,
		IndexID:        m.IndexID,
		Name:           m.Name,
		Slug:           m.Slug,
		Subtitle:       m.Subtitle,
		BotanicalNames: m.BotanicalNames,
		Sunlight:       m.Sunlight,
		Position:       m.Position,
		Visible:        m.Visible,
	}
}

func newSectionResponse(m *models.Section) sectionResponse {
	return sectionResponse{
		ID:           m.ID,
		CommonNameID: m.CommonNameID,
		ParentID:     m.ParentID,
		Name:         m.Name,
		Slug:         m.Slug,
		Position:     m.Position,
	}
}

func newCultivarResponse(m *models.Cultivar) cultivarResponse {
	return cultivarResponse{
		ID:           m.ID,
		CommonNameID: m.CommonNameID,
		SectionID:    m.SectionID,
		Name:         m.Name,
		Slug:         m.Slug,
		Position:     m.Position,
		Active:       m.Active,
		Visible:      m.Visible,
		InStock:      m.InStock,
		Organic:      m.Organic,
		Taxable:      m.Taxable,
		Featured:     m.Featured,
		Favorite:     m.Favorite,
	}
}

func newPacketResponse(m *models.Packet) packetResponse {
	return packetResponse{
		ID:         m.ID,
		CultivarID: m.CultivarID,
		SKU:        m.SKU,
		Price:      decimal.New(m.PriceCents, -2),
		Quantity:   m.Quantity,
		Units:      m.Units,
	}
}

func newMoveResponse(plan positions.Plan) moveResponse {
	updates := make([]positionUpdateResponse, 0, len(plan.Updates))
	for _, u := range plan.Updates {
		updates = append(updates, positionUpdateResponse{ID: u.ID, Position: u.Position})
	}
	return moveResponse{Moved: plan.Moved, Updates: updates}
}

func AdminCreateIndex(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("catalog admin"))
			return
		}
		var req createIndexRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		index, err := svc.CreateIndex(r.Context(), catalog.CreateIndexInput{
			Name:        req.Name,
			Slug:        req.Slug,
			Description: req.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newIndexResponse(index))
	}
}

func AdminCreateCommonName(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("catalog admin"))
			return
		}
		var req createCommonNameRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var sunlight *enums.Sunlight
		if req.Sunlight != nil && strings.TrimSpace(*req.Sunlight) != "" {
			parsed, err := enums.ParseSunlight(strings.TrimSpace(*req.Sunlight))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sunlight"))
				return
			}
			sunlight = &parsed
		}
		commonName, err := svc.CreateCommonName(r.Context(), catalog.CreateCommonNameInput{
			IndexID:        req.IndexID,
			Name:           req.Name,
			Slug:           req.Slug,
			Subtitle:       req.Subtitle,
			BotanicalNames: req.BotanicalNames,
			Sunlight:       sunlight,
			Instructions:   req.Instructions,
			Description:    req.Description,
			Visible:        req.Visible,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newCommonNameResponse(commonName))
	}
}

func AdminCreateSection(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("catalog admin"))
			return
		}
		var req createSectionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		section, err := svc.CreateSection(r.Context(), catalog.CreateSectionInput{
			CommonNameID: req.CommonNameID,
			ParentID:     req.ParentID,
			Name:         req.Name,
			Slug:         req.Slug,
			Subtitle:     req.Subtitle,
			Description:  req.Description,
			ThumbnailKey: req.ThumbnailKey,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newSectionResponse(section))
	}
}

func AdminCreateCultivar(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("catalog admin"))
			return
		}
		var req createCultivarRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cultivar, err := svc.CreateCultivar(r.Context(), catalog.CreateCultivarInput{
			CommonNameID:    req.CommonNameID,
			SectionID:       req.SectionID,
			Name:            req.Name,
			Slug:            req.Slug,
			Subtitle:        req.Subtitle,
			BotanicalName:   req.BotanicalName,
			Description:     req.Description,
			Active:          req.Active,
			Visible:         req.Visible,
			InStock:         req.InStock,
			Organic:         req.Organic,
			Taxable:         req.Taxable,
			Featured:        req.Featured,
			Favorite:        req.Favorite,
			NewFor:          req.NewFor,
			OpenPollinated:  req.OpenPollinated,
			MaturationDays:  req.MaturationDays,
			NoshipCountries: req.NoshipCountries,
			NoshipStates:    req.NoshipStates,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newCultivarResponse(cultivar))
	}
}

func AdminCreatePacket(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("catalog admin"))
			return
		}
		var req createPacketRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		packet, err := svc.CreatePacket(r.Context(), catalog.CreatePacketInput{
			CultivarID: req.CultivarID,
			SKU:        req.SKU,
			Price:      req.Price,
			Quantity:   req.Quantity,
			Units:      req.Units,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newPacketResponse(packet))
	}
}

// AdminUpdateCultivarFlags patches only the flags present in the body.
func AdminUpdateCultivarFlags(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("catalog admin"))
			return
		}
		cultivarID, err := validators.ParseUUIDParam(r, "cultivarId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req cultivarFlagsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cultivar, err := svc.UpdateCultivarFlags(r.Context(), cultivarID, catalog.CultivarFlagsInput{
			Active:   req.Active,
			Visible:  req.Visible,
			InStock:  req.InStock,
			Organic:  req.Organic,
			Taxable:  req.Taxable,
			Featured: req.Featured,
			Favorite: req.Favorite,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCultivarResponse(cultivar))
	}
}

// AdminMove shifts a catalog node among its siblings. The kind comes from the
// path, e.g. /catalog/section/{id}/move.
func AdminMove(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("catalog admin"))
			return
		}
		rawKind, err := validators.ParseSlugParam(r, "kind")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		kind, err := enums.ParseCatalogNodeKind(strings.ReplaceAll(rawKind, "-", "_"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid catalog kind"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req moveRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		plan, err := svc.Move(r.Context(), kind, id, req.Delta)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newMoveResponse(plan))
	}
}

func AdminReparentSection(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("catalog admin"))
			return
		}
		sectionID, err := validators.ParseUUIDParam(r, "sectionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req reparentSectionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !req.ParentID.Present {
			responses.WriteError(r.Context(), logg, w, missingContainer("parent_id"))
			return
		}
		section, err := svc.ReparentSection(r.Context(), sectionID, req.ParentID.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSectionResponse(section))
	}
}

func AdminReparentCultivar(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("catalog admin"))
			return
		}
		cultivarID, err := validators.ParseUUIDParam(r, "cultivarId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req reparentCultivarRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !req.SectionID.Present {
			responses.WriteError(r.Context(), logg, w, missingContainer("section_id"))
			return
		}
		cultivar, err := svc.ReparentCultivar(r.Context(), cultivarID, req.SectionID.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCultivarResponse(cultivar))
	}
}

func AdminAddGrowsWith(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("catalog admin"))
			return
		}
		var req growsWithRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		subjectKind, err := enums.ParseCatalogNodeKind(req.SubjectKind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid subject_kind"))
			return
		}
		targetKind, err := enums.ParseCatalogNodeKind(req.TargetKind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target_kind"))
			return
		}
		link, err := svc.AddGrowsWith(r.Context(), catalog.GrowsWithInput{
			SubjectKind: subjectKind,
			SubjectID:   req.SubjectID,
			TargetKind:  targetKind,
			TargetID:    req.TargetID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, growsWithResponse{
			ID:          link.ID,
			SubjectKind: link.SubjectType,
			SubjectID:   link.SubjectID,
			TargetKind:  link.TargetType,
			TargetID:    link.TargetID,
		})
	}
}

func AdminRemoveGrowsWith(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("catalog admin"))
			return
		}
		linkID, err := validators.ParseUUIDParam(r, "linkId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.RemoveGrowsWith(r.Context(), linkID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func missingContainer(field string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, field+" is required").
		WithDetails(map[string]any{"field": field, "hint": "send null to move to the top level"})
}
