package controllers

import (
	"net/http"
	"strings"

	"github.com/greenrow/seedshop-backend/api/responses"
	"github.com/greenrow/seedshop-backend/api/validators"
	"github.com/greenrow/seedshop-backend/internal/catalog"
	"github.com/greenrow/seedshop-backend/pkg/enums"
	pkgerrors "github.com/greenrow/seedshop-backend/pkg/errors"
	"github.com/greenrow/seedshop-backend/pkg/logger"
)

// PATCH bodies: absent keys are left alone, an empty string clears optional text.

type updateIndexRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Slug        *string `json:"slug,omitempty" validate:"omitempty,max=128"`
	Description *string `json:"description,omitempty"`
}

type updateCommonNameRequest struct {
	Name           *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Slug           *string `json:"slug,omitempty" validate:"omitempty,max=128"`
	Subtitle       *string `json:"subtitle,omitempty"`
	BotanicalNames *string `json:"botanical_names,omitempty"`
	Sunlight       *string `json:"sunlight,omitempty"`
	Instructions   *string `json:"instructions,omitempty"`
	Description    *string `json:"description,omitempty"`
	Visible        *bool   `json:"visible,omitempty"`
}

type updateSectionRequest struct {
	Name         *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Slug         *string `json:"slug,omitempty" validate:"omitempty,max=128"`
	Subtitle     *string `json:"subtitle,omitempty"`
	Description  *string `json:"description,omitempty"`
	ThumbnailKey *string `json:"thumbnail_key,omitempty"`
}

type updateCultivarRequest struct {
	Name            *string   `json:"name,omitempty" validate:"omitempty,max=200"`
	Slug            *string   `json:"slug,omitempty" validate:"omitempty,max=128"`
	Subtitle        *string   `json:"subtitle,omitempty"`
	BotanicalName   *string   `json:"botanical_name,omitempty"`
	Description     *string   `json:"description,omitempty"`
	NewFor          *int      `json:"new_for,omitempty"`
	OpenPollinated  *bool     `json:"open_pollinated,omitempty"`
	MaturationDays  *string   `json:"maturation_days,omitempty"`
	NoshipCountries *[]string `json:"noship_countries,omitempty"`
	NoshipStates    *[]string `json:"noship_states,omitempty"`
}

type updatePacketRequest struct {
	SKU      *string `json:"sku,omitempty" validate:"omitempty,max=64"`
	Price    *string `json:"price,omitempty"`
	Quantity *string `json:"quantity,omitempty"`
	Units    *string `json:"units,omitempty"`
}

func AdminUpdateIndex(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("catalog admin"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "indexId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req updateIndexRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		index, err := svc.UpdateIndex(r.Context(), id, catalog.UpdateIndexInput{
			Name:        req.Name,
			Slug:        req.Slug,
			Description: req.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newIndexResponse(index))
	}
}

func AdminUpdateCommonName(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("catalog admin"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "commonNameId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req updateCommonNameRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := catalog.UpdateCommonNameInput{
			Name:           req.Name,
			Slug:           req.Slug,
			Subtitle:       req.Subtitle,
			BotanicalNames: req.BotanicalNames,
			Instructions:   req.Instructions,
			Description:    req.Description,
			Visible:        req.Visible,
		}
		if req.Sunlight != nil {
			raw := strings.TrimSpace(*req.Sunlight)
			if raw == "" {
				input.ClearSunlight = true
			} else {
				parsed, err := enums.ParseSunlight(raw)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sunlight"))
					return
				}
				input.Sunlight = &parsed
			}
		}
		commonName, err := svc.UpdateCommonName(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCommonNameResponse(commonName))
	}
}

func AdminUpdateSection(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("catalog admin"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "sectionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req updateSectionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		section, err := svc.UpdateSection(r.Context(), id, catalog.UpdateSectionInput{
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
		responses.WriteSuccess(w, newSectionResponse(section))
	}
}

func AdminUpdateCultivar(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("catalog admin"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "cultivarId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req updateCultivarRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := catalog.UpdateCultivarInput{
			Name:           req.Name,
			Slug:           req.Slug,
			Subtitle:       req.Subtitle,
			BotanicalName:  req.BotanicalName,
			Description:    req.Description,
			NewFor:         req.NewFor,
			OpenPollinated: req.OpenPollinated,
			MaturationDays: req.MaturationDays,
		}
		if req.NoshipCountries != nil {
			input.NoshipCountries = append([]string{}, *req.NoshipCountries...)
		}
		if req.NoshipStates != nil {
			input.NoshipStates = append([]string{}, *req.NoshipStates...)
		}
		cultivar, err := svc.UpdateCultivar(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCultivarResponse(cultivar))
	}
}

func AdminUpdatePacket(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("catalog admin"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "packetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req updatePacketRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		packet, err := svc.UpdatePacket(r.Context(), id, catalog.UpdatePacketInput{
			SKU:      req.SKU,
			Price:    req.Price,
			Quantity: req.Quantity,
			Units:    req.Units,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPacketResponse(packet))
	}
}

// AdminDeleteCatalogNode removes the index, common name, section or cultivar
// named by the idParam path parameter.
func AdminDeleteCatalogNode(svc catalog.AdminService, kind enums.CatalogNodeKind, idParam string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("catalog admin"))
			return
		}
		id, err := validators.ParseUUIDParam(r, idParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), kind, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func AdminDeletePacket(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("catalog admin"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "packetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeletePacket(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
