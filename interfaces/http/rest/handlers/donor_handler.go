package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"savinggrace-backend/domain/entities"
	dynamostore "savinggrace-backend/infrastructure/persistence/dynamodb"
	"savinggrace-backend/pkg/common"
	apperrors "savinggrace-backend/pkg/errors"
	"savinggrace-backend/pkg/utils"
)

// DonorHandler serves donor CRUD and the by-donor donation listing.
type DonorHandler struct {
	store      *dynamostore.Store
	planner    *dynamostore.Planner
	logger     *zap.Logger
	errHandler *apperrors.ErrorHandler
}

// NewDonorHandler creates a donor handler.
func NewDonorHandler(store *dynamostore.Store, planner *dynamostore.Planner, logger *zap.Logger, errHandler *apperrors.ErrorHandler) *DonorHandler {
	return &DonorHandler{store: store, planner: planner, logger: logger, errHandler: errHandler}
}

// CreateDonorRequest is the POST /donors payload.
type CreateDonorRequest struct {
	Name         string `json:"name" validate:"required,min=1,max=200"`
	DonorType    string `json:"donor_type" validate:"required,oneof=business individual organization"`
	ContactEmail string `json:"contact_email" validate:"omitempty,email"`
	ContactPhone string `json:"contact_phone" validate:"omitempty,max=30"`
	Address      string `json:"address" validate:"omitempty,max=500"`
	Notes        string `json:"notes" validate:"omitempty,max=2000"`
}

// CreateDonor handles POST /donors.
func (h *DonorHandler) CreateDonor(w http.ResponseWriter, r *http.Request) {
	var req CreateDonorRequest
	if err := parseBody(r, &req); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	donor := entities.Donor{
		DonorID:      uuid.NewString(),
		Name:         strings.TrimSpace(req.Name),
		DonorType:    entities.DonorType(req.DonorType),
		ContactEmail: strings.ToLower(strings.TrimSpace(req.ContactEmail)),
		ContactPhone: strings.TrimSpace(req.ContactPhone),
		Address:      strings.TrimSpace(req.Address),
		Notes:        req.Notes,
		Active:       true,
	}
	donor.SetKeys()

	item, err := marshalRecord(donor)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	stored, err := h.store.Put(r.Context(), item)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	if err := unmarshalOne(stored, &donor); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("Donor created",
		zap.String("donor_id", donor.DonorID),
		zap.String("donor_type", string(donor.DonorType)),
	)

	common.RespondJSON(w, http.StatusCreated, donor)
}

// GetDonor handles GET /donors/{id}.
func (h *DonorHandler) GetDonor(w http.ResponseWriter, r *http.Request) {
	donorID := chi.URLParam(r, "id")

	donor, err := h.fetchDonor(r, donorID)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, donor)
}

// UpdateDonorRequest is the PUT /donors/{id} payload. Every field is
// optional; only present fields change.
type UpdateDonorRequest struct {
	Name         *string `json:"name" validate:"omitempty,min=1,max=200"`
	DonorType    *string `json:"donor_type" validate:"omitempty,oneof=business individual organization"`
	ContactEmail *string `json:"contact_email" validate:"omitempty,email"`
	ContactPhone *string `json:"contact_phone" validate:"omitempty,max=30"`
	Address      *string `json:"address" validate:"omitempty,max=500"`
	Notes        *string `json:"notes" validate:"omitempty,max=2000"`
	Active       *bool   `json:"active"`
}

// UpdateDonor handles PUT /donors/{id}.
func (h *DonorHandler) UpdateDonor(w http.ResponseWriter, r *http.Request) {
	donorID := chi.URLParam(r, "id")

	var req UpdateDonorRequest
	if err := parseBody(r, &req); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		updates["name"] = name
		// Keep the name-ordered index aligned.
		updates[entities.AttrGSI1SK] = strings.ToLower(name)
	}
	if req.DonorType != nil {
		updates["donor_type"] = *req.DonorType
	}
	if req.ContactEmail != nil {
		updates["contact_email"] = strings.ToLower(strings.TrimSpace(*req.ContactEmail))
	}
	if req.ContactPhone != nil {
		updates["contact_phone"] = strings.TrimSpace(*req.ContactPhone)
	}
	if req.Address != nil {
		updates["address"] = strings.TrimSpace(*req.Address)
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if len(updates) == 0 {
		h.errHandler.Handle(w, r, apperrors.NewValidationError("no fields to update"))
		return
	}

	pk, sk := entities.DonorKey(donorID)
	stored, err := h.store.Update(r.Context(), pk, sk, updates, nil)
	if err != nil {
		if apperrors.IsNotFound(err) {
			err = apperrors.NewNotFoundError("Donor", donorID)
		}
		h.errHandler.Handle(w, r, err)
		return
	}

	var donor entities.Donor
	if err := unmarshalOne(stored, &donor); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, donor)
}

// ListDonors handles GET /donors, ordered by name.
func (h *DonorHandler) ListDonors(w http.ResponseWriter, r *http.Request) {
	params, cursor, err := listRequest(r)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	spec := dynamostore.ListSpec{
		Relation:  entities.CollectionDonors,
		Page:      params.Page,
		PageSize:  params.PageSize,
		Cursor:    cursor,
		Ascending: true,
	}
	if donorType := r.URL.Query().Get("donor_type"); donorType != "" {
		if err := utils.ValidateEnum("donor_type", donorType, entities.DonorTypes); err != nil {
			h.errHandler.Handle(w, r, err)
			return
		}
		spec.Residual = append(spec.Residual, expressionEquals("donor_type", donorType))
	}

	result, err := h.planner.List(r.Context(), spec)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	donors, err := unmarshalAll[entities.Donor](result.Items)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK,
		common.NewPaginatedResult(donors, params, result.TotalCount, result.NextToken))
}

// ListDonorDonations handles GET /donors/{id}/donations.
func (h *DonorHandler) ListDonorDonations(w http.ResponseWriter, r *http.Request) {
	donorID := chi.URLParam(r, "id")

	if _, err := h.fetchDonor(r, donorID); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	params, cursor, err := listRequest(r)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	dates, err := queryDateRange(r)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	result, err := h.planner.List(r.Context(), dynamostore.ListSpec{
		Relation:  entities.DonorPrefix + donorID,
		DateRange: dates,
		Page:      params.Page,
		PageSize:  params.PageSize,
		Cursor:    cursor,
	})
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	donations, err := unmarshalAll[entities.Donation](result.Items)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK,
		common.NewPaginatedResult(donations, params, result.TotalCount, result.NextToken))
}

func (h *DonorHandler) fetchDonor(r *http.Request, donorID string) (*entities.Donor, error) {
	pk, sk := entities.DonorKey(donorID)
	item, err := h.store.Get(r.Context(), pk, sk)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFoundError("Donor", donorID)
		}
		return nil, err
	}

	var donor entities.Donor
	if err := unmarshalOne(item, &donor); err != nil {
		return nil, err
	}
	return &donor, nil
}
