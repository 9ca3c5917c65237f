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

// RecipientHandler serves recipient CRUD and distribution history.
type RecipientHandler struct {
	store      *dynamostore.Store
	planner    *dynamostore.Planner
	logger     *zap.Logger
	errHandler *apperrors.ErrorHandler
}

// NewRecipientHandler creates a recipient handler.
func NewRecipientHandler(store *dynamostore.Store, planner *dynamostore.Planner, logger *zap.Logger, errHandler *apperrors.ErrorHandler) *RecipientHandler {
	return &RecipientHandler{store: store, planner: planner, logger: logger, errHandler: errHandler}
}

// CreateRecipientRequest is the POST /recipients payload.
type CreateRecipientRequest struct {
	Name                string   `json:"name" validate:"required,min=1,max=200"`
	ContactEmail        string   `json:"contact_email" validate:"omitempty,email"`
	ContactPhone        string   `json:"contact_phone" validate:"omitempty,max=30"`
	Address             string   `json:"address" validate:"omitempty,max=500"`
	HouseholdSize       int      `json:"household_size" validate:"required,gte=1,lte=50"`
	DietaryRestrictions []string `json:"dietary_restrictions" validate:"omitempty,max=20,dive,max=100"`
	Needs               []string `json:"needs" validate:"omitempty,max=20,dive,max=100"`
	Notes               string   `json:"notes" validate:"omitempty,max=2000"`
}

// CreateRecipient handles POST /recipients.
func (h *RecipientHandler) CreateRecipient(w http.ResponseWriter, r *http.Request) {
	var req CreateRecipientRequest
	if err := parseBody(r, &req); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	recipient := entities.Recipient{
		RecipientID:         uuid.NewString(),
		Name:                strings.TrimSpace(req.Name),
		ContactEmail:        strings.ToLower(strings.TrimSpace(req.ContactEmail)),
		ContactPhone:        strings.TrimSpace(req.ContactPhone),
		Address:             strings.TrimSpace(req.Address),
		HouseholdSize:       req.HouseholdSize,
		DietaryRestrictions: req.DietaryRestrictions,
		Needs:               req.Needs,
		Notes:               req.Notes,
		Active:              true,
	}
	recipient.SetKeys()

	record, err := marshalRecord(recipient)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	stored, err := h.store.Put(r.Context(), record)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	if err := unmarshalOne(stored, &recipient); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("Recipient created", zap.String("recipient_id", recipient.RecipientID))

	common.RespondJSON(w, http.StatusCreated, recipient)
}

// GetRecipient handles GET /recipients/{id}.
func (h *RecipientHandler) GetRecipient(w http.ResponseWriter, r *http.Request) {
	recipientID := chi.URLParam(r, "id")

	recipient, err := h.fetchRecipient(r, recipientID)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, recipient)
}

// UpdateRecipientRequest is the PUT /recipients/{id} payload.
type UpdateRecipientRequest struct {
	Name                *string   `json:"name" validate:"omitempty,min=1,max=200"`
	ContactEmail        *string   `json:"contact_email" validate:"omitempty,email"`
	ContactPhone        *string   `json:"contact_phone" validate:"omitempty,max=30"`
	Address             *string   `json:"address" validate:"omitempty,max=500"`
	HouseholdSize       *int      `json:"household_size" validate:"omitempty,gte=1,lte=50"`
	DietaryRestrictions *[]string `json:"dietary_restrictions" validate:"omitempty,max=20,dive,max=100"`
	Needs               *[]string `json:"needs" validate:"omitempty,max=20,dive,max=100"`
	Notes               *string   `json:"notes" validate:"omitempty,max=2000"`
	Active              *bool     `json:"active"`
}

// UpdateRecipient handles PUT /recipients/{id}.
func (h *RecipientHandler) UpdateRecipient(w http.ResponseWriter, r *http.Request) {
	recipientID := chi.URLParam(r, "id")

	var req UpdateRecipientRequest
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
		updates[entities.AttrGSI1SK] = strings.ToLower(name)
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
	if req.HouseholdSize != nil {
		updates["household_size"] = *req.HouseholdSize
	}
	if req.DietaryRestrictions != nil {
		updates["dietary_restrictions"] = *req.DietaryRestrictions
	}
	if req.Needs != nil {
		updates["needs"] = *req.Needs
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

	pk, sk := entities.RecipientKey(recipientID)
	stored, err := h.store.Update(r.Context(), pk, sk, updates, nil)
	if err != nil {
		if apperrors.IsNotFound(err) {
			err = apperrors.NewNotFoundError("Recipient", recipientID)
		}
		h.errHandler.Handle(w, r, err)
		return
	}

	var recipient entities.Recipient
	if err := unmarshalOne(stored, &recipient); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, recipient)
}

// ListRecipients handles GET /recipients, ordered by name.
func (h *RecipientHandler) ListRecipients(w http.ResponseWriter, r *http.Request) {
	params, cursor, err := listRequest(r)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	spec := dynamostore.ListSpec{
		Relation:  entities.CollectionRecipients,
		Page:      params.Page,
		PageSize:  params.PageSize,
		Cursor:    cursor,
		Ascending: true,
	}
	if active := r.URL.Query().Get("active"); active != "" {
		spec.Residual = append(spec.Residual, expressionEquals("active", active == "true"))
	}

	result, err := h.planner.List(r.Context(), spec)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	recipients, err := unmarshalAll[entities.Recipient](result.Items)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK,
		common.NewPaginatedResult(recipients, params, result.TotalCount, result.NextToken))
}

// ListHistory handles GET /recipients/{id}/history: the recipient's
// distributions, most recent first.
func (h *RecipientHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	recipientID := chi.URLParam(r, "id")

	if _, err := h.fetchRecipient(r, recipientID); err != nil {
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
		Relation:  entities.RecipientPrefix + recipientID,
		DateRange: dates,
		Page:      params.Page,
		PageSize:  params.PageSize,
		Cursor:    cursor,
	})
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	history, err := unmarshalAll[entities.DistributionMirror](result.Items)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK,
		common.NewPaginatedResult(history, params, result.TotalCount, result.NextToken))
}

func (h *RecipientHandler) fetchRecipient(r *http.Request, recipientID string) (*entities.Recipient, error) {
	pk, sk := entities.RecipientKey(recipientID)
	item, err := h.store.Get(r.Context(), pk, sk)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFoundError("Recipient", recipientID)
		}
		return nil, err
	}

	var recipient entities.Recipient
	if err := unmarshalOne(item, &recipient); err != nil {
		return nil, err
	}
	return &recipient, nil
}
