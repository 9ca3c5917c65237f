package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"savinggrace-backend/application/ports"
	"savinggrace-backend/domain/entities"
	dynamostore "savinggrace-backend/infrastructure/persistence/dynamodb"
	"savinggrace-backend/pkg/common"
	apperrors "savinggrace-backend/pkg/errors"
	"savinggrace-backend/pkg/utils"
)

// DonationHandler serves donation intake, listing, status transitions,
// the expiring-items window and receipt links.
type DonationHandler struct {
	store      *dynamostore.Store
	planner    *dynamostore.Planner
	blobs      ports.BlobStore
	signedTTL  time.Duration
	logger     *zap.Logger
	errHandler *apperrors.ErrorHandler
}

// NewDonationHandler creates a donation handler.
func NewDonationHandler(store *dynamostore.Store, planner *dynamostore.Planner, blobs ports.BlobStore, signedTTL time.Duration, logger *zap.Logger, errHandler *apperrors.ErrorHandler) *DonationHandler {
	return &DonationHandler{
		store:      store,
		planner:    planner,
		blobs:      blobs,
		signedTTL:  signedTTL,
		logger:     logger,
		errHandler: errHandler,
	}
}

// DonationItemRequest is one line item of a donation payload.
type DonationItemRequest struct {
	Name           string  `json:"name" validate:"required,min=1,max=200"`
	Category       string  `json:"category" validate:"required"`
	Quantity       float64 `json:"quantity" validate:"required,gt=0"`
	Unit           string  `json:"unit" validate:"required,min=1,max=30"`
	Weight         float64 `json:"weight" validate:"omitempty,gt=0"`
	ExpirationDate string  `json:"expiration_date"`
}

// CreateDonationRequest is the POST /donations payload.
type CreateDonationRequest struct {
	DonorID      string                `json:"donor_id" validate:"required"`
	DonationDate string                `json:"donation_date"`
	Items        []DonationItemRequest `json:"items" validate:"required,min=1,max=100"`
	Notes        string                `json:"notes" validate:"omitempty,max=2000"`
}

func validateDonationItems(items []DonationItemRequest) error {
	for i, item := range items {
		field := func(name string) string { return fmt.Sprintf("items[%d].%s", i, name) }

		if err := utils.ValidateStruct(item); err != nil {
			if appErr := apperrors.GetAppError(err); appErr != nil {
				if f, ok := appErr.Details["field"].(string); ok {
					return apperrors.NewFieldValidationError(field(f), appErr.Message)
				}
			}
			return err
		}
		if err := utils.ValidateEnum(field("category"), item.Category, entities.InventoryCategories); err != nil {
			return err
		}
		if item.ExpirationDate != "" {
			if err := utils.ValidateISODate(field("expiration_date"), item.ExpirationDate); err != nil {
				return err
			}
		}
	}
	return nil
}

// CreateDonation handles POST /donations. New donations start pending
// with stable, zero-based item indices.
func (h *DonationHandler) CreateDonation(w http.ResponseWriter, r *http.Request) {
	var req CreateDonationRequest
	if err := parseBody(r, &req); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	if err := validateDonationItems(req.Items); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	donationDate := req.DonationDate
	if donationDate == "" {
		donationDate = utils.NowRFC3339()
	} else if err := utils.ValidateISODate("donation_date", donationDate); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	} else {
		donationDate = utils.StartOfDay(donationDate)
	}

	// The donor reference must exist; a dangling donor_id is a client
	// error, not a missing resource.
	donorPK, donorSK := entities.DonorKey(req.DonorID)
	donorItem, err := h.store.Get(r.Context(), donorPK, donorSK)
	if err != nil {
		if apperrors.IsNotFound(err) {
			err = apperrors.NewFieldValidationError("donor_id", "donor does not exist")
		}
		h.errHandler.Handle(w, r, err)
		return
	}
	var donor entities.Donor
	if err := unmarshalOne(donorItem, &donor); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	donation := entities.Donation{
		DonationID:   uuid.NewString(),
		DonorID:      req.DonorID,
		DonorName:    donor.Name,
		DonationDate: donationDate,
		Status:       entities.DonationStatusPending,
		ItemCount:    len(req.Items),
		Notes:        req.Notes,
	}
	items := make([]entities.DonationItem, 0, len(req.Items))
	var totalWeight float64
	for i, it := range req.Items {
		expiration := it.ExpirationDate
		if expiration != "" {
			expiration = utils.StartOfDay(expiration)
		}
		items = append(items, entities.DonationItem{
			DonationID:     donation.DonationID,
			ItemIndex:      i,
			Name:           strings.TrimSpace(it.Name),
			Category:       it.Category,
			Quantity:       it.Quantity,
			Unit:           it.Unit,
			Weight:         it.Weight,
			ExpirationDate: expiration,
		})
		totalWeight += it.Weight
	}
	donation.TotalWeight = totalWeight
	donation.SetKeys()

	record, err := marshalRecord(donation)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	stored, err := h.store.Put(r.Context(), record)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	if err := unmarshalOne(stored, &donation); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	for i := range items {
		items[i].SetKeys()
		record, err := marshalRecord(items[i])
		if err != nil {
			h.errHandler.Handle(w, r, err)
			return
		}
		if _, err := h.store.Put(r.Context(), record); err != nil {
			h.errHandler.Handle(w, r, err)
			return
		}
	}

	h.logger.Info("Donation created",
		zap.String("donation_id", donation.DonationID),
		zap.String("donor_id", donation.DonorID),
		zap.Int("items", len(items)),
	)

	common.RespondJSON(w, http.StatusCreated, donationResponse{
		Donation: donation,
		Items:    items,
	})
}

// donationResponse pairs a donation with its line items.
type donationResponse struct {
	entities.Donation
	Items []entities.DonationItem `json:"items"`
}

// GetDonation handles GET /donations/{id}, returning metadata and items.
func (h *DonationHandler) GetDonation(w http.ResponseWriter, r *http.Request) {
	donationID := chi.URLParam(r, "id")

	donation, items, err := h.fetchDonation(r, donationID)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, donationResponse{
		Donation: *donation,
		Items:    items,
	})
}

// ListDonations handles GET /donations with donor_id, status and date
// filters, most recent first.
func (h *DonationHandler) ListDonations(w http.ResponseWriter, r *http.Request) {
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

	spec := dynamostore.ListSpec{
		Collection: entities.CollectionDonations,
		DateRange:  dates,
		Page:       params.Page,
		PageSize:   params.PageSize,
		Cursor:     cursor,
	}
	if donorID := r.URL.Query().Get("donor_id"); donorID != "" {
		spec.Relation = entities.DonorPrefix + donorID
	}
	if status := r.URL.Query().Get("status"); status != "" {
		if err := utils.ValidateEnum("status", status, entities.DonationStatuses); err != nil {
			h.errHandler.Handle(w, r, err)
			return
		}
		spec.Residual = append(spec.Residual, expressionEquals("status", status))
	}

	result, err := h.planner.List(r.Context(), spec)
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

// UpdateDonationRequest is the PUT /donations/{id} payload.
type UpdateDonationRequest struct {
	Status *string `json:"status" validate:"omitempty,oneof=pending received distributed"`
	Notes  *string `json:"notes" validate:"omitempty,max=2000"`
}

// UpdateDonation handles PUT /donations/{id}. Status only moves forward
// through pending, received, distributed.
func (h *DonationHandler) UpdateDonation(w http.ResponseWriter, r *http.Request) {
	donationID := chi.URLParam(r, "id")

	var req UpdateDonationRequest
	if err := parseBody(r, &req); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	donation, _, err := h.fetchDonation(r, donationID)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	updates := map[string]interface{}{}
	if req.Status != nil {
		next := entities.DonationStatus(*req.Status)
		if !entities.ValidDonationTransition(donation.Status, next) {
			h.errHandler.Handle(w, r, apperrors.NewFieldValidationError("status",
				fmt.Sprintf("cannot change status from %s to %s", donation.Status, next)))
			return
		}
		updates["status"] = *req.Status
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if len(updates) == 0 {
		h.errHandler.Handle(w, r, apperrors.NewValidationError("no fields to update"))
		return
	}

	pk, sk := entities.DonationKey(donationID)
	stored, err := h.store.Update(r.Context(), pk, sk, updates, nil)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	var updated entities.Donation
	if err := unmarshalOne(stored, &updated); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, updated)
}

// ListExpiring handles GET /donations/expiring?days=7: donation items
// whose expiration falls inside the window, soonest first.
func (h *DonationHandler) ListExpiring(w http.ResponseWriter, r *http.Request) {
	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 365 {
			h.errHandler.Handle(w, r, apperrors.NewFieldValidationError("days", "days must be between 1 and 365"))
			return
		}
		days = n
	}

	params, cursor, err := listRequest(r)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	result, err := h.planner.List(r.Context(), dynamostore.ListSpec{
		Expiration: entities.CollectionItems,
		DateRange: &dynamostore.DateRange{
			Start: utils.StartOfToday(),
			End:   utils.DaysFromNow(days),
		},
		Page:      params.Page,
		PageSize:  params.PageSize,
		Cursor:    cursor,
		Ascending: true,
	})
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	items, err := unmarshalAll[entities.DonationItem](result.Items)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK,
		common.NewPaginatedResult(items, params, result.TotalCount, result.NextToken))
}

// GetReceipt handles GET /donations/{id}/receipt: writes the receipt
// artifact and returns a time-limited signed link to it.
func (h *DonationHandler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	if h.blobs == nil {
		h.errHandler.Handle(w, r, apperrors.NewInternalError("blob storage not configured"))
		return
	}

	donationID := chi.URLParam(r, "id")

	donation, items, err := h.fetchDonation(r, donationID)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	receipt, err := json.Marshal(donationResponse{Donation: *donation, Items: items})
	if err != nil {
		h.errHandler.Handle(w, r, apperrors.NewInternalError("failed to render receipt"))
		return
	}

	key := fmt.Sprintf("receipts/%s.json", donationID)
	if err := h.blobs.PutBlob(r.Context(), key, receipt, "application/json"); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	url, err := h.blobs.SignedURL(r.Context(), key, h.signedTTL)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"donation_id": donationID,
		"url":         url,
		"expires_in":  int(h.signedTTL.Seconds()),
	})
}

func (h *DonationHandler) fetchDonation(r *http.Request, donationID string) (*entities.Donation, []entities.DonationItem, error) {
	pk, sk := entities.DonationKey(donationID)
	metadata, err := h.store.Get(r.Context(), pk, sk)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil, apperrors.NewNotFoundError("Donation", donationID)
		}
		return nil, nil, err
	}

	var donation entities.Donation
	if err := unmarshalOne(metadata, &donation); err != nil {
		return nil, nil, err
	}

	page, err := h.store.Query(r.Context(), dynamostore.QueryInput{
		KeyCondition: expression.Key(entities.AttrPK).Equal(expression.Value(pk)).
			And(expression.Key(entities.AttrSK).BeginsWith("ITEM#")),
		Ascending: true,
	})
	if err != nil {
		return nil, nil, err
	}

	items, err := unmarshalAll[entities.DonationItem](page.Items)
	if err != nil {
		return nil, nil, err
	}

	return &donation, items, nil
}
