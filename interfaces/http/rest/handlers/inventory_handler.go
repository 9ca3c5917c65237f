package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"savinggrace-backend/domain/entities"
	dynamostore "savinggrace-backend/infrastructure/persistence/dynamodb"
	"savinggrace-backend/pkg/auth"
	"savinggrace-backend/pkg/common"
	apperrors "savinggrace-backend/pkg/errors"
	"savinggrace-backend/pkg/utils"
)

// defaultLowStockThreshold applies when an item has no threshold of its
// own.
const defaultLowStockThreshold = 10

// expiringSoonDays is the alert window for expiration.
const expiringSoonDays = 7

// InventoryHandler serves inventory adjustment, listing and alerts.
type InventoryHandler struct {
	store      *dynamostore.Store
	planner    *dynamostore.Planner
	logger     *zap.Logger
	errHandler *apperrors.ErrorHandler
}

// NewInventoryHandler creates an inventory handler.
func NewInventoryHandler(store *dynamostore.Store, planner *dynamostore.Planner, logger *zap.Logger, errHandler *apperrors.ErrorHandler) *InventoryHandler {
	return &InventoryHandler{store: store, planner: planner, logger: logger, errHandler: errHandler}
}

// AdjustInventoryRequest is the POST /inventory/adjust payload.
// Quantity is a signed delta.
type AdjustInventoryRequest struct {
	Category          string  `json:"category" validate:"required"`
	Name              string  `json:"name" validate:"required,min=1,max=200"`
	Quantity          float64 `json:"quantity" validate:"required"`
	Unit              string  `json:"unit" validate:"required,min=1,max=30"`
	Reason            string  `json:"reason" validate:"required"`
	Notes             string  `json:"notes" validate:"omitempty,max=2000"`
	ExpirationDate    string  `json:"expiration_date"`
	LowStockThreshold float64 `json:"low_stock_threshold" validate:"omitempty,gt=0"`
}

// adjustmentResponse pairs the item state with the recorded adjustment.
type adjustmentResponse struct {
	Item       entities.InventoryItem       `json:"item"`
	Adjustment entities.InventoryAdjustment `json:"adjustment"`
}

// AdjustInventory handles POST /inventory/adjust. Items are keyed by
// (category, name) through a derived id, so two concurrent first
// adjustments target the same record: one creates it, the other loses
// the conditional create and retries as an update. Quantities clamp at
// zero and every change lands in the audit trail.
func (h *InventoryHandler) AdjustInventory(w http.ResponseWriter, r *http.Request) {
	var req AdjustInventoryRequest
	if err := parseBody(r, &req); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	if err := utils.ValidateEnum("category", req.Category, entities.InventoryCategories); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	if err := utils.ValidateEnum("reason", req.Reason, entities.AdjustmentReasons); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	if req.Quantity == 0 {
		h.errHandler.Handle(w, r, apperrors.NewFieldValidationError("quantity", "quantity must not be zero"))
		return
	}
	if req.ExpirationDate != "" {
		if err := utils.ValidateISODate("expiration_date", req.ExpirationDate); err != nil {
			h.errHandler.Handle(w, r, err)
			return
		}
	}

	itemID := entities.InventoryItemID(req.Category, req.Name)
	pk, sk := entities.InventoryItemKey(req.Category, itemID)

	item, err := h.applyAdjustment(r, pk, sk, itemID, req)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	actor := ""
	if user := auth.GetUserFromContext(r.Context()); user != nil {
		actor = user.UserID
	}

	audit := entities.InventoryAdjustment{
		ItemID:      itemID,
		Category:    entities.InventoryCategory(req.Category),
		Name:        item.Name,
		Delta:       req.Quantity,
		NewQuantity: item.Quantity,
		Reason:      entities.AdjustmentReason(req.Reason),
		Notes:       req.Notes,
		AdjustedBy:  actor,
		AdjustedAt:  utils.NowRFC3339(),
	}
	audit.SetKeys()

	auditRecord, err := marshalRecord(audit)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	if _, err := h.store.Put(r.Context(), auditRecord); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("Inventory adjusted",
		zap.String("item_id", itemID),
		zap.String("category", req.Category),
		zap.Float64("delta", req.Quantity),
		zap.Float64("new_quantity", item.Quantity),
		zap.String("reason", req.Reason),
	)

	common.RespondJSON(w, http.StatusOK, adjustmentResponse{Item: *item, Adjustment: audit})
}

// applyAdjustment creates or updates the item, clamping at zero. The
// conditional update retries a few times so a concurrent adjustment
// degrades to a retry, not a lost write.
func (h *InventoryHandler) applyAdjustment(r *http.Request, pk, sk, itemID string, req AdjustInventoryRequest) (*entities.InventoryItem, error) {
	const maxAttempts = 3

	for attempt := 0; attempt < maxAttempts; attempt++ {
		record, err := h.store.Get(r.Context(), pk, sk)
		if apperrors.IsNotFound(err) {
			quantity := req.Quantity
			if quantity < 0 {
				quantity = 0
			}

			item := entities.InventoryItem{
				ItemID:            itemID,
				Category:          entities.InventoryCategory(req.Category),
				Name:              strings.TrimSpace(req.Name),
				Quantity:          quantity,
				Unit:              req.Unit,
				ExpirationDate:    req.ExpirationDate,
				LowStockThreshold: req.LowStockThreshold,
			}
			item.SetKeys()

			itemRecord, err := marshalRecord(item)
			if err != nil {
				return nil, err
			}

			stored, err := h.store.PutIfAbsent(r.Context(), itemRecord)
			if apperrors.IsConflict(err) {
				// Lost the create race; re-read and update.
				continue
			}
			if err != nil {
				return nil, err
			}
			if err := unmarshalOne(stored, &item); err != nil {
				return nil, err
			}
			return &item, nil
		}
		if err != nil {
			return nil, err
		}

		var item entities.InventoryItem
		if err := unmarshalOne(record, &item); err != nil {
			return nil, err
		}

		newQuantity := item.Quantity + req.Quantity
		if newQuantity < 0 {
			newQuantity = 0
		}

		updates := map[string]interface{}{
			"quantity": newQuantity,
			"unit":     req.Unit,
		}
		if req.ExpirationDate != "" {
			updates["expiration_date"] = req.ExpirationDate
			updates[entities.AttrGSI3PK] = entities.CollectionInventory
			updates[entities.AttrGSI3SK] = req.ExpirationDate
		}
		if req.LowStockThreshold > 0 {
			updates["low_stock_threshold"] = req.LowStockThreshold
		}

		guard := expression.Name("quantity").Equal(expression.Value(item.Quantity))
		stored, err := h.store.Update(r.Context(), pk, sk, updates, &guard)
		if apperrors.IsNotFound(err) {
			// Quantity moved under us; retry with a fresh read.
			continue
		}
		if err != nil {
			return nil, err
		}

		if err := unmarshalOne(stored, &item); err != nil {
			return nil, err
		}
		return &item, nil
	}

	return nil, apperrors.NewConflictError("inventory item is under concurrent adjustment, retry")
}

// ListInventory handles GET /inventory with category and min_quantity
// filters. Category listings ride the category index; the unfiltered
// listing falls back to a scan with page-local counts.
func (h *InventoryHandler) ListInventory(w http.ResponseWriter, r *http.Request) {
	params, cursor, err := listRequest(r)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	spec := dynamostore.ListSpec{
		PKPrefix:  entities.InventoryPrefix,
		Page:      params.Page,
		PageSize:  params.PageSize,
		Cursor:    cursor,
		Ascending: true,
	}
	if category := r.URL.Query().Get("category"); category != "" {
		if err := utils.ValidateEnum("category", category, entities.InventoryCategories); err != nil {
			h.errHandler.Handle(w, r, err)
			return
		}
		spec.Relation = entities.CategoryPrefix + category
		spec.PKPrefix = ""
	}
	if raw := r.URL.Query().Get("min_quantity"); raw != "" {
		min, err := strconv.ParseFloat(raw, 64)
		if err != nil || min < 0 {
			h.errHandler.Handle(w, r, apperrors.NewFieldValidationError("min_quantity", "min_quantity must be a non-negative number"))
			return
		}
		minFilter := expression.Name("quantity").GreaterThanEqual(expression.Value(min))
		spec.Residual = append(spec.Residual, minFilter)
	}

	result, err := h.planner.List(r.Context(), spec)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	items, err := unmarshalAll[entities.InventoryItem](result.Items)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK,
		common.NewPaginatedResult(items, params, result.TotalCount, result.NextToken))
}

// ListByCategory handles GET /inventory/category/{category}, in name
// order.
func (h *InventoryHandler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	if err := utils.ValidateEnum("category", category, entities.InventoryCategories); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	params, cursor, err := listRequest(r)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	result, err := h.planner.List(r.Context(), dynamostore.ListSpec{
		Relation:  entities.CategoryPrefix + category,
		Page:      params.Page,
		PageSize:  params.PageSize,
		Cursor:    cursor,
		Ascending: true,
	})
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	items, err := unmarshalAll[entities.InventoryItem](result.Items)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK,
		common.NewPaginatedResult(items, params, result.TotalCount, result.NextToken))
}

// inventoryAlerts is the GET /inventory/alerts payload.
type inventoryAlerts struct {
	LowStock     []entities.InventoryItem `json:"low_stock"`
	ExpiringSoon []entities.InventoryItem `json:"expiring_soon"`
}

// ListAlerts handles GET /inventory/alerts: items below their low-stock
// threshold plus items expiring within the alert window.
func (h *InventoryHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	all, err := h.planner.List(r.Context(), dynamostore.ListSpec{
		PKPrefix: entities.InventoryPrefix,
	})
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	items, err := unmarshalAll[entities.InventoryItem](all.Items)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	lowStock := []entities.InventoryItem{}
	for _, item := range items {
		threshold := item.LowStockThreshold
		if threshold <= 0 {
			threshold = defaultLowStockThreshold
		}
		if item.Quantity < threshold {
			lowStock = append(lowStock, item)
		}
	}

	expiring, err := h.planner.List(r.Context(), dynamostore.ListSpec{
		Expiration: entities.CollectionInventory,
		DateRange: &dynamostore.DateRange{
			Start: utils.StartOfToday(),
			End:   utils.DaysFromNow(expiringSoonDays),
		},
		Ascending: true,
	})
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	expiringItems, err := unmarshalAll[entities.InventoryItem](expiring.Items)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, inventoryAlerts{
		LowStock:     lowStock,
		ExpiringSoon: expiringItems,
	})
}

// ListAdjustments handles GET /inventory/adjustments?category=&name=,
// the audit trail for one item in chronological order.
func (h *InventoryHandler) ListAdjustments(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	name := r.URL.Query().Get("name")
	if err := utils.ValidateEnum("category", category, entities.InventoryCategories); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	if err := utils.ValidateNonEmpty("name", name); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	params, cursor, err := listRequest(r)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	itemID := entities.InventoryItemID(category, name)
	auditPK, _ := entities.AdjustmentKey(itemID, "", "")

	page, err := h.store.Query(r.Context(), dynamostore.QueryInput{
		KeyCondition: expression.Key(entities.AttrPK).Equal(expression.Value(auditPK)),
		Limit:        int32(params.PageSize),
		Cursor:       cursor,
		Ascending:    true,
	})
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	adjustments, err := unmarshalAll[entities.InventoryAdjustment](page.Items)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	nextToken, err := dynamostore.EncodeCursor(page.NextCursor)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK,
		common.NewPaginatedResult(adjustments, params, len(adjustments), nextToken))
}
