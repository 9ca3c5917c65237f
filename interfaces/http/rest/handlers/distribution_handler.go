package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"savinggrace-backend/domain/entities"
	dynamostore "savinggrace-backend/infrastructure/persistence/dynamodb"
	"savinggrace-backend/pkg/auth"
	"savinggrace-backend/pkg/common"
	apperrors "savinggrace-backend/pkg/errors"
	"savinggrace-backend/pkg/utils"
)

// DistributionHandler serves distribution scheduling, listing and the
// transactional completion flow.
type DistributionHandler struct {
	store      *dynamostore.Store
	planner    *dynamostore.Planner
	logger     *zap.Logger
	errHandler *apperrors.ErrorHandler
}

// NewDistributionHandler creates a distribution handler.
func NewDistributionHandler(store *dynamostore.Store, planner *dynamostore.Planner, logger *zap.Logger, errHandler *apperrors.ErrorHandler) *DistributionHandler {
	return &DistributionHandler{store: store, planner: planner, logger: logger, errHandler: errHandler}
}

// DistributedItemRequest is one line of a distribution payload.
type DistributedItemRequest struct {
	Name     string  `json:"name" validate:"required,min=1,max=200"`
	Category string  `json:"category" validate:"required"`
	Quantity float64 `json:"quantity" validate:"required,gt=0"`
	Unit     string  `json:"unit" validate:"required,min=1,max=30"`
}

func validateDistributedItems(items []DistributedItemRequest) error {
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
	}
	return nil
}

func toDistributedItems(reqs []DistributedItemRequest) []entities.DistributedItem {
	items := make([]entities.DistributedItem, 0, len(reqs))
	for _, it := range reqs {
		items = append(items, entities.DistributedItem{
			Name:     strings.TrimSpace(it.Name),
			Category: it.Category,
			Quantity: it.Quantity,
			Unit:     it.Unit,
		})
	}
	return items
}

// CreateDistributionRequest is the POST /distributions payload.
type CreateDistributionRequest struct {
	RecipientID      string                   `json:"recipient_id" validate:"required"`
	DistributionDate string                   `json:"distribution_date"`
	ScheduledItems   []DistributedItemRequest `json:"scheduled_items" validate:"required,min=1,max=100"`
	Notes            string                   `json:"notes" validate:"omitempty,max=2000"`
}

// CreateDistribution handles POST /distributions. New distributions
// start scheduled; the recipient mirror record is written alongside the
// metadata so history queries see it immediately.
func (h *DistributionHandler) CreateDistribution(w http.ResponseWriter, r *http.Request) {
	var req CreateDistributionRequest
	if err := parseBody(r, &req); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	if err := validateDistributedItems(req.ScheduledItems); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	date := req.DistributionDate
	if date == "" {
		date = utils.NowRFC3339()
	} else if err := utils.ValidateISODate("distribution_date", date); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	} else {
		date = utils.StartOfDay(date)
	}

	recipientPK, recipientSK := entities.RecipientKey(req.RecipientID)
	recipientItem, err := h.store.Get(r.Context(), recipientPK, recipientSK)
	if err != nil {
		if apperrors.IsNotFound(err) {
			err = apperrors.NewFieldValidationError("recipient_id", "recipient does not exist")
		}
		h.errHandler.Handle(w, r, err)
		return
	}
	var recipient entities.Recipient
	if err := unmarshalOne(recipientItem, &recipient); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	distribution := entities.Distribution{
		DistributionID:   uuid.NewString(),
		RecipientID:      req.RecipientID,
		RecipientName:    recipient.Name,
		DistributionDate: date,
		Status:           entities.DistributionStatusScheduled,
		ScheduledItems:   toDistributedItems(req.ScheduledItems),
		Notes:            req.Notes,
	}
	distribution.SetKeys()

	mirror := entities.DistributionMirror{
		DistributionID:   distribution.DistributionID,
		RecipientID:      distribution.RecipientID,
		DistributionDate: date,
		Status:           distribution.Status,
		ItemCount:        len(distribution.ScheduledItems),
	}
	mirror.SetKeys()

	record, err := marshalRecord(distribution)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	stored, err := h.store.Put(r.Context(), record)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	if err := unmarshalOne(stored, &distribution); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	mirrorRecord, err := marshalRecord(mirror)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	if _, err := h.store.Put(r.Context(), mirrorRecord); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("Distribution scheduled",
		zap.String("distribution_id", distribution.DistributionID),
		zap.String("recipient_id", distribution.RecipientID),
	)

	common.RespondJSON(w, http.StatusCreated, distribution)
}

// GetDistribution handles GET /distributions/{id}.
func (h *DistributionHandler) GetDistribution(w http.ResponseWriter, r *http.Request) {
	distributionID := chi.URLParam(r, "id")

	distribution, err := h.fetchDistribution(r, distributionID)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, distribution)
}

// ListDistributions handles GET /distributions with recipient_id,
// status and date filters, most recent first.
func (h *DistributionHandler) ListDistributions(w http.ResponseWriter, r *http.Request) {
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
		Collection: entities.CollectionDistributions,
		DateRange:  dates,
		Page:       params.Page,
		PageSize:   params.PageSize,
		Cursor:     cursor,
	}
	if recipientID := r.URL.Query().Get("recipient_id"); recipientID != "" {
		spec.Relation = entities.RecipientPrefix + recipientID
	}
	if status := r.URL.Query().Get("status"); status != "" {
		if err := utils.ValidateEnum("status", status, entities.DistributionStatuses); err != nil {
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

	// The by-recipient path returns mirror records; everything else
	// returns metadata. Both render as distributions.
	if spec.Relation != "" {
		mirrors, err := unmarshalAll[entities.DistributionMirror](result.Items)
		if err != nil {
			h.errHandler.Handle(w, r, err)
			return
		}
		common.RespondJSON(w, http.StatusOK,
			common.NewPaginatedResult(mirrors, params, result.TotalCount, result.NextToken))
		return
	}

	distributions, err := unmarshalAll[entities.Distribution](result.Items)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK,
		common.NewPaginatedResult(distributions, params, result.TotalCount, result.NextToken))
}

// UpdateDistributionRequest is the PUT /distributions/{id} payload.
// Completion has its own endpoint; this one covers rescheduling,
// cancellation and notes.
type UpdateDistributionRequest struct {
	Status *string `json:"status" validate:"omitempty,oneof=scheduled in_progress cancelled"`
	Notes  *string `json:"notes" validate:"omitempty,max=2000"`
}

// UpdateDistribution handles PUT /distributions/{id}.
func (h *DistributionHandler) UpdateDistribution(w http.ResponseWriter, r *http.Request) {
	distributionID := chi.URLParam(r, "id")

	var req UpdateDistributionRequest
	if err := parseBody(r, &req); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	distribution, err := h.fetchDistribution(r, distributionID)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	if distribution.Status == entities.DistributionStatusCompleted {
		h.errHandler.Handle(w, r, apperrors.NewValidationError("completed distributions cannot be modified"))
		return
	}

	updates := map[string]interface{}{}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if len(updates) == 0 {
		h.errHandler.Handle(w, r, apperrors.NewValidationError("no fields to update"))
		return
	}

	pk, sk := entities.DistributionKey(distributionID)
	stored, err := h.store.Update(r.Context(), pk, sk, updates, nil)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	if req.Status != nil {
		mirrorPK, mirrorSK := entities.DistributionMirrorKey(distributionID, distribution.RecipientID)
		if _, err := h.store.Update(r.Context(), mirrorPK, mirrorSK, map[string]interface{}{
			"status": *req.Status,
		}, nil); err != nil {
			h.errHandler.Handle(w, r, err)
			return
		}
	}

	var updated entities.Distribution
	if err := unmarshalOne(stored, &updated); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, updated)
}

// CompleteDistributionRequest is the POST /distributions/{id}/complete
// payload. When actual_items is omitted the scheduled items count.
type CompleteDistributionRequest struct {
	ActualItems []DistributedItemRequest `json:"actual_items" validate:"omitempty,max=100"`
	Notes       string                   `json:"notes" validate:"omitempty,max=2000"`
}

// CompleteDistribution handles POST /distributions/{id}/complete. The
// status flip, the mirror update and every inventory decrement commit
// in one transaction; a concurrent completion loses on the status
// condition and the whole transaction rolls back.
func (h *DistributionHandler) CompleteDistribution(w http.ResponseWriter, r *http.Request) {
	distributionID := chi.URLParam(r, "id")

	var req CompleteDistributionRequest
	if err := parseBody(r, &req); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	if err := validateDistributedItems(req.ActualItems); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	distribution, err := h.fetchDistribution(r, distributionID)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	switch distribution.Status {
	case entities.DistributionStatusCompleted:
		h.errHandler.Handle(w, r, apperrors.NewValidationError("distribution is already completed"))
		return
	case entities.DistributionStatusCancelled:
		h.errHandler.Handle(w, r, apperrors.NewValidationError("cancelled distributions cannot be completed"))
		return
	}

	actual := distribution.ScheduledItems
	if len(req.ActualItems) > 0 {
		actual = toDistributedItems(req.ActualItems)
	}

	user := auth.GetUserFromContext(r.Context())
	completedBy := ""
	if user != nil {
		completedBy = user.UserID
	}
	completedAt := utils.NowRFC3339()

	decrements, audits, err := h.planInventoryDecrements(r, actual, completedBy, completedAt)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	transact, err := h.buildCompletionTransaction(distribution, actual, completedBy, completedAt, decrements)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	if err := h.store.TransactWrite(r.Context(), transact); err != nil {
		if apperrors.IsConflict(err) {
			err = apperrors.NewConflictError("distribution changed concurrently, retry")
		}
		h.errHandler.Handle(w, r, err)
		return
	}

	// Audit records land after the transaction commits; they describe a
	// change that definitely happened.
	for _, audit := range audits {
		record, err := marshalRecord(audit)
		if err != nil {
			h.errHandler.Handle(w, r, err)
			return
		}
		if _, err := h.store.Put(r.Context(), record); err != nil {
			h.errHandler.Handle(w, r, err)
			return
		}
	}

	completed, err := h.fetchDistribution(r, distributionID)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("Distribution completed",
		zap.String("distribution_id", distributionID),
		zap.Int("items", len(actual)),
		zap.Int("inventory_decrements", len(decrements)),
	)

	common.RespondJSON(w, http.StatusOK, completed)
}

// inventoryDecrement is one clamped quantity change staged for the
// completion transaction.
type inventoryDecrement struct {
	pk          string
	sk          string
	oldQuantity float64
	newQuantity float64
}

// planInventoryDecrements reads current quantities and stages clamped
// decrements. Items with no inventory record are skipped; the audit
// trail still notes the handout through the distribution itself.
func (h *DistributionHandler) planInventoryDecrements(r *http.Request, items []entities.DistributedItem, actor, at string) ([]inventoryDecrement, []entities.InventoryAdjustment, error) {
	var (
		decrements []inventoryDecrement
		audits     []entities.InventoryAdjustment
	)

	for _, item := range items {
		itemID := entities.InventoryItemID(item.Category, item.Name)
		pk, sk := entities.InventoryItemKey(item.Category, itemID)

		record, err := h.store.Get(r.Context(), pk, sk)
		if err != nil {
			if apperrors.IsNotFound(err) {
				continue
			}
			return nil, nil, err
		}

		var inv entities.InventoryItem
		if err := unmarshalOne(record, &inv); err != nil {
			return nil, nil, err
		}

		newQuantity := inv.Quantity - item.Quantity
		if newQuantity < 0 {
			newQuantity = 0
		}

		decrements = append(decrements, inventoryDecrement{
			pk:          pk,
			sk:          sk,
			oldQuantity: inv.Quantity,
			newQuantity: newQuantity,
		})

		audit := entities.InventoryAdjustment{
			ItemID:      itemID,
			Category:    inv.Category,
			Name:        inv.Name,
			Delta:       newQuantity - inv.Quantity,
			NewQuantity: newQuantity,
			Reason:      entities.ReasonDistribution,
			AdjustedBy:  actor,
			AdjustedAt:  at,
		}
		audit.SetKeys()
		audits = append(audits, audit)
	}

	return decrements, audits, nil
}

func (h *DistributionHandler) buildCompletionTransaction(distribution *entities.Distribution, actual []entities.DistributedItem, completedBy, completedAt string, decrements []inventoryDecrement) ([]types.TransactWriteItem, error) {
	table := aws.String(h.store.TableName())
	transact := make([]types.TransactWriteItem, 0, len(decrements)+2)

	// Metadata flip, guarded so only one completion wins.
	metaUpdate := expression.Set(expression.Name("status"), expression.Value(string(entities.DistributionStatusCompleted))).
		Set(expression.Name("actual_items"), expression.Value(actual)).
		Set(expression.Name("completed_at"), expression.Value(completedAt)).
		Set(expression.Name("completed_by"), expression.Value(completedBy)).
		Set(expression.Name("updated_at"), expression.Value(completedAt))
	metaCond := expression.Name("status").NotEqual(expression.Value(string(entities.DistributionStatusCompleted))).
		And(expression.Name("status").NotEqual(expression.Value(string(entities.DistributionStatusCancelled))))
	metaExpr, err := expression.NewBuilder().WithUpdate(metaUpdate).WithCondition(metaCond).Build()
	if err != nil {
		return nil, apperrors.NewStoreError("transact_write", err)
	}

	metaPK, metaSK := entities.DistributionKey(distribution.DistributionID)
	transact = append(transact, types.TransactWriteItem{
		Update: &types.Update{
			TableName:                 table,
			Key:                       stringKey(metaPK, metaSK),
			UpdateExpression:          metaExpr.Update(),
			ConditionExpression:       metaExpr.Condition(),
			ExpressionAttributeNames:  metaExpr.Names(),
			ExpressionAttributeValues: metaExpr.Values(),
		},
	})

	// Mirror follows the metadata status.
	mirrorUpdate := expression.Set(expression.Name("status"), expression.Value(string(entities.DistributionStatusCompleted))).
		Set(expression.Name("item_count"), expression.Value(len(actual))).
		Set(expression.Name("updated_at"), expression.Value(completedAt))
	mirrorExpr, err := expression.NewBuilder().WithUpdate(mirrorUpdate).Build()
	if err != nil {
		return nil, apperrors.NewStoreError("transact_write", err)
	}

	mirrorPK, mirrorSK := entities.DistributionMirrorKey(distribution.DistributionID, distribution.RecipientID)
	transact = append(transact, types.TransactWriteItem{
		Update: &types.Update{
			TableName:                 table,
			Key:                       stringKey(mirrorPK, mirrorSK),
			UpdateExpression:          mirrorExpr.Update(),
			ExpressionAttributeNames:  mirrorExpr.Names(),
			ExpressionAttributeValues: mirrorExpr.Values(),
		},
	})

	// Each decrement is conditioned on the quantity it read, so a
	// concurrent adjustment cancels the transaction instead of losing
	// an update.
	for _, dec := range decrements {
		update := expression.Set(expression.Name("quantity"), expression.Value(dec.newQuantity)).
			Set(expression.Name("updated_at"), expression.Value(completedAt))
		cond := expression.Name("quantity").Equal(expression.Value(dec.oldQuantity))
		expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
		if err != nil {
			return nil, apperrors.NewStoreError("transact_write", err)
		}

		transact = append(transact, types.TransactWriteItem{
			Update: &types.Update{
				TableName:                 table,
				Key:                       stringKey(dec.pk, dec.sk),
				UpdateExpression:          expr.Update(),
				ConditionExpression:       expr.Condition(),
				ExpressionAttributeNames:  expr.Names(),
				ExpressionAttributeValues: expr.Values(),
			},
		})
	}

	return transact, nil
}

func stringKey(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		entities.AttrPK: &types.AttributeValueMemberS{Value: pk},
		entities.AttrSK: &types.AttributeValueMemberS{Value: sk},
	}
}

func (h *DistributionHandler) fetchDistribution(r *http.Request, distributionID string) (*entities.Distribution, error) {
	pk, sk := entities.DistributionKey(distributionID)
	item, err := h.store.Get(r.Context(), pk, sk)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFoundError("Distribution", distributionID)
		}
		return nil, err
	}

	var distribution entities.Distribution
	if err := unmarshalOne(item, &distribution); err != nil {
		return nil, err
	}
	return &distribution, nil
}
