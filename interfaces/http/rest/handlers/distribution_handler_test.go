package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"savinggrace-backend/domain/entities"
)

func newDistributionHandler(env *testEnv) *DistributionHandler {
	return NewDistributionHandler(env.store, env.planner, env.logger, env.errHandler)
}

type distributionPayload struct {
	DistributionID   string `json:"distribution_id"`
	RecipientID      string `json:"recipient_id"`
	RecipientName    string `json:"recipient_name"`
	DistributionDate string `json:"distribution_date"`
	Status           string `json:"status"`
	ScheduledItems   []struct {
		Name     string  `json:"name"`
		Quantity float64 `json:"quantity"`
	} `json:"scheduled_items"`
	ActualItems []struct {
		Name     string  `json:"name"`
		Quantity float64 `json:"quantity"`
	} `json:"actual_items"`
	CompletedAt string `json:"completed_at"`
	CompletedBy string `json:"completed_by"`
}

func TestCreateDistributionStartsScheduled(t *testing.T) {
	env := newTestEnv(t)
	seedRecipient(t, env, "rec-1", "Hope House")

	rec := httptest.NewRecorder()
	newDistributionHandler(env).CreateDistribution(rec, jsonRequest(t, http.MethodPost, "/distributions",
		map[string]interface{}{
			"recipient_id":      "rec-1",
			"distribution_date": "2026-03-12",
			"scheduled_items": []map[string]interface{}{
				{"name": "Apples", "category": "produce", "quantity": 4, "unit": "lbs"},
			},
		}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decodeData[distributionPayload](t, rec)
	assert.Equal(t, "scheduled", created.Status)
	assert.Equal(t, "Hope House", created.RecipientName)
	assert.Equal(t, "2026-03-12T00:00:00Z", created.DistributionDate)
	require.Len(t, created.ScheduledItems, 1)

	// The mirror record shows up in the recipient's history right away.
	recipients := NewRecipientHandler(env.store, env.planner, env.logger, env.errHandler)
	rec = httptest.NewRecorder()
	recipients.ListHistory(rec, getRequest("/recipients/rec-1/history", "id", "rec-1"))
	require.Equal(t, http.StatusOK, rec.Code)

	history := decodeData[struct {
		Items []struct {
			DistributionID string `json:"distribution_id"`
			Status         string `json:"status"`
		} `json:"items"`
	}](t, rec)
	require.Len(t, history.Items, 1)
	assert.Equal(t, created.DistributionID, history.Items[0].DistributionID)
	assert.Equal(t, "scheduled", history.Items[0].Status)
}

func TestCreateDistributionUnknownRecipientRejected(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	newDistributionHandler(env).CreateDistribution(rec, jsonRequest(t, http.MethodPost, "/distributions",
		map[string]interface{}{
			"recipient_id": "missing",
			"scheduled_items": []map[string]interface{}{
				{"name": "Apples", "category": "produce", "quantity": 4, "unit": "lbs"},
			},
		}))

	requireErrorMessage(t, rec, http.StatusBadRequest, "recipient does not exist")
}

func TestCompleteDistributionDecrementsInventory(t *testing.T) {
	env := newTestEnv(t)
	seedRecipient(t, env, "rec-1", "Hope House")
	seedInventory(t, env, "produce", "Apples", 10)
	seedDistributionScheduled(t, env, "dist-1", "rec-1", []entities.DistributedItem{
		{Name: "Apples", Category: "produce", Quantity: 4, Unit: "lbs"},
	})

	handler := newDistributionHandler(env)

	rec := httptest.NewRecorder()
	handler.CompleteDistribution(rec, jsonRequest(t, http.MethodPost, "/distributions/dist-1/complete",
		map[string]interface{}{}, "id", "dist-1"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	completed := decodeData[distributionPayload](t, rec)
	assert.Equal(t, "completed", completed.Status)
	assert.NotEmpty(t, completed.CompletedAt)
	require.Len(t, completed.ActualItems, 1)
	assert.Equal(t, 4.0, completed.ActualItems[0].Quantity)

	assert.Equal(t, 6.0, fetchInventoryQuantity(t, env, "produce", "Apples"))

	// The handout is in the item's audit trail.
	inventory := newInventoryHandler(env)
	rec = httptest.NewRecorder()
	inventory.ListAdjustments(rec, getRequest("/inventory/adjustments?category=produce&name=Apples"))
	require.Equal(t, http.StatusOK, rec.Code)

	audits := decodeData[struct {
		Items []struct {
			Delta  float64 `json:"delta"`
			Reason string  `json:"reason"`
		} `json:"items"`
	}](t, rec)
	require.Len(t, audits.Items, 1)
	assert.Equal(t, -4.0, audits.Items[0].Delta)
	assert.Equal(t, "distribution", audits.Items[0].Reason)
}

func TestCompleteDistributionTwiceRejected(t *testing.T) {
	env := newTestEnv(t)
	seedRecipient(t, env, "rec-1", "Hope House")
	seedInventory(t, env, "produce", "Apples", 10)
	seedDistributionScheduled(t, env, "dist-1", "rec-1", []entities.DistributedItem{
		{Name: "Apples", Category: "produce", Quantity: 4, Unit: "lbs"},
	})

	handler := newDistributionHandler(env)

	rec := httptest.NewRecorder()
	handler.CompleteDistribution(rec, jsonRequest(t, http.MethodPost, "/distributions/dist-1/complete",
		map[string]interface{}{}, "id", "dist-1"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	handler.CompleteDistribution(rec, jsonRequest(t, http.MethodPost, "/distributions/dist-1/complete",
		map[string]interface{}{}, "id", "dist-1"))
	requireErrorMessage(t, rec, http.StatusBadRequest, "already completed")

	// Inventory only moved once.
	assert.Equal(t, 6.0, fetchInventoryQuantity(t, env, "produce", "Apples"))
}

func TestCompleteCancelledDistributionRejected(t *testing.T) {
	env := newTestEnv(t)
	seedRecipient(t, env, "rec-1", "Hope House")
	seedDistributionScheduled(t, env, "dist-1", "rec-1", []entities.DistributedItem{
		{Name: "Apples", Category: "produce", Quantity: 4, Unit: "lbs"},
	})

	pk, sk := entities.DistributionKey("dist-1")
	_, err := env.store.Update(context.Background(), pk, sk, map[string]interface{}{
		"status": string(entities.DistributionStatusCancelled),
	}, nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	newDistributionHandler(env).CompleteDistribution(rec, jsonRequest(t, http.MethodPost, "/distributions/dist-1/complete",
		map[string]interface{}{}, "id", "dist-1"))
	requireErrorMessage(t, rec, http.StatusBadRequest, "cancelled distributions cannot be completed")
}

func TestCompleteDistributionClampsInventoryAtZero(t *testing.T) {
	env := newTestEnv(t)
	seedRecipient(t, env, "rec-1", "Hope House")
	seedInventory(t, env, "produce", "Apples", 2)
	seedDistributionScheduled(t, env, "dist-1", "rec-1", []entities.DistributedItem{
		{Name: "Apples", Category: "produce", Quantity: 5, Unit: "lbs"},
	})

	rec := httptest.NewRecorder()
	newDistributionHandler(env).CompleteDistribution(rec, jsonRequest(t, http.MethodPost, "/distributions/dist-1/complete",
		map[string]interface{}{}, "id", "dist-1"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, 0.0, fetchInventoryQuantity(t, env, "produce", "Apples"))
}

func TestCompleteDistributionSkipsUntrackedItems(t *testing.T) {
	env := newTestEnv(t)
	seedRecipient(t, env, "rec-1", "Hope House")
	seedDistributionScheduled(t, env, "dist-1", "rec-1", []entities.DistributedItem{
		{Name: "Surprise Box", Category: "other", Quantity: 1, Unit: "boxes"},
	})

	rec := httptest.NewRecorder()
	newDistributionHandler(env).CompleteDistribution(rec, jsonRequest(t, http.MethodPost, "/distributions/dist-1/complete",
		map[string]interface{}{}, "id", "dist-1"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "completed", decodeData[distributionPayload](t, rec).Status)
}

func TestUpdateCompletedDistributionRejected(t *testing.T) {
	env := newTestEnv(t)
	seedRecipient(t, env, "rec-1", "Hope House")
	seedDistributionScheduled(t, env, "dist-1", "rec-1", []entities.DistributedItem{
		{Name: "Apples", Category: "produce", Quantity: 4, Unit: "lbs"},
	})

	handler := newDistributionHandler(env)

	rec := httptest.NewRecorder()
	handler.CompleteDistribution(rec, jsonRequest(t, http.MethodPost, "/distributions/dist-1/complete",
		map[string]interface{}{}, "id", "dist-1"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	handler.UpdateDistribution(rec, jsonRequest(t, http.MethodPut, "/distributions/dist-1",
		map[string]string{"status": "cancelled"}, "id", "dist-1"))
	requireErrorMessage(t, rec, http.StatusBadRequest, "completed distributions cannot be modified")
}
