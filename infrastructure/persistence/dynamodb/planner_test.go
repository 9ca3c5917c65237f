package dynamodb

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"savinggrace-backend/domain/entities"
)

func newTestPlanner(t *testing.T) (*Planner, *Store) {
	t.Helper()
	store := newTestStore(t)
	return NewPlanner(store, DefaultIndexes(), zap.NewNop()), store
}

func seedDonation(t *testing.T, store *Store, id, donorID, date, status string) {
	t.Helper()

	donation := entities.Donation{
		DonationID:   id,
		DonorID:      donorID,
		DonationDate: date,
		Status:       entities.DonationStatus(status),
		ItemCount:    1,
	}
	donation.SetKeys()

	item, err := attributevalue.MarshalMap(donation)
	require.NoError(t, err)
	_, err = store.Put(context.Background(), item)
	require.NoError(t, err)
}

func TestResolvePrefersRelationOverDate(t *testing.T) {
	planner, _ := newTestPlanner(t)

	plan := planner.Resolve(ListSpec{
		Relation:   "DONOR#d-1",
		Collection: entities.CollectionDonations,
	})
	assert.Equal(t, PathRelation, plan.Kind)
	assert.Equal(t, "GSI1", plan.Index.Name)
	assert.Equal(t, "DONOR#d-1", plan.Partition)

	plan = planner.Resolve(ListSpec{Collection: entities.CollectionDonations})
	assert.Equal(t, PathDate, plan.Kind)
	assert.Equal(t, "GSI2", plan.Index.Name)

	plan = planner.Resolve(ListSpec{Expiration: entities.CollectionItems})
	assert.Equal(t, PathExpiration, plan.Kind)
	assert.Equal(t, "GSI3", plan.Index.Name)

	plan = planner.Resolve(ListSpec{PKPrefix: entities.InventoryPrefix})
	assert.Equal(t, PathScan, plan.Kind)
}

func TestListByDonorDateRangeDescending(t *testing.T) {
	planner, store := newTestPlanner(t)

	seedDonation(t, store, "a", "d-1", "2026-03-01T10:00:00Z", "received")
	seedDonation(t, store, "b", "d-1", "2026-03-10T10:00:00Z", "pending")
	seedDonation(t, store, "c", "d-1", "2026-03-20T10:00:00Z", "pending")
	seedDonation(t, store, "other", "d-2", "2026-03-12T10:00:00Z", "pending")

	result, err := planner.List(context.Background(), ListSpec{
		Relation: entities.DonorPrefix + "d-1",
		DateRange: &DateRange{
			Start: "2026-03-01T00:00:00Z",
			End:   "2026-03-15T23:59:59Z",
		},
		Page:     1,
		PageSize: 10,
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	assert.Equal(t, 2, result.TotalCount)
	assert.Empty(t, result.NextToken)

	// Most recent first.
	assert.Equal(t, "b", strVal(result.Items[0], "donation_id"))
	assert.Equal(t, "a", strVal(result.Items[1], "donation_id"))
}

func TestListCollectionWithResidualFilter(t *testing.T) {
	planner, store := newTestPlanner(t)

	seedDonation(t, store, "a", "d-1", "2026-03-01T10:00:00Z", "received")
	seedDonation(t, store, "b", "d-2", "2026-03-10T10:00:00Z", "pending")
	seedDonation(t, store, "c", "d-3", "2026-03-20T10:00:00Z", "pending")

	statusFilter := expression.Name("status").Equal(expression.Value("pending"))
	result, err := planner.List(context.Background(), ListSpec{
		Collection: entities.CollectionDonations,
		Residual:   []expression.ConditionBuilder{statusFilter},
		Page:       1,
		PageSize:   10,
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	assert.Equal(t, "c", strVal(result.Items[0], "donation_id"))
	assert.Equal(t, "b", strVal(result.Items[1], "donation_id"))
}

func TestListScanFallbackByPrefix(t *testing.T) {
	planner, store := newTestPlanner(t)

	seedDonation(t, store, "a", "d-1", "2026-03-01T10:00:00Z", "pending")
	_, err := store.Put(context.Background(), record("INVENTORY#produce", "ITEM#x", nil))
	require.NoError(t, err)

	result, err := planner.List(context.Background(), ListSpec{
		PKPrefix: entities.InventoryPrefix,
		Page:     1,
		PageSize: 10,
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "INVENTORY#produce", strVal(result.Items[0], entities.AttrPK))
}

func TestListInMemoryPagination(t *testing.T) {
	planner, store := newTestPlanner(t)

	for i := 1; i <= 7; i++ {
		seedDonation(t, store,
			fmt.Sprintf("don-%d", i), "d-1",
			fmt.Sprintf("2026-03-%02dT10:00:00Z", i), "pending")
	}

	result, err := planner.List(context.Background(), ListSpec{
		Relation: entities.DonorPrefix + "d-1",
		Page:     2,
		PageSize: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, result.TotalCount)
	require.Len(t, result.Items, 3)

	// Descending order: page 2 holds donations 4..2.
	assert.Equal(t, "don-4", strVal(result.Items[0], "donation_id"))
	assert.Equal(t, "don-2", strVal(result.Items[2], "donation_id"))

	// Pages past the end are empty but keep the total.
	result, err = planner.List(context.Background(), ListSpec{
		Relation: entities.DonorPrefix + "d-1",
		Page:     5,
		PageSize: 3,
	})
	require.NoError(t, err)
	assert.Empty(t, result.Items)
	assert.Equal(t, 7, result.TotalCount)
}
