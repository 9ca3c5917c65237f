package entities

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// InventoryCategory is a storage category for inventory items.
type InventoryCategory string

const (
	CategoryProduce   InventoryCategory = "produce"
	CategoryDairy     InventoryCategory = "dairy"
	CategoryProtein   InventoryCategory = "protein"
	CategoryGrains    InventoryCategory = "grains"
	CategoryCanned    InventoryCategory = "canned"
	CategoryFrozen    InventoryCategory = "frozen"
	CategoryBeverages InventoryCategory = "beverages"
	CategoryOther     InventoryCategory = "other"
)

// InventoryCategories lists the accepted category values.
var InventoryCategories = []string{
	string(CategoryProduce),
	string(CategoryDairy),
	string(CategoryProtein),
	string(CategoryGrains),
	string(CategoryCanned),
	string(CategoryFrozen),
	string(CategoryBeverages),
	string(CategoryOther),
}

// AdjustmentReason explains why an inventory quantity changed.
type AdjustmentReason string

const (
	ReasonDonation     AdjustmentReason = "donation"
	ReasonDistribution AdjustmentReason = "distribution"
	ReasonExpired      AdjustmentReason = "expired"
	ReasonDamaged      AdjustmentReason = "damaged"
	ReasonOther        AdjustmentReason = "other"
)

// AdjustmentReasons lists the accepted adjustment reason values.
var AdjustmentReasons = []string{
	string(ReasonDonation),
	string(ReasonDistribution),
	string(ReasonExpired),
	string(ReasonDamaged),
	string(ReasonOther),
}

// inventoryNamespace seeds deterministic item ids so two concurrent
// first-adjustments of the same (category, name) pair target the same
// record and the conditional create settles the race.
var inventoryNamespace = uuid.MustParse("7f1f4b9e-5a89-4a45-9d0d-3ba1c9f0de7c")

// InventoryItemID derives the stable item id for a (category, name)
// pair. Name matching is case-insensitive.
func InventoryItemID(category, name string) string {
	key := category + "|" + strings.ToLower(strings.TrimSpace(name))
	return uuid.NewSHA1(inventoryNamespace, []byte(key)).String()
}

// InventoryItem is one tracked item within a category partition.
type InventoryItem struct {
	Keys

	ItemID            string            `dynamodbav:"item_id" json:"item_id"`
	Category          InventoryCategory `dynamodbav:"category" json:"category"`
	Name              string            `dynamodbav:"name" json:"name"`
	Quantity          float64           `dynamodbav:"quantity" json:"quantity"`
	Unit              string            `dynamodbav:"unit" json:"unit"`
	ExpirationDate    string            `dynamodbav:"expiration_date,omitempty" json:"expiration_date,omitempty"`
	LowStockThreshold float64           `dynamodbav:"low_stock_threshold,omitempty" json:"low_stock_threshold,omitempty"`
	CreatedAt         string            `dynamodbav:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt         string            `dynamodbav:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// InventoryAdjustment is the audit record of one quantity change.
type InventoryAdjustment struct {
	Keys

	AdjustmentID string            `dynamodbav:"adjustment_id" json:"adjustment_id"`
	ItemID       string            `dynamodbav:"item_id" json:"item_id"`
	Category     InventoryCategory `dynamodbav:"category" json:"category"`
	Name         string            `dynamodbav:"name" json:"name"`
	Delta        float64           `dynamodbav:"delta" json:"delta"`
	NewQuantity  float64           `dynamodbav:"new_quantity" json:"new_quantity"`
	Reason       AdjustmentReason  `dynamodbav:"reason" json:"reason"`
	Notes        string            `dynamodbav:"notes,omitempty" json:"notes,omitempty"`
	AdjustedBy   string            `dynamodbav:"adjusted_by" json:"adjusted_by"`
	AdjustedAt   string            `dynamodbav:"adjusted_at" json:"adjusted_at"`
	CreatedAt    string            `dynamodbav:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt    string            `dynamodbav:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// InventoryItemKey returns the primary key of an inventory item.
func InventoryItemKey(category, itemID string) (pk, sk string) {
	return InventoryPrefix + category, "ITEM#" + itemID
}

// AdjustmentKey returns the primary key of an audit record. The
// timestamp sort key lists adjustments in chronological order; the
// record id breaks ties between adjustments stamped in the same second.
func AdjustmentKey(itemID, adjustedAt, adjustmentID string) (pk, sk string) {
	return fmt.Sprintf("%sINVENTORY#%s", AuditPrefix, itemID), "ADJUSTMENT#" + adjustedAt + "#" + adjustmentID
}

// SetKeys populates the key block. GSI1 serves by-category listings in
// name order, GSI3 the expiring-soon window.
func (i *InventoryItem) SetKeys() {
	i.PK, i.SK = InventoryItemKey(string(i.Category), i.ItemID)
	i.GSI1PK = CategoryPrefix + string(i.Category)
	i.GSI1SK = strings.ToLower(i.Name)
	if i.ExpirationDate != "" {
		i.GSI3PK = CollectionInventory
		i.GSI3SK = i.ExpirationDate
	}
}

// SetKeys populates the key block. Record ids are time-ordered v7
// UUIDs so same-second adjustments still sort in write order.
func (a *InventoryAdjustment) SetKeys() {
	if a.AdjustmentID == "" {
		if id, err := uuid.NewV7(); err == nil {
			a.AdjustmentID = id.String()
		} else {
			a.AdjustmentID = uuid.NewString()
		}
	}
	a.PK, a.SK = AdjustmentKey(a.ItemID, a.AdjustedAt, a.AdjustmentID)
}
