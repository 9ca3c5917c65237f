package dynamodb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"savinggrace-backend/domain/entities"
)

// IndexRef names an index and its key attributes.
type IndexRef struct {
	Name   string
	PKAttr string
	SKAttr string
}

// Indexes are the three physical GSIs the planner targets, by role.
type Indexes struct {
	// Relation serves by-donor, by-recipient, by-category and name
	// ordering paths.
	Relation IndexRef
	// Date serves whole-collection listings in date order.
	Date IndexRef
	// Expiration serves expiring-soon windows.
	Expiration IndexRef
}

// DefaultIndexes returns the deployed index layout.
func DefaultIndexes() Indexes {
	return Indexes{
		Relation:   IndexRef{Name: "GSI1", PKAttr: entities.AttrGSI1PK, SKAttr: entities.AttrGSI1SK},
		Date:       IndexRef{Name: "GSI2", PKAttr: entities.AttrGSI2PK, SKAttr: entities.AttrGSI2SK},
		Expiration: IndexRef{Name: "GSI3", PKAttr: entities.AttrGSI3PK, SKAttr: entities.AttrGSI3SK},
	}
}

// DateRange is a sort-key range, inclusive at both ends. Either bound
// may be empty for a half-open range.
type DateRange struct {
	Start string
	End   string
}

// ListSpec describes a list access pattern. The planner picks the
// cheapest index that serves it.
type ListSpec struct {
	// Relation is a GSI1 partition value (e.g. a donor key) that scopes
	// the listing to one related entity. Takes precedence over every
	// other path.
	Relation string
	// Expiration is a GSI3 partition value for expiration-window
	// listings.
	Expiration string
	// Collection is a GSI2 partition value for whole-collection
	// listings in date order.
	Collection string
	// PKPrefix is the base-table partition prefix for the scan
	// fallback when no index applies.
	PKPrefix string

	// DateRange constrains the chosen index's sort key. Scan-path
	// callers express date bounds as residual filters instead.
	DateRange *DateRange
	// Residual filters apply after the index narrows the set.
	Residual []expression.ConditionBuilder

	Page      int
	PageSize  int
	Cursor    map[string]types.AttributeValue
	Ascending bool
}

// PathKind is the access path a spec resolved to.
type PathKind string

const (
	PathRelation   PathKind = "relation"
	PathExpiration PathKind = "expiration"
	PathDate       PathKind = "date"
	PathScan       PathKind = "scan"
)

// Plan is a resolved access path.
type Plan struct {
	Kind      PathKind
	Index     IndexRef
	Partition string
}

// maxFetch bounds how many records one listing reads before handing the
// client a continuation token.
const maxFetch = 1000

// Planner resolves list specs onto indexes and executes them.
type Planner struct {
	store   *Store
	indexes Indexes
	logger  *zap.Logger
}

// NewPlanner creates a planner over the store.
func NewPlanner(store *Store, indexes Indexes, logger *zap.Logger) *Planner {
	return &Planner{store: store, indexes: indexes, logger: logger}
}

// Resolve picks the access path for a spec: a relation filter wins its
// GSI, then expiration windows, then the date collection. Anything
// else falls back to a scan.
func (p *Planner) Resolve(spec ListSpec) Plan {
	switch {
	case spec.Relation != "":
		return Plan{Kind: PathRelation, Index: p.indexes.Relation, Partition: spec.Relation}
	case spec.Expiration != "":
		return Plan{Kind: PathExpiration, Index: p.indexes.Expiration, Partition: spec.Expiration}
	case spec.Collection != "":
		return Plan{Kind: PathDate, Index: p.indexes.Date, Partition: spec.Collection}
	default:
		return Plan{Kind: PathScan}
	}
}

// ListResult is a materialized page of a listing. TotalCount counts
// only what was fetched under the fetch cap; with a non-empty NextToken
// the true total is larger.
type ListResult struct {
	Items      []map[string]types.AttributeValue
	TotalCount int
	NextToken  string
}

// List resolves and executes a spec, fetching matching records up to
// the fetch cap and slicing the requested page in memory. Ordering is
// the index sort-key order (date paths default to most recent first via
// Ascending=false); the scan path has no defined order beyond one
// fetched set.
func (p *Planner) List(ctx context.Context, spec ListSpec) (*ListResult, error) {
	plan := p.Resolve(spec)

	p.logger.Debug("resolved list path",
		zap.String("kind", string(plan.Kind)),
		zap.String("index", plan.Index.Name),
		zap.String("partition", plan.Partition),
	)

	var (
		items  []map[string]types.AttributeValue
		cursor = spec.Cursor
	)

	for len(items) < maxFetch {
		var (
			page *Page
			err  error
		)

		if plan.Kind == PathScan {
			page, err = p.store.Scan(ctx, ScanInput{
				Filter: p.scanFilter(spec),
				Cursor: cursor,
			})
		} else {
			page, err = p.store.Query(ctx, QueryInput{
				IndexName:    plan.Index.Name,
				KeyCondition: keyCondition(plan, spec.DateRange),
				Filter:       combineResidual(spec.Residual),
				Cursor:       cursor,
				Ascending:    spec.Ascending,
			})
		}
		if err != nil {
			return nil, err
		}

		items = append(items, page.Items...)
		cursor = page.NextCursor
		if len(cursor) == 0 {
			break
		}
	}

	nextToken := ""
	if len(cursor) > 0 {
		token, err := EncodeCursor(cursor)
		if err != nil {
			return nil, err
		}
		nextToken = token
	}

	return paginate(items, spec.Page, spec.PageSize, nextToken), nil
}

func paginate(items []map[string]types.AttributeValue, page, pageSize int, nextToken string) *ListResult {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = len(items)
	}

	start := (page - 1) * pageSize
	if start > len(items) {
		start = len(items)
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}

	out := items[start:end]
	if out == nil {
		out = []map[string]types.AttributeValue{}
	}

	return &ListResult{
		Items:      out,
		TotalCount: len(items),
		NextToken:  nextToken,
	}
}

func keyCondition(plan Plan, dates *DateRange) expression.KeyConditionBuilder {
	cond := expression.Key(plan.Index.PKAttr).Equal(expression.Value(plan.Partition))

	if dates == nil {
		return cond
	}

	sk := expression.Key(plan.Index.SKAttr)
	switch {
	case dates.Start != "" && dates.End != "":
		return cond.And(sk.Between(expression.Value(dates.Start), expression.Value(dates.End)))
	case dates.Start != "":
		return cond.And(sk.GreaterThanEqual(expression.Value(dates.Start)))
	case dates.End != "":
		return cond.And(sk.LessThanEqual(expression.Value(dates.End)))
	default:
		return cond
	}
}

// scanFilter narrows the scan fallback to the requested partition prefix
// plus any residual filters.
func (p *Planner) scanFilter(spec ListSpec) *expression.ConditionBuilder {
	conds := make([]expression.ConditionBuilder, 0, len(spec.Residual)+1)
	if spec.PKPrefix != "" {
		conds = append(conds, expression.BeginsWith(expression.Name(entities.AttrPK), spec.PKPrefix))
	}
	conds = append(conds, spec.Residual...)
	return combineResidual(conds)
}

func combineResidual(conds []expression.ConditionBuilder) *expression.ConditionBuilder {
	if len(conds) == 0 {
		return nil
	}

	combined := conds[0]
	for _, c := range conds[1:] {
		combined = combined.And(c)
	}
	return &combined
}
