package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"savinggrace-backend/application/ports"
	"savinggrace-backend/domain/entities"
	dynamostore "savinggrace-backend/infrastructure/persistence/dynamodb"
	"savinggrace-backend/pkg/common"
	apperrors "savinggrace-backend/pkg/errors"
	"savinggrace-backend/pkg/utils"
)

// reportTypes lists the accepted export report types.
var reportTypes = []string{"donations", "distributions", "impact"}

// ReportHandler serves read-only aggregations over the query paths and
// report exports.
type ReportHandler struct {
	store      *dynamostore.Store
	planner    *dynamostore.Planner
	blobs      ports.BlobStore
	signedTTL  time.Duration
	logger     *zap.Logger
	errHandler *apperrors.ErrorHandler
}

// NewReportHandler creates a report handler.
func NewReportHandler(store *dynamostore.Store, planner *dynamostore.Planner, blobs ports.BlobStore, signedTTL time.Duration, logger *zap.Logger, errHandler *apperrors.ErrorHandler) *ReportHandler {
	return &ReportHandler{
		store:      store,
		planner:    planner,
		blobs:      blobs,
		signedTTL:  signedTTL,
		logger:     logger,
		errHandler: errHandler,
	}
}

// donationReport summarizes donations over a window.
type donationReport struct {
	StartDate      string         `json:"start_date"`
	EndDate        string         `json:"end_date"`
	TotalCount     int            `json:"total_count"`
	TotalWeight    float64        `json:"total_weight"`
	ByStatus       map[string]int `json:"by_status"`
	ByDonor        map[string]int `json:"by_donor"`
	DistinctDonors int            `json:"distinct_donors"`
}

// distributionReport summarizes distributions over a window.
type distributionReport struct {
	StartDate        string         `json:"start_date"`
	EndDate          string         `json:"end_date"`
	TotalCount       int            `json:"total_count"`
	ByStatus         map[string]int `json:"by_status"`
	RecipientsServed int            `json:"recipients_served"`
	ItemsDistributed float64        `json:"items_distributed"`
}

// impactReport is the combined headline view.
type impactReport struct {
	StartDate        string  `json:"start_date"`
	EndDate          string  `json:"end_date"`
	TotalDonations   int     `json:"total_donations"`
	TotalWeight      float64 `json:"total_weight"`
	Distributions    int     `json:"distributions_completed"`
	RecipientsServed int     `json:"recipients_served"`
}

// reportWindow resolves the report date range, defaulting to the last
// 30 days.
func reportWindow(r *http.Request) (start, end string, err error) {
	dates, err := queryDateRange(r)
	if err != nil {
		return "", "", err
	}
	if dates == nil {
		end = utils.NowRFC3339()
		start = utils.DaysFromNow(-30)
		return start, end, nil
	}

	start = dates.Start
	if start == "" {
		start = utils.DaysFromNow(-30)
	}
	end = dates.End
	if end == "" {
		end = utils.NowRFC3339()
	}
	return start, end, nil
}

func (h *ReportHandler) donationsInWindow(ctx context.Context, start, end string) ([]entities.Donation, error) {
	result, err := h.planner.List(ctx, dynamostore.ListSpec{
		Collection: entities.CollectionDonations,
		DateRange:  &dynamostore.DateRange{Start: start, End: end},
	})
	if err != nil {
		return nil, err
	}
	return unmarshalAll[entities.Donation](result.Items)
}

func (h *ReportHandler) distributionsInWindow(ctx context.Context, start, end string) ([]entities.Distribution, error) {
	result, err := h.planner.List(ctx, dynamostore.ListSpec{
		Collection: entities.CollectionDistributions,
		DateRange:  &dynamostore.DateRange{Start: start, End: end},
	})
	if err != nil {
		return nil, err
	}
	return unmarshalAll[entities.Distribution](result.Items)
}

func buildDonationReport(donations []entities.Donation, start, end string) donationReport {
	report := donationReport{
		StartDate: start,
		EndDate:   end,
		ByStatus:  map[string]int{},
		ByDonor:   map[string]int{},
	}
	for _, d := range donations {
		report.TotalCount++
		report.TotalWeight += d.TotalWeight
		report.ByStatus[string(d.Status)]++
		report.ByDonor[d.DonorID]++
	}
	report.DistinctDonors = len(report.ByDonor)
	return report
}

func buildDistributionReport(distributions []entities.Distribution, start, end string) distributionReport {
	report := distributionReport{
		StartDate: start,
		EndDate:   end,
		ByStatus:  map[string]int{},
	}
	recipients := map[string]struct{}{}
	for _, d := range distributions {
		report.TotalCount++
		report.ByStatus[string(d.Status)]++
		recipients[d.RecipientID] = struct{}{}
		for _, item := range d.ActualItems {
			report.ItemsDistributed += item.Quantity
		}
	}
	report.RecipientsServed = len(recipients)
	return report
}

func buildImpactReport(donations []entities.Donation, distributions []entities.Distribution, start, end string) impactReport {
	report := impactReport{
		StartDate:      start,
		EndDate:        end,
		TotalDonations: len(donations),
	}
	for _, d := range donations {
		report.TotalWeight += d.TotalWeight
	}
	recipients := map[string]struct{}{}
	for _, d := range distributions {
		if d.Status == entities.DistributionStatusCompleted {
			report.Distributions++
			recipients[d.RecipientID] = struct{}{}
		}
	}
	report.RecipientsServed = len(recipients)
	return report
}

// GetDashboard handles GET /reports/dashboard: headline numbers for the
// last 30 days.
func (h *ReportHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	end := utils.NowRFC3339()
	start := utils.DaysFromNow(-30)

	donations, err := h.donationsInWindow(r.Context(), start, end)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	distributions, err := h.distributionsInWindow(r.Context(), start, end)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	expiring, err := h.planner.List(r.Context(), dynamostore.ListSpec{
		Expiration: entities.CollectionItems,
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

	pendingDonations := 0
	for _, d := range donations {
		if d.Status == entities.DonationStatusPending {
			pendingDonations++
		}
	}
	scheduledDistributions := 0
	for _, d := range distributions {
		if d.Status == entities.DistributionStatusScheduled {
			scheduledDistributions++
		}
	}

	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"window_start":            start,
		"window_end":              end,
		"donations":               len(donations),
		"pending_donations":       pendingDonations,
		"distributions":           len(distributions),
		"scheduled_distributions": scheduledDistributions,
		"items_expiring_soon":     expiring.TotalCount,
	})
}

// GetDonationsReport handles GET /reports/donations.
func (h *ReportHandler) GetDonationsReport(w http.ResponseWriter, r *http.Request) {
	start, end, err := reportWindow(r)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	donations, err := h.donationsInWindow(r.Context(), start, end)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, buildDonationReport(donations, start, end))
}

// GetDistributionsReport handles GET /reports/distributions.
func (h *ReportHandler) GetDistributionsReport(w http.ResponseWriter, r *http.Request) {
	start, end, err := reportWindow(r)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	distributions, err := h.distributionsInWindow(r.Context(), start, end)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, buildDistributionReport(distributions, start, end))
}

// GetImpactReport handles GET /reports/impact.
func (h *ReportHandler) GetImpactReport(w http.ResponseWriter, r *http.Request) {
	start, end, err := reportWindow(r)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	donations, err := h.donationsInWindow(r.Context(), start, end)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	distributions, err := h.distributionsInWindow(r.Context(), start, end)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, buildImpactReport(donations, distributions, start, end))
}

// ExportReportRequest is the POST /reports/export payload.
type ExportReportRequest struct {
	ReportType string `json:"report_type" validate:"required"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
}

// ExportReport handles POST /reports/export: builds the report, stores
// it as a JSON artifact and returns a time-limited signed link.
func (h *ReportHandler) ExportReport(w http.ResponseWriter, r *http.Request) {
	if h.blobs == nil {
		h.errHandler.Handle(w, r, apperrors.NewInternalError("blob storage not configured"))
		return
	}

	var req ExportReportRequest
	if err := parseBody(r, &req); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	if err := utils.ValidateEnum("report_type", req.ReportType, reportTypes); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	start := req.StartDate
	end := req.EndDate
	if start == "" {
		start = utils.DaysFromNow(-30)
	} else if err := utils.ValidateISODate("start_date", start); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	} else {
		start = utils.StartOfDay(start)
	}
	if end == "" {
		end = utils.NowRFC3339()
	} else if err := utils.ValidateISODate("end_date", end); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	} else {
		end = utils.EndOfDay(end)
	}

	var payload interface{}
	switch req.ReportType {
	case "donations":
		donations, err := h.donationsInWindow(r.Context(), start, end)
		if err != nil {
			h.errHandler.Handle(w, r, err)
			return
		}
		payload = buildDonationReport(donations, start, end)
	case "distributions":
		distributions, err := h.distributionsInWindow(r.Context(), start, end)
		if err != nil {
			h.errHandler.Handle(w, r, err)
			return
		}
		payload = buildDistributionReport(distributions, start, end)
	case "impact":
		donations, err := h.donationsInWindow(r.Context(), start, end)
		if err != nil {
			h.errHandler.Handle(w, r, err)
			return
		}
		distributions, err := h.distributionsInWindow(r.Context(), start, end)
		if err != nil {
			h.errHandler.Handle(w, r, err)
			return
		}
		payload = buildImpactReport(donations, distributions, start, end)
	}

	artifact, err := json.Marshal(payload)
	if err != nil {
		h.errHandler.Handle(w, r, apperrors.NewInternalError("failed to render report"))
		return
	}

	key := fmt.Sprintf("exports/%s-%s.json", req.ReportType, uuid.NewString())
	if err := h.blobs.PutBlob(r.Context(), key, artifact, "application/json"); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	url, err := h.blobs.SignedURL(r.Context(), key, h.signedTTL)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("Report exported",
		zap.String("report_type", req.ReportType),
		zap.String("key", key),
	)

	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"report_type": req.ReportType,
		"url":         url,
		"expires_in":  int(h.signedTTL.Seconds()),
	})
}
