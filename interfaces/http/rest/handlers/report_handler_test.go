package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReportHandler(env *testEnv) *ReportHandler {
	return NewReportHandler(env.store, env.planner, env.blobs, 15*time.Minute, env.logger, env.errHandler)
}

func seedReportData(t *testing.T, env *testEnv) {
	t.Helper()
	seedDonor(t, env, "donor-1", "Green Grocer")
	seedDonor(t, env, "donor-2", "Corner Bakery")
	seedRecipient(t, env, "rec-1", "Hope House")

	recent := time.Now().UTC().AddDate(0, 0, -2).Format("2006-01-02")
	for _, c := range []struct {
		donor  string
		weight float64
	}{
		{"donor-1", 20},
		{"donor-1", 10},
		{"donor-2", 5},
	} {
		rec := createDonation(t, env, map[string]interface{}{
			"donor_id":      c.donor,
			"donation_date": recent,
			"items": []map[string]interface{}{
				{"name": "Apples", "category": "produce", "quantity": 1, "unit": "lbs", "weight": c.weight},
			},
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
}

func TestDonationsReportTotals(t *testing.T) {
	env := newTestEnv(t)
	seedReportData(t, env)

	rec := httptest.NewRecorder()
	newReportHandler(env).GetDonationsReport(rec, getRequest("/reports/donations"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	report := decodeData[struct {
		TotalCount     int            `json:"total_count"`
		TotalWeight    float64        `json:"total_weight"`
		ByStatus       map[string]int `json:"by_status"`
		ByDonor        map[string]int `json:"by_donor"`
		DistinctDonors int            `json:"distinct_donors"`
	}](t, rec)

	assert.Equal(t, 3, report.TotalCount)
	assert.InDelta(t, 35, report.TotalWeight, 0.001)
	assert.Equal(t, 3, report.ByStatus["pending"])
	assert.Equal(t, 2, report.ByDonor["donor-1"])
	assert.Equal(t, 2, report.DistinctDonors)
}

func TestDashboardCounts(t *testing.T) {
	env := newTestEnv(t)
	seedReportData(t, env)

	rec := httptest.NewRecorder()
	newReportHandler(env).GetDashboard(rec, getRequest("/reports/dashboard"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	dashboard := decodeData[map[string]interface{}](t, rec)
	assert.Equal(t, 3.0, dashboard["donations"])
	assert.Equal(t, 3.0, dashboard["pending_donations"])
	assert.Equal(t, 0.0, dashboard["distributions"])
}

func TestExportReportWritesArtifact(t *testing.T) {
	env := newTestEnv(t)
	seedReportData(t, env)

	rec := httptest.NewRecorder()
	newReportHandler(env).ExportReport(rec, jsonRequest(t, http.MethodPost, "/reports/export",
		map[string]string{"report_type": "donations"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	export := decodeData[map[string]interface{}](t, rec)
	assert.Equal(t, "donations", export["report_type"])
	assert.Contains(t, export["url"], "exports/donations-")
	assert.Equal(t, 900.0, export["expires_in"])

	require.Len(t, env.blobs.puts, 1)
}

func TestExportReportWithoutBlobStoreFails(t *testing.T) {
	env := newTestEnv(t)
	handler := NewReportHandler(env.store, env.planner, nil, 15*time.Minute, env.logger, env.errHandler)

	rec := httptest.NewRecorder()
	handler.ExportReport(rec, jsonRequest(t, http.MethodPost, "/reports/export",
		map[string]string{"report_type": "donations"}))

	requireErrorMessage(t, rec, http.StatusInternalServerError, "blob storage not configured")
}

func TestExportReportRejectsUnknownType(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	newReportHandler(env).ExportReport(rec, jsonRequest(t, http.MethodPost, "/reports/export",
		map[string]string{"report_type": "payroll"}))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env2 := decodeEnvelope(t, rec)
	assert.Equal(t, "report_type", env2.Error.Details["field"])
}
