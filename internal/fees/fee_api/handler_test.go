package fee_api_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	feesdb "conf-registration/internal/fees/db"
	"conf-registration/internal/fees/fee_api"
	"conf-registration/internal/fees/service"
	"conf-registration/internal/models"
)

func setupHandler(t *testing.T) (http.Handler, *feesdb.DB, *bun.DB) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}
	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	for _, model := range []interface{}{
		(*models.Conference)(nil),
		(*models.Fee)(nil),
		(*models.Registration)(nil),
	} {
		_, err = bunDB.NewCreateTable().Model(model).Exec(context.Background())
		if err != nil {
			t.Fatalf("Failed to create table: %v", err)
		}
	}

	conf := models.Conference{
		ConferenceID: "conf-1",
		Slug:         "gophercon-2026",
		Name:         "GopherCon 2026",
		CreatedAt:    time.Now().UTC(),
	}
	_, err = bunDB.NewInsert().Model(&conf).Exec(context.Background())
	require.NoError(t, err)

	catalogDB := &feesdb.DB{Bun: bunDB}
	feeService := service.NewFeeService(catalogDB, nil, nil, "EUR")
	handler := fee_api.NewHandler(feeService, catalogDB, nil)

	r := chi.NewRouter()
	r.Route("/api/conferences/{conference}/fees", func(r chi.Router) {
		r.Get("/", handler.GetPublicFees)
	})
	r.Route("/api/admin/conferences/{conference}/fees", func(r chi.Router) {
		r.Get("/", handler.GetAdminFees)
		r.Post("/", handler.CreateFee)
		r.Put("/reorder", handler.ReorderFees)
		r.Put("/{feeID}", handler.UpdateFee)
		r.Delete("/{feeID}", handler.DeactivateFee)
	})
	return r, catalogDB, bunDB
}

func feeBody(name string, active bool) []byte {
	now := time.Now().UTC()
	input := models.FeeInput{
		Name:       name,
		ValidFrom:  now.AddDate(0, 0, -1),
		ValidTo:    now.AddDate(0, 0, 30),
		IsActive:   active,
		PriceNet:   84.03,
		PriceGross: 100.0,
		Currency:   "EUR",
	}
	body, _ := json.Marshal(input)
	return body
}

func TestCreateFeeEndpoint(t *testing.T) {
	router, catalogDB, bunDB := setupHandler(t)
	defer bunDB.Close()

	req := httptest.NewRequest(http.MethodPost,
		"/api/admin/conferences/gophercon-2026/fees", bytes.NewReader(feeBody("Early Bird", true)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var created models.Fee
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, "Early Bird", created.Name)
	assert.NotEmpty(t, created.FeeID)

	stored, err := catalogDB.GetFee(created.FeeID, "conf-1")
	assert.NoError(t, err)
	assert.Equal(t, "Early Bird", stored.Name)
}

func TestCreateFeeEndpointValidation(t *testing.T) {
	router, _, bunDB := setupHandler(t)
	defer bunDB.Close()

	body := []byte(`{"name":"","currency":"EUR","valid_from":"2025-01-01T00:00:00Z","valid_to":"2025-01-31T00:00:00Z"}`)
	req := httptest.NewRequest(http.MethodPost,
		"/api/admin/conferences/gophercon-2026/fees", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownConferenceReturns404(t *testing.T) {
	router, _, bunDB := setupHandler(t)
	defer bunDB.Close()

	req := httptest.NewRequest(http.MethodGet, "/api/conferences/unknown/fees", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPublicListHidesInactive(t *testing.T) {
	router, _, bunDB := setupHandler(t)
	defer bunDB.Close()

	for _, tc := range []struct {
		name   string
		active bool
	}{{"Visible", true}, {"Hidden", false}} {
		req := httptest.NewRequest(http.MethodPost,
			"/api/admin/conferences/gophercon-2026/fees", bytes.NewReader(feeBody(tc.name, tc.active)))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/conferences/gophercon-2026/fees", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var list models.FeeOptionList
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Equal(t, "EUR", list.Currency)
	assert.Equal(t, 1, len(list.Fees))
	assert.Equal(t, "Visible", list.Fees[0].Name)
	assert.True(t, list.Fees[0].IsAvailable)

	// The admin list still shows both
	req = httptest.NewRequest(http.MethodGet, "/api/admin/conferences/gophercon-2026/fees", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var views []models.FeeAdminView
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&views))
	assert.Equal(t, 2, len(views))
}

func TestUpdateAndDeactivateFeeEndpoints(t *testing.T) {
	router, catalogDB, bunDB := setupHandler(t)
	defer bunDB.Close()

	fee, err := catalogDB.CreateFee("fee-1", "conf-1", models.FeeInput{
		Name:       "Early Bird",
		ValidFrom:  time.Now().UTC(),
		ValidTo:    time.Now().UTC().AddDate(0, 1, 0),
		IsActive:   true,
		PriceNet:   84.03,
		PriceGross: 100.0,
		Currency:   "EUR",
	})
	require.NoError(t, err)

	patch := []byte(`{"price_gross": 120}`)
	req := httptest.NewRequest(http.MethodPut,
		"/api/admin/conferences/gophercon-2026/fees/fee-1", bytes.NewReader(patch))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var updated models.Fee
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&updated))
	assert.Equal(t, 120.0, updated.PriceGross)
	assert.Equal(t, "Early Bird", updated.Name)

	req = httptest.NewRequest(http.MethodDelete,
		"/api/admin/conferences/gophercon-2026/fees/fee-1", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	stored, err := catalogDB.GetFee(fee.FeeID, "conf-1")
	assert.NoError(t, err)
	assert.False(t, stored.IsActive)

	// Patching a missing fee is a 404
	req = httptest.NewRequest(http.MethodPut,
		"/api/admin/conferences/gophercon-2026/fees/missing", bytes.NewReader(patch))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReorderFeesEndpoint(t *testing.T) {
	router, catalogDB, bunDB := setupHandler(t)
	defer bunDB.Close()

	ids := []string{"fee-a", "fee-b"}
	for _, id := range ids {
		_, err := catalogDB.CreateFee(id, "conf-1", models.FeeInput{
			Name:       "Fee " + id,
			ValidFrom:  time.Now().UTC(),
			ValidTo:    time.Now().UTC().AddDate(0, 1, 0),
			IsActive:   true,
			PriceGross: 100.0,
			Currency:   "EUR",
		})
		require.NoError(t, err)
	}

	body := []byte(`{"fee_ids": ["fee-b", "fee-a"]}`)
	req := httptest.NewRequest(http.MethodPut,
		"/api/admin/conferences/gophercon-2026/fees/reorder", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	list, err := catalogDB.ListFees("conf-1", false)
	assert.NoError(t, err)
	assert.Equal(t, "fee-b", list[0].FeeID)
	assert.Equal(t, "fee-a", list[1].FeeID)

	// An empty sequence is rejected
	req = httptest.NewRequest(http.MethodPut,
		"/api/admin/conferences/gophercon-2026/fees/reorder", bytes.NewReader([]byte(`{"fee_ids": []}`)))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
