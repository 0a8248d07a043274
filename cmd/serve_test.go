//go:build !integration

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/indicator-cli/internal/model"
	"github.com/sells-group/indicator-cli/internal/store"
)

func serve(t *testing.T, h http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestBuildRouter_Banner(t *testing.T) {
	h := buildRouter(newTestEnv(t, false))

	rr := serve(t, h, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, banner, rr.Body.String())
}

func TestBuildRouter_Health(t *testing.T) {
	h := buildRouter(newTestEnv(t, false))

	rr := serve(t, h, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	body := decodeBody(t, rr)
	assert.Equal(t, "warning", body["status"])
	assert.Equal(t, "not found", body["workbook"])
	assert.Equal(t, version, body["version"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestBuildRouter_LoadExcel_Missing(t *testing.T) {
	h := buildRouter(newTestEnv(t, false))

	rr := serve(t, h, http.MethodGet, "/api/load-excel", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	body := decodeBody(t, rr)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "workbook not found")
}

func TestBuildRouter_LoadExcel(t *testing.T) {
	env := newTestEnv(t, false)

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Plan")
	require.NoError(t, err)
	for _, r := range [][]string{
		{"Eje", "Indicador", "Meta"},
		{"Seguridad", "Siniestros viales", "Reducir de 10 a 5"},
		{"Social", "Tasa de desempleo", "Reducir de 4,1% a 3,5%"},
	} {
		row := sheet.AddRow()
		for _, c := range r {
			row.AddCell().SetString(c)
		}
	}
	require.NoError(t, f.Save(env.cfg.Workbook.Path))

	rr := serve(t, buildRouter(env), http.MethodGet, "/api/load-excel", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	body := decodeBody(t, rr)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 2, body["total"])
	data, ok := body["data"].([]any)
	require.True(t, ok)
	first, ok := data[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Siniestros viales", first["Indicador"])
}

func TestBuildRouter_Analyze_Empty(t *testing.T) {
	h := buildRouter(newTestEnv(t, false))

	rr := serve(t, h, http.MethodPost, "/api/analyze", []byte(`{"indicators":[]}`))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "no indicators received", decodeBody(t, rr)["error"])
}

func TestBuildRouter_Analyze_InvalidBody(t *testing.T) {
	h := buildRouter(newTestEnv(t, false))

	rr := serve(t, h, http.MethodPost, "/api/analyze", []byte(`not json`))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestBuildRouter_Analyze(t *testing.T) {
	env := newTestEnv(t, true)
	h := buildRouter(env)

	payload := []byte(`{"indicators":[
		{"Eje":"Seguridad","Indicador":"Siniestros viales","Meta":"Reducir de 10 a 5"},
		{"Indicador":"Sin datos","Meta":"Incrementar de 100 a 200"}
	]}`)
	rr := serve(t, h, http.MethodPost, "/api/analyze", payload)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Success bool                    `json:"success"`
		Results []model.IndicatorResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Results, 2)

	road := resp.Results[0]
	assert.Equal(t, "Seguridad", road.Axis)
	require.True(t, road.Current.Valid)
	assert.InDelta(t, 8.0, road.Current.Value, 1e-9)
	assert.InDelta(t, 40.0, road.Progress, 1e-9)
	assert.Equal(t, "junio 2025", road.DataDate)

	missing := resp.Results[1]
	assert.Equal(t, model.DefaultAxis, missing.Axis)
	assert.False(t, missing.Current.Valid)
	assert.Equal(t, model.Unavailable, missing.Source)
	assert.Contains(t, rr.Body.String(), `"valor_actual":"unavailable"`)

	runs, err := env.store.ListRuns(context.Background(), store.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, store.OriginAPI, runs[0].Origin)
	assert.Equal(t, model.RunStatusComplete, runs[0].Status)
	assert.Equal(t, 2, runs[0].Indicators)
	assert.Equal(t, 2, runs[0].Succeeded)
}

func TestBuildRouter_Runs(t *testing.T) {
	env := newTestEnv(t, true)
	h := buildRouter(env)

	run, err := env.store.CreateRun(context.Background(), store.OriginCLI, 3)
	require.NoError(t, err)

	rr := serve(t, h, http.MethodGet, "/api/runs?origin=cli&limit=5", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Runs []model.Run `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Runs, 1)
	assert.Equal(t, run.ID, resp.Runs[0].ID)

	rr = serve(t, h, http.MethodGet, "/api/runs/"+run.ID, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = serve(t, h, http.MethodGet, "/api/runs/missing", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = serve(t, h, http.MethodGet, "/api/runs?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestBuildRouter_Runs_Disabled(t *testing.T) {
	h := buildRouter(newTestEnv(t, false))

	rr := serve(t, h, http.MethodGet, "/api/runs", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestBuildRouter_CORSPreflight(t *testing.T) {
	h := buildRouter(newTestEnv(t, false))

	req := httptest.NewRequest(http.MethodOptions, "/api/analyze", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestBuildRouter_RunStats(t *testing.T) {
	env := newTestEnv(t, true)
	env.cfg.Monitoring.LookbackWindowHours = 24
	h := buildRouter(env)

	run, err := env.store.CreateRun(context.Background(), store.OriginAPI, 4)
	require.NoError(t, err)
	require.NoError(t, env.store.FinishRun(context.Background(), run.ID, store.RunOutcome{
		Status: model.RunStatusComplete, Succeeded: 3, Failed: 1,
	}))

	rr := serve(t, h, http.MethodGet, "/api/runs/stats", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.EqualValues(t, 1, body["runs_complete"])
	assert.EqualValues(t, 1, body["indicators_failed"])
	assert.EqualValues(t, 24, body["lookback_hours"])

	rr = serve(t, h, http.MethodGet, "/api/runs/stats?hours=x", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
