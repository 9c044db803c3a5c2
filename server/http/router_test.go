package serverhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	excelize "github.com/xuri/excelize/v2"

	"sekolah-service/internal/backup"
	"sekolah-service/internal/config"
	"sekolah-service/internal/normalize"
	"sekolah-service/internal/schoolimport/model"
	"sekolah-service/internal/schoolimport/service"
	"sekolah-service/internal/store/storetest"
)

type fixture struct {
	srv *httptest.Server
	mem *storetest.Memory
	mgr *backup.Manager
}

func newFixture(t *testing.T, seed ...model.School) fixture {
	t.Helper()
	cfg := config.Config{
		AllowOrigins:    []string{"*"},
		MaxUploadMB:     5,
		BackupKeepDays:  30,
		BackupKeepCount: 10,
	}
	mem := storetest.NewMemory(seed...)
	mgr := backup.NewManager(t.TempDir(), mem)
	norm, err := normalize.New(normalize.Options{CacheSize: 32})
	require.NoError(t, err)
	svc := service.New(mem, mgr, norm, zerolog.Nop(), service.Options{StartRow: 2})

	srv := httptest.NewServer(NewRouter(cfg, svc, mgr, zerolog.Nop()))
	t.Cleanup(srv.Close)
	return fixture{srv: srv, mem: mem, mgr: mgr}
}

func workbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sh := f.GetSheetName(0)
	rows := [][]any{
		{"SENARAI SEKOLAH"},
		{"BIL", "NEGERI", "PPD", "PERINGKAT", "JENIS", "KODSEKOLAH", "NAMASEKOLAH", "ALAMATSURAT", "POSKODSURAT", "BANDARSURAT"},
		{1, "N. Sembilan", "PPD Seremban", "Rendah", "SK", "NBA0001", "SK Seremban", "Jalan 1", "70000", "Seremban"},
		{2, "Pulau Pinang", "PPD Timur Laut", "Menengah", "SMK", "PBA0001", "SMK Georgetown", "Jalan 2", "10000", "georgetown"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sh, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func upload(t *testing.T, url string, file []byte, fields map[string]string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if file != nil {
		fw, err := mw.CreateFormFile("file", "sekolah.xlsx")
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, url, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Actor-ID", "7")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func call(t *testing.T, method, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealth(t *testing.T) {
	fx := newFixture(t)
	resp := call(t, http.MethodGet, fx.srv.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode(t, resp)["status"])
}

func TestDictionary(t *testing.T) {
	fx := newFixture(t)
	resp := call(t, http.MethodGet, fx.srv.URL+"/schools/import/dictionary")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.Contains(t, body["negeri"], "Selangor")
	assert.Contains(t, body["bandar"], "Kuala Lumpur")
}

func TestValidatePreview(t *testing.T) {
	fx := newFixture(t, model.School{KodSekolah: "X1", NamaSekolah: "Existing"})
	resp := upload(t, fx.srv.URL+"/schools/import/validate", workbook(t), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode(t, resp)
	assert.Equal(t, true, body["success"])
	preview := body["preview"].(map[string]any)
	assert.EqualValues(t, 2, preview["totalRows"])
	assert.EqualValues(t, 1, preview["currentDatabaseTotal"])

	sample := preview["sample"].([]any)
	require.Len(t, sample, 2)
	first := sample[0].(map[string]any)
	assert.Equal(t, "Negeri Sembilan", first["negeri"])
	assert.Equal(t, "N. Sembilan", first["original_negeri"])
	assert.Zero(t, fx.mem.Writes)
}

func TestValidateWithoutFile(t *testing.T) {
	fx := newFixture(t)
	resp := upload(t, fx.srv.URL+"/schools/import/validate", nil, map[string]string{"strategy": "merge"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "No file uploaded", body["message"])
}

func TestExecuteInvalidStrategy(t *testing.T) {
	fx := newFixture(t)
	resp := upload(t, fx.srv.URL+"/schools/import/execute", workbook(t), map[string]string{"strategy": "truncate"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, fx.mem.Writes)
}

func TestExecuteBackupAndDropThenManageBackups(t *testing.T) {
	fx := newFixture(t, model.School{KodSekolah: "OLD0001", NamaSekolah: "SK Lama", Negeri: "Perak"})

	resp := upload(t, fx.srv.URL+"/schools/import/execute", workbook(t), map[string]string{"strategy": "backup_and_drop"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 2, body["imported"])
	assert.EqualValues(t, 0, body["failed"])
	bk := body["backup"].(map[string]any)
	assert.EqualValues(t, 1, bk["recordCount"])
	name := bk["filename"].(string)

	_, gone := fx.mem.Get("OLD0001")
	assert.False(t, gone)
	require.Len(t, fx.mem.Finished, 1)
	require.NotNil(t, fx.mem.Finished[0].ActorID)
	assert.EqualValues(t, 7, *fx.mem.Finished[0].ActorID)

	list := decode(t, call(t, http.MethodGet, fx.srv.URL+"/schools/admin/import/backups/list"))
	assert.EqualValues(t, 1, list["totalBackups"])
	item := list["backups"].([]any)[0].(map[string]any)
	assert.Equal(t, name, item["filename"])
	assert.EqualValues(t, 1, item["recordCount"])

	dl := call(t, http.MethodGet, fx.srv.URL+"/schools/admin/import/backups/"+name)
	require.Equal(t, http.StatusOK, dl.StatusCode)
	assert.Contains(t, dl.Header.Get("Content-Disposition"), name)

	rs := call(t, http.MethodPost, fx.srv.URL+"/schools/admin/import/backups/"+name+"/restore")
	require.Equal(t, http.StatusOK, rs.StatusCode)
	assert.Equal(t, name, decode(t, rs)["backup"])
	require.Len(t, fx.mem.Statements, 1)

	del := call(t, http.MethodDelete, fx.srv.URL+"/schools/admin/import/backups/"+name)
	require.Equal(t, http.StatusOK, del.StatusCode)
	deleted := decode(t, del)["deletedFile"].(map[string]any)
	assert.Equal(t, name, deleted["filename"])

	stats := decode(t, call(t, http.MethodGet, fx.srv.URL+"/schools/admin/import/backups/stats"))
	assert.EqualValues(t, 0, stats["stats"].(map[string]any)["totalBackups"])
}

func TestBackupNameChecks(t *testing.T) {
	fx := newFixture(t)

	resp := call(t, http.MethodGet, fx.srv.URL+"/schools/admin/import/backups/passwd.txt")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = call(t, http.MethodDelete, fx.srv.URL+"/schools/admin/import/backups/schools_backup_2024-01-01T00-00-00-000Z.sql")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCleanupUsesQueryRules(t *testing.T) {
	fx := newFixture(t)
	resp := call(t, http.MethodDelete, fx.srv.URL+"/schools/admin/import/backups/cleanup?keepDays=7&keepCount=3")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, "Cleanup completed: 0 backups deleted", body["message"])
	rules := body["cleanupRules"].(map[string]any)
	assert.EqualValues(t, 7, rules["maxAgeDays"])
	assert.EqualValues(t, 3, rules["maxCount"])
}

func TestImportHistoryMarksUnfinishedRuns(t *testing.T) {
	fx := newFixture(t)

	resp := upload(t, fx.srv.URL+"/schools/import/execute", workbook(t), map[string]string{"strategy": "merge"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stuck := model.ImportBatch{BatchID: "BATCH_STUCK", Filename: "stuck.xlsx", Strategy: model.StrategyDropAndImport, Total: 9}
	require.NoError(t, fx.mem.OpenBatch(context.Background(), &stuck))

	hist := call(t, http.MethodGet, fx.srv.URL+"/schools/admin/import/history")
	require.Equal(t, http.StatusOK, hist.StatusCode)
	logs := decode(t, hist)["logs"].([]any)
	require.Len(t, logs, 2)

	newest := logs[0].(map[string]any)
	assert.Equal(t, "BATCH_STUCK", newest["batchId"])
	assert.Equal(t, "incomplete", newest["status"])
	assert.Nil(t, newest["completedAt"])

	done := logs[1].(map[string]any)
	assert.Equal(t, "completed", done["status"])
	assert.EqualValues(t, 2, done["importedRecords"])
	assert.EqualValues(t, 7, done["importedBy"])
}
