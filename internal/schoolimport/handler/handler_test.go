package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sekolah-service/internal/config"
	"sekolah-service/internal/normalize"
	"sekolah-service/internal/schoolimport/model"
	"sekolah-service/internal/schoolimport/service"
	"sekolah-service/internal/store/storetest"
)

func csvRequest(t *testing.T, ctx context.Context, strategy string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "sekolah.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("BIL,NEGERI,PPD,PERINGKAT,JENIS,KODSEKOLAH,NAMASEKOLAH\n" +
		"1,Kedah,PPD Kota Setar,Rendah,SK,KBA0001,SK Alor Setar\n" +
		"2,Perlis,PPD Perlis,Rendah,SK,RBA0001,SK Kangar\n"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("strategy", strategy))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/schools/import/execute", &body).WithContext(ctx)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestExecuteOutlivesClientDisconnect(t *testing.T) {
	mem := storetest.NewMemory(model.School{KodSekolah: "OLD0001", NamaSekolah: "SK Lama"})
	norm, err := normalize.New(normalize.Options{})
	require.NoError(t, err)
	svc := service.New(mem, nil, norm, zerolog.Nop(), service.Options{StartRow: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := httptest.NewRecorder()
	Execute(config.Config{MaxUploadMB: 1}, svc, zerolog.Nop()).ServeHTTP(rec, csvRequest(t, ctx, "drop_and_import"))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	n, err := mem.CountSchools(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, mem.Finished, 1)
	assert.True(t, mem.Finished[0].Complete())
}
