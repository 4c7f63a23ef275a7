package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	printingapp "github.com/printdesk/backend/internal/application/printing"
	"github.com/printdesk/backend/internal/domain/printing"
	"github.com/printdesk/backend/internal/domain/shared"
	"github.com/printdesk/backend/internal/infrastructure/cache"
	infra "github.com/printdesk/backend/internal/infrastructure/printing"
	"github.com/printdesk/backend/internal/interfaces/http/dto"
	"github.com/printdesk/backend/internal/interfaces/http/middleware"
	"github.com/printdesk/backend/internal/interfaces/http/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	officePrinter = "Office-Laser"
	frontPrinter  = "Front-Desk"
	testBodyLimit = 1 << 16
)

// =============================================================================
// Test Doubles
// =============================================================================

type fixedPages int

func (p fixedPages) PageCount(path string) (int, error) {
	return int(p), nil
}

// pdfOnlyConverter passes PDFs through and rejects everything else
type pdfOnlyConverter struct{}

func (pdfOnlyConverter) Supports(extension string) bool {
	return extension == ".pdf"
}

func (c pdfOnlyConverter) Convert(ctx context.Context, doc *printing.Document) (*printing.PdfDocument, error) {
	if !c.Supports(doc.Extension) {
		return nil, printing.NewConversionError("unsupported file type "+doc.Extension, nil)
	}
	return printing.NewPdfDocument(doc, fixedPages(3)), nil
}

// memoryRepository keeps document records in a map
type memoryRepository struct {
	mu      sync.Mutex
	records map[string]printing.DocumentRecord
	seq     int
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{records: make(map[string]printing.DocumentRecord)}
}

func (r *memoryRepository) Save(ctx context.Context, record *printing.DocumentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	record.ID = "doc-" + strconv.Itoa(r.seq)
	record.CreatedAt = time.Now().Add(time.Duration(r.seq) * time.Millisecond)
	r.records[record.UniqueName] = *record
	return nil
}

func (r *memoryRepository) FindByName(ctx context.Context, uniqueName string) (*printing.DocumentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[uniqueName]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &record, nil
}

func (r *memoryRepository) List(ctx context.Context, limit int) ([]printing.DocumentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]printing.DocumentRecord, 0, len(r.records))
	for _, record := range r.records {
		result = append(result, record)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *memoryRepository) DeleteByName(ctx context.Context, uniqueName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, uniqueName)
	return nil
}

func (r *memoryRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

// =============================================================================
// Helpers
// =============================================================================

type envelope[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data"`
	Error   *dto.ErrorInfo `json:"error"`
}

func decodeEnvelope[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

type printAPI struct {
	engine  *gin.Engine
	store   *infra.FileSystemStorage
	spooler *infra.MemorySpooler
}

func newPrintAPI(t *testing.T) *printAPI {
	t.Helper()
	middleware.SetupValidator()

	store, err := infra.NewFileSystemStorage(&infra.FileSystemStorageConfig{BasePath: t.TempDir()})
	require.NoError(t, err)

	spooler := infra.NewMemorySpooler(nil, officePrinter, frontPrinter)
	submitter := printingapp.NewPrintSubmitter(printingapp.SubmitterConfig{
		Writer:       infra.NewPDFCPUSubsetWriter(&infra.SubsetWriterConfig{OutputDir: store.BasePath()}),
		Renderer:     infra.NewMemoryRenderer(spooler, fixedPages(3), nil),
		Gateway:      spooler,
		Encoder:      infra.SumatraEncoder{},
		PollAttempts: 2,
		PollInterval: time.Millisecond,
	})

	submissions := cache.NewInMemorySubmissionCache()
	t.Cleanup(func() { submissions.Close() })

	service := printingapp.NewPrintService(printingapp.ServiceConfig{
		Store:      store,
		Converter:  pdfOnlyConverter{},
		Repository: newMemoryRepository(),
		Gateway:    spooler,
		Submitter:  submitter,
		Cache:      submissions,
	})

	engine := gin.New()
	engine.Use(middleware.RequestID(), middleware.BodyLimit(testBodyLimit))

	h := NewPrintHandler(service)
	router.NewRouter(engine).
		Register(DocumentRoutes(h)).
		Register(PrintRoutes(h)).
		Register(PrinterRoutes(h)).
		Register(JobRoutes(h)).
		Setup()

	return &printAPI{engine: engine, store: store, spooler: spooler}
}

func (a *printAPI) do(t *testing.T, method, target string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func (a *printAPI) doJSON(t *testing.T, method, target string, payload any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return a.do(t, method, target, bytes.NewReader(body), headers)
}

func (a *printAPI) upload(t *testing.T, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return a.do(t, http.MethodPost, "/api/v1/documents", &buf, map[string]string{
		"Content-Type": mw.FormDataContentType(),
	})
}

// storeDocument uploads a PDF and returns its unique name
func (a *printAPI) storeDocument(t *testing.T) string {
	t.Helper()
	w := a.upload(t, "report.pdf", []byte("%PDF-1.4\n"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeEnvelope[printingapp.DocumentResponse](t, w).Data.NewFilename
}

// =============================================================================
// Document Endpoint Tests
// =============================================================================

func TestPrintHandler_UploadDocument(t *testing.T) {
	api := newPrintAPI(t)

	w := api.upload(t, "Quarterly Report.pdf", []byte("%PDF-1.4\n"))

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	env := decodeEnvelope[printingapp.DocumentResponse](t, w)
	assert.True(t, env.Success)
	assert.Equal(t, "Quarterly Report.pdf", env.Data.OriginFilename)
	assert.True(t, strings.HasSuffix(env.Data.NewFilename, "_Quarterly_Report.pdf"), env.Data.NewFilename)
	assert.Equal(t, 3, env.Data.Pages)
	assert.Equal(t, "0.01KB", env.Data.Size)
}

func TestPrintHandler_UploadDocument_Errors(t *testing.T) {
	t.Run("missing file field", func(t *testing.T) {
		api := newPrintAPI(t)
		w := api.do(t, http.MethodPost, "/api/v1/documents", strings.NewReader("{}"), nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeBadRequest, decodeEnvelope[any](t, w).Error.Code)
	})

	t.Run("unsupported type", func(t *testing.T) {
		api := newPrintAPI(t)
		w := api.upload(t, "notes.txt", []byte("hello"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, printing.CodeConversionFailed, decodeEnvelope[any](t, w).Error.Code)
	})

	t.Run("body over limit", func(t *testing.T) {
		api := newPrintAPI(t)
		w := api.upload(t, "big.pdf", bytes.Repeat([]byte("x"), testBodyLimit+1))

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Equal(t, dto.ErrCodeRequestTooLarge, decodeEnvelope[any](t, w).Error.Code)
	})
}

func TestPrintHandler_GetDocument(t *testing.T) {
	api := newPrintAPI(t)
	name := api.storeDocument(t)

	w := api.do(t, http.MethodGet, "/api/v1/documents/"+name, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, name, decodeEnvelope[printingapp.DocumentResponse](t, w).Data.NewFilename)

	w = api.do(t, http.MethodGet, "/api/v1/documents/nope.pdf", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decodeEnvelope[any](t, w).Error.Code)
}

func TestPrintHandler_ListDocuments(t *testing.T) {
	api := newPrintAPI(t)
	api.storeDocument(t)
	api.storeDocument(t)

	w := api.do(t, http.MethodGet, "/api/v1/documents?limit=1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeEnvelope[[]printingapp.DocumentResponse](t, w).Data, 1)

	w = api.do(t, http.MethodGet, "/api/v1/documents", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeEnvelope[[]printingapp.DocumentResponse](t, w).Data, 2)

	w = api.do(t, http.MethodGet, "/api/v1/documents?limit=500", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeValidation, decodeEnvelope[any](t, w).Error.Code)
}

// =============================================================================
// Print Endpoint Tests
// =============================================================================

func TestPrintHandler_Print_DefaultPrinter(t *testing.T) {
	api := newPrintAPI(t)
	name := api.storeDocument(t)

	w := api.doJSON(t, http.MethodPost, "/api/v1/print", map[string]any{"filename": name}, nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	env := decodeEnvelope[printingapp.PrintResponse](t, w)
	assert.True(t, env.Success)
	assert.Equal(t, string(printing.SubmissionResolved), env.Data.State)
	assert.Equal(t, officePrinter, env.Data.Printer)
	require.NotNil(t, env.Data.JobID)

	job, err := api.spooler.GetJob(context.Background(), officePrinter, *env.Data.JobID)
	require.NoError(t, err)
	assert.Equal(t, name, job.Document)
}

func TestPrintHandler_Print_NamedPrinterWithOptions(t *testing.T) {
	api := newPrintAPI(t)
	name := api.storeDocument(t)

	w := api.doJSON(t, http.MethodPost, "/api/v1/print", map[string]any{
		"filename": name,
		"options": map[string]any{
			"printer":    frontPrinter,
			"pages":      "1-2",
			"side":       "simplex",
			"monochrome": true,
			"copies":     2,
		},
	}, nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	env := decodeEnvelope[printingapp.PrintResponse](t, w)
	assert.Equal(t, frontPrinter, env.Data.Printer)
	assert.Equal(t, string(printing.SubmissionResolved), env.Data.State)
	assert.Empty(t, env.Data.Pages)
}

func TestPrintHandler_Print_IdempotentReplay(t *testing.T) {
	api := newPrintAPI(t)
	name := api.storeDocument(t)
	headers := map[string]string{IdempotencyKeyHeader: "order-42"}

	first := api.doJSON(t, http.MethodPost, "/api/v1/print", map[string]any{"filename": name}, headers)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Empty(t, first.Header().Get("Idempotent-Replayed"))

	second := api.doJSON(t, http.MethodPost, "/api/v1/print", map[string]any{"filename": name}, headers)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))

	a := decodeEnvelope[printingapp.PrintResponse](t, first).Data
	b := decodeEnvelope[printingapp.PrintResponse](t, second).Data
	assert.Equal(t, a.JobID, b.JobID)
	assert.True(t, b.Replayed)

	jobs, err := api.spooler.EnumJobs(context.Background(), officePrinter)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestPrintHandler_Print_Errors(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		headers      map[string]string
		expectedCode int
		expectedErr  string
	}{
		{
			name:         "malformed json",
			body:         `{"filename":`,
			expectedCode: http.StatusBadRequest,
			expectedErr:  dto.ErrCodeBadRequest,
		},
		{
			name:         "missing filename",
			body:         `{"options":{}}`,
			expectedCode: http.StatusBadRequest,
			expectedErr:  dto.ErrCodeValidation,
		},
		{
			name:         "unknown document",
			body:         `{"filename":"missing.pdf"}`,
			expectedCode: http.StatusNotFound,
			expectedErr:  "NOT_FOUND",
		},
		{
			name:         "path traversal",
			body:         `{"filename":"../etc/passwd"}`,
			expectedCode: http.StatusBadRequest,
			expectedErr:  "INVALID_INPUT",
		},
		{
			name:         "idempotency key too long",
			body:         `{"filename":"missing.pdf"}`,
			headers:      map[string]string{IdempotencyKeyHeader: strings.Repeat("k", 300)},
			expectedCode: http.StatusBadRequest,
			expectedErr:  dto.ErrCodeBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newPrintAPI(t)

			w := api.do(t, http.MethodPost, "/api/v1/print", strings.NewReader(tt.body), tt.headers)

			assert.Equal(t, tt.expectedCode, w.Code, w.Body.String())
			env := decodeEnvelope[any](t, w)
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.expectedErr, env.Error.Code)
			assert.NotEmpty(t, env.Error.RequestID)
		})
	}
}

func TestPrintHandler_Print_InvalidPageRange(t *testing.T) {
	tests := []struct {
		name     string
		options  map[string]any
		wantCode string
	}{
		{"duplex reversed range", map[string]any{"pages": "5-1", "side": "duplex"}, printing.CodeInvalidRange},
		{"simplex reversed range", map[string]any{"pages": "3-1", "side": "simplex"}, printing.CodeInvalidRange},
		{"simplex page past the end", map[string]any{"pages": "2-7", "side": "simplex"}, printing.CodePageOutOfRange},
		{"no side page past the end", map[string]any{"pages": "4"}, printing.CodePageOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newPrintAPI(t)
			name := api.storeDocument(t)

			w := api.doJSON(t, http.MethodPost, "/api/v1/print", map[string]any{
				"filename": name,
				"options":  tt.options,
			}, nil)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantCode, decodeEnvelope[any](t, w).Error.Code)

			jobs, err := api.spooler.EnumJobs(context.Background(), officePrinter)
			require.NoError(t, err)
			assert.Empty(t, jobs)
		})
	}
}

// =============================================================================
// Printer Endpoint Tests
// =============================================================================

func TestPrintHandler_Printers(t *testing.T) {
	api := newPrintAPI(t)

	w := api.do(t, http.MethodGet, "/api/v1/printers", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	printers := decodeEnvelope[printingapp.PrintersResponse](t, w).Data
	assert.Equal(t, []string{frontPrinter, officePrinter}, printers.Printers)
	assert.Equal(t, officePrinter, printers.Default)

	w = api.doJSON(t, http.MethodPut, "/api/v1/printers/default", map[string]string{"printer": frontPrinter}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/printers/default", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, frontPrinter, decodeEnvelope[printingapp.PrinterResponse](t, w).Data.Printer)
}

func TestPrintHandler_SetDefaultPrinter_Errors(t *testing.T) {
	api := newPrintAPI(t)

	w := api.doJSON(t, http.MethodPut, "/api/v1/printers/default", map[string]string{"printer": "Annex"}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, printing.CodePrinterUnavailable, decodeEnvelope[any](t, w).Error.Code)

	w = api.doJSON(t, http.MethodPut, "/api/v1/printers/default", map[string]string{}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeValidation, decodeEnvelope[any](t, w).Error.Code)
}

// =============================================================================
// Job Endpoint Tests
// =============================================================================

func TestPrintHandler_Jobs(t *testing.T) {
	api := newPrintAPI(t)
	name := api.storeDocument(t)

	w := api.doJSON(t, http.MethodPost, "/api/v1/print", map[string]any{"filename": name}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	jobID := decodeEnvelope[printingapp.PrintResponse](t, w).Data.JobID
	require.NotNil(t, jobID)

	t.Run("default printer queue", func(t *testing.T) {
		w := api.do(t, http.MethodGet, "/api/v1/jobs", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeEnvelope[printingapp.ListJobsResponse](t, w).Data
		assert.Equal(t, 1, resp.Total)
		require.Len(t, resp.Printers, 1)
		assert.Equal(t, officePrinter, resp.Printers[0].Printer)
	})

	t.Run("all printers", func(t *testing.T) {
		w := api.do(t, http.MethodGet, "/api/v1/jobs?all=true", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeEnvelope[printingapp.ListJobsResponse](t, w).Data
		assert.Equal(t, 1, resp.Total)
		assert.Len(t, resp.Printers, 2)
	})

	t.Run("single job", func(t *testing.T) {
		w := api.do(t, http.MethodGet, "/api/v1/jobs/"+strconv.Itoa(*jobID), nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		job := decodeEnvelope[printing.PrintJob](t, w).Data
		assert.Equal(t, *jobID, job.JobID)
		assert.Equal(t, name, job.Document)
	})

	t.Run("unknown job", func(t *testing.T) {
		w := api.do(t, http.MethodGet, "/api/v1/jobs/999", nil, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, printing.CodeJobNotFound, decodeEnvelope[any](t, w).Error.Code)
	})

	t.Run("unknown printer", func(t *testing.T) {
		w := api.do(t, http.MethodGet, "/api/v1/jobs/1?printer=Annex", nil, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, printing.CodeJobNotFound, decodeEnvelope[any](t, w).Error.Code)
	})

	t.Run("invalid job id", func(t *testing.T) {
		w := api.do(t, http.MethodGet, "/api/v1/jobs/abc", nil, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeBadRequest, decodeEnvelope[any](t, w).Error.Code)
	})
}

