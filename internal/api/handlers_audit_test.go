// handlers_audit_test.go - Tests for audit handlers
package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/deck-auditor/backend/internal/logging"
	"github.com/deck-auditor/backend/internal/models"
	"github.com/deck-auditor/backend/internal/report"
	"github.com/deck-auditor/backend/internal/session"
	"github.com/deck-auditor/backend/internal/testutil"
)

type upload struct {
	field, name string
	data        []byte
}

func multipartBody(t *testing.T, files ...upload) (*bytes.Buffer, string) {
	t.Helper()
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	for _, f := range files {
		part, err := writer.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func deckUpload(t *testing.T) upload {
	return upload{"presentation", "deck.pptx", testutil.PPTXBytes(t, []testutil.FixtureSlide{
		{Shapes: []string{"Revenue ₹1.5 Cr"}},
		{Shapes: []string{"EBITDA ₹2.5 Cr"}},
	}, nil)}
}

func sheetUpload(t *testing.T) upload {
	return upload{"spreadsheets", "financials.xlsx", testutil.XLSXBytes(t, testutil.FixtureSheet{
		Name: "P&L",
		Rows: [][]any{
			{"Revenue", 15250000},
			{"EBITDA", 10000000},
		},
	})}
}

type testServer struct {
	e     *echo.Echo
	store *testutil.MockStorage
	mgr   *session.Manager
}

func newTestServer(t *testing.T) *testServer {
	return newTestServerWith(t, session.Options{})
}

func newTestServerWith(t *testing.T, opts session.Options) *testServer {
	t.Helper()
	store := testutil.NewMockStorage(t.TempDir())
	mgr := session.NewManager(store, logging.Nop(), opts)

	deps := &Dependencies{
		Store:      store,
		SessionMgr: mgr,
		Version:    "test",
	}
	if opts.Cache != nil {
		deps.TokenCache = opts.Cache
	}

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	RegisterRoutes(e, NewHandlers(deps))
	return &testServer{e: e, store: store, mgr: mgr}
}

func (s *testServer) do(method, target string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, body)
		req.Header.Set(echo.HeaderContentType, contentType)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) createAudit(t *testing.T) models.AuditSession {
	t.Helper()
	body, ct := multipartBody(t, deckUpload(t), sheetUpload(t))
	rec := s.do(http.MethodPost, "/api/audits", body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var sess models.AuditSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	return sess
}

func (s *testServer) createFromIDs(deckID string, sheetIDs ...string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(createAuditRequest{PresentationID: deckID, SpreadsheetIDs: sheetIDs})
	return s.do(http.MethodPost, "/api/audits", bytes.NewBuffer(body), echo.MIMEApplicationJSON)
}

// removeUploadedFiles deletes the stored bytes but keeps the upload records.
func (s *testServer) removeUploadedFiles(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		path, err := s.store.GetFilePath(id)
		require.NoError(t, err)
		require.NoError(t, os.Remove(path))
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	return apiErr
}

func TestAuditFlow(t *testing.T) {
	s := newTestServer(t)
	sess := s.createAudit(t)

	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, models.SessionStatusParsed, sess.Status)
	assert.Equal(t, 2, sess.PresentationNums)
	assert.Equal(t, 2, sess.SpreadsheetNums)
	assert.Equal(t, 2, s.store.GetFileCount())

	rec := s.do(http.MethodGet, "/api/audits/"+sess.ID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, "/api/audits/"+sess.ID+"/run", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var run runAuditResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	require.Len(t, run.Findings, 2)
	assert.Equal(t, models.AuditSummary{Total: 2, Matches: 1, Mismatches: 1}, *run.Summary)
	assert.Equal(t, models.StatusMatch, run.Findings[0].Status)
	assert.Equal(t, models.StatusMismatch, run.Findings[1].Status)
	require.NotNil(t, run.Findings[1].SuggestedFix)
	assert.Equal(t, "₹1.0 Cr", *run.Findings[1].SuggestedFix)
	assert.Equal(t, "B2", *run.Findings[1].MatchedCell)

	t.Run("findings filtered by status", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/audits/"+sess.ID+"/findings?status=mismatch", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)

		var findings []models.AuditFinding
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &findings))
		require.Len(t, findings, 1)
		assert.Equal(t, 2, findings[0].Slide)
	})

	t.Run("unknown status filter", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/audits/"+sess.ID+"/findings?status=maybe", nil, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Code)
	})

	t.Run("msgpack findings", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/audits/"+sess.ID+"/findings/msgpack", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/msgpack", rec.Header().Get(echo.HeaderContentType))

		var doc report.Document
		require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &doc))
		assert.Equal(t, 2, doc.Summary.Total)
		assert.Len(t, doc.Findings, 2)
	})

	t.Run("csv report", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/audits/"+sess.ID+"/report/csv", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "attachment; filename=\"audit_report_")
		lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
		assert.Len(t, lines, 3)
		assert.True(t, strings.HasPrefix(lines[0], "Slide_Number,"))
	})

	t.Run("pdf report", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/audits/"+sess.ID+"/report/pdf", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/pdf", rec.Header().Get(echo.HeaderContentType))
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
	})

	t.Run("unsupported report format", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/audits/"+sess.ID+"/report/docx", nil, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("tokens", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/audits/"+sess.ID+"/tokens", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)

		var tokens tokensResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tokens))
		assert.Len(t, tokens.Slides, 2)
		require.Len(t, tokens.Workbooks, 1)
		assert.Equal(t, "financials.xlsx", tokens.Workbooks[0].File)
	})

	rec = s.do(http.MethodDelete, "/api/audits/"+sess.ID, nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, "/api/audits/"+sess.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Code)
}

func TestAuditHandler_NotReady(t *testing.T) {
	s := newTestServer(t)
	sess := s.createAudit(t)

	for _, target := range []string{
		"/api/audits/" + sess.ID + "/findings",
		"/api/audits/" + sess.ID + "/report/csv",
	} {
		rec := s.do(http.MethodGet, target, nil, "")
		assert.Equal(t, http.StatusConflict, rec.Code, target)
		assert.Equal(t, "CONFLICT", decodeError(t, rec).Code)
	}
}

func TestAuditHandler_MissingSession(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		method, target string
	}{
		{http.MethodGet, "/api/audits/nope"},
		{http.MethodPost, "/api/audits/nope/run"},
		{http.MethodGet, "/api/audits/nope/findings"},
		{http.MethodGet, "/api/audits/nope/tokens"},
		{http.MethodGet, "/api/audits/nope/report/pdf"},
		{http.MethodDelete, "/api/audits/nope"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			rec := s.do(tt.method, tt.target, nil, "")
			assert.Equal(t, http.StatusNotFound, rec.Code)
		})
	}
}

func TestAuditHandler_HandleCreateAudit_BadUploads(t *testing.T) {
	tests := []struct {
		name    string
		files   func(t *testing.T) []upload
		errCode string
	}{
		{
			name:    "no presentation",
			files:   func(t *testing.T) []upload { return []upload{sheetUpload(t)} },
			errCode: "VALIDATION_ERROR",
		},
		{
			name:    "no spreadsheets",
			files:   func(t *testing.T) []upload { return []upload{deckUpload(t)} },
			errCode: "VALIDATION_ERROR",
		},
		{
			name: "two presentations",
			files: func(t *testing.T) []upload {
				return []upload{deckUpload(t), deckUpload(t), sheetUpload(t)}
			},
			errCode: "VALIDATION_ERROR",
		},
		{
			name: "corrupt legacy workbook",
			files: func(t *testing.T) []upload {
				return []upload{deckUpload(t), {"spreadsheets", "old.xls", []byte{0xD0, 0xCF}}}
			},
			errCode: "BAD_REQUEST",
		},
		{
			name: "deck is not a pptx",
			files: func(t *testing.T) []upload {
				return []upload{{"presentation", "notes.docx", []byte("x")}, sheetUpload(t)}
			},
			errCode: "BAD_REQUEST",
		},
		{
			name: "corrupt deck",
			files: func(t *testing.T) []upload {
				return []upload{{"presentation", "deck.pptx", []byte("garbage")}, sheetUpload(t)}
			},
			errCode: "BAD_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.NewMockStorage(t.TempDir())
			mgr := session.NewManager(store, logging.Nop(), session.Options{})
			handler := NewAuditHandler(store, mgr, logging.Nop())

			body, ct := multipartBody(t, tt.files(t)...)
			req := httptest.NewRequest(http.MethodPost, "/api/audits", body)
			req.Header.Set(echo.HeaderContentType, ct)
			rec := httptest.NewRecorder()
			c := echo.New().NewContext(req, rec)

			err := handler.HandleCreateAudit(c)
			require.Error(t, err)
			apiErr, ok := err.(*APIError)
			require.True(t, ok, "expected APIError, got %T", err)
			assert.Equal(t, http.StatusBadRequest, apiErr.Status)
			assert.Equal(t, tt.errCode, apiErr.Code)
			assert.Equal(t, 0, store.GetFileCount(), "rejected uploads are not kept")
		})
	}
}

func TestAuditHandler_CreateFromUploads_ReusesCachedTokens(t *testing.T) {
	cache, err := session.NewTokenCache(t.TempDir(), logging.Nop())
	require.NoError(t, err)
	s := newTestServerWith(t, session.Options{Cache: cache})

	first := s.createAudit(t)
	require.NotNil(t, first.Presentation)
	require.Len(t, first.Spreadsheets, 1)
	deckID, sheetID := first.Presentation.ID, first.Spreadsheets[0].ID
	assert.Equal(t, 2, cache.Len())

	s.removeUploadedFiles(t, deckID, sheetID)

	rec := s.createFromIDs(deckID, sheetID)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var second models.AuditSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.PresentationNums, second.PresentationNums)
	assert.Equal(t, first.SpreadsheetNums, second.SpreadsheetNums)
	assert.Equal(t, first.SheetNames, second.SheetNames)
	assert.Equal(t, 2, s.store.GetFileCount(), "no new uploads are stored")

	rec = s.do(http.MethodPost, "/api/audits/"+second.ID+"/run", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var run runAuditResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, &models.AuditSummary{Total: 2, Matches: 1, Mismatches: 1}, run.Summary)
}

func TestAuditHandler_CreateFromUploads_WithoutCacheReparses(t *testing.T) {
	s := newTestServer(t)
	first := s.createAudit(t)

	rec := s.createFromIDs(first.Presentation.ID, first.Spreadsheets[0].ID)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	s.removeUploadedFiles(t, first.Presentation.ID)
	rec = s.createFromIDs(first.Presentation.ID, first.Spreadsheets[0].ID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 2, s.store.GetFileCount(), "referenced uploads are never discarded")
}

func TestAuditHandler_CreateFromUploads_Errors(t *testing.T) {
	s := newTestServer(t)
	first := s.createAudit(t)
	deckID, sheetID := first.Presentation.ID, first.Spreadsheets[0].ID

	notes, err := s.store.SaveBytes("notes.docx", []byte("x"))
	require.NoError(t, err)

	tests := []struct {
		name     string
		deckID   string
		sheetIDs []string
		status   int
		errCode  string
	}{
		{"missing presentation id", "", []string{sheetID}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"missing spreadsheet ids", deckID, nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown presentation", "nope", []string{sheetID}, http.StatusNotFound, "NOT_FOUND"},
		{"unknown spreadsheet", deckID, []string{sheetID, "nope"}, http.StatusNotFound, "NOT_FOUND"},
		{"presentation is not a deck", notes.ID, []string{sheetID}, http.StatusBadRequest, "BAD_REQUEST"},
		{"spreadsheet is not a workbook", deckID, []string{notes.ID}, http.StatusBadRequest, "BAD_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.createFromIDs(tt.deckID, tt.sheetIDs...)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.errCode, decodeError(t, rec).Code)
		})
	}

	rec := s.do(http.MethodPost, "/api/audits", bytes.NewBufferString("{not json"), echo.MIMEApplicationJSON)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuditHandler_HandleCreateAudit_UnsupportedBody(t *testing.T) {
	store := testutil.NewMockStorage(t.TempDir())
	handler := NewAuditHandler(store, session.NewManager(store, logging.Nop(), session.Options{}), logging.Nop())

	tests := []struct {
		contentType string
		body        string
		errCode     string
	}{
		{echo.MIMETextPlain, "deck.pptx", "BAD_REQUEST"},
		{echo.MIMEApplicationJSON, `{}`, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/audits", strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, tt.contentType)
			c := echo.New().NewContext(req, httptest.NewRecorder())

			err := handler.HandleCreateAudit(c)
			apiErr, ok := err.(*APIError)
			require.True(t, ok)
			assert.Equal(t, tt.errCode, apiErr.Code)
		})
	}
}

func TestParseStatus(t *testing.T) {
	got, err := parseStatus("UNTRACEABLE")
	require.NoError(t, err)
	assert.Equal(t, models.StatusUntraceable, got)

	got, err = parseStatus("")
	require.NoError(t, err)
	assert.Equal(t, models.FindingStatus(""), got)

	_, err = parseStatus("ok")
	assert.Error(t, err)
}
