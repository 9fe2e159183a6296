package handlers_test

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"ui2sql-backend/internal/events"
	"ui2sql-backend/internal/handlers"
	"ui2sql-backend/internal/mockapi"
	"ui2sql-backend/internal/models"
	"ui2sql-backend/internal/services"
	"ui2sql-backend/internal/upload"
	"ui2sql-backend/internal/workflow"
)

const oneMiB = 1024 * 1024

type testServer struct {
	router       *gin.Engine
	orchestrator *workflow.Orchestrator
	acceptor     *upload.Acceptor
}

func newTestServer(t *testing.T, opts mockapi.Options) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := events.NewHub(nil)
	backend := services.WithTimeout(mockapi.NewClient(opts), 5*time.Second)
	orch := workflow.New(backend, workflow.WithNotifier(hub), workflow.WithObserver(hub))
	t.Cleanup(orch.Close)
	acceptor := upload.NewAcceptor(oneMiB, upload.NewPreviewStore(""))

	return &testServer{
		router: handlers.NewRouter(handlers.RouterDeps{
			Acceptor:     acceptor,
			Orchestrator: orch,
			Hub:          hub,
		}),
		orchestrator: orch,
		acceptor:     acceptor,
	}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) snapshot(t *testing.T) workflow.Snapshot {
	t.Helper()
	req, _ := http.NewRequest("GET", "/api/v1/workflow", nil)
	w := s.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	var snap struct {
		State       string                      `json:"state"`
		CurrentStep int                         `json:"current_step"`
		ActiveView  string                      `json:"active_view"`
		Generation  *models.SQLGenerationResult `json:"generation"`
		Execution   *models.ExecutionResult     `json:"execution"`
		SQL         string                      `json:"sql"`
		SQLEdited   bool                        `json:"sql_edited"`
		Processing  bool                        `json:"processing"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))

	// Map back onto the Go type for convenient assertions.
	out := workflow.Snapshot{
		CurrentStep: snap.CurrentStep,
		ActiveView:  workflow.View(snap.ActiveView),
		Generation:  snap.Generation,
		Execution:   snap.Execution,
		SQL:         snap.SQL,
		SQLEdited:   snap.SQLEdited,
		Processing:  snap.Processing,
	}
	for st := workflow.StateIdle; st <= workflow.StateExecuted; st++ {
		if st.String() == snap.State {
			out.State = st
		}
	}
	return out
}

func (s *testServer) waitForState(t *testing.T, want workflow.State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return s.orchestrator.Snapshot().State == want
	}, 5*time.Second, 5*time.Millisecond, "state never reached %s", want)
}

func uploadRequest(t *testing.T, field, mediaType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="schema.png"`)
	if mediaType != "" {
		h.Set("Content-Type", mediaType)
	}
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, _ := http.NewRequest("POST", "/api/v1/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func pngBytes(size int) []byte {
	data := make([]byte, size)
	copy(data, []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'})
	return data
}

func jsonRequest(method, path, body string) *http.Request {
	req, _ := http.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(t, mockapi.Options{})

	req, _ := http.NewRequest("GET", "/health", nil)
	w := s.do(req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestUploadAndExecute(t *testing.T) {
	s := newTestServer(t, mockapi.Options{})

	w := s.do(uploadRequest(t, "image", "image/png", pngBytes(oneMiB)))
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var uploaded models.UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &uploaded))
	assert.Equal(t, "schema.png", uploaded.Filename)
	assert.Equal(t, int64(oneMiB), uploaded.Size)
	require.NotNil(t, uploaded.Preview)

	s.waitForState(t, workflow.StateReadyToExecute)
	snap := s.snapshot(t)
	assert.Equal(t, 3, snap.CurrentStep)
	assert.Equal(t, workflow.ViewSQL, snap.ActiveView)
	require.NotNil(t, snap.Generation)
	assert.Equal(t, []string{"users", "products", "orders", "order_items"}, snap.Generation.Tables)
	assert.Contains(t, snap.SQL, "CREATE TABLE users")

	req, _ := http.NewRequest("POST", "/api/v1/execute", nil)
	w = s.do(req)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	s.waitForState(t, workflow.StateExecuted)
	snap = s.snapshot(t)
	assert.Equal(t, workflow.ViewResult, snap.ActiveView)
	require.NotNil(t, snap.Execution)
	assert.Equal(t, mockapi.ExecutionMessage, snap.Execution.Message)
}

func TestUpload_RejectsNonImage(t *testing.T) {
	s := newTestServer(t, mockapi.Options{})

	w := s.do(uploadRequest(t, "file", "application/pdf", []byte("%PDF-1.4")))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "not an image")
	assert.Equal(t, workflow.StateIdle, s.orchestrator.Snapshot().State)
}

func TestUpload_SizeLimit(t *testing.T) {
	s := newTestServer(t, mockapi.Options{})

	w := s.do(uploadRequest(t, "image", "image/png", pngBytes(oneMiB+1)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "exceeds size limit of 1 MiB")
	assert.Equal(t, workflow.StateIdle, s.orchestrator.Snapshot().State)
}

func TestUpload_SniffsMissingContentType(t *testing.T) {
	s := newTestServer(t, mockapi.Options{})

	w := s.do(uploadRequest(t, "screenshot", "", pngBytes(64)))
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	s.waitForState(t, workflow.StateReadyToExecute)
}

func TestUpload_NoFile(t *testing.T) {
	s := newTestServer(t, mockapi.Options{})

	w := s.do(uploadRequest(t, "attachment", "image/png", pngBytes(64)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no file uploaded")
}

func TestUpload_BusyReturnsConflict(t *testing.T) {
	s := newTestServer(t, mockapi.Options{AnalysisDelay: time.Minute})

	w := s.do(uploadRequest(t, "image", "image/png", pngBytes(64)))
	require.Equal(t, http.StatusAccepted, w.Code)
	var first models.UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))

	w = s.do(uploadRequest(t, "image", "image/png", pngBytes(64)))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "workflow busy")

	// the rejected upload must not have replaced the preview
	current, ok := s.acceptor.Previews().Current()
	require.True(t, ok)
	assert.Equal(t, first.Preview.ID, current.ID)

	req, _ := http.NewRequest("POST", "/api/v1/execute", nil)
	assert.Equal(t, http.StatusConflict, s.do(req).Code)
}

func TestUpload_ProcessingFailureResets(t *testing.T) {
	s := newTestServer(t, mockapi.Options{FailStage: services.OpGenerate})

	w := s.do(uploadRequest(t, "image", "image/png", pngBytes(64)))
	require.Equal(t, http.StatusAccepted, w.Code)

	require.Eventually(t, func() bool {
		snap := s.orchestrator.Snapshot()
		return snap.State == workflow.StateIdle && snap.LastError != ""
	}, 5*time.Second, 5*time.Millisecond)
	snap := s.snapshot(t)
	assert.Nil(t, snap.Generation)
	assert.Equal(t, 0, snap.CurrentStep)
}

func TestExecute_NotReady(t *testing.T) {
	s := newTestServer(t, mockapi.Options{})

	req, _ := http.NewRequest("POST", "/api/v1/execute", nil)
	w := s.do(req)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "not ready")
}

func TestEditSQL(t *testing.T) {
	s := newTestServer(t, mockapi.Options{})

	w := s.do(jsonRequest("PUT", "/api/v1/sql", `{"sql":"SELECT 1;"}`))
	assert.Equal(t, http.StatusConflict, w.Code)

	require.Equal(t, http.StatusAccepted, s.do(uploadRequest(t, "image", "image/png", pngBytes(64))).Code)
	s.waitForState(t, workflow.StateReadyToExecute)

	w = s.do(jsonRequest("PUT", "/api/v1/sql", `{"sql":"SELECT 1;"}`))
	require.Equal(t, http.StatusOK, w.Code)
	snap := s.snapshot(t)
	assert.True(t, snap.SQLEdited)
	assert.Equal(t, "SELECT 1;", snap.SQL)
	assert.Len(t, snap.Generation.Tables, 4)

	w = s.do(jsonRequest("PUT", "/api/v1/sql", `not json`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSelectView(t *testing.T) {
	s := newTestServer(t, mockapi.Options{})

	w := s.do(jsonRequest("PUT", "/api/v1/view", `{"view":"preview"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(jsonRequest("PUT", "/api/v1/view", `{"view":"result"}`))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(jsonRequest("PUT", "/api/v1/view", `{}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	require.Equal(t, http.StatusAccepted, s.do(uploadRequest(t, "image", "image/png", pngBytes(64))).Code)
	s.waitForState(t, workflow.StateReadyToExecute)

	w = s.do(jsonRequest("PUT", "/api/v1/view", `{"view":"upload"}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"active_view":"upload"`)
	assert.Contains(t, w.Body.String(), `"view_title":"Upload UI Screenshot"`)
}

func TestPreviewLifecycle(t *testing.T) {
	s := newTestServer(t, mockapi.Options{})
	data := pngBytes(64)

	w := s.do(uploadRequest(t, "image", "image/png", data))
	require.Equal(t, http.StatusAccepted, w.Code)
	var uploaded models.UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &uploaded))

	req, _ := http.NewRequest("GET", uploaded.Preview.URL, nil)
	w = s.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, data, w.Body.Bytes())

	s.waitForState(t, workflow.StateReadyToExecute)
	require.NotNil(t, s.orchestrator.Snapshot().File.Preview)

	req, _ = http.NewRequest("DELETE", "/api/v1/upload", nil)
	assert.Equal(t, http.StatusOK, s.do(req).Code)

	snap := s.orchestrator.Snapshot()
	require.NotNil(t, snap.File)
	assert.Nil(t, snap.File.Preview)

	req, _ = http.NewRequest("GET", uploaded.Preview.URL, nil)
	assert.Equal(t, http.StatusNotFound, s.do(req).Code)

	req, _ = http.NewRequest("DELETE", "/api/v1/upload", nil)
	assert.Equal(t, http.StatusNotFound, s.do(req).Code)
}

func TestEventsStream_SendsInitialState(t *testing.T) {
	s := newTestServer(t, mockapi.Options{})
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event:state\n", line)

	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(line, "data:"))
	assert.Contains(t, line, `"state":"idle"`)
}

func TestUpload_ConcurrentUploadsKeepWinnerPreview(t *testing.T) {
	s := newTestServer(t, mockapi.Options{AnalysisDelay: time.Minute})

	const n = 8
	reqs := make([]*http.Request, n)
	for i := range reqs {
		reqs[i] = uploadRequest(t, "image", "image/png", pngBytes(900*1024))
	}

	codes := make([]int, n)
	bodies := make([][]byte, n)
	var wg sync.WaitGroup
	for i := range reqs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := s.do(reqs[i])
			codes[i] = w.Code
			bodies[i] = w.Body.Bytes()
		}(i)
	}
	wg.Wait()

	var winner *models.UploadResponse
	for i, code := range codes {
		switch code {
		case http.StatusAccepted:
			require.Nil(t, winner, "more than one upload accepted")
			winner = &models.UploadResponse{}
			require.NoError(t, json.Unmarshal(bodies[i], winner))
		default:
			assert.Equal(t, http.StatusConflict, code)
		}
	}
	require.NotNil(t, winner)

	current, ok := s.acceptor.Previews().Current()
	require.True(t, ok)
	assert.Equal(t, winner.Preview.ID, current.ID)

	snap := s.orchestrator.Snapshot()
	assert.Equal(t, winner.FileID, snap.File.ID)
	require.NotNil(t, snap.File.Preview)
	assert.Equal(t, winner.Preview.ID, snap.File.Preview.ID)

	req, _ := http.NewRequest("GET", winner.Preview.URL, nil)
	assert.Equal(t, http.StatusOK, s.do(req).Code)
}

func TestRemove_BusyReturnsConflict(t *testing.T) {
	s := newTestServer(t, mockapi.Options{AnalysisDelay: time.Minute})

	w := s.do(uploadRequest(t, "image", "image/png", pngBytes(64)))
	require.Equal(t, http.StatusAccepted, w.Code)
	var uploaded models.UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &uploaded))

	req, _ := http.NewRequest("DELETE", "/api/v1/upload", nil)
	w = s.do(req)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "workflow busy")

	req, _ = http.NewRequest("GET", uploaded.Preview.URL, nil)
	assert.Equal(t, http.StatusOK, s.do(req).Code)
}

func TestPreview_DataURI(t *testing.T) {
	s := newTestServer(t, mockapi.Options{})
	data := pngBytes(16)

	w := s.do(uploadRequest(t, "image", "image/png", data))
	require.Equal(t, http.StatusAccepted, w.Code)
	var uploaded models.UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &uploaded))

	req, _ := http.NewRequest("GET", uploaded.Preview.URL+"?format=data-uri", nil)
	w = s.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	var body models.PreviewDataResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, uploaded.Preview.ID, body.ID)
	assert.Equal(t, "data:image/png;base64,"+base64.StdEncoding.EncodeToString(data), body.DataURI)

	req, _ = http.NewRequest("GET", uploaded.Preview.URL+"?format=thumbnail", nil)
	assert.Equal(t, http.StatusBadRequest, s.do(req).Code)

	req, _ = http.NewRequest("GET", "/api/v1/previews/unknown?format=data-uri", nil)
	assert.Equal(t, http.StatusNotFound, s.do(req).Code)
}
