package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/paperbuilder/paper-builder/backend/go-services/internal/paper"
	"github.com/paperbuilder/paper-builder/backend/go-services/internal/paper/service"
	"github.com/paperbuilder/paper-builder/backend/go-services/internal/paper/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter() (*gin.Engine, *store.Store) {
	gin.SetMode(gin.TestMode)
	g := gin.New()
	st := store.New()
	RegisterPaperRoutes(g, service.New(st))
	return g, st
}

func do(g *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	g.ServeHTTP(w, req)
	return w
}

func TestPaperHandler_CRUD(t *testing.T) {
	g, st := newRouter()

	// create
	w := do(g, http.MethodPost, "/api/papers", `{"title":"Physics Quiz","description":"Mechanics","duration":"60","totalMarks":50}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created paper.Paper
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	require.Equal(t, paper.StatusDraft, created.Status)
	require.Equal(t, 60.0, created.Duration)

	// get
	w = do(g, http.MethodGet, "/api/papers/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)

	// patch
	w = do(g, http.MethodPatch, "/api/papers/"+created.ID, `{"title":"Physics Midterm"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var updated paper.Paper
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "Physics Midterm", updated.Title)
	assert.Equal(t, "Mechanics", updated.Description)

	// add section
	w = do(g, http.MethodPost, "/api/papers/"+created.ID+"/sections", `{"title":"Kinematics","instructions":"Answer all","marks":25,"questions":["q-7"]}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var sec paper.Section
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sec))
	require.Equal(t, []string{"q-7"}, sec.Questions)

	// list + summary
	w = do(g, http.MethodGet, "/api/papers", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []paper.Paper
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	require.Len(t, list[0].Sections, 1)

	w = do(g, http.MethodGet, "/api/papers/summary", "")
	require.Equal(t, http.StatusOK, w.Code)
	var sums []paper.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sums))
	require.Equal(t, 25.0, sums[0].SectionMarks)
	require.False(t, sums[0].MarksBalanced)

	// get section
	w = do(g, http.MethodGet, "/api/papers/"+created.ID+"/sections/"+sec.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var gotSec paper.Section
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &gotSec))
	require.Equal(t, sec.ID, gotSec.ID)
	require.Equal(t, "Kinematics", gotSec.Title)

	// empty patch reads back unchanged
	w = do(g, http.MethodPatch, "/api/papers/"+created.ID, `{}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Physics Midterm")

	// remove section
	w = do(g, http.MethodDelete, "/api/papers/"+created.ID+"/sections/"+sec.ID, "")
	require.Equal(t, http.StatusNoContent, w.Code)
	w = do(g, http.MethodDelete, "/api/papers/"+created.ID+"/sections/"+sec.ID, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	w = do(g, http.MethodGet, "/api/papers/"+created.ID+"/sections/"+sec.ID, "")
	require.Equal(t, http.StatusNotFound, w.Code)

	// delete
	w = do(g, http.MethodDelete, "/api/papers/"+created.ID, "")
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Empty(t, st.Papers())

	w = do(g, http.MethodGet, "/api/papers/"+created.ID, "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestPaperHandler_ValidationErrors(t *testing.T) {
	g, st := newRouter()

	w := do(g, http.MethodPost, "/api/papers", `{"title":"","description":"d","duration":0,"totalMarks":1}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var body struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, map[string]string{
		"title":    "Paper title is required",
		"duration": "Duration must be at least 1 minute",
	}, body.Errors)
	require.Empty(t, st.Papers())

	p := st.AddPaper(paper.PaperForm{Title: "t", Description: "d", Duration: 1, TotalMarks: 1})
	w = do(g, http.MethodPost, "/api/papers/"+p.ID+"/sections", `{"title":"","instructions":"x","marks":0}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "Section title is required", body.Errors["title"])
	require.Equal(t, "Marks must be at least 1", body.Errors["marks"])
	_, has := body.Errors["instructions"]
	require.False(t, has)

	w = do(g, http.MethodPost, "/api/papers", `{not json`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(g, http.MethodPatch, "/api/papers/missing", `{"title":"x"}`)
	require.Equal(t, http.StatusNotFound, w.Code)
	w = do(g, http.MethodPost, "/api/papers/missing/sections", `{"title":"a","instructions":"b","marks":1}`)
	require.Equal(t, http.StatusNotFound, w.Code)
	w = do(g, http.MethodDelete, "/api/papers/missing", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestPaperHandler_NonFiniteNumbersKeepListReadable(t *testing.T) {
	g, st := newRouter()

	w := do(g, http.MethodPost, "/api/papers", `{"title":"Physics Quiz","description":"d","duration":60,"totalMarks":50}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(g, http.MethodPost, "/api/papers", `{"title":"Bad","description":"d","duration":"Infinity","totalMarks":"NaN"}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.Contains(t, w.Body.String(), "Duration must be at least 1 minute")

	p := st.Papers()[0]
	w = do(g, http.MethodPost, "/api/papers/"+p.ID+"/sections", `{"title":"A","instructions":"x","marks":5,"timeLimit":"NaN"}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	w = do(g, http.MethodPatch, "/api/papers/"+p.ID, `{"totalMarks":"-Inf"}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(g, http.MethodGet, "/api/papers", "")
	require.Equal(t, http.StatusOK, w.Code)
	var papers []paper.Paper
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &papers))
	require.Len(t, papers, 1)
	require.Equal(t, "Physics Quiz", papers[0].Title)
	require.Empty(t, papers[0].Sections)
}

func TestPaperHandler_CurrentPaper(t *testing.T) {
	g, st := newRouter()
	p := store.Seed(st)

	w := do(g, http.MethodGet, "/api/papers/current", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "null", strings.TrimSpace(w.Body.String()))

	w = do(g, http.MethodPut, "/api/papers/current", `{"id":"`+p.ID+`"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(g, http.MethodGet, "/api/papers/current", "")
	var cur paper.Paper
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cur))
	require.Equal(t, p.ID, cur.ID)
	require.Len(t, cur.Sections, 2)

	w = do(g, http.MethodPut, "/api/papers/current", `{"id":"missing"}`)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = do(g, http.MethodPut, "/api/papers/current", `{"id":null}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Nil(t, st.CurrentPaper())
}

func TestPaperHandler_EventStream(t *testing.T) {
	g, _ := newRouter()
	srv := httptest.NewServer(g)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/papers/events", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	// headers are flushed after the subscription is registered
	post, err := http.Post(srv.URL+"/api/papers", "application/json",
		strings.NewReader(`{"title":"Physics Quiz","description":"Mechanics","duration":60,"totalMarks":50}`))
	require.NoError(t, err)
	post.Body.Close()
	require.Equal(t, http.StatusCreated, post.StatusCode)

	sc := bufio.NewScanner(resp.Body)
	var event, data string
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "event:") {
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		}
		if strings.HasPrefix(line, "data:") {
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			break
		}
	}
	require.Equal(t, "change", event)
	var ch store.Change
	require.NoError(t, json.Unmarshal([]byte(data), &ch))
	require.Equal(t, store.OpAddPaper, ch.Op)
	require.NotEmpty(t, ch.PaperID)
	require.Equal(t, uint64(1), ch.Version)
}
