package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"choreplan/internal/engine"
	"choreplan/internal/model"
	"choreplan/internal/recurrence"
	"choreplan/internal/store"
)

// 2024-03-04 is a Monday.
var handlerNow = time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)

func newScheduleRouter(t *testing.T) (*gin.Engine, *store.MemoryTemplateStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	templates := store.NewMemoryTemplateStore()
	tasks := store.NewMemoryTaskStore()
	eng := engine.New(templates, tasks, zap.NewNop()).
		WithClock(func() time.Time { return handlerNow })
	guard := engine.NewGuard(eng.GenerateForHorizon, zap.NewNop()).
		WithClock(func() time.Time { return handlerNow })

	h := NewScheduleHandler(eng, guard, templates, zap.NewNop())
	r := gin.New()
	r.POST("/generate", h.TriggerGeneration)
	r.POST("/templates/:id/generate", h.GenerateFromTemplate)
	return r, templates
}

func addTemplate(t *testing.T, templates *store.MemoryTemplateStore, rule recurrence.Rule, offsetDays int) *model.Template {
	t.Helper()
	tpl := &model.Template{
		Title:                "Water the plants",
		Recurrence:           rule,
		IsActive:             true,
		AutoGenerate:         true,
		GenerationOffsetDays: offsetDays,
	}
	require.NoError(t, templates.Create(context.Background(), tpl))
	return tpl
}

func postGenerate(r *gin.Engine, templateID int, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/templates/%d/generate", templateID), reader)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGenerateFromTemplateCreated(t *testing.T) {
	r, templates := newScheduleRouter(t)
	tpl := addTemplate(t, templates, recurrence.Weekly(1), 0)

	w := postGenerate(r, tpl.ID, `{"due_date": "2024-03-10"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Task model.TaskInstance `json:"task"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, tpl.ID, *resp.Task.TemplateID)
	assert.Equal(t, "2024-03-10", resp.Task.DueDate.Format("2006-01-02"))
}

func TestGenerateFromTemplateTooEarlyIsNoContent(t *testing.T) {
	r, templates := newScheduleRouter(t)

	// Due tomorrow with no offset: the scheduling date has not arrived.
	tpl := addTemplate(t, templates, recurrence.Daily(1), 0)

	w := postGenerate(r, tpl.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.Bytes())
}

func TestGenerateFromTemplateOccupiedSlotIsNoContent(t *testing.T) {
	r, templates := newScheduleRouter(t)
	tpl := addTemplate(t, templates, recurrence.Weekly(1), 0)

	require.Equal(t, http.StatusCreated, postGenerate(r, tpl.ID, `{"due_date": "2024-03-10"}`).Code)
	assert.Equal(t, http.StatusNoContent, postGenerate(r, tpl.ID, `{"due_date": "2024-03-10"}`).Code)
}

func TestGenerateFromTemplateBadRequests(t *testing.T) {
	r, templates := newScheduleRouter(t)
	tpl := addTemplate(t, templates, recurrence.Weekly(1), 0)

	w := postGenerate(r, 999, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = postGenerate(r, tpl.ID, `{"due_date": "10/03/2024"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/templates/abc/generate", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTriggerGeneration(t *testing.T) {
	r, _ := newScheduleRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/generate", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"generation": "started"}`, w.Body.String())

	// The guard throttles the immediate retry.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/generate", nil))
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"generation": "skipped"}`, w.Body.String())
}
