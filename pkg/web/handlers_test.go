package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsecrm/lifecycle/pkg/customers"
	"github.com/pulsecrm/lifecycle/pkg/dispatch"
	"github.com/pulsecrm/lifecycle/pkg/engine"
	"github.com/pulsecrm/lifecycle/pkg/lock"
	"github.com/pulsecrm/lifecycle/pkg/models"
	"github.com/pulsecrm/lifecycle/pkg/persistence/file"
	"github.com/pulsecrm/lifecycle/pkg/services"
	"github.com/pulsecrm/lifecycle/pkg/web"
)

func setupTestApp(t *testing.T) (*fiber.App, *customers.FileStore) {
	t.Helper()

	persistence := file.NewPersistence(t.TempDir())
	population := customers.NewFileStore("unused.json")
	validate := validator.New(validator.WithRequiredStructEnabled())

	dispatchers := dispatch.NewRegistry()
	dispatchers.Register("email", func(_ map[string]string) (dispatch.Dispatcher, error) {
		return dispatch.NewLogDispatcher(slog.Default()), nil
	})

	eng := engine.New(engine.Config{
		Persistence: persistence,
		Attributes:  population,
		Dispatchers: dispatchers,
		Locker:      lock.NewMemoryLocker(),
		Logger:      slog.Default(),
	})

	journeyService := services.NewJourney(persistence, validate)
	segmentService := services.NewSegment(persistence, population, validate)
	churnService := services.NewChurn(persistence, population, validate)
	executionService := services.NewExecution(persistence, eng)

	handlers := web.NewAPIHandlers(journeyService, segmentService, churnService, executionService, validate)

	app := fiber.New()

	j := app.Group("/journeys")
	j.Get("/", handlers.GetJourneys)
	j.Post("/", handlers.CreateJourney)
	j.Get("/:id", handlers.GetJourney)
	j.Patch("/:id", handlers.UpdateJourney)
	j.Delete("/:id", handlers.DeleteJourney)
	j.Get("/:id/validate", handlers.ValidateJourney)
	j.Post("/:id/activate", handlers.ActivateJourney)
	j.Post("/:id/pause", handlers.PauseJourney)
	j.Post("/:id/enroll", handlers.EnrollCustomer)

	s := app.Group("/segments")
	s.Get("/", handlers.GetSegments)
	s.Post("/", handlers.CreateSegment)
	s.Post("/preview", handlers.PreviewSegment)
	s.Get("/:id", handlers.GetSegment)
	s.Get("/:id/evaluate", handlers.EvaluateSegment)

	ch := app.Group("/churn")
	ch.Post("/stages", handlers.SaveChurnStage)
	ch.Get("/stages", handlers.GetChurnStages)
	ch.Post("/metrics", handlers.SaveChurnMetric)
	ch.Get("/classify/:customerId", handlers.ClassifyCustomer)

	e := app.Group("/executions")
	e.Get("/", handlers.GetExecutions)
	e.Get("/:id", handlers.GetExecution)

	return app, population
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader

	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, payload
}

func journeyRequest() web.CreateJourneyRequest {
	return web.CreateJourneyRequest{
		Name: "Winback",
		Nodes: []web.NodeRequest{
			{
				ID:     "trigger-1",
				Type:   "trigger",
				Next:   []string{"end-1"},
				Config: map[string]any{"segment_id": "seg-1"},
			},
			{
				ID:     "end-1",
				Type:   "end",
				Config: map[string]any{},
			},
		},
	}
}

func TestCreateJourney(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/journeys/", journeyRequest())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Journey
	require.NoError(t, json.Unmarshal(body, &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Winback", created.Name)
	assert.Equal(t, models.JourneyStatusDraft, created.Status)
	assert.Len(t, created.Nodes, 2)
}

func TestCreateJourneyRejectsBadNodeConfig(t *testing.T) {
	app, _ := setupTestApp(t)

	req := journeyRequest()
	req.Nodes[0].Config = map[string]any{}

	resp, _ := doJSON(t, app, http.MethodPost, "/journeys/", req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateJourneyRejectsShortName(t *testing.T) {
	app, _ := setupTestApp(t)

	req := journeyRequest()
	req.Name = "ab"

	resp, _ := doJSON(t, app, http.MethodPost, "/journeys/", req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetJourneyNotFound(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/journeys/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestActivateInvalidJourneyReturnsIssues(t *testing.T) {
	app, _ := setupTestApp(t)

	req := journeyRequest()
	req.Nodes = req.Nodes[1:]

	resp, body := doJSON(t, app, http.MethodPost, "/journeys/", req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Journey
	require.NoError(t, json.Unmarshal(body, &created))

	resp, body = doJSON(t, app, http.MethodPost, "/journeys/"+created.ID+"/activate", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var validation web.ValidationResponse
	require.NoError(t, json.Unmarshal(body, &validation))
	assert.False(t, validation.Valid)
	assert.NotEmpty(t, validation.Issues)
}

func TestActivateThenUpdateConflicts(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/journeys/", journeyRequest())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Journey
	require.NoError(t, json.Unmarshal(body, &created))

	resp, _ = doJSON(t, app, http.MethodPost, "/journeys/"+created.ID+"/activate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	name := "Winback v2"
	resp, _ = doJSON(t, app, http.MethodPatch, "/journeys/"+created.ID, web.UpdateJourneyRequest{Name: &name})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestEnrollCustomer(t *testing.T) {
	app, population := setupTestApp(t)

	population.Put(&models.Customer{ID: "cust-1", Name: "Ada Lovelace", LifecycleStage: "dormant"})

	resp, body := doJSON(t, app, http.MethodPost, "/segments/", web.CreateSegmentRequest{Name: "Everyone"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var seg models.Segment
	require.NoError(t, json.Unmarshal(body, &seg))

	journeyReq := journeyRequest()
	journeyReq.Nodes[0].Config = map[string]any{"segment_id": seg.ID}

	resp, body = doJSON(t, app, http.MethodPost, "/journeys/", journeyReq)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Journey
	require.NoError(t, json.Unmarshal(body, &created))

	resp, _ = doJSON(t, app, http.MethodPost, "/journeys/"+created.ID+"/activate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodPost, "/journeys/"+created.ID+"/enroll", web.EnrollRequest{CustomerID: "cust-1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var execution models.JourneyExecution
	require.NoError(t, json.Unmarshal(body, &execution))
	assert.Equal(t, "cust-1", execution.CustomerID)
	assert.Equal(t, models.ExecutionStateCompleted, execution.State)

	// Re-enrolling the same customer conflicts.
	resp, _ = doJSON(t, app, http.MethodPost, "/journeys/"+created.ID+"/enroll", web.EnrollRequest{CustomerID: "cust-1"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestEnrollIntoDraftJourneyConflicts(t *testing.T) {
	app, population := setupTestApp(t)

	population.Put(&models.Customer{ID: "cust-1", Name: "Ada"})

	resp, body := doJSON(t, app, http.MethodPost, "/journeys/", journeyRequest())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Journey
	require.NoError(t, json.Unmarshal(body, &created))

	resp, _ = doJSON(t, app, http.MethodPost, "/journeys/"+created.ID+"/enroll", web.EnrollRequest{CustomerID: "cust-1"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestPreviewSegment(t *testing.T) {
	app, population := setupTestApp(t)

	population.Put(&models.Customer{ID: "cust-1", LifecycleStage: "active"})
	population.Put(&models.Customer{ID: "cust-2", LifecycleStage: "dormant"})

	resp, body := doJSON(t, app, http.MethodPost, "/segments/preview", web.PreviewSegmentRequest{
		Criteria: models.SegmentCriteria{LifecycleStages: []string{"dormant"}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Metrics models.SegmentMetrics `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, 1, result.Metrics.CustomerCount)
}

func TestChurnClassifyEndpoint(t *testing.T) {
	app, population := setupTestApp(t)

	population.Put(&models.Customer{ID: "cust-1", Name: "Grace", DaysInactive: 95})

	resp, body := doJSON(t, app, http.MethodPost, "/churn/stages", models.ChurnStage{Name: "Healthy", Slug: "healthy", Severity: 0})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var healthy models.ChurnStage
	require.NoError(t, json.Unmarshal(body, &healthy))

	resp, body = doJSON(t, app, http.MethodPost, "/churn/stages", models.ChurnStage{Name: "Churning", Slug: "churning", Severity: 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var churning models.ChurnStage
	require.NoError(t, json.Unmarshal(body, &churning))

	resp, _ = doJSON(t, app, http.MethodPost, "/churn/metrics", models.ChurnMetric{
		StageID:   churning.ID,
		Field:     "daysInactive",
		Operator:  models.OperatorGT,
		Threshold: 60,
		Weight:    5,
		Active:    true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodGet, "/churn/classify/cust-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result services.ClassificationResult
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, churning.ID, result.Result.Stage.ID)
}

func TestSaveChurnMetricRejectsMalformedRule(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/churn/stages", models.ChurnStage{Name: "At Risk", Slug: "at-risk", Severity: 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stage models.ChurnStage
	require.NoError(t, json.Unmarshal(body, &stage))

	resp, _ = doJSON(t, app, http.MethodPost, "/churn/metrics", models.ChurnMetric{
		StageID:   stage.ID,
		Field:     "daysInactive",
		Operator:  "between",
		Threshold: 30,
		Weight:    5,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetExecutionsRequiresFilter(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/executions/", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodGet, "/executions/?state=running", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var executions []*models.JourneyExecution
	require.NoError(t, json.Unmarshal(body, &executions))
	assert.Empty(t, executions)
}
