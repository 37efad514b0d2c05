package assignments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tribu-research/challenge-backend/internal/apperr"
	"github.com/tribu-research/challenge-backend/internal/memstore"
	"github.com/tribu-research/challenge-backend/internal/models"
	"github.com/tribu-research/challenge-backend/internal/presentations"
	"github.com/tribu-research/challenge-backend/internal/slots"
	"github.com/tribu-research/challenge-backend/pkg/clock"
	"github.com/tribu-research/challenge-backend/pkg/response"
)

var monday = time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)

type fakeQueue struct {
	ids []uuid.UUID
	err error
}

func (q *fakeQueue) EnqueueAssignmentCreated(_ context.Context, id uuid.UUID) error {
	if q.err != nil {
		return q.err
	}
	q.ids = append(q.ids, id)
	return nil
}

func setup(q Enqueuer) (*Service, *memstore.Store) {
	store := memstore.New()
	clk := clock.NewManual(monday)
	pres := presentations.NewService(store.Presentations(), slots.New(5, slots.WindowWeek, 18, 0), clk, time.UTC, nil)
	return NewService(store.Assignments(), q, pres, clk, nil), store
}

func req(role models.AssignmentRole) RegisterRequest {
	return RegisterRequest{
		ResearcherID: uuid.New(), ResearcherName: "Ana",
		AgentID: uuid.New(), AgentName: "GPT", Role: role,
	}
}

func TestRegisterPrimaryEnqueues(t *testing.T) {
	q := &fakeQueue{}
	svc, _ := setup(q)

	a, err := svc.Register(context.Background(), req(models.RolePrimary))
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentActive, a.Status)
	assert.Equal(t, monday, a.AssignedAt)
	assert.Equal(t, []uuid.UUID{a.ID}, q.ids)
}

func TestRegisterContributorDoesNotEnqueue(t *testing.T) {
	q := &fakeQueue{}
	svc, _ := setup(q)

	_, err := svc.Register(context.Background(), req(models.RoleContributor))
	require.NoError(t, err)
	assert.Empty(t, q.ids)
}

func TestRegisterWithoutQueueSchedulesInline(t *testing.T) {
	svc, store := setup(nil)

	a, err := svc.Register(context.Background(), req(models.RolePrimary))
	require.NoError(t, err)

	p, err := store.Presentations().GetByAssignment(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 4, 18, 0, 0, 0, time.UTC), p.PresentationDate)
}

func TestRegisterFallsBackWhenQueueDown(t *testing.T) {
	svc, store := setup(&fakeQueue{err: errors.New("redis down")})

	a, err := svc.Register(context.Background(), req(models.RolePrimary))
	require.NoError(t, err)
	_, err = store.Presentations().GetByAssignment(context.Background(), a.ID)
	require.NoError(t, err)
}

func TestRegisterDuplicatePrimary(t *testing.T) {
	svc, _ := setup(&fakeQueue{})
	first := req(models.RolePrimary)
	_, err := svc.Register(context.Background(), first)
	require.NoError(t, err)

	second := req(models.RolePrimary)
	second.AgentID = first.AgentID
	_, err = svc.Register(context.Background(), second)
	assert.ErrorIs(t, err, apperr.ErrDuplicateAssignment)

	contributor := req(models.RoleContributor)
	contributor.AgentID = first.AgentID
	_, err = svc.Register(context.Background(), contributor)
	assert.NoError(t, err)
}

func TestUpdateStatus(t *testing.T) {
	svc, _ := setup(&fakeQueue{})
	a, err := svc.Register(context.Background(), req(models.RoleContributor))
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), a.ID, models.AssignmentActive)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	got, err := svc.UpdateStatus(context.Background(), a.ID, models.AssignmentCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentCompleted, got.Status)

	_, err = svc.UpdateStatus(context.Background(), a.ID, models.AssignmentDone)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	_, err = svc.UpdateStatus(context.Background(), uuid.New(), models.AssignmentDone)
	assert.ErrorIs(t, err, apperr.ErrAssignmentNotFound)
}

func TestHandlerRegisterUsesCaller(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, _ := setup(&fakeQueue{})
	h := NewHandler(svc)
	caller := uuid.New()

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("user_id", caller) })
	r.POST("/assignments", h.Register)
	r.PATCH("/assignments/:id/status", h.UpdateStatus)

	body, _ := json.Marshal(map[string]string{
		"researcher_name": "Ana", "agent_id": uuid.NewString(), "agent_name": "GPT", "role": "PRIMARY",
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/assignments", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var out struct {
		Data models.Assignment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, caller, out.Data.ResearcherID)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/assignments", bytes.NewReader(body)))
	assert.Equal(t, http.StatusConflict, rec.Code)

	patch := []byte(`{"status":"done"}`)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/assignments/"+out.Data.ID.String()+"/status", bytes.NewReader(patch)))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/assignments/"+out.Data.ID.String()+"/status", bytes.NewReader(patch)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var envelope response.Body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.False(t, envelope.Success)
}

type stubCreator struct {
	err   error
	calls int
}

func (c *stubCreator) CreatePresentation(_ context.Context, _ *models.Assignment) (*models.Presentation, error) {
	c.calls++
	return nil, c.err
}

func TestRegisterSurfacesInlineSchedulingFailure(t *testing.T) {
	store := memstore.New()
	creator := &stubCreator{err: fmt.Errorf("insert presentation: %w", apperr.ErrTransient)}
	svc := NewService(store.Assignments(), nil, creator, clock.NewManual(monday), nil)

	a, err := svc.Register(context.Background(), req(models.RolePrimary))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrTransient)
	require.NotNil(t, a)
	assert.Equal(t, 1, creator.calls)

	_, err = store.Assignments().GetByID(context.Background(), a.ID)
	assert.NoError(t, err)
}

func TestRegisterSurfacesFailureAfterQueueDown(t *testing.T) {
	creator := &stubCreator{err: errors.New("connection reset")}
	svc := NewService(memstore.New().Assignments(), &fakeQueue{err: errors.New("redis down")}, creator, clock.NewManual(monday), nil)

	_, err := svc.Register(context.Background(), req(models.RolePrimary))
	assert.ErrorContains(t, err, "schedule presentation for assignment")
}

func TestRegisterTreatsExistingPresentationAsScheduled(t *testing.T) {
	creator := &stubCreator{err: apperr.ErrDuplicatePresentation}
	svc := NewService(memstore.New().Assignments(), nil, creator, clock.NewManual(monday), nil)

	_, err := svc.Register(context.Background(), req(models.RolePrimary))
	assert.NoError(t, err)
}

func TestHandlerRegisterReportsSchedulingFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	creator := &stubCreator{err: apperr.ErrTransient}
	h := NewHandler(NewService(memstore.New().Assignments(), nil, creator, clock.NewManual(monday), nil))

	r := gin.New()
	r.POST("/assignments", h.Register)
	body, _ := json.Marshal(map[string]string{
		"researcher_id": uuid.NewString(), "researcher_name": "Ana",
		"agent_id": uuid.NewString(), "agent_name": "GPT", "role": "PRIMARY",
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/assignments", bytes.NewReader(body)))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var envelope response.Body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.False(t, envelope.Success)
	assert.Equal(t, "transient", envelope.Kind)
}
