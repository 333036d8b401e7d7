package server

import (
	"net/http"
	"strconv"
	"testing"

	"mindloom/internal/roadmap"
)

type roadmapResponse struct {
	RoadmapID string           `json:"roadmap_id"`
	State     roadmap.Snapshot `json:"state"`
}

const testOutlineReply = `Here is a plan:
[
  {"title":"Basics","objective":"Learn the fundamentals."},
  {"title":"Practice","objective":"Build something real."}
]`

const testTasksReply = `[
  {"task":"Read the introduction","completed":false},
  {"task":"Set up a workspace","completed":true}
]`

func createRoadmapSession(t *testing.T, router http.Handler) roadmapResponse {
	t.Helper()
	rec := performRequest(t, router, http.MethodPost, "/api/v1/roadmaps", map[string]any{"topic": "Learn Go"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	var body roadmapResponse
	decodeJSONInto(t, rec, &body)
	if body.RoadmapID == "" {
		t.Fatalf("expected roadmap_id, body=%s", rec.Body.String())
	}
	return body
}

func TestCreateRoadmapLoadsFirstStepTasks(t *testing.T) {
	scripted := &scriptedClient{replies: []string{testOutlineReply, testTasksReply}}
	router := newTestApp(scripted).Router()

	created := createRoadmapSession(t, router)
	if len(created.State.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(created.State.Steps))
	}
	if created.State.CurrentStepIndex != 0 {
		t.Fatalf("expected current step 0, got %d", created.State.CurrentStepIndex)
	}
	if len(created.State.Steps[0].Todos) != 2 {
		t.Fatalf("expected 2 todos on the first step, got %v", created.State.Steps[0].Todos)
	}
	// Model-claimed completion is discarded; every checklist starts unchecked.
	for _, todo := range created.State.Steps[0].Todos {
		if todo.Completed {
			t.Fatalf("expected fresh todos to start unchecked, got %v", created.State.Steps[0].Todos)
		}
	}
	if len(created.State.Steps[1].Todos) != 0 {
		t.Fatalf("expected no tasks on upcoming steps, got %v", created.State.Steps[1].Todos)
	}
}

func TestCompleteStepRejectedWhileTasksOpen(t *testing.T) {
	scripted := &scriptedClient{replies: []string{testOutlineReply, testTasksReply}}
	router := newTestApp(scripted).Router()
	created := createRoadmapSession(t, router)

	rec := performRequest(t, router, http.MethodPost, "/api/v1/roadmaps/"+created.RoadmapID+"/complete-step", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 while todos are open, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestCompleteStepAdvancesAndLoadsNextTasks(t *testing.T) {
	scripted := &scriptedClient{replies: []string{testOutlineReply, testTasksReply}}
	router := newTestApp(scripted).Router()
	created := createRoadmapSession(t, router)

	for i := 0; i < 2; i++ {
		rec := performRequest(t, router, http.MethodPost, "/api/v1/roadmaps/"+created.RoadmapID+"/todos/"+strconv.Itoa(i)+"/toggle", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("toggle %d: expected 200, got %d body=%s", i, rec.Code, rec.Body.String())
		}
	}

	scripted.push(`[{"task":"Ship a small project","completed":false}]`)
	rec := performRequest(t, router, http.MethodPost, "/api/v1/roadmaps/"+created.RoadmapID+"/complete-step", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	var body roadmapResponse
	decodeJSONInto(t, rec, &body)
	if body.State.CurrentStepIndex != 1 {
		t.Fatalf("expected current step 1, got %d", body.State.CurrentStepIndex)
	}
	if !body.State.Steps[0].Completed {
		t.Fatalf("expected the first step to be completed")
	}
	if len(body.State.Steps[1].Todos) != 1 {
		t.Fatalf("expected tasks loaded for the next step, got %v", body.State.Steps[1].Todos)
	}
	if body.State.FullyCompleted {
		t.Fatalf("did not expect full completion yet")
	}
}

func TestCompleteLastStepMarksRoadmapFullyCompleted(t *testing.T) {
	scripted := &scriptedClient{replies: []string{testOutlineReply, testTasksReply}}
	router := newTestApp(scripted).Router()
	created := createRoadmapSession(t, router)

	for i := 0; i < 2; i++ {
		performRequest(t, router, http.MethodPost, "/api/v1/roadmaps/"+created.RoadmapID+"/todos/"+strconv.Itoa(i)+"/toggle", nil)
	}
	scripted.push(`[{"task":"Ship a small project","completed":false}]`)
	performRequest(t, router, http.MethodPost, "/api/v1/roadmaps/"+created.RoadmapID+"/complete-step", nil)

	performRequest(t, router, http.MethodPost, "/api/v1/roadmaps/"+created.RoadmapID+"/todos/0/toggle", nil)
	rec := performRequest(t, router, http.MethodPost, "/api/v1/roadmaps/"+created.RoadmapID+"/complete-step", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	var body roadmapResponse
	decodeJSONInto(t, rec, &body)
	if !body.State.FullyCompleted {
		t.Fatalf("expected the roadmap to be fully completed")
	}

	again := performRequest(t, router, http.MethodPost, "/api/v1/roadmaps/"+created.RoadmapID+"/complete-step", nil)
	if again.Code != http.StatusConflict {
		t.Fatalf("expected 409 after full completion, got %d body=%s", again.Code, again.Body.String())
	}
}

func TestReloadTasksRecoversFromFailedGeneration(t *testing.T) {
	// Only the outline reply is queued, so the first task load fails.
	scripted := &scriptedClient{replies: []string{testOutlineReply}}
	router := newTestApp(scripted).Router()
	created := createRoadmapSession(t, router)

	if created.State.TasksError == "" {
		t.Fatalf("expected an exposed task load error, state=%+v", created.State)
	}
	if len(created.State.Steps[0].Todos) != 0 {
		t.Fatalf("expected no todos after a failed load, got %v", created.State.Steps[0].Todos)
	}

	scripted.push(testTasksReply)
	rec := performRequest(t, router, http.MethodPost, "/api/v1/roadmaps/"+created.RoadmapID+"/tasks/reload", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	var body roadmapResponse
	decodeJSONInto(t, rec, &body)
	if body.State.TasksError != "" {
		t.Fatalf("expected the error to clear after reload, got %q", body.State.TasksError)
	}
	if len(body.State.Steps[0].Todos) != 2 {
		t.Fatalf("expected todos after reload, got %v", body.State.Steps[0].Todos)
	}
}

func TestCreateRoadmapRejectsUnparseableOutline(t *testing.T) {
	scripted := &scriptedClient{replies: []string{"I cannot plan that topic."}}
	router := newTestApp(scripted).Router()

	rec := performRequest(t, router, http.MethodPost, "/api/v1/roadmaps", map[string]any{"topic": "Learn Go"})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d body=%s", rec.Code, rec.Body.String())
	}
	body := decodeJSONMap(t, rec)
	if body["error"] != "unparseable_model_output" {
		t.Fatalf("expected unparseable_model_output code, got %v", body["error"])
	}
}

func TestToggleTodoRejectsBadIndex(t *testing.T) {
	scripted := &scriptedClient{replies: []string{testOutlineReply, testTasksReply}}
	router := newTestApp(scripted).Router()
	created := createRoadmapSession(t, router)

	rec := performRequest(t, router, http.MethodPost, "/api/v1/roadmaps/"+created.RoadmapID+"/todos/9/toggle", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range index, got %d body=%s", rec.Code, rec.Body.String())
	}

	rec = performRequest(t, router, http.MethodPost, "/api/v1/roadmaps/"+created.RoadmapID+"/todos/abc/toggle", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a non-integer index, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestRoadmapNotFound(t *testing.T) {
	scripted := &scriptedClient{}
	router := newTestApp(scripted).Router()

	rec := performRequest(t, router, http.MethodGet, "/api/v1/roadmaps/nonexistent", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rec.Code, rec.Body.String())
	}
	if detail := responseDetail(t, rec); detail != "Roadmap not found" {
		t.Fatalf("unexpected detail: %q", detail)
	}
}
