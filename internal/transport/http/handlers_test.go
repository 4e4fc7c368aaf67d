package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"school-quiz-service/internal/app"
	"school-quiz-service/internal/cache"
	"school-quiz-service/internal/domain"
	"school-quiz-service/internal/infra/memory"
	transport "school-quiz-service/internal/transport/http"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// countingStore counts leaderboard source reads so tests can assert
// cache-aside behavior.
type countingStore struct {
	app.Store
	listTeamsCalls int
}

func (s *countingStore) ListTeams(ctx context.Context) ([]domain.Team, error) {
	s.listTeamsCalls++
	return s.Store.ListTeams(ctx)
}

type serverEnv struct {
	store  *countingStore
	mem    *memory.Store
	cache  *memory.Cache
	hub    *transport.LeaderboardHub
	router *gin.Engine
}

func newServerEnv(t *testing.T) *serverEnv {
	t.Helper()

	mem := memory.NewStore()
	mem.SeedQuizzes(1, 2, 3, 4)
	store := &countingStore{Store: mem}
	c := memory.NewCache()

	inv := cache.NewInvalidator(c, nil)
	submissions := app.NewSubmissionService(store, inv, nil)
	roster := app.NewRosterService(store, inv, nil)
	content := app.NewContentService(store, inv, nil)

	gateway := transport.NewGateway(c, nil)
	hub := transport.NewLeaderboardHub()
	ttls := transport.TTLs{Default: 10 * time.Minute, Leaderboard: 5 * time.Minute, PublishStatus: 5 * time.Minute}
	handler := transport.NewHandler(submissions, roster, content, store, gateway, hub, nil, ttls)
	ws := transport.NewWSHandler(hub, handler.LeaderboardSnapshot, nil)

	return &serverEnv{
		store:  store,
		mem:    mem,
		cache:  c,
		hub:    hub,
		router: transport.NewRouter(handler, ws),
	}
}

func (e *serverEnv) seedTeams(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	teams := []domain.Team{
		{ID: "t-a", TeamName: "alpha", SchoolName: "A", Members: []domain.Member{
			{StudentID: "a1", Name: "a1", Marks: 40},
			{StudentID: "a2", Name: "a2", Marks: 35},
		}},
		{ID: "t-b", TeamName: "beta", SchoolName: "B", Members: []domain.Member{
			{StudentID: "b1", Name: "b1", Marks: 50},
		}},
	}
	for _, team := range teams {
		if err := e.mem.CreateTeam(ctx, team); err != nil {
			t.Fatalf("seed team: %v", err)
		}
	}
}

func (e *serverEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var payload *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		payload = bytes.NewBuffer(raw)
	} else {
		payload = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, payload)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
	}
	return env
}

func TestLeaderboardCacheAside(t *testing.T) {
	env := newServerEnv(t)
	env.seedTeams(t)

	rec := env.do(t, http.MethodGet, "/quizzes/get-leaderboard", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var lb domain.Leaderboard
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &lb); err != nil {
		t.Fatalf("decode leaderboard: %v", err)
	}
	if len(lb.Entries) != 2 || lb.Entries[0].SchoolName != "A" || lb.Entries[0].TotalScore != 75 {
		t.Fatalf("expected A leading with 75, got %+v", lb.Entries)
	}
	if lb.Entries[1].TotalScore != 50 || lb.Entries[0].Rank != 1 || lb.Entries[1].Rank != 2 {
		t.Fatalf("expected B=50 rank 2, got %+v", lb.Entries)
	}
	if env.store.listTeamsCalls != 1 {
		t.Fatalf("expected one source read, got %d", env.store.listTeamsCalls)
	}

	// Warm read: no extra source hit.
	env.do(t, http.MethodGet, "/quizzes/get-leaderboard", nil)
	if env.store.listTeamsCalls != 1 {
		t.Fatalf("expected cache hit, source reads=%d", env.store.listTeamsCalls)
	}
}

func TestLeaderboardNeverStaleAfterSubmission(t *testing.T) {
	env := newServerEnv(t)
	env.seedTeams(t)

	// Seed a question and publish so beta's b1 can submit.
	rec := env.do(t, http.MethodPost, "/questions", domain.Question{
		QuizID: 1,
		Prompt: "pick a",
		Options: []domain.Option{
			{Tag: domain.OptionA, Text: "a"},
			{Tag: domain.OptionB, Text: "b"},
			{Tag: domain.OptionC, Text: "c"},
			{Tag: domain.OptionD, Text: "d"},
		},
		CorrectOption: domain.OptionA,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create question: %d %s", rec.Code, rec.Body.String())
	}
	if rec := env.do(t, http.MethodPost, "/quizzes/publish-all-quizzes", nil); rec.Code != http.StatusOK {
		t.Fatalf("publish: %d", rec.Code)
	}

	// Warm the leaderboard cache.
	env.do(t, http.MethodGet, "/quizzes/get-leaderboard", nil)

	rec = env.do(t, http.MethodPost, "/quizzes/submit-quiz", map[string]interface{}{
		"studentId":        "a1",
		"quizId":           1,
		"submittedAnswers": []map[string]interface{}{{"questionId": 0, "answer": "a"}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("submit: %d %s", rec.Code, rec.Body.String())
	}

	// The very next read must reflect the overwrite (a1: 40 -> 100).
	rec = env.do(t, http.MethodGet, "/quizzes/get-leaderboard", nil)
	var lb domain.Leaderboard
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &lb); err != nil {
		t.Fatalf("decode leaderboard: %v", err)
	}
	if lb.Entries[0].SchoolName != "A" || lb.Entries[0].TotalScore != 135 {
		t.Fatalf("stale leaderboard after write: %+v", lb.Entries)
	}
}

func TestColdCacheMatchesWarmCache(t *testing.T) {
	env := newServerEnv(t)
	env.seedTeams(t)

	warm := env.do(t, http.MethodGet, "/quizzes/get-leaderboard", nil)
	warmAgain := env.do(t, http.MethodGet, "/quizzes/get-leaderboard", nil)
	if !bytes.Equal(decodeEnvelope(t, warm).Data, decodeEnvelope(t, warmAgain).Data) {
		t.Fatalf("warm reads diverged")
	}

	if err := env.cache.FlushAll(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}

	cold := env.do(t, http.MethodGet, "/quizzes/get-leaderboard", nil)
	var warmLB, coldLB domain.Leaderboard
	if err := json.Unmarshal(decodeEnvelope(t, warm).Data, &warmLB); err != nil {
		t.Fatalf("decode warm: %v", err)
	}
	if err := json.Unmarshal(decodeEnvelope(t, cold).Data, &coldLB); err != nil {
		t.Fatalf("decode cold: %v", err)
	}
	// UpdatedAt differs between computations; the ranking content must not.
	warmLB.UpdatedAt, coldLB.UpdatedAt = time.Time{}, time.Time{}
	warmJSON, _ := json.Marshal(warmLB)
	coldJSON, _ := json.Marshal(coldLB)
	if !bytes.Equal(warmJSON, coldJSON) {
		t.Fatalf("cold cache served different data:\nwarm=%s\ncold=%s", warmJSON, coldJSON)
	}
}

func TestPublishedStatusReflectsToggleImmediately(t *testing.T) {
	env := newServerEnv(t)

	rec := env.do(t, http.MethodGet, "/quizzes/check-quiz-published-status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	var status struct {
		IsPublished bool `json:"isPublished"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.IsPublished {
		t.Fatalf("expected unpublished initially")
	}

	if rec := env.do(t, http.MethodPost, "/quizzes/publish-all-quizzes", nil); rec.Code != http.StatusOK {
		t.Fatalf("publish: %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/quizzes/check-quiz-published-status", nil)
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !status.IsPublished {
		t.Fatalf("publish-status cache served stale value after toggle")
	}
}

func TestSubmitQuizErrorsAreExplicit(t *testing.T) {
	env := newServerEnv(t)
	env.seedTeams(t)
	if rec := env.do(t, http.MethodPost, "/quizzes/publish-all-quizzes", nil); rec.Code != http.StatusOK {
		t.Fatalf("publish: %d", rec.Code)
	}

	// Empty answer list: explicit validation failure, never a silent zero.
	rec := env.do(t, http.MethodPost, "/quizzes/submit-quiz", map[string]interface{}{
		"studentId":        "a1",
		"quizId":           1,
		"submittedAnswers": []map[string]interface{}{},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if resp := decodeEnvelope(t, rec); resp.Success || resp.Message == "" {
		t.Fatalf("expected explicit failure envelope, got %+v", resp)
	}

	// Unknown student: 404.
	rec = env.do(t, http.MethodPost, "/quizzes/submit-quiz", map[string]interface{}{
		"studentId":        "ghost",
		"quizId":           1,
		"submittedAnswers": []map[string]interface{}{{"questionId": 0, "answer": "a"}},
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	// Member who ended the quiz: conflict.
	if rec := env.do(t, http.MethodPost, "/school-teams/end-quiz", map[string]string{"studentId": "a1"}); rec.Code != http.StatusOK {
		t.Fatalf("end quiz: %d", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/quizzes/submit-quiz", map[string]interface{}{
		"studentId":        "a1",
		"quizId":           1,
		"submittedAnswers": []map[string]interface{}{{"questionId": 0, "answer": "a"}},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 after end-quiz, got %d", rec.Code)
	}
}

func TestQuestionCRUDInvalidatesListCache(t *testing.T) {
	env := newServerEnv(t)

	question := domain.Question{
		QuizID: 1,
		Prompt: "first",
		Options: []domain.Option{
			{Tag: domain.OptionA, Text: "a"},
			{Tag: domain.OptionB, Text: "b"},
			{Tag: domain.OptionC, Text: "c"},
			{Tag: domain.OptionD, Text: "d"},
		},
		CorrectOption: domain.OptionA,
	}
	rec := env.do(t, http.MethodPost, "/questions", question)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	var createdQ domain.Question
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &createdQ); err != nil {
		t.Fatalf("decode created: %v", err)
	}

	// Warm the list cache, then update and expect the fresh prompt.
	env.do(t, http.MethodGet, "/questions", nil)

	createdQ.Prompt = "renamed"
	if rec := env.do(t, http.MethodPut, "/questions/"+createdQ.ID, createdQ); rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/questions", nil)
	var questions []domain.Question
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &questions); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(questions) != 1 || questions[0].Prompt != "renamed" {
		t.Fatalf("stale question list after update: %+v", questions)
	}

	if rec := env.do(t, http.MethodDelete, "/questions/"+createdQ.ID, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete: %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/questions", nil)
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &questions); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(questions) != 0 {
		t.Fatalf("stale question list after delete: %+v", questions)
	}
}
