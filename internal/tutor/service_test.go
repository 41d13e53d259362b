package tutor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"sortit/internal/config"
	"sortit/internal/grader"
	"sortit/internal/llm"
	"sortit/internal/milestone"
	"sortit/internal/progress"
	"sortit/internal/session"
	"sortit/internal/xp"
)

// fakeModel answers grader prompts with a fixed verdict and tutor prompts
// with a fixed reply.
type fakeModel struct {
	verdict    string
	confidence float64
	reply      string
}

func (f *fakeModel) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		text := f.reply
		if strings.Contains(req.Prompt, "evaluator") {
			text = fmt.Sprintf(`{"verdict":%q,"confidence":%g,"hint_needed":false,"short_feedback":"ok"}`, f.verdict, f.confidence)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"response": text, "done": true})
	}
}

func newTestService(t *testing.T, model *fakeModel) (*Service, func()) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&session.Session{}, &session.Message{}, &progress.Record{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	srv := httptest.NewServer(model.handler())

	mgr := llm.NewManager(llm.DefaultConfig(), llm.NewCircuitBreaker(3, time.Minute))
	client := llm.NewClient(mgr, llm.PriorityCritical, 10*time.Second)

	cfg := &config.Config{}
	cfg.Ollama.URL = srv.URL
	cfg.Ollama.Model = "test-model"
	cfg.Tutor = config.TutorConfig{
		XPPerMilestone:    100,
		QualityConfidence: 0.6,
		HistoryWindow:     6,
		HistoryMaxChars:   4000,
		LeaderboardLimit:  100,
		LeaderboardTTLSec: 30,
	}

	g := grader.New(client, cfg.Ollama.GenerateURL(), cfg.Ollama.Model)
	svc := NewService(db, nil, milestone.NewEngine(milestone.DefaultRegistry()), g, client, cfg)

	return svc, func() {
		mgr.Stop()
		srv.Close()
	}
}

func turn(t *testing.T, svc *Service, msg string) *TurnResult {
	t.Helper()
	res, err := svc.HandleTurn(context.Background(), TurnInput{
		UserID:    1,
		ContextID: "algo:Bubble Sort",
		Algorithm: "Bubble Sort",
		Message:   msg,
	})
	if err != nil {
		t.Fatalf("HandleTurn(%q): %v", msg, err)
	}
	return res
}

func TestHandleTurn_InputValidation(t *testing.T) {
	model := &fakeModel{verdict: "correct", confidence: 0.9, reply: "Good."}
	svc, done := newTestService(t, model)
	defer done()

	_, err := svc.HandleTurn(context.Background(), TurnInput{UserID: 1, ContextID: "c", Algorithm: "Bubble Sort"})
	if !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("empty message: expected ErrEmptyMessage, got %v", err)
	}
	_, err = svc.HandleTurn(context.Background(), TurnInput{UserID: 1, Algorithm: "Bubble Sort", Message: "hi"})
	if !errors.Is(err, ErrEmptyContext) {
		t.Errorf("empty context: expected ErrEmptyContext, got %v", err)
	}
	_, err = svc.HandleTurn(context.Background(), TurnInput{UserID: 1, ContextID: "c", Algorithm: "Bogo Sort", Message: "hi"})
	if !errors.Is(err, ErrUnknownAlgorithm) {
		t.Errorf("unknown algorithm: expected ErrUnknownAlgorithm, got %v", err)
	}
}

func TestHandleTurn_FirstTurnInitializes(t *testing.T) {
	model := &fakeModel{verdict: "correct", confidence: 0.9, reply: "What do you think happens first?"}
	svc, done := newTestService(t, model)
	defer done()

	msg := "Hi, I want to learn Bubble Sort."
	res := turn(t, svc, msg)

	if res.Reply != model.reply {
		t.Errorf("expected tutor reply %q, got %q", model.reply, res.Reply)
	}
	if want := xp.TurnAward(len(msg)); res.XPGain != want || res.TotalXP != want {
		t.Errorf("expected first-turn xp %d, got gain=%d total=%d", want, res.XPGain, res.TotalXP)
	}
	if res.Progress.Percent != 0 || res.Progress.MilestoneHit != "" {
		t.Errorf("first turn must not complete a milestone: %+v", res.Progress)
	}
	// No assistant message existed yet, so nothing was graded.
	if res.Adaptive.Score != 50 || res.Adaptive.Stats.Correct != 0 {
		t.Errorf("ungraded turn must not move the score: %+v", res.Adaptive)
	}

	snap, err := svc.Progress(1, "Bubble Sort")
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if len(snap.Milestones) != 5 {
		t.Fatalf("expected 5 initialized milestones, got %d", len(snap.Milestones))
	}

	sum, err := svc.Summary(1, "algo:Bubble Sort")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.Turns != 2 {
		t.Errorf("expected student+tutor messages stored, got %d", sum.Turns)
	}
}

func TestHandleTurn_QualityTurnsGateThenHit(t *testing.T) {
	model := &fakeModel{verdict: "correct", confidence: 0.9, reply: "Nice, keep going."}
	svc, done := newTestService(t, model)
	defer done()

	turn(t, svc, "Hi, I want to learn Bubble Sort.")

	// Quality turn 1 of 2: pattern matches but the gate holds.
	hit := "We compare adjacent elements and swap them when out of order."
	res := turn(t, svc, hit)
	if res.Progress.MilestoneHit != "" || res.Progress.XPEarned != 0 {
		t.Fatalf("gate must hold at one quality turn: %+v", res.Progress)
	}
	if res.Adaptive.Score != 55 || res.Adaptive.Stats.Correct != 1 {
		t.Errorf("correct verdict must score +5: %+v", res.Adaptive)
	}

	// Quality turn 2 of 2: same statement now completes the milestone.
	res = turn(t, svc, hit)
	if res.Progress.MilestoneHit != "Understands repeated swapping of adjacent elements" {
		t.Fatalf("expected first bubble milestone, got %+v", res.Progress)
	}
	if res.Progress.XPEarned != 100 || res.Progress.TotalFromMilestones != 100 {
		t.Errorf("expected 100 milestone xp, got %+v", res.Progress)
	}
	if res.Progress.Percent != 20 {
		t.Errorf("expected 20%% after 1 of 5, got %d", res.Progress.Percent)
	}
	if want := xp.TurnAward(len(hit)) + 100; res.XPGain != want {
		t.Errorf("expected gain %d (turn award plus milestone), got %d", want, res.XPGain)
	}
	if res.Level.Level != xp.LevelForXP(res.TotalXP).Level {
		t.Errorf("level info inconsistent with total xp: %+v", res)
	}

	// The same milestone is never awarded twice.
	res = turn(t, svc, hit)
	if res.Progress.MilestoneHit != "" || res.Progress.TotalFromMilestones != 100 {
		t.Errorf("milestone must stay done: %+v", res.Progress)
	}
}

func TestHandleTurn_LowConfidenceTurnsDoNotAdvanceGate(t *testing.T) {
	model := &fakeModel{verdict: "incorrect", confidence: 0.3, reply: "Try again."}
	svc, done := newTestService(t, model)
	defer done()

	hit := "We compare adjacent elements and swap them when out of order."
	for i := 0; i < 4; i++ {
		res := turn(t, svc, hit)
		if res.Progress.MilestoneHit != "" {
			t.Fatalf("turn %d: low-confidence turns must never unlock milestones", i+1)
		}
	}

	rec, err := svc.progress.Find(1, "Bubble Sort")
	if err != nil || rec == nil {
		t.Fatalf("progress record missing: %v", err)
	}
	if rec.QualityTurns != 0 {
		t.Errorf("expected 0 quality turns, got %d", rec.QualityTurns)
	}
}

func TestHandleTurn_EmptyModelReplyFallsBack(t *testing.T) {
	model := &fakeModel{verdict: "correct", confidence: 0.9, reply: ""}
	svc, done := newTestService(t, model)
	defer done()

	res := turn(t, svc, "Hello there.")
	if res.Reply != fallbackReply {
		t.Errorf("expected fallback reply, got %q", res.Reply)
	}
}

func TestSummary_MissingSessionDefaults(t *testing.T) {
	model := &fakeModel{verdict: "correct", confidence: 0.9, reply: "Hi."}
	svc, done := newTestService(t, model)
	defer done()

	sum, err := svc.Summary(42, "nope")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.Score != 50 || sum.Level != session.LevelIntermediate || sum.XP != 0 {
		t.Errorf("expected neutral defaults, got %+v", sum)
	}
}

func TestProgress_MissingRecordIsEmptySnapshot(t *testing.T) {
	model := &fakeModel{verdict: "correct", confidence: 0.9, reply: "Hi."}
	svc, done := newTestService(t, model)
	defer done()

	snap, err := svc.Progress(7, "Merge Sort")
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if snap.Percent != 0 || len(snap.Milestones) != 0 || snap.IsCompleted {
		t.Errorf("expected empty snapshot, got %+v", snap)
	}
}

func TestLeaderboard_RanksBySummedXP(t *testing.T) {
	model := &fakeModel{verdict: "correct", confidence: 0.9, reply: "Hi."}
	svc, done := newTestService(t, model)
	defer done()

	seed := []struct {
		user uint
		ctx  string
		xp   int
	}{
		{1, "a", 120},
		{1, "b", 40},
		{2, "a", 300},
		{3, "a", 10},
	}
	for _, s := range seed {
		sess, err := svc.sessions.FindOrCreate(s.user, s.ctx, "Bubble Sort")
		if err != nil {
			t.Fatalf("seed session: %v", err)
		}
		sess.XP = s.xp
		if err := svc.sessions.Save(sess); err != nil {
			t.Fatalf("seed save: %v", err)
		}
	}

	entries, err := svc.Leaderboard(context.Background())
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].UserID != 2 || entries[0].TotalXP != 300 || entries[0].Rank != 1 {
		t.Errorf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].UserID != 1 || entries[1].TotalXP != 160 {
		t.Errorf("unexpected second entry: %+v", entries[1])
	}
	if entries[0].Level != xp.LevelForXP(300).Level {
		t.Errorf("level not derived from total xp: %+v", entries[0])
	}

	info, err := svc.UserLevel(1)
	if err != nil {
		t.Fatalf("UserLevel: %v", err)
	}
	if info.Level != xp.LevelForXP(160).Level {
		t.Errorf("unexpected user level: %+v", info)
	}
}
