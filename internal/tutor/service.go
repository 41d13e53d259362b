package tutor

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"sortit/internal/config"
	"sortit/internal/grader"
	"sortit/internal/llm"
	"sortit/internal/milestone"
	"sortit/internal/progress"
	"sortit/internal/session"
	"sortit/internal/xp"
)

var (
	ErrEmptyMessage     = errors.New("missing message")
	ErrEmptyContext     = errors.New("missing context id")
	ErrUnknownAlgorithm = errors.New("unknown algorithm")
)

// DefaultAlgorithm is used when neither the turn nor the session names one.
const DefaultAlgorithm = "Selection Sort"

// fallbackReply keeps the conversation moving when the model returns nothing.
const fallbackReply = "Let's think about that step by step."

// Service runs one tutoring turn end to end: persistence upserts, answer
// grading, adaptive scoring, milestone evaluation, XP bookkeeping and the
// tutor's next reply. Callers are expected to serialize turns per
// (user, context) pair; the unique indexes only guard record creation.
type Service struct {
	sessions  *session.Store
	progress  *progress.Store
	engine    *milestone.Engine
	grader    *grader.Grader
	llmClient *llm.Client
	rdb       *redis.Client
	cfg       *config.Config
	prompts   PromptBuilder
}

func NewService(db *gorm.DB, rdb *redis.Client, engine *milestone.Engine, g *grader.Grader, llmClient *llm.Client, cfg *config.Config) *Service {
	return &Service{
		sessions:  session.NewStore(db),
		progress:  progress.NewStore(db),
		engine:    engine,
		grader:    g,
		llmClient: llmClient,
		rdb:       rdb,
		cfg:       cfg,
		prompts:   &compactPromptBuilder{},
	}
}

// SetPromptBuilder swaps the prompt assembly strategy.
func (s *Service) SetPromptBuilder(pb PromptBuilder) {
	if pb != nil {
		s.prompts = pb
	}
}

// TurnInput is one student chat turn.
type TurnInput struct {
	UserID    uint
	ContextID string
	Algorithm string
	Message   string
	Mode      string // "guide" (Socratic) or "direct"
}

// AdaptiveState mirrors the session's adaptive difficulty state.
type AdaptiveState struct {
	Score int           `json:"score"`
	Level string        `json:"level"`
	Stats session.Stats `json:"stats"`
}

// ProgressState summarizes milestone progress after the turn.
type ProgressState struct {
	Algorithm           string `json:"algorithm"`
	Percent             int    `json:"percent"`
	XPEarned            int    `json:"xpEarned"`
	TotalFromMilestones int    `json:"xpTotalFromMilestones"`
	IsCompleted         bool   `json:"isCompleted"`
	MilestoneHit        string `json:"milestoneHit,omitempty"` // title of the milestone just completed
}

// TurnResult is everything the surrounding surface needs to render a turn.
type TurnResult struct {
	Reply    string        `json:"response"`
	XPGain   int           `json:"xpGain"` // per-turn award plus milestone burst
	TotalXP  int           `json:"totalXP"`
	Level    xp.LevelInfo  `json:"levelInfo"`
	Adaptive AdaptiveState `json:"adaptive"`
	Progress ProgressState `json:"progress"`
}

// HandleTurn processes one student message and returns the tutor's reply
// with all progression bookkeeping applied and persisted.
func (s *Service) HandleTurn(ctx context.Context, in TurnInput) (*TurnResult, error) {
	if in.Message == "" {
		return nil, ErrEmptyMessage
	}
	if in.ContextID == "" {
		return nil, ErrEmptyContext
	}

	sess, err := s.sessions.FindOrCreate(in.UserID, in.ContextID, in.Algorithm)
	if err != nil {
		return nil, err
	}

	algorithm := in.Algorithm
	if algorithm == "" {
		algorithm = sess.Algorithm
	}
	if algorithm == "" {
		algorithm = DefaultAlgorithm
	}
	if !s.engine.Registry().Has(algorithm) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}

	rec, err := s.progress.FindOrCreate(in.UserID, algorithm, len(sess.Messages))
	if err != nil {
		return nil, err
	}

	turnXP := xp.TurnAward(len(in.Message))

	// Grade the student's answer against the last tutor question, if any.
	var ev *grader.Evaluation
	if lastTutor := session.LatestByRole(sess.Messages, session.RoleAssistant); lastTutor != nil {
		ev = s.grader.EvaluateAnswer(ctx, lastTutor.Content, in.Message)
		log.Printf("[Tutor] Answer evaluation: %s (confidence %.2f)", ev.Verdict, ev.Confidence)
	}
	if ev != nil && ev.Verdict != grader.VerdictSkip {
		grader.ApplyScoring(sess, ev)
	}

	if err := s.sessions.AppendMessage(sess, session.RoleStudent, in.Message); err != nil {
		return nil, err
	}
	sess.XP += turnXP

	// Only turns showing understanding advance milestone pacing.
	if ev.IsQualityTurn(s.cfg.Tutor.QualityConfidence) {
		rec.QualityTurns++
		log.Printf("[Tutor] Quality turn counted: %d", rec.QualityTurns)
	}

	res := s.evaluateMilestones(sess, rec, algorithm)
	if res.XPAwarded > 0 {
		rec.TotalXPFromMilestones += res.XPAwarded
		sess.XP += res.XPAwarded
		log.Printf("[Tutor] Milestone hit: %q (+%d XP)", res.Hit.Title, res.XPAwarded)
	}

	if err := s.progress.Save(rec); err != nil {
		return nil, err
	}
	if err := s.sessions.Save(sess); err != nil {
		return nil, err
	}

	reply, err := s.nextReply(ctx, sess, rec, algorithm, in.Mode, res)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.AppendMessage(sess, session.RoleAssistant, reply); err != nil {
		return nil, err
	}
	if err := s.sessions.Save(sess); err != nil {
		return nil, err
	}

	out := &TurnResult{
		Reply:   reply,
		XPGain:  turnXP + res.XPAwarded,
		TotalXP: sess.XP,
		Level:   xp.LevelForXP(sess.XP),
		Adaptive: AdaptiveState{
			Score: sess.Score,
			Level: sess.Level,
			Stats: sess.Stats,
		},
		Progress: ProgressState{
			Algorithm:           algorithm,
			Percent:             res.PercentComplete,
			XPEarned:            res.XPAwarded,
			TotalFromMilestones: rec.TotalXPFromMilestones,
			IsCompleted:         rec.IsCompleted,
		},
	}
	if res.Hit != nil {
		out.Progress.MilestoneHit = res.Hit.Title
	}
	return out, nil
}

// evaluateMilestones runs the engine with a zero-effect fallback: a turn
// never fails because progression could not be evaluated.
func (s *Service) evaluateMilestones(sess *session.Session, rec *progress.Record, algorithm string) (out milestone.Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Tutor] Milestone evaluation error: %v", r)
			out = milestone.Result{}
		}
	}()
	return s.engine.Evaluate(milestone.Input{
		Messages:       sess.Messages,
		Progress:       rec,
		Algorithm:      algorithm,
		XPPerMilestone: s.cfg.Tutor.XPPerMilestone,
	})
}

// nextReply builds the tutoring prompt and asks the model for the next turn.
func (s *Service) nextReply(ctx context.Context, sess *session.Session, rec *progress.Record, algorithm, mode string, res milestone.Result) (string, error) {
	window := session.BuildSlidingWindow(sess.Messages, s.cfg.Tutor.HistoryWindow, s.cfg.Tutor.HistoryMaxChars)

	tc := TurnContext{
		Algorithm:    algorithm,
		Mode:         mode,
		MasteryLevel: sess.Level,
		TotalXP:      sess.XP,
		QualityTurns: rec.QualityTurns,
		History:      window,
		JustHitTitle: "",
	}
	if res.Hit != nil {
		tc.JustHitTitle = res.Hit.Title
	}
	for _, m := range rec.Milestones {
		if m.Status == progress.StatusDone {
			tc.CompletedTitles = append(tc.CompletedTitles, m.Title)
		}
	}
	defs := s.engine.Registry().DefinitionsFor(algorithm)
	for i := range defs {
		if st := rec.FindMilestone(defs[i].Key); st != nil && st.Status != progress.StatusDone {
			tc.NextMilestone = &defs[i]
			break
		}
	}

	reply, err := s.llmClient.Generate(ctx, s.cfg.Ollama.GenerateURL(), s.cfg.Ollama.Model, s.prompts.BuildTurnPrompt(tc))
	if err != nil {
		return "", fmt.Errorf("tutor reply: %w", err)
	}
	if reply == "" {
		reply = fallbackReply
	}
	return reply, nil
}
