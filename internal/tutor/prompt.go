package tutor

import (
	"fmt"
	"strings"

	"sortit/internal/milestone"
	"sortit/internal/session"
)

// TurnContext carries everything a prompt strategy may want to mention.
type TurnContext struct {
	Algorithm       string
	Mode            string // "guide" or "direct"
	MasteryLevel    string
	TotalXP         int
	QualityTurns    int
	NextMilestone   *milestone.Definition
	CompletedTitles []string
	JustHitTitle    string
	History         []session.Message
}

// PromptBuilder assembles the model prompt for one tutoring turn. The default
// is deliberately compact; richer persona templates plug in via
// Service.SetPromptBuilder.
type PromptBuilder interface {
	BuildTurnPrompt(tc TurnContext) string
}

type compactPromptBuilder struct{}

func (compactPromptBuilder) BuildTurnPrompt(tc TurnContext) string {
	var b strings.Builder

	if tc.Mode == "direct" {
		fmt.Fprintf(&b, "You are a tutor teaching %s. Answer the student directly and concretely.\n", tc.Algorithm)
	} else {
		fmt.Fprintf(&b, "You are a Socratic tutor teaching %s. Guide with one question at a time; never hand over the full answer.\n", tc.Algorithm)
	}
	fmt.Fprintf(&b, "Student mastery: %s. Quality turns so far: %d.\n", tc.MasteryLevel, tc.QualityTurns)

	if len(tc.CompletedTitles) > 0 {
		fmt.Fprintf(&b, "Already mastered: %s.\n", strings.Join(tc.CompletedTitles, "; "))
	}
	if tc.JustHitTitle != "" {
		fmt.Fprintf(&b, "The student just demonstrated %q. Acknowledge it briefly.\n", tc.JustHitTitle)
	}
	if tc.NextMilestone != nil {
		fmt.Fprintf(&b, "Steer the conversation toward: %s.\n", tc.NextMilestone.Title)
	}

	b.WriteString("\nConversation:\n")
	for _, m := range tc.History {
		speaker := "Student"
		if m.Role == session.RoleAssistant {
			speaker = "Tutor"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, m.Content)
	}
	b.WriteString("Tutor:")
	return b.String()
}
