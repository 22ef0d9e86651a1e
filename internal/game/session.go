package game

import (
	"fmt"
	"slices"
	"time"
)

// Phase is a step of the play-through.
type Phase int

const (
	PhaseSearch Phase = iota
	PhaseGenerating
	PhaseQuiz
	// PhaseReveal is never entered; the finished game goes straight to
	// PhaseMeme.
	PhaseReveal
	PhaseMeme
)

var phaseNames = map[Phase]string{
	PhaseSearch:     "search",
	PhaseGenerating: "generating",
	PhaseQuiz:       "quiz",
	PhaseReveal:     "reveal",
	PhaseMeme:       "meme",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

func (p Phase) MarshalText() ([]byte, error) {
	if _, ok := phaseNames[p]; !ok {
		return nil, fmt.Errorf("unknown phase %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	for phase, name := range phaseNames {
		if name == string(text) {
			*p = phase
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// Session is the state of one play-through.
type Session struct {
	Phase                Phase     `json:"phase"`
	Prompt               string    `json:"prompt"`
	ImageURL             string    `json:"imageUrl,omitempty"`
	Questions            []string  `json:"questions"`
	Answers              []string  `json:"answers"`
	CurrentQuestionIndex int       `json:"currentQuestionIndex"`
	Error                string    `json:"error,omitempty"`
	MemeURL              string    `json:"memeUrl,omitempty"`
	GeneratingMeme       bool      `json:"generatingMeme"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

func (s Session) clone() Session {
	s.Questions = slices.Clone(s.Questions)
	s.Answers = slices.Clone(s.Answers)
	return s
}

// CurrentQuestion returns the question awaiting an answer, or "" outside
// the quiz.
func (s Session) CurrentQuestion() string {
	if s.CurrentQuestionIndex < 0 || s.CurrentQuestionIndex >= len(s.Questions) {
		return ""
	}
	return s.Questions[s.CurrentQuestionIndex]
}

// BlurLevel is the blur tier for the image at the current point of the
// quiz.
func (s Session) BlurLevel() int {
	return BlurLevel(s.CurrentQuestionIndex, len(s.Questions))
}

// Validate checks the structural invariants of a session.
func (s Session) Validate() error {
	if _, ok := phaseNames[s.Phase]; !ok {
		return fmt.Errorf("unknown phase %d", int(s.Phase))
	}
	if len(s.Answers) > len(s.Questions) {
		return fmt.Errorf("%d answers for %d questions", len(s.Answers), len(s.Questions))
	}
	if s.CurrentQuestionIndex < 0 || s.CurrentQuestionIndex > len(s.Questions) {
		return fmt.Errorf("question index %d out of range [0, %d]", s.CurrentQuestionIndex, len(s.Questions))
	}
	switch s.Phase {
	case PhaseQuiz:
		if len(s.Questions) == 0 {
			return fmt.Errorf("quiz phase without questions")
		}
	case PhaseMeme:
		if s.MemeURL == "" {
			return fmt.Errorf("meme phase without meme")
		}
	}
	return nil
}
