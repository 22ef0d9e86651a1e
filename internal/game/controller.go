// Package game drives one play-through: prompt, generation, quiz, roast.
package game

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"roastblur/internal/types"
)

// Generator is the generative backend the controller depends on.
type Generator interface {
	GenerateGameData(ctx context.Context, prompt string) (types.GameData, error)
	GenerateRoastMeme(ctx context.Context, questions, answers []string) (string, error)
}

// Controller owns a Session and moves it between phases. At most one
// generator request is in flight at a time; the session is only mutated
// under mu.
type Controller struct {
	gen      Generator
	log      *zap.SugaredLogger
	onSettle func(Session)
	now      func() time.Time

	mu             sync.Mutex
	session        Session
	busy           bool
	totalQuestions int // fixed when questions arrive
	inflight       sync.WaitGroup
}

type Option func(*Controller)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Controller) { c.log = l }
}

// WithSettleHook registers fn to receive a snapshot after every change to
// the session. fn runs outside the controller lock.
func WithSettleHook(fn func(Session)) Option {
	return func(c *Controller) { c.onSettle = fn }
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func NewController(gen Generator, opts ...Option) *Controller {
	c := &Controller{
		gen: gen,
		log: zap.NewNop().Sugar(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.session = c.initialSession()
	return c
}

// Restore rebuilds a controller from a persisted snapshot. A snapshot taken
// while a request was in flight cannot be resumed, so it is rolled back to
// the phase the request started from.
func Restore(gen Generator, s Session, opts ...Option) *Controller {
	c := NewController(gen, opts...)
	if err := s.Validate(); err != nil {
		c.log.Warnw("Discarding invalid session snapshot", "error", err)
		return c
	}

	s = s.clone()
	if s.Phase == PhaseGenerating {
		if s.GeneratingMeme && len(s.Questions) > 0 {
			s.Phase = PhaseQuiz
			if len(s.Answers) > s.CurrentQuestionIndex {
				s.Answers = s.Answers[:s.CurrentQuestionIndex]
			}
		} else {
			s.Phase = PhaseSearch
		}
		s.GeneratingMeme = false
		s.Error = Message(ErrInterrupted)
	}
	if s.Phase == PhaseReveal {
		s.Phase = PhaseMeme
		if s.MemeURL == "" {
			s.Phase = PhaseSearch
		}
	}
	c.session = s
	c.totalQuestions = len(s.Questions)
	return c
}

func (c *Controller) initialSession() Session {
	return Session{
		Phase:     PhaseSearch,
		Questions: []string{},
		Answers:   []string{},
		UpdatedAt: c.now(),
	}
}

// Snapshot returns a copy of the session.
func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.clone()
}

// Busy reports whether a generator request is in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Wait blocks until the in-flight request, if any, has settled.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

// SubmitPrompt starts generating the image and questions for prompt. The
// request outlives ctx's cancellation; only ctx's values are kept.
func (c *Controller) SubmitPrompt(ctx context.Context, prompt string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return ErrEmptyPrompt
	}

	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.session.Phase != PhaseSearch {
		c.mu.Unlock()
		return ErrWrongPhase
	}
	c.session.Phase = PhaseGenerating
	c.session.GeneratingMeme = false
	c.session.Prompt = prompt
	c.session.Error = ""
	c.session.UpdatedAt = c.now()
	c.busy = true
	c.inflight.Add(1)
	snap := c.session.clone()
	c.mu.Unlock()

	c.log.Infow("Generating game data", "prompt", prompt)
	c.settled(snap)
	go c.runGameData(context.WithoutCancel(ctx), prompt)
	return nil
}

func (c *Controller) runGameData(ctx context.Context, prompt string) {
	defer c.inflight.Done()

	data, err := c.gen.GenerateGameData(ctx, prompt)
	if err == nil {
		switch {
		case data.ImageURL == "":
			err = ErrNoImage
		case len(data.Questions) == 0:
			err = ErrNoQuestions
		}
	}

	c.mu.Lock()
	c.busy = false
	c.session.UpdatedAt = c.now()
	if err != nil {
		// The prompt is kept so the player can resubmit it.
		c.session.Phase = PhaseSearch
		c.session.Error = Message(err)
		c.log.Warnw("Game data generation failed", "prompt", prompt, "error", err)
	} else {
		c.session.ImageURL = data.ImageURL
		c.session.Questions = slices.Clone(data.Questions)
		c.session.Answers = []string{}
		c.session.CurrentQuestionIndex = 0
		c.session.Error = ""
		c.session.Phase = PhaseQuiz
		c.totalQuestions = len(data.Questions)
		c.log.Infow("Game data ready", "prompt", prompt, "questions", c.totalQuestions)
	}
	snap := c.session.clone()
	c.mu.Unlock()

	c.settled(snap)
}

// SubmitAnswer records an answer. The last answer starts the roast
// request.
func (c *Controller) SubmitAnswer(ctx context.Context, answer string) error {
	if strings.TrimSpace(answer) == "" {
		return ErrEmptyAnswer
	}

	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.session.Phase != PhaseQuiz {
		c.mu.Unlock()
		return ErrWrongPhase
	}

	c.session.Answers = append(c.session.Answers, answer)
	c.session.Error = ""
	c.session.UpdatedAt = c.now()

	if c.session.CurrentQuestionIndex < c.totalQuestions-1 {
		c.session.CurrentQuestionIndex++
		snap := c.session.clone()
		c.mu.Unlock()
		c.settled(snap)
		return nil
	}

	c.session.Phase = PhaseGenerating
	c.session.GeneratingMeme = true
	c.busy = true
	c.inflight.Add(1)
	questions := slices.Clone(c.session.Questions)
	answers := slices.Clone(c.session.Answers)
	snap := c.session.clone()
	c.mu.Unlock()

	c.log.Infow("Generating roast meme", "answers", len(answers))
	c.settled(snap)
	go c.runRoast(context.WithoutCancel(ctx), questions, answers)
	return nil
}

func (c *Controller) runRoast(ctx context.Context, questions, answers []string) {
	defer c.inflight.Done()

	memeURL, err := c.gen.GenerateRoastMeme(ctx, questions, answers)
	if err == nil && memeURL == "" {
		err = ErrNoMeme
	}

	c.mu.Lock()
	c.busy = false
	c.session.GeneratingMeme = false
	c.session.UpdatedAt = c.now()
	if err != nil {
		// Drop the final answer so it can be submitted again.
		c.session.Phase = PhaseQuiz
		c.session.Answers = c.session.Answers[:c.session.CurrentQuestionIndex]
		c.session.Error = Message(err)
		c.log.Warnw("Roast meme generation failed", "error", err)
	} else {
		c.session.MemeURL = memeURL
		c.session.Phase = PhaseMeme
		c.log.Infow("Roast meme ready")
	}
	snap := c.session.clone()
	c.mu.Unlock()

	c.settled(snap)
}

// Reset clears the session back to the initial search phase.
func (c *Controller) Reset() error {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	c.session = c.initialSession()
	c.totalQuestions = 0
	snap := c.session.clone()
	c.mu.Unlock()

	c.settled(snap)
	return nil
}

func (c *Controller) settled(s Session) {
	if c.onSettle != nil {
		c.onSettle(s)
	}
}
