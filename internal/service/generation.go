package service

import (
	"context"
	"errors"
	"log"
	"time"
	"unicode/utf8"

	"github.com/cloo-solutions/docsrag/internal/domain"
	"golang.org/x/time/rate"
)

const ellipsis = "..."

var errEmptyCompletion = errors.New("model response carried no text")

// Model is a generative model endpoint.
type Model interface {
	Complete(ctx context.Context, system, prompt string) (*domain.Completion, error)
}

// GenerationConfig fixes the retry schedule and input ceiling of a GenerationClient.
type GenerationConfig struct {
	MaxAttempts       int
	Backoff           time.Duration
	MaxPromptChars    int
	RequestsPerSecond float64
	Burst             int
}

// DefaultGenerationConfig provides sane defaults for generation.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		MaxAttempts:       3,
		Backoff:           600 * time.Millisecond,
		MaxPromptChars:    40000,
		RequestsPerSecond: 5,
		Burst:             2,
	}
}

type sleepFunc func(ctx context.Context, d time.Duration) error

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type generationState int

const (
	stateAttempt generationState = iota
	stateBackoff
	stateSucceeded
	stateFailed
)

// GenerationClient calls a Model with truncation, a shared rate limit and a
// linear retry schedule. Retry state lives on the stack of each Generate call.
type GenerationClient struct {
	model   Model
	cfg     GenerationConfig
	limiter *rate.Limiter
	sleep   sleepFunc
}

// NewGenerationClient creates a new GenerationClient instance
func NewGenerationClient(model Model, cfg GenerationConfig) *GenerationClient {
	def := DefaultGenerationConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.Backoff < 0 {
		cfg.Backoff = 0
	}
	if cfg.MaxPromptChars <= 0 {
		cfg.MaxPromptChars = def.MaxPromptChars
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	return &GenerationClient{
		model:   model,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, cfg.Burst),
		sleep:   sleepContext,
	}
}

// Generate returns the model's answer for p. A sleep of Backoff times the
// attempt number follows every failed attempt; once MaxAttempts have failed the
// last cause is returned inside a GenerationError.
func (g *GenerationClient) Generate(ctx context.Context, p Prompt) (string, error) {
	p = fitPrompt(p, g.cfg.MaxPromptChars)
	system, prompt := p.System, p.User()

	var (
		state   = stateAttempt
		attempt int
		answer  string
		lastErr error
	)
	for {
		switch state {
		case stateAttempt:
			attempt++
			answer, lastErr = g.attempt(ctx, system, prompt)
			if lastErr == nil {
				state = stateSucceeded
				continue
			}
			if ctx.Err() != nil {
				return "", domain.NewGenerationError(attempt, lastErr)
			}
			log.Printf("generation: attempt %d/%d failed: %v", attempt, g.cfg.MaxAttempts, lastErr)
			state = stateBackoff

		case stateBackoff:
			if err := g.sleep(ctx, g.cfg.Backoff*time.Duration(attempt)); err != nil {
				return "", domain.NewGenerationError(attempt, err)
			}
			if attempt >= g.cfg.MaxAttempts {
				state = stateFailed
			} else {
				state = stateAttempt
			}

		case stateSucceeded:
			return answer, nil

		case stateFailed:
			return "", domain.NewGenerationError(attempt, lastErr)
		}
	}
}

func (g *GenerationClient) attempt(ctx context.Context, system, prompt string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}
	completion, err := g.model.Complete(ctx, system, prompt)
	if err != nil {
		return "", err
	}
	text, ok := completion.AnswerText()
	if !ok {
		return "", errEmptyCompletion
	}
	return text, nil
}

// fitPrompt keeps the system instruction and user message within limit
// runes. The tail of the context is cut first, so the question always
// reaches the model. The system instruction is shortened only when it and
// the question alone exceed the limit.
func fitPrompt(p Prompt, limit int) Prompt {
	systemLen := utf8.RuneCountInString(p.System)
	questionLen := utf8.RuneCountInString(p.Question)
	fixed := systemLen + questionLen
	if fixed+utf8.RuneCountInString(p.Context) <= limit {
		return p
	}

	if remaining := limit - fixed; remaining > len(ellipsis) {
		p.Context = truncateRunes(p.Context, remaining)
		return p
	}
	p.Context = ""
	if fixed <= limit {
		return p
	}

	if remaining := limit - questionLen; remaining > len(ellipsis) {
		p.System = truncateRunes(p.System, remaining)
		return p
	}
	p.System = ""
	p.Question = truncateRunes(p.Question, limit)
	return p
}

// truncateRunes shortens s to at most limit runes, replacing the tail with an
// ellipsis when anything is cut.
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	if limit <= len(ellipsis) {
		return string(runes[:limit])
	}
	return string(runes[:limit-len(ellipsis)]) + ellipsis
}
