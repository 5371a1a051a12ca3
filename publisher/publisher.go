// Package publisher runs one deck request end to end: plan or compile the
// outline, validate the template, assemble the result.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"auto_ppt_generator/config"
	"auto_ppt_generator/outline"
	"auto_ppt_generator/planner"
	"auto_ppt_generator/pptx"
)

// Source names the path that produced an outline.
type Source string

const (
	SourceLLM       Source = "llm"
	SourceHeuristic Source = "heuristic"
)

// ErrTemplateTooLarge is returned for uploads over Limits.MaxFileMB.
var ErrTemplateTooLarge = errors.New("template exceeds the upload size limit")

// Request describes the content of one deck. APIKey is used for the
// planner call only and is never logged or stored.
type Request struct {
	Text         string
	Guidance     string
	IncludeNotes bool

	APIKey   string
	Provider string
	Model    string
	BaseURL  string
}

// Deck is a finished presentation and how it was made.
type Deck struct {
	Outline outline.Outline
	Source  Source
	Result  *pptx.Result
	Profile *pptx.TemplateProfile
}

// LLMFactory builds a planner client for one request.
type LLMFactory func(planner.LLMSettings) (planner.LLMClient, error)

// Publisher orchestrates outline planning and deck assembly.
type Publisher struct {
	cfg    config.Config
	logger *zap.Logger
	newLLM LLMFactory
}

// Option customizes a Publisher.
type Option func(*Publisher)

// WithLLMFactory replaces the OpenAI-compatible client constructor.
func WithLLMFactory(f LLMFactory) Option {
	return func(p *Publisher) { p.newLLM = f }
}

// New creates a Publisher. A nil logger discards output.
func New(cfg config.Config, logger *zap.Logger, opts ...Option) (*Publisher, error) {
	if err := cfg.Limits.Validate(); err != nil {
		return nil, fmt.Errorf("invalid limits: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Publisher{cfg: cfg, logger: logger, newLLM: planner.NewLLM}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Outline returns a clamped outline for the request. With an API key the
// planner is tried first; any planner failure falls back silently to the
// deterministic compiler. It never fails.
func (p *Publisher) Outline(ctx context.Context, req Request) (outline.Outline, Source) {
	limits := p.cfg.Limits
	text := outline.ClampText(req.Text, limits.MaxTextChars)

	if strings.TrimSpace(req.APIKey) != "" {
		o, err := p.plan(ctx, req, text)
		if err == nil {
			return outline.Normalize(o, req.IncludeNotes, limits), SourceLLM
		}
		// Provider errors may echo request details; log the kind only.
		p.logger.Warn("planner failed, using heuristic outline", zap.String("error_type", fmt.Sprintf("%T", err)))
	}

	o := outline.Build(text, req.Guidance, req.IncludeNotes, limits)
	return outline.Normalize(o, req.IncludeNotes, limits), SourceHeuristic
}

func (p *Publisher) plan(ctx context.Context, req Request, text string) (outline.Outline, error) {
	settings := planner.LLMSettings{
		Provider: firstNonEmpty(req.Provider, p.cfg.LLM.Provider),
		Model:    firstNonEmpty(req.Model, p.cfg.LLM.Model),
		APIKey:   req.APIKey,
		BaseURL:  firstNonEmpty(req.BaseURL, p.cfg.LLM.BaseURL),
	}
	llm, err := p.newLLM(settings)
	if err != nil {
		return outline.Outline{}, err
	}
	pl, err := planner.New(llm)
	if err != nil {
		return outline.Outline{}, err
	}
	p.logger.Debug("planning outline", zap.String("provider", settings.Provider), zap.String("model", settings.Model))
	return pl.Plan(ctx, planner.Request{Text: text, Guidance: req.Guidance, IncludeNotes: req.IncludeNotes})
}

// Build plans the outline and validates the template concurrently, then
// assembles the deck. Template errors are *pptx.UnsafeArchiveError or
// *pptx.InvalidTemplateError.
func (p *Publisher) Build(ctx context.Context, req Request, template []byte) (*Deck, error) {
	limits := p.cfg.Limits
	if int64(len(template)) > limits.FileLimitBytes() {
		return nil, ErrTemplateTooLarge
	}

	deck := &Deck{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		deck.Outline, deck.Source = p.Outline(gctx, req)
		return nil
	})
	g.Go(func() error {
		a, err := pptx.Open(template, limits)
		if err != nil {
			return err
		}
		deck.Profile, err = pptx.Introspect(a)
		return err
	})
	if err := g.Wait(); err != nil {
		p.logger.Info("template rejected", zap.Error(err))
		return nil, err
	}
	p.logger.Debug("template profile",
		zap.Int("layouts", len(deck.Profile.Layouts)),
		zap.Int("media", len(deck.Profile.Media)),
		zap.String("major_font", deck.Profile.Fonts.Major))

	res, err := pptx.Assemble(deck.Outline, deck.Profile)
	if err != nil {
		return nil, fmt.Errorf("assemble deck: %w", err)
	}
	deck.Result = res
	for _, f := range res.Fallbacks {
		p.logger.Debug("layout fallback", zap.Stringer("fallback", f))
	}
	p.logger.Info("deck built",
		zap.String("source", string(deck.Source)),
		zap.Int("slides", res.Slides),
		zap.Int("pictures", res.Pictures),
		zap.Int("fallbacks", len(res.Fallbacks)),
		zap.Int("bytes", len(res.Data)))
	return deck, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
