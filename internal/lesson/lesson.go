// Package lesson runs the interactive flow: one query fans out to the GIF,
// concept and code agents, strictly in that order, one flyt node each.
package lesson

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"strings"

	"github.com/mark3labs/flyt"
	"github.com/petasbytes/concept-tutor/internal/agent"
	"github.com/petasbytes/concept-tutor/internal/telemetry"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// ErrEmptyQuery is returned for a blank query; no agent is invoked.
var ErrEmptyQuery = errors.New("lesson: empty query")

// EmptyQueryWarning is shown instead of running the lesson.
const EmptyQueryWarning = "Please enter a Python concept to learn about!"

const DefaultCodeLanguage = "Python"

// Runner is satisfied by *agent.Agent.
type Runner interface {
	Run(ctx context.Context, prompt string) (*agent.Response, error)
}

// Observer is told when each section starts and finishes.
type Observer interface {
	Loading(s *Section)
	Done(s *Section)
}

// ObserverFuncs adapts plain functions to Observer; nil fields are skipped.
type ObserverFuncs struct {
	OnLoading func(s *Section)
	OnDone    func(s *Section)
}

func (o ObserverFuncs) Loading(s *Section) {
	if o.OnLoading != nil {
		o.OnLoading(s)
	}
}

func (o ObserverFuncs) Done(s *Section) {
	if o.OnDone != nil {
		o.OnDone(s)
	}
}

// Kind names a lesson section.
type Kind string

const (
	KindGIF     Kind = "gif"
	KindConcept Kind = "concept"
	KindCode    Kind = "code"
)

// Section is one output pane.
type Section struct {
	Kind        Kind          `json:"kind"`
	Title       string        `json:"title"`
	LoadingText string        `json:"loading_text"`
	Prompt      string        `json:"prompt"`
	Markdown    string        `json:"markdown"`
	HTML        template.HTML `json:"html"`
	Error       string        `json:"error,omitempty"`
}

// Result holds the three sections in display order.
type Result struct {
	Query    string     `json:"query"`
	Sections []*Section `json:"sections"`
}

// Section returns the section of kind k, or nil.
func (r *Result) Section(k Kind) *Section {
	for _, s := range r.Sections {
		if s.Kind == k {
			return s
		}
	}
	return nil
}

// Options tune a Lesson. The zero value is usable.
type Options struct {
	// CodeLanguage fills the code prompt; defaults to Python.
	CodeLanguage string
	// Attempts per agent call; <= 1 means a single try.
	Attempts  int
	Logger    *slog.Logger
	Telemetry *telemetry.Sink
}

// Lesson holds the three worker agents. It keeps no per-query state and
// never caches answers.
type Lesson struct {
	gif, concept, code Runner
	opts               Options
	md                 goldmark.Markdown
}

func New(gif, concept, code Runner, opts Options) *Lesson {
	if strings.TrimSpace(opts.CodeLanguage) == "" {
		opts.CodeLanguage = DefaultCodeLanguage
	}
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Lesson{
		gif:     gif,
		concept: concept,
		code:    code,
		opts:    opts,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
		),
	}
}

// Sections returns the empty panes for q with titles, spinners and prompts filled in.
func (l *Lesson) Sections(q string) []*Section {
	return []*Section{
		{
			Kind:        KindGIF,
			Title:       "🎬 Visual Aid (GIF)",
			LoadingText: "Searching for relevant GIF...",
			Prompt:      fmt.Sprintf("Find a GIF to explain %s concept", q),
		},
		{
			Kind:        KindConcept,
			Title:       "🎯 Conceptual Explanation",
			LoadingText: "Fetching conceptual explanation...",
			Prompt:      fmt.Sprintf("Explain %s concept clearly with examples", q),
		},
		{
			Kind:        KindCode,
			Title:       "💻 Code Examples from GitHub",
			LoadingText: "Searching for GitHub code examples...",
			Prompt:      fmt.Sprintf("Find %s code examples for %s", l.opts.CodeLanguage, q),
		},
	}
}

// Run trims query and runs the GIF, concept and code agents in order. A
// failing agent marks its section and the next one still runs. obs may be nil.
func (l *Lesson) Run(ctx context.Context, query string, obs Observer) (*Result, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, ErrEmptyQuery
	}
	if obs == nil {
		obs = ObserverFuncs{}
	}
	ctx, turnID := telemetry.EnsureTurnID(ctx)
	l.opts.Telemetry.EmitQueryFeatures(ctx, "lesson", q)

	res := &Result{Query: q, Sections: l.Sections(q)}
	runners := []Runner{l.gif, l.concept, l.code}
	nodes := make([]flyt.Node, len(res.Sections))
	for i, s := range res.Sections {
		nodes[i] = &sectionNode{
			BaseNode: flyt.NewBaseNode(flyt.WithMaxRetries(l.opts.Attempts)),
			section:  s,
			runner:   runners[i],
			obs:      obs,
			render:   l.render,
		}
	}
	flow := flyt.NewFlow(nodes[0])
	for i := 0; i+1 < len(nodes); i++ {
		flow.Connect(nodes[i], flyt.DefaultAction, nodes[i+1])
	}

	shared := flyt.NewSharedStore()
	shared.Set(keyQuery, q)
	if err := flow.Run(ctx, shared); err != nil {
		return res, fmt.Errorf("lesson: %w", err)
	}

	failed := 0
	for _, s := range res.Sections {
		if s.Error != "" {
			failed++
		}
	}
	l.opts.Logger.Info("lesson finished", "turn_id", turnID, "sections", len(res.Sections), "failed", failed)
	return res, nil
}

func (l *Lesson) render(md string) template.HTML {
	var buf bytes.Buffer
	if err := l.md.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}
