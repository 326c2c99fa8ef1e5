package lesson

import (
	"context"
	"html/template"

	"github.com/mark3labs/flyt"
	"github.com/petasbytes/concept-tutor/internal/agent"
)

const keyQuery = "query"

// outcome is what a section node's Exec hands to Post.
type outcome struct {
	resp *agent.Response
	err  error
}

// sectionNode runs one agent for one pane. Nodes are built per Run and never
// shared between flows.
type sectionNode struct {
	*flyt.BaseNode
	section *Section
	runner  Runner
	obs     Observer
	render  func(string) template.HTML
}

func (n *sectionNode) Prep(ctx context.Context, shared *flyt.SharedStore) (any, error) {
	n.obs.Loading(n.section)
	return n.section.Prompt, nil
}

func (n *sectionNode) Exec(ctx context.Context, prepResult any) (any, error) {
	resp, err := n.runner.Run(ctx, prepResult.(string))
	if err != nil {
		return nil, err
	}
	return outcome{resp: resp}, nil
}

// ExecFallback keeps the flow going after the last failed attempt.
func (n *sectionNode) ExecFallback(prepResult any, err error) (any, error) {
	return outcome{err: err}, nil
}

func (n *sectionNode) Post(ctx context.Context, shared *flyt.SharedStore, prepResult, execResult any) (flyt.Action, error) {
	out := execResult.(outcome)
	if out.err != nil {
		n.section.Error = out.err.Error()
	} else {
		n.section.Markdown = out.resp.Content
		n.section.HTML = n.render(out.resp.Content)
	}
	shared.Set(string(n.section.Kind), n.section)
	n.obs.Done(n.section)
	return flyt.DefaultAction, nil
}
