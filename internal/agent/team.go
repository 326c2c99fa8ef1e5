package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/petasbytes/concept-tutor/internal/metrics"
	"github.com/petasbytes/concept-tutor/tools"
)

// DelegateInput is the argument of every transfer_task_to_* tool.
type DelegateInput struct {
	TaskDescription string `json:"task_description" jsonschema_description:"A clear and concise description of the task the member should achieve."`
	ExpectedOutput  string `json:"expected_output" jsonschema_description:"The expected output from the member."`
}

var DelegateInputSchema = tools.GenerateSchema[DelegateInput]()

// DelegateToolName returns transfer_task_to_<member id in snake case>.
func DelegateToolName(member *Agent) string {
	return "transfer_task_to_" + slug(member.Name, '_')
}

// NewTeam returns a coordinating agent with one delegation tool per member.
// The team shares the first member's runner unless one is set afterwards.
func NewTeam(name string, model anthropic.Model, members []*Agent, instructions []string) *Agent {
	team := &Agent{
		Name:          name,
		Role:          "Coordinate the team members to answer the user's request.",
		Model:         model,
		Instructions:  instructions,
		Members:       members,
		ShowToolCalls: true,
		Markdown:      true,
	}
	for _, m := range members {
		team.Tools = append(team.Tools, delegateTool(m))
		if team.Runner == nil {
			team.Runner = m.Runner
		}
	}
	return team
}

func delegateTool(member *Agent) tools.ToolDefinition {
	desc := fmt.Sprintf("Use this function to transfer a task to %s.", member.Name)
	if member.Role != "" {
		desc += " " + member.Name + " role: " + member.Role + "."
	}
	return tools.ToolDefinition{
		Name:        DelegateToolName(member),
		Description: desc,
		InputSchema: DelegateInputSchema,
		Function: func(ctx context.Context, input json.RawMessage) (string, error) {
			var in DelegateInput
			if err := json.Unmarshal(input, &in); err != nil {
				return "", err
			}
			if strings.TrimSpace(in.TaskDescription) == "" {
				return "", tools.ToolError{Code: "ERR_INVALID_INPUT", Message: "task_description must not be empty"}
			}
			prompt := in.TaskDescription
			if strings.TrimSpace(in.ExpectedOutput) != "" {
				prompt += "\n\n<expected_output>\n" + in.ExpectedOutput + "\n</expected_output>"
			}
			resp, err := member.Run(ctx, prompt)
			if err != nil {
				return "", err
			}
			if u, ok := ctx.Value(memberUsageKey{}).(*memberUsage); ok {
				u.add(resp.Usage)
			}
			return resp.Content, nil
		},
	}
}

type memberUsageKey struct{}

// memberUsage accumulates the usage of delegated member runs for one team run.
type memberUsage struct {
	mu sync.Mutex
	u  metrics.Usage
}

func (m *memberUsage) add(u metrics.Usage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.u.Merge(u)
}

func (m *memberUsage) total() metrics.Usage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.u
}
