// Package agent binds a role, instructions and tools to the shared runner.
//
// An Agent is a stateless template: every Run builds a fresh conversation,
// so one Agent may serve concurrent requests. A team is an Agent whose tools
// delegate to member agents.
package agent
