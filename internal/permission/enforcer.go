// Package permission decides which role may act on which resource
package permission

import (
	"fmt"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/triagedesk/backend/internal/models"
)

// Resources
const (
	ResourceTickets         = "tickets"
	ResourceChat            = "chat"
	ResourceRecommendations = "recommendations"
	ResourceLogs            = "logs"
	ResourceUsers           = "users"
	ResourceTrackers        = "trackers"
	ResourceAgents          = "agents"
	ResourceLLM             = "llm"
)

// Actions
const (
	ActionRead     = "read"
	ActionWrite    = "write"
	ActionGenerate = "generate"
	ActionIngest   = "ingest"
	ActionManage   = "manage"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && keyMatch(r.obj, p.obj) && (r.act == p.act || p.act == "*")
`

var defaultPolicies = [][]string{
	{string(models.RoleAdmin), "*", "*"},

	{string(models.RoleEngineer), ResourceTickets, ActionRead},
	{string(models.RoleEngineer), ResourceTickets, ActionWrite},
	{string(models.RoleEngineer), ResourceChat, ActionRead},
	{string(models.RoleEngineer), ResourceChat, ActionWrite},
	{string(models.RoleEngineer), ResourceRecommendations, ActionRead},
	{string(models.RoleEngineer), ResourceRecommendations, ActionGenerate},
	{string(models.RoleEngineer), ResourceLogs, ActionRead},
	{string(models.RoleEngineer), ResourceLogs, ActionIngest},
	{string(models.RoleEngineer), ResourceUsers, ActionRead},
	{string(models.RoleEngineer), ResourceLLM, ActionRead},

	{string(models.RoleSupport), ResourceTickets, ActionRead},
	{string(models.RoleSupport), ResourceTickets, ActionWrite},
	{string(models.RoleSupport), ResourceChat, ActionRead},
	{string(models.RoleSupport), ResourceChat, ActionWrite},
	{string(models.RoleSupport), ResourceRecommendations, ActionRead},
	{string(models.RoleSupport), ResourceLogs, ActionRead},
	{string(models.RoleSupport), ResourceUsers, ActionRead},
}

// Enforcer answers role/resource/action questions from an in-memory policy
type Enforcer struct {
	enforcer *casbin.Enforcer
	mu       sync.RWMutex
}

func NewEnforcer() (*Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse casbin model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}
	if _, err := enforcer.AddPolicies(defaultPolicies); err != nil {
		return nil, fmt.Errorf("failed to load default policy: %w", err)
	}
	return &Enforcer{enforcer: enforcer}, nil
}

// Allowed reports whether role may perform action on resource. Role names
// are normalised first, so "viewer" is checked as support.
func (e *Enforcer) Allowed(role, resource, action string) (bool, error) {
	canonical, ok := models.ParseRole(role)
	if !ok {
		return false, nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	allowed, err := e.enforcer.Enforce(string(canonical), resource, action)
	if err != nil {
		return false, fmt.Errorf("permission check failed: %w", err)
	}
	return allowed, nil
}

// Grant adds a policy at runtime
func (e *Enforcer) Grant(role models.Role, resource, action string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.enforcer.AddPolicy(string(role), resource, action); err != nil {
		return fmt.Errorf("failed to add policy: %w", err)
	}
	return nil
}
