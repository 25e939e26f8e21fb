package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/triagedesk/backend/internal/models"
)

func TestPolicyMatrix(t *testing.T) {
	e, err := NewEnforcer()
	require.NoError(t, err)

	tests := []struct {
		role     string
		resource string
		action   string
		want     bool
	}{
		{"admin", ResourceAgents, ActionManage, true},
		{"admin", ResourceTrackers, ActionRead, true},
		{"admin", ResourceUsers, ActionManage, true},

		{"engineer", ResourceTickets, ActionWrite, true},
		{"engineer", ResourceChat, ActionWrite, true},
		{"engineer", ResourceRecommendations, ActionGenerate, true},
		{"engineer", ResourceLogs, ActionIngest, true},
		{"engineer", ResourceUsers, ActionManage, false},
		{"engineer", ResourceAgents, ActionManage, false},
		{"engineer", ResourceLLM, ActionRead, true},
		{"engineer", ResourceLLM, ActionManage, false},

		{"support", ResourceTickets, ActionWrite, true},
		{"support", ResourceChat, ActionWrite, true},
		{"support", ResourceLogs, ActionRead, true},
		{"support", ResourceLogs, ActionIngest, false},
		{"support", ResourceRecommendations, ActionGenerate, false},
		{"viewer", ResourceTickets, ActionRead, true},
		{"viewer", ResourceTrackers, ActionRead, false},

		{"guest", ResourceTickets, ActionRead, false},
		{"", ResourceTickets, ActionRead, false},
	}
	for _, tt := range tests {
		t.Run(tt.role+"/"+tt.resource+"/"+tt.action, func(t *testing.T) {
			got, err := e.Allowed(tt.role, tt.resource, tt.action)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGrant(t *testing.T) {
	e, err := NewEnforcer()
	require.NoError(t, err)

	allowed, err := e.Allowed("support", ResourceRecommendations, ActionGenerate)
	require.NoError(t, err)
	assert.False(t, allowed)

	require.NoError(t, e.Grant(models.RoleSupport, ResourceRecommendations, ActionGenerate))

	allowed, err = e.Allowed("support", ResourceRecommendations, ActionGenerate)
	require.NoError(t, err)
	assert.True(t, allowed)
}
