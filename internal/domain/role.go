package domain

import (
	"fmt"
	"strings"
)

// Role is a named bundle of permissions held by a workspace member
type Role string

// Role constants
const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Roles lists every role, highest rank first
var Roles = []Role{RoleOwner, RoleAdmin, RoleEditor, RoleViewer}

// ParseRole converts a string into a Role
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

// Valid reports whether r is one of the four known roles
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// Rank orders roles; higher outranks lower. Unknown roles rank zero.
func (r Role) Rank() int {
	switch r {
	case RoleOwner:
		return 4
	case RoleAdmin:
		return 3
	case RoleEditor:
		return 2
	case RoleViewer:
		return 1
	}
	return 0
}

// Outranks reports whether r is strictly above other
func (r Role) Outranks(other Role) bool {
	return r.Rank() > other.Rank()
}

func (r Role) String() string {
	return string(r)
}

// Category groups related capabilities
type Category string

const (
	CategoryWorkflows     Category = "workflows"
	CategoryAgents        Category = "agents"
	CategoryCollaboration Category = "collaboration"
	CategoryAdmin         Category = "admin"
)

// Action names one capability within a category, e.g. admin.manageUsers
type Action struct {
	Category   Category
	Capability string
}

func (a Action) String() string {
	return string(a.Category) + "." + a.Capability
}

// Known actions
var (
	ActionWorkflowsCreate  = Action{CategoryWorkflows, "create"}
	ActionWorkflowsRead    = Action{CategoryWorkflows, "read"}
	ActionWorkflowsUpdate  = Action{CategoryWorkflows, "update"}
	ActionWorkflowsDelete  = Action{CategoryWorkflows, "delete"}
	ActionWorkflowsShare   = Action{CategoryWorkflows, "share"}
	ActionWorkflowsExecute = Action{CategoryWorkflows, "execute"}

	ActionAgentsCreate    = Action{CategoryAgents, "create"}
	ActionAgentsRead      = Action{CategoryAgents, "read"}
	ActionAgentsUpdate    = Action{CategoryAgents, "update"}
	ActionAgentsDelete    = Action{CategoryAgents, "delete"}
	ActionAgentsConfigure = Action{CategoryAgents, "configure"}

	ActionCollaborationInvite = Action{CategoryCollaboration, "invite"}
	ActionCollaborationManage = Action{CategoryCollaboration, "manage"}
	ActionCollaborationExport = Action{CategoryCollaboration, "export"}

	ActionAdminManageUsers    = Action{CategoryAdmin, "manageUsers"}
	ActionAdminManageRoles    = Action{CategoryAdmin, "manageRoles"}
	ActionAdminViewAnalytics  = Action{CategoryAdmin, "viewAnalytics"}
	ActionAdminSystemSettings = Action{CategoryAdmin, "systemSettings"}
)

// Actions lists every known action in matrix order
var Actions = []Action{
	ActionWorkflowsCreate, ActionWorkflowsRead, ActionWorkflowsUpdate,
	ActionWorkflowsDelete, ActionWorkflowsShare, ActionWorkflowsExecute,
	ActionAgentsCreate, ActionAgentsRead, ActionAgentsUpdate,
	ActionAgentsDelete, ActionAgentsConfigure,
	ActionCollaborationInvite, ActionCollaborationManage, ActionCollaborationExport,
	ActionAdminManageUsers, ActionAdminManageRoles,
	ActionAdminViewAnalytics, ActionAdminSystemSettings,
}

// ParseAction parses "category.capability". Capability matching is case-insensitive.
func ParseAction(s string) (Action, error) {
	category, capability, ok := strings.Cut(strings.TrimSpace(s), ".")
	if !ok {
		return Action{}, fmt.Errorf("%w: action %q must be category.capability", ErrInvalidInput, s)
	}
	for _, a := range Actions {
		if strings.EqualFold(string(a.Category), category) && strings.EqualFold(a.Capability, capability) {
			return a, nil
		}
	}
	return Action{}, fmt.Errorf("%w: unknown action %q", ErrInvalidInput, s)
}

// WorkflowPermissions covers workflow capabilities
type WorkflowPermissions struct {
	Create  bool `json:"create"`
	Read    bool `json:"read"`
	Update  bool `json:"update"`
	Delete  bool `json:"delete"`
	Share   bool `json:"share"`
	Execute bool `json:"execute"`
}

// AgentPermissions covers agent capabilities
type AgentPermissions struct {
	Create    bool `json:"create"`
	Read      bool `json:"read"`
	Update    bool `json:"update"`
	Delete    bool `json:"delete"`
	Configure bool `json:"configure"`
}

// CollaborationPermissions covers invite and sharing capabilities
type CollaborationPermissions struct {
	Invite bool `json:"invite"`
	Manage bool `json:"manage"`
	Export bool `json:"export"`
}

// AdminPermissions covers workspace administration capabilities
type AdminPermissions struct {
	ManageUsers    bool `json:"manageUsers"`
	ManageRoles    bool `json:"manageRoles"`
	ViewAnalytics  bool `json:"viewAnalytics"`
	SystemSettings bool `json:"systemSettings"`
}

// PermissionMatrix is the full set of grants for a role. It is a value type;
// callers receive copies and cannot alter the registry.
type PermissionMatrix struct {
	Workflows     WorkflowPermissions      `json:"workflows"`
	Agents        AgentPermissions         `json:"agents"`
	Collaboration CollaborationPermissions `json:"collaboration"`
	Admin         AdminPermissions         `json:"admin"`
}

// Allows returns the grant for a single action. Unknown actions are denied.
func (m PermissionMatrix) Allows(a Action) bool {
	switch a {
	case ActionWorkflowsCreate:
		return m.Workflows.Create
	case ActionWorkflowsRead:
		return m.Workflows.Read
	case ActionWorkflowsUpdate:
		return m.Workflows.Update
	case ActionWorkflowsDelete:
		return m.Workflows.Delete
	case ActionWorkflowsShare:
		return m.Workflows.Share
	case ActionWorkflowsExecute:
		return m.Workflows.Execute
	case ActionAgentsCreate:
		return m.Agents.Create
	case ActionAgentsRead:
		return m.Agents.Read
	case ActionAgentsUpdate:
		return m.Agents.Update
	case ActionAgentsDelete:
		return m.Agents.Delete
	case ActionAgentsConfigure:
		return m.Agents.Configure
	case ActionCollaborationInvite:
		return m.Collaboration.Invite
	case ActionCollaborationManage:
		return m.Collaboration.Manage
	case ActionCollaborationExport:
		return m.Collaboration.Export
	case ActionAdminManageUsers:
		return m.Admin.ManageUsers
	case ActionAdminManageRoles:
		return m.Admin.ManageRoles
	case ActionAdminViewAnalytics:
		return m.Admin.ViewAnalytics
	case ActionAdminSystemSettings:
		return m.Admin.SystemSettings
	}
	return false
}

// PermissionsFor returns the matrix for a role
func PermissionsFor(r Role) (PermissionMatrix, error) {
	switch r {
	case RoleOwner:
		return ownerPermissions(), nil
	case RoleAdmin:
		return adminPermissions(), nil
	case RoleEditor:
		return editorPermissions(), nil
	case RoleViewer:
		return viewerPermissions(), nil
	}
	return PermissionMatrix{}, fmt.Errorf("%w: %q", ErrUnknownRole, string(r))
}

// The matrices are built by functions rather than package variables so no
// caller can mutate a shared table.

func ownerPermissions() PermissionMatrix {
	return PermissionMatrix{
		Workflows:     WorkflowPermissions{Create: true, Read: true, Update: true, Delete: true, Share: true, Execute: true},
		Agents:        AgentPermissions{Create: true, Read: true, Update: true, Delete: true, Configure: true},
		Collaboration: CollaborationPermissions{Invite: true, Manage: true, Export: true},
		Admin:         AdminPermissions{ManageUsers: true, ManageRoles: true, ViewAnalytics: true, SystemSettings: true},
	}
}

func adminPermissions() PermissionMatrix {
	return PermissionMatrix{
		Workflows:     WorkflowPermissions{Create: true, Read: true, Update: true, Delete: true, Share: true, Execute: true},
		Agents:        AgentPermissions{Create: true, Read: true, Update: true, Delete: true, Configure: true},
		Collaboration: CollaborationPermissions{Invite: true, Manage: true, Export: true},
		Admin:         AdminPermissions{ManageUsers: true, ManageRoles: true, ViewAnalytics: true, SystemSettings: false},
	}
}

func editorPermissions() PermissionMatrix {
	return PermissionMatrix{
		Workflows:     WorkflowPermissions{Create: true, Read: true, Update: true, Delete: false, Share: true, Execute: true},
		Agents:        AgentPermissions{Create: true, Read: true, Update: true, Delete: false, Configure: true},
		Collaboration: CollaborationPermissions{Invite: true, Manage: false, Export: true},
		Admin:         AdminPermissions{},
	}
}

func viewerPermissions() PermissionMatrix {
	return PermissionMatrix{
		Workflows: WorkflowPermissions{Read: true},
		Agents:    AgentPermissions{Read: true},
	}
}
