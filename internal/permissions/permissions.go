// Package permissions decides which role may call which API path, using a casbin RBAC model.
package permissions

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// PolicyRole, PolicyResource and PolicyAction index a casbin policy tuple.
const (
	PolicyRole = iota
	PolicyResource
	PolicyAction
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && regexMatch(r.act, p.act)
`

// defaultPolicy grants citizens their own API surface; admins inherit it and add the admin panel.
var defaultPolicy = [][]string{
	{RoleUser, "/api/reports", "(GET)|(POST)"},
	{RoleUser, "/api/reports/:id", "(GET)|(PUT)|(PATCH)|(DELETE)"},
	{RoleUser, "/api/reports/:id/image", "GET"},
	{RoleUser, "/api/profile", "(GET)|(DELETE)"},
	{RoleUser, "/api/profile/update", "(PUT)|(PATCH)"},
	{RoleUser, "/api/change-password", "POST"},
	{RoleUser, "/api/auth/logout", "POST"},
	{RoleAdmin, "/api/admin/*", "(GET)|(POST)|(PUT)"},
}

// Permissions wraps an enforcer whose policy is fixed after New.
type Permissions struct {
	enforcer *casbin.Enforcer
}

// New builds an enforcer holding the built-in policy.
func New() (*Permissions, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("load rbac model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}
	for _, p := range defaultPolicy {
		if _, err := e.AddPolicy(p[PolicyRole], p[PolicyResource], p[PolicyAction]); err != nil {
			return nil, fmt.Errorf("add policy %v: %w", p, err)
		}
	}
	if _, err := e.AddRoleForUser(RoleAdmin, RoleUser); err != nil {
		return nil, fmt.Errorf("add admin role inheritance: %w", err)
	}
	return &Permissions{enforcer: e}, nil
}

// IsAuthorized reports whether role may perform method on path.
func (p *Permissions) IsAuthorized(role, path, method string) bool {
	ok, err := p.enforcer.Enforce(role, path, method)
	return err == nil && ok
}
