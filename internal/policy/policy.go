// Package policy maps routes to their access requirements.
package policy

import (
	"fmt"
	"net/http"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Skotchmaster/account_service/internal/domain"
)

// Rule is the access requirement of one route. Public routes skip authentication.
// Empty Roles admit any authenticated caller; otherwise the caller's role must be listed.
// Roles are not ranked: SuperAdmin only passes where it is listed.
type Rule struct {
	Public bool          `yaml:"public"`
	Roles  []domain.Role `yaml:"roles"`
}

func (r Rule) Allows(role domain.Role) bool {
	return len(r.Roles) == 0 || slices.Contains(r.Roles, role)
}

// Table is keyed by "METHOD /route/pattern", the pattern being echo's registered path.
type Table map[string]Rule

func Key(method, path string) string {
	return strings.ToUpper(method) + " " + path
}

func (t Table) Lookup(method, path string) (Rule, bool) {
	r, ok := t[Key(method, path)]
	return r, ok
}

var (
	public     = Rule{Public: true}
	authed     = Rule{}
	admins     = Rule{Roles: []domain.Role{domain.RoleAdmin, domain.RoleSuperAdmin}}
	superAdmin = Rule{Roles: []domain.Role{domain.RoleSuperAdmin}}
)

func Default() Table {
	return Table{
		Key(http.MethodGet, "/"):             public,
		Key(http.MethodGet, "/health/live"):  public,
		Key(http.MethodGet, "/health/ready"): public,
		Key(http.MethodGet, "/metrics"):      public,

		Key(http.MethodPost, "/auth/register"):       public,
		Key(http.MethodPost, "/auth/login"):          public,
		Key(http.MethodPost, "/auth/refresh"):        public,
		Key(http.MethodGet, "/auth/profile"):         authed,
		Key(http.MethodPut, "/auth/revise-password"): authed,
		Key(http.MethodDelete, "/auth/delete-user"):  authed,

		Key(http.MethodPost, "/users"):            superAdmin,
		Key(http.MethodGet, "/users"):             admins,
		Key(http.MethodGet, "/users/:id"):         admins,
		Key(http.MethodPut, "/users/assign-role"): superAdmin,
		Key(http.MethodPut, "/users/:id"):         superAdmin,
		Key(http.MethodDelete, "/users/:id"):      superAdmin,
	}
}

type file struct {
	Routes map[string]Rule `yaml:"routes"`
}

// LoadFile returns base with the routes of a YAML file laid over it:
//
//	routes:
//	  "GET /users":
//	    roles: [SuperAdmin]
func LoadFile(path string, base Table) (Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse policy file: %w", err)
	}

	out := make(Table, len(base)+len(f.Routes))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range f.Routes {
		method, route, ok := strings.Cut(strings.TrimSpace(k), " ")
		if !ok || route == "" {
			return nil, fmt.Errorf("policy file: bad route key %q, want \"METHOD /path\"", k)
		}
		out[Key(method, strings.TrimSpace(route))] = v
	}
	return out, nil
}
