package persona

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/help-center/backend/internal/model/article"
)

// Role classifies a visitor for content personalization.
type Role string

const (
	RoleEmployee   Role = "employee"
	RoleAdmin      Role = "admin"
	RoleBookkeeper Role = "bookkeeper"
	RoleVendor     Role = "vendor"
	RoleExploring  Role = "exploring"
)

// Label returns the display name of the role.
func (r Role) Label() string {
	switch r {
	case RoleEmployee:
		return "Employee"
	case RoleAdmin:
		return "Admin"
	case RoleBookkeeper:
		return "Bookkeeper"
	case RoleVendor:
		return "Vendor"
	case RoleExploring:
		return "Exploring"
	}
	return ""
}

// Audience maps a role onto the article audience tag it reads. Exploring has none.
func (r Role) Audience() (article.Audience, bool) {
	switch r {
	case RoleEmployee:
		return article.AudienceEmployee, true
	case RoleAdmin:
		return article.AudienceAdmin, true
	case RoleBookkeeper:
		return article.AudienceBookkeeper, true
	case RoleVendor:
		return article.AudienceVendor, true
	case RoleExploring:
		return "", false
	}
	return "", false
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r.Label() != ""
}

// ParseRole converts raw input into a Role.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", raw)
	}
	return role, nil
}

// Plan is the visitor's subscription tier.
type Plan string

const (
	PlanFree       Plan = "free"
	PlanPlus       Plan = "plus"
	PlanEnterprise Plan = "enterprise"
)

// Label returns the display name of the plan, empty for an unset plan.
func (p Plan) Label() string {
	switch p {
	case PlanFree:
		return "Free"
	case PlanPlus:
		return "Ramp Plus"
	case PlanEnterprise:
		return "Enterprise"
	}
	return ""
}

// ParsePlan converts raw input into a Plan. Empty input is an unset plan.
func ParsePlan(raw string) (Plan, error) {
	plan := Plan(strings.ToLower(strings.TrimSpace(raw)))
	if plan == "" {
		return "", nil
	}
	if plan.Label() == "" {
		return "", fmt.Errorf("unknown plan %q", raw)
	}
	return plan, nil
}

// Company is the organization an identification service matched to a visitor.
type Company struct {
	Name     string `json:"name"`
	Industry string `json:"industry,omitempty"`
	Size     string `json:"size,omitempty"`
	Domain   string `json:"domain,omitempty"`
	Logo     string `json:"logo,omitempty"`
}

// Persona is the visitor classification used to personalize shown content.
type Persona struct {
	Role        Role   `json:"role"`
	Plan        Plan   `json:"plan,omitempty"`
	Company     string `json:"company,omitempty"`
	Industry    string `json:"industry,omitempty"`
	CompanySize string `json:"companySize,omitempty"`
	Identified  bool   `json:"identified,omitempty"`
	HasSelected bool   `json:"hasSelected,omitempty"`
}

// Default is the unset persona every visitor starts with.
func Default() Persona {
	return Persona{Role: RoleExploring}
}

// FromCompany builds the persona assigned after a successful automatic identification.
func FromCompany(c Company) Persona {
	return Persona{
		Role:        RoleEmployee,
		Plan:        PlanPlus,
		Company:     c.Name,
		Industry:    c.Industry,
		CompanySize: c.Size,
		Identified:  true,
	}
}

// IsExploring reports whether the persona is still unset.
func (p Persona) IsExploring() bool {
	return p.Role == RoleExploring
}

// Validate checks the enumerated fields.
func (p Persona) Validate() error {
	if !p.Role.Valid() {
		return fmt.Errorf("unknown role %q", p.Role)
	}
	if p.Plan != "" && p.Plan.Label() == "" {
		return fmt.Errorf("unknown plan %q", p.Plan)
	}
	return nil
}

// Phase tracks where a visitor is in the identification lifecycle.
type Phase string

const (
	PhaseUnset          Phase = "unset"
	PhaseIdentifying    Phase = "identifying"
	PhaseManualSelected Phase = "manual-selected"
	PhaseAutoIdentified Phase = "auto-identified"
)

// PhaseOf derives the resting phase implied by a stored persona.
func PhaseOf(p Persona) Phase {
	switch {
	case p.HasSelected:
		return PhaseManualSelected
	case p.Identified:
		return PhaseAutoIdentified
	default:
		return PhaseUnset
	}
}

// Option is one choice offered by the persona selector.
type Option struct {
	Role        Role   `json:"role"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Options returns the selector choices in display order.
func Options() []Option {
	return []Option{
		{Role: RoleEmployee, Title: "I'm a Customer", Description: "Access help for employees, admins, and bookkeepers", Icon: "building-2"},
		{Role: RoleVendor, Title: "I'm a Vendor", Description: "Get help with payments and the vendor portal", Icon: "store"},
		{Role: RoleExploring, Title: "I'm Exploring Ramp", Description: "Browse all help content without filters", Icon: "compass"},
	}
}
