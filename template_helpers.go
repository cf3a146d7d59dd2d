package portal

import (
	"github.com/gofiber/template/django/v3"
	"github.com/goliatone/go-router"
)

var TemplateUserKey = "current_user"

// NewViewEngine builds a django view engine with the portal template helpers
// registered.
//
// Usage:
//
//	engine := portal.NewViewEngine("./templates")
//	app := fiber.New(fiber.Config{Views: engine})
func NewViewEngine(dir string) *django.Engine {
	engine := django.New(dir, ".html")

	for name, helper := range TemplateHelpers() {
		engine.AddFunc(name, helper)
	}

	return engine
}

// TemplateHelpers returns helper functions for portal templates.
//
// In templates:
//
//	{% if current_user %}
//	{{ current_user.roles.0|role_label }}
//	{% if current_user|has_role:"patient" %}
func TemplateHelpers() map[string]any {
	return map[string]any{
		"is_authenticated": isAuthenticated,
		"has_role":         templateHasRole,
		"role_label":       RoleLabel,
		"role_icon":        RoleIcon,

		// Role constants for easy template access
		"roles": map[string]string{
			"patient":    RolePatient,
			"doctor":     RoleDoctor,
			"nurse":      RoleNurse,
			"admin":      RoleAdmin,
			"pharmacist": RolePharmacist,
			"labtech":    RoleLabTech,
		},
	}
}

// TemplateHelpersWithUser returns template helpers with a specific user set
// as current_user.
func TemplateHelpersWithUser(user *User) map[string]any {
	helpers := TemplateHelpers()
	helpers[TemplateUserKey] = user
	return helpers
}

// TemplateHelpersWithRouter returns template helpers with the user extracted
// from router context, when middleware placed one there.
func TemplateHelpersWithRouter(ctx router.Context, userKey string) map[string]any {
	if userKey == "" {
		userKey = TemplateUserKey
	}

	helpers := TemplateHelpers()

	if user := ctx.Locals(userKey); user != nil {
		helpers[TemplateUserKey] = user
	}

	return helpers
}

// isAuthenticated checks if the provided user object is not nil
func isAuthenticated(user any) bool {
	if user == nil {
		return false
	}

	switch u := user.(type) {
	case *User:
		return u != nil
	case User:
		return true
	case map[string]any:
		// Handle JSON-converted user objects
		return len(u) > 0
	default:
		return false
	}
}

// templateHasRole checks if the user has the specified role
func templateHasRole(user any, role string) bool {
	switch u := user.(type) {
	case *User:
		return u.HasRole(role)
	case User:
		return u.HasRole(role)
	case map[string]any:
		// Handle JSON-converted user objects
		roles, ok := u["roles"].([]any)
		if !ok {
			return false
		}
		for _, r := range roles {
			if s, ok := r.(string); ok && s == role {
				return true
			}
		}
		return false
	default:
		return false
	}
}
