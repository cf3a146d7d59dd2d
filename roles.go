package portal

// Role is the slug the clinic API uses for account roles.
type Role = string

const (
	RolePatient    Role = "patient"
	RoleDoctor     Role = "medecin"
	RoleNurse      Role = "infirmier"
	RoleAdmin      Role = "admin"
	RolePharmacist Role = "pharmacien"
	RoleLabTech    Role = "laborantin"
)

var roleLabels = map[Role]string{
	RolePatient:    "Patient",
	RoleDoctor:     "Médecin",
	RoleNurse:      "Infirmier(ère)",
	RoleAdmin:      "Administrateur",
	RolePharmacist: "Pharmacien",
	RoleLabTech:    "Laborantin",
}

var roleIcons = map[Role]string{
	RolePatient:    "🧑‍🦱",
	RoleDoctor:     "👨‍⚕️",
	RoleNurse:      "👩‍⚕️",
	RoleAdmin:      "👔",
	RolePharmacist: "💊",
	RoleLabTech:    "🧪",
}

// RoleLabel returns the display label for a role slug, falling back to the
// slug itself for unknown roles.
func RoleLabel(role Role) string {
	if label, ok := roleLabels[role]; ok {
		return label
	}
	return role
}

// RoleIcon returns the display icon for a role slug.
func RoleIcon(role Role) string {
	if icon, ok := roleIcons[role]; ok {
		return icon
	}
	return "👤"
}

// SpecialtyRole reports whether the role carries a medical specialty field.
func SpecialtyRole(role Role) bool {
	return role == RoleDoctor || role == RoleNurse
}

// KnownRoles lists every role slug the portal understands.
func KnownRoles() []Role {
	return []Role{
		RolePatient,
		RoleDoctor,
		RoleNurse,
		RoleAdmin,
		RolePharmacist,
		RoleLabTech,
	}
}
