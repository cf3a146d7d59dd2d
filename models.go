package portal

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/nyaruka/phonenumbers"
)

// User is the authenticated account as the API reports it, or a degraded
// projection recovered from token claims when the profile endpoints are
// unreachable.
type User struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	Name      string   `json:"name"`
	Roles     []string `json:"roles,omitempty"`
	FirstName string   `json:"firstName,omitempty"`
	LastName  string   `json:"lastName,omitempty"`
	Phone     string   `json:"phone,omitempty"`
	Specialty string   `json:"specialty,omitempty"`
}

// PrimaryRole returns the first role, or empty when the account has none.
func (u *User) PrimaryRole() string {
	if u == nil || len(u.Roles) == 0 {
		return ""
	}
	return u.Roles[0]
}

// HasRole reports whether the user holds any of the given roles.
func (u *User) HasRole(roles ...string) bool {
	if u == nil || len(roles) == 0 {
		return false
	}
	for _, want := range roles {
		for _, have := range u.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// ProfileComplete reports whether the account carries real profile fields
// beyond what token claims can recover.
func (u *User) ProfileComplete() bool {
	if u == nil {
		return false
	}
	return u.FirstName != "" && u.LastName != ""
}

// Registration is the pre-authentication draft stored between the signup
// step and the profile completion step.
type Registration struct {
	ID       string `json:"id,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
	Name     string `json:"name,omitempty"`
	Role     string `json:"role,omitempty"`
}

// Scrub removes the password while keeping email and name as login hints.
func (r *Registration) Scrub() {
	if r != nil {
		r.Password = ""
	}
}

func (r Registration) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

type Address struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	ZipCode string `json:"zipCode,omitempty"`
	Country string `json:"country,omitempty"`
}

type EmergencyContact struct {
	Name         string `json:"name,omitempty"`
	Relationship string `json:"relationship,omitempty"`
	Phone        string `json:"phone,omitempty"`
}

type Medication struct {
	Name string `json:"name,omitempty"`
}

type MedicalInfo struct {
	BloodType          string       `json:"bloodType,omitempty"`
	Allergies          []string     `json:"allergies,omitempty"`
	ChronicDiseases    []string     `json:"chronicDiseases,omitempty"`
	CurrentMedications []Medication `json:"currentMedications,omitempty"`
	MedicalHistory     []string     `json:"medicalHistory,omitempty"`
}

type Insurance struct {
	Provider     string `json:"provider,omitempty"`
	PolicyNumber string `json:"policyNumber,omitempty"`
	ValidUntil   string `json:"validUntil,omitempty"`
}

type Preferences struct {
	PreferredLanguage  string `json:"preferredLanguage,omitempty"`
	EmailNotifications bool   `json:"emailNotifications,omitempty"`
	SMSNotifications   bool   `json:"smsNotifications,omitempty"`
}

type Consent struct {
	DataSharing      bool `json:"dataSharing,omitempty"`
	TreatmentConsent bool `json:"treatmentConsent,omitempty"`
}

// Patient is the clinical record owned by a patient account. The API has
// served both `id` and `_id` over time, so both are mapped.
type Patient struct {
	ID               string            `json:"id,omitempty"`
	MongoID          string            `json:"_id,omitempty"`
	UserID           string            `json:"user,omitempty"`
	FirstName        string            `json:"firstName,omitempty"`
	LastName         string            `json:"lastName,omitempty"`
	DateOfBirth      string            `json:"dateOfBirth,omitempty"`
	Gender           string            `json:"gender,omitempty"`
	Phone            string            `json:"phone,omitempty"`
	Address          *Address          `json:"address,omitempty"`
	EmergencyContact *EmergencyContact `json:"emergencyContact,omitempty"`
	MedicalInfo      *MedicalInfo      `json:"medicalInfo,omitempty"`
	Insurance        *Insurance        `json:"insurance,omitempty"`
	Preferences      *Preferences      `json:"preferences,omitempty"`
	Consent          *Consent          `json:"consent,omitempty"`
}

// Identifier returns whichever record id the API populated.
func (p *Patient) Identifier() string {
	if p == nil {
		return ""
	}
	if p.ID != "" {
		return p.ID
	}
	return p.MongoID
}

func (p Patient) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.FirstName, validation.Required),
		validation.Field(&p.LastName, validation.Required),
		validation.Field(&p.Gender, validation.In("male", "female", "other")),
		validation.Field(&p.Phone, validation.By(validPhone)),
	)
}

func validPhone(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}

	num, err := phonenumbers.Parse(s, "FR")
	if err != nil {
		return fmt.Errorf("must be a parseable phone number")
	}

	if !phonenumbers.IsValidNumber(num) {
		return fmt.Errorf("must be a valid phone number")
	}

	return nil
}
