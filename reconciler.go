package portal

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/goliatone/go-errors"
)

const (
	// DashboardRedirect is where successful submissions send the user.
	DashboardRedirect = "/dashboard?from=profile"

	patientRedirectDelay = 1200 * time.Millisecond
	profileRedirectDelay = 1500 * time.Millisecond
	loginRedirectDelay   = 2 * time.Second
)

// Outcome is the result of a profile submission: the state to show, the
// message to flash, and where to navigate next.
type Outcome struct {
	User          *User
	Patient       *Patient
	Message       string
	Redirect      string
	RedirectDelay time.Duration
	LoginFallback bool
}

// Reconciler drives the profile completion workflow: it reconciles the local
// edit buffer and registration draft against the remote user and patient
// records, retrying along the endpoint fallback chains the API has required
// over time.
type Reconciler struct {
	session      *Session
	store        TokenStore
	client       *Client
	logger       Logger
	roleFallback func() string
}

func NewReconciler(session *Session) *Reconciler {
	return &Reconciler{
		session: session,
		store:   session.Store(),
		client:  session.Client(),
		logger:  defLogger{},
	}
}

func (r *Reconciler) WithLogger(logger Logger) *Reconciler {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// WithRoleFallback sets the role used when neither the resolved user nor the
// registration draft names one.
func (r *Reconciler) WithRoleFallback(fallback func() string) *Reconciler {
	r.roleFallback = fallback
	return r
}

// ProfileForm is the edit buffer for non-patient accounts.
type ProfileForm struct {
	Name      string `json:"name,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Specialty string `json:"specialty,omitempty"`
	Address   string `json:"address,omitempty"`
}

// FetchPatient loads the patient record owned by the current user, used to
// prefill the edit buffer. A 404 means no record exists yet and is not an
// error.
func (r *Reconciler) FetchPatient(ctx context.Context) (*Patient, error) {
	user := r.session.CurrentUser()
	if user == nil || user.ID == "" {
		return nil, ErrNoCredential
	}

	var res struct {
		Data *Patient `json:"data"`
		Patient
	}

	if err := r.client.Get(ctx, "/patients/user/"+user.ID, &res); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to load patient record")
	}

	patient := res.Data
	if patient == nil {
		patient = &res.Patient
	}

	if patient.Identifier() == "" && patient.FirstName == "" && patient.UserID == "" {
		return nil, nil
	}

	return patient, nil
}

// SubmitPatient validates the edit buffer and persists it. An identified
// record is patched in place; a new record is created for the current user.
// Either way, a single retry via the user-scoped patch endpoint is allowed
// before the failure surfaces.
func (r *Reconciler) SubmitPatient(ctx context.Context, form *Patient) (*Outcome, error) {
	user := r.session.CurrentUser()
	if user == nil || user.ID == "" {
		return nil, ErrNoCredential
	}

	payload := *form
	if payload.Address == nil {
		payload.Address = &Address{}
	}

	if err := payload.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, err.Error()).
			WithCode(errors.CodeBadRequest)
	}

	var attempts []Attempt[*Patient]

	if id := payload.Identifier(); id != "" {
		attempts = []Attempt[*Patient]{
			{
				Name: "patients.patch",
				Do: func(ctx context.Context) (*Patient, error) {
					saved := &Patient{}
					if err := r.client.Patch(ctx, "/patients/"+id, payload, saved); err != nil {
						return nil, err
					}
					return saved, nil
				},
				Continue: ContinueAlways,
			},
			{
				Name: "patients.patch-by-user",
				Do: func(ctx context.Context) (*Patient, error) {
					saved := &Patient{}
					if err := r.client.Patch(ctx, "/patients/user/"+user.ID, payload, saved); err != nil {
						return nil, err
					}
					return saved, nil
				},
			},
		}
	} else {
		payload.UserID = user.ID
		attempts = []Attempt[*Patient]{
			{
				Name: "patients.create",
				Do: func(ctx context.Context) (*Patient, error) {
					saved := &Patient{}
					if err := r.client.Post(ctx, "/patients", payload, saved); err != nil {
						return nil, err
					}
					return saved, nil
				},
				Continue: ContinueAlways,
			},
			{
				Name: "patients.patch-by-user",
				Do: func(ctx context.Context) (*Patient, error) {
					saved := &Patient{}
					if err := r.client.Patch(ctx, "/patients/user/"+user.ID, payload, saved); err != nil {
						return nil, err
					}
					return saved, nil
				},
			},
		}
	}

	saved, err := RunChain(ctx, r.logger, attempts)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation,
			APIMessage(err, "failed to save patient record"))
	}

	if err := r.store.ClearRegistration(ctx); err != nil {
		r.logger.Error("failed to clear registration draft: %s", err)
	}

	return &Outcome{
		User:          user,
		Patient:       saved,
		Message:       "Profil enregistré",
		Redirect:      DashboardRedirect,
		RedirectDelay: patientRedirectDelay,
	}, nil
}

// SubmitProfile persists the edit buffer for non-patient accounts.
func (r *Reconciler) SubmitProfile(ctx context.Context, form ProfileForm) (*Outcome, error) {
	user := r.session.CurrentUser()
	if user == nil || user.ID == "" {
		return nil, ErrNoCredential
	}

	saved, err := RunChain(ctx, r.logger, r.userPatchAttempts(user.ID, form))
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation,
			APIMessage(err, "failed to save profile"))
	}

	if saved.ID == "" {
		saved.ID = user.ID
	}

	if err := r.store.ClearRegistration(ctx); err != nil {
		r.logger.Error("failed to clear registration draft: %s", err)
	}

	return &Outcome{
		User:          saved,
		Message:       "Profil enregistré",
		Redirect:      DashboardRedirect,
		RedirectDelay: profileRedirectDelay,
	}, nil
}

func (r *Reconciler) userPatchAttempts(userID string, form ProfileForm) []Attempt[*User] {
	return []Attempt[*User]{
		{
			Name: "users.patch",
			Do: func(ctx context.Context) (*User, error) {
				saved := &User{}
				if err := r.client.Patch(ctx, "/users/"+userID, form, saved); err != nil {
					return nil, err
				}
				return saved, nil
			},
			Continue: ContinueOnStatus(http.StatusNotFound),
		},
		{
			Name: "users.patch-profile",
			Do: func(ctx context.Context) (*User, error) {
				saved := &User{}
				if err := r.client.Patch(ctx, "/users/profile", form, saved); err != nil {
					return nil, err
				}
				return saved, nil
			},
		},
	}
}

// CompleteRegistration finishes the signup hand-off: log in with the stored
// draft, create or patch the account's profile record for its role, then
// clear the draft. Any unrecoverable step degrades to a manual login
// redirect with the draft email preserved as hint. The draft password is
// scrubbed regardless of outcome.
func (r *Reconciler) CompleteRegistration(ctx context.Context, form *Patient) (*Outcome, error) {
	if current := r.session.CurrentUser(); current != nil {
		return nil, errors.New("already authenticated", errors.CategoryConflict).
			WithCode(errors.CodeConflict)
	}

	draft, err := r.store.Registration(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to read registration draft")
	}
	if draft == nil || draft.Email == "" {
		return nil, ErrNoRegistration
	}

	defer func() {
		if err := r.store.ScrubPassword(ctx); err != nil {
			r.logger.Error("failed to scrub draft password: %s", err)
		}
	}()

	user, err := r.session.Login(ctx, draft.Email, draft.Password)
	if err != nil || user == nil || user.ID == "" {
		if err != nil {
			r.logger.Warn("hand-off login failed: %s", err)
		}
		return r.loginFallback(draft.Email), nil
	}

	role := firstNonEmpty(user.PrimaryRole(), draft.Role, r.resolveRoleFallback())

	if role == RolePatient {
		payload := *form
		payload.UserID = user.ID

		saved, err := RunChain(ctx, r.logger, r.handoffPatientAttempts(user.ID, payload))
		if err != nil {
			r.logger.Warn("hand-off patient creation failed: %s", err)
			return r.loginFallback(draft.Email), nil
		}

		if err := r.store.ClearRegistration(ctx); err != nil {
			r.logger.Error("failed to clear registration draft: %s", err)
		}

		return &Outcome{
			User:          user,
			Patient:       saved,
			Message:       "Inscription terminée",
			Redirect:      DashboardRedirect,
			RedirectDelay: patientRedirectDelay,
		}, nil
	}

	profile := ProfileForm{
		Name:      draft.Name,
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Phone:     form.Phone,
	}

	saved, err := RunChain(ctx, r.logger, r.userPatchAttempts(user.ID, profile))
	if err != nil {
		r.logger.Warn("hand-off profile patch failed: %s", err)
		return r.loginFallback(draft.Email), nil
	}

	if err := r.store.ClearRegistration(ctx); err != nil {
		r.logger.Error("failed to clear registration draft: %s", err)
	}

	return &Outcome{
		User:          saved,
		Message:       "Inscription terminée",
		Redirect:      DashboardRedirect,
		RedirectDelay: profileRedirectDelay,
	}, nil
}

// handoffPatientAttempts is the create chain used right after signup, when
// the backend may or may not have pre-created the patient record.
func (r *Reconciler) handoffPatientAttempts(userID string, payload Patient) []Attempt[*Patient] {
	return []Attempt[*Patient]{
		{
			Name: "patients.create",
			Do: func(ctx context.Context) (*Patient, error) {
				saved := &Patient{}
				if err := r.client.Post(ctx, "/patients", payload, saved); err != nil {
					return nil, err
				}
				return saved, nil
			},
			Continue: ContinueOnStatus(http.StatusNotFound, http.StatusConflict),
		},
		{
			Name: "patients.patch-by-user",
			Do: func(ctx context.Context) (*Patient, error) {
				saved := &Patient{}
				if err := r.client.Patch(ctx, "/patients/user/"+userID, payload, saved); err != nil {
					return nil, err
				}
				return saved, nil
			},
			Continue: ContinueAlways,
		},
		{
			Name: "patients.put",
			Do: func(ctx context.Context) (*Patient, error) {
				saved := &Patient{}
				if err := r.client.Put(ctx, "/patients/"+userID, payload, saved); err != nil {
					return nil, err
				}
				return saved, nil
			},
		},
	}
}

// loginFallback is the degraded hand-off outcome: the account may exist, so
// the user is sent to manual login with their email preserved.
func (r *Reconciler) loginFallback(email string) *Outcome {
	return &Outcome{
		Message:       "Inscription enregistrée, veuillez vous connecter",
		Redirect:      "/login?email=" + url.QueryEscape(email) + "&profile_completed=true",
		RedirectDelay: loginRedirectDelay,
		LoginFallback: true,
	}
}

func (r *Reconciler) resolveRoleFallback() string {
	if r.roleFallback != nil {
		return r.roleFallback()
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
