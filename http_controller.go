package portal

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
)

// RegisterPortalRoutes mounts the login/profile pages on the host app.
func RegisterPortalRoutes[T any](app router.Router[T], opts ...PortalControllerOption) {

	controller := NewPortalController(opts...)

	app.
		Get(controller.Routes.Login,
			controller.LoginShow,
		).
		SetName("sign-in.get")

	app.
		Post(
			controller.Routes.Login,
			controller.LoginPost,
		).
		SetName("sign-in.post")

	app.Get(controller.Routes.Logout, controller.LogOut).SetName("sign-out.get")

	app.Get(controller.Routes.Profile, controller.ProfileShow).
		SetName("profile.get")
	app.Post(controller.Routes.Profile, controller.ProfilePost).
		SetName("profile.post")
}

type PortalControllerRoutes struct {
	Login     string
	Logout    string
	Profile   string
	Dashboard string
}

type PortalControllerViews struct {
	Login   string
	Profile string
}

type PortalController struct {
	Debug          bool
	Logger         Logger
	Session        *Session
	Reconciler     *Reconciler
	Routes         *PortalControllerRoutes
	Views          *PortalControllerViews
	CookieName     string
	CookieDuration time.Duration
	ErrorHandler   router.ErrorHandler
}

type PortalControllerOption func(*PortalController) *PortalController

func NewPortalController(opts ...PortalControllerOption) *PortalController {
	c := &PortalController{
		Logger:         defLogger{},
		ErrorHandler:   defaultErrHandler,
		CookieName:     CredentialKey,
		CookieDuration: 24 * time.Hour,
		Routes: &PortalControllerRoutes{
			Login:     "/login",
			Logout:    "/logout",
			Profile:   "/profile",
			Dashboard: "/dashboard",
		},
		Views: &PortalControllerViews{
			Login:   "login",
			Profile: "profile",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Session == nil {
		panic("Missing Session in portal controller...")
	}

	if c.Reconciler == nil {
		panic("Missing Reconciler in portal controller...")
	}

	return c
}

func WithControllerSession(session *Session) PortalControllerOption {
	return func(c *PortalController) *PortalController {
		c.Session = session
		return c
	}
}

func WithControllerReconciler(reconciler *Reconciler) PortalControllerOption {
	return func(c *PortalController) *PortalController {
		c.Reconciler = reconciler
		return c
	}
}

func WithControllerLogger(logger Logger) PortalControllerOption {
	return func(c *PortalController) *PortalController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerDebug(debug bool) PortalControllerOption {
	return func(c *PortalController) *PortalController {
		c.Debug = debug
		return c
	}
}

func WithControllerCookie(name string, duration time.Duration) PortalControllerOption {
	return func(c *PortalController) *PortalController {
		if name != "" {
			c.CookieName = name
		}
		if duration > 0 {
			c.CookieDuration = duration
		}
		return c
	}
}

func (a *PortalController) LoginShow(ctx router.Context) error {
	return ctx.Render(a.Views.Login, router.ViewContext{
		"errors": nil,
		"record": nil,
		"email":  ctx.Query("email", ""),
	})
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *PortalController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.Login, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if a.Debug {
		fmt.Println("======= PORTAL LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("===========================")
	}

	user, err := a.Session.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		a.Logger.Error("login error: %s", err)
		return ctx.Render(a.Views.Login, router.ViewContext{
			"errors": map[string]string{
				"authentication": err.Error(),
			},
			"record": payload,
		})
	}

	token := a.Session.Token()
	if token == "" {
		return ctx.Render(a.Views.Login, router.ViewContext{
			"errors": map[string]string{
				"authentication": "Authentication Error",
			},
			"record": payload,
		})
	}

	a.setCookieToken(ctx, token, a.CookieDuration)

	// Half-open session: the credential held but no profile resolved yet.
	// Send the user to the profile page so a fresh bootstrap can retry.
	if user == nil {
		return ctx.Redirect(a.Routes.Profile, router.StatusSeeOther)
	}

	return ctx.Redirect(a.Routes.Dashboard, router.StatusSeeOther)
}

func (a *PortalController) LogOut(ctx router.Context) error {
	a.Session.Logout(ctx.Context())
	a.cookieDel(ctx, a.CookieName)
	return ctx.Redirect("/", router.StatusTemporaryRedirect)
}

func (a *PortalController) ProfileShow(ctx router.Context) error {
	user := a.Session.Bootstrap(ctx.Context())

	draft, err := a.Session.Store().Registration(ctx.Context())
	if err != nil {
		a.Logger.Error("failed to read registration draft: %s", err)
	}

	if user == nil && draft == nil {
		return ctx.Redirect(a.Routes.Login, router.StatusSeeOther)
	}

	viewCtx := router.ViewContext{
		"errors":  nil,
		"user":    user,
		"draft":   draft,
		"patient": nil,
	}

	if user.HasRole(RolePatient) {
		patient, err := a.Reconciler.FetchPatient(ctx.Context())
		if err != nil {
			a.Logger.Warn("failed to prefill patient record: %s", err)
		} else {
			viewCtx["patient"] = patient
		}
	}

	return ctx.Render(a.Views.Profile, viewCtx)
}

// ProfilePayload is the profile form payload, shared by the patient and the
// staff variants of the page.
type ProfilePayload struct {
	FirstName   string `form:"first_name" json:"firstName"`
	LastName    string `form:"last_name" json:"lastName"`
	Phone       string `form:"phone" json:"phone"`
	DateOfBirth string `form:"date_of_birth" json:"dateOfBirth"`
	Gender      string `form:"gender" json:"gender"`
	Specialty   string `form:"specialty" json:"specialty"`
	Street      string `form:"street" json:"street"`
	City        string `form:"city" json:"city"`
	ZipCode     string `form:"zip_code" json:"zipCode"`
	Country     string `form:"country" json:"country"`
}

func (p ProfilePayload) patient() *Patient {
	return &Patient{
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Phone:       p.Phone,
		DateOfBirth: p.DateOfBirth,
		Gender:      p.Gender,
		Address: &Address{
			Street:  p.Street,
			City:    p.City,
			ZipCode: p.ZipCode,
			Country: p.Country,
		},
	}
}

func (p ProfilePayload) profile() ProfileForm {
	return ProfileForm{
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Phone:     p.Phone,
		Specialty: p.Specialty,
	}
}

func (a *PortalController) ProfilePost(ctx router.Context) error {
	payload := new(ProfilePayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("profile parse payload: %s", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Profile, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
		})
	}

	if a.Debug {
		fmt.Println("======= PORTAL PROFILE ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=============================")
	}

	outcome, err := a.dispatch(ctx, payload)
	if err != nil {
		a.Logger.Error("profile submit error: %s", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error saving profile",
		}).Render(a.Views.Profile, router.ViewContext{
			"record": payload,
			"errors": []string{err.Error()},
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": outcome.Message,
	}).Redirect(outcome.Redirect, fiber.StatusSeeOther)
}

// dispatch picks the reconciliation path: signup hand-off when only a draft
// exists, patient submission for patient accounts, profile patch otherwise.
func (a *PortalController) dispatch(ctx router.Context, payload *ProfilePayload) (*Outcome, error) {
	user := a.Session.CurrentUser()

	if user == nil {
		return a.Reconciler.CompleteRegistration(ctx.Context(), payload.patient())
	}

	if user.HasRole(RolePatient) {
		return a.Reconciler.SubmitPatient(ctx.Context(), payload.patient())
	}

	return a.Reconciler.SubmitProfile(ctx.Context(), payload.profile())
}

func (a *PortalController) setCookieToken(c router.Context, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     a.CookieName,
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
	})
}

func (a *PortalController) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
	})
}

// FormatValidationErrorToMap flattens an ozzo validation error into a
// field/message map for templates.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	if verrs, ok := err.(validation.Errors); ok {
		for field, ferr := range verrs {
			out[field] = ferr.Error()
		}
		return out
	}

	out["validation"] = err.Error()
	return out
}

func defaultErrHandler(c router.Context, err error) error {
	return c.Render("errors/500", router.ViewContext{
		"message": err.Error(),
	})
}
