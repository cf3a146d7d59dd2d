package portal_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	portal "github.com/goliatone/go-clinic-portal"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestPortalController(session *portal.Session) *portal.PortalController {
	rec := portal.NewReconciler(session).WithLogger(quietLogger{})
	return portal.NewPortalController(
		portal.WithControllerSession(session),
		portal.WithControllerReconciler(rec),
		portal.WithControllerLogger(quietLogger{}),
	)
}

// allowFlashState registers tolerant expectations for the state the flash
// helpers may touch around a render or redirect.
func allowFlashState(ctx *router.MockContext) {
	ctx.On("Cookie", mock.Anything).Return().Maybe()
	ctx.On("Cookies", mock.Anything).Return("").Maybe()
	ctx.On("Cookies", mock.Anything, mock.Anything).Return("").Maybe()
	ctx.On("Locals", mock.Anything, mock.Anything).Return(nil).Maybe()
	ctx.On("LocalsMerge", mock.Anything, mock.Anything).Return(map[string]any{}).Maybe()
}

func TestLoginShowRendersEmailHint(t *testing.T) {
	api := newFakeAPI(t)
	session, _ := newTestSession(api)
	ctrl := newTestPortalController(session)

	ctx := router.NewMockContext()
	ctx.QueriesM["email"] = "ada@clinic.fr"

	var viewCtx router.ViewContext
	ctx.On("Render", ctrl.Views.Login, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		viewCtx = args.Get(1).(router.ViewContext)
	})

	err := ctrl.LoginShow(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ada@clinic.fr", viewCtx["email"])
	ctx.AssertExpectations(t)
}

func TestLoginPostSetsCookieAndRedirectsToDashboard(t *testing.T) {
	api := newFakeAPI(t)
	api.respond("POST /auth/login", http.StatusOK, map[string]any{"token": "tok-login"})
	api.respond("GET /auth/me", http.StatusOK, map[string]any{
		"id": "u1", "email": "ada@clinic.fr", "roles": []string{"medecin"},
	})

	session, _ := newTestSession(api)
	ctrl := newTestPortalController(session)

	ctx := router.NewMockContext()
	ctx.On("Context").Return(context.Background())
	ctx.On("Bind", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		payload := args.Get(0).(*portal.LoginRequest)
		payload.Email = "ada@clinic.fr"
		payload.Password = "s3cret"
	})
	ctx.On("Cookie", mock.MatchedBy(func(c *router.Cookie) bool {
		return c.Name == portal.CredentialKey &&
			c.Value == "tok-login" &&
			c.HTTPOnly &&
			c.Expires.After(time.Now())
	})).Return()
	ctx.On("Redirect", ctrl.Routes.Dashboard, []int{router.StatusSeeOther}).Return(nil)

	err := ctrl.LoginPost(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"POST /auth/login", "GET /auth/me"}, api.callLog())
	ctx.AssertExpectations(t)
}

func TestLoginPostHalfOpenRedirectsToProfile(t *testing.T) {
	api := newFakeAPI(t)
	api.respond("POST /auth/login", http.StatusOK, map[string]any{"token": "tok-1"})
	api.respond("GET /auth/me", http.StatusInternalServerError, nil)
	api.respond("GET /users/me", http.StatusInternalServerError, nil)

	session, _ := newTestSession(api)
	ctrl := newTestPortalController(session)

	ctx := router.NewMockContext()
	ctx.On("Context").Return(context.Background())
	ctx.On("Bind", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		payload := args.Get(0).(*portal.LoginRequest)
		payload.Email = "ada@clinic.fr"
		payload.Password = "s3cret"
	})
	// The credential held even though no profile resolved.
	ctx.On("Cookie", mock.MatchedBy(func(c *router.Cookie) bool {
		return c.Name == portal.CredentialKey && c.Value == "tok-1"
	})).Return()
	ctx.On("Redirect", ctrl.Routes.Profile, []int{router.StatusSeeOther}).Return(nil)

	err := ctrl.LoginPost(ctx)
	require.NoError(t, err)
	ctx.AssertExpectations(t)
}

func TestLoginPostValidationRerendersForm(t *testing.T) {
	api := newFakeAPI(t)
	session, _ := newTestSession(api)
	ctrl := newTestPortalController(session)

	ctx := router.NewMockContext()
	ctx.On("Bind", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		payload := args.Get(0).(*portal.LoginRequest)
		payload.Email = "not-an-email"
	})

	var viewCtx router.ViewContext
	ctx.On("Render", ctrl.Views.Login, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		viewCtx = args.Get(1).(router.ViewContext)
	})

	err := ctrl.LoginPost(ctx)
	require.NoError(t, err)

	fields, ok := viewCtx["validation"].(map[string]string)
	require.True(t, ok, "expected a field error map")
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")
	assert.Empty(t, api.callLog(), "invalid payload must not reach the network")
	ctx.AssertExpectations(t)
}

func TestLoginPostRejectedRerendersWithError(t *testing.T) {
	api := newFakeAPI(t)
	api.respond("POST /auth/login", http.StatusUnauthorized, map[string]string{
		"message": "Identifiants invalides",
	})

	session, _ := newTestSession(api)
	ctrl := newTestPortalController(session)

	ctx := router.NewMockContext()
	ctx.On("Context").Return(context.Background())
	ctx.On("Bind", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		payload := args.Get(0).(*portal.LoginRequest)
		payload.Email = "ada@clinic.fr"
		payload.Password = "wrong"
	})

	var viewCtx router.ViewContext
	ctx.On("Render", ctrl.Views.Login, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		viewCtx = args.Get(1).(router.ViewContext)
	})

	err := ctrl.LoginPost(ctx)
	require.NoError(t, err)

	errs, ok := viewCtx["errors"].(map[string]string)
	require.True(t, ok)
	assert.Contains(t, errs["authentication"], "Identifiants invalides")
	ctx.AssertExpectations(t)
}

func TestLogOutClearsCookieAndSession(t *testing.T) {
	api := newFakeAPI(t)
	session, store := loggedInSession(t, api, map[string]any{
		"id": "u1", "email": "ada@clinic.fr",
	})
	ctrl := newTestPortalController(session)

	ctx := router.NewMockContext()
	ctx.On("Context").Return(context.Background())
	ctx.On("Cookie", mock.MatchedBy(func(c *router.Cookie) bool {
		return c.Name == portal.CredentialKey &&
			c.Value == "" &&
			c.Expires.Before(time.Now())
	})).Return()
	ctx.On("Redirect", "/", []int{router.StatusTemporaryRedirect}).Return(nil)

	err := ctrl.LogOut(ctx)
	require.NoError(t, err)

	assert.Nil(t, session.CurrentUser())
	token, storeErr := store.Token(context.Background())
	require.NoError(t, storeErr)
	assert.Empty(t, token)
	ctx.AssertExpectations(t)
}

func TestProfileShowRedirectsWhenSignedOut(t *testing.T) {
	api := newFakeAPI(t)
	session, _ := newTestSession(api)
	ctrl := newTestPortalController(session)

	ctx := router.NewMockContext()
	ctx.On("Context").Return(context.Background())
	ctx.On("Redirect", ctrl.Routes.Login, []int{router.StatusSeeOther}).Return(nil)

	err := ctrl.ProfileShow(ctx)
	require.NoError(t, err)
	ctx.AssertExpectations(t)
}

func TestProfilePostRunsRegistrationHandOff(t *testing.T) {
	api := newFakeAPI(t)
	api.respond("POST /auth/login", http.StatusOK, map[string]any{"token": "tok-1"})
	api.respond("GET /auth/me", http.StatusOK, map[string]any{
		"id": "u1", "email": "new@clinic.fr", "roles": []string{"patient"},
	})
	api.respond("POST /patients", http.StatusCreated, map[string]any{
		"id": "pat-1", "firstName": "Ada", "lastName": "Lovelace", "user": "u1",
	})

	session, store := newTestSession(api)
	ctx0 := context.Background()
	require.NoError(t, store.SetRegistration(ctx0, &portal.Registration{
		Email:    "new@clinic.fr",
		Password: "s3cret",
		Role:     "patient",
	}))

	ctrl := newTestPortalController(session)

	ctx := router.NewMockContext()
	allowFlashState(ctx)
	ctx.On("Context").Return(context.Background())
	ctx.On("Bind", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		payload := args.Get(0).(*portal.ProfilePayload)
		payload.FirstName = "Ada"
		payload.LastName = "Lovelace"
	})

	var redirect string
	ctx.On("Redirect", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		redirect = args.String(0)
	}).Maybe()
	ctx.On("Redirect", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		redirect = args.String(0)
	}).Maybe()

	err := ctrl.ProfilePost(ctx)
	require.NoError(t, err)
	assert.Equal(t, portal.DashboardRedirect, redirect)

	log := api.callLog()
	assert.Contains(t, log, "POST /auth/login", "no user means the sign-up hand-off runs")
	assert.Contains(t, log, "POST /patients")

	draft, draftErr := store.Registration(ctx0)
	require.NoError(t, draftErr)
	assert.Nil(t, draft)
}

func TestProfilePostSubmitsPatientRecord(t *testing.T) {
	api := newFakeAPI(t)
	session, _ := loggedInSession(t, api, map[string]any{
		"id": "u1", "email": "p@clinic.fr", "roles": []string{"patient"},
	})
	api.respond("POST /patients", http.StatusCreated, map[string]any{
		"id": "pat-1", "firstName": "Ada", "lastName": "Lovelace", "user": "u1",
	})

	ctrl := newTestPortalController(session)

	ctx := router.NewMockContext()
	allowFlashState(ctx)
	ctx.On("Context").Return(context.Background())
	ctx.On("Bind", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		payload := args.Get(0).(*portal.ProfilePayload)
		payload.FirstName = "Ada"
		payload.LastName = "Lovelace"
	})

	var redirect string
	ctx.On("Redirect", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		redirect = args.String(0)
	}).Maybe()
	ctx.On("Redirect", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		redirect = args.String(0)
	}).Maybe()

	err := ctrl.ProfilePost(ctx)
	require.NoError(t, err)
	assert.Equal(t, portal.DashboardRedirect, redirect)
	assert.Equal(t, []string{"POST /patients"}, api.callLog(), "patient accounts take the patient save path")
}

func TestProfilePostPatchesStaffProfile(t *testing.T) {
	api := newFakeAPI(t)
	session, _ := loggedInSession(t, api, map[string]any{
		"id": "u1", "email": "doc@clinic.fr", "roles": []string{"medecin"},
	})
	api.respond("PATCH /users/u1", http.StatusOK, map[string]any{
		"id": "u1", "email": "doc@clinic.fr", "firstName": "Grace",
	})

	ctrl := newTestPortalController(session)

	ctx := router.NewMockContext()
	allowFlashState(ctx)
	ctx.On("Context").Return(context.Background())
	ctx.On("Bind", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		payload := args.Get(0).(*portal.ProfilePayload)
		payload.FirstName = "Grace"
		payload.LastName = "Hopper"
		payload.Specialty = "cardiologie"
	})

	var redirect string
	ctx.On("Redirect", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		redirect = args.String(0)
	}).Maybe()
	ctx.On("Redirect", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		redirect = args.String(0)
	}).Maybe()

	err := ctrl.ProfilePost(ctx)
	require.NoError(t, err)
	assert.Equal(t, portal.DashboardRedirect, redirect)
	assert.Equal(t, []string{"PATCH /users/u1"}, api.callLog(), "staff accounts take the user patch path")
	assert.NotContains(t, api.callLog(), "POST /patients")
}
