package portal

import "context"

// CompleteRegistrationMessage asks the reconciler to finish a signup
// hand-off outside the HTTP layer.
type CompleteRegistrationMessage struct {
	Form      Patient
	OnOutcome func(*Outcome)
}

func (m CompleteRegistrationMessage) Type() string {
	return "portal.registration.complete"
}

// CompleteRegistrationHandler executes the registration hand-off for a
// message-driven host app.
type CompleteRegistrationHandler struct {
	reconciler *Reconciler
}

func NewCompleteRegistrationHandler(reconciler *Reconciler) *CompleteRegistrationHandler {
	return &CompleteRegistrationHandler{reconciler: reconciler}
}

func (h *CompleteRegistrationHandler) Execute(ctx context.Context, event CompleteRegistrationMessage) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	outcome, err := h.reconciler.CompleteRegistration(ctx, &event.Form)
	if err != nil {
		return err
	}

	if event.OnOutcome != nil {
		event.OnOutcome(outcome)
	}

	return nil
}
