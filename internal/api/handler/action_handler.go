package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/atelier/profile-portal/internal/core/action"
	"github.com/atelier/profile-portal/internal/core/domain"
	"github.com/atelier/profile-portal/internal/core/service"
)

// ActionHandler exposes sensitive actions as a two step protocol: opening an
// invocation returns the confirmation prompt, answering it runs or cancels.
type ActionHandler struct {
	orchestrator *action.Orchestrator
	registry     *action.Registry
	actions      *service.SensitiveActions
	logger       zerolog.Logger
}

func NewActionHandler(orch *action.Orchestrator, registry *action.Registry, actions *service.SensitiveActions, logger zerolog.Logger) *ActionHandler {
	return &ActionHandler{orchestrator: orch, registry: registry, actions: actions, logger: logger}
}

type invocationResponse struct {
	ID         string         `json:"invocation_id"`
	Action     string         `json:"action"`
	State      action.State   `json:"state"`
	Prompt     *action.Prompt `json:"prompt,omitempty"`
	Notice     *domain.Notice `json:"notice,omitempty"`
	RedirectTo string         `json:"redirect_to,omitempty"`
	Error      string         `json:"error,omitempty"`
}

func describe(inv *action.Invocation) invocationResponse {
	resp := invocationResponse{ID: inv.ID(), Action: inv.ActionName(), State: inv.State()}
	if p, ok := inv.Prompt(); ok {
		resp.Prompt = &p
	}
	if out, ok := inv.Outcome(); ok {
		resp.State = out.State
		resp.Notice = out.Notice
	}
	return resp
}

// Begin opens an invocation of the action named by :kind.
//
// @Summary      Start a sensitive action
// @Tags         actions
// @Produce      json
// @Security     BearerAuth
// @Param        kind  path      string  true  "become-artist or delete-profile"
// @Success      202   {object}  invocationResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /v1/actions/{kind} [post]
func (h *ActionHandler) Begin(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	a, err := h.actions.Build(c.Param("kind"), id)
	if err != nil {
		return err
	}
	inv, err := h.orchestrator.Begin(c.Request().Context(), id.UID, a, nil)
	if err != nil {
		return err
	}
	h.registry.Add(inv)
	return c.JSON(http.StatusAccepted, describe(inv))
}

// Get reports the state of an invocation, including the progress prompt while
// it is executing.
//
// @Summary      Invocation state
// @Tags         actions
// @Produce      json
// @Security     BearerAuth
// @Param        id  path      string  true  "Invocation id"
// @Success      200 {object}  invocationResponse
// @Failure      404 {object}  ErrorResponse
// @Router       /v1/actions/invocations/{id} [get]
func (h *ActionHandler) Get(c echo.Context) error {
	inv, err := h.invocation(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, describe(inv))
}

// Confirm runs the action and answers with the terminal notice.
//
// @Summary      Confirm a sensitive action
// @Tags         actions
// @Produce      json
// @Security     BearerAuth
// @Param        id  path      string  true  "Invocation id"
// @Success      200 {object}  invocationResponse
// @Failure      409 {object}  ErrorResponse
// @Failure      410 {object}  ErrorResponse
// @Failure      502 {object}  invocationResponse
// @Router       /v1/actions/invocations/{id}/confirm [post]
func (h *ActionHandler) Confirm(c echo.Context) error {
	inv, err := h.invocation(c)
	if err != nil {
		return err
	}

	ctx, route := withRouteRecorder(c.Request().Context())
	out, err := inv.Confirm(ctx)
	if err != nil {
		return err
	}

	resp := invocationResponse{
		ID:         inv.ID(),
		Action:     inv.ActionName(),
		State:      out.State,
		Notice:     out.Notice,
		RedirectTo: route.Route(),
	}
	if out.State == action.Failed {
		resp.Error = out.Err.Error()
		code, _, ok := StatusFor(out.Err)
		if !ok {
			code = http.StatusBadGateway
		}
		return c.JSON(code, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

// Decline cancels the invocation without any remote effect.
//
// @Summary      Decline a sensitive action
// @Tags         actions
// @Produce      json
// @Security     BearerAuth
// @Param        id  path      string  true  "Invocation id"
// @Success      200 {object}  invocationResponse
// @Failure      409 {object}  ErrorResponse
// @Failure      410 {object}  ErrorResponse
// @Router       /v1/actions/invocations/{id}/decline [post]
func (h *ActionHandler) Decline(c echo.Context) error {
	inv, err := h.invocation(c)
	if err != nil {
		return err
	}
	out, err := inv.Decline(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, invocationResponse{ID: inv.ID(), Action: inv.ActionName(), State: out.State})
}

func (h *ActionHandler) invocation(c echo.Context) (*action.Invocation, error) {
	id, err := caller(c)
	if err != nil {
		return nil, err
	}
	return h.registry.Get(c.Param("id"), id.UID)
}
