package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gleeworld/gleeworld/core"
	"github.com/gleeworld/gleeworld/core/member"
)

var (
	errMemberNotFoundInCtx = errors.New("member object not found in echo.Context")
	errNoPermsToSetRoles   = "not enough rights to set these roles"
)

type memberApi struct {
	svc      *member.Service
	auth     *Auth
	validate *validator.Validate
}

func registerMemberAPI(g *echo.Group, auth *Auth, limit echo.MiddlewareFunc, svc *member.Service, validate *validator.Validate) {
	api := memberApi{svc: svc, auth: auth, validate: validate}

	mg := g.Group("/members")

	// un-authed endpoints
	mg.POST("/login", api.login, limit)
	mg.POST("/password-reset", api.resetPassword, limit)
	mg.POST("/password-reset-confirm", api.confirmPasswordReset, limit)

	// authed endpoints
	ag := mg.Group("", auth.Middleware())
	ag.POST("/token-refresh", api.refreshToken)
	ag.GET("/me", api.me)
	ag.POST("/change-password", api.changePassword)
	ag.GET("/exec-board", api.queryExecBoard)
	ag.GET("/exec-positions", api.queryExecPositions)
	ag.POST("/register", api.create, adminMiddleware())
	ag.GET("", api.query, managerMiddleware())
	ag.DELETE("", api.destroyMultiple, adminMiddleware())
	ag.GET("/roles", api.queryRoles, adminMiddleware())

	// detail endpoints
	dg := ag.Group("/:id", ctxMemberOrManagerMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy, adminMiddleware())
}

// Handlers

func (api *memberApi) create(ctx echo.Context) error {
	var data member.NewMember
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMember")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	// ctxMember cannot set a role > their own max role
	ctxMember, err := getContextMember(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	if member.MaxRolePriority(data.Roles) > member.MaxRolePriority(ctxMember.Roles) {
		return core.NewValidationError(nil, core.FieldError{Field: "roles", Error: errNoPermsToSetRoles})
	}

	m, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating member")
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *memberApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := api.auth.authenticate(ctx, data.Email, data.Password, api.svc)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := api.auth.GenerateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	m, err := api.svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "finding member by ID")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, ForcePasswordChange: m.ForcePasswordChange})
}

func (api *memberApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email)
	if !(err == nil || errors.Cause(err) == member.ErrNotFound) {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *memberApi) confirmPasswordReset(ctx echo.Context) error {
	var data member.ResetPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *memberApi) me(ctx echo.Context) error {
	m, err := getContextMember(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *memberApi) changePassword(ctx echo.Context) error {
	var data member.ChangePassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangePassword")
	}
	m, err := getContextMember(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	if _, err = api.svc.ChangePassword(ctx.Request().Context(), m, data); err != nil {
		return errors.Wrap(err, "changing password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been changed."})
}

func (api *memberApi) query(ctx echo.Context) error {
	filter := new(member.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []member.Member{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	members, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying members")
	}
	if members == nil {
		members = []member.Member{}
	}
	return ctx.JSON(http.StatusOK, members)
}

func (api *memberApi) retrieve(ctx echo.Context) error {
	m, ok := ctx.Get("object").(member.Member)
	if !ok {
		return errors.Wrap(errMemberNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *memberApi) update(ctx echo.Context) error {
	m, ok := ctx.Get("object").(member.Member)
	if !ok {
		return errors.Wrap(errMemberNotFoundInCtx, "retrieving object from context")
	}

	var data member.UpdateMember
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateMember")
	}

	ctxMember, err := getContextMember(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	if !ctxMember.IsAdmin() {
		// `IsActive`, `Roles`, `Status` and `Email` can only be changed by admin
		if data.IsActive != nil || data.Roles != nil || data.Status != "" || data.Email != "" {
			return errHttpForbidden
		}
	}
	if err := data.Validate(m, api.validate, api.svc); err != nil {
		return err
	}

	// ctxMember cannot set a role > their own max role
	if member.MaxRolePriority(data.Roles) > member.MaxRolePriority(ctxMember.Roles) {
		return core.NewValidationError(nil, core.FieldError{Field: "roles", Error: errNoPermsToSetRoles})
	}

	m, err = api.svc.Update(ctx.Request().Context(), m, data)
	if err != nil {
		return errors.Wrap(err, "updating member")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *memberApi) destroy(ctx echo.Context) error {
	m, ok := ctx.Get("object").(member.Member)
	if !ok {
		return errors.Wrap(errMemberNotFoundInCtx, "retrieving object from context")
	}

	// ctxMember cannot delete themselves
	ctxMember, err := getContextMember(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	if m.ID == ctxMember.ID {
		return errHttpForbidden
	}
	if member.MaxRolePriority(m.Roles) > member.MaxRolePriority(ctxMember.Roles) {
		return errHttpForbidden
	}

	if err := api.svc.Delete(ctx.Request().Context(), ctxMember, m.ID); err != nil {
		return errors.Wrap(err, "deleting member")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *memberApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if len(query.IDs) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}

	// ctxMember cannot delete themselves
	ctxMember, err := getContextMember(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	if core.StringInSlice(ctxMember.ID, query.IDs) {
		return errHttpForbidden
	}

	if err := api.svc.Delete(ctx.Request().Context(), ctxMember, query.IDs...); err != nil {
		return errors.Wrap(err, "deleting members")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *memberApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, member.Roles)
}

func (api *memberApi) queryExecPositions(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, member.ExecPositions)
}

func (api *memberApi) queryExecBoard(ctx echo.Context) error {
	board, err := api.svc.QueryExecBoard(ctx.Request().Context(), ctx.QueryParam("academic_year"))
	if err != nil {
		return errors.Wrap(err, "querying exec board")
	}
	if board == nil {
		board = []member.ExecBoardMember{}
	}
	return ctx.JSON(http.StatusOK, board)
}

func (api *memberApi) refreshToken(ctx echo.Context) error {
	token, err := api.auth.refreshToken(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

// ctxMemberOrManagerMiddleware loads the member of the `:id` path param into "object".
// Members may only access themselves; exec-board members and admins may access anyone.
func ctxMemberOrManagerMiddleware(svc *member.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ctxMember, err := getContextMember(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context member")
			}

			if ctx.Param("id") == ctxMember.ID || ctxMember.CanManage() {
				if m, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id")); err == nil {
					ctx.Set("object", m)
					return next(ctx)
				} else if errors.Cause(err) != member.ErrNotFound {
					return errors.Wrap(err, "finding member by ID")
				}
			}
			return errHttpNotFound
		}
	}
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token               string `json:"token"`
		ForcePasswordChange bool   `json:"force_password_change,omitempty"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	DestroyMultipleRequest struct {
		IDs []string `query:"id"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
