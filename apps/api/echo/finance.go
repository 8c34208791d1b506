package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gleeworld/gleeworld/core/finance"
	"github.com/gleeworld/gleeworld/core/member"
)

type financeApi struct {
	svc     *finance.Service
	members *member.Service
}

type waiveRequest struct {
	Note string `json:"note"`
}

func registerFinanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *finance.Service, members *member.Service) {
	api := financeApi{svc: svc, members: members}

	fg := g.Group("/finance", jwt)
	fg.GET("/dues/mine", api.myDues)

	m := managerMiddleware()
	fg.POST("/dues", api.createDues, m)
	fg.GET("/dues", api.queryDues, m)
	fg.GET("/dues/summary", api.duesSummary, m)
	fg.GET("/dues/:id", api.retrieveDues, m)
	fg.POST("/dues/:id/payments", api.recordPayment, m)
	fg.POST("/dues/:id/waive", api.waive, m)

	fg.GET("/ledger", api.ledger, m)
	fg.POST("/ledger", api.addEntry, m)

	fg.POST("/budgets", api.createBudget, m)
	fg.GET("/budgets", api.queryBudgets, m)
	fg.GET("/budgets/:id", api.budgetReport, m)
	fg.POST("/budgets/:id/close", api.closeBudget, m)
	fg.POST("/budgets/:id/expenses", api.addExpense, m)
}

func (api *financeApi) myDues(ctx echo.Context) error {
	actor, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	return api.respondDues(ctx, &finance.DuesFilter{MemberID: actor.ID})
}

func (api *financeApi) queryDues(ctx echo.Context) error {
	filter := new(finance.DuesFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []finance.DuesRecord{})
	}
	return api.respondDues(ctx, filter)
}

func (api *financeApi) respondDues(ctx echo.Context, filter *finance.DuesFilter) error {
	records, err := api.svc.QueryDues(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying dues")
	}
	if records == nil {
		records = []finance.DuesRecord{}
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *financeApi) createDues(ctx echo.Context) error {
	var data finance.NewDues
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDues")
	}
	records, err := api.svc.CreateDues(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating dues")
	}
	return ctx.JSON(http.StatusCreated, records)
}

func (api *financeApi) retrieveDues(ctx echo.Context) error {
	d, err := api.svc.GetDues(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding dues")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *financeApi) duesSummary(ctx echo.Context) error {
	s, err := api.svc.DuesSummary(ctx.Request().Context(), ctx.QueryParam("semester"))
	if err != nil {
		return errors.Wrap(err, "summarizing dues")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *financeApi) recordPayment(ctx echo.Context) error {
	var data finance.Payment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Payment")
	}
	actor, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	d, err := api.svc.RecordPayment(ctx.Request().Context(), actor.ID, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "recording payment")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *financeApi) waive(ctx echo.Context) error {
	var data waiveRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to waiveRequest")
	}
	d, err := api.svc.Waive(ctx.Request().Context(), ctx.Param("id"), data.Note)
	if err != nil {
		return errors.Wrap(err, "waiving dues")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *financeApi) ledger(ctx echo.Context) error {
	var period Period
	if err := period.Bind(ctx); err != nil {
		return err
	}
	entries, err := api.svc.Ledger(ctx.Request().Context(), period.From, period.To)
	if err != nil {
		return errors.Wrap(err, "querying ledger")
	}
	if entries == nil {
		entries = []finance.LedgerEntry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *financeApi) addEntry(ctx echo.Context) error {
	var data finance.NewLedgerEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLedgerEntry")
	}
	actor, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	e, err := api.svc.AddEntry(ctx.Request().Context(), actor.ID, data)
	if err != nil {
		return errors.Wrap(err, "adding ledger entry")
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *financeApi) createBudget(ctx echo.Context) error {
	var data finance.NewBudget
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBudget")
	}
	actor, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	b, err := api.svc.CreateBudget(ctx.Request().Context(), actor.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating budget")
	}
	return ctx.JSON(http.StatusCreated, b)
}

func (api *financeApi) queryBudgets(ctx echo.Context) error {
	budgets, err := api.svc.QueryBudgets(ctx.Request().Context(), ctx.QueryParam("academic_year"))
	if err != nil {
		return errors.Wrap(err, "querying budgets")
	}
	if budgets == nil {
		budgets = []finance.Budget{}
	}
	return ctx.JSON(http.StatusOK, budgets)
}

func (api *financeApi) budgetReport(ctx echo.Context) error {
	r, err := api.svc.BudgetReport(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "reporting budget")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *financeApi) closeBudget(ctx echo.Context) error {
	b, err := api.svc.CloseBudget(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "closing budget")
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *financeApi) addExpense(ctx echo.Context) error {
	var data finance.NewExpense
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewExpense")
	}
	actor, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	e, err := api.svc.AddExpense(ctx.Request().Context(), actor.ID, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding expense")
	}
	return ctx.JSON(http.StatusCreated, e)
}
