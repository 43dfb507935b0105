package app

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"saypay/pkg/db"
	"saypay/pkg/pipeline"
	"saypay/pkg/saypay"
	"saypay/pkg/services"

	"github.com/labstack/echo/v4"
)

const loginHeader = "X-User-Login"

type draftPayload struct {
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Date        string  `json:"date"`
}

type voiceResponse struct {
	Transcript services.TranscriptionResult `json:"transcript"`
	Draft      services.ExpenseDraft        `json:"draft"`
	Source     services.DraftSource         `json:"source"`
	Warnings   []pipeline.Warning           `json:"warnings,omitempty"`
}

type expenseResponse struct {
	Expense saypay.Expense `json:"expense"`
	Parked  bool           `json:"parked,omitempty"`
}

// registerAPIHandlers mounts the JSON API used by web and mobile clients.
// Identity comes from the X-User-Login header, authentication itself is
// handled upstream.
func (a *App) registerAPIHandlers() {
	api := a.echo.Group("/api/v1")

	api.POST("/expenses/voice", a.handleVoiceExpense)
	api.POST("/expenses", a.handleCreateExpense)
	api.PUT("/expenses/:id", a.handleUpdateExpense)
	api.GET("/expenses", a.handleListExpenses)
}

func (a *App) requireUser(c echo.Context) (*db.User, error) {
	login := c.Request().Header.Get(loginHeader)
	if login == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, loginHeader+" header is required")
	}

	user, err := a.saypay.GetOrCreateUserByLogin(c.Request().Context(), login)
	if err != nil {
		a.Error(c.Request().Context(), "failed to get or create user", "login", login, "err", err)
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "user lookup failed")
	}

	return user, nil
}

// handleVoiceExpense accepts a multipart recording and returns a reviewable
// draft with its provenance and quality warnings.
func (a *App) handleVoiceExpense(c echo.Context) error {
	if !a.voiceEnabled {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "voice expenses are disabled: transcription credential is not configured")
	}
	if _, err := a.requireUser(c); err != nil {
		return err
	}
	ctx := c.Request().Context()

	fh, err := c.FormFile("audio")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "audio file is required")
	}
	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read audio file")
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read audio file")
	}

	durationMs, _ := strconv.Atoi(c.FormValue("durationMs"))
	audio := services.RecordedAudio{
		Data:     data,
		Duration: time.Duration(durationMs) * time.Millisecond,
		MIME:     fh.Header.Get("Content-Type"),
	}

	session := pipeline.NewSession()
	if err := a.apiPipeline.Process(ctx, session, audio, c.FormValue("language")); err != nil {
		var terr *services.TranscriptionError
		if errors.As(err, &terr) {
			return echo.NewHTTPError(http.StatusBadGateway, "transcription service failed")
		}
		a.Error(ctx, "voice pipeline failed", "err", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "voice processing failed")
	}

	return c.JSON(http.StatusOK, voiceResponse{
		Transcript: session.Transcript,
		Draft:      session.Outcome.Draft,
		Source:     session.Outcome.Source,
		Warnings:   session.Warnings,
	})
}

// handleCreateExpense saves a reviewed draft. A parked save returns 202 so
// clients can tell the user the expense is accepted but not yet durable.
func (a *App) handleCreateExpense(c echo.Context) error {
	user, err := a.requireUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	var payload draftPayload
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json payload")
	}

	category, _ := services.ParseCategory(payload.Category)
	draft := services.ExpenseDraft{
		Amount:      payload.Amount,
		Currency:    payload.Currency,
		Description: payload.Description,
		Category:    category,
		Date:        payload.Date,
	}
	if err := pipeline.ValidateDraft(draft); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	expense, err := a.saypay.CreateExpense(ctx, user.ID, draft)
	var storageErr *saypay.StorageError
	switch {
	case err == nil:
		return c.JSON(http.StatusCreated, expenseResponse{Expense: *saypay.NewExpense(expense)})
	case errors.As(err, &storageErr):
		return c.JSON(http.StatusAccepted, expenseResponse{Expense: *saypay.NewExpense(expense), Parked: true})
	default:
		a.Error(ctx, "failed to create expense", "user_id", user.ID, "err", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create expense")
	}
}

// handleUpdateExpense edits a stored expense. Omitted payload fields keep
// their stored values, the merged draft passes the same gate as a new one.
func (a *App) handleUpdateExpense(c echo.Context) error {
	user, err := a.requireUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid expense id")
	}

	existing, err := a.saypay.ExpenseByID(ctx, user.ID, id)
	if err != nil {
		a.Error(ctx, "failed to load expense", "user_id", user.ID, "expense_id", id, "err", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load expense")
	}
	if existing == nil {
		return echo.NewHTTPError(http.StatusNotFound, "expense not found")
	}

	var payload draftPayload
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json payload")
	}

	draft := saypay.NewExpense(existing).Draft()
	if payload.Amount != 0 {
		draft.Amount = payload.Amount
	}
	if payload.Currency != "" {
		draft.Currency = payload.Currency
	}
	if payload.Description != "" {
		draft.Description = payload.Description
	}
	if payload.Category != "" {
		if category, ok := services.ParseCategory(payload.Category); ok {
			draft.Category = category
		}
	}
	if payload.Date != "" {
		draft.Date = payload.Date
	}
	if err := pipeline.ValidateDraft(draft); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	updated, err := a.saypay.UpdateExpense(ctx, existing, draft)
	if err != nil {
		a.Error(ctx, "failed to update expense", "user_id", user.ID, "expense_id", id, "err", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update expense")
	}

	return c.JSON(http.StatusOK, expenseResponse{Expense: *saypay.NewExpense(updated)})
}

// handleListExpenses returns the user's expenses, parked ones included.
func (a *App) handleListExpenses(c echo.Context) error {
	user, err := a.requireUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("pageSize"))

	expenses, err := a.saypay.ExpensesByUser(ctx, user.ID, db.Pager{Page: page, PageSize: pageSize})
	if err != nil {
		a.Error(ctx, "failed to list expenses", "user_id", user.ID, "err", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list expenses")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"expenses": saypay.NewExpenses(expenses),
	})
}
