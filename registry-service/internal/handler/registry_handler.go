package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/eaglebank/account-registry/registry-service/internal/registry"
	"github.com/eaglebank/account-registry/shared/cqrs"
	"github.com/eaglebank/account-registry/shared/events"
	"github.com/eaglebank/account-registry/shared/middleware"
	"github.com/eaglebank/account-registry/shared/models"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// RegistryCommander defines the write-side operations used by RegistryHandler.
type RegistryCommander interface {
	AddAccount(context.Context, cqrs.AddAccountCommand) (*events.Event, error)
	RemoveAccount(context.Context, cqrs.RemoveAccountCommand) (*events.Event, error)
}

// RegistryQuerier defines the read-side operations used by RegistryHandler.
type RegistryQuerier interface {
	Size(context.Context, cqrs.SizeQuery) (int, error)
	GetMember(context.Context, cqrs.GetMemberQuery) (*models.Member, error)
	ListMembers(context.Context, cqrs.ListMembersQuery) ([]models.Member, error)
	ListActivity(context.Context, cqrs.ListActivityQuery) ([]models.Activity, error)
}

// RegistryHandler handles registry HTTP requests.
type RegistryHandler struct {
	commands RegistryCommander
	queries  RegistryQuerier
}

type AddAccountRequest struct {
	Account string `json:"account" validate:"required,eth_addr"`
}

// EventResponse is returned by add and remove; it carries the emitted event.
type EventResponse struct {
	Event *events.Event `json:"event"`
}

type SizeResponse struct {
	Size int `json:"size"`
}

type ListMembersResponse struct {
	Accounts []models.Member `json:"accounts"`
	Size     int             `json:"size"`
}

type ListActivityResponse struct {
	Events []models.Activity `json:"events"`
}

func NewRegistryHandler(commands RegistryCommander, queries RegistryQuerier) *RegistryHandler {
	return &RegistryHandler{commands: commands, queries: queries}
}

func (h *RegistryHandler) AddAccount(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	var req AddAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	event, err := h.commands.AddAccount(c.Request.Context(), cqrs.AddAccountCommand{
		Account: req.Account,
		Caller:  caller,
	})
	if err != nil {
		respondWithRegistryError(c, err, "Failed to add account")
		return
	}

	c.JSON(http.StatusCreated, EventResponse{Event: event})
}

func (h *RegistryHandler) RemoveAccount(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	event, err := h.commands.RemoveAccount(c.Request.Context(), cqrs.RemoveAccountCommand{
		Account: c.Param("account"),
		Caller:  caller,
	})
	if err != nil {
		respondWithRegistryError(c, err, "Failed to remove account")
		return
	}

	c.JSON(http.StatusOK, EventResponse{Event: event})
}

func (h *RegistryHandler) Size(c *gin.Context) {
	size, err := h.queries.Size(c.Request.Context(), cqrs.SizeQuery{})
	if err != nil {
		respondWithRegistryError(c, err, "Failed to read registry size")
		return
	}
	c.JSON(http.StatusOK, SizeResponse{Size: size})
}

func (h *RegistryHandler) GetAccount(c *gin.Context) {
	member, err := h.queries.GetMember(c.Request.Context(), cqrs.GetMemberQuery{Account: c.Param("account")})
	if err != nil {
		if errors.Is(err, registry.ErrNotMember) {
			middleware.RespondWithError(c, http.StatusNotFound, "Account is not a member")
			return
		}
		respondWithRegistryError(c, err, "Failed to get account")
		return
	}
	c.JSON(http.StatusOK, member)
}

func (h *RegistryHandler) ListAccounts(c *gin.Context) {
	offset, ok := intQuery(c, "offset")
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}

	members, err := h.queries.ListMembers(c.Request.Context(), cqrs.ListMembersQuery{Offset: offset, Limit: limit})
	if err != nil {
		respondWithRegistryError(c, err, "Failed to list accounts")
		return
	}
	size, err := h.queries.Size(c.Request.Context(), cqrs.SizeQuery{})
	if err != nil {
		respondWithRegistryError(c, err, "Failed to list accounts")
		return
	}
	c.JSON(http.StatusOK, ListMembersResponse{Accounts: members, Size: size})
}

func (h *RegistryHandler) ListEvents(c *gin.Context) {
	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}
	activity, err := h.queries.ListActivity(c.Request.Context(), cqrs.ListActivityQuery{Limit: limit})
	if err != nil {
		respondWithRegistryError(c, err, "Failed to list events")
		return
	}
	c.JSON(http.StatusOK, ListActivityResponse{Events: activity})
}

// intQuery reads an optional non-negative integer query parameter. It writes
// a 400 and returns false when the value is present but unusable.
func intQuery(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		middleware.RespondWithValidationError(c, []middleware.ValidationError{{
			Field:   name,
			Message: "Value must be a non-negative integer",
			Type:    "gte",
		}})
		return 0, false
	}
	return n, true
}

func respondWithRegistryError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, registry.ErrInvalidAccount):
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid account address")
	case errors.Is(err, registry.ErrAlreadyMember):
		middleware.RespondWithError(c, http.StatusConflict, "Account is already a member")
	case errors.Is(err, registry.ErrNotMember):
		middleware.RespondWithError(c, http.StatusConflict, "Account is not a member")
	case errors.Is(err, registry.ErrInvalidOperation):
		middleware.RespondWithError(c, http.StatusConflict, err.Error())
	default:
		log.WithError(err).WithField("path", c.FullPath()).Error(fallback)
		middleware.RespondWithError(c, http.StatusInternalServerError, fallback)
	}
}
