package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kuisduel/kuisduel-backend/internal/duel"
	"github.com/kuisduel/kuisduel-backend/internal/middleware"
	"github.com/kuisduel/kuisduel-backend/internal/model"
	"github.com/kuisduel/kuisduel-backend/internal/response"
	"github.com/kuisduel/kuisduel-backend/internal/service"
	"github.com/kuisduel/kuisduel-backend/internal/validator"
)

// DuelHandler handles duel lifecycle endpoints. Real-time play happens
// over the WebSocket stream; these endpoints cover the lobby, lifecycle
// actions, and history.
type DuelHandler struct {
	duelService *service.DuelService
	bankService *service.QuestionBankService
}

// NewDuelHandler creates a new DuelHandler.
func NewDuelHandler(duelService *service.DuelService, bankService *service.QuestionBankService) *DuelHandler {
	return &DuelHandler{
		duelService: duelService,
		bankService: bankService,
	}
}

// failDuelError maps engine and service errors to API error responses.
func failDuelError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, duel.ErrDuplicateSession):
		response.Fail(c, http.StatusConflict, response.ErrDuplicateSession)
	case errors.Is(err, duel.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, duel.ErrSessionFull):
		response.Fail(c, http.StatusConflict, response.ErrDuelFull)
	case errors.Is(err, duel.ErrNotAParticipant):
		response.Fail(c, http.StatusForbidden, response.ErrNotAParticipant)
	case errors.Is(err, duel.ErrWrongState):
		response.Fail(c, http.StatusConflict, response.ErrDuelWrongState)
	case errors.Is(err, duel.ErrStaleQuestion):
		response.Fail(c, http.StatusConflict, response.ErrStaleQuestion)
	case errors.Is(err, duel.ErrDuplicateAnswer):
		response.Fail(c, http.StatusConflict, response.ErrDuplicateAnswer)
	case errors.Is(err, duel.ErrWindowExpired):
		response.Fail(c, http.StatusConflict, response.ErrWindowExpired)
	case errors.Is(err, duel.ErrSuspiciouslyFast):
		response.Fail(c, http.StatusConflict, response.ErrSuspiciouslyFast)
	case errors.Is(err, service.ErrInsufficientFunds):
		response.Fail(c, http.StatusPaymentRequired, response.ErrInsufficientFunds)
	case errors.Is(err, service.ErrInvalidStake):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrInvalidStake)
	case errors.Is(err, service.ErrNotEnoughQuestions):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrNoQuestions)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// Lobby godoc
// GET /api/v1/duels
// Lists open duels waiting for an opponent.
func (h *DuelHandler) Lobby(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"duels": h.duelService.Lobby()})
}

// Create godoc
// POST /api/v1/duels
// Opens a new duel; the creator's stake is held immediately.
func (h *DuelHandler) Create(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateDuelRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation, fields)
		return
	}

	session, err := h.duelService.Create(c.Request.Context(), claims.PlayerID, claims.DisplayName, req)
	if err != nil {
		failDuelError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"duel": session.View()})
}

// Join godoc
// POST /api/v1/duels/:duel_id/join
// Seats the caller as the opponent; their stake is held immediately.
func (h *DuelHandler) Join(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	duelID, err := uuid.Parse(c.Param("duel_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	session, err := h.duelService.Join(c.Request.Context(), claims.PlayerID, claims.DisplayName, duelID)
	if err != nil {
		failDuelError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"duel": session.View()})
}

// Detail godoc
// GET /api/v1/duels/:duel_id
// Returns the live snapshot, or the persisted record once the session is
// gone.
func (h *DuelHandler) Detail(c *gin.Context) {
	duelID, err := uuid.Parse(c.Param("duel_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	snap, row, err := h.duelService.Detail(c.Request.Context(), duelID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	if snap != nil {
		response.Success(c, http.StatusOK, gin.H{"duel": snap})
		return
	}
	response.Success(c, http.StatusOK, gin.H{"duel": row})
}

// Active godoc
// GET /api/v1/duels/active
// Returns the caller's current live duel, if any.
func (h *DuelHandler) Active(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	session, err := h.duelService.ActiveFor(claims.PlayerID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"duel": session.View()})
}

// Forfeit godoc
// POST /api/v1/duels/:duel_id/forfeit
// Concedes the duel. In progress, the opponent wins the pot; before the
// start it cancels with refunds.
func (h *DuelHandler) Forfeit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	duelID, err := uuid.Parse(c.Param("duel_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.duelService.Forfeit(duelID, claims.PlayerID); err != nil {
		failDuelError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// Cancel godoc
// DELETE /api/v1/duels/:duel_id
// Cancels an unstarted duel. Creator only; all holds are refunded.
func (h *DuelHandler) Cancel(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	duelID, err := uuid.Parse(c.Param("duel_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.duelService.Cancel(duelID, claims.PlayerID); err != nil {
		failDuelError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// History godoc
// GET /api/v1/duels/history?page=1&per_page=20
// Returns the caller's persisted duels, newest first.
func (h *DuelHandler) History(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	page, perPage := parsePagination(c)
	duels, total, err := h.duelService.History(c.Request.Context(), claims.PlayerID, perPage, (page-1)*perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"duels": duels}, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	})
}

// Answers godoc
// GET /api/v1/duels/:duel_id/answers
// Returns the persisted answer log of a finished duel. Participants only.
func (h *DuelHandler) Answers(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	duelID, err := uuid.Parse(c.Param("duel_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	snap, row, err := h.duelService.Detail(c.Request.Context(), duelID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	participant := false
	switch {
	case snap != nil:
		for _, p := range snap.Players {
			if p.PlayerID == claims.PlayerID {
				participant = true
			}
		}
	case row != nil:
		participant = row.CreatorID == claims.PlayerID ||
			(row.OpponentID != nil && *row.OpponentID == claims.PlayerID)
	}
	if !participant {
		response.Fail(c, http.StatusForbidden, response.ErrNotAParticipant)
		return
	}

	answers, err := h.duelService.Answers(c.Request.Context(), duelID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"answers": answers})
}

// Categories godoc
// GET /api/v1/categories
// Lists question categories with their question counts.
func (h *DuelHandler) Categories(c *gin.Context) {
	categories, err := h.bankService.Categories(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"categories": categories})
}

func parsePagination(c *gin.Context) (page, perPage int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	perPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return page, perPage
}
