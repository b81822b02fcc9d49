package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kuisduel/kuisduel-backend/internal/middleware"
	"github.com/kuisduel/kuisduel-backend/internal/response"
	"github.com/kuisduel/kuisduel-backend/internal/service"
)

// WalletHandler exposes balances and the ledger to players.
type WalletHandler struct {
	walletService *service.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletService *service.WalletService) *WalletHandler {
	return &WalletHandler{walletService: walletService}
}

// Balance godoc
// GET /api/v1/wallet
// Returns the caller's spendable balance.
func (h *WalletHandler) Balance(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	balance, err := h.walletService.Balance(c.Request.Context(), claims.PlayerID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"balance": balance})
}

// Statement godoc
// GET /api/v1/wallet/entries?page=1&per_page=20
// Returns the caller's ledger entries, newest first.
func (h *WalletHandler) Statement(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	page, perPage := parsePagination(c)
	entries, total, err := h.walletService.Statement(c.Request.Context(), claims.PlayerID, perPage, (page-1)*perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"entries": entries}, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	})
}
