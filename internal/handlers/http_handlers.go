package handlers

import (
	"crypto/subtle"
	"fmt"
	"math"
	"net/http"
	"time"
	"yieldpool/internal/common"
	"yieldpool/internal/config"
	"yieldpool/internal/models"
	"yieldpool/internal/services"
	"yieldpool/internal/util"

	"github.com/gin-gonic/gin"
)

var log = config.InitLogger()

const (
	HeaderAccount    = "X-Account"
	HeaderAdminToken = "X-Admin-Token"

	callerKey = "caller"
)

// HTTPHandler exposes the ledger over JSON. Request amounts are decimal
// token strings; response amounts are base-unit strings.
type HTTPHandler struct {
	ledger     *services.Ledger
	adminToken string
}

func NewHTTPHandler(ledger *services.Ledger, adminToken string) *HTTPHandler {
	return &HTTPHandler{
		ledger:     ledger,
		adminToken: adminToken,
	}
}

func (h *HTTPHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	router.GET("/balances/:token/:account", h.GetBalance)
	router.GET("/escrows/:pool_id", h.GetEscrow)
	router.GET("/escrows/:pool_id/can-safety-refund", h.CanSafetyRefund)
	router.GET("/abandoned-escrows", h.ListAbandoned)
	router.GET("/pools", h.ListPools)
	router.GET("/pools/:pool_id", h.GetPool)
	router.GET("/pools/:pool_id/can-complete", h.CanCompletePool)
	router.GET("/pools/:pool_id/participants", h.ListParticipants)
	router.GET("/pools/:pool_id/participants/:account", h.GetParticipant)
	router.GET("/pools/:pool_id/rewards/:account", h.PendingRewards)
	router.GET("/pools/:pool_id/operations", h.ListOperations)
	router.GET("/operations", h.ListOperations)
	router.GET("/burns", h.TotalBurned)
	router.GET("/burns/:account", h.UserBurned)
	router.GET("/lottery", h.GetLottery)

	signed := router.Group("/")
	signed.Use(h.AccountMiddleware())
	signed.POST("/escrows", h.Deposit)
	signed.POST("/escrows/:pool_id/burn", h.Burn)
	signed.POST("/escrows/:pool_id/cancel", h.CancelDeposit)
	signed.POST("/escrows/:pool_id/refund", h.Refund)
	signed.POST("/escrows/:pool_id/safety-refund", h.SafetyRefund)
	signed.POST("/pools", h.CreatePool)
	signed.POST("/pools/:pool_id/join", h.JoinPool)
	signed.POST("/pools/:pool_id/whitelist", h.AddToWhitelist)
	signed.POST("/pools/:pool_id/complete", h.CompletePool)
	signed.POST("/pools/:pool_id/claim", h.ClaimRewards)
	signed.POST("/pools/:pool_id/reclaim", h.ReclaimRewards)
	signed.POST("/lottery/draw", h.RunMonthlyDraw)

	admin := router.Group("/admin")
	admin.Use(h.AccountMiddleware(), h.AdminMiddleware())
	admin.POST("/balances", h.Credit)
}

// AccountMiddleware takes the caller from the X-Account header. Signature
// checks happen in the wallet gateway in front of this service.
func (h *HTTPHandler) AccountMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		account := c.GetHeader(HeaderAccount)
		if account == "" {
			writeError(c, common.Invalid("%s header is required", HeaderAccount))
			return
		}
		c.Set(callerKey, account)
		c.Next()
	}
}

func (h *HTTPHandler) AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(HeaderAdminToken)
		if h.adminToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.adminToken)) != 1 {
			writeError(c, common.ErrUnauthorized)
			return
		}
		c.Next()
	}
}

func caller(c *gin.Context) string {
	return c.GetString(callerKey)
}

func respondReceipt(c *gin.Context, receipt *models.Receipt, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

func parseAmount(raw string) (models.Amount, error) {
	if raw == "" {
		return models.Zero(), common.Invalid("amount is required")
	}
	return models.ParseAmount(raw)
}

// maxDurationSeconds is the longest span a time.Duration can hold.
const maxDurationSeconds = math.MaxInt64 / int64(time.Second)

func parseDuration(seconds int64) (time.Duration, error) {
	if seconds < 0 {
		return 0, common.Invalid("duration_seconds must not be negative")
	}
	if seconds > maxDurationSeconds {
		return 0, fmt.Errorf("%w: duration_seconds %d exceeds %d", common.ErrOverflow, seconds, maxDurationSeconds)
	}
	return time.Duration(seconds) * time.Second, nil
}

type creditRequest struct {
	Token   string `json:"token" binding:"required"`
	Account string `json:"account" binding:"required"`
	Amount  string `json:"amount" binding:"required"`
}

func (h *HTTPHandler) Credit(c *gin.Context) {
	var req creditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, common.Invalid("%v", err))
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(c, err)
		return
	}
	receipt, err := h.ledger.Balances.Credit(c.Request.Context(), caller(c), req.Token, req.Account, amount)
	respondReceipt(c, receipt, err)
}

func (h *HTTPHandler) GetBalance(c *gin.Context) {
	token, account := c.Param("token"), c.Param("account")
	balance, err := h.ledger.Balances.BalanceOf(c.Request.Context(), token, account)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Balance{Token: token, Account: account, Amount: balance})
}

type depositRequest struct {
	PoolId          string `json:"pool_id" binding:"required"`
	Amount          string `json:"amount" binding:"required"`
	DurationSeconds int64  `json:"duration_seconds" binding:"required"`
}

func (h *HTTPHandler) Deposit(c *gin.Context) {
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, common.Invalid("%v", err))
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(c, err)
		return
	}
	duration, err := parseDuration(req.DurationSeconds)
	if err != nil {
		writeError(c, err)
		return
	}
	receipt, err := h.ledger.Escrow.Deposit(c.Request.Context(), caller(c), req.PoolId, amount, duration)
	respondReceipt(c, receipt, err)
}

func (h *HTTPHandler) Burn(c *gin.Context) {
	receipt, err := h.ledger.Escrow.Burn(c.Request.Context(), caller(c), c.Param("pool_id"))
	respondReceipt(c, receipt, err)
}

func (h *HTTPHandler) CancelDeposit(c *gin.Context) {
	receipt, err := h.ledger.Escrow.CancelDeposit(c.Request.Context(), caller(c), c.Param("pool_id"))
	respondReceipt(c, receipt, err)
}

func (h *HTTPHandler) Refund(c *gin.Context) {
	receipt, err := h.ledger.Escrow.Refund(c.Request.Context(), caller(c), c.Param("pool_id"))
	respondReceipt(c, receipt, err)
}

func (h *HTTPHandler) SafetyRefund(c *gin.Context) {
	receipt, err := h.ledger.Escrow.SafetyRefund(c.Request.Context(), caller(c), c.Param("pool_id"))
	respondReceipt(c, receipt, err)
}

func (h *HTTPHandler) GetEscrow(c *gin.Context) {
	escrow, state, err := h.ledger.Escrow.GetPoolEscrowState(c.Request.Context(), c.Param("pool_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"escrow": escrow, "state": state})
}

func (h *HTTPHandler) CanSafetyRefund(c *gin.Context) {
	ok, err := h.ledger.Escrow.CanSafetyRefund(c.Request.Context(), c.Param("pool_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"can_safety_refund": ok})
}

func (h *HTTPHandler) ListAbandoned(c *gin.Context) {
	list, err := h.ledger.Escrow.ListAbandoned(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"escrows": list})
}

type createPoolRequest struct {
	PoolId            string `json:"pool_id" binding:"required"`
	NftCollection     string `json:"nft_collection" binding:"required"`
	RewardToken       string `json:"reward_token" binding:"required"`
	TotalRewardAmount string `json:"total_reward_amount" binding:"required"`
	DurationSeconds   int64  `json:"duration_seconds"`
	MinimumNftBalance int64  `json:"minimum_nft_balance"`
	MaxParticipants   int64  `json:"max_participants" binding:"required"`
	Visibility        string `json:"visibility"`
	CreationFee       string `json:"creation_fee" binding:"required"`
}

func (h *HTTPHandler) CreatePool(c *gin.Context) {
	var req createPoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, common.Invalid("%v", err))
		return
	}
	reward, err := parseAmount(req.TotalRewardAmount)
	if err != nil {
		writeError(c, err)
		return
	}
	fee, err := parseAmount(req.CreationFee)
	if err != nil {
		writeError(c, err)
		return
	}
	duration, err := parseDuration(req.DurationSeconds)
	if err != nil {
		writeError(c, err)
		return
	}

	receipt, err := h.ledger.Pools.CreatePool(c.Request.Context(), caller(c), services.CreatePoolRequest{
		PoolId:            req.PoolId,
		NftCollection:     req.NftCollection,
		RewardToken:       req.RewardToken,
		TotalRewardAmount: reward,
		Duration:          duration,
		MinimumNftBalance: req.MinimumNftBalance,
		MaxParticipants:   req.MaxParticipants,
		Visibility:        models.Visibility(req.Visibility),
		CreationFee:       fee,
	})
	respondReceipt(c, receipt, err)
}

func (h *HTTPHandler) JoinPool(c *gin.Context) {
	receipt, err := h.ledger.Pools.JoinPool(c.Request.Context(), caller(c), c.Param("pool_id"))
	respondReceipt(c, receipt, err)
}

type whitelistRequest struct {
	Accounts []string `json:"accounts" binding:"required"`
}

func (h *HTTPHandler) AddToWhitelist(c *gin.Context) {
	var req whitelistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, common.Invalid("%v", err))
		return
	}
	receipt, err := h.ledger.Pools.AddToWhitelist(c.Request.Context(), caller(c), c.Param("pool_id"), req.Accounts)
	respondReceipt(c, receipt, err)
}

func (h *HTTPHandler) CompletePool(c *gin.Context) {
	receipt, err := h.ledger.Pools.CompletePool(c.Request.Context(), caller(c), c.Param("pool_id"))
	respondReceipt(c, receipt, err)
}

func (h *HTTPHandler) GetPool(c *gin.Context) {
	pool, err := h.ledger.Pools.GetPool(c.Request.Context(), c.Param("pool_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pool": pool, "reward_per_nft": pool.RewardPerNft(pool.TotalWeight)})
}

func (h *HTTPHandler) ListPools(c *gin.Context) {
	offset, limit := util.Page(c.Query("offset"), c.Query("limit"))
	pools, err := h.ledger.Pools.ListPools(c.Request.Context(), services.PoolFilter{
		ActiveOnly: c.Query("active") == "true",
		Creator:    c.Query("creator"),
		Offset:     offset,
		Limit:      limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pools": pools, "offset": offset, "limit": limit})
}

func (h *HTTPHandler) CanCompletePool(c *gin.Context) {
	ok, err := h.ledger.Pools.CanCompletePool(c.Request.Context(), c.Param("pool_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"can_complete": ok})
}

func (h *HTTPHandler) ListParticipants(c *gin.Context) {
	list, err := h.ledger.Pools.ListParticipants(c.Request.Context(), c.Param("pool_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"participants": list})
}

func (h *HTTPHandler) GetParticipant(c *gin.Context) {
	p, err := h.ledger.Pools.GetParticipant(c.Request.Context(), c.Param("pool_id"), c.Param("account"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *HTTPHandler) PendingRewards(c *gin.Context) {
	pending, err := h.ledger.Rewards.PendingRewards(c.Request.Context(), c.Param("pool_id"), c.Param("account"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": pending})
}

func (h *HTTPHandler) ClaimRewards(c *gin.Context) {
	receipt, err := h.ledger.Rewards.ClaimRewards(c.Request.Context(), caller(c), c.Param("pool_id"))
	respondReceipt(c, receipt, err)
}

func (h *HTTPHandler) ReclaimRewards(c *gin.Context) {
	receipt, err := h.ledger.Rewards.ReclaimRewards(c.Request.Context(), caller(c), c.Param("pool_id"))
	respondReceipt(c, receipt, err)
}

func (h *HTTPHandler) TotalBurned(c *gin.Context) {
	total, err := h.ledger.Burns.TotalBurned(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total_burned": total})
}

func (h *HTTPHandler) UserBurned(c *gin.Context) {
	total, err := h.ledger.Burns.UserBurnedTotal(c.Request.Context(), c.Param("account"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": c.Param("account"), "burned": total})
}

func (h *HTTPHandler) GetLottery(c *gin.Context) {
	pot, err := h.ledger.Lottery.GetState(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pot)
}

func (h *HTTPHandler) RunMonthlyDraw(c *gin.Context) {
	receipt, err := h.ledger.Lottery.RunMonthlyDraw(c.Request.Context(), caller(c))
	respondReceipt(c, receipt, err)
}

func (h *HTTPHandler) ListOperations(c *gin.Context) {
	offset, limit := util.Page(c.Query("offset"), c.Query("limit"))
	ops, err := h.ledger.Operations.ListOperations(c.Request.Context(), c.Param("pool_id"), offset, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"operations": ops, "offset": offset, "limit": limit})
}
