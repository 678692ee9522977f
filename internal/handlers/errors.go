package handlers

import (
	"net/http"
	"yieldpool/internal/common"

	"github.com/gin-gonic/gin"
)

var kindStatus = map[string]int{
	"NotFound":               http.StatusNotFound,
	"InvalidArgument":        http.StatusBadRequest,
	"Unauthorized":           http.StatusForbidden,
	"NotWhitelisted":         http.StatusForbidden,
	"PremiumTierRequired":    http.StatusForbidden,
	"InsufficientNFTBalance": http.StatusForbidden,
	"InsufficientFunds":      http.StatusPaymentRequired,
	"Overflow":               http.StatusUnprocessableEntity,
	"StoreUnavailable":       http.StatusServiceUnavailable,
	"DuplicatePool":          http.StatusConflict,
	"AlreadyBurned":          http.StatusConflict,
	"PoolNotCompleted":       http.StatusConflict,
	"AlreadyRefunded":        http.StatusConflict,
	"EscrowNotReady":         http.StatusConflict,
	"PoolExists":             http.StatusConflict,
	"GracePeriodActive":      http.StatusConflict,
	"PoolInactive":           http.StatusConflict,
	"PoolFull":               http.StatusConflict,
	"NotYetEnded":            http.StatusConflict,
	"AlreadyJoined":          http.StatusConflict,
	"NothingToClaim":         http.StatusConflict,
	"NotParticipant":         http.StatusConflict,
	"DrawNotDue":             http.StatusConflict,
}

// StatusOf maps a ledger error to its HTTP status.
func StatusOf(err error) int {
	if status, ok := kindStatus[common.Kind(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	status := StatusOf(err)
	kind := common.Kind(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Error("Request failed: ", err)
		message = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": kind, "message": message})
}
