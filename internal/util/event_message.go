package util

import (
	"fmt"
	"html"
	"yieldpool/internal/models"
)

// EventMessage renders an event as a Telegram HTML message. Events that are
// not worth a notification return "".
func EventMessage(e models.Event, token string) string {
	pool := html.EscapeString(e.PoolId)
	account := html.EscapeString(ShortAccount(e.Account))
	amount := FormatAmount(e.Amount)

	switch e.Type {
	case models.EventBurned:
		return fmt.Sprintf("🔥 <b>Burn</b>\n\nPool: <code>%s</code>\nBurned: %s %s\nDestroyed: %s %s",
			pool, amount, token, formatAttr(e, "destroyed"), token)
	case models.EventPoolCreated:
		return fmt.Sprintf("🆕 <b>Pool created</b>\n\nPool: <code>%s</code>\nRewards: %s %s",
			pool, amount, html.EscapeString(e.Attrs["reward_token"]))
	case models.EventPoolCompleted:
		return fmt.Sprintf("✅ <b>Pool completed</b>\n\nPool: <code>%s</code>\nParticipants: %s",
			pool, html.EscapeString(e.Attrs["participants"]))
	case models.EventRefunded:
		return fmt.Sprintf("💸 <b>Escrow refunded</b>\n\nPool: <code>%s</code>\nTo: %s\nAmount: %s %s",
			pool, account, amount, token)
	case models.EventSafetyRefunded:
		return fmt.Sprintf("🛟 <b>Safety refund</b>\n\nPool: <code>%s</code>\nTo: %s\nAmount: %s %s",
			pool, account, amount, token)
	case models.EventInstantPayout:
		return fmt.Sprintf("🎉 <b>Instant lottery</b>\n\nWinner: %s\nPrize: %s %s",
			account, amount, token)
	case models.EventDrawCompleted:
		return fmt.Sprintf("🏆 <b>Monthly draw</b>\n\nWinner: %s\nPrize: %s %s\nEligible: %s",
			account, amount, token, html.EscapeString(e.Attrs["eligible"]))
	case models.EventPotRolledOver:
		return fmt.Sprintf("⏭ <b>Monthly draw</b>\n\nNo winner this round, pot of %s %s rolls over.",
			amount, token)
	default:
		return ""
	}
}

func formatAttr(e models.Event, key string) string {
	a, err := models.ParseBaseUnits(e.Attrs[key])
	if err != nil {
		return "0"
	}
	return FormatAmount(a)
}
