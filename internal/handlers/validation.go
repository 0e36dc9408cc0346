package handlers

import (
	"encoding/json"

	"backoffice/internal/money"
	"backoffice/internal/services"
	"backoffice/internal/store"
)

// amountMinor converts an already validated amount into minor units.
func amountMinor(raw json.Number) (int64, error) {
	amount, err := money.ParseMinor(raw.String())
	if err != nil || amount <= 0 {
		return 0, services.ErrInvalidAmount
	}
	return amount, nil
}

func formatMoney(minor int64) string {
	return money.FormatMinor(minor)
}

func userJSON(u store.User) map[string]any {
	return map[string]any{
		"id":          u.ID,
		"full_name":   u.FullName,
		"email":       u.Email,
		"national_id": u.NationalID,
		"phone":       u.Phone,
		"role":        u.Role,
		"status":      u.Status,
		"created_at":  u.CreatedAt,
	}
}

func accountJSON(a store.Account) map[string]any {
	return map[string]any{
		"id":             a.ID,
		"account_number": a.AccountNumber,
		"balance":        formatMoney(a.Balance),
		"status":         a.Status,
		"created_at":     a.CreatedAt,
		"updated_at":     a.UpdatedAt,
	}
}

func billerJSON(b store.Biller) map[string]any {
	return map[string]any{
		"id":         b.ID,
		"name":       b.Name,
		"category":   b.Category,
		"status":     b.Status,
		"created_at": b.CreatedAt,
	}
}

func transferJSON(result services.TransferResult) map[string]any {
	return map[string]any{
		"transaction_id": result.TransactionID,
		"status":         result.Status,
		"amount":         formatMoney(result.Amount),
		"from_account":   result.FromAccount,
		"to_account":     result.ToAccount,
		"balance_after":  formatMoney(result.BalanceAfter),
		"created_at":     result.CreatedAt,
	}
}

func detailJSON(d store.TransactionDetail) map[string]any {
	return map[string]any{
		"id":                d.ID,
		"type":              d.Type,
		"amount":            formatMoney(d.Amount),
		"status":            d.Status,
		"description":       d.Description,
		"created_at":        d.CreatedAt,
		"recipient_number":  d.RecipientNumber,
		"recipient_name":    d.RecipientName,
		"target_bank":       d.TargetBank,
		"target_account_no": d.TargetAccountNo,
		"biller_name":       d.BillerName,
		"biller_category":   d.BillerCategory,
		"consumer_number":   d.ConsumerNumber,
	}
}

func notificationJSON(n store.Notification) map[string]any {
	return map[string]any{
		"id":         n.ID,
		"type":       n.Type,
		"message":    n.Message,
		"is_read":    n.IsRead,
		"created_at": n.CreatedAt,
	}
}

func ticketJSON(t store.Ticket) map[string]any {
	return map[string]any{
		"id":         t.ID,
		"user_id":    t.UserID,
		"subject":    t.Subject,
		"message":    t.Message,
		"status":     t.Status,
		"created_at": t.CreatedAt,
		"updated_at": t.UpdatedAt,
	}
}

func responseJSON(r store.TicketResponse) map[string]any {
	return map[string]any{
		"id":         r.ID,
		"ticket_id":  r.TicketID,
		"admin_id":   r.AdminID,
		"admin_name": r.AdminName,
		"message":    r.Message,
		"created_at": r.CreatedAt,
	}
}

func mapAll[T any](rows []T, fn func(T) map[string]any) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, fn(row))
	}
	return out
}

func dayJSON(d store.DailyVolume) map[string]any {
	return map[string]any{
		"day":    d.Day,
		"count":  d.Count,
		"amount": formatMoney(d.Amount),
	}
}
