package store

import (
	"context"
	"time"

	"backoffice/internal/models"
)

// ReportStore holds the read-only queries behind statements, history and the
// admin dashboard. Calendar buckets are computed in the named time zone.
type ReportStore struct {
	db DB
}

type MonthlyTotal struct {
	Month   string `db:"month"`
	Income  int64  `db:"income"`
	Expense int64  `db:"expense"`
}

// TransactionDetail is an outgoing transaction joined with whichever detail
// row its type carries.
type TransactionDetail struct {
	ID              string                   `db:"id"`
	Type            models.TransactionType   `db:"type"`
	Amount          int64                    `db:"amount"`
	Status          models.TransactionStatus `db:"status"`
	Description     string                   `db:"description"`
	CreatedAt       time.Time                `db:"created_at"`
	RecipientNumber *string                  `db:"recipient_number"`
	RecipientName   *string                  `db:"recipient_name"`
	TargetBank      *string                  `db:"target_bank"`
	TargetAccountNo *string                  `db:"target_account_no"`
	BillerName      *string                  `db:"biller_name"`
	BillerCategory  *string                  `db:"biller_category"`
	ConsumerNumber  *string                  `db:"consumer_number"`
}

type FrequentInternal struct {
	AccountNumber string    `db:"account_number"`
	FullName      string    `db:"full_name"`
	TransferCount int64     `db:"transfer_count"`
	LastTransfer  time.Time `db:"last_transfer"`
}

type FrequentExternal struct {
	TargetBank      string    `db:"target_bank"`
	TargetAccountNo string    `db:"target_account_no"`
	TransferCount   int64     `db:"transfer_count"`
	LastTransfer    time.Time `db:"last_transfer"`
}

type StatementLine struct {
	ID           string                   `db:"id"`
	Type         models.TransactionType   `db:"type"`
	Amount       int64                    `db:"amount"`
	Status       models.TransactionStatus `db:"status"`
	Description  string                   `db:"description"`
	Direction    string                   `db:"direction"`
	Counterparty string                   `db:"counterparty"`
	CreatedAt    time.Time                `db:"created_at"`
}

type BillHistoryLine struct {
	TransactionID  string                   `db:"transaction_id"`
	BillerID       string                   `db:"biller_id"`
	BillerName     string                   `db:"biller_name"`
	Category       models.BillerCategory    `db:"category"`
	ConsumerNumber string                   `db:"consumer_number"`
	Amount         int64                    `db:"amount"`
	Status         models.TransactionStatus `db:"status"`
	CreatedAt      time.Time                `db:"created_at"`
}

type DashboardTotals struct {
	TotalCustomers  int64 `db:"total_customers"`
	ActiveCustomers int64 `db:"active_customers"`
	TotalFunds      int64 `db:"total_funds"`
}

type VolumeTotal struct {
	Count  int64 `db:"tx_count"`
	Amount int64 `db:"tx_amount"`
}

type DailyVolume struct {
	Day    string `db:"day"`
	Count  int64  `db:"tx_count"`
	Amount int64  `db:"tx_amount"`
}

const transactionDetailSelect = `
	SELECT t.id, t.type, t.amount, t.status, t.description, t.created_at,
	       ta.account_number AS recipient_number, tu.full_name AS recipient_name,
	       et.target_bank, et.target_account_no,
	       b.name AS biller_name, b.category AS biller_category, bp.consumer_number
	FROM transactions t
	LEFT JOIN internal_transfers it ON it.transaction_id = t.id
	LEFT JOIN accounts ta ON ta.id = it.to_account_id
	LEFT JOIN users tu ON tu.id = ta.user_id
	LEFT JOIN external_transfers et ON et.transaction_id = t.id
	LEFT JOIN bill_payments bp ON bp.transaction_id = t.id
	LEFT JOIN billers b ON b.id = bp.biller_id
`

func NewReportStore(db DB) *ReportStore {
	return &ReportStore{db: db}
}

// MonthlyTotals groups completed money movement of the account by calendar
// month starting at since. Income counts internal transfers received.
func (s *ReportStore) MonthlyTotals(ctx context.Context, accountID string, since time.Time, tz string) ([]MonthlyTotal, error) {
	var rows []MonthlyTotal
	err := s.db.SelectContext(ctx, &rows, `
		SELECT month, SUM(income)::BIGINT AS income, SUM(expense)::BIGINT AS expense
		FROM (
			SELECT to_char(t.created_at AT TIME ZONE $2, 'YYYY-MM') AS month, t.amount AS income, 0 AS expense
			FROM transactions t
			JOIN internal_transfers it ON it.transaction_id = t.id
			WHERE it.to_account_id = $1 AND t.status = 'completed' AND t.created_at >= $3
			UNION ALL
			SELECT to_char(t.created_at AT TIME ZONE $2, 'YYYY-MM') AS month, 0 AS income, t.amount AS expense
			FROM transactions t
			WHERE t.from_account_id = $1 AND t.status = 'completed' AND t.created_at >= $3
		) movements
		GROUP BY month
		ORDER BY month
	`, accountID, tz, since)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *ReportStore) History(ctx context.Context, accountID string, limit, offset int) ([]TransactionDetail, error) {
	var rows []TransactionDetail
	err := s.db.SelectContext(ctx, &rows, transactionDetailSelect+`
		WHERE t.from_account_id = $1
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT $2 OFFSET $3
	`, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *ReportStore) CountOutgoing(ctx context.Context, accountID string) (int64, error) {
	var total int64
	err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM transactions WHERE from_account_id = $1`, accountID)
	return total, err
}

// Receipt returns the transaction only when accountID sent it.
func (s *ReportStore) Receipt(ctx context.Context, accountID, transactionID string) (TransactionDetail, error) {
	var row TransactionDetail
	err := s.db.GetContext(ctx, &row, transactionDetailSelect+`
		WHERE t.id = $1 AND t.from_account_id = $2
	`, transactionID, accountID)
	if err != nil {
		return TransactionDetail{}, err
	}
	return row, nil
}

func (s *ReportStore) FrequentInternal(ctx context.Context, accountID string, limit int) ([]FrequentInternal, error) {
	var rows []FrequentInternal
	err := s.db.SelectContext(ctx, &rows, `
		SELECT a.account_number, u.full_name, COUNT(*) AS transfer_count, MAX(t.created_at) AS last_transfer
		FROM transactions t
		JOIN internal_transfers it ON it.transaction_id = t.id
		JOIN accounts a ON a.id = it.to_account_id
		JOIN users u ON u.id = a.user_id
		WHERE t.from_account_id = $1 AND t.status = 'completed' AND a.status = 'active'
		GROUP BY a.account_number, u.full_name
		ORDER BY transfer_count DESC, a.account_number ASC
		LIMIT $2
	`, accountID, limit)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *ReportStore) FrequentExternal(ctx context.Context, accountID string, limit int) ([]FrequentExternal, error) {
	var rows []FrequentExternal
	err := s.db.SelectContext(ctx, &rows, `
		SELECT et.target_bank, et.target_account_no, COUNT(*) AS transfer_count, MAX(t.created_at) AS last_transfer
		FROM transactions t
		JOIN external_transfers et ON et.transaction_id = t.id
		WHERE t.from_account_id = $1 AND t.status = 'completed'
		GROUP BY et.target_bank, et.target_account_no
		ORDER BY transfer_count DESC, et.target_bank ASC, et.target_account_no ASC
		LIMIT $2
	`, accountID, limit)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Statement merges outgoing transactions with completed transfers received.
func (s *ReportStore) Statement(ctx context.Context, accountID string, limit int) ([]StatementLine, error) {
	var rows []StatementLine
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM (
			SELECT t.id, t.type, t.amount, t.status, t.description, 'outgoing' AS direction,
			       COALESCE(ta.account_number, et.target_bank || ' ' || et.target_account_no, b.name, '') AS counterparty,
			       t.created_at
			FROM transactions t
			LEFT JOIN internal_transfers it ON it.transaction_id = t.id
			LEFT JOIN accounts ta ON ta.id = it.to_account_id
			LEFT JOIN external_transfers et ON et.transaction_id = t.id
			LEFT JOIN bill_payments bp ON bp.transaction_id = t.id
			LEFT JOIN billers b ON b.id = bp.biller_id
			WHERE t.from_account_id = $1
			UNION ALL
			SELECT t.id, t.type, t.amount, t.status, t.description, 'incoming' AS direction,
			       fa.account_number AS counterparty, t.created_at
			FROM transactions t
			JOIN internal_transfers it ON it.transaction_id = t.id
			JOIN accounts fa ON fa.id = t.from_account_id
			WHERE it.to_account_id = $1 AND t.status = 'completed'
		) lines
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, accountID, limit)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *ReportStore) BillHistory(ctx context.Context, accountID string, limit int) ([]BillHistoryLine, error) {
	var rows []BillHistoryLine
	err := s.db.SelectContext(ctx, &rows, `
		SELECT t.id AS transaction_id, b.id AS biller_id, b.name AS biller_name, b.category,
		       bp.consumer_number, t.amount, t.status, t.created_at
		FROM bill_payments bp
		JOIN transactions t ON t.id = bp.transaction_id
		JOIN billers b ON b.id = bp.biller_id
		WHERE t.from_account_id = $1
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT $2
	`, accountID, limit)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *ReportStore) DashboardTotals(ctx context.Context) (DashboardTotals, error) {
	var row DashboardTotals
	err := s.db.GetContext(ctx, &row, `
		SELECT
			(SELECT COUNT(*) FROM users WHERE role = 'customer') AS total_customers,
			(SELECT COUNT(*) FROM users u JOIN accounts a ON a.user_id = u.id
			 WHERE u.role = 'customer' AND u.status = 'approved') AS active_customers,
			(SELECT COALESCE(SUM(balance), 0)::BIGINT FROM accounts) AS total_funds
	`)
	if err != nil {
		return DashboardTotals{}, err
	}
	return row, nil
}

// VolumeBetween counts completed transactions created within [from, to).
func (s *ReportStore) VolumeBetween(ctx context.Context, from, to time.Time) (VolumeTotal, error) {
	var row VolumeTotal
	err := s.db.GetContext(ctx, &row, `
		SELECT COUNT(*) AS tx_count, COALESCE(SUM(amount), 0)::BIGINT AS tx_amount
		FROM transactions
		WHERE status = 'completed' AND created_at >= $1 AND created_at < $2
	`, from, to)
	if err != nil {
		return VolumeTotal{}, err
	}
	return row, nil
}

// DailyVolume only returns days that had completed transactions.
func (s *ReportStore) DailyVolume(ctx context.Context, since time.Time, tz string) ([]DailyVolume, error) {
	var rows []DailyVolume
	err := s.db.SelectContext(ctx, &rows, `
		SELECT to_char(created_at AT TIME ZONE $2, 'YYYY-MM-DD') AS day,
		       COUNT(*) AS tx_count, COALESCE(SUM(amount), 0)::BIGINT AS tx_amount
		FROM transactions
		WHERE status = 'completed' AND created_at >= $1
		GROUP BY day
		ORDER BY day
	`, since, tz)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
