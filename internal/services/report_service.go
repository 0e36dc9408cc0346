package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"backoffice/internal/models"
	"backoffice/internal/store"
)

const (
	defaultSummaryMonths = 6
	defaultHistoryLimit  = 15
	maxHistoryLimit      = 100
	frequentLimit        = 5
	statementLimit       = 100
	billHistoryLimit     = 50
)

type ReportStore interface {
	MonthlyTotals(ctx context.Context, accountID string, since time.Time, tz string) ([]store.MonthlyTotal, error)
	History(ctx context.Context, accountID string, limit, offset int) ([]store.TransactionDetail, error)
	CountOutgoing(ctx context.Context, accountID string) (int64, error)
	Receipt(ctx context.Context, accountID, transactionID string) (store.TransactionDetail, error)
	FrequentInternal(ctx context.Context, accountID string, limit int) ([]store.FrequentInternal, error)
	FrequentExternal(ctx context.Context, accountID string, limit int) ([]store.FrequentExternal, error)
	Statement(ctx context.Context, accountID string, limit int) ([]store.StatementLine, error)
	BillHistory(ctx context.Context, accountID string, limit int) ([]store.BillHistoryLine, error)
	DashboardTotals(ctx context.Context) (store.DashboardTotals, error)
	VolumeBetween(ctx context.Context, from, to time.Time) (store.VolumeTotal, error)
	DailyVolume(ctx context.Context, since time.Time, tz string) ([]store.DailyVolume, error)
}

type ReportAccounts interface {
	GetByUser(ctx context.Context, q store.Getter, userID string) (store.Account, error)
	GetHolder(ctx context.Context, accountNumber string) (store.AccountHolder, error)
}

type ReportUsers interface {
	GetByID(ctx context.Context, userID string) (store.User, error)
}

// ReportService answers read-only questions about accounts. Empty data is
// never an error.
type ReportService struct {
	reports  ReportStore
	accounts ReportAccounts
	users    ReportUsers
	lookup   store.Getter
	loc      *time.Location
	now      func() time.Time
}

func NewReportService(reports ReportStore, accounts ReportAccounts, users ReportUsers, lookup store.Getter, loc *time.Location) *ReportService {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportService{
		reports:  reports,
		accounts: accounts,
		users:    users,
		lookup:   lookup,
		loc:      loc,
		now:      time.Now,
	}
}

// Account returns the user's account, or nil when they have none yet.
func (s *ReportService) Account(ctx context.Context, userID string) (*store.Account, error) {
	account, err := s.accounts.GetByUser(ctx, s.lookup, userID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load account: %w", err)
	}
	return &account, nil
}

type MonthSummary struct {
	Month   string
	Label   string
	Income  int64
	Expense int64
	Savings int64
}

// FinancialSummary returns one entry per calendar month, oldest first,
// ending with the current month.
func (s *ReportService) FinancialSummary(ctx context.Context, userID string, months int) ([]MonthSummary, error) {
	if months <= 0 {
		months = defaultSummaryMonths
	}
	local := s.now().In(s.loc)
	first := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, s.loc).AddDate(0, -(months - 1), 0)

	summary := make([]MonthSummary, 0, months)
	for i := 0; i < months; i++ {
		month := first.AddDate(0, i, 0)
		summary = append(summary, MonthSummary{Month: month.Format("2006-01"), Label: month.Format("Jan 2006")})
	}

	account, err := s.Account(ctx, userID)
	if err != nil || account == nil {
		return summary, err
	}
	rows, err := s.reports.MonthlyTotals(ctx, account.ID, first, s.loc.String())
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	byMonth := make(map[string]store.MonthlyTotal, len(rows))
	for _, row := range rows {
		byMonth[row.Month] = row
	}
	for i := range summary {
		row := byMonth[summary[i].Month]
		summary[i].Income = row.Income
		summary[i].Expense = row.Expense
		if row.Income > row.Expense {
			summary[i].Savings = row.Income - row.Expense
		}
	}
	return summary, nil
}

type HistoryPage struct {
	Items       []store.TransactionDetail
	Total       int64
	CurrentPage int
	Limit       int
	HasMore     bool
}

// History pages through the user's outgoing transactions, newest first.
func (s *ReportService) History(ctx context.Context, userID string, page, limit int) (HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	result := HistoryPage{Items: []store.TransactionDetail{}, CurrentPage: page, Limit: limit}

	account, err := s.Account(ctx, userID)
	if err != nil || account == nil {
		return result, err
	}
	var items []store.TransactionDetail
	offset, ok := pageOffset(page, limit)
	if ok {
		items, err = s.reports.History(ctx, account.ID, limit, offset)
		if err != nil {
			return HistoryPage{}, fmt.Errorf("history: %w", err)
		}
	}
	total, err := s.reports.CountOutgoing(ctx, account.ID)
	if err != nil {
		return HistoryPage{}, fmt.Errorf("count history: %w", err)
	}
	if items != nil {
		result.Items = items
	}
	result.Total = total
	result.HasMore = ok && int64(offset+len(items)) < total
	return result, nil
}

// pageOffset returns the row offset of a 1-based page. ok is false when the
// page lies beyond any representable offset; such a page is simply empty.
func pageOffset(page, limit int) (offset int, ok bool) {
	if page-1 > (math.MaxInt-limit)/limit {
		return 0, false
	}
	return (page - 1) * limit, true
}

type Receipt struct {
	store.TransactionDetail
	FromAccount  string
	BillingMonth string
}

func (s *ReportService) Receipt(ctx context.Context, userID, transactionID string) (Receipt, error) {
	account, err := s.Account(ctx, userID)
	if err != nil {
		return Receipt{}, err
	}
	if account == nil {
		return Receipt{}, ErrTransactionNotFound
	}
	detail, err := s.reports.Receipt(ctx, account.ID, transactionID)
	if err != nil {
		if store.IsNotFound(err) {
			return Receipt{}, ErrTransactionNotFound
		}
		return Receipt{}, fmt.Errorf("receipt: %w", err)
	}
	receipt := Receipt{TransactionDetail: detail, FromAccount: account.AccountNumber}
	if detail.Type == models.TxBillPayment {
		receipt.BillingMonth = MonthLabel(detail.CreatedAt, s.loc)
	}
	return receipt, nil
}

type FrequentRecipients struct {
	Kind     models.RecipientKind
	Internal []store.FrequentInternal
	External []store.FrequentExternal
}

func (s *ReportService) FrequentRecipients(ctx context.Context, userID, kind string) (FrequentRecipients, error) {
	result := FrequentRecipients{Kind: models.RecipientKind(strings.ToLower(strings.TrimSpace(kind)))}
	switch result.Kind {
	case models.RecipientInternal:
		result.Internal = []store.FrequentInternal{}
	case models.RecipientExternal:
		result.External = []store.FrequentExternal{}
	default:
		return FrequentRecipients{}, ErrInvalidKind
	}

	account, err := s.Account(ctx, userID)
	if err != nil || account == nil {
		return result, err
	}
	if result.Kind == models.RecipientInternal {
		rows, err := s.reports.FrequentInternal(ctx, account.ID, frequentLimit)
		if err != nil {
			return FrequentRecipients{}, fmt.Errorf("frequent recipients: %w", err)
		}
		if rows != nil {
			result.Internal = rows
		}
		return result, nil
	}
	rows, err := s.reports.FrequentExternal(ctx, account.ID, frequentLimit)
	if err != nil {
		return FrequentRecipients{}, fmt.Errorf("frequent recipients: %w", err)
	}
	if rows != nil {
		result.External = rows
	}
	return result, nil
}

type StatementSummary struct {
	IncomingCount int
	IncomingTotal int64
	OutgoingCount int
	OutgoingTotal int64
}

type Statement struct {
	Customer    store.User
	Account     *store.Account
	Lines       []store.StatementLine
	Summary     StatementSummary
	GeneratedAt time.Time
}

// Statement returns the latest lines in both directions. Totals only count
// completed transactions; failed ones moved no money.
func (s *ReportService) Statement(ctx context.Context, userID string) (Statement, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if store.IsNotFound(err) {
			return Statement{}, ErrUserNotFound
		}
		return Statement{}, fmt.Errorf("load user: %w", err)
	}
	user.PasswordHash = ""
	statement := Statement{Customer: user, Lines: []store.StatementLine{}, GeneratedAt: s.now()}

	account, err := s.Account(ctx, userID)
	if err != nil || account == nil {
		return statement, err
	}
	statement.Account = account
	lines, err := s.reports.Statement(ctx, account.ID, statementLimit)
	if err != nil {
		return Statement{}, fmt.Errorf("statement: %w", err)
	}
	if lines != nil {
		statement.Lines = lines
	}
	for _, line := range statement.Lines {
		completed := line.Status == models.TxCompleted
		switch line.Direction {
		case "incoming":
			statement.Summary.IncomingCount++
			if completed {
				statement.Summary.IncomingTotal += line.Amount
			}
		default:
			statement.Summary.OutgoingCount++
			if completed {
				statement.Summary.OutgoingTotal += line.Amount
			}
		}
	}
	return statement, nil
}

func (s *ReportService) BillHistory(ctx context.Context, userID string) ([]store.BillHistoryLine, error) {
	account, err := s.Account(ctx, userID)
	if err != nil || account == nil {
		return []store.BillHistoryLine{}, err
	}
	rows, err := s.reports.BillHistory(ctx, account.ID, billHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("bill history: %w", err)
	}
	if rows == nil {
		rows = []store.BillHistoryLine{}
	}
	return rows, nil
}

// RecipientPreview lets a sender confirm who owns an account number.
func (s *ReportService) RecipientPreview(ctx context.Context, accountNumber string) (store.AccountHolder, error) {
	holder, err := s.accounts.GetHolder(ctx, strings.TrimSpace(accountNumber))
	if err != nil {
		if store.IsNotFound(err) {
			return store.AccountHolder{}, ErrRecipientNotFound
		}
		return store.AccountHolder{}, fmt.Errorf("load recipient: %w", err)
	}
	return holder, nil
}

type Dashboard struct {
	store.DashboardTotals
	Today  store.VolumeTotal
	Last7  []store.DailyVolume
	Last30 []store.DailyVolume
}

// Dashboard aggregates bank wide figures. The daily series cover every day
// up to today, with zeros for quiet days.
func (s *ReportService) Dashboard(ctx context.Context) (Dashboard, error) {
	totals, err := s.reports.DashboardTotals(ctx)
	if err != nil {
		return Dashboard{}, fmt.Errorf("dashboard totals: %w", err)
	}
	local := s.now().In(s.loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	volume, err := s.reports.VolumeBetween(ctx, today, today.AddDate(0, 0, 1))
	if err != nil {
		return Dashboard{}, fmt.Errorf("today volume: %w", err)
	}
	since := today.AddDate(0, 0, -29)
	rows, err := s.reports.DailyVolume(ctx, since, s.loc.String())
	if err != nil {
		return Dashboard{}, fmt.Errorf("daily volume: %w", err)
	}
	last30 := fillDays(rows, since, 30)
	return Dashboard{
		DashboardTotals: totals,
		Today:           volume,
		Last7:           last30[len(last30)-7:],
		Last30:          last30,
	}, nil
}

func fillDays(rows []store.DailyVolume, since time.Time, days int) []store.DailyVolume {
	byDay := make(map[string]store.DailyVolume, len(rows))
	for _, row := range rows {
		byDay[row.Day] = row
	}
	series := make([]store.DailyVolume, 0, days)
	for i := 0; i < days; i++ {
		day := since.AddDate(0, 0, i).Format("2006-01-02")
		row, ok := byDay[day]
		if !ok {
			row = store.DailyVolume{Day: day}
		}
		series = append(series, row)
	}
	return series
}
