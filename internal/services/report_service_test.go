package services

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"testing"
	"time"

	"backoffice/internal/models"
	"backoffice/internal/store"
)

type stubReportStore struct {
	monthlyFn   func(ctx context.Context, accountID string, since time.Time, tz string) ([]store.MonthlyTotal, error)
	historyFn   func(ctx context.Context, accountID string, limit, offset int) ([]store.TransactionDetail, error)
	countFn     func(ctx context.Context, accountID string) (int64, error)
	receiptFn   func(ctx context.Context, accountID, transactionID string) (store.TransactionDetail, error)
	statementFn func(ctx context.Context, accountID string, limit int) ([]store.StatementLine, error)
	dailyFn     func(ctx context.Context, since time.Time, tz string) ([]store.DailyVolume, error)
}

func (s stubReportStore) MonthlyTotals(ctx context.Context, accountID string, since time.Time, tz string) ([]store.MonthlyTotal, error) {
	if s.monthlyFn == nil {
		return nil, nil
	}
	return s.monthlyFn(ctx, accountID, since, tz)
}

func (s stubReportStore) History(ctx context.Context, accountID string, limit, offset int) ([]store.TransactionDetail, error) {
	if s.historyFn == nil {
		return nil, nil
	}
	return s.historyFn(ctx, accountID, limit, offset)
}

func (s stubReportStore) CountOutgoing(ctx context.Context, accountID string) (int64, error) {
	if s.countFn == nil {
		return 0, nil
	}
	return s.countFn(ctx, accountID)
}

func (s stubReportStore) Receipt(ctx context.Context, accountID, transactionID string) (store.TransactionDetail, error) {
	if s.receiptFn == nil {
		return store.TransactionDetail{}, sql.ErrNoRows
	}
	return s.receiptFn(ctx, accountID, transactionID)
}

func (s stubReportStore) FrequentInternal(context.Context, string, int) ([]store.FrequentInternal, error) {
	return nil, nil
}

func (s stubReportStore) FrequentExternal(context.Context, string, int) ([]store.FrequentExternal, error) {
	return nil, nil
}

func (s stubReportStore) Statement(ctx context.Context, accountID string, limit int) ([]store.StatementLine, error) {
	if s.statementFn == nil {
		return nil, nil
	}
	return s.statementFn(ctx, accountID, limit)
}

func (s stubReportStore) BillHistory(context.Context, string, int) ([]store.BillHistoryLine, error) {
	return nil, nil
}

func (s stubReportStore) DashboardTotals(context.Context) (store.DashboardTotals, error) {
	return store.DashboardTotals{}, nil
}

func (s stubReportStore) VolumeBetween(context.Context, time.Time, time.Time) (store.VolumeTotal, error) {
	return store.VolumeTotal{}, nil
}

func (s stubReportStore) DailyVolume(ctx context.Context, since time.Time, tz string) ([]store.DailyVolume, error) {
	if s.dailyFn == nil {
		return nil, nil
	}
	return s.dailyFn(ctx, since, tz)
}

func newReports(bank *fakeBank, reports ReportStore, now time.Time) *ReportService {
	s := NewReportService(reports, fakeAccounts{bank}, fakeUsers{bank}, nil, time.UTC)
	s.now = func() time.Time { return now }
	return s
}

func TestFinancialSummaryFillsEmptyMonths(t *testing.T) {
	bank := newFakeBank()
	bank.addAccount("acc-a", "user-a", "ACC-2026-0001", 0, models.AccountActive)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	var since time.Time
	reports := newReports(bank, stubReportStore{
		monthlyFn: func(_ context.Context, _ string, s time.Time, _ string) ([]store.MonthlyTotal, error) {
			since = s
			return []store.MonthlyTotal{
				{Month: "2026-01", Income: 5000, Expense: 2000},
				{Month: "2026-03", Income: 1000, Expense: 4000},
			}, nil
		},
	}, now)

	summary, err := reports.FinancialSummary(context.Background(), "user-a", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summary) != 6 {
		t.Fatalf("expected 6 months, got %d", len(summary))
	}
	if summary[0].Month != "2025-10" || summary[5].Month != "2026-03" || summary[5].Label != "Mar 2026" {
		t.Fatalf("unexpected months %+v", summary)
	}
	if !since.Equal(time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected window start %s", since)
	}
	if summary[3].Income != 5000 || summary[3].Savings != 3000 {
		t.Fatalf("unexpected January %+v", summary[3])
	}
	if summary[5].Expense != 4000 || summary[5].Savings != 0 {
		t.Fatalf("savings must not go negative: %+v", summary[5])
	}
	if summary[4].Income != 0 || summary[4].Expense != 0 {
		t.Fatalf("quiet month should be zero: %+v", summary[4])
	}
}

func TestFinancialSummaryWithoutAccount(t *testing.T) {
	reports := newReports(newFakeBank(), stubReportStore{
		monthlyFn: func(context.Context, string, time.Time, string) ([]store.MonthlyTotal, error) {
			t.Fatalf("unexpected store call")
			return nil, nil
		},
	}, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))

	summary, err := reports.FinancialSummary(context.Background(), "nobody", 3)
	if err != nil || len(summary) != 3 {
		t.Fatalf("expected three zero months, got %+v %v", summary, err)
	}
	account, err := reports.Account(context.Background(), "nobody")
	if err != nil || account != nil {
		t.Fatalf("expected nil account, got %+v %v", account, err)
	}
}

func TestHistoryPaging(t *testing.T) {
	bank := newFakeBank()
	bank.addAccount("acc-a", "user-a", "ACC-2026-0001", 0, models.AccountActive)

	var gotLimit, gotOffset int
	reports := newReports(bank, stubReportStore{
		historyFn: func(_ context.Context, _ string, limit, offset int) ([]store.TransactionDetail, error) {
			gotLimit, gotOffset = limit, offset
			return make([]store.TransactionDetail, 15), nil
		},
		countFn: func(context.Context, string) (int64, error) { return 40, nil },
	}, time.Now())

	page, err := reports.History(context.Background(), "user-a", 2, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotLimit != 15 || gotOffset != 15 {
		t.Fatalf("expected limit 15 offset 15, got %d %d", gotLimit, gotOffset)
	}
	if page.Total != 40 || !page.HasMore || page.CurrentPage != 2 {
		t.Fatalf("unexpected page %+v", page)
	}

	page, err = reports.History(context.Background(), "user-a", 3, 500)
	if err != nil || gotLimit != 100 || gotOffset != 200 || page.HasMore {
		t.Fatalf("unexpected capped page %+v limit=%d offset=%d err=%v", page, gotLimit, gotOffset, err)
	}

	empty, err := newReports(bank, stubReportStore{}, time.Now()).History(context.Background(), "nobody", 1, 10)
	if err != nil || empty.Items == nil || len(empty.Items) != 0 {
		t.Fatalf("expected empty page, got %+v %v", empty, err)
	}
}

func TestHistoryPageBeyondRange(t *testing.T) {
	bank := newFakeBank()
	bank.addAccount("acc-a", "user-a", "ACC-2026-0001", 0, models.AccountActive)

	called := false
	reports := newReports(bank, stubReportStore{
		historyFn: func(_ context.Context, _ string, _, offset int) ([]store.TransactionDetail, error) {
			called = true
			if offset < 0 {
				t.Fatalf("negative offset %d", offset)
			}
			return nil, nil
		},
		countFn: func(context.Context, string) (int64, error) { return 3, nil },
	}, time.Now())

	for _, page := range []int{math.MaxInt / 50, math.MaxInt} {
		result, err := reports.History(context.Background(), "user-a", page, 100)
		if err != nil {
			t.Fatalf("page %d: unexpected error: %v", page, err)
		}
		if len(result.Items) != 0 || result.HasMore || result.Total != 3 {
			t.Fatalf("page %d: expected an empty last page, got %+v", page, result)
		}
	}
	if called {
		t.Fatal("out of range pages must not reach the store")
	}
}

func TestPageOffset(t *testing.T) {
	if offset, ok := pageOffset(3, 20); !ok || offset != 40 {
		t.Fatalf("expected 40, got %d %v", offset, ok)
	}
	if _, ok := pageOffset(math.MaxInt/100+1, 100); ok {
		t.Fatal("expected overflowing page to be rejected")
	}
}

func TestReceipt(t *testing.T) {
	bank := newFakeBank()
	bank.addAccount("acc-a", "user-a", "ACC-2026-0001", 0, models.AccountActive)
	paidAt := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	reports := newReports(bank, stubReportStore{
		receiptFn: func(_ context.Context, accountID, id string) (store.TransactionDetail, error) {
			if accountID != "acc-a" || id != "tx-1" {
				return store.TransactionDetail{}, sql.ErrNoRows
			}
			return store.TransactionDetail{ID: id, Type: models.TxBillPayment, CreatedAt: paidAt}, nil
		},
	}, time.Now())

	receipt, err := reports.Receipt(context.Background(), "user-a", "tx-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receipt.FromAccount != "ACC-2026-0001" || receipt.BillingMonth != "January 2026" {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
	if _, err := reports.Receipt(context.Background(), "user-a", "tx-other"); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
	if _, err := reports.Receipt(context.Background(), "nobody", "tx-1"); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
}

func TestFrequentRecipientsKind(t *testing.T) {
	bank := newFakeBank()
	reports := newReports(bank, stubReportStore{}, time.Now())

	result, err := reports.FrequentRecipients(context.Background(), "nobody", "Internal")
	if err != nil || result.Kind != models.RecipientInternal || result.Internal == nil {
		t.Fatalf("unexpected result %+v %v", result, err)
	}
	if _, err := reports.FrequentRecipients(context.Background(), "nobody", "wire"); !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}

func TestStatementTotalsCountCompletedOnly(t *testing.T) {
	bank := newFakeBank()
	bank.addAccount("acc-a", "user-a", "ACC-2026-0001", 0, models.AccountActive)
	reports := newReports(bank, stubReportStore{
		statementFn: func(context.Context, string, int) ([]store.StatementLine, error) {
			return []store.StatementLine{
				{Direction: "incoming", Status: models.TxCompleted, Amount: 700},
				{Direction: "outgoing", Status: models.TxCompleted, Amount: 200},
				{Direction: "outgoing", Status: models.TxFailed, Amount: 900},
			}, nil
		},
	}, time.Now())

	statement, err := reports.Statement(context.Background(), "user-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if statement.Customer.PasswordHash != "" {
		t.Fatalf("statement leaked password hash")
	}
	want := StatementSummary{IncomingCount: 1, IncomingTotal: 700, OutgoingCount: 2, OutgoingTotal: 200}
	if statement.Summary != want {
		t.Fatalf("expected %+v, got %+v", want, statement.Summary)
	}
	if _, err := reports.Statement(context.Background(), "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestRecipientPreview(t *testing.T) {
	bank := newFakeBank()
	bank.addAccount("acc-b", "user-b", "ACC-2026-0002", 0, models.AccountFrozen)
	reports := newReports(bank, stubReportStore{}, time.Now())

	holder, err := reports.RecipientPreview(context.Background(), " ACC-2026-0002 ")
	if err != nil || holder.FullName != "User user-b" || holder.Status != models.AccountFrozen {
		t.Fatalf("unexpected holder %+v %v", holder, err)
	}
	if _, err := reports.RecipientPreview(context.Background(), "ACC-2026-0404"); !errors.Is(err, ErrRecipientNotFound) {
		t.Fatalf("expected ErrRecipientNotFound, got %v", err)
	}
}

func TestDashboardFillsDailySeries(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	reports := newReports(newFakeBank(), stubReportStore{
		dailyFn: func(_ context.Context, since time.Time, _ string) ([]store.DailyVolume, error) {
			if !since.Equal(time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC)) {
				t.Fatalf("unexpected since %s", since)
			}
			return []store.DailyVolume{{Day: "2026-03-10", Count: 2, Amount: 500}}, nil
		},
	}, now)

	dashboard, err := reports.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dashboard.Last30) != 30 || len(dashboard.Last7) != 7 {
		t.Fatalf("unexpected series lengths %d %d", len(dashboard.Last30), len(dashboard.Last7))
	}
	if dashboard.Last30[0].Day != "2026-02-09" || dashboard.Last7[0].Day != "2026-03-04" {
		t.Fatalf("unexpected first days %s %s", dashboard.Last30[0].Day, dashboard.Last7[0].Day)
	}
	last := dashboard.Last7[6]
	if last.Day != "2026-03-10" || last.Count != 2 || last.Amount != 500 {
		t.Fatalf("unexpected today %+v", last)
	}
}
