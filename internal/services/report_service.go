package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ledgerly/backend/internal/ledger"
	"github.com/ledgerly/backend/internal/models"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// ReportService aggregates read-only views over the ledger.
type ReportService struct {
	Deps
	bills *BillService
	goals *GoalService
}

type CurrencySummary struct {
	Currency   string                     `json:"currency"`
	Income     decimal.Decimal            `json:"income"`
	Expenses   decimal.Decimal            `json:"expenses"`
	Net        decimal.Decimal            `json:"net"`
	ByCategory map[string]decimal.Decimal `json:"byCategory"`
}

type MonthlySummary struct {
	Year       int               `json:"year"`
	Month      time.Month        `json:"month"`
	Currencies []CurrencySummary `json:"currencies"`
}

type CurrencyNetWorth struct {
	Currency    string          `json:"currency"`
	Assets      decimal.Decimal `json:"assets"`
	Liabilities decimal.Decimal `json:"liabilities"`
	Net         decimal.Decimal `json:"net"`
}

type NetWorth struct {
	Currencies []CurrencyNetWorth `json:"currencies"`
}

type Dashboard struct {
	Accounts []models.Account `json:"accounts"`
	NetWorth NetWorth         `json:"netWorth"`
	Month    MonthlySummary   `json:"month"`
	DueBills []models.Bill    `json:"dueBills"`
	Goals    []models.Goal    `json:"goals"`
}

func NewReportService(deps Deps, bills *BillService, goals *GoalService) *ReportService {
	return &ReportService{Deps: deps.withDefaults(), bills: bills, goals: goals}
}

// MonthlySummary totals income and spending for one calendar month, per
// account currency. Transfers move money between the user's own accounts
// and are left out.
func (s *ReportService) MonthlySummary(ctx context.Context, year int, month time.Month) (MonthlySummary, error) {
	out := MonthlySummary{Year: year, Month: month, Currencies: []CurrencySummary{}}
	userID, err := currentUser(ctx)
	if err != nil {
		return out, nil
	}

	accts, err := s.Store.ListAccounts(ctx, userID)
	if err != nil {
		return out, fmt.Errorf("list accounts: %w", err)
	}
	currencyOf := make(map[string]string, len(accts))
	for _, a := range accts {
		currencyOf[a.ID] = a.Currency
	}

	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	txns, err := s.Store.ListTransactions(ctx, userID, models.TransactionFilter{
		From: start,
		To:   start.AddDate(0, 1, -1),
	})
	if err != nil {
		return out, fmt.Errorf("list transactions: %w", err)
	}

	byCurrency := map[string]*CurrencySummary{}
	for _, t := range txns {
		kind, err := ledger.ParseKind(t.Type, t.Amount)
		if err != nil || kind == ledger.TransferIn || kind == ledger.TransferOut {
			continue
		}
		cur := currencyOf[t.AccountID]
		sum, ok := byCurrency[cur]
		if !ok {
			sum = &CurrencySummary{Currency: cur, ByCategory: map[string]decimal.Decimal{}}
			byCurrency[cur] = sum
		}

		mag := t.Amount.Abs()
		if kind == ledger.Income {
			sum.Income = sum.Income.Add(mag)
			continue
		}
		sum.Expenses = sum.Expenses.Add(mag)
		category := t.Category
		if category == "" {
			category = "Uncategorized"
		}
		sum.ByCategory[category] = sum.ByCategory[category].Add(mag)
	}

	for _, sum := range byCurrency {
		sum.Net = sum.Income.Sub(sum.Expenses)
		out.Currencies = append(out.Currencies, *sum)
	}
	sort.Slice(out.Currencies, func(i, j int) bool {
		return out.Currencies[i].Currency < out.Currencies[j].Currency
	})
	return out, nil
}

// NetWorth sums account balances per currency. Credit balances are owed and
// count as liabilities.
func (s *ReportService) NetWorth(ctx context.Context) (NetWorth, error) {
	out := NetWorth{Currencies: []CurrencyNetWorth{}}
	userID, err := currentUser(ctx)
	if err != nil {
		return out, nil
	}
	accts, err := s.Store.ListAccounts(ctx, userID)
	if err != nil {
		return out, fmt.Errorf("list accounts: %w", err)
	}
	return netWorthOf(accts), nil
}

func netWorthOf(accts []models.Account) NetWorth {
	out := NetWorth{Currencies: []CurrencyNetWorth{}}
	idx := map[string]int{}
	for _, a := range accts {
		i, ok := idx[a.Currency]
		if !ok {
			i = len(out.Currencies)
			idx[a.Currency] = i
			out.Currencies = append(out.Currencies, CurrencyNetWorth{Currency: a.Currency})
		}
		c := &out.Currencies[i]
		contrib := ledger.NetWorthContribution(a)
		if contrib.IsNegative() {
			c.Liabilities = c.Liabilities.Add(contrib.Abs())
		} else {
			c.Assets = c.Assets.Add(contrib)
		}
		c.Net = c.Net.Add(contrib)
	}
	sort.Slice(out.Currencies, func(i, j int) bool {
		return out.Currencies[i].Currency < out.Currencies[j].Currency
	})
	return out
}

// Dashboard loads the overview panels concurrently.
func (s *ReportService) Dashboard(ctx context.Context, today time.Time) (Dashboard, error) {
	if today.IsZero() {
		today = s.today()
	}
	var d Dashboard

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		userID, err := currentUser(gctx)
		if err != nil {
			d.Accounts = []models.Account{}
			d.NetWorth = netWorthOf(nil)
			return nil
		}
		accts, err := s.Store.ListAccounts(gctx, userID)
		if err != nil {
			return err
		}
		d.Accounts = accts
		d.NetWorth = netWorthOf(accts)
		return nil
	})
	g.Go(func() error {
		m, err := s.MonthlySummary(gctx, today.Year(), today.Month())
		d.Month = m
		return err
	})
	g.Go(func() error {
		bills, err := s.bills.List(gctx, today)
		if err != nil {
			return err
		}
		d.DueBills = []models.Bill{}
		for _, b := range bills {
			if b.Status == models.StatusOverdue || b.Status == models.StatusDueSoon {
				d.DueBills = append(d.DueBills, b)
			}
		}
		return nil
	})
	g.Go(func() error {
		goals, err := s.goals.List(gctx)
		d.Goals = goals
		return err
	})

	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}
