package services

import (
	"context"
	"sort"
	"time"

	"wallet/internal/models"
)

const (
	SortByAmount = "amount"
	SortByStatus = "status"

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Filter narrows a user's transaction history. Zero values mean "no
// constraint". Currency matches the source wallet's currency only.
type Filter struct {
	Date      *time.Time
	StartDate *time.Time
	EndDate   *time.Time
	Kind      string
	WalletID  string
	Currency  string
	SortBy    string
	SortOrder string
}

// TransactionView is a transaction decorated with its direction relative
// to the requesting user's wallets.
type TransactionView struct {
	models.Transaction
	Direction string `json:"direction"`
}

type FilterResult struct {
	Items      []TransactionView
	TotalCount int
	Page       int
	PageSize   int
}

// FilterTransactions loads every transaction touching one of the user's
// wallets and applies, in order: date constraints, kind, wallet, currency,
// sort, order, pagination. TotalCount is taken before pagination.
func (s *TransactionService) FilterTransactions(ctx context.Context, page, pageSize int, filter Filter, userID string) (FilterResult, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	walletIDs, err := s.wallets.GetUserWalletIDs(ctx, userID)
	if err != nil {
		return FilterResult{}, err
	}
	owned := make(map[string]struct{}, len(walletIDs))
	for _, id := range walletIDs {
		owned[id] = struct{}{}
	}
	transactions, err := s.transactions.ListByWallets(ctx, walletIDs)
	if err != nil {
		return FilterResult{}, err
	}

	// The range search assumes date order; sort explicitly rather than
	// trusting the store.
	sort.SliceStable(transactions, func(i, j int) bool {
		return transactions[i].CreatedAt.Before(transactions[j].CreatedAt)
	})
	transactions = filterByDate(transactions, filter)

	filtered := transactions[:0:0]
	for _, t := range transactions {
		if filter.Kind != "" && t.Kind != filter.Kind {
			continue
		}
		if filter.WalletID != "" && !touchesWallet(t, filter.WalletID) {
			continue
		}
		if filter.Currency != "" && t.OriginalCurrency != filter.Currency {
			continue
		}
		filtered = append(filtered, t)
	}

	sortTransactions(filtered, filter.SortBy, filter.SortOrder)

	total := len(filtered)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	items := make([]TransactionView, 0, end-start)
	for _, t := range filtered[start:end] {
		items = append(items, TransactionView{Transaction: t, Direction: direction(t, owned)})
	}
	return FilterResult{Items: items, TotalCount: total, Page: page, PageSize: pageSize}, nil
}

// filterByDate narrows transactions to the requested day or range using
// binary search over the date-sorted slice.
func filterByDate(transactions []models.Transaction, filter Filter) []models.Transaction {
	var start, end time.Time
	var endExclusive bool
	switch {
	case filter.Date != nil:
		// [midnight, next midnight): a transaction stamped exactly at the
		// next midnight belongs to the following day.
		start = filter.Date.Truncate(24 * time.Hour)
		end = start.Add(24 * time.Hour)
		endExclusive = true
	case filter.StartDate != nil || filter.EndDate != nil:
		start = time.Time{}
		end = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)
		if filter.StartDate != nil {
			start = *filter.StartDate
		}
		if filter.EndDate != nil {
			end = *filter.EndDate
		}
		if start.After(end) {
			return nil
		}
	default:
		return transactions
	}

	lo := sort.Search(len(transactions), func(i int) bool {
		return !transactions[i].CreatedAt.Before(start)
	})
	hi := sort.Search(len(transactions), func(i int) bool {
		if endExclusive {
			return !transactions[i].CreatedAt.Before(end)
		}
		return transactions[i].CreatedAt.After(end)
	})
	if lo >= hi {
		return nil
	}
	return transactions[lo:hi]
}

func sortTransactions(transactions []models.Transaction, sortBy, order string) {
	switch sortBy {
	case SortByAmount:
		sort.SliceStable(transactions, func(i, j int) bool {
			return transactions[i].Amount.LessThan(transactions[j].Amount)
		})
		if order == OrderDesc {
			reverse(transactions)
		}
	case SortByStatus:
		sort.SliceStable(transactions, func(i, j int) bool {
			return transactions[i].Status < transactions[j].Status
		})
		if order == OrderDesc {
			reverse(transactions)
		}
	default:
		// Date, newest first unless asked otherwise.
		sort.SliceStable(transactions, func(i, j int) bool {
			return transactions[i].CreatedAt.After(transactions[j].CreatedAt)
		})
		if order == OrderAsc {
			reverse(transactions)
		}
	}
}

func reverse(transactions []models.Transaction) {
	for i, j := 0, len(transactions)-1; i < j; i, j = i+1, j-1 {
		transactions[i], transactions[j] = transactions[j], transactions[i]
	}
}

func touchesWallet(t models.Transaction, walletID string) bool {
	if t.WalletID == walletID {
		return true
	}
	return t.RecipientWalletID != nil && *t.RecipientWalletID == walletID
}

// direction is derived relative to the requesting user's wallets: deposits
// are incoming, withdrawals outgoing, transfers incoming only when the
// user is on the receiving side and not the sending one.
func direction(t models.Transaction, owned map[string]struct{}) string {
	switch t.Kind {
	case models.KindDeposit:
		return models.DirectionIncoming
	case models.KindWithdraw:
		return models.DirectionOutgoing
	default:
		_, ownsSource := owned[t.WalletID]
		if !ownsSource && t.RecipientWalletID != nil {
			if _, ok := owned[*t.RecipientWalletID]; ok {
				return models.DirectionIncoming
			}
		}
		return models.DirectionOutgoing
	}
}
