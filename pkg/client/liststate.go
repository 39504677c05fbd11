package client

import (
	"context"
	"sync"
	"time"
)

// ListState is a stateful view over the expense list endpoint: it remembers
// filter, sort and page, and supports optimistic deletes that roll back when
// the server rejects them.
type ListState struct {
	client *Client

	mu         sync.Mutex
	params     ListParams
	expenses   []Expense
	total      int
	totalPages int
	loaded     bool
}

func NewListState(c *Client) *ListState {
	return &ListState{client: c, params: ListParams{Page: 1}}
}

// Refresh fetches the current page from the server.
func (s *ListState) Refresh(ctx context.Context) error {
	s.mu.Lock()
	params := s.params
	s.mu.Unlock()

	page, err := s.client.ListExpenses(ctx, params)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.expenses = page.Data
	s.total = page.Pagination.TotalItems
	s.totalPages = page.Pagination.TotalPages
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// SetDateRange changes the filter and resets to the first page.
func (s *ListState) SetDateRange(start, end *time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params.StartDate = start
	s.params.EndDate = end
	s.params.Page = 1
}

// SetSort changes the ordering and resets to the first page.
func (s *ListState) SetSort(sortBy, order string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params.SortBy = sortBy
	s.params.Order = order
	s.params.Page = 1
}

// SetPage moves to the given page without touching filter or sort.
func (s *ListState) SetPage(page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if page >= 1 {
		s.params.Page = page
	}
}

// SetLimit changes the page size and resets to the first page.
func (s *ListState) SetLimit(limit int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit >= 1 {
		s.params.Limit = limit
		s.params.Page = 1
	}
}

// Expenses returns a copy of the current page snapshot.
func (s *ListState) Expenses() []Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Expense, len(s.expenses))
	copy(out, s.expenses)
	return out
}

// Total returns the filtered row count from the last refresh.
func (s *ListState) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// TotalPages returns the page count from the last refresh.
func (s *ListState) TotalPages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalPages
}

// Page returns the currently selected page number.
func (s *ListState) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params.Page
}

// Delete removes the expense optimistically: the row disappears from the
// snapshot immediately, comes back if the server rejects the delete, and on
// success the page is refetched to pull rows shifted in from later pages.
func (s *ListState) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	snapshot := make([]Expense, len(s.expenses))
	copy(snapshot, s.expenses)
	snapshotTotal := s.total

	kept := s.expenses[:0:0]
	for _, e := range s.expenses {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	if len(kept) < len(s.expenses) {
		s.expenses = kept
		s.total--
	}
	s.mu.Unlock()

	if err := s.client.DeleteExpense(ctx, id); err != nil {
		s.mu.Lock()
		s.expenses = snapshot
		s.total = snapshotTotal
		s.mu.Unlock()
		return err
	}

	return s.Refresh(ctx)
}
