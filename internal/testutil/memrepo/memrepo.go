// Package memrepo holds in-memory repositories for service tests.
package memrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	categoryrepo "github.com/FACorreiaa/paypay-tracker/internal/domain/category/repository"
	importrepo "github.com/FACorreiaa/paypay-tracker/internal/domain/import/repository"
	txrepo "github.com/FACorreiaa/paypay-tracker/internal/domain/transaction/repository"
)

// Store backs every repository in this package.
type Store struct {
	mu           sync.Mutex
	categories   []categoryrepo.Category
	rules        []categoryrepo.CategoryRule
	transactions []txrepo.Transaction
	uploads      []importrepo.CsvUpload

	// BeforeCreate runs ahead of each transaction insert; a non-nil error
	// is returned from Create.
	BeforeCreate func(input txrepo.CreateInput) error
	// FailFindByName makes category lookups by name fail.
	FailFindByName error
}

func New() *Store {
	return &Store{}
}

// AddCategory stores a category owned by userID.
func (s *Store) AddCategory(userID uuid.UUID, name, color string, isOther bool) categoryrepo.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := categoryrepo.Category{ID: uuid.New(), UserID: &userID, Name: name, Color: color, IsOther: isOther}
	s.categories = append(s.categories, c)
	return c
}

// AddTemplate stores a system category template.
func (s *Store) AddTemplate(name, color string, isOther bool) categoryrepo.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := categoryrepo.Category{ID: uuid.New(), Name: name, Color: color, IsDefault: true, IsOther: isOther}
	s.categories = append(s.categories, c)
	return c
}

// AddRule stores a rule. A nil userID makes it a system rule.
func (s *Store) AddRule(userID *uuid.UUID, keyword string, categoryID uuid.UUID, priority int) categoryrepo.CategoryRule {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := categoryrepo.CategoryRule{ID: uuid.New(), UserID: userID, Keyword: keyword, CategoryID: categoryID, Priority: priority}
	s.rules = append(s.rules, r)
	return r
}

// Transactions returns a copy of the stored transactions.
func (s *Store) Transactions() []txrepo.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]txrepo.Transaction(nil), s.transactions...)
}

// Uploads returns a copy of the stored uploads.
func (s *Store) Uploads() []importrepo.CsvUpload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]importrepo.CsvUpload(nil), s.uploads...)
}

func (s *Store) Categories() *Categories     { return &Categories{s} }
func (s *Store) Rules() *Rules               { return &Rules{s} }
func (s *Store) TransactionRepo() *Transacts { return &Transacts{s} }
func (s *Store) UploadRepo() *Uploads        { return &Uploads{s} }

// Categories implements categoryrepo.CategoryRepository.
type Categories struct{ s *Store }

func (r *Categories) FindByUserID(_ context.Context, userID uuid.UUID) ([]categoryrepo.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []categoryrepo.Category
	for _, c := range r.s.categories {
		if c.OwnedBy(userID) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *Categories) FindByID(_ context.Context, id uuid.UUID) (*categoryrepo.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.categories {
		if c.ID == id {
			cp := c
			return &cp, nil
		}
	}
	return nil, categoryrepo.ErrNotFound
}

func (r *Categories) FindByName(_ context.Context, userID uuid.UUID, name string) (*categoryrepo.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailFindByName != nil {
		return nil, r.s.FailFindByName
	}
	for _, c := range r.s.categories {
		if c.OwnedBy(userID) && c.Name == name {
			cp := c
			return &cp, nil
		}
	}
	return nil, categoryrepo.ErrNotFound
}

func (r *Categories) Create(_ context.Context, userID uuid.UUID, input categoryrepo.CategoryInput) (*categoryrepo.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := categoryrepo.Category{
		ID:           uuid.New(),
		UserID:       &userID,
		Name:         input.Name,
		Color:        input.Color,
		Icon:         input.Icon,
		DisplayOrder: input.DisplayOrder,
		IsDefault:    input.IsDefault,
		IsOther:      input.IsOther,
	}
	r.s.categories = append(r.s.categories, c)
	return &c, nil
}

func (r *Categories) Update(_ context.Context, id uuid.UUID, input categoryrepo.CategoryInput) (*categoryrepo.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, c := range r.s.categories {
		if c.ID == id {
			c.Name, c.Color, c.Icon = input.Name, input.Color, input.Icon
			c.DisplayOrder, c.IsDefault, c.IsOther = input.DisplayOrder, input.IsDefault, input.IsOther
			r.s.categories[i] = c
			return &c, nil
		}
	}
	return nil, categoryrepo.ErrNotFound
}

func (r *Categories) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, c := range r.s.categories {
		if c.ID == id {
			r.s.categories = append(r.s.categories[:i], r.s.categories[i+1:]...)
			return nil
		}
	}
	return categoryrepo.ErrNotFound
}

// LockOwner is a no-op; the store has no transactions to serialize.
func (r *Categories) LockOwner(context.Context, uuid.UUID) error {
	return nil
}

// Rules implements categoryrepo.RuleRepository.
type Rules struct{ s *Store }

func (r *Rules) visible(userID uuid.UUID) []categoryrepo.CategoryRule {
	var out []categoryrepo.CategoryRule
	for _, rule := range r.s.rules {
		if rule.UserID == nil || *rule.UserID == userID {
			out = append(out, rule)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.IsSystem() != b.IsSystem() {
			return !a.IsSystem()
		}
		return a.Keyword < b.Keyword
	})
	return out
}

func (r *Rules) FindByUserID(_ context.Context, userID uuid.UUID) ([]categoryrepo.CategoryRule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.visible(userID), nil
}

func (r *Rules) FindByID(_ context.Context, id uuid.UUID) (*categoryrepo.CategoryRule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rule := range r.s.rules {
		if rule.ID == id {
			cp := rule
			return &cp, nil
		}
	}
	return nil, categoryrepo.ErrNotFound
}

func (r *Rules) FindByCategoryID(_ context.Context, categoryID, userID uuid.UUID) ([]categoryrepo.CategoryRule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []categoryrepo.CategoryRule
	for _, rule := range r.visible(userID) {
		if rule.CategoryID == categoryID {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *Rules) CountOwned(_ context.Context, userID uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, rule := range r.s.rules {
		if rule.UserID != nil && *rule.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *Rules) Create(_ context.Context, userID uuid.UUID, input categoryrepo.RuleInput) (*categoryrepo.CategoryRule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rule := categoryrepo.CategoryRule{ID: uuid.New(), UserID: &userID, Keyword: input.Keyword, CategoryID: input.CategoryID, Priority: input.Priority}
	r.s.rules = append(r.s.rules, rule)
	return &rule, nil
}

func (r *Rules) Update(_ context.Context, id uuid.UUID, input categoryrepo.RuleInput) (*categoryrepo.CategoryRule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, rule := range r.s.rules {
		if rule.ID == id {
			rule.Keyword, rule.CategoryID, rule.Priority = input.Keyword, input.CategoryID, input.Priority
			r.s.rules[i] = rule
			return &rule, nil
		}
	}
	return nil, categoryrepo.ErrNotFound
}

func (r *Rules) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, rule := range r.s.rules {
		if rule.ID == id {
			r.s.rules = append(r.s.rules[:i], r.s.rules[i+1:]...)
			return nil
		}
	}
	return categoryrepo.ErrNotFound
}

// Transacts implements txrepo.TransactionRepository.
type Transacts struct{ s *Store }

func (r *Transacts) ExistsByExternalID(_ context.Context, userID uuid.UUID, externalID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.exists(userID, externalID), nil
}

func (r *Transacts) exists(userID uuid.UUID, externalID string) bool {
	for _, t := range r.s.transactions {
		if t.UserID == userID && t.ExternalTransactionID != nil && *t.ExternalTransactionID == externalID {
			return true
		}
	}
	return false
}

func (r *Transacts) Create(_ context.Context, input txrepo.CreateInput) (*txrepo.Transaction, error) {
	r.s.mu.Lock()
	hook := r.s.BeforeCreate
	r.s.mu.Unlock()
	if hook != nil {
		if err := hook(input); err != nil {
			return nil, err
		}
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if input.ExternalTransactionID != nil && r.exists(input.UserID, *input.ExternalTransactionID) {
		return nil, txrepo.ErrDuplicateTransaction
	}
	now := time.Now()
	t := txrepo.Transaction{
		ID:                    uuid.New(),
		UserID:                input.UserID,
		Date:                  wallClock(input.Date),
		Description:           input.Description,
		Amount:                input.Amount,
		PaymentMethod:         input.PaymentMethod,
		ExternalTransactionID: input.ExternalTransactionID,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	setCategory(&t, input.Category)
	r.s.transactions = append(r.s.transactions, t)
	return &t, nil
}

// wallClock drops the location the way a TIMESTAMP column does: the stored
// value keeps the local date and time fields and reads back as UTC.
func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// Insert stores t with its date reduced to wall-clock time.
func (r *Transacts) Insert(t txrepo.Transaction) txrepo.Transaction {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.Date = wallClock(t.Date)
	r.s.transactions = append(r.s.transactions, t)
	return t
}

func (r *Transacts) FindByUserID(_ context.Context, userID uuid.UUID, filter txrepo.Filter) ([]txrepo.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []txrepo.Transaction
	for _, t := range r.s.transactions {
		if t.UserID != userID {
			continue
		}
		if filter.From != nil && t.Date.Before(wallClock(*filter.From)) {
			continue
		}
		if filter.To != nil && !t.Date.Before(wallClock(*filter.To)) {
			continue
		}
		if filter.CategoryID != nil && (t.CategoryID == nil || *t.CategoryID != *filter.CategoryID) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *Transacts) FindByID(_ context.Context, id uuid.UUID) (*txrepo.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.transactions {
		if t.ID == id {
			cp := t
			return &cp, nil
		}
	}
	return nil, txrepo.ErrNotFound
}

func (r *Transacts) UpdateCategory(_ context.Context, id uuid.UUID, category *txrepo.CategoryRef) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.transactions {
		if r.s.transactions[i].ID == id {
			setCategory(&r.s.transactions[i], category)
			r.s.transactions[i].UpdatedAt = time.Now()
			return nil
		}
	}
	return txrepo.ErrNotFound
}

func (r *Transacts) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, t := range r.s.transactions {
		if t.ID == id {
			r.s.transactions = append(r.s.transactions[:i], r.s.transactions[i+1:]...)
			return nil
		}
	}
	return txrepo.ErrNotFound
}

func setCategory(t *txrepo.Transaction, category *txrepo.CategoryRef) {
	if category == nil {
		t.CategoryID, t.CategoryName, t.CategoryColor = nil, nil, nil
		return
	}
	id, name, color := category.ID, category.Name, category.Color
	t.CategoryID, t.CategoryName, t.CategoryColor = &id, &name, &color
}

// Uploads implements importrepo.CsvUploadRepository.
type Uploads struct{ s *Store }

func (r *Uploads) Create(_ context.Context, input importrepo.CreateInput) (*importrepo.CsvUpload, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	u := importrepo.CsvUpload{
		ID:          uuid.New(),
		UserID:      input.UserID,
		FileName:    input.FileName,
		RowCount:    input.RowCount,
		Status:      importrepo.StatusProcessing,
		RawSnapshot: input.RawSnapshot,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.s.uploads = append(r.s.uploads, u)
	return &u, nil
}

func (r *Uploads) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.uploads {
		if r.s.uploads[i].ID == id {
			r.s.uploads[i].Status = status
			return nil
		}
	}
	return importrepo.ErrNotFound
}

func (r *Uploads) FindByID(_ context.Context, id uuid.UUID) (*importrepo.CsvUpload, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.uploads {
		if u.ID == id {
			cp := u
			return &cp, nil
		}
	}
	return nil, importrepo.ErrNotFound
}

func (r *Uploads) FindByUserID(_ context.Context, userID uuid.UUID, limit int) ([]importrepo.CsvUpload, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []importrepo.CsvUpload
	for i := len(r.s.uploads) - 1; i >= 0; i-- {
		if r.s.uploads[i].UserID == userID {
			out = append(out, r.s.uploads[i])
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var (
	_ categoryrepo.CategoryRepository = (*Categories)(nil)
	_ categoryrepo.RuleRepository     = (*Rules)(nil)
	_ txrepo.TransactionRepository    = (*Transacts)(nil)
	_ importrepo.CsvUploadRepository  = (*Uploads)(nil)
)
