package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/paypay-tracker/internal/domain/category/repository"
)

// memStore is an in-memory implementation of every category repository.
type memStore struct {
	categories []repository.Category
	rules      []repository.CategoryRule

	// failRuleCreateAfter makes the n-th successful rule Create return failErr.
	failRuleCreateAfter int
	ruleCreates         int
	failErr             error

	// events records lock and read calls in order.
	events []string
}

func newMemStore() *memStore {
	return &memStore{failRuleCreateAfter: -1}
}

func (m *memStore) addTemplate(name string, order int, isOther bool) repository.Category {
	c := repository.Category{
		ID:           uuid.New(),
		Name:         name,
		Color:        "#000000",
		DisplayOrder: order,
		IsDefault:    true,
		IsOther:      isOther,
	}
	m.categories = append(m.categories, c)
	return c
}

func (m *memStore) addSystemRule(keyword string, categoryID uuid.UUID, priority int) repository.CategoryRule {
	r := repository.CategoryRule{ID: uuid.New(), Keyword: keyword, CategoryID: categoryID, Priority: priority}
	m.rules = append(m.rules, r)
	return r
}

func (m *memStore) owned(userID uuid.UUID) ([]repository.Category, []repository.CategoryRule) {
	var cats []repository.Category
	for _, c := range m.categories {
		if c.OwnedBy(userID) {
			cats = append(cats, c)
		}
	}
	var rules []repository.CategoryRule
	for _, r := range m.rules {
		if r.UserID != nil && *r.UserID == userID {
			rules = append(rules, r)
		}
	}
	return cats, rules
}

func (m *memStore) snapshot() *memStore {
	cp := *m
	cp.categories = append([]repository.Category(nil), m.categories...)
	cp.rules = append([]repository.CategoryRule(nil), m.rules...)
	return &cp
}

func (m *memStore) repos() repository.Repositories {
	return repository.Repositories{
		Categories:        memCategories{m},
		Rules:             memRules{m},
		DefaultCategories: memCategories{m},
		DefaultRules:      memRules{m},
	}
}

// WithinTx restores the previous state when fn fails.
func (m *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	saved := m.snapshot()
	if err := fn(ctx, m.repos()); err != nil {
		m.categories = saved.categories
		m.rules = saved.rules
		return err
	}
	return nil
}

type memCategories struct{ m *memStore }

func (r memCategories) FindAll(ctx context.Context) ([]repository.Category, error) {
	var out []repository.Category
	for _, c := range r.m.categories {
		if c.IsSystem() {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r memCategories) FindByUserID(ctx context.Context, userID uuid.UUID) ([]repository.Category, error) {
	r.m.events = append(r.m.events, "find:"+userID.String())
	cats, _ := r.m.owned(userID)
	return cats, nil
}

func (r memCategories) FindByID(ctx context.Context, id uuid.UUID) (*repository.Category, error) {
	for _, c := range r.m.categories {
		if c.ID == id {
			c := c
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memCategories) FindByName(ctx context.Context, userID uuid.UUID, name string) (*repository.Category, error) {
	for _, c := range r.m.categories {
		if c.OwnedBy(userID) && c.Name == name {
			c := c
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memCategories) Create(ctx context.Context, userID uuid.UUID, input repository.CategoryInput) (*repository.Category, error) {
	owner := userID
	c := repository.Category{
		ID:           uuid.New(),
		UserID:       &owner,
		Name:         input.Name,
		Color:        input.Color,
		Icon:         input.Icon,
		DisplayOrder: input.DisplayOrder,
		IsDefault:    input.IsDefault,
		IsOther:      input.IsOther,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	r.m.categories = append(r.m.categories, c)
	return &c, nil
}

func (r memCategories) Update(ctx context.Context, id uuid.UUID, input repository.CategoryInput) (*repository.Category, error) {
	for i, c := range r.m.categories {
		if c.ID == id {
			c.Name, c.Color, c.Icon = input.Name, input.Color, input.Icon
			c.DisplayOrder, c.IsDefault, c.IsOther = input.DisplayOrder, input.IsDefault, input.IsOther
			r.m.categories[i] = c
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memCategories) Delete(ctx context.Context, id uuid.UUID) error {
	for i, c := range r.m.categories {
		if c.ID == id {
			r.m.categories = append(r.m.categories[:i], r.m.categories[i+1:]...)
			kept := r.m.rules[:0]
			for _, rule := range r.m.rules {
				if rule.CategoryID != id {
					kept = append(kept, rule)
				}
			}
			r.m.rules = kept
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r memCategories) LockOwner(ctx context.Context, userID uuid.UUID) error {
	r.m.events = append(r.m.events, "lock:"+userID.String())
	return nil
}

type memRules struct{ m *memStore }

func sortRules(rules []repository.CategoryRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		a, b := rules[i], rules[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.IsSystem() != b.IsSystem() {
			return !a.IsSystem()
		}
		return a.Keyword < b.Keyword
	})
}

func (r memRules) FindAll(ctx context.Context) ([]repository.CategoryRule, error) {
	var out []repository.CategoryRule
	for _, rule := range r.m.rules {
		if rule.IsSystem() {
			out = append(out, rule)
		}
	}
	sortRules(out)
	return out, nil
}

func (r memRules) FindByUserID(ctx context.Context, userID uuid.UUID) ([]repository.CategoryRule, error) {
	var out []repository.CategoryRule
	for _, rule := range r.m.rules {
		if rule.IsSystem() || *rule.UserID == userID {
			out = append(out, rule)
		}
	}
	sortRules(out)
	return out, nil
}

func (r memRules) FindByID(ctx context.Context, id uuid.UUID) (*repository.CategoryRule, error) {
	for _, rule := range r.m.rules {
		if rule.ID == id {
			rule := rule
			return &rule, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memRules) FindByCategoryID(ctx context.Context, categoryID, userID uuid.UUID) ([]repository.CategoryRule, error) {
	all, _ := r.FindByUserID(ctx, userID)
	var out []repository.CategoryRule
	for _, rule := range all {
		if rule.CategoryID == categoryID {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r memRules) CountOwned(ctx context.Context, userID uuid.UUID) (int, error) {
	_, rules := r.m.owned(userID)
	return len(rules), nil
}

func (r memRules) Create(ctx context.Context, userID uuid.UUID, input repository.RuleInput) (*repository.CategoryRule, error) {
	if r.m.failRuleCreateAfter >= 0 && r.m.ruleCreates >= r.m.failRuleCreateAfter {
		return nil, r.m.failErr
	}
	r.m.ruleCreates++

	owner := userID
	rule := repository.CategoryRule{
		ID:         uuid.New(),
		UserID:     &owner,
		Keyword:    input.Keyword,
		CategoryID: input.CategoryID,
		Priority:   input.Priority,
	}
	r.m.rules = append(r.m.rules, rule)
	return &rule, nil
}

func (r memRules) Update(ctx context.Context, id uuid.UUID, input repository.RuleInput) (*repository.CategoryRule, error) {
	for i, rule := range r.m.rules {
		if rule.ID == id {
			rule.Keyword, rule.CategoryID, rule.Priority = input.Keyword, input.CategoryID, input.Priority
			r.m.rules[i] = rule
			return &rule, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memRules) Delete(ctx context.Context, id uuid.UUID) error {
	for i, rule := range r.m.rules {
		if rule.ID == id {
			r.m.rules = append(r.m.rules[:i], r.m.rules[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

var errStore = errors.New("store unavailable")
