package repository

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"gopkg.in/yaml.v3"

	"github.com/FACorreiaa/paypay-tracker/pkg/db"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// SeedCategory is a system category template as written in the seed file
type SeedCategory struct {
	Name         string  `yaml:"name"`
	Color        string  `yaml:"color"`
	Icon         *string `yaml:"icon"`
	DisplayOrder int     `yaml:"display_order"`
	IsDefault    bool    `yaml:"is_default"`
	IsOther      bool    `yaml:"is_other"`
}

// SeedRule is a system rule; Category refers to a SeedCategory by name
type SeedRule struct {
	Keyword  string `yaml:"keyword"`
	Category string `yaml:"category"`
	Priority int    `yaml:"priority"`
}

// Defaults is the parsed seed document
type Defaults struct {
	Categories []SeedCategory `yaml:"categories"`
	Rules      []SeedRule     `yaml:"rules"`
}

// SeedResult reports how many templates were written
type SeedResult struct {
	Categories int
	Rules      int
}

// LoadDefaults parses a seed document. Every rule must name a category
// declared in the same document.
func LoadDefaults(data []byte) (*Defaults, error) {
	var d Defaults
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse defaults: %w", err)
	}

	names := make(map[string]bool, len(d.Categories))
	for _, c := range d.Categories {
		if c.Name == "" {
			return nil, fmt.Errorf("default category without a name")
		}
		names[c.Name] = true
	}
	for _, r := range d.Rules {
		if r.Keyword == "" {
			return nil, fmt.Errorf("default rule for %q without a keyword", r.Category)
		}
		if !names[r.Category] {
			return nil, fmt.Errorf("default rule %q references unknown category %q", r.Keyword, r.Category)
		}
	}
	return &d, nil
}

// EmbeddedDefaults returns the built-in seed document.
func EmbeddedDefaults() (*Defaults, error) {
	return LoadDefaults(defaultsYAML)
}

// Seeder upserts system category templates and rules.
type Seeder struct {
	db     db.TxBeginner
	logger *slog.Logger
}

// NewSeeder creates a new seeder
func NewSeeder(b db.TxBeginner, logger *slog.Logger) *Seeder {
	return &Seeder{db: b, logger: logger}
}

// Seed writes defaults in one transaction. Templates are keyed by category
// name and rule keyword, so running it again updates rather than duplicates.
func (s *Seeder) Seed(ctx context.Context, defaults *Defaults) (*SeedResult, error) {
	result := &SeedResult{}

	err := db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		ids := make(map[string]uuid.UUID, len(defaults.Categories))

		for _, c := range defaults.Categories {
			var id uuid.UUID
			err := tx.QueryRow(ctx, `
				INSERT INTO categories (id, user_id, name, color, icon, display_order, is_default, is_other)
				VALUES ($1, NULL, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (name) WHERE user_id IS NULL DO UPDATE
				SET color = EXCLUDED.color, icon = EXCLUDED.icon, display_order = EXCLUDED.display_order,
					is_default = EXCLUDED.is_default, is_other = EXCLUDED.is_other, updated_at = now()
				RETURNING id`,
				uuid.New(), c.Name, c.Color, c.Icon, c.DisplayOrder, c.IsDefault, c.IsOther,
			).Scan(&id)
			if err != nil {
				return fmt.Errorf("failed to seed category %q: %w", c.Name, err)
			}
			ids[c.Name] = id
			result.Categories++
		}

		for _, r := range defaults.Rules {
			_, err := tx.Exec(ctx, `
				INSERT INTO category_rules (id, user_id, keyword, category_id, priority)
				VALUES ($1, NULL, $2, $3, $4)
				ON CONFLICT (keyword) WHERE user_id IS NULL DO UPDATE
				SET category_id = EXCLUDED.category_id, priority = EXCLUDED.priority, updated_at = now()`,
				uuid.New(), r.Keyword, ids[r.Category], r.Priority,
			)
			if err != nil {
				return fmt.Errorf("failed to seed rule %q: %w", r.Keyword, err)
			}
			result.Rules++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("seeded system categories",
		slog.Int("categories", result.Categories),
		slog.Int("rules", result.Rules),
	)
	return result, nil
}
