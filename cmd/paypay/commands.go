package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	categoryrepo "github.com/FACorreiaa/paypay-tracker/internal/domain/category/repository"
	importservice "github.com/FACorreiaa/paypay-tracker/internal/domain/import/service"
	txrepo "github.com/FACorreiaa/paypay-tracker/internal/domain/transaction/repository"
	txservice "github.com/FACorreiaa/paypay-tracker/internal/domain/transaction/service"
	"github.com/FACorreiaa/paypay-tracker/pkg/money"
)

func runMigrate(ctx context.Context, deps *Dependencies, _ []string) error {
	if err := deps.DB.RunMigrations(ctx); err != nil {
		return err
	}
	success("migrations applied")
	return nil
}

func runSeed(ctx context.Context, deps *Dependencies, _ []string) error {
	defaults, err := categoryrepo.EmbeddedDefaults()
	if err != nil {
		return err
	}
	result, err := deps.Seeder.Seed(ctx, defaults)
	if err != nil {
		return err
	}
	success("seeded %d categories and %d rules", result.Categories, result.Rules)
	return nil
}

func runInitUser(ctx context.Context, deps *Dependencies, args []string) error {
	fs := flag.NewFlagSet("init-user", flag.ContinueOnError)
	user := userFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	userID, err := parseUser(*user)
	if err != nil {
		return err
	}

	result, err := deps.InitializationService.InitializeForUser(ctx, userID)
	if err != nil {
		return err
	}
	if result.AlreadyInitialized && result.RulesCreated == 0 {
		warning("user %s already has categories; nothing to do", userID)
		return nil
	}
	success("created %d categories and %d rules", result.CategoriesCreated, result.RulesCreated)
	if result.RulesSkipped > 0 {
		warning("%d default rules had no matching category", result.RulesSkipped)
	}
	return nil
}

func runImport(ctx context.Context, deps *Dependencies, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	user := userFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	userID, err := parseUser(*user)
	if err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("at least one CSV file is required")
	}

	for _, path := range fs.Args() {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		header("import " + filepath.Base(path))
		result, err := deps.ImportService.Execute(ctx, importservice.UploadInput{
			UserID:   userID,
			FileName: filepath.Base(path),
			Content:  string(content),
		})
		if errors.Is(err, importservice.ErrInvalidCSV) {
			warning("%s: %v", path, err)
			continue
		}
		if err != nil {
			return err
		}

		info("upload   %s", result.UploadID)
		info("rows     %d", result.TotalRows)
		success("imported %d", result.ImportedRows)
		if result.DuplicateRows > 0 {
			warning("duplicates %d", result.DuplicateRows)
		}
		if result.SkippedRows > 0 {
			warning("malformed rows skipped %d", result.SkippedRows)
		}
	}
	return nil
}

func runRecategorize(ctx context.Context, deps *Dependencies, args []string) error {
	fs := flag.NewFlagSet("recategorize", flag.ContinueOnError)
	user := userFlag(fs)
	year := fs.Int("year", time.Now().Year(), "calendar year")
	month := fs.Int("month", 0, "month 1-12; whole year when omitted")
	if err := fs.Parse(args); err != nil {
		return err
	}
	userID, err := parseUser(*user)
	if err != nil {
		return err
	}

	updated, err := deps.TransactionService.ReCategorizeByRules(ctx, userID, *year, optionalMonth(*month))
	if err != nil {
		return err
	}
	success("%d transactions matched a rule", updated)
	return nil
}

func runList(ctx context.Context, deps *Dependencies, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	user := userFlag(fs)
	year := fs.Int("year", time.Now().Year(), "calendar year")
	month := fs.Int("month", 0, "month 1-12; whole year when omitted")
	if err := fs.Parse(args); err != nil {
		return err
	}
	userID, err := parseUser(*user)
	if err != nil {
		return err
	}

	from, to, err := txservice.Period(*year, optionalMonth(*month))
	if err != nil {
		return err
	}
	transactions, err := deps.TransactionService.List(ctx, userID, txrepo.Filter{From: &from, To: &to})
	if err != nil {
		return err
	}

	header(fmt.Sprintf("%s ~ %s", from.Format("2006/01/02"), to.AddDate(0, 0, -1).Format("2006/01/02")))
	for _, tx := range transactions {
		row(tx.Date.Format("01/02 15:04"), fmt.Sprintf("%10s", money.Yen(tx.Amount).Display()), categoryLabel(tx), tx.Description)
	}

	fmt.Println()
	printTotals(summarize(transactions))
	return nil
}

type categoryTotal struct {
	name  string
	total *money.Money
}

// summarize groups amounts by category name, largest first.
func summarize(transactions []txrepo.Transaction) ([]categoryTotal, *money.Money) {
	byName := make(map[string]*money.Money)
	grand := money.Zero(money.JPY)
	for _, tx := range transactions {
		name := categoryLabel(tx)
		if byName[name] == nil {
			byName[name] = money.Zero(money.JPY)
		}
		byName[name] = byName[name].MustAdd(money.Yen(tx.Amount))
		grand = grand.MustAdd(money.Yen(tx.Amount))
	}

	totals := make([]categoryTotal, 0, len(byName))
	for name, total := range byName {
		totals = append(totals, categoryTotal{name: name, total: total})
	}
	sort.Slice(totals, func(i, j int) bool {
		if c := totals[i].total.Compare(totals[j].total); c != 0 {
			return c > 0
		}
		return totals[i].name < totals[j].name
	})
	return totals, grand
}

func printTotals(totals []categoryTotal, grand *money.Money) {
	for _, t := range totals {
		row(fmt.Sprintf("%-12s", t.name), fmt.Sprintf("%10s", t.total.Display()), dim(t.total.PercentageOf(grand).String()+"%"))
	}
	green.Printf("  %-12s  %10s\n", "合計", grand.Display())
}

func categoryLabel(tx txrepo.Transaction) string {
	if tx.CategoryName == nil {
		return "未分類"
	}
	return *tx.CategoryName
}

func runUploads(ctx context.Context, deps *Dependencies, args []string) error {
	fs := flag.NewFlagSet("uploads", flag.ContinueOnError)
	user := userFlag(fs)
	limit := fs.Int("limit", 20, "number of uploads")
	if err := fs.Parse(args); err != nil {
		return err
	}
	userID, err := parseUser(*user)
	if err != nil {
		return err
	}

	uploads, err := deps.UploadRepo.FindByUserID(ctx, userID, *limit)
	if err != nil {
		return err
	}
	for _, u := range uploads {
		row(u.CreatedAt.Format("2006/01/02 15:04"), fmt.Sprintf("%-10s", u.Status), fmt.Sprintf("%5d rows", u.RowCount), u.FileName)
	}
	return nil
}

func runCategories(ctx context.Context, deps *Dependencies, args []string) error {
	fs := flag.NewFlagSet("categories", flag.ContinueOnError)
	user := userFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	userID, err := parseUser(*user)
	if err != nil {
		return err
	}

	categories, err := deps.CategoryService.ListCategories(ctx, userID)
	if err != nil {
		return err
	}
	rules, err := deps.CategoryService.ListRules(ctx, userID)
	if err != nil {
		return err
	}

	keywords := make(map[string][]string)
	for _, r := range rules {
		keywords[r.CategoryID.String()] = append(keywords[r.CategoryID.String()], fmt.Sprintf("%s(%d)", r.Keyword, r.Priority))
	}
	for _, c := range categories {
		row(fmt.Sprintf("%-12s", c.Name), c.Color, dim(strings.Join(keywords[c.ID.String()], ", ")))
	}
	return nil
}

func runAddRule(ctx context.Context, deps *Dependencies, args []string) error {
	fs := flag.NewFlagSet("add-rule", flag.ContinueOnError)
	user := userFlag(fs)
	categoryName := fs.String("category", "", "category name")
	keyword := fs.String("keyword", "", "merchant keyword")
	priority := fs.Int("priority", 0, "higher wins")
	if err := fs.Parse(args); err != nil {
		return err
	}
	userID, err := parseUser(*user)
	if err != nil {
		return err
	}

	category, err := deps.CategoryRepo.FindByName(ctx, userID, *categoryName)
	if err != nil {
		return fmt.Errorf("category %q: %w", *categoryName, err)
	}
	rule, err := deps.CategoryService.CreateRule(ctx, userID, categoryrepo.RuleInput{
		Keyword:    *keyword,
		CategoryID: category.ID,
		Priority:   *priority,
	})
	if err != nil {
		return err
	}
	success("rule %q → %s (priority %d)", rule.Keyword, category.Name, rule.Priority)
	return nil
}

func runAddExpense(ctx context.Context, deps *Dependencies, args []string) error {
	fs := flag.NewFlagSet("add-expense", flag.ContinueOnError)
	user := userFlag(fs)
	amount := fs.Int64("amount", 0, "amount in yen")
	description := fs.String("description", "", "what was bought")
	date := fs.String("date", time.Now().Format("2006/01/02"), "YYYY/MM/DD")
	categoryName := fs.String("category", "", "category name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	userID, err := parseUser(*user)
	if err != nil {
		return err
	}

	day, err := time.Parse("2006/1/2", *date)
	if err != nil {
		return fmt.Errorf("invalid -date: %w", err)
	}

	input := txservice.ManualInput{Date: day, Description: *description, Amount: *amount}
	if *categoryName != "" {
		category, err := deps.CategoryRepo.FindByName(ctx, userID, *categoryName)
		if err != nil {
			return fmt.Errorf("category %q: %w", *categoryName, err)
		}
		input.CategoryID = &category.ID
	}

	tx, err := deps.TransactionService.CreateManual(ctx, userID, input)
	if err != nil {
		return err
	}
	success("recorded %s %s", money.Yen(tx.Amount).Display(), tx.Description)
	return nil
}
