package catalog

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"
	yaml "go.yaml.in/yaml/v2"
)

// Catalog is an ordered, finite sequence of accounts. Catalog order is
// significant: ledger identifiers are derived from the position of each
// account, so a catalog must not be reordered between runs against the
// same ledger.
type Catalog []Account

// Validate checks the catalog for conditions that would make a sync run
// ill-defined: duplicate ids, missing names, or negative amounts.
func (c Catalog) Validate() error {
	seen := make(map[string]struct{}, len(c))
	for i, a := range c {
		if a.ID == "" {
			return fmt.Errorf("catalog: account %d has empty id", i)
		}
		if _, dup := seen[a.ID]; dup {
			return fmt.Errorf("catalog: duplicate account id %q", a.ID)
		}
		seen[a.ID] = struct{}{}
		if a.Name == "" {
			return fmt.Errorf("catalog: account %q has empty name", a.ID)
		}
		if a.TotalAmount.IsNegative() {
			return fmt.Errorf("catalog: account %q has negative total amount", a.ID)
		}
		if a.CurrentBalance.IsNegative() {
			return fmt.Errorf("catalog: account %q has negative current balance", a.ID)
		}
	}
	return nil
}

// yaml DTOs: amounts are decimal strings in the file, converted explicitly
// so parse failures name the offending account and field.

type scheduleYAML struct {
	DueDate        string `yaml:"due_date"`
	Frequency      string `yaml:"frequency"`
	MinimumPayment string `yaml:"minimum_payment"`
}

type loanDetailYAML struct {
	Principal string `yaml:"principal"`
	Rate      string `yaml:"rate"`
	Deferred  bool   `yaml:"deferred"`
}

type accountYAML struct {
	ID             string           `yaml:"id"`
	Name           string           `yaml:"name"`
	Category       string           `yaml:"category"`
	AccountNumber  string           `yaml:"account_number"`
	TotalAmount    string           `yaml:"total_amount"`
	CurrentBalance string           `yaml:"current_balance"`
	APR            string           `yaml:"apr"`
	Active         bool             `yaml:"active"`
	Closed         bool             `yaml:"closed"`
	Schedule       *scheduleYAML    `yaml:"payment_schedule"`
	LoanDetails    []loanDetailYAML `yaml:"loan_details"`
}

type catalogYAML struct {
	Accounts []accountYAML `yaml:"accounts"`
}

// Load reads a catalog from YAML. The resulting catalog is validated
// before it is returned.
func Load(r io.Reader) (Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("catalog: read: %w", err)
	}

	var doc catalogYAML
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}

	accounts := make(Catalog, 0, len(doc.Accounts))
	for _, ay := range doc.Accounts {
		a, err := ay.toAccount()
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}

	if err := accounts.Validate(); err != nil {
		return nil, err
	}
	return accounts, nil
}

// LoadFile reads a catalog from a YAML file on disk.
func LoadFile(path string) (Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

func (ay accountYAML) toAccount() (Account, error) {
	a := Account{
		ID:            ay.ID,
		Name:          ay.Name,
		Category:      Category(ay.Category),
		AccountNumber: ay.AccountNumber,
		Active:        ay.Active,
		Closed:        ay.Closed,
	}

	var err error
	if a.TotalAmount, err = parseAmount(ay.TotalAmount); err != nil {
		return Account{}, fmt.Errorf("catalog: account %q total_amount: %w", ay.ID, err)
	}
	if a.CurrentBalance, err = parseAmount(ay.CurrentBalance); err != nil {
		return Account{}, fmt.Errorf("catalog: account %q current_balance: %w", ay.ID, err)
	}
	if a.APR, err = parseAmount(ay.APR); err != nil {
		return Account{}, fmt.Errorf("catalog: account %q apr: %w", ay.ID, err)
	}

	if ay.Schedule != nil {
		sched := &PaymentSchedule{Frequency: ay.Schedule.Frequency}
		if ay.Schedule.DueDate != "" {
			sched.DueDate, err = time.Parse("2006-01-02", ay.Schedule.DueDate)
			if err != nil {
				return Account{}, fmt.Errorf("catalog: account %q due_date: %w", ay.ID, err)
			}
		}
		if sched.MinimumPayment, err = parseAmount(ay.Schedule.MinimumPayment); err != nil {
			return Account{}, fmt.Errorf("catalog: account %q minimum_payment: %w", ay.ID, err)
		}
		a.Schedule = sched
	}

	for i, dy := range ay.LoanDetails {
		var d LoanDetail
		if d.Principal, err = parseAmount(dy.Principal); err != nil {
			return Account{}, fmt.Errorf("catalog: account %q loan_details[%d].principal: %w", ay.ID, i, err)
		}
		if d.Rate, err = parseAmount(dy.Rate); err != nil {
			return Account{}, fmt.Errorf("catalog: account %q loan_details[%d].rate: %w", ay.ID, i, err)
		}
		d.Deferred = dy.Deferred
		a.LoanDetails = append(a.LoanDetails, d)
	}

	return a, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
