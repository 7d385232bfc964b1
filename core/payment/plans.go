package payment

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Plan is an entry of the fixed, server-defined catalog. Amount is in minor currency units (paise).
type Plan struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Amount      int64    `json:"amount"`
	Currency    string   `json:"currency"`
	Price       string   `json:"price"`
	Highlight   string   `json:"highlight,omitempty"`
	Features    []string `json:"features"`
}

const (
	PlanBasic   = "basic"
	PlanPro     = "pro"
	PlanPremium = "premium"

	CurrencyINR = "INR"
)

var currencySymbols = map[string]string{CurrencyINR: "₹"}

var catalog = []Plan{
	{
		ID:          PlanBasic,
		Name:        "Basic",
		Description: "Perfect for individuals who want to explore Eduflick AI at their own pace.",
		Amount:      49900,
		Currency:    CurrencyINR,
		Features: []string{
			"Access to core learning tracks",
			"Community discord access",
			"Weekly live doubt resolution",
		},
	},
	{
		ID:          PlanPro,
		Name:        "Pro",
		Description: "Ideal for professionals looking to accelerate their AI journey.",
		Amount:      99900,
		Currency:    CurrencyINR,
		Highlight:   "Most popular",
		Features: []string{
			"Everything in Basic",
			"1:1 mentor guidance",
			"Project feedback sessions",
		},
	},
	{
		ID:          PlanPremium,
		Name:        "Premium",
		Description: "Designed for teams and founders who want full-stack AI enablement.",
		Amount:      149900,
		Currency:    CurrencyINR,
		Features: []string{
			"Everything in Pro",
			"Custom AI strategy workshop",
			"Priority cohort onboarding",
		},
	},
}

var printer = message.NewPrinter(language.MustParse("en-IN"))

func init() {
	for i := range catalog {
		catalog[i].Price = FormatPrice(catalog[i].Amount, catalog[i].Currency)
	}
}

// Plans returns a copy of the catalog in display order.
func Plans() []Plan {
	plans := make([]Plan, len(catalog))
	for i, p := range catalog {
		p.Features = append([]string(nil), p.Features...)
		plans[i] = p
	}
	return plans
}

// LookupPlan finds a plan by id (case-insensitive).
func LookupPlan(id string) (Plan, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, p := range catalog {
		if p.ID == id {
			p.Features = append([]string(nil), p.Features...)
			return p, true
		}
	}
	return Plan{}, false
}

func IsPlan(id string) bool {
	_, ok := LookupPlan(id)
	return ok
}

// FormatPrice renders a minor-unit amount for display, e.g. 149900 INR -> "₹1,499".
func FormatPrice(amount int64, currency string) string {
	symbol, ok := currencySymbols[currency]
	if !ok {
		symbol = currency + " "
	}
	if amount%100 == 0 {
		return symbol + printer.Sprintf("%d", amount/100)
	}
	return symbol + printer.Sprintf("%.2f", float64(amount)/100)
}
