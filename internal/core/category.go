package core

// Category is a static classification tag with display metadata. The
// registries are compiled in and not user-editable.
type Category struct {
	ID    string
	Name  string
	Color string // hex, used by the chart and the API
	Icon  string // icon name resolved by the presentation layer
}

// Other is the fallback for transactions whose category id is not in any
// registry. Lenient on purpose: remote data may carry ids this build does
// not know about.
var Other = Category{ID: "other", Name: "Other", Color: "#64748b", Icon: "other"}

var IncomeCategories = []Category{
	{ID: "salary", Name: "Salary", Color: "#10b981", Icon: "salary"},
	{ID: "investments", Name: "Investments", Color: "#22c55e", Icon: "investment"},
	{ID: "gifts", Name: "Gifts", Color: "#84cc16", Icon: "gift"},
	{ID: "other_income", Name: "Other", Color: "#a3a3a3", Icon: "other"},
}

var ExpenseCategories = []Category{
	{ID: "food", Name: "Food & Dining", Color: "#ef4444", Icon: "food"},
	{ID: "transport", Name: "Transportation", Color: "#f97316", Icon: "transport"},
	{ID: "housing", Name: "Housing", Color: "#eab308", Icon: "housing"},
	{ID: "utilities", Name: "Utilities", Color: "#3b82f6", Icon: "utilities"},
	{ID: "entertainment", Name: "Entertainment", Color: "#8b5cf6", Icon: "entertainment"},
	{ID: "health", Name: "Health & Wellness", Color: "#d946ef", Icon: "health"},
	{ID: "shopping", Name: "Shopping", Color: "#ec4899", Icon: "shopping"},
	{ID: "other_expense", Name: "Other", Color: "#a3a3a3", Icon: "other"},
}

// AllCategories returns the combined registry, income first. Rendering
// uses the combined set regardless of a transaction's declared type.
func AllCategories() []Category {
	out := make([]Category, 0, len(IncomeCategories)+len(ExpenseCategories))
	out = append(out, IncomeCategories...)
	out = append(out, ExpenseCategories...)
	return out
}

// LookupCategory finds a category by id in the combined registry.
func LookupCategory(id string) (Category, bool) {
	for _, c := range IncomeCategories {
		if c.ID == id {
			return c, true
		}
	}
	for _, c := range ExpenseCategories {
		if c.ID == id {
			return c, true
		}
	}
	return Other, false
}

// ExpenseCategoryOrOther resolves an expense category id for the
// breakdown, falling back to the neutral Other entry.
func ExpenseCategoryOrOther(id string) Category {
	for _, c := range ExpenseCategories {
		if c.ID == id {
			return c
		}
	}
	return Other
}
