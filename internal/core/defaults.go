package core

const (
	UnknownCategoryName  = "Unknown"
	UnknownCategoryEmoji = "📁"
	fallbackEmoji        = "📌"
)

var emojiByType = map[TransactionType]string{
	Income:  "💰",
	Savings: "🏦",
	Expense: "💸",
}

// DefaultEmoji returns the glyph used when a category is created without one.
func DefaultEmoji(t TransactionType) string {
	if e, ok := emojiByType[t]; ok {
		return e
	}
	return fallbackEmoji
}

// DefaultCategorySeed is one row of the built-in category catalog.
type DefaultCategorySeed struct {
	Name  string
	Type  TransactionType
	Emoji string
}

var defaultCategories = [...]DefaultCategorySeed{
	{"Food", Expense, "🍔"},
	{"Rent", Expense, "🏠"},
	{"Travel", Expense, "✈️"},
	{"Shopping", Expense, "🛍️"},
	{"Health", Expense, "💊"},
	{"Entertainment", Expense, "🎬"},

	{"Salary", Income, "💰"},
	{"Freelance", Income, "🧑‍💻"},
	{"Business", Income, "🏢"},
	{"Other", Income, "🧾"},

	{"Emergency Fund", Savings, "🚑"},
	{"Retirement", Savings, "👴"},
	{"Education", Savings, "🎓"},
	{"Other", Savings, "💼"},
}

// DefaultCategories returns a copy of the built-in catalog.
func DefaultCategories() []DefaultCategorySeed {
	out := make([]DefaultCategorySeed, len(defaultCategories))
	copy(out, defaultCategories[:])
	return out
}
