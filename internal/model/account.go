package model

import "strings"

// AccountType classifies accounts in the ledger's chart of accounts.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeBank      AccountType = "bank"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeIncome    AccountType = "income"
	AccountTypeExpense   AccountType = "expense"
)

// PathSeparator joins account names into a hierarchy locator,
// e.g. "VAT:Output:Sales".
const PathSeparator = ":"

// Account is one node in the ledger's account tree. The tree is owned by
// the ledger backend and read-only to this tool.
type Account struct {
	Name     string
	Path     string // full colon-delimited path from the root
	Type     AccountType
	Currency string // commodity mnemonic, e.g. "GBP"
	Children []*Account
}

// Find navigates a colon-delimited locator relative to a. An empty locator
// returns a itself. The second return is false when any path element is
// missing.
func (a *Account) Find(locator string) (*Account, bool) {
	if locator == "" {
		return a, true
	}
	cur := a
	for _, part := range strings.Split(locator, PathSeparator) {
		var next *Account
		for _, ch := range cur.Children {
			if ch.Name == part {
				next = ch
				break
			}
		}
		if next == nil {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Walk visits a and every descendant in depth-first order.
func (a *Account) Walk(fn func(*Account)) {
	fn(a)
	for _, ch := range a.Children {
		ch.Walk(fn)
	}
}
