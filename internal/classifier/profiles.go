package classifier

import (
	"fmt"
	"sort"
)

// Profile is a named keyword table with its matching mode.
type Profile struct {
	Name       string
	Rules      Table
	IgnoreCase bool
}

// Classifier builds a KeywordClassifier from the profile.
func (p Profile) Classifier() (*KeywordClassifier, error) {
	return NewKeywordClassifier(p.Rules, p.IgnoreCase)
}

// DefaultProfileName is used when no profile is configured.
const DefaultProfileName = "treasury"

// TreasuryProfile is the reference dictionary for treasury / ISO 20022
// models. Matching is case-sensitive on CamelCase fragments.
func TreasuryProfile() Profile {
	return Profile{
		Name: "treasury",
		Rules: Table{
			{Category: Root, Keywords: []string{"Account", "Bank", "LiquidityPosition", "CashPool"}},
			{Category: ValueObject, Keywords: []string{"Amount", "Currency", "Date", "Status", "Iban", "Bic"}},
			{Category: Entity, Keywords: []string{"Entry", "Transaction", "Flow", "AuditLog"}},
		},
	}
}

// GenericProfile targets general business models. Value-object keywords are
// tested before root keywords, so "OrderStatus" is a VO, not a root.
func GenericProfile() Profile {
	return Profile{
		Name: "generic",
		Rules: Table{
			{Category: ValueObject, Keywords: []string{
				"value", "embed", "type", "money", "address", "period", "range",
				"amount", "metadata", "description", "status", "info",
			}},
			{Category: Root, Keywords: []string{
				"header", "parent", "master", "root", "order", "invoice", "customer",
				"product", "facility", "account", "contract", "agreement", "case", "session",
			}},
			{Category: Entity, Keywords: []string{"line", "item", "entry", "detail", "log"}},
		},
		IgnoreCase: true,
	}
}

var profiles = map[string]func() Profile{
	"treasury": TreasuryProfile,
	"generic":  GenericProfile,
}

// LookupProfile returns the built-in profile called name.
func LookupProfile(name string) (Profile, error) {
	fn, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown classifier profile %q (valid: %v)", name, ProfileNames())
	}
	return fn(), nil
}

// ProfileNames lists the built-in profiles, sorted.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for n := range profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
