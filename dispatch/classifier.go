package dispatch

import "strings"

// Service categories known to the matcher. They mirror the specialization
// categories workers register under.
const (
	CategoryPlumber       = "plumber"
	CategoryElectrician   = "electrician"
	CategoryCarpenter     = "carpenter"
	CategoryMechanic      = "mechanic"
	CategoryMensGrooming  = "mens_grooming"
	CategoryWomenGrooming = "women_grooming"
)

// categoryRule maps a keyword group to a category. Rules are evaluated in
// order; the first group with any keyword present wins, so overlapping
// descriptions ("leak near the light switch") classify consistently.
type categoryRule struct {
	keywords []string
	category string
}

var categoryRules = []categoryRule{
	{[]string{"plumb", "pipe", "water", "bathroom", "kitchen", "leak", "sink"}, CategoryPlumber},
	{[]string{"electr", "wire", "switch", "light", "fan"}, CategoryElectrician},
	{[]string{"carpent", "wood", "furniture", "door", "window"}, CategoryCarpenter},
	{[]string{"mechanic", "car", "bike", "vehicle", "repair"}, CategoryMechanic},
	{[]string{"hair", "salon", "beauty", "treatment", "styling", "grooming"}, ""},
}

// Classify infers a service category from a free-text description, falling back
// to the declared category when no keyword group matches. An empty return value
// means "no category constraint". The function is pure and always returns.
func Classify(description, declaredCategory string) string {
	desc := strings.ToLower(description)
	for _, rule := range categoryRules {
		if !containsAny(desc, rule.keywords) {
			continue
		}
		if rule.category != "" {
			return rule.category
		}
		return groomingCategory(desc)
	}
	return declaredCategory
}

// groomingCategory picks the grooming sub-category from gender terms in the
// description. Female terms are tested first because "women" contains "men" as
// a substring. When neither appears the match defaults to mens_grooming; see
// DESIGN.md for why that default is under product review.
func groomingCategory(desc string) string {
	if strings.Contains(desc, "women") || strings.Contains(desc, "female") {
		return CategoryWomenGrooming
	}
	if strings.Contains(desc, "men") || strings.Contains(desc, "male") {
		return CategoryMensGrooming
	}
	return CategoryMensGrooming
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
