package usecase

import (
	"regexp"
	"strings"

	"github.com/kirillkom/plateplanner/internal/core/domain"
)

type termSet map[string]struct{}

func newTermSet(terms ...string) termSet {
	out := make(termSet, len(terms))
	for _, t := range terms {
		out[t] = struct{}{}
	}
	return out
}

func (s termSet) union(other termSet) termSet {
	out := make(termSet, len(s)+len(other))
	for t := range s {
		out[t] = struct{}{}
	}
	for t := range other {
		out[t] = struct{}{}
	}
	return out
}

var (
	nonVegetarianTerms = newTermSet(
		"chicken", "beef", "pork", "lamb", "turkey", "duck", "bacon", "ham",
		"sausage", "meatball", "steak", "prosciutto", "salami", "pepperoni",
		"fish", "salmon", "tuna", "cod", "shrimp", "prawn", "crab", "lobster",
		"oyster", "clam", "mussel", "anchovy", "gelatin", "lard", "suet",
	)
	nonVeganTerms = nonVegetarianTerms.union(newTermSet(
		"egg", "eggs", "milk", "butter", "cream", "cheese", "yogurt", "ghee",
		"whey", "casein", "honey", "beeswax", "mayonnaise", "buttermilk",
	))
	glutenTerms = newTermSet(
		"wheat", "barley", "rye", "flour", "bread", "pasta", "couscous",
		"semolina", "spelt", "farro", "bulgur", "cracker", "cookie", "cake",
		"soy sauce", "seitan", "malt", "beer",
	)
	dairyTerms = newTermSet(
		"milk", "butter", "cream", "cheese", "yogurt", "ghee", "whey",
		"casein", "lactose", "curd", "buttermilk", "ice cream",
	)

	allergenRules = []struct {
		name  string
		terms termSet
	}{
		{"peanut", newTermSet("peanut", "peanuts", "peanut butter")},
		{"tree_nut", newTermSet("almond", "walnut", "cashew", "pecan", "pistachio", "macadamia", "hazelnut")},
		{"soy", newTermSet("soy", "tofu", "tempeh", "edamame", "miso", "natto")},
		{"fish", newTermSet("fish", "salmon", "tuna", "cod", "trout", "halibut")},
		{"shellfish", newTermSet("shrimp", "crab", "lobster", "clam", "mussel", "oyster", "prawn")},
		{"egg", newTermSet("egg", "eggs", "mayonnaise", "meringue")},
		{"dairy", dairyTerms},
		{"gluten", glutenTerms},
	}

	// plantQualifiers lists words that, directly before a term, name a
	// substitute product: "coconut milk" is dairy free, "rice flour" and
	// "gluten free bread" are gluten free.
	plantQualifiers = map[string]termSet{
		"milk":   newTermSet("coconut", "almond", "soy", "oat", "rice", "cashew", "hemp", "free"),
		"butter": newTermSet("peanut", "almond", "cashew", "cocoa", "apple", "shea", "nut", "sunflower", "vegan", "free"),
		"cream":  newTermSet("coconut", "cashew", "vegan", "free"),
		"cheese": newTermSet("vegan", "cashew", "free"),
		"yogurt": newTermSet("coconut", "soy", "almond", "oat", "free"),
		"flour":  newTermSet("rice", "almond", "coconut", "corn", "chickpea", "tapioca", "potato", "buckwheat", "oat", "free"),
		"pasta":  newTermSet("rice", "chickpea", "lentil", "free"),
		"bread":  newTermSet("free"),
	}

	// ignoredPhrases are removed before tokenizing.
	ignoredPhrases = []string{"cream of tartar"}

	wordPattern = regexp.MustCompile(`[a-z]+`)
)

// DietaryClassifier tags ingredient lists with keyword rules. Every label
// starts true and any matching term revokes it.
type DietaryClassifier struct{}

func NewDietaryClassifier() *DietaryClassifier {
	return &DietaryClassifier{}
}

func (c *DietaryClassifier) Classify(ingredients []string) domain.DietaryProfile {
	tokenized := make([][]string, 0, len(ingredients))
	for _, ing := range ingredients {
		tokenized = append(tokenized, ingredientTokens(ing))
	}

	profile := domain.DietaryProfile{
		IsVegetarian:    !anyContains(tokenized, nonVegetarianTerms),
		IsVegan:         !anyContains(tokenized, nonVeganTerms),
		IsGlutenFree:    !anyContains(tokenized, glutenTerms),
		IsDairyFree:     !anyContains(tokenized, dairyTerms),
		Allergens:       []string{},
		IngredientCount: len(ingredients),
	}
	for _, rule := range allergenRules {
		if anyContains(tokenized, rule.terms) {
			profile.Allergens = append(profile.Allergens, rule.name)
		}
	}
	return profile
}

func ingredientTokens(ingredient string) []string {
	text := strings.ToLower(ingredient)
	for _, phrase := range ignoredPhrases {
		text = strings.ReplaceAll(text, phrase, " ")
	}
	return wordPattern.FindAllString(text, -1)
}

func anyContains(tokenized [][]string, terms termSet) bool {
	for _, tokens := range tokenized {
		if containsTerm(tokens, terms) {
			return true
		}
	}
	return false
}

// containsTerm matches single words and two-word phrases. A single word
// preceded by one of its plant qualifiers does not count.
func containsTerm(tokens []string, terms termSet) bool {
	for i, tok := range tokens {
		if i+1 < len(tokens) {
			if _, ok := terms[tok+" "+tokens[i+1]]; ok {
				return true
			}
		}
		if _, ok := terms[tok]; !ok {
			continue
		}
		if i > 0 {
			if qualifiers, ok := plantQualifiers[tok]; ok {
				if _, plant := qualifiers[tokens[i-1]]; plant {
					continue
				}
			}
		}
		return true
	}
	return false
}
