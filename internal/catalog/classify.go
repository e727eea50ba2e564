package catalog

import (
	"strings"
)

// Rule names the classifier step that decided a record's type.
type Rule string

const (
	RuleCategoryMovie  Rule = "category-movie"
	RuleCategorySeries Rule = "category-series"
	RuleNameMovie      Rule = "name-movie"
	RuleNameSeries     Rule = "name-series"
	RuleDefault        Rule = "default"
)

// Keyword tables are matched as case-folded substrings. They cover the
// Portuguese, Spanish, French and English spellings providers commonly use.
var (
	movieKeywords = []string{
		"movie",
		"filme",
		"film",
		"cine",
		"pelicula",
		"película",
		"vod",
	}

	seriesKeywords = []string{
		"series",
		"serie",
		"série",
		"season",
		"temporada",
		"saison",
		"episode",
		"episódio",
		"episodio",
		"s0",
		"s1",
	}
)

// Classification explains how a type was chosen.
type Classification struct {
	Type    Type
	Rule    Rule
	Keyword string
}

// Classify assigns a content type from an entry's name and category label.
func Classify(name, category string) Type {
	return Explain(name, category).Type
}

// Explain evaluates the classification rules in order and returns the first
// that matches. The category label is checked before the name because
// providers curate it, while names are free text. Within one field movie
// keywords win over series keywords.
func Explain(name, category string) Classification {
	category = strings.ToLower(category)
	name = strings.ToLower(name)

	steps := []struct {
		field    string
		keywords []string
		typ      Type
		rule     Rule
	}{
		{category, movieKeywords, TypeMovie, RuleCategoryMovie},
		{category, seriesKeywords, TypeSeries, RuleCategorySeries},
		{name, movieKeywords, TypeMovie, RuleNameMovie},
		{name, seriesKeywords, TypeSeries, RuleNameSeries},
	}

	for _, step := range steps {
		if kw, ok := containsAny(step.field, step.keywords); ok {
			return Classification{Type: step.typ, Rule: step.rule, Keyword: kw}
		}
	}

	return Classification{Type: TypeLive, Rule: RuleDefault}
}

func containsAny(s string, keywords []string) (string, bool) {
	if s == "" {
		return "", false
	}

	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return kw, true
		}
	}

	return "", false
}
