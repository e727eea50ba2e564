package catalog

import (
	"sort"
	"strings"

	"github.com/grafana/regexp"
)

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9-]+`)
	slugHyphens = regexp.MustCompile(`-+`)
)

// Category summarises the records sharing a category label and type.
type Category struct {
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Type  Type   `json:"type"`
	Count int    `json:"count"`
}

// Split holds records partitioned by type.
type Split struct {
	Live   []Record
	Movies []Record
	Series []Record
}

// Search returns the records whose name contains query, ignoring case.
// A blank query matches everything.
func Search(records []Record, query string) []Record {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return records
	}

	return filter(records, func(r Record) bool {
		return strings.Contains(strings.ToLower(r.Name), q)
	})
}

// FilterByType returns the records of the given type.
func FilterByType(records []Record, t Type) []Record {
	return filter(records, func(r Record) bool {
		return r.Type() == t
	})
}

// FilterByCategory returns the records whose category equals category.
func FilterByCategory(records []Record, category string) []Record {
	return filter(records, func(r Record) bool {
		return r.Category == category
	})
}

// FilterByCategorySlug returns the records whose category slugifies to slug.
func FilterByCategorySlug(records []Record, slug string) []Record {
	return filter(records, func(r Record) bool {
		return Slugify(r.Category) == slug
	})
}

// Categories returns one summary per distinct category and type, sorted by
// name and then by type.
func Categories(records []Record) []Category {
	type key struct {
		name string
		typ  Type
	}

	index := make(map[key]int, 32)
	categories := make([]Category, 0, 32)

	for _, r := range records {
		k := key{name: r.Category, typ: r.Type()}

		if i, ok := index[k]; ok {
			categories[i].Count++

			continue
		}

		index[k] = len(categories)
		categories = append(categories, Category{
			Name:  r.Category,
			Slug:  Slugify(r.Category),
			Type:  k.typ,
			Count: 1,
		})
	}

	sort.SliceStable(categories, func(i, j int) bool {
		if categories[i].Name != categories[j].Name {
			return categories[i].Name < categories[j].Name
		}

		return typeOrder(categories[i].Type) < typeOrder(categories[j].Type)
	})

	return categories
}

// SplitByType partitions records by type, preserving order.
func SplitByType(records []Record) Split {
	var split Split

	for _, r := range records {
		switch r.Type() {
		case TypeLive:
			split.Live = append(split.Live, r)
		case TypeMovie:
			split.Movies = append(split.Movies, r)
		case TypeSeries:
			split.Series = append(split.Series, r)
		}
	}

	return split
}

// Find returns the record with the given id.
func Find(records []Record, id string) (Record, bool) {
	for _, r := range records {
		if r.ID == id {
			return r, true
		}
	}

	return Record{}, false
}

// Slugify converts a category label to a URL-safe slug.
// Example: "US Sports" -> "us-sports".
func Slugify(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "_", "-")
	s = slugInvalid.ReplaceAllString(s, "")
	s = slugHyphens.ReplaceAllString(s, "-")

	return strings.Trim(s, "-")
}

func filter(records []Record, keep func(Record) bool) []Record {
	out := make([]Record, 0, len(records))

	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}

	return out
}

func typeOrder(t Type) int {
	for i, candidate := range Types() {
		if candidate == t {
			return i
		}
	}

	return len(Types())
}
