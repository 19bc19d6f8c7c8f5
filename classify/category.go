package classify

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Category is a natural-sound class. The zero value is Unknown.
type Category int

const (
	Unknown Category = iota
	Wind
	Bird
	Rain
	Stream
	Leaves

	numCategories
)

// scoredOrder is the scorer's evaluation order. Score ties go to the
// earliest entry.
var scoredOrder = [...]Category{Wind, Bird, Rain, Stream, Leaves}

// voteOrder is the enumeration order used to break majority-vote ties.
var voteOrder = [...]Category{Wind, Bird, Rain, Stream, Leaves, Unknown}

var categoryNames = [numCategories]string{
	Unknown: "unknown",
	Wind:    "wind",
	Bird:    "bird",
	Rain:    "rain",
	Stream:  "stream",
	Leaves:  "leaves",
}

// Categories returns every category in enumeration order.
func Categories() []Category {
	out := make([]Category, len(voteOrder))
	copy(out, voteOrder[:])
	return out
}

// NumCategories is the size of the category enumeration, for tables
// indexed by Category.
const NumCategories = int(numCategories)

func (c Category) String() string {
	if c < 0 || c >= numCategories {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

// Label is the human-readable name, e.g. "Wind".
func (c Category) Label() string {
	return cases.Title(language.English).String(c.String())
}

// Valid reports whether c is a member of the enumeration.
func (c Category) Valid() bool {
	return c >= 0 && c < numCategories
}

// ParseCategory maps a case-insensitive name to its Category.
func ParseCategory(s string) (Category, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range categoryNames {
		if n == name {
			return Category(i), nil
		}
	}
	return Unknown, fmt.Errorf("unknown sound category %q", s)
}

func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid sound category %d", int(c))
	}
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	v, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
