package providers

import "strings"

// DefaultPriorityTiers ranks sources by trust. Curated line-synchronized databases
// sit at the top, structured text APIs in the middle, generative recollection and
// generic page scrapes at the bottom.
var DefaultPriorityTiers = map[string]int{
	"lrclib": 100,
	"kugou":  85,
	"ovh":    60,
	"gemini": 40,
	"genius": 30,
}

// UnknownPriority is used for sources missing from the table
const UnknownPriority = 10

// PriorityTable maps a source name to its priority score
type PriorityTable map[string]int

// NewPriorityTable builds a table from the defaults with overrides applied on top
func NewPriorityTable(overrides map[string]int) PriorityTable {
	table := make(PriorityTable, len(DefaultPriorityTiers)+len(overrides))
	for name, score := range DefaultPriorityTiers {
		table[name] = score
	}
	for name, score := range overrides {
		table[strings.ToLower(name)] = score
	}
	return table
}

// Score returns the priority of source. Merged sources ("a+b") take the best
// priority of their parts.
func (t PriorityTable) Score(source string) int {
	best := -1
	for _, part := range strings.Split(source, "+") {
		score, ok := t[strings.ToLower(strings.TrimSpace(part))]
		if !ok {
			score = UnknownPriority
		}
		if score > best {
			best = score
		}
	}
	if best < 0 {
		return UnknownPriority
	}
	return best
}
