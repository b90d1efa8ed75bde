package explain

import "fmt"

// ComponentFact describes one component of an overall score as seen by the
// presentation layer. Exactly one of Rationale or Reason is meaningful.
type ComponentFact struct {
	Name        string
	Score       float64
	Weight      float64
	Rationale   string
	Unavailable bool
	Reason      string
}

// Components renders score facts in the order given: scored components
// first, then unavailable ones.
func Components(facts []ComponentFact) []string {
	var scored, missing []string
	for _, f := range facts {
		if f.Unavailable {
			missing = append(missing, fmt.Sprintf("%s unavailable: %s", f.Name, f.Reason))
			continue
		}
		line := fmt.Sprintf("%s %.1f (weight %.2f)", f.Name, f.Score, f.Weight)
		if f.Rationale != "" {
			line += ": " + f.Rationale
		}
		scored = append(scored, line)
	}
	return append(scored, missing...)
}
