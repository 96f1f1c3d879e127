package achievement

// Snapshot is the ledger state the rules are evaluated against.
type Snapshot struct {
	TotalUploads         int
	CurrentStreak        int
	LongestStreak        int
	MissedDays           int
	CompletionPercentage int
	Completed            bool
}

type Rule struct {
	Type          Type
	Title         string
	Description   string
	Points        int
	CriteriaType  CriteriaType
	CriteriaValue int
}

// Holds reports whether the rule's condition is true for s. Thresholds are
// inclusive.
func (r Rule) Holds(s Snapshot) bool {
	switch r.CriteriaType {
	case CriteriaTotalUploads:
		return s.TotalUploads >= r.CriteriaValue
	case CriteriaStreak:
		return s.LongestStreak >= r.CriteriaValue
	case CriteriaCompletion:
		return s.CompletionPercentage >= r.CriteriaValue
	case CriteriaPerfect:
		return s.Completed && s.MissedDays == 0
	}
	return false
}

var rules = []Rule{
	{TypeFirstUpload, "First Upload", "Recorded your first challenge upload", 50, CriteriaTotalUploads, 1},
	{TypeStreak7, "Week Warrior", "Uploaded on time 7 slots in a row", 100, CriteriaStreak, 7},
	{TypeStreak14, "Fortnight Force", "Uploaded on time 14 slots in a row", 250, CriteriaStreak, 14},
	{TypeStreak30, "Unstoppable", "Uploaded on time 30 slots in a row", 500, CriteriaStreak, 30},
	{TypeUploads10, "Ten Down", "Recorded 10 uploads", 100, CriteriaTotalUploads, 10},
	{TypeUploads25, "Quarter Century", "Recorded 25 uploads", 250, CriteriaTotalUploads, 25},
	{TypeUploads50, "Half Hundred", "Recorded 50 uploads", 500, CriteriaTotalUploads, 50},
	{TypeHalfway, "Halfway There", "Reached 50% of the schedule", 100, CriteriaCompletion, 50},
	{TypePerfectCompletion, "Flawless", "Finished the challenge without missing a slot", 1000, CriteriaPerfect, 0},
}

// Rules returns a copy of the fixed rule table.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

func RuleFor(t Type) (Rule, bool) {
	for _, r := range rules {
		if r.Type == t {
			return r, true
		}
	}
	return Rule{}, false
}

// Pending returns the rules whose type is not in unlocked and whose condition holds.
// Unlocked types are filtered before any predicate runs.
func Pending(s Snapshot, unlocked map[Type]bool) []Rule {
	var out []Rule
	for _, r := range rules {
		if unlocked[r.Type] {
			continue
		}
		if r.Holds(s) {
			out = append(out, r)
		}
	}
	return out
}
