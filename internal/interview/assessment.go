package interview

import "fmt"

// Criterion is one fixed evaluation axis.
type Criterion string

const (
	Knowledge    Criterion = "knowledge"
	Focus        Criterion = "focus"
	Independence Criterion = "independence"
	Factuality   Criterion = "factuality"
	Accuracy     Criterion = "accuracy"
)

// Criteria lists every criterion in the order the aggregation prompt consumes them.
var Criteria = []Criterion{Knowledge, Focus, Independence, Factuality, Accuracy}

func ParseCriterion(s string) (Criterion, error) {
	for _, c := range Criteria {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown criterion %q", s)
}

// Assessment is the durable aggregate for one candidate. Criterion judgments are optional so that
// partially written records from older runs still load.
type Assessment struct {
	CandidateID string `json:"-"`

	Task    string `json:"task"`
	Verdict string `json:"assessment"`

	Accuracy     *string `json:"cache_accuracy,omitempty"`
	Knowledge    *string `json:"cache_knowledge,omitempty"`
	Focus        *string `json:"cache_focus,omitempty"`
	Independence *string `json:"cache_independence,omitempty"`
	Factuality   *string `json:"cache_factuality,omitempty"`
}

func (a *Assessment) field(c Criterion) **string {
	switch c {
	case Knowledge:
		return &a.Knowledge
	case Focus:
		return &a.Focus
	case Independence:
		return &a.Independence
	case Factuality:
		return &a.Factuality
	case Accuracy:
		return &a.Accuracy
	default:
		return nil
	}
}

// Judgment returns the stored judgment for the criterion and whether it is present.
func (a *Assessment) Judgment(c Criterion) (string, bool) {
	if a == nil {
		return "", false
	}
	f := a.field(c)
	if f == nil || *f == nil {
		return "", false
	}
	return **f, true
}

// JudgmentOrNoData is Judgment with the NoData placeholder for missing values.
func (a *Assessment) JudgmentOrNoData(c Criterion) string {
	if v, ok := a.Judgment(c); ok {
		return v
	}
	return NoData
}

func (a *Assessment) SetJudgment(c Criterion, judgment string) {
	if f := a.field(c); f != nil {
		v := judgment
		*f = &v
	}
}
