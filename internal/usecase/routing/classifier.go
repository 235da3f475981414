package routing

import "strings"

// TaskCategory is the coarse kind of work a request asks for.
type TaskCategory string

const (
	CategoryGeneral   TaskCategory = "general"
	CategoryTechnical TaskCategory = "technical"
	CategoryCreative  TaskCategory = "creative"
	CategoryBusiness  TaskCategory = "business"
)

// ClassificationRule binds a category to the substrings that trigger it.
type ClassificationRule struct {
	Category TaskCategory
	Keywords []string
}

// ClassificationResult is the category chosen for one input and the keyword that decided it.
// MatchedKeyword is empty when no rule fired and the input fell through to General.
type ClassificationResult struct {
	Category       TaskCategory `json:"category"`
	MatchedKeyword string       `json:"matchedKeyword,omitempty"`
}

// defaultRules is evaluated top to bottom and the first hit wins.
// Technical outranks Creative, which outranks Business.
var defaultRules = []ClassificationRule{
	{
		Category: CategoryTechnical,
		Keywords: []string{
			"代码", "程序", "函数", "bug", "编程", "算法",
			"code", "program", "function", "algorithm", "debug", "compile", "stack trace",
		},
	},
	{
		Category: CategoryCreative,
		Keywords: []string{
			"写作", "故事", "诗歌", "创意", "小说", "文章",
			"story", "poem", "poetry", "novel", "lyrics", "creative", "write a",
		},
	},
	{
		Category: CategoryBusiness,
		Keywords: []string{
			"商业", "市场", "策略", "管理", "营销", "分析",
			"business", "market", "strategy", "management", "revenue", "analysis",
		},
	},
}

// TaskClassifier maps free text to a TaskCategory using ordered keyword rules.
// It holds no mutable state and may be shared between goroutines.
type TaskClassifier struct {
	rules []ClassificationRule
}

// NewTaskClassifier returns a classifier over the built-in rule table.
func NewTaskClassifier() *TaskClassifier {
	return &TaskClassifier{rules: defaultRules}
}

// NewTaskClassifierWithRules returns a classifier that evaluates rules in the given order.
func NewTaskClassifierWithRules(rules []ClassificationRule) *TaskClassifier {
	copied := make([]ClassificationRule, len(rules))
	for i, r := range rules {
		kw := make([]string, len(r.Keywords))
		for j, k := range r.Keywords {
			kw[j] = strings.ToLower(k)
		}
		copied[i] = ClassificationRule{Category: r.Category, Keywords: kw}
	}
	return &TaskClassifier{rules: copied}
}

// Classify returns the category of text. It never fails; General is the fallback.
func (c *TaskClassifier) Classify(text string) TaskCategory {
	return c.ClassifyDetailed(text).Category
}

// ClassifyDetailed is Classify plus the keyword that triggered the decision.
func (c *TaskClassifier) ClassifyDetailed(text string) ClassificationResult {
	lowered := strings.ToLower(text)
	for _, rule := range c.rules {
		if kw, ok := firstContained(lowered, rule.Keywords); ok {
			return ClassificationResult{Category: rule.Category, MatchedKeyword: kw}
		}
	}
	return ClassificationResult{Category: CategoryGeneral}
}

// Rules returns a copy of the rule table in evaluation order.
func (c *TaskClassifier) Rules() []ClassificationRule {
	out := make([]ClassificationRule, len(c.rules))
	for i, r := range c.rules {
		out[i] = ClassificationRule{Category: r.Category, Keywords: append([]string(nil), r.Keywords...)}
	}
	return out
}

func firstContained(s string, subs []string) (string, bool) {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return sub, true
		}
	}
	return "", false
}
