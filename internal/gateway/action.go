package gateway

// Action is an editing operation a subscriber can ask the model for.
type Action string

const (
	ActionFormat     Action = "format"
	ActionFixGrammar Action = "fix_grammar"
	ActionRewrite    Action = "rewrite"
	ActionSummarize  Action = "summarize"
	ActionExpand     Action = "expand"
)

type actionSpec struct {
	// precision actions go to the primary backend first; the others start
	// on the alternate so the primary's quota is kept for precision work.
	precision   bool
	instruction string
}

var actions = map[Action]actionSpec{
	ActionFormat: {
		precision:   true,
		instruction: "Format the document using clean Markdown headings, lists and emphasis. Do not change the wording.",
	},
	ActionFixGrammar: {
		precision:   true,
		instruction: "Correct spelling, grammar and punctuation. Keep the author's wording and structure otherwise unchanged.",
	},
	ActionRewrite: {
		instruction: "Rewrite the text to read clearly and naturally while keeping its meaning.",
	},
	ActionSummarize: {
		instruction: "Summarize the text in a few short paragraphs.",
	},
	ActionExpand: {
		instruction: "Expand the text with more detail and supporting explanation in the same voice.",
	},
}

func (a Action) Valid() bool {
	_, ok := actions[a]
	return ok
}

func (a Action) Precision() bool {
	return actions[a].precision
}

// ProviderOrder names the two backends actions are routed between.
type ProviderOrder struct {
	Primary   string
	Alternate string
}

// For returns the preferred provider order for action.
func (o ProviderOrder) For(action Action) []string {
	if action.Precision() {
		return []string{o.Primary, o.Alternate}
	}
	return []string{o.Alternate, o.Primary}
}
