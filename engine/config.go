package engine

// Config holds the grammar-specific constants the engine reads from an
// adapter, per spec §4.1.2. Every field has a common-grammar default;
// adapters override only the fields that differ (spec §4.2, step 2).
type Config struct {
	FuncNameField   string
	FuncParamsField string
	FuncBodyField   string

	IfConditionField    string
	IfConsequenceField  string
	IfAlternativeField  string

	WhileConditionField string
	WhileBodyField      string

	CallFunctionField  string
	CallArgumentsField string

	ClassNameField string
	ClassBodyField string

	AttrObjectField    string
	AttrAttributeField string
	AttributeNodeType  string

	SubscriptValueField string
	SubscriptIndexField string
	SubscriptNodeType   string

	AssignLeftField  string
	AssignRightField string

	// BlockNodeTypes, unlike the rest, is consulted nowhere directly by the
	// engine: a node type is a "block" simply by virtue of having no entry
	// in StmtDispatch (spec §4.1.3's lower_block rule). Adapters populate it
	// anyway as documentation of which node types act as blocks.
	BlockNodeTypes map[string]bool

	CommentTypes map[string]bool
	NoiseTypes   map[string]bool

	ParenExprType string

	// IdentifierTypes marks node types the engine treats as plain variable
	// references for LowerStoreTarget and the plain-identifier arm of
	// LowerCall's callee dispatch (spec §4.1.4).
	IdentifierTypes map[string]bool

	NoneLiteral  string
	TrueLiteral  string
	FalseLiteral string

	DefaultReturnValue string

	// ExtractParamName pulls a parameter's bound name out of a parameter
	// node. Most grammars expose it via a "name" field; adapters with a
	// different parameter shape (e.g. bare identifiers, typed patterns with
	// nested pattern structure) override this.
	ExtractParamName func(e *Engine, param Node) string
}

// DefaultConfig returns the engine defaults shared by the majority of the
// fifteen grammars (spec §4.1.2's field names match common tree-sitter
// convention); adapters override only what their grammar names differently.
func DefaultConfig() Config {
	return Config{
		FuncNameField:   "name",
		FuncParamsField: "parameters",
		FuncBodyField:   "body",

		IfConditionField:   "condition",
		IfConsequenceField: "consequence",
		IfAlternativeField: "alternative",

		WhileConditionField: "condition",
		WhileBodyField:      "body",

		CallFunctionField:  "function",
		CallArgumentsField: "arguments",

		ClassNameField: "name",
		ClassBodyField: "body",

		AttrObjectField:    "object",
		AttrAttributeField: "attribute",
		AttributeNodeType:  "attribute",

		SubscriptValueField: "value",
		SubscriptIndexField: "subscript",
		SubscriptNodeType:   "subscript",

		AssignLeftField:  "left",
		AssignRightField: "right",

		BlockNodeTypes: map[string]bool{"block": true},
		CommentTypes:   map[string]bool{"comment": true},
		NoiseTypes:     map[string]bool{},

		ParenExprType: "parenthesized_expression",

		IdentifierTypes: map[string]bool{"identifier": true},

		NoneLiteral:  "None",
		TrueLiteral:  "True",
		FalseLiteral: "False",

		DefaultReturnValue: "None",

		ExtractParamName: defaultExtractParamName,
	}
}

func defaultExtractParamName(e *Engine, param Node) string {
	if nameNode, ok := param.ChildByFieldName("name"); ok && nameNode != nil {
		return Text(nameNode, e.source)
	}
	return Text(param, e.source)
}
