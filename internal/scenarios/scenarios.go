// Package scenarios promotes spec §8's six concrete end-to-end examples,
// plus two supplemented cases (Kotlin `when`, Ruby modifier-`if`,
// per SPEC_FULL.md's SUPPLEMENTED FEATURES section), from illustrative
// prose into an executable fixture table, the way the teacher's
// cmd/ralph-cc/integration_test.go drives IntegrationTestFile off
// testdata YAML rather than inline Go literals.
//
// Each scenario's expectations (name, language, the ordered substrings
// its lowered output must contain) live in testdata/scenarios.yaml;
// the synthetic parse tree for each scenario is built here in Go, since
// there is no real parser collaborator in this module's scope (spec
// §4.4) to turn the YAML's source-code snippets into trees.
package scenarios

import (
	"embed"
	"fmt"

	"github.com/tacir/lowercore/ir"
	"github.com/tacir/lowercore/node"
	"github.com/tacir/lowercore/registry"
	"github.com/tacir/lowercore/testutil"
	"gopkg.in/yaml.v3"
)

//go:embed testdata/scenarios.yaml
var fixtureFS embed.FS

// Case is a single named scenario (spec §8's Scenario A-F plus the two
// supplemented cases).
type Case struct {
	Name        string   `yaml:"name"`
	Language    string   `yaml:"language"`
	Description string   `yaml:"description"`
	ExpectOrder []string `yaml:"expect_order"`
}

// fixtureFile is testdata/scenarios.yaml's top-level shape.
type fixtureFile struct {
	Tests []Case `yaml:"tests"`
}

// Load reads testdata/scenarios.yaml.
func Load() ([]Case, error) {
	raw, err := fixtureFS.ReadFile("testdata/scenarios.yaml")
	if err != nil {
		return nil, err
	}
	var f fixtureFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	return f.Tests, nil
}

// builders maps each Case's Name to the synthetic tree it exercises.
var builders = map[string]func() (node.Tree, []byte){
	"scenario-a-python-function-def":        buildPythonFunctionDef,
	"scenario-b-lua-table-constructor":      buildLuaTableConstructor,
	"scenario-c-go-main-hoisted":            buildGoMainHoisted,
	"scenario-d-c-switch-no-fallthrough":    buildCSwitch,
	"scenario-e-rust-if-expression-phi":     buildRustIfExpression,
	"scenario-f-javascript-destructuring":   buildJavaScriptDestructuring,
	"supplemented-kotlin-when-expression":   buildKotlinWhen,
	"supplemented-ruby-modifier-if":         buildRubyModifierIf,
}

// Run lowers c's synthetic tree through its language's registered
// adapter and returns the rendered instruction text (ir.Sprint), for
// the caller to check ExpectOrder against.
func Run(c Case) (string, error) {
	build, ok := builders[c.Name]
	if !ok {
		return "", fmt.Errorf("scenarios: no tree builder registered for %q", c.Name)
	}
	tree, source := build()
	a, err := registry.New(c.Language)
	if err != nil {
		return "", err
	}
	instrs := a.Lower(tree.RootNode(), source, "")
	return ir.Sprint(instrs), nil
}

// Scenario A: Python `def add(a, b): return a + b`
func buildPythonFunctionDef() (node.Tree, []byte) {
	ret := testutil.Node("return_statement", nil,
		testutil.Node("binary_operator", nil,
			testutil.Leaf("identifier", "a"),
			testutil.AnonLeaf("+", "+"),
			testutil.Leaf("identifier", "b")))
	body := testutil.Node("block", nil, ret)
	params := testutil.Node("parameters", nil,
		testutil.Leaf("identifier", "a"), testutil.Leaf("identifier", "b"))
	fn := testutil.Node("function_definition", testutil.Fields{
		"name":       testutil.Leaf("identifier", "add"),
		"parameters": params,
		"body":       body,
	})
	root := testutil.Node("module", nil, fn)
	tree := testutil.Build(root)
	return tree, tree.Source
}

// Scenario B: Lua `t = {x=10, y=20, "hello"}`
func buildLuaTableConstructor() (node.Tree, []byte) {
	fieldX := testutil.Node("field", testutil.Fields{
		"name":  testutil.Leaf("identifier", "x"),
		"value": testutil.Leaf("number", "10"),
	})
	fieldY := testutil.Node("field", testutil.Fields{
		"name":  testutil.Leaf("identifier", "y"),
		"value": testutil.Leaf("number", "20"),
	})
	positional := testutil.Leaf("string", "\"hello\"")
	table := testutil.Node("table_constructor", nil, fieldX, fieldY, positional)
	assign := testutil.Node("assignment_statement", nil,
		testutil.Leaf("identifier", "t"), table)
	root := testutil.Node("chunk", nil, assign)
	tree := testutil.Build(root)
	return tree, tree.Source
}

// Scenario C: Go `func main() { x := add(1, 2) }`
func buildGoMainHoisted() (node.Tree, []byte) {
	args := testutil.Node("argument_list", nil,
		testutil.Leaf("int_literal", "1"), testutil.Leaf("int_literal", "2"))
	call := testutil.Node("call_expression", testutil.Fields{
		"function":  testutil.Leaf("identifier", "add"),
		"arguments": args,
	})
	shortVar := testutil.Node("short_var_declaration", testutil.Fields{
		"left":  testutil.Leaf("identifier", "x"),
		"right": call,
	})
	body := testutil.Node("block", nil, shortVar)
	mainFn := testutil.Node("function_declaration", testutil.Fields{
		"name": testutil.Leaf("identifier", "main"),
		"body": body,
	})
	root := testutil.Node("source_file", nil, mainFn)
	tree := testutil.Build(root)
	return tree, tree.Source
}

// Scenario D: C `switch(x){case 1: a(); break; case 2: b(); break;}`
func buildCSwitch() (node.Tree, []byte) {
	callA := testutil.Node("call_expression", testutil.Fields{
		"function":  testutil.Leaf("identifier", "a"),
		"arguments": testutil.Node("argument_list", nil),
	})
	case1 := testutil.Node("case_statement", testutil.Fields{
		"value": testutil.Leaf("number_literal", "1"),
	}, testutil.Node("expression_statement", nil, callA), testutil.Node("break_statement", nil))

	callB := testutil.Node("call_expression", testutil.Fields{
		"function":  testutil.Leaf("identifier", "b"),
		"arguments": testutil.Node("argument_list", nil),
	})
	case2 := testutil.Node("case_statement", testutil.Fields{
		"value": testutil.Leaf("number_literal", "2"),
	}, testutil.Node("expression_statement", nil, callB), testutil.Node("break_statement", nil))

	body := testutil.Node("compound_statement", nil, case1, case2)
	sw := testutil.Node("switch_statement", testutil.Fields{
		"condition": testutil.Leaf("identifier", "x"),
		"body":      body,
	})
	root := testutil.Node("translation_unit", nil, sw)
	tree := testutil.Build(root)
	return tree, tree.Source
}

// Scenario E: Rust `let y = if c { 1 } else { 2 };`
func buildRustIfExpression() (node.Tree, []byte) {
	ifExpr := testutil.Node("if_expression", testutil.Fields{
		"condition":   testutil.Leaf("identifier", "c"),
		"consequence": testutil.Node("block", nil, testutil.Leaf("integer_literal", "1")),
		"alternative": testutil.Node("block", nil, testutil.Leaf("integer_literal", "2")),
	})
	let := testutil.Node("let_declaration", testutil.Fields{
		"pattern": testutil.Leaf("identifier", "y"),
		"value":   ifExpr,
	})
	root := testutil.Node("source_file", nil, let)
	tree := testutil.Build(root)
	return tree, tree.Source
}

// Scenario F: JavaScript `const { a, b: localB } = obj;`
func buildJavaScriptDestructuring() (node.Tree, []byte) {
	shorthand := testutil.Leaf("shorthand_property_identifier_pattern", "a")
	pair := testutil.Node("pair_pattern", testutil.Fields{
		"key":   testutil.Leaf("property_identifier", "b"),
		"value": testutil.Leaf("identifier", "localB"),
	})
	objPattern := testutil.Node("object_pattern", nil, shorthand, pair)
	declarator := testutil.Node("variable_declarator", testutil.Fields{
		"name":  objPattern,
		"value": testutil.Leaf("identifier", "obj"),
	})
	decl := testutil.Node("lexical_declaration", nil, declarator)
	root := testutil.Node("program", nil, decl)
	tree := testutil.Build(root)
	return tree, tree.Source
}

// Supplemented: Kotlin `val r = when (x) { 1 -> a; else -> b }`
func buildKotlinWhen() (node.Tree, []byte) {
	entry1 := testutil.Node("when_entry", nil,
		testutil.Leaf("integer_literal", "1"), testutil.Leaf("simple_identifier", "a"))
	entryElse := testutil.Node("when_entry", nil,
		testutil.AnonLeaf("else", "else"), testutil.Leaf("simple_identifier", "b"))
	when := testutil.Node("when_expression", testutil.Fields{
		"subject": testutil.Leaf("simple_identifier", "x"),
	}, entry1, entryElse)
	property := testutil.Node("property_declaration", testutil.Fields{
		"name":  testutil.Leaf("simple_identifier", "r"),
		"value": when,
	})
	root := testutil.Node("source_file", nil, property)
	tree := testutil.Build(root)
	return tree, tree.Source
}

// Supplemented: Ruby `puts x if ready`
func buildRubyModifierIf() (node.Tree, []byte) {
	call := testutil.Node("call", testutil.Fields{
		"method":    testutil.Leaf("identifier", "puts"),
		"arguments": testutil.Node("argument_list", nil, testutil.Leaf("identifier", "x")),
	})
	ifMod := testutil.Node("if_modifier", testutil.Fields{
		"body":      call,
		"condition": testutil.Leaf("identifier", "ready"),
	})
	root := testutil.Node("program", nil, ifMod)
	tree := testutil.Build(root)
	return tree, tree.Source
}
