package rules

import (
	"fmt"
	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"
	"sort"
	"strings"
)

type Engine struct {
	RuleSets map[string]RuleSet
	Rules    []CompiledRule
}

type Rule struct {
	Description string   `yaml:"description"`
	Filter      string   `yaml:"filter"`
	Settings    Settings `yaml:"settings"`
	Children    []Rule   `yaml:"children"`
}

type CompiledRule struct {
	Description string
	Filter      *vm.Program
	Settings    Settings
	Children    []CompiledRule
}

type RuleSet struct {
	Name      string   `yaml:"name"`
	DependsOn []string `yaml:"dependsOn"`
	Rules     []Rule   `yaml:"rules"`
}

// Input is the environment rule filters are evaluated against.
type Input struct {
	VendorID  int
	ProductID int
	Endpoint  int
	Primary   bool
	Profile   string
	Tag       string
}

type Output struct {
	Settings Settings
	Matched  []string
}

func (e *Engine) CompileRules() error {
	alreadyLoaded := map[string]bool{}

	var names []string
	for k := range e.RuleSets {
		alreadyLoaded[k] = false
		names = append(names, k)
	}

	sort.Strings(names)

	for _, k := range names {
		if !alreadyLoaded[k] {
			if err := e.compileRuleSet(alreadyLoaded, []string{}, k); err != nil {
				return err
			}
		}
	}

	return nil
}

func (e *Engine) compileRuleSet(alreadyLoaded map[string]bool, trail []string, name string) error {
	rs, ok := e.RuleSets[name]
	if !ok {
		return fmt.Errorf("ruleset missing dependency: %s->%s", strings.Join(trail, "->"), name)
	}

	trail = append(trail, rs.Name)

	for _, k := range rs.DependsOn {
		for _, t := range trail {
			if k == t {
				return fmt.Errorf("ruleset circular dependency: %s->%s", strings.Join(trail, "->"), k)
			}
		}

		if !alreadyLoaded[k] {
			if err := e.compileRuleSet(alreadyLoaded, trail, k); err != nil {
				return err
			}
		}
	}

	if cr, err := compileRules(rs.Rules); err != nil {
		return fmt.Errorf("ruleset compilation: %s: %w", strings.Join(trail, "->"), err)
	} else {
		e.Rules = append(e.Rules, cr...)
	}

	alreadyLoaded[name] = true

	return nil
}

func compileRules(rules []Rule) ([]CompiledRule, error) {
	var compiledRules []CompiledRule

	for _, rule := range rules {
		cf, err := expr.Compile(rule.Filter, expr.Env(Input{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("filter compilation: %w", err)
		}

		if childCompiledRules, err := compileRules(rule.Children); err != nil {
			return nil, fmt.Errorf("%s: %w", rule.Description, err)
		} else {
			compiledRules = append(compiledRules, CompiledRule{
				Description: rule.Description,
				Filter:      cf,
				Settings:    rule.Settings,
				Children:    childCompiledRules,
			})
		}
	}

	return compiledRules, nil
}

// Execute evaluates every top level rule in dependency order. For each match the most specific matching child is
// found, settings of children override their parents, and settings of later rules override earlier ones.
func (e *Engine) Execute(in Input) (Output, error) {
	out := Output{Settings: Settings{}}

	for _, r := range e.Rules {
		if matched, err := r.matches(in); err != nil {
			return Output{}, err
		} else if matched {
			if err := r.apply(in, &out); err != nil {
				return Output{}, err
			}
		}
	}

	return out, nil
}

func (r CompiledRule) apply(in Input, out *Output) error {
	out.Matched = append(out.Matched, r.Description)
	out.Settings.Merge(r.Settings)

	for _, c := range r.Children {
		if matched, err := c.matches(in); err != nil {
			return err
		} else if matched {
			return c.apply(in, out)
		}
	}

	return nil
}

func (r CompiledRule) matches(in Input) (bool, error) {
	result, err := expr.Run(r.Filter, in)
	if err != nil {
		return false, fmt.Errorf("rule %q: %w", r.Description, err)
	}

	matched, _ := result.(bool)
	return matched, nil
}
