package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/splitkit/splitkit/internal/engine"
	"github.com/splitkit/splitkit/internal/store"
)

func init() {
	rootCmd.AddCommand(newCreateCmd())
}

func newCreateCmd() *cobra.Command {
	var (
		name     string
		variants string
		rules    []string
		activate bool
	)

	cmd := &cobra.Command{
		Use:   "create <id>",
		Short: "Create a new experiment",
		Long: `Create a new experiment with weighted variants. Weights must sum to 100.

Variants are given as comma-separated id=weight pairs, optionally with a
display name: id=weight or id:name=weight.

Targeting rules are given as type:operator:value, where operator is one of
equals, not_equals, in, not_in. For in/not_in the value is a comma-separated
list.

Examples:
  splitkit create checkout-cta --variants "control=50,treatment=50"
  splitkit create pricing --variants "a:Monthly=34,b:Annual=33,c:Lifetime=33" --activate
  splitkit create onboarding --variants "control=50,new=50" \
    --rule "country:in:US,CA" --rule "subscription:equals:free"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]

			variantList, err := parseVariants(variants)
			if err != nil {
				return err
			}

			targeting, err := parseRules(rules)
			if err != nil {
				return err
			}

			if name == "" {
				name = id
			}

			status := store.StatusDraft
			if activate {
				status = store.StatusActive
			}

			return withEngine(func(e *engine.Engine, _ *store.SQLiteStore) error {
				exp := &store.Experiment{
					ID:        id,
					Name:      name,
					Variants:  variantList,
					Status:    status,
					Targeting: targeting,
				}

				if err := e.CreateExperiment(context.Background(), exp); err != nil {
					return err
				}

				fmt.Printf("Created experiment '%s' (%s) with %d variants:\n", exp.ID, exp.Status, len(exp.Variants))
				for _, v := range exp.Variants {
					fmt.Printf("  %s: %s (weight %d)\n", v.ID, v.Name, v.Weight)
				}
				for _, r := range exp.Targeting {
					fmt.Printf("  rule: %s %s %v\n", r.Type, r.Operator, r.Value)
				}

				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "display name (defaults to id)")
	cmd.Flags().StringVarP(&variants, "variants", "v", "", "comma-separated id=weight pairs (required)")
	cmd.Flags().StringArrayVar(&rules, "rule", nil, "targeting rule type:operator:value (repeatable)")
	cmd.Flags().BoolVar(&activate, "activate", false, "create the experiment already active")
	cmd.MarkFlagRequired("variants")

	return cmd
}

// parseVariants parses "id=weight" or "id:name=weight" pairs.
func parseVariants(spec string) ([]store.Variant, error) {
	parts := strings.Split(spec, ",")
	variants := make([]store.Variant, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		key, weightStr, found := strings.Cut(part, "=")
		if !found {
			return nil, fmt.Errorf("invalid variant %q: want id=weight", part)
		}

		weight, err := strconv.Atoi(strings.TrimSpace(weightStr))
		if err != nil {
			return nil, fmt.Errorf("invalid weight in %q: %w", part, err)
		}

		id, name, _ := strings.Cut(strings.TrimSpace(key), ":")
		if name == "" {
			name = id
		}

		variants = append(variants, store.Variant{ID: id, Name: name, Weight: weight})
	}

	return variants, nil
}

// parseRules parses "type:operator:value" rule specs. For in/not_in the
// value is split on commas into a list.
func parseRules(specs []string) ([]store.TargetingRule, error) {
	var rules []store.TargetingRule

	for _, spec := range specs {
		parts := strings.SplitN(spec, ":", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid rule %q: want type:operator:value", spec)
		}

		ruleType := strings.TrimSpace(parts[0])
		operator := strings.TrimSpace(parts[1])
		rawValue := parts[2]

		var value any
		switch operator {
		case store.OpEquals, store.OpNotEquals:
			value = strings.TrimSpace(rawValue)
		case store.OpIn, store.OpNotIn:
			items := strings.Split(rawValue, ",")
			list := make([]any, 0, len(items))
			for _, item := range items {
				list = append(list, strings.TrimSpace(item))
			}
			value = list
		default:
			return nil, fmt.Errorf("invalid rule operator %q: want equals, not_equals, in or not_in", operator)
		}

		rules = append(rules, store.TargetingRule{Type: ruleType, Operator: operator, Value: value})
	}

	return rules, nil
}
