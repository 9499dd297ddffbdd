package app

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/esptrack/esptrack/internal/rules"
)

var (
	rulesFile string

	rulesCmd = &cobra.Command{
		Use:   "rules",
		Short: "Validate and list a rule file",
		Long: `Dry-compile a rule file the way the engine would: substitute the {GUID}
placeholder, compile each enabled rule's regex, and report the rules that
would be dropped. The engine tolerates bad rules at load time; this command
exists so rule authors find out before deploying.`,
		Example: `  esptrack rules --file rules.yaml`,
		RunE:    runRules,
	}
)

func init() {
	rulesCmd.Flags().StringVar(&rulesFile, "file", "", "rule file to validate (required)")
	rulesCmd.MarkFlagRequired("file")
}

func runRules(cmd *cobra.Command, args []string) error {
	ruleset, err := rules.LoadFile(rulesFile)
	if err != nil {
		return err
	}

	problems := rules.Validate(ruleset)

	fmt.Printf("%-28s %-14s %-18s %-8s %s\n", "ID", "CATEGORY", "ACTION", "ENABLED", "STATUS")
	for _, r := range ruleset {
		status := "ok"
		if !r.Enabled {
			status = "disabled"
		} else if err, bad := problems[r.ID]; bad {
			status = "DROPPED: " + err.Error()
		} else if rules.ParseAction(r.Action) == rules.ActionUnknown {
			status = "unknown action (matches ignored)"
		}
		fmt.Printf("%-28s %-14s %-18s %-8v %s\n", r.ID, r.Category, r.Action, r.Enabled, status)
	}

	if len(problems) > 0 {
		ids := make([]string, 0, len(problems))
		for id := range problems {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		fmt.Printf("\n%d rule(s) would be dropped: %v\n", len(problems), ids)
	}
	return nil
}
