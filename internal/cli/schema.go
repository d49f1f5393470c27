// Package cli provides the --help-json command schema shared by docsrag and docsragd.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Flag group annotations set by cobra's MarkFlagsOneRequired and
// MarkFlagsMutuallyExclusive.
const (
	oneRequiredAnnotation       = "cobra_annotation_one_required"
	mutuallyExclusiveAnnotation = "cobra_annotation_mutually_exclusive"
)

// FlagSchema represents the JSON schema for a command flag.
type FlagSchema struct {
	Name        string `json:"name"`
	Shorthand   string `json:"shorthand,omitempty"`
	Type        string `json:"type"`
	Default     string `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
	Inherited   bool   `json:"inherited,omitempty"`
}

// CommandSchema represents the JSON schema for a command.
type CommandSchema struct {
	Name              string          `json:"name"`
	Use               string          `json:"use,omitempty"`
	Description       string          `json:"description,omitempty"`
	Long              string          `json:"long,omitempty"`
	Example           string          `json:"example,omitempty"`
	Flags             []FlagSchema    `json:"flags,omitempty"`
	OneRequired       [][]string      `json:"one_required,omitempty"`
	MutuallyExclusive [][]string      `json:"mutually_exclusive,omitempty"`
	Subcommands       []CommandSchema `json:"subcommands,omitempty"`
}

// GenerateSchema generates a JSON schema for a cobra command.
func GenerateSchema(cmd *cobra.Command) CommandSchema {
	schema := CommandSchema{
		Name:              cmd.Name(),
		Use:               cmd.Use,
		Description:       cmd.Short,
		Long:              cmd.Long,
		Example:           cmd.Example,
		Flags:             extractFlags(cmd),
		OneRequired:       flagGroups(cmd.LocalFlags(), oneRequiredAnnotation),
		MutuallyExclusive: flagGroups(cmd.LocalFlags(), mutuallyExclusiveAnnotation),
	}

	for _, sub := range cmd.Commands() {
		if sub.Name() == "help" || sub.Name() == "completion" || sub.Hidden {
			continue
		}
		schema.Subcommands = append(schema.Subcommands, GenerateSchema(sub))
	}

	return schema
}

func extractFlags(cmd *cobra.Command) []FlagSchema {
	var flags []FlagSchema
	visit := func(inherited bool) func(*pflag.Flag) {
		return func(f *pflag.Flag) {
			if f.Hidden || f.Name == "help-json" || f.Name == "help" {
				return
			}
			flags = append(flags, flagToSchema(f, inherited))
		}
	}
	cmd.LocalFlags().VisitAll(visit(false))
	cmd.InheritedFlags().VisitAll(visit(true))
	return flags
}

func flagToSchema(f *pflag.Flag, inherited bool) FlagSchema {
	_, required := f.Annotations[cobra.BashCompOneRequiredFlag]
	return FlagSchema{
		Name:        f.Name,
		Shorthand:   f.Shorthand,
		Type:        f.Value.Type(),
		Default:     f.DefValue,
		Description: f.Usage,
		Required:    required,
		Inherited:   inherited,
	}
}

// flagGroups collects the distinct flag groups recorded under annotation.
func flagGroups(flags *pflag.FlagSet, annotation string) [][]string {
	seen := make(map[string]bool)
	var groups [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		for _, group := range f.Annotations[annotation] {
			if seen[group] {
				continue
			}
			seen[group] = true
			groups = append(groups, splitGroup(group))
		}
	})
	sort.Slice(groups, func(i, j int) bool { return fmt.Sprint(groups[i]) < fmt.Sprint(groups[j]) })
	return groups
}

// cobra stores a group as its flag names joined by spaces.
func splitGroup(group string) []string {
	var names []string
	start := 0
	for i := 0; i <= len(group); i++ {
		if i == len(group) || group[i] == ' ' {
			if i > start {
				names = append(names, group[start:i])
			}
			start = i + 1
		}
	}
	return names
}

// WriteSchema writes the command schema as indented JSON.
func WriteSchema(w io.Writer, cmd *cobra.Command) error {
	output, err := json.MarshalIndent(GenerateSchema(cmd), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

// AddHelpJSONFlag adds the --help-json flag to a command.
func AddHelpJSONFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().Bool("help-json", false, "Output command schema as JSON")
}

// CheckHelpJSON checks os.Args for --help-json and, if present, prints the
// schema of the addressed command and exits. Call it before Execute so that
// argument validation does not run.
func CheckHelpJSON(rootCmd *cobra.Command) {
	for i, arg := range os.Args {
		if arg != "--help-json" {
			continue
		}
		if err := WriteSchema(os.Stdout, findTargetCommand(rootCmd, os.Args[1:i])); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}
}

func findTargetCommand(cmd *cobra.Command, args []string) *cobra.Command {
	if len(args) == 0 {
		return cmd
	}

	for _, sub := range cmd.Commands() {
		if sub.Name() == args[0] || sub.HasAlias(args[0]) {
			return findTargetCommand(sub, args[1:])
		}
	}

	return cmd
}
