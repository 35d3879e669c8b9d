package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bayb/pathway/internal/questions"
	"github.com/bayb/pathway/internal/store"
)

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a user's stored onboarding status",
		RunE:  runStatus,
	}
	f := cmd.Flags()
	f.StringP("user", "u", "", "User ID (required)")
	addStoreFlags(f)
	addLogFlags(f)
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored onboarding answers for all users",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.StringP("format", "f", "json", "Output format (json, yaml)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addStoreFlags(f)
	addLogFlags(f)
	return cmd
}

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the interview questions and their conditions",
		RunE:  runCatalog,
	}
	f := cmd.Flags()
	f.StringP("format", "f", "text", "Output format (text, json, yaml)")
	addLogFlags(f)
	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)

	kv, err := openKV(cmd.Context(), v)
	if err != nil {
		return err
	}
	defer kv.Close()

	o := store.NewOnboarding(kv, questions.Catalog())
	st, err := o.Status(cmd.Context(), v.GetString("user"))
	if err != nil {
		return fmt.Errorf("read status: %w", err)
	}
	return encode(cmd.OutOrStdout(), "json", st)
}

func runExport(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)

	kv, err := openKV(cmd.Context(), v)
	if err != nil {
		return err
	}
	defer kv.Close()

	export, err := store.NewOnboarding(kv, questions.Catalog()).Export(cmd.Context())
	if err != nil {
		return fmt.Errorf("export onboarding: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = cmd.OutOrStdout()
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	return encode(w, v.GetString("format"), export)
}

type catalogEntry struct {
	Position  int      `json:"position" yaml:"position"`
	ID        string   `json:"id" yaml:"id"`
	Section   string   `json:"section" yaml:"section"`
	Field     string   `json:"field" yaml:"field"`
	Text      string   `json:"text" yaml:"text"`
	DependsOn []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
}

func runCatalog(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)

	catalog := questions.Catalog()
	entries := make([]catalogEntry, len(catalog))
	for i, q := range catalog {
		entries[i] = catalogEntry{
			Position: i + 1,
			ID:       q.ID,
			Section:  q.Section,
			Field:    q.Field,
			Text:     q.Text,
		}
		if q.When != nil {
			entries[i].DependsOn = q.When.DependsOn
		}
	}

	format := v.GetString("format")
	if format != "text" {
		return encode(cmd.OutOrStdout(), format, entries)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tSECTION\tFIELD\tWHEN")
	for _, e := range entries {
		when := "always"
		if len(e.DependsOn) > 0 {
			when = strings.Join(e.DependsOn, ",")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", e.Position, e.ID, e.Section, e.Field, when)
	}
	fmt.Fprintf(tw, "\n%d questions in %d sections\n", len(catalog), len(questions.Sections(catalog)))
	return tw.Flush()
}

func encode(w io.Writer, format string, v any) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("write JSON: %w", err)
		}
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("write YAML: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	return nil
}
