package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dualfolio/dualfolio/internal/domain/entities"
	"github.com/dualfolio/dualfolio/internal/infrastructure/config"
)

func init() {
	rootCmd.AddCommand(newPersonasCmd())
}

func newPersonasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "personas",
		Short: "Inspect the persona registry",
		Long: `Inspect the persona registry.

The registry is loaded from personas.file, or the bundled registry when unset.
The first persona is the primary one, shown while the switch is off.`,
	}

	cmd.AddCommand(
		newPersonasListCmd(),
		newPersonasShowCmd(),
		newPersonasOppositeCmd(),
		newPersonasValidateCmd(),
		newPersonasExportCmd(),
	)
	return cmd
}

func newPersonasListCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List registered personas",
		Example: `  dualfolio personas list --format yaml`,
		Args:    cobra.NoArgs,
		PreRunE: func(_ *cobra.Command, _ []string) error {
			return validateFormat(format)
		},
		RunE: withContainer(func(ctx *CommandContext, cmd *cobra.Command, _ []string) error {
			personas := ctx.Container.PersonaResolver().GetAllPersonas()
			if format != formatTable {
				return writeStructured(cmd.OutOrStdout(), format, personas)
			}
			return printPersonaTable(cmd.OutOrStdout(), personas)
		}),
	}

	cmd.Flags().StringVar(&format, "format", formatTable, "Output format: table, json, yaml")
	return cmd
}

func newPersonasShowCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:     "show <id>",
		Short:   "Show one persona",
		Example: `  dualfolio personas show frankhurt`,
		Args:    cobra.ExactArgs(1),
		PreRunE: func(_ *cobra.Command, _ []string) error {
			return validateFormat(format)
		},
		RunE: withContainer(func(ctx *CommandContext, cmd *cobra.Command, args []string) error {
			persona, err := ctx.Container.PersonaResolver().GetPersona(args[0])
			if err != nil {
				return err
			}
			return printPersona(cmd.OutOrStdout(), format, persona)
		}),
	}

	cmd.Flags().StringVar(&format, "format", formatTable, "Output format: table, json, yaml")
	return cmd
}

func newPersonasOppositeCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:     "opposite <id>",
		Short:   "Show the persona a switch from <id> lands on",
		Example: `  dualfolio personas opposite francisco`,
		Args:    cobra.ExactArgs(1),
		PreRunE: func(_ *cobra.Command, _ []string) error {
			return validateFormat(format)
		},
		RunE: withContainer(func(ctx *CommandContext, cmd *cobra.Command, args []string) error {
			persona, err := ctx.Container.PersonaResolver().GetOppositePersona(args[0])
			if err != nil {
				return err
			}
			return printPersona(cmd.OutOrStdout(), format, persona)
		}),
	}

	cmd.Flags().StringVar(&format, "format", formatTable, "Output format: table, json, yaml")
	return cmd
}

func newPersonasValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a persona registry file",
		Long: `Validate a persona registry file against the registry schema and the
persona invariants without starting the server.`,
		Example: `  dualfolio personas validate ./personas.yaml`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := config.NewPersonaLoader()
			if err != nil {
				return err
			}
			registry, err := loader.Load(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s is valid: %d personas, primary %s\n",
				args[0], registry.Len(), registry.DefaultID())
			return err
		},
	}
}

func newPersonasExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "export",
		Short:   "Print the bundled persona registry",
		Long:    `Print the bundled persona registry as a starting point for personas.file.`,
		Example: `  dualfolio personas export > personas.yaml`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write(config.BundledPersonas())
			return err
		},
	}
}

func printPersona(w io.Writer, format string, persona entities.Persona) error {
	if format != formatTable {
		return writeStructured(w, format, persona)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	rows := [][2]string{
		{"ID", persona.ID.String()},
		{"NAME", persona.Name},
		{"HEADLINE", persona.Headline},
		{"BIO", persona.Bio},
	}
	for _, link := range persona.Links {
		rows = append(rows, [2]string{"LINK", link.Name + " " + link.Link})
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1]); err != nil {
			return fmt.Errorf("failed to write persona: %w", err)
		}
	}
	return tw.Flush()
}

func printPersonaTable(w io.Writer, personas []entities.Persona) error {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	if _, err := fmt.Fprintln(tw, "ID\tNAME\tHEADLINE"); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, p := range personas {
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.Name, p.Headline); err != nil {
			return fmt.Errorf("failed to write persona info: %w", err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to flush writer: %w", err)
	}
	return nil
}
