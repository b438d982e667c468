package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/dualfolio/dualfolio/internal/application/dto"
	"github.com/dualfolio/dualfolio/internal/domain/entities"
)

const (
	defaultServerURL = "http://127.0.0.1:8080"
	clientTimeout    = 15 * time.Second
)

func init() {
	rootCmd.AddCommand(newContactCmd())
}

func newContactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contact",
		Short: "Send or read contact form messages",
	}
	cmd.AddCommand(newContactSendCmd(), newContactInboxCmd())
	return cmd
}

type contactSendOptions struct {
	server        string
	request       dto.ContactRequest
	noInteractive bool
}

func newContactSendCmd() *cobra.Command {
	opts := &contactSendOptions{}

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Submit the contact form of a running server",
		Long: `Submit the contact form of a running server. Fields not given as flags
are prompted for interactively unless --no-interactive is set.`,
		Example: `  dualfolio contact send
  dualfolio contact send --no-interactive --persona frankhurt --name Ada \
    --email ada@example.com --subject Hello --message "Loved the photo essays."`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runContactSend(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.server, "server", defaultServerURL, "base URL of the dualfolio server")
	cmd.Flags().StringVar(&opts.request.Persona, "persona", "", "persona the message is addressed to")
	cmd.Flags().StringVar(&opts.request.Name, "name", "", "your name")
	cmd.Flags().StringVar(&opts.request.Email, "email", "", "your email address")
	cmd.Flags().StringVar(&opts.request.Subject, "subject", "", "message subject")
	cmd.Flags().StringVar(&opts.request.Message, "message", "", "message body")
	cmd.Flags().BoolVar(&opts.noInteractive, "no-interactive", false, "fail instead of prompting for missing fields")
	return cmd
}

func runContactSend(cmd *cobra.Command, opts *contactSendOptions) error {
	client := newAPIClient(opts.server, clientTimeout)

	if !opts.noInteractive {
		if err := promptContact(cmd, client, &opts.request); err != nil {
			return err
		}
	}

	var resp dto.ContactResponse
	if err := client.post(cmd.Context(), "/api/contact", opts.request, &resp); err != nil {
		return err
	}

	_, err := fmt.Fprintf(cmd.OutOrStdout(), "Message %s delivered to %s at %s\n",
		resp.ID, resp.Persona, resp.ReceivedAt)
	return err
}

// promptContact asks for every field that is still empty.
func promptContact(cmd *cobra.Command, client *apiClient, req *dto.ContactRequest) error {
	var fields []huh.Field

	if req.Persona == "" {
		var personas []entities.Persona
		if err := client.get(cmd.Context(), "/api/personas", &personas); err != nil {
			return fmt.Errorf("failed to list personas: %w", err)
		}
		options := make([]huh.Option[string], 0, len(personas))
		for _, p := range personas {
			options = append(options, huh.NewOption(p.Name+" - "+p.Headline, p.ID.String()))
		}
		fields = append(fields, huh.NewSelect[string]().
			Title("Who would you like to reach?").
			Options(options...).
			Value(&req.Persona))
	}
	if req.Name == "" {
		fields = append(fields, huh.NewInput().Title("Name").Value(&req.Name).Validate(required("name")))
	}
	if req.Email == "" {
		fields = append(fields, huh.NewInput().Title("Email").Value(&req.Email).Validate(required("email")))
	}
	if req.Subject == "" {
		fields = append(fields, huh.NewInput().Title("Subject").Value(&req.Subject).Validate(required("subject")))
	}
	if req.Message == "" {
		fields = append(fields, huh.NewText().Title("Message").Value(&req.Message).Validate(required("message")))
	}

	if len(fields) == 0 {
		return nil
	}
	return huh.NewForm(huh.NewGroup(fields...)).Run()
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New(field + " is required")
		}
		return nil
	}
}

type contactInboxOptions struct {
	format  string
	persona string
	since   time.Duration
	limit   int
}

func newContactInboxCmd() *cobra.Command {
	opts := &contactInboxOptions{}

	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "List received contact messages",
		Long: `List contact messages saved in the storage backend, newest first.
Use --persona to read one persona's messages, or --since for a time range.`,
		Example: `  dualfolio contact inbox --storage sqlite --persona frankhurt --limit 5
  dualfolio contact inbox --storage sqlite --since 24h --format json`,
		Args: cobra.NoArgs,
		PreRunE: func(_ *cobra.Command, _ []string) error {
			if opts.persona != "" && opts.since > 0 {
				return fmt.Errorf("--persona and --since are mutually exclusive")
			}
			return validateFormat(opts.format)
		},
		RunE: withContainer(func(ctx *CommandContext, cmd *cobra.Command, _ []string) error {
			repo := ctx.Container.ContactRepository()

			var (
				msgs []*entities.ContactMessage
				err  error
			)
			if opts.persona != "" {
				if _, err := ctx.Container.PersonaResolver().GetPersona(opts.persona); err != nil {
					return err
				}
				msgs, err = repo.FindByPersona(ctx.Context, opts.persona, opts.limit)
			} else {
				since := opts.since
				if since <= 0 {
					since = 7 * 24 * time.Hour
				}
				now := time.Now()
				msgs, err = repo.FindBetween(ctx.Context, now.Add(-since), now)
				if err == nil && opts.limit > 0 && len(msgs) > opts.limit {
					msgs = msgs[:opts.limit]
				}
			}
			if err != nil {
				return fmt.Errorf("failed to read contact messages: %w", err)
			}

			if opts.format != formatTable {
				return writeStructured(cmd.OutOrStdout(), opts.format, msgs)
			}
			return printInbox(cmd.OutOrStdout(), msgs)
		}),
	}

	cmd.Flags().StringVar(&opts.format, "format", formatTable, "Output format: table, json, yaml")
	cmd.Flags().StringVar(&opts.persona, "persona", "", "only messages addressed to this persona")
	cmd.Flags().DurationVar(&opts.since, "since", 0, "only messages received within this window (default 168h)")
	cmd.Flags().IntVar(&opts.limit, "limit", 20, "maximum number of messages (0 for all)")
	return cmd
}

func printInbox(w io.Writer, msgs []*entities.ContactMessage) error {
	if len(msgs) == 0 {
		_, err := fmt.Fprintln(w, "No contact messages found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	if _, err := fmt.Fprintln(tw, "RECEIVED\tPERSONA\tFROM\tSUBJECT"); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, m := range msgs {
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s <%s>\t%s\n",
			m.ReceivedAt.Format(time.RFC3339), m.Persona, m.Name, m.Email, m.Subject); err != nil {
			return fmt.Errorf("failed to write message info: %w", err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to flush writer: %w", err)
	}
	return nil
}
