package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tagwright/tagwright-server/internal/domain"
	"github.com/tagwright/tagwright-server/internal/script"
	"github.com/tagwright/tagwright-server/internal/service"
)

// readScript reads a script from path, or from stdin when path is "-".
func readScript(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		return string(b), err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read script: %w", err)
	}
	return string(b), nil
}

func parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse FILE",
		Short: "Parse a script and print its canonical form",
		Long: `Parse a script without touching the database. Prints one canonical line
per action followed by the tags the script references. Use - to read stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readScript(cmd, args[0])
			if err != nil {
				return err
			}

			set, err := script.Parse(text)
			if err != nil {
				var perrs script.ParseErrors
				if errors.As(err, &perrs) {
					for _, pe := range perrs {
						fmt.Fprintln(cmd.ErrOrStderr(), pe.Error())
					}
					return fmt.Errorf("%d unparseable line(s)", len(perrs))
				}
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, set.String())
			fmt.Fprintf(out, "\n# tags: %s\n", strings.Join(set.ReferencedTags(), " "))
			return nil
		},
	}
}

func checkCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check FILE",
		Short: "Validate a script against the current taxonomy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readScript(cmd, args[0])
			if err != nil {
				return err
			}

			a, err := openApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			burs, err := a.bulkUpdates()
			if err != nil {
				return err
			}

			preview, err := burs.Preview(cmd.Context(), text)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, preview.Script)
			if preview.Valid() {
				fmt.Fprintf(out, "\nOK: %d action(s), %d tag(s)\n", len(preview.Actions), len(preview.Tags))
				return nil
			}

			fmt.Fprintln(out)
			for _, verr := range preview.Errors {
				fmt.Fprintf(out, "  - %s\n", verr.Error())
			}
			return fmt.Errorf("script has %d problem(s)", len(preview.Errors))
		},
	}
}

func listCmd(flags *globalFlags) *cobra.Command {
	var params service.SearchParams

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List bulk update requests, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			burs, err := a.bulkUpdates()
			if err != nil {
				return err
			}

			page, err := burs.Search(cmd.Context(), params)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATUS\tREQUESTER\tAPPROVER\tUPDATED\tTITLE")
			for _, bur := range page.Items {
				approver := bur.ApproverName
				if approver == "" {
					approver = "-"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
					bur.ID, bur.Status, bur.UserName, approver,
					bur.UpdatedAt.Format("2006-01-02 15:04"), bur.Title)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if page.HasMore {
				fmt.Fprintf(cmd.OutOrStdout(), "\n%d of %d shown\n", len(page.Items), page.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&params.Status, "status", "", "Filter by status (pending, approved, rejected)")
	cmd.Flags().StringVar(&params.RequesterName, "requester", "", "Filter by requester name")
	cmd.Flags().StringVar(&params.ApproverName, "approver", "", "Filter by approver name")
	cmd.Flags().IntVar(&params.Limit, "limit", 50, "Maximum number of requests")
	cmd.Flags().IntVar(&params.Offset, "offset", 0, "Requests to skip")

	return cmd
}

// decideCmd builds the approve and reject commands, which differ only in
// the service call.
func decideCmd(flags *globalFlags, verb string) *cobra.Command {
	var actorName string

	cmd := &cobra.Command{
		Use:   verb + " ID",
		Short: strings.ToUpper(verb[:1]) + verb[1:] + " a pending bulk update request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
			if err != nil || id < 1 {
				return fmt.Errorf("invalid bulk update request id %q", args[0])
			}

			a, err := openApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			actor, err := lookupUser(cmd.Context(), a, actorName)
			if err != nil {
				return err
			}

			burs, err := a.bulkUpdates()
			if err != nil {
				return err
			}

			var bur *domain.BulkUpdateRequest
			if verb == "approve" {
				bur, err = burs.Approve(cmd.Context(), actor, id)
			} else {
				bur, err = burs.Reject(cmd.Context(), actor, id)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "bulk update request #%d is %s by %s\n", bur.ID, bur.Status, actor.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&actorName, "as", "", "Name of the admin deciding the request")
	_ = cmd.MarkFlagRequired("as")

	return cmd
}

func lookupUser(ctx context.Context, a *app, name string) (*domain.User, error) {
	authService, err := a.auth()
	if err != nil {
		return nil, err
	}
	return authService.GetUserByName(ctx, name)
}

func userCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	var (
		level    string
		password string
	)
	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lvl, ok := domain.ParseLevel(level)
			if !ok {
				return fmt.Errorf("unknown level %q (must be member, builder, moderator or admin)", level)
			}

			a, err := openApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			authService, err := a.auth()
			if err != nil {
				return err
			}

			user, err := authService.CreateUser(cmd.Context(), service.CreateUserRequest{
				Name:     args[0],
				Password: password,
				Level:    lvl,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", user.Level, user.Name, user.ID)
			return nil
		},
	}
	add.Flags().StringVar(&level, "level", "member", "Account level (member, builder, moderator, admin)")
	add.Flags().StringVar(&password, "password", "", "Account password, at least 8 characters")
	_ = add.MarkFlagRequired("password")

	cmd.AddCommand(add)
	return cmd
}
