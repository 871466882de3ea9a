package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	e "github.com/gartstein/arctecfox/internal/arctecfox/errors"
	"github.com/gartstein/arctecfox/internal/arctecfox/models"
	"github.com/gartstein/arctecfox/internal/arctecfox/notify"
	"github.com/gartstein/arctecfox/internal/arctecfox/planner"
	"github.com/gartstein/arctecfox/internal/arctecfox/render"
	"github.com/spf13/cobra"
)

type credentialFlags struct {
	email    string
	password string
}

func (c *credentialFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.email, "email", "", "account email")
	cmd.Flags().StringVar(&c.password, "password", os.Getenv("ARCTECFOX_PASSWORD"), "account password (or ARCTECFOX_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
}

func (a *app) signUpCmd() *cobra.Command {
	var creds credentialFlags
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := a.session.SignUp(cmd.Context(), creds.email, creds.password)
			if err != nil {
				return a.fail(err)
			}
			email := creds.email
			if user != nil {
				email = user.Email
			}
			a.notifier.Success("Account created for " + email)
			return nil
		},
	}
	creds.bind(cmd)
	return cmd
}

func (a *app) signInCmd() *cobra.Command {
	var creds credentialFlags
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in and remember the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := a.session.SignIn(cmd.Context(), creds.email, creds.password)
			if err != nil {
				return a.fail(err)
			}
			if user == nil {
				// token stored, but the backend did not describe the identity
				a.notifier.Success("Signed in as " + creds.email)
				return nil
			}
			a.notifier.Success("Signed in as " + user.Email)

			done, err := a.session.IsProfileComplete(cmd.Context(), user.ID)
			if err == nil && !done {
				a.notifier.Notify("Complete your profile with `arctecfox profile complete`", notify.Warning, 0)
			}
			return nil
		},
	}
	creds.bind(cmd)
	return cmd
}

func (a *app) signOutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "End the session and clear local session data",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.session.SignOut(cmd.Context()); err != nil {
				return a.fail(err)
			}
			a.notifier.Success("Signed out")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			user := a.session.CurrentUser(cmd.Context())
			if user == nil {
				fmt.Fprintln(a.out, "Not signed in.")
				return nil
			}
			fmt.Fprintf(a.out, "%s (%s)\n", user.Email, user.ID)
			return nil
		},
	}
}

func (a *app) tableCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "table [assets|metrics|companies|users]",
		Short:     "Print every row of a table as JSON",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"assets", "metrics", "companies", "users"},
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := a.session.FetchAll(cmd.Context(), args[0])
			if err != nil {
				return a.fail(err)
			}
			enc := json.NewEncoder(a.out)
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		},
	}
}

func (a *app) profileCmd() *cobra.Command {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Complete or check your onboarding profile",
	}

	var data models.ProfileData
	completeCmd := &cobra.Command{
		Use:   "complete",
		Short: "Complete your profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := a.session.CompleteProfile(cmd.Context(), &data)
			if err != nil {
				return a.fail(err)
			}
			a.notifier.Success(fmt.Sprintf("Profile completed for %s at %s", user.FullName, user.CompanyName))
			return nil
		},
	}
	completeCmd.Flags().StringVar(&data.FullName, "full-name", "", "your full name")
	completeCmd.Flags().StringVar(&data.Role, "role", "", "your role")
	completeCmd.Flags().StringVar(&data.CompanyName, "company", "", "company name")
	completeCmd.Flags().StringVar(&data.Industry, "industry", "", "company industry")
	completeCmd.Flags().StringVar(&data.CompanySize, "company-size", "", "company size")
	_ = completeCmd.MarkFlagRequired("company")

	statusCmd := &cobra.Command{
		Use:   "status [user-id]",
		Short: "Report whether a profile is complete (defaults to the signed-in user)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			} else if user := a.session.CurrentUser(cmd.Context()); user != nil {
				id = user.ID
			}
			done, err := a.session.IsProfileComplete(cmd.Context(), id)
			if err != nil {
				return a.fail(err)
			}
			fmt.Fprintf(a.out, "profile_completed: %t\n", done)
			return nil
		},
	}

	profileCmd.AddCommand(completeCmd, statusCmd)
	return profileCmd
}

func bindAsset(cmd *cobra.Command, asset *models.AssetDescription) {
	f := cmd.Flags()
	f.StringVar(&asset.Name, "name", "", "asset name")
	f.StringVar(&asset.Model, "model", "", "asset model")
	f.StringVar(&asset.Serial, "serial", "", "serial number")
	f.StringVar(&asset.Category, "category", "", "asset category")
	f.IntVar(&asset.Hours, "hours", 0, "operating hours")
	f.IntVar(&asset.Cycles, "cycles", 0, "usage cycles")
	f.StringVar(&asset.Environment, "environment", "", "operating environment")
	f.StringVar(&asset.DateOfPlanStart, "start", "", "plan start date (YYYY-MM-DD, defaults to today)")
}

func (a *app) planCmd() *cobra.Command {
	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Generate or export a preventive maintenance plan",
	}

	var asset models.AssetDescription
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a plan and print it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tasks, err := a.planner.GeneratePlan(cmd.Context(), asset)
			if err != nil {
				a.notifier.Error("Something went wrong. Please check your inputs or try again.")
				return err
			}
			fmt.Fprintln(a.out, render.Plan(tasks))
			return nil
		},
	}
	bindAsset(generateCmd, &asset)

	var exportAsset models.AssetDescription
	var outDir string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Request the plan as a spreadsheet and save it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sheet, err := a.planner.ExportPlanAsSpreadsheet(cmd.Context(), exportAsset)
			if err != nil {
				a.notifier.Error("Failed to export Excel. Please try again.")
				return err
			}
			path, err := planner.Saver{Dir: outDir}.Save(sheet)
			if err != nil {
				return a.fail(err)
			}
			a.notifier.Success("Saved " + path)
			return nil
		},
	}
	bindAsset(exportCmd, &exportAsset)
	exportCmd.Flags().StringVarP(&outDir, "output-dir", "o", ".", "directory to save the spreadsheet in")

	planCmd.AddCommand(generateCmd, exportCmd)
	return planCmd
}

// fail reports err as an error toast and returns it.
func (a *app) fail(err error) error {
	msg := err.Error()
	var remote *e.RemoteError
	if errors.As(err, &remote) {
		msg = remote.Message
	}
	a.notifier.Error(msg)
	return err
}
