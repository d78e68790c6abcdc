package cli

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/vietddude/cemetery/internal/core/domain"
)

var (
	profileName  string
	profileEmail string
)

var profileCmd = &cobra.Command{
	Use:   "profile [principal]",
	Short: "Show your profile, or another principal's (boss only)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProfile,
}

var profileSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Save your name and optional email",
	Args:  cobra.NoArgs,
	RunE:  runProfileSet,
}

func init() {
	profileSetCmd.Flags().StringVar(&profileName, "name", "", "full name (required)")
	profileSetCmd.Flags().StringVar(&profileEmail, "email", "", "contact email")
	_ = profileSetCmd.MarkFlagRequired("name")

	profileCmd.AddCommand(profileSetCmd)
	rootCmd.AddCommand(profileCmd)
}

func runProfile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	app, _ := openApp(ctx)
	defer closeApp(app)
	client := app.Client()

	var (
		p   *domain.UserProfile
		err error
	)
	if len(args) == 1 {
		p, err = client.UserProfile(ctx, domain.Principal(args[0]))
	} else {
		p, err = client.CallerProfile(ctx)
	}
	if err != nil {
		return report(err)
	}
	if p == nil {
		pterm.Info.Println("No profile saved yet, use `profile set --name`.")
		return nil
	}
	pterm.Info.Println(profileLine(*p))
	return nil
}

func runProfileSet(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	app, _ := openApp(ctx)
	defer closeApp(app)

	profile := domain.UserProfile{Name: profileName}
	if profileEmail != "" {
		profile.Email = &profileEmail
	}
	if err := app.Client().SaveCallerProfile(ctx, profile); err != nil {
		return report(err)
	}
	pterm.Success.Println("Profile saved")
	return nil
}

func profileLine(p domain.UserProfile) string {
	if p.Email == nil {
		return p.Name
	}
	return p.Name + " <" + *p.Email + ">"
}
