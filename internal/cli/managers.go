package cli

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/vietddude/cemetery/internal/core/domain"
)

var managersCmd = &cobra.Command{
	Use:   "managers",
	Short: "List managers and the boss (boss only)",
	RunE:  runManagers,
}

var managerCmd = &cobra.Command{
	Use:   "manager",
	Short: "Delegate or revoke management rights",
}

var managerAddCmd = &cobra.Command{
	Use:   "add [principal]",
	Short: "Grant the manager role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		app, _ := openApp(ctx)
		defer closeApp(app)
		if err := app.Client().AddManager(ctx, domain.Principal(args[0])); err != nil {
			return report(err)
		}
		pterm.Success.Printf("%s is now a manager\n", args[0])
		return nil
	},
}

var managerRemoveCmd = &cobra.Command{
	Use:   "remove [principal]",
	Short: "Revoke the manager role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		app, _ := openApp(ctx)
		defer closeApp(app)
		if err := app.Client().RemoveManager(ctx, domain.Principal(args[0])); err != nil {
			return report(err)
		}
		pterm.Success.Printf("%s is no longer a manager\n", args[0])
		return nil
	},
}

var transferCmd = &cobra.Command{
	Use:   "transfer-ownership [principal]",
	Short: "Hand the boss role to another principal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		app, _ := openApp(ctx)
		defer closeApp(app)
		if err := app.Client().AssignOwner(ctx, domain.Principal(args[0])); err != nil {
			return report(err)
		}
		pterm.Success.Printf("%s is now the boss\n", args[0])
		return nil
	},
}

func init() {
	managerCmd.AddCommand(managerAddCmd, managerRemoveCmd)
	rootCmd.AddCommand(managersCmd, managerCmd, transferCmd)
}

func runManagers(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	app, _ := openApp(ctx)
	defer closeApp(app)
	client := app.Client()

	boss, err := client.Boss(ctx)
	if err != nil {
		return report(err)
	}
	managers, err := client.Managers(ctx)
	if err != nil {
		return report(err)
	}

	pterm.Info.Printf("Boss: %s\n", boss)
	if len(managers) == 0 {
		pterm.Info.Println("No managers.")
		return nil
	}
	table := pterm.TableData{{"MANAGER"}}
	for _, m := range managers {
		table = append(table, []string{string(m)})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(table).Render()
	return nil
}
