package cli

import (
	"context"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var alleysCmd = &cobra.Command{
	Use:   "alleys",
	Short: "Show the cemetery layout",
	RunE:  runAlleys,
}

var alleyCmd = &cobra.Command{
	Use:   "alley",
	Short: "Administer alleys",
}

var alleyAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Add an alley",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		app, _ := openApp(ctx)
		defer closeApp(app)
		if err := app.Client().AddAlley(ctx, args[0]); err != nil {
			return report(err)
		}
		pterm.Success.Printf("Added alley %s\n", args[0])
		return nil
	},
}

var alleyRemoveCmd = &cobra.Command{
	Use:   "remove [name]",
	Short: "Remove an empty alley",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		app, _ := openApp(ctx)
		defer closeApp(app)
		if err := app.Client().RemoveAlley(ctx, args[0]); err != nil {
			return report(err)
		}
		pterm.Success.Printf("Removed alley %s\n", args[0])
		return nil
	},
}

func init() {
	alleyCmd.AddCommand(alleyAddCmd, alleyRemoveCmd)
	rootCmd.AddCommand(alleysCmd, alleyCmd)
}

func runAlleys(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	app, _ := openApp(ctx)
	defer closeApp(app)

	layout, err := app.Client().Layout(ctx)
	if err != nil {
		return report(err)
	}
	pterm.DefaultSection.Println(layout.Name)
	if len(layout.Alleys) == 0 {
		pterm.Info.Println("No alleys yet.")
		return nil
	}
	table := pterm.TableData{{"ALLEY", "GRAVES"}}
	for _, a := range layout.Alleys {
		table = append(table, []string{a.Name, strconv.Itoa(len(a.GraveIDs))})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(table).Render()
	return nil
}
