package cmd

import (
	"github.com/spf13/cobra"

	"github.com/telhawk-systems/telhawk-reporting/internal/recipients"
	"github.com/telhawk-systems/telhawk-reporting/pkg/output"
)

var recipientsPath string

var recipientsCmd = &cobra.Command{
	Use:   "recipients",
	Short: "Show the resolved recipient list",
	Long: `Recipients resolves the recipient CSV the way a report run would and
prints the resulting TO, CC, and BCC columns. Useful for checking the
file before a send-mode run.`,
	RunE: runRecipients,
}

func init() {
	rootCmd.AddCommand(recipientsCmd)

	recipientsCmd.Flags().StringVar(&recipientsPath, "path", "", "recipients CSV path (default from config)")
}

func runRecipients(cmd *cobra.Command, args []string) error {
	path := cfg.Recipients.Path
	if cmd.Flags().Changed("path") {
		path = recipientsPath
	}

	group, err := recipients.Resolve(recipients.Source{Path: path})
	if err != nil {
		return err
	}

	table := output.NewTable([]string{"COLUMN", "ADDRESS"})
	for _, addr := range group.To {
		table.AddRow([]string{"TO", addr})
	}
	for _, addr := range group.CC {
		table.AddRow([]string{"CC", addr})
	}
	for _, addr := range group.BCC {
		table.AddRow([]string{"BCC", addr})
	}
	table.Render()

	output.Info("%d addresses (%d to, %d cc, %d bcc)", group.Total(), len(group.To), len(group.CC), len(group.BCC))
	return nil
}
