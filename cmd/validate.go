package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/telhawk-reporting/internal/config"
	"github.com/telhawk-systems/telhawk-reporting/internal/recipients"
	"github.com/telhawk-systems/telhawk-reporting/internal/report"
	"github.com/telhawk-systems/telhawk-reporting/internal/storage"
	"github.com/telhawk-systems/telhawk-reporting/pkg/output"
)

var validateInit bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration before a run",
	Long: `Validate loads the configuration the way a run would and checks every
piece a run depends on: the report definition and its template, the
storage base path, and the recipient list. It fails on the first broken
piece so problems surface before a scheduled run does.

With --init it first scaffolds a default report definition and template
at the configured paths.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateInit, "init", false, "write a default report definition and template first")
}

func runValidate(cmd *cobra.Command, args []string) error {
	// initConfig falls back to defaults on a broken file; validate must
	// surface that error instead.
	loaded, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	output.Success("Config loaded")

	if validateInit {
		if err := scaffoldDefinition(loaded); err != nil {
			return err
		}
	}

	def, err := report.LoadDefinition(loaded.Report.Definition)
	if err != nil {
		return err
	}
	output.Success("Report definition %q loaded", def.Name)

	if _, err := os.Stat(def.Template); err != nil {
		return fmt.Errorf("report template %s is not readable (run 'thawk-report validate --init' to scaffold one): %w", def.Template, err)
	}
	output.Success("Template %s found", def.Template)

	if err := storage.NewResolver(logger).CheckWritable(loaded.Storage.BasePath); err != nil {
		return err
	}
	output.Success("Storage base path %s is writable", loaded.Storage.BasePath)

	group, err := recipients.Resolve(recipients.Source{Path: loaded.Recipients.Path})
	if err != nil {
		return err
	}
	output.Success("Recipients resolved: %d to, %d cc, %d bcc", len(group.To), len(group.CC), len(group.BCC))

	if loaded.Mail.Host == "" {
		output.Warn("mail.host is not set; send mode will be rejected")
	}

	return nil
}

// scaffoldDefinition writes the default definition and template so an
// operator can start from working files.
func scaffoldDefinition(loaded *config.Config) error {
	defPath := loaded.Report.Definition
	if defPath == "" {
		defPath = "report.yaml"
	}

	def, err := report.LoadDefinition(defPath)
	if err != nil {
		return err
	}
	if err := def.Save(); err != nil {
		return err
	}
	output.Success("Wrote report definition %s", defPath)

	if _, err := os.Stat(def.Template); os.IsNotExist(err) {
		if err := report.WriteDefaultTemplate(def.Template); err != nil {
			return err
		}
		output.Success("Wrote template %s", def.Template)
	}

	return nil
}
