// Command generate-schema writes the JSON schema of the dittopnfs
// configuration file, for editor completion and CI checks of config files.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/marmos91/dittopnfs/pkg/config"
	"github.com/spf13/cobra"
)

const defaultOutput = "config.schema.json"

var mainCmd = &cobra.Command{
	Use:          "generate-schema [output]",
	Short:        "Write the JSON schema of the dittopnfs configuration (\"-\" for stdout)",
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		output := defaultOutput
		if len(args) > 0 {
			output = args[0]
		}

		if output == "-" {
			return writeSchema(cmd.OutOrStdout())
		}

		f, err := os.Create(output)
		if err != nil {
			return err
		}
		if err := writeSchema(f); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "JSON schema written to %s\n", output)
		return nil
	},
}

// configSchema reflects config.Config. Property names follow the
// mapstructure tags so they match the keys viper reads.
func configSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		FieldNameTag:              "mapstructure",
	}

	schema := reflector.Reflect(&config.Config{})
	schema.Title = "dittopnfs configuration"
	schema.Description = "Configuration file of the dittopnfs pNFS device and layout manager"
	schema.Version = "1.0.0"
	return schema
}

func writeSchema(w io.Writer) error {
	data, err := json.MarshalIndent(configSchema(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

func main() {
	if err := mainCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
