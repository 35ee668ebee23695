package main

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/formfill/internal/domain/generation"
	"github.com/GriffinCanCode/formfill/internal/extractor"
)

var extractPrompt bool

// extractCmd prints the context gathered for one field
var extractCmd = &cobra.Command{
	Use:   "extract [file.html] [element-id]",
	Short: "Print the field context gathered for an element",
	Long: `Runs the field context extractor against one element of an HTML
document and prints the result as JSON. With --prompt, also prints the
prompt the proxy would send to the completion vendor.`,
	Args: cobra.ExactArgs(2),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().BoolVar(&extractPrompt, "prompt", false, "Also print the generation prompt")
}

func runExtract(cmd *cobra.Command, args []string) error {
	doc, err := extractor.LoadFile(args[0])
	if err != nil {
		return err
	}

	fc, ok := doc.Extract(args[1])
	if !ok {
		return fmt.Errorf("element %q is missing or not an eligible field", args[1])
	}

	data, err := sonic.ConfigStd.MarshalIndent(fc, "", "  ")
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, string(data))
	if extractPrompt {
		fmt.Fprintln(out)
		fmt.Fprintln(out, generation.BuildPrompt(fc))
	}
	return nil
}
