package main

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/newthinker/risklab/internal/client"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Generate test data and run test batches",
}

var (
	generatePatterns string
	generateCount    int
	generateNoEdge   bool
)

var batchGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate synthetic test inputs",
	Example: `  risklab batch generate --count 20
  risklab batch generate --patterns @patterns.json
  risklab batch generate -c risklab.yaml --count 5`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := generatorConfig(cmd)
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		raw, err := c.Tests().GenerateTestData(commandContext(cmd), cfg)
		if err != nil {
			return err
		}
		return printRaw(cmd.OutOrStdout(), raw)
	},
}

var (
	batchName        string
	batchDescription string
	batchStrategyID  int64
	batchCases       string
)

var batchCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a test batch and start it",
	Long: `Creates a test batch for a strategy. Test cases come from --cases, a
JSON array of {"input_data": {...}} objects; without it the server generates
them using the generate flags.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if batchName == "" || batchStrategyID <= 0 {
			return fmt.Errorf("--name and --strategy-id are required")
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx := commandContext(cmd)

		var cases json.RawMessage
		if batchCases != "" {
			if cases, err = readJSONArg(cmd, batchCases); err != nil {
				return err
			}
		} else {
			cfg, err := generatorConfig(cmd)
			if err != nil {
				return err
			}
			if cases, err = c.Tests().GenerateTestData(ctx, cfg); err != nil {
				return err
			}
		}

		payload := map[string]any{
			"name":        batchName,
			"strategy_id": batchStrategyID,
			"test_cases":  cases,
		}
		if batchDescription != "" {
			payload["description"] = batchDescription
		}
		raw, err := c.Tests().CreateTestBatch(ctx, payload)
		if err != nil {
			return err
		}
		return printRaw(cmd.OutOrStdout(), raw)
	},
}

var batchGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a test batch with its cases",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		raw, err := c.Tests().GetTestBatch(commandContext(cmd), args[0])
		if err != nil {
			return err
		}
		return printRaw(cmd.OutOrStdout(), raw)
	},
}

var batchReportCmd = &cobra.Command{
	Use:   "report <id>",
	Short: "Show the report of a test batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		raw, err := c.Tests().GetTestReport(commandContext(cmd), args[0])
		if err != nil {
			if client.IsNotFound(err) {
				return fmt.Errorf("batch %s not found", args[0])
			}
			return err
		}
		return printRaw(cmd.OutOrStdout(), raw)
	},
}

// generatorConfig builds a generation request from --patterns or the
// individual flags. Unset flags are left to the server defaults.
func generatorConfig(cmd *cobra.Command) (map[string]any, error) {
	cfg := map[string]any{}
	if generatePatterns != "" {
		raw, err := readJSONArg(cmd, generatePatterns)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("--patterns must be a JSON object: %w", err)
		}
	}
	if cmd.Flags().Changed("count") {
		cfg["count"] = generateCount
	}
	if generateNoEdge {
		cfg["include_edge_cases"] = false
	}
	return cfg, nil
}

func addGenerateFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&generatePatterns, "patterns", "", "generation config as JSON, or @file")
	cmd.Flags().IntVar(&generateCount, "count", 10, "number of random cases")
	cmd.Flags().BoolVar(&generateNoEdge, "no-edge-cases", false, "skip the min/max edge cases")
}

func init() {
	rootCmd.AddCommand(batchCmd)
	addClientFlags(batchCmd)

	batchCmd.AddCommand(batchGenerateCmd, batchCreateCmd, batchGetCmd, batchReportCmd)

	addGenerateFlags(batchGenerateCmd)
	addGenerateFlags(batchCreateCmd)

	batchCreateCmd.Flags().StringVar(&batchName, "name", "", "batch name")
	batchCreateCmd.Flags().StringVar(&batchDescription, "description", "", "batch description")
	batchCreateCmd.Flags().Int64Var(&batchStrategyID, "strategy-id", 0, "strategy to test")
	batchCreateCmd.Flags().StringVar(&batchCases, "cases", "", "test cases as a JSON array, or @file")
}
