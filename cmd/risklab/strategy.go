package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var strategyCmd = &cobra.Command{
	Use:   "strategy",
	Short: "Manage strategies on a running server",
}

var strategyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List strategies",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		raw, err := c.Strategies().List(commandContext(cmd))
		if err != nil {
			return err
		}
		return printRaw(cmd.OutOrStdout(), raw)
	},
}

var strategyGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one strategy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		raw, err := c.Strategies().Get(commandContext(cmd), args[0])
		if err != nil {
			return err
		}
		return printRaw(cmd.OutOrStdout(), raw)
	},
}

var strategyCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a strategy",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := strategyPayload(cmd)
		if err != nil {
			return err
		}
		if _, ok := payload["name"]; !ok {
			return fmt.Errorf("--name is required")
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		raw, err := c.Strategies().Create(commandContext(cmd), payload)
		if err != nil {
			return err
		}
		return printRaw(cmd.OutOrStdout(), raw)
	},
}

var strategyUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update the given fields of a strategy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := strategyPayload(cmd)
		if err != nil {
			return err
		}
		if len(payload) == 0 {
			return fmt.Errorf("nothing to update")
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		raw, err := c.Strategies().Update(commandContext(cmd), args[0], payload)
		if err != nil {
			return err
		}
		return printRaw(cmd.OutOrStdout(), raw)
	},
}

var strategyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a strategy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		raw, err := c.Strategies().Delete(commandContext(cmd), args[0])
		if err != nil {
			return err
		}
		return printRaw(cmd.OutOrStdout(), raw)
	},
}

var strategyTestData string

var strategyTestCmd = &cobra.Command{
	Use:   "test <id>",
	Short: "Run a strategy once against test data",
	Example: `  risklab strategy test 3 --data '{"credit_score": 720, "loan_amount": 50000}'
  risklab strategy test 3 --data @application.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readJSONArg(cmd, strategyTestData)
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		raw, err := c.Strategies().RunTest(commandContext(cmd), args[0], map[string]any{"test_data": data})
		if err != nil {
			return err
		}
		return printRaw(cmd.OutOrStdout(), raw)
	},
}

// strategy field flags, shared by create and update
var strategyFields = []struct {
	flag, field, usage string
	file               bool
}{
	{"name", "name", "strategy name", false},
	{"description", "description", "strategy description", false},
	{"status", "status", "active or inactive", false},
	{"python-file", "python_code", "file holding the Python code", true},
	{"javascript-file", "javascript_code", "file holding the JavaScript code", true},
	{"sql-file", "sql_code", "file holding the SQL code", true},
}

func addStrategyFieldFlags(cmd *cobra.Command) {
	for _, f := range strategyFields {
		cmd.Flags().String(f.flag, "", f.usage)
	}
}

// strategyPayload collects the flags that were set into a request body.
func strategyPayload(cmd *cobra.Command) (map[string]any, error) {
	payload := map[string]any{}
	for _, f := range strategyFields {
		if !cmd.Flags().Changed(f.flag) {
			continue
		}
		value, _ := cmd.Flags().GetString(f.flag)
		if f.file {
			code, err := os.ReadFile(value)
			if err != nil {
				return nil, fmt.Errorf("reading --%s: %w", f.flag, err)
			}
			value = string(code)
		}
		payload[f.field] = value
	}
	return payload, nil
}

func init() {
	rootCmd.AddCommand(strategyCmd)
	addClientFlags(strategyCmd)

	strategyCmd.AddCommand(strategyListCmd, strategyGetCmd, strategyCreateCmd,
		strategyUpdateCmd, strategyDeleteCmd, strategyTestCmd)

	addStrategyFieldFlags(strategyCreateCmd)
	addStrategyFieldFlags(strategyUpdateCmd)

	strategyTestCmd.Flags().StringVar(&strategyTestData, "data", "{}", "test data as JSON, or @file")
}
