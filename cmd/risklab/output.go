package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/newthinker/risklab/internal/client"
	"github.com/newthinker/risklab/internal/logger"
)

var (
	apiURL       string
	outputFormat string
)

// addClientFlags registers the flags shared by commands that call the API.
func addClientFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "API base URL (default $"+client.BaseURLEnv+" or client.base_url)")
	cmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "json", "output format: json or yaml")
}

// newClient builds an API client from flags, environment and config, in
// that order of precedence.
func newClient() (*client.Client, error) {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return nil, err
	}

	var opts []client.Option
	switch {
	case apiURL != "":
		opts = append(opts, client.WithBaseURL(apiURL))
	case os.Getenv(client.BaseURLEnv) == "" && cfg.Client.BaseURL != "":
		opts = append(opts, client.WithBaseURL(cfg.Client.BaseURL))
	}
	if cfg.Client.Timeout > 0 {
		opts = append(opts, client.WithTimeout(cfg.Client.Timeout))
	}
	if cfg.Client.APIKey != "" {
		opts = append(opts, client.WithHeader("X-API-Key", cfg.Client.APIKey))
	}

	c := client.New(opts...)
	log.Debug("api client", zap.String("base_url", c.BaseURL()), zap.Duration("timeout", c.Timeout()))
	return c, nil
}

// printRaw writes a response body in the selected format.
func printRaw(w io.Writer, raw json.RawMessage) error {
	switch outputFormat {
	case "json":
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err != nil {
			return fmt.Errorf("formatting response: %w", err)
		}
		buf.WriteByte('\n')
		_, err := buf.WriteTo(w)
		return err
	case "yaml":
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", outputFormat)
	}
}

// readJSONArg returns inline JSON, or the contents of a file when the
// value starts with "@" ("-" after "@" reads stdin).
func readJSONArg(cmd *cobra.Command, value string) (json.RawMessage, error) {
	data := []byte(value)
	if len(value) > 0 && value[0] == '@' {
		var err error
		if value == "@-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(value[1:])
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", value[1:], err)
		}
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("invalid JSON argument")
	}
	return json.RawMessage(data), nil
}
