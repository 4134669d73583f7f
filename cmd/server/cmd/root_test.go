package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestRootCommand(t *testing.T) {
	tests := []struct {
		name           string
		args           []string
		expectedOutput string
		expectError    bool
	}{
		{
			name:           "help flag",
			args:           []string{"--help"},
			expectedOutput: "Nariz Encantado",
			expectError:    false,
		},
		{
			name:           "invalid flag",
			args:           []string{"--invalid-flag"},
			expectedOutput: "unknown flag: --invalid-flag",
			expectError:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCommand()

			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			output := buf.String()

			if tt.expectError && err == nil {
				t.Fatalf("expected an error, got none; output:\n%s", output)
			}
			if !tt.expectError && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(output, tt.expectedOutput) {
				t.Errorf("expected output to contain %q, got:\n%s", tt.expectedOutput, output)
			}
		})
	}
}

func TestRootCommandSubcommands(t *testing.T) {
	for _, name := range []string{"serve", "migrate", "create-admin", "version"} {
		found := false
		for _, sub := range rootCmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected subcommand %q to be registered", name)
		}
	}
}

// newRootCommand creates a fresh root command so tests do not pollute the
// package-level one.
func newRootCommand() *cobra.Command {
	testRootCmd := &cobra.Command{
		Use:   "server",
		Short: rootCmd.Short,
		Long:  rootCmd.Long,
		RunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}

	var level, format string
	testRootCmd.PersistentFlags().StringVar(&level, "log-level", "", "log level")
	testRootCmd.PersistentFlags().StringVar(&format, "log-format", "", "log format")

	testRootCmd.AddCommand(versionCmd)
	return testRootCmd
}
