package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/garyjia/facturas-review/internal/payload"
)

func decryptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decrypt [file]",
		Short: "Decrypt an encoded remote payload",
		Long: `Decrypts an "<iv>:<ciphertext>:<tag>" payload read from a file ("-" for
stdin). The passphrase defaults to $REMOTE_PASSPHRASE.`,
		Args: cobra.ExactArgs(1),
		RunE: runDecrypt,
	}

	cmd.Flags().StringP("passphrase", "p", "", "Passphrase (default $REMOTE_PASSPHRASE)")
	cmd.Flags().Bool("pretty", false, "Indent the output when it is JSON")

	return cmd
}

func runDecrypt(cmd *cobra.Command, args []string) error {
	passphrase, _ := cmd.Flags().GetString("passphrase")
	if passphrase == "" {
		passphrase = os.Getenv("REMOTE_PASSPHRASE")
	}
	if passphrase == "" {
		return fmt.Errorf("a passphrase is required")
	}
	pretty, _ := cmd.Flags().GetBool("pretty")

	data, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	plain, err := payload.Decrypt(strings.TrimSpace(string(data)), passphrase)
	if err != nil {
		return err
	}

	out := []byte(plain)
	if pretty && json.Valid(out) {
		var buf bytes.Buffer
		if err := json.Indent(&buf, out, "", "  "); err == nil {
			out = buf.Bytes()
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
