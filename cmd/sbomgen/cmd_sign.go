package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meator/android-tools-static/internal/domain-adapters/gateways"
	"github.com/meator/android-tools-static/internal/domain/interfaces"
)

func newSignCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign <file>",
		Short: "Write an armored detached OpenPGP signature of a file.",
		Long: `Write an armored detached OpenPGP signature of a file to <file>.asc.

The private key is read from an armored or binary keyring. An encrypted key
is unlocked with the passphrase in SBOMGEN_PASSPHRASE.

Examples:
  sbomgen sign sbom.cdx.json --key release-key.asc
  SBOMGEN_PASSPHRASE=... sbomgen sign android-tools-static-35.0.2.1-linux-x86_64.tar.gz --key key.gpg`,
		Args: exactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			keyPath, err := a.requireString("key")
			if err != nil {
				return err
			}

			sigPath, fingerprint, err := gateways.NewSignatureGateway().Sign(args[0], keyPath, []byte(a.v.GetString("passphrase")))
			if err != nil {
				return err
			}
			a.logger.Info("Signed", interfaces.F("file", args[0]), interfaces.F("key", fingerprint))
			fmt.Fprintln(a.stdout, sigPath)
			return nil
		},
	}

	cmd.Flags().StringP("key", "k", "", "private key file")
	return cmd
}

func newVerifyCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <file>",
		Short: "Check a detached OpenPGP signature.",
		Long: `Check a detached OpenPGP signature, armored or binary, against one or more
public key files. The signature defaults to <file>.asc.

The fingerprint of the signing key is printed on success.

Examples:
  sbomgen verify sbom.cdx.json --key release-key.pub.asc
  sbomgen verify sbom.cdx.json --signature sbom.sig --key a.asc --key b.asc`,
		Args: exactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			keys := a.v.GetStringSlice("key")
			if len(keys) == 0 {
				return usageErrorf("at least one --key is required")
			}

			fingerprint, err := gateways.NewSignatureGateway().Verify(args[0], a.v.GetString("signature"), keys)
			if err != nil {
				return err
			}
			a.logger.Info("Good signature", interfaces.F("file", args[0]), interfaces.F("key", fingerprint))
			fmt.Fprintln(a.stdout, fingerprint)
			return nil
		},
	}

	cmd.Flags().StringSliceP("key", "k", nil, "public key file (repeatable)")
	cmd.Flags().StringP("signature", "s", "", "signature file (default <file>.asc)")
	return cmd
}
