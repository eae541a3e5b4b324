package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"photodesk/internal/config"
	"photodesk/internal/ledger"
)

func newLedgerCommand(ctx *commandContext) *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger utilities",
	}

	var targetPath string
	initCmd := &cobra.Command{
		Use:   "init-xlsx",
		Short: "Create an empty local ledger workbook with the basic and premium sheets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			target := strings.TrimSpace(targetPath)
			if target == "" {
				target = cfg.Ledger.XLSXPath
			} else if target, err = config.ExpandPath(target); err != nil {
				return fmt.Errorf("resolve ledger path: %w", err)
			}
			if target == "" {
				return errors.New("no workbook path: pass --path or set ledger.xlsx_path")
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create ledger directory: %w", err)
			}
			err = ledger.CreateWorkbook(target, []ledger.Sheet{
				{Name: cfg.Ledger.BasicSheet, Header: ledger.BasicHeader},
				{Name: cfg.Ledger.PremiumSheet, Header: ledger.PremiumHeader},
			})
			if err != nil {
				return fmt.Errorf("create workbook: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote ledger workbook to %s\n", target)
			return nil
		},
	}
	initCmd.Flags().StringVarP(&targetPath, "path", "p", "", "Workbook path (defaults to ledger.xlsx_path)")
	ledgerCmd.AddCommand(initCmd)
	return ledgerCmd
}
