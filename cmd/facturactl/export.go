package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/facturas-review/internal/application/port"
	"github.com/garyjia/facturas-review/internal/config"
	"github.com/garyjia/facturas-review/internal/domain/entity"
	"github.com/garyjia/facturas-review/internal/export"
	"github.com/garyjia/facturas-review/internal/infrastructure/persistence/repository"
	"github.com/garyjia/facturas-review/pkg/database"
	"github.com/garyjia/facturas-review/pkg/utils"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored invoices to an xlsx workbook",
		Args:  cobra.NoArgs,
		RunE:  runExport,
	}

	cmd.Flags().StringP("config", "c", "configs/config.yaml", "Configuration file")
	cmd.Flags().StringP("out", "o", "facturas.xlsx", "Output workbook")
	cmd.Flags().Int64P("user", "u", 0, "Only invoices of this user id")
	cmd.Flags().Bool("all", false, "Include reviewed invoices")

	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	out, _ := cmd.Flags().GetString("out")
	userID, _ := cmd.Flags().GetInt64("user")
	all, _ := cmd.Flags().GetBool("all")

	cfg, err := config.Load(config.ResolvePath(configPath))
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{Level: "warn", OutputPath: "stderr", Format: "console"})
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := context.Background()
	invoices, err := loadInvoices(ctx, cfg.Database, userID, all, logger)
	if err != nil {
		return err
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	defer f.Close()

	if err := export.Write(f, invoices); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d invoices to %s\n", len(invoices), out)
	return nil
}

func loadInvoices(ctx context.Context, cfg config.DatabaseConfig, userID int64, all bool, logger *zap.Logger) ([]*entity.Invoice, error) {
	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if err := database.NewMigrator(db, logger).Run(ctx, database.Migrations()); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	filter := port.InvoiceFilter{IncludeReviewed: all}
	if userID != 0 {
		filter.UserID = &userID
	}

	recs, err := repository.NewInvoiceRepository(db.DB, logger).List(ctx, filter)
	if err != nil {
		return nil, err
	}

	invoices := make([]*entity.Invoice, 0, len(recs))
	for _, rec := range recs {
		invoices = append(invoices, rec.Invoice)
	}
	return invoices, nil
}
