package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"moneynest/internal/config"
	"moneynest/internal/database"
	"moneynest/internal/models"
	"moneynest/internal/repository"
	"moneynest/internal/service"
)

func main() {
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	exportScope := exportCmd.String("scope", "personal", "Ledger to export: personal or family")
	exportID := exportCmd.Int64("id", 0, "User id (personal) or family id (family) (required)")
	exportOutput := exportCmd.String("output", "", "Output file path (default: backup_YYYYMMDD_HHMMSS.json)")

	if len(os.Args) < 2 || os.Args[1] != "export" {
		printUsage()
		os.Exit(1)
	}
	exportCmd.Parse(os.Args[2:])

	scope, err := parseScope(*exportScope, *exportID)
	if err != nil {
		fmt.Println("Error:", err)
		exportCmd.PrintDefaults()
		os.Exit(1)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Load configuration
	cfg := config.Load()

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations to ensure schema is up to date
	if err := db.RunMigrations(); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	backupService := service.NewBackupService(
		repository.NewUserRepository(db),
		repository.NewFamilyRepository(db),
		repository.NewCategoryRepository(db),
		repository.NewTransactionRepository(db),
		repository.NewSpendingLimitRepository(db),
		logger,
	)

	if err := handleExport(context.Background(), backupService, scope, *exportOutput, logger); err != nil {
		logger.Fatal("export failed", zap.Error(err))
	}
}

func parseScope(kind string, id int64) (models.Scope, error) {
	if id <= 0 {
		return models.Scope{}, fmt.Errorf("-id is required")
	}
	switch models.ScopeKind(kind) {
	case models.ScopePersonal:
		return models.PersonalScope(id), nil
	case models.ScopeFamily:
		return models.FamilyScope(id), nil
	default:
		return models.Scope{}, fmt.Errorf("unknown scope %q", kind)
	}
}

func handleExport(ctx context.Context, backupService *service.BackupService, scope models.Scope, outputPath string, logger *zap.Logger) error {
	// Generate default filename if not provided
	if outputPath == "" {
		outputPath = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
	}

	// Ensure directory exists
	if dir := filepath.Dir(outputPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	logger.Info("exporting ledger", zap.String("scope", scope.Key()), zap.String("output", outputPath))
	if err := backupService.Export(ctx, scope, outputPath); err != nil {
		return err
	}

	if info, err := os.Stat(outputPath); err == nil {
		logger.Info("export complete", zap.String("size", fmt.Sprintf("%.2f MB", float64(info.Size())/1024/1024)))
	}
	return nil
}

func printUsage() {
	fmt.Println("Moneynest Ledger Backup Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  backup export [options]    Export one ledger to a JSON file")
	fmt.Println()
	fmt.Println("Export Options:")
	fmt.Println("  -scope <personal|family>   Ledger kind (default: personal)")
	fmt.Println("  -id <id>                   User id or family id (required)")
	fmt.Println("  -output <file>             Output file path (default: backup_YYYYMMDD_HHMMSS.json)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  backup export -id 1")
	fmt.Println("  backup export -scope family -id 3 -output backups/family3.json")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DB_TYPE          Database type: sqlite, postgres, or mysql (default: sqlite)")
	fmt.Println("  DB_PATH          SQLite database path (default: ./moneynest.db)")
	fmt.Println("  DATABASE_URL     PostgreSQL or MySQL connection URL")
}
