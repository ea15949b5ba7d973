package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/guregu/null/v6"
	"github.com/krobus00/satoshi/internal/config"
	"github.com/krobus00/satoshi/internal/infrastructure"
	"github.com/krobus00/satoshi/internal/util"
	"github.com/krobus00/satoshi/migration"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

func StartMigrate(cmd *cobra.Command, args []string) {
	databaseName, _ := cmd.Flags().GetString("databaseName")
	actionType, _ := cmd.Flags().GetString("action")
	migrationName, _ := cmd.Flags().GetString("name")
	version, _ := cmd.Flags().GetInt64("version")

	util.ContinueOrFatal(runMigrate(cmd.Context(), databaseName, actionType, migrationName, version))
}

func runMigrate(ctx context.Context, databaseName string, actionType string, migrationName string, version int64) error {
	if ctx == nil {
		ctx = context.Background()
	}

	dbCfg, ok := config.Env.Database[databaseName]
	if !ok {
		return fmt.Errorf("database %q is not configured", databaseName)
	}

	db, err := infrastructure.NewPostgresConnection(ctx, dbCfg)
	if err != nil {
		return err
	}
	defer db.Close()

	err = goose.SetDialect("postgres")
	if err != nil {
		return err
	}

	migrationDir := path.Join("postgresql", databaseName)

	// new migration files are written to disk, everything else reads the embedded set
	if actionType == "create" {
		goose.SetBaseFS(nil)
		return goose.Create(db.DB, path.Join("migration", migrationDir), migrationName, "sql")
	}
	goose.SetBaseFS(migration.FS)

	switch actionType {
	case "up":
		err = goose.UpContext(ctx, db.DB, migrationDir, goose.WithAllowMissing())
	case "up-by-one":
		err = goose.UpByOneContext(ctx, db.DB, migrationDir, goose.WithAllowMissing())
	case "up-to":
		err = goose.UpToContext(ctx, db.DB, migrationDir, null.IntFrom(version).Int64, goose.WithAllowMissing())
	case "down":
		err = goose.DownContext(ctx, db.DB, migrationDir, goose.WithAllowMissing())
	case "down-to":
		err = goose.DownToContext(ctx, db.DB, migrationDir, null.IntFrom(version).Int64, goose.WithAllowMissing())
	case "status":
		err = goose.StatusContext(ctx, db.DB, migrationDir)
	case "reset":
		err = goose.ResetContext(ctx, db.DB, migrationDir, goose.WithAllowMissing())
		if err != nil {
			break
		}
		err = goose.UpContext(ctx, db.DB, migrationDir, goose.WithAllowMissing())
	default:
		err = errors.New("invalid command")
	}

	return err
}
