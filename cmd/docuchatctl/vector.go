package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docuchat-be/internal/pkg/logger"
	"docuchat-be/pkg/vectorstore"
	"docuchat-be/pkg/vectorstore/pgstore"
	"docuchat-be/pkg/vectorstore/qdrant"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var vectorCmd = &cobra.Command{
	Use:   "vector",
	Short: "Manage the vector collection",
}

var vectorMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Recreate the collection for the configured embedding dimension",
	Long: `Drops and recreates the vector collection when its dimension no longer matches
EMBEDDING_DIMENSION. Every stored chunk is lost; documents must be uploaded again.`,
	Args: cobra.NoArgs,
	RunE: runVectorMigrate,
}

var confirmRecreate bool

func init() {
	vectorMigrateCmd.Flags().BoolVar(&confirmRecreate, "confirm", false, "Allow dropping the existing collection")

	vectorCmd.AddCommand(vectorMigrateCmd)
	rootCmd.AddCommand(vectorCmd)
}

func runVectorMigrate(cmd *cobra.Command, _ []string) error {
	if !confirmRecreate {
		return errors.New("refusing to drop vector data without --confirm")
	}

	opts := vectorstore.Options{
		Collection:    cfg.Vector.CollectionName,
		Dimension:     cfg.Embedding.Dimension,
		AllowRecreate: true,
	}
	log := logger.NewNopLogger()

	var index vectorstore.Index
	switch cfg.Vector.Backend {
	case "qdrant":
		index = qdrant.NewStore(qdrant.Config{
			URL:     cfg.Vector.QdrantURL,
			APIKey:  cfg.Vector.QdrantAPIKey,
			Timeout: 30 * time.Second,
		}, opts, log)
	case "", "pgvector":
		db, err := openDatabase()
		if err != nil {
			return err
		}
		store, err := pgstore.NewStore(db, opts, log)
		if err != nil {
			return err
		}
		index = store
	default:
		return fmt.Errorf("backend %q has nothing to migrate", cfg.Vector.Backend)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	color.Yellow("Checking collection %q (dimension %d)...", index.CollectionName(), opts.Dimension)
	if err := index.EnsureCollection(ctx); err != nil {
		return err
	}
	color.Green("✅ Collection %q matches dimension %d", index.CollectionName(), opts.Dimension)
	return nil
}
