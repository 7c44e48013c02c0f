package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"arbor/pkg/config"
	"arbor/pkg/ingest"
	"arbor/pkg/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunImport(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	src := filepath.Join(dir, "trees.csv")
	content := "id,age,trunk_width,ward,species,height\n" +
		"1,Young,3,Hulme,Tilia,10\n" +
		"2,Mature,bad,Hulme,Tilia,10\n" +
		"3,Mature,40,Hulme,Quercus,25\n"
	require.NoError(t, os.WriteFile(src, []byte(content), 0644))

	target := filepath.Join(dir, "trees.db")
	require.NoError(t, runImport(ctx, config.DataConfig{Path: src}, target, false, logger))
	// Importing again replaces rows by id instead of duplicating them.
	require.NoError(t, runImport(ctx, config.DataConfig{Path: src}, target, false, logger))

	db, err := storage.OpenSQLite(target, logger)
	require.NoError(t, err)
	defer db.Close()

	n, err := db.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, runImport(ctx, config.DataConfig{Path: src, Limit: 1}, target, true, logger))
	n, err = db.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRunImportSkipsUnmeasured(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	src := filepath.Join(dir, "trees.csv")
	content := "id,age,trunk_width,ward,species,height\n" +
		"7,Young,5,Hulme,Tilia,12\n" +
		"7,Young,0,Hulme,Tilia,12\n" +
		"8,Mature,9,Hulme,Quercus,0\n"
	require.NoError(t, os.WriteFile(src, []byte(content), 0644))

	target := filepath.Join(dir, "trees.db")
	require.NoError(t, runImport(ctx, config.DataConfig{Path: src}, target, false, logger))

	db, err := storage.OpenSQLite(target, logger)
	require.NoError(t, err)
	defer db.Close()

	recs, _, err := ingest.NewIngestor(db, 0, logger).Load(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, uint32(7), recs[0].ID)
	assert.Equal(t, uint32(5), recs[0].TrunkWidth)
}

func TestRunImportUnknownFormat(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	err := runImport(context.Background(), config.DataConfig{Path: "trees.txt"}, filepath.Join(t.TempDir(), "t.db"), false, logger)
	require.Error(t, err)
}
