package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/partsinc/parts-server/internal/app"
	"github.com/partsinc/parts-server/internal/catalog"
	"github.com/partsinc/parts-server/internal/domain"
	"github.com/partsinc/parts-server/internal/pkg/cache"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// partsFile is the layout of a catalog seed file.
type partsFile struct {
	Parts []domain.Part `yaml:"parts"`
}

func seedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import catalog parts from a YAML file",
		Long: `Import catalog parts from a YAML file.

Example file:

  parts:
    - name: Ball bearing
      description: 608ZZ, 8x22x7 mm
      price: 2.5
      stock: 100`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open seed file: %w", err)
			}
			defer func() { _ = f.Close() }()

			parts, err := decodeParts(f)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := app.OpenStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(context.Background()); err != nil {
					slog.Warn("close store", "error", err)
				}
			}()

			// New ids have no cache entries to invalidate.
			service := catalog.NewService(store.Catalog, cache.Nop{}, catalog.Paging{
				DefaultSize: cfg.Catalog.DefaultPageSize,
				MaxSize:     cfg.Catalog.MaxPageSize,
			})

			ids, err := service.ImportParts(ctx, parts)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "imported %d parts\n", len(ids))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "path to the YAML parts file")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// decodeParts reads a seed document. Ids in the file are ignored.
func decodeParts(r io.Reader) ([]domain.Part, error) {
	var doc partsFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	if len(doc.Parts) == 0 {
		return nil, fmt.Errorf("seed file has no parts")
	}

	for i := range doc.Parts {
		doc.Parts[i].ID = ""
		if doc.Parts[i].Name == "" {
			return nil, fmt.Errorf("part %d: name is required", i)
		}
		if doc.Parts[i].Price < 0 || doc.Parts[i].Stock < 0 {
			return nil, fmt.Errorf("part %d (%s): price and stock must not be negative", i, doc.Parts[i].Name)
		}
	}
	return doc.Parts, nil
}
