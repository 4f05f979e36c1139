package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonathan/entity-catalog/internal/catalog"
	"github.com/jonathan/entity-catalog/internal/schemas"
	"github.com/jonathan/entity-catalog/internal/tree"
	"github.com/jonathan/entity-catalog/internal/types"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the full catalog as JSON",
	Long: "Builds the domain tree and the entity tree of every domain and sub-domain, " +
		"validates the result against the catalog export schema and writes it to a file.",
	RunE: runExport,
}

var (
	exportOutput      string
	exportConcurrency int
)

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "out", "o", "", "Path to output JSON file (required)")
	exportCmd.Flags().IntVar(&exportConcurrency, "concurrency", 4, "Number of entity trees built at once")

	if err := exportCmd.MarkFlagRequired("out"); err != nil {
		panic(fmt.Sprintf("failed to mark out flag as required: %v", err))
	}

	rootCmd.AddCommand(exportCmd)
}

// catalogExport is the document written by the export command.
type catalogExport struct {
	GeneratedAt time.Time                    `json:"generated_at"`
	Domains     []types.DomainNode           `json:"domains"`
	Entities    map[string][]*types.TreeNode `json:"entities"`
}

func runExport(cmd *cobra.Command, _ []string) error {
	if exportConcurrency < 1 {
		return fmt.Errorf("--concurrency must be at least 1")
	}

	_, logger, database, _, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer database.Close()

	doc, err := exportCatalog(cmd.Context(), database, exportConcurrency, time.Now().UTC(), exportOutput)
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"domains": len(doc.Domains),
		"scopes":  len(doc.Entities),
		"path":    exportOutput,
	}).Info("catalog exported")
	return nil
}

// exportCatalog builds the export and writes it to path. Nothing is written
// when any read fails.
func exportCatalog(ctx context.Context, store catalog.Store, limit int, now time.Time, path string) (*catalogExport, error) {
	doc, err := buildExport(ctx, store, limit, now)
	if err != nil {
		return nil, err
	}
	if err := writeJSON(path, schemas.CatalogExport, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// buildExport reads the domain pairs, then the records of every sub-domain with
// at most limit reads in flight. It goes to the store directly rather than
// through the tree caches, so any fetch failure aborts the export instead of
// producing an empty or stale document. Entity trees are keyed by "domain:sub_domain".
func buildExport(ctx context.Context, store catalog.Store, limit int, now time.Time) (*catalogExport, error) {
	pairs, err := store.DomainPairs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch domain pairs: %w", err)
	}

	domains := tree.BuildDomainTree(pairs)
	doc := &catalogExport{
		GeneratedAt: now,
		Domains:     domains,
		Entities:    make(map[string][]*types.TreeNode),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, d := range domains {
		for _, sub := range d.Children {
			domain, subDomain := d.Title, sub.Title
			g.Go(func() error {
				scope := tree.ScopeKey(domain, subDomain)
				records, err := store.CatalogRecords(gctx, domain, subDomain)
				if err != nil {
					return fmt.Errorf("failed to fetch catalog records for %s: %w", scope, err)
				}
				nodes := tree.BuildEntityTree(domain, subDomain, records)

				mu.Lock()
				doc.Entities[scope] = nodes
				mu.Unlock()
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return doc, nil
}
