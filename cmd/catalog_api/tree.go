package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jonathan/entity-catalog/internal/observability"
	"github.com/jonathan/entity-catalog/internal/schemas"
	"github.com/jonathan/entity-catalog/internal/server"
	"github.com/jonathan/entity-catalog/internal/types"
	"github.com/spf13/cobra"
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print catalog trees",
	Long:  "Builds the domain tree or an entity tree from the database and prints it, or writes it as JSON with --out.",
}

var treeDomainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "Print the domain → sub-domain tree",
	RunE:  runTreeDomains,
}

var treeEntitiesCmd = &cobra.Command{
	Use:   "entities",
	Short: "Print the entity tree of one domain and sub-domain",
	RunE:  runTreeEntities,
}

var (
	treeOutput    string
	treeDomain    string
	treeSubDomain string
)

func init() {
	treeCmd.PersistentFlags().StringVarP(&treeOutput, "out", "o", "", "Write the tree as JSON to this path instead of printing it")

	treeEntitiesCmd.Flags().StringVar(&treeDomain, "domain", "", "Domain (required)")
	treeEntitiesCmd.Flags().StringVar(&treeSubDomain, "sub-domain", "", "Sub-domain (required)")
	if err := treeEntitiesCmd.MarkFlagRequired("domain"); err != nil {
		panic(fmt.Sprintf("failed to mark domain flag as required: %v", err))
	}
	if err := treeEntitiesCmd.MarkFlagRequired("sub-domain"); err != nil {
		panic(fmt.Sprintf("failed to mark sub-domain flag as required: %v", err))
	}

	treeCmd.AddCommand(treeDomainsCmd, treeEntitiesCmd)
	rootCmd.AddCommand(treeCmd)
}

func runTreeDomains(cmd *cobra.Command, _ []string) error {
	_, _, database, svc, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer database.Close()

	return emitDomainTree(cmd.Context(), cmd.OutOrStdout(), svc, treeOutput)
}

func runTreeEntities(cmd *cobra.Command, _ []string) error {
	query := types.EntityTreeQuery{Domain: treeDomain, SubDomain: treeSubDomain, Refresh: true}
	if err := query.Validate(); err != nil {
		return fmt.Errorf("invalid tree scope: %w", err)
	}

	_, _, database, svc, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer database.Close()

	return emitEntityTree(cmd.Context(), cmd.OutOrStdout(), svc, query, treeOutput)
}

// emitDomainTree prints the domain tree to out, or writes it as JSON when outPath is set.
func emitDomainTree(ctx context.Context, out io.Writer, trees server.TreeService, outPath string) error {
	nodes := trees.GetDomainTree(ctx, true)
	if outPath != "" {
		if err := writeJSON(outPath, schemas.DomainTree, nodes); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "Wrote %d domains to %s\n", len(nodes), outPath)
		return nil
	}

	observability.NewPrinter(out).PrintDomainTree(nodes)
	return nil
}

// emitEntityTree prints one entity tree to out, or writes it as JSON when outPath is set.
func emitEntityTree(ctx context.Context, out io.Writer, trees server.TreeService, query types.EntityTreeQuery, outPath string) error {
	nodes, err := trees.GetEntityTree(ctx, query.Domain, query.SubDomain, query.Refresh)
	if err != nil {
		return err
	}
	if outPath != "" {
		if err := writeJSON(outPath, schemas.EntityTree, nodes); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "Wrote %d root nodes to %s\n", len(nodes), outPath)
		return nil
	}

	observability.NewPrinter(out).PrintEntityTree(query.Domain, query.SubDomain, nodes)
	return nil
}
