package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/erdiagram/pkg/pipeline"
	"github.com/matzehuels/erdiagram/pkg/schema"
)

func (c *CLI) inspectCommand() *cobra.Command {
	var inferFK, asJSON, noCache bool

	cmd := &cobra.Command{
		Use:   "inspect <schema>",
		Short: "Show the entities and edges a schema produces",
		Long: `Show the entities and edges a schema produces.

Edges are listed in the order they were drawn. An edge declared before its
target entity exists is drawn when that entity is registered, so the order
can differ from the order relations appear in the file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("infer-fk") {
				inferFK = c.config.InferForeignKeys
			}
			doc, err := c.buildDocument(cmd.Context(), args[0], inferFK, noCache)
			if err != nil {
				return err
			}
			return writeInspect(cmd.OutOrStdout(), args[0], doc, asJSON)
		},
	}

	cmd.Flags().BoolVar(&inferFK, "infer-fk", false, "link <entity>_id and <entity>_idx fields to their entity")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the document as JSON")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	return cmd
}

// buildDocument runs only the build stage of the pipeline for a schema file.
func (c *CLI) buildDocument(ctx context.Context, path string, inferFK, noCache bool) (*pipeline.Document, error) {
	format, err := schema.DetectFormat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return nil, err
	}
	defer runner.Close()

	doc, _, err := runner.Build(ctx, pipeline.Options{
		Schema:           data,
		SchemaFormat:     format,
		Formats:          []string{pipeline.FormatDOT},
		InferForeignKeys: inferFK,
		Style:            c.config.dotStyle(),
		Logger:           loggerFromContext(ctx),
	})
	return doc, err
}

func writeInspect(w io.Writer, name string, doc *pipeline.Document, asJSON bool) error {
	if asJSON {
		data, err := doc.MarshalIndent()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	fmt.Fprintln(w, StyleTitle.Render(name))
	fmt.Fprintln(w, formatStats(pipeline.Stats{
		EntityCount:  len(doc.Entities),
		EdgeCount:    len(doc.Edges),
		PendingCount: len(doc.Pending),
	}, false))
	fmt.Fprintln(w)
	fmt.Fprintln(w, entityTable(doc))
	if len(doc.Edges)+len(doc.Pending) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, edgeTable(doc))
	}
	return nil
}
