package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/erdiagram/pkg/pipeline"
	"github.com/matzehuels/erdiagram/pkg/schema"
)

// renderOpts holds the flags of the render command.
type renderOpts struct {
	output   string   // output file (single format) or base path
	formats  []string // dot, svg, png, pdf, json
	inferFK  bool     // link <entity>_id fields to their entity
	rankDir  string   // TB, LR, BT or RL
	fontName string
	fontSize float64
	noCache  bool
	refresh  bool
}

func (c *CLI) renderCommand() *cobra.Command {
	var formatsStr string
	opts := renderOpts{}

	cmd := &cobra.Command{
		Use:   "render <schema>",
		Short: "Render a schema file to an ER diagram",
		Long: `Render a schema file (.yaml, .yml, .json or .toml) to an ER diagram.

Output files are named after the schema unless -o is given. With several
formats, -o is used as the base path and each format adds its extension.`,
		Example: `  erd render school.yaml
  erd render school.yaml -f svg,dot -o out/school
  erd render shop.json --infer-fk --rankdir LR`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = c.config.Formats
			if cmd.Flags().Changed("format") || len(opts.formats) == 0 {
				opts.formats = pipeline.ParseFormats(formatsStr)
			}
			if err := pipeline.ValidateFormats(opts.formats); err != nil {
				return err
			}
			if !cmd.Flags().Changed("infer-fk") {
				opts.inferFK = c.config.InferForeignKeys
			}
			return c.runRender(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), png, pdf, dot, json (comma-separated)")
	cmd.Flags().BoolVar(&opts.inferFK, "infer-fk", false, "link <entity>_id and <entity>_idx fields to their entity")
	cmd.Flags().StringVar(&opts.rankDir, "rankdir", "", "layout direction: TB (default), LR, BT, RL")
	cmd.Flags().StringVar(&opts.fontName, "font", "", "node font (default \"Cascadia Code\")")
	cmd.Flags().Float64Var(&opts.fontSize, "font-size", 0, "node font size in points (default 10)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached results")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, input string, opts *renderOpts) error {
	logger := loggerFromContext(ctx)

	format, err := schema.DetectFormat(input)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	style := c.config.dotStyle()
	if opts.rankDir != "" {
		style.RankDir = opts.rankDir
	}
	if opts.fontName != "" {
		style.FontName = opts.fontName
	}
	if opts.fontSize > 0 {
		style.FontSize = opts.fontSize
	}

	prog := newProgress(logger)
	spinner := newSpinnerWithContext(ctx, "Rendering "+filepath.Base(input)+"...")
	spinner.Start()
	result, err := runner.Execute(ctx, pipeline.Options{
		Schema:           data,
		SchemaFormat:     format,
		Formats:          opts.formats,
		InferForeignKeys: opts.inferFK,
		Style:            style,
		Refresh:          opts.refresh,
		Logger:           logger,
	})
	spinner.Stop()
	if err != nil {
		return err
	}

	paths, err := writeArtifacts(result.Artifacts, opts.formats, input, opts.output)
	if err != nil {
		return err
	}

	printSuccess("Rendered %s", filepath.Base(input))
	fmt.Println(formatStats(result.Stats, result.CacheInfo.RenderHit))
	for _, p := range paths {
		printFile(p)
	}
	for _, p := range result.Document.Pending {
		printWarning("edge %s %s %s is waiting on %s", p.From, iconArrow, p.To, p.BlockedOn)
	}
	prog.done(fmt.Sprintf("Rendered %s", plural(len(paths), "output", "outputs")))
	return nil
}

// writeArtifacts writes each format to its output path and returns the paths
// in format order.
func writeArtifacts(artifacts map[string][]byte, formats []string, input, output string) ([]string, error) {
	var paths []string
	for _, f := range formats {
		path := outputPath(output, input, f, len(formats) == 1)
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return paths, fmt.Errorf("create output dir: %w", err)
			}
		}
		if err := os.WriteFile(path, artifacts[f], 0644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// outputPath picks the file for one format. A single-format render writes
// exactly to output when given; otherwise output (or the input without its
// extension) is a base path.
func outputPath(output, input, format string, single bool) string {
	if single && output != "" {
		return output
	}
	return basePath(output, input) + "." + format
}

// basePath strips a known extension from output, or derives the base from
// input when output is empty.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := strings.TrimPrefix(filepath.Ext(output), ".")
	if pipeline.ValidFormats[ext] {
		return strings.TrimSuffix(output, "."+ext)
	}
	return output
}
