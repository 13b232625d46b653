// Package importers turns reading app exports into Readwise highlight records.
//
// # Architecture
//
// The import pipeline follows a simple flow:
//
//	Export file → Converter → []entities.Highlight → Pipeline → Exporter
//
// Each import source implements the Converter interface. The Pipeline merges
// .c1-.c5 fragment groups, validates every record and hands the result to an
// Exporter: the Readwise uploader, the dry-run JSON writer or the Markdown
// renderer.
//
// # Adding a New Import Source
//
//  1. Create a new file: kobo.go
//
//  2. Implement the Converter interface. Emit one record per highlight in
//     input order, synthetic heading records with a .h1-.h3 note for chapter
//     titles, and return a *ParseError for any line the format does not
//     allow:
//
//     type KoboConverter struct{}
//
//     func (c *KoboConverter) Name() string { return "kobo" }
//
//     func (c *KoboConverter) Convert(r io.Reader) ([]entities.Highlight, error) {
//     lr := newLineReader(c.Name(), r)
//     // ...
//     }
//
//     // Compile-time check
//     var _ Converter = (*KoboConverter)(nil)
//
//  3. Register a command for it in internal/cli.
//
// # Example Usage
//
//	pipeline := importers.NewPipeline(exporters.NewJSONWriter(os.Stdout))
//	result, err := pipeline.Import(ctx, importers.NewBooxConverter(), file)
package importers
