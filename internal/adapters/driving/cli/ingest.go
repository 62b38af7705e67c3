package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

var (
	ingestImageClassification string
	ingestImageOCR            string
	ingestImagePDFSource      string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Store content into the backend",
	Long:  `Commands for storing text documents and analysed images.`,
}

var ingestTextCmd = &cobra.Command{
	Use:   "text [url] [file]",
	Short: "Chunk and store a text document",
	Long: `Reads the file (or stdin when the file is "-" or omitted), splits it
into sentence-boundary chunks and stores one item per chunk under the
given URL. Multi-chunk documents get a #chunk-N URL suffix per chunk.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runIngestText,
}

var ingestImageCmd = &cobra.Command{
	Use:   "image [url] [file]",
	Short: "Store an image with its analysis metadata",
	Args:  cobra.ExactArgs(2),
	RunE:  runIngestImage,
}

func init() {
	ingestImageCmd.Flags().StringVar(&ingestImageClassification, "classification", "", "image classification label")
	ingestImageCmd.Flags().StringVar(&ingestImageOCR, "ocr", "", "OCR text extracted from the image")
	ingestImageCmd.Flags().StringVar(&ingestImagePDFSource, "pdf-source", "", "source PDF for images extracted from a PDF")

	ingestCmd.AddCommand(ingestTextCmd)
	ingestCmd.AddCommand(ingestImageCmd)
	rootCmd.AddCommand(ingestCmd)
}

func runIngestText(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	url := args[0]
	text, filename, err := readIngestInput(cmd, args)
	if err != nil {
		return err
	}

	metadata := map[string]any{}
	if filename != "" {
		metadata[domain.MetaOriginalFilename] = filename
	}

	results, err := ingestService.IngestText(cmd.Context(), url, text, metadata)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	stored := 0
	for _, r := range results {
		if r.Err != nil {
			cmd.Printf("  failed: %s: %v\n", r.URL, r.Err)
			continue
		}
		stored++
	}
	cmd.Printf("Stored %d of %d chunks for %s\n", stored, len(results), url)

	if stored < len(results) {
		return fmt.Errorf("%d chunks failed", len(results)-stored)
	}
	return nil
}

func runIngestImage(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	url, path := args[0], args[1]
	image, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	metadata := map[string]any{
		domain.MetaOriginalFilename: filepath.Base(path),
	}
	if ingestImageClassification != "" {
		metadata[domain.MetaClassification] = ingestImageClassification
	}
	if ingestImageOCR != "" {
		metadata[domain.MetaOCRContent] = ingestImageOCR
	}
	if ingestImagePDFSource != "" {
		metadata[domain.MetaPDFSource] = ingestImagePDFSource
		metadata[domain.MetaSourceType] = domain.SourceTypePDFImage
	}

	result, err := ingestService.IngestImage(cmd.Context(), url, image, metadata)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	if result.Err != nil {
		return fmt.Errorf("ingest failed: %w", result.Err)
	}

	cmd.Printf("Stored image %s (%s)\n", result.URL, result.ID)
	return nil
}

// readIngestInput loads the document body from a file argument or stdin.
func readIngestInput(cmd *cobra.Command, args []string) (text, filename string, err error) {
	if len(args) < 2 || args[1] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), "", nil
	}

	data, err := os.ReadFile(args[1])
	if err != nil {
		return "", "", fmt.Errorf("reading file: %w", err)
	}
	return string(data), filepath.Base(args[1]), nil
}
