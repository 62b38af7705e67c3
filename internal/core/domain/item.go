package domain

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// StoredItem is the unit of storage in a vector backend.
// Text documents are stored as one item per chunk; images as one item each.
type StoredItem struct {
	// ID is the backend-assigned (or pre-generated) unique identifier.
	ID string

	// URL is the origin identifier. Chunks of one document share a base
	// URL with a "#chunk-N" suffix, so URL is not unique per item.
	URL string

	// Text is the chunk content. Empty for pure images.
	Text string

	// Image is the optional binary payload for image items.
	Image []byte

	// Embedding is the dense vector for the item, computed client-side
	// before writing. May be nil when the backend vectorises server-side.
	Embedding []float32

	// Metadata is the open key-value map persisted alongside the item.
	Metadata map[string]any
}

// Collection identifies a named partition of StoredItems of one content kind.
type Collection struct {
	// Name is the backend-side collection/class name.
	Name string

	// Kind is either CollectionText or CollectionImage.
	Kind CollectionKind
}

// CollectionKind distinguishes text and image collections.
type CollectionKind string

const (
	// CollectionText holds chunked document text.
	CollectionText CollectionKind = "text"

	// CollectionImage holds images with analysis metadata.
	CollectionImage CollectionKind = "image"
)

// CollectionSet names the configured collections of a database.
// A database has one text collection and at most one image collection.
type CollectionSet struct {
	Text  string
	Image string
}

// ForKind returns the collection name for the given kind.
func (c CollectionSet) ForKind(kind CollectionKind) string {
	if kind == CollectionImage {
		return c.Image
	}
	return c.Text
}

// Metadata keys shared across adapters and services.
const (
	MetaChunkIndex       = "chunk_index"
	MetaTotalChunks      = "total_chunks"
	MetaChunkSizes       = "chunk_sizes"
	MetaOriginalFilename = "original_filename"
	MetaDateAdded        = "date_added"
	MetaAISummary        = "ai_summary"
	MetaClassification   = "classification"
	MetaOCRContent       = "ocr_content"
	MetaEXIF             = "exif"
	MetaStoragePath      = "storage_path"
	MetaSourceType       = "source_type"
	MetaPDFSource        = "pdf_source"
)

// SourceTypePDFImage marks images extracted from a PDF. Items carrying it
// group by their PDF source rather than by URL.
const SourceTypePDFImage = "pdf_image"

// chunkSuffix matches the "#chunk-N" fragment appended to chunk URLs.
var chunkSuffix = regexp.MustCompile(`#chunk-\d+$`)

// ChunkURL builds the URL for chunk index of a base URL.
func ChunkURL(base string, index int) string {
	return fmt.Sprintf("%s#chunk-%d", base, index)
}

// GroupKey derives the logical-document key for an item: the URL with any
// chunk suffix stripped, or the PDF source path for PDF-extracted images.
func (i StoredItem) GroupKey() string {
	if src, ok := i.Metadata[MetaSourceType].(string); ok && src == SourceTypePDFImage {
		if pdf, ok := i.Metadata[MetaPDFSource].(string); ok && pdf != "" {
			return pdf
		}
	}
	return chunkSuffix.ReplaceAllString(i.URL, "")
}

// ChunkIndex returns the item's chunk_index metadata, or 0 when absent.
// Metadata round-trips through JSON, so numbers may arrive as float64.
func (i StoredItem) ChunkIndex() int {
	return metaInt(i.Metadata, MetaChunkIndex)
}

// TotalChunks returns the item's total_chunks metadata, or 0 when absent.
func (i StoredItem) TotalChunks() int {
	return metaInt(i.Metadata, MetaTotalChunks)
}

func metaInt(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// GroupedView is a read-only aggregate over StoredItems sharing a group key.
// It is rebuilt on every list call and has no independent storage.
type GroupedView struct {
	// Key is the shared group key (stripped URL or PDF source).
	Key string

	// Kind is the content kind of the members.
	Kind CollectionKind

	// Metadata is the representative metadata, taken from member 0.
	Metadata map[string]any

	// Items are the ordered member references (chunk order, then URL).
	Items []StoredItem
}

// MemberCount returns the number of members in the group.
func (g GroupedView) MemberCount() int {
	return len(g.Items)
}

// SortMembers orders members by chunk index, falling back to URL for
// items without chunk metadata (e.g. image stacks).
func (g *GroupedView) SortMembers() {
	sort.SliceStable(g.Items, func(a, b int) bool {
		ai, bi := g.Items[a].ChunkIndex(), g.Items[b].ChunkIndex()
		if ai != bi {
			return ai < bi
		}
		return g.Items[a].URL < g.Items[b].URL
	})
}

// WriteResult reports the outcome of writing one StoredItem. Partial
// failure across a batch is per item, never all-or-nothing.
type WriteResult struct {
	ID  string
	URL string
	Err error
}

// DeleteTally reports the outcome of a grouped deletion.
type DeleteTally struct {
	Deleted int
	Failed  int

	// FailedIDs names the members that could not be deleted so the
	// caller can retry the remainder.
	FailedIDs []string
}

// String renders the tally for user-facing output.
func (t DeleteTally) String() string {
	if t.Failed == 0 {
		return fmt.Sprintf("deleted %d item(s)", t.Deleted)
	}
	return fmt.Sprintf("deleted %d item(s), %d failed (%s)",
		t.Deleted, t.Failed, strings.Join(t.FailedIDs, ", "))
}
