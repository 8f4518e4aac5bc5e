package upload

// DefaultChunkSize is the shared threshold and part size for chunked
// transfers. The strategy selector and the part-size math must use the same
// value, or partitioning breaks; both read it from here. The server's
// multipart init handler consumes it too, so the part descriptors it issues
// line up with the byte ranges the client uploads.
const DefaultChunkSize int64 = 10 * 1024 * 1024 // 10MiB

// Strategy selects how a file's bytes travel to the object store.
type Strategy int

const (
	// StrategyDirect uploads the whole file in one request.
	StrategyDirect Strategy = iota
	// StrategyChunked splits the file into parts uploaded independently.
	StrategyChunked
)

func (s Strategy) String() string {
	if s == StrategyChunked {
		return "chunked"
	}
	return "direct"
}

// SelectStrategy chooses the transfer strategy for a file size. Files at or
// below the chunk size go direct; everything larger is chunked.
func SelectStrategy(fileSize, chunkSize int64) Strategy {
	if fileSize <= chunkSize {
		return StrategyDirect
	}
	return StrategyChunked
}

// Part is one contiguous byte range [Offset, Offset+Length) of a chunked
// transfer. Part numbers are contiguous starting at 1.
type Part struct {
	Number int
	Offset int64
	Length int64
	URL    string
	ETag   string
}

// Partition splits fileSize bytes into parts of chunkSize, the last part
// possibly shorter. The ranges cover [0, fileSize) exactly, with no gaps or
// overlaps.
func Partition(fileSize, chunkSize int64) []Part {
	if fileSize <= 0 || chunkSize <= 0 {
		return nil
	}

	count := int((fileSize + chunkSize - 1) / chunkSize)
	parts := make([]Part, 0, count)
	for i := 0; i < count; i++ {
		offset := int64(i) * chunkSize
		length := chunkSize
		if offset+length > fileSize {
			length = fileSize - offset
		}
		parts = append(parts, Part{
			Number: i + 1,
			Offset: offset,
			Length: length,
		})
	}
	return parts
}
