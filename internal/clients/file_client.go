package clients

// FileClient replays trades recorded in a JSON file against a paper wallet.
type FileClient struct {
	Path string
}

// NewFileClient creates a replay client for the trades file at path.
func NewFileClient(path string) *FileClient {
	return &FileClient{Path: path}
}
