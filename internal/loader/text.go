package loader

import "os"

// TextLoader reads plain UTF-8 text files as a single document.
type TextLoader struct{}

// NewTextLoader creates a loader for .txt and .md files.
func NewTextLoader() *TextLoader { return &TextLoader{} }

func (l *TextLoader) Extensions() []string { return []string{".txt", ".md"} }

func (l *TextLoader) Load(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return []Document{{
		Content:  string(data),
		Metadata: map[string]string{"source": path},
	}}, nil
}

var _ Loader = (*TextLoader)(nil)
