package loader

import (
	"fmt"
	"strconv"

	"github.com/ledongthuc/pdf"
)

// PDFLoader extracts text from PDF files, one document per page, so that a
// citation can point at the page a passage came from.
type PDFLoader struct{}

// NewPDFLoader creates a loader for .pdf files.
func NewPDFLoader() *PDFLoader { return &PDFLoader{} }

func (l *PDFLoader) Extensions() []string { return []string{".pdf"} }

func (l *PDFLoader) Load(path string) ([]Document, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	var docs []Document
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extracting page %d: %w", i, err)
		}
		if text == "" {
			continue
		}
		docs = append(docs, Document{
			Content: text,
			Metadata: map[string]string{
				"source": path,
				"page":   strconv.Itoa(i),
			},
		})
	}
	return docs, nil
}

var _ Loader = (*PDFLoader)(nil)
