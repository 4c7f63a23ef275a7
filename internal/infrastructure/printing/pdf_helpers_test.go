package printing

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/printdesk/backend/internal/domain/printing"
	"github.com/stretchr/testify/require"
)

// minimalPDF builds a well-formed PDF with the given number of empty A4 pages
func minimalPDF(pages int) []byte {
	var buf bytes.Buffer
	offsets := make([]int, 0, pages+3)

	writeObj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	writeObj("<< /Type /Catalog /Pages 2 0 R >>")

	kids := make([]string, pages)
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	writeObj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages))

	for range pages {
		writeObj("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Resources << >> >>")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

// writeTestPDF stores a minimal PDF in dir and wraps it as a PdfDocument
func writeTestPDF(t *testing.T, dir, name string, pages int) *printing.PdfDocument {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, minimalPDF(pages), 0644))
	doc, err := printing.NewDocument(name, name, path)
	require.NoError(t, err)
	return printing.NewPdfDocument(doc, PDFCPUPageCounter{})
}
