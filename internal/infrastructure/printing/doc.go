// Package printing provides infrastructure implementations for the print
// submission pipeline.
//
// This package contains:
// - FileSystemStorage, the upload directory behind printing.DocumentStore
// - DocumentConverter, which turns images, office documents and HTML into PDF
// - PDFCPUSubsetWriter, which materializes page subsets with pdfcpu
// - LPEncoder and LPRenderer for the CUPS lp client
// - SumatraEncoder and SumatraRenderer for the SumatraPDF command line
// - CUPSSpooler, WindowsSpooler and MemorySpooler implementing printing.SpoolerGateway
//
// Renderers and spoolers come in pairs: LPRenderer queues on CUPSSpooler,
// SumatraRenderer on WindowsSpooler and MemoryRenderer on MemorySpooler.
//
// Example usage:
//
//	spooler := NewMemorySpooler(logger, "Office-Laser")
//	renderer := NewMemoryRenderer(spooler, PDFCPUPageCounter{}, logger)
//	args := SumatraEncoder{}.Encode(opts)
//	if err := renderer.Print(ctx, args, "/srv/uploads/1a2b3c4d_report.pdf"); err != nil {
//	    log.Fatal(err)
//	}
package printing
