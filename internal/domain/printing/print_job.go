package printing

import (
	"path"
	"strings"
)

// Spooler status codes. Backends map their native job states onto these
// so callers see one stable set of values.
const (
	JobStatusQueued   = 0
	JobStatusPaused   = 1
	JobStatusPrinting = 16
	JobStatusError    = 2
)

// PrintJob is the normalized view of a spooler job record. The spooler owns
// the job; this system only reads it.
type PrintJob struct {
	JobID        int    `json:"jobId"`
	PrinterName  string `json:"printerName"`
	Document     string `json:"document"`
	Status       int    `json:"status"`
	StatusText   string `json:"statusText,omitempty"`
	Priority     int    `json:"priority"`
	Position     int    `json:"position"`
	TotalPages   int    `json:"totalPages"`
	PagesPrinted int    `json:"pagesPrinted"`
}

// MaxJobTitleLength is the longest title JobTitle produces. CUPS lpq prints
// "N copies of <title>" in a 31-column field, so a title of this length
// survives untruncated for up to 999 copies.
const MaxJobTitleLength = 17

// jobTitleEdge is how many leading and trailing stem characters a shortened
// title keeps. Stored and derived names start with the 8-character upload id
// and derived names end with the 8-character request discriminator.
const jobTitleEdge = 8

// JobTitle returns the spooler job title used to correlate a submitted file.
// Short stems are used as is; longer ones keep their first and last eight
// characters joined by "~", e.g. "1f2e3d4c_quarterly-output-a1b2c3d4.pdf"
// becomes "1f2e3d4c~a1b2c3d4". The extension is dropped.
func JobTitle(name string) string {
	base := documentBase(name)
	stem := strings.TrimSuffix(base, path.Ext(base))
	if stem == "" {
		stem = base
	}
	if len(stem) <= MaxJobTitleLength {
		return stem
	}
	return stem[:jobTitleEdge] + "~" + stem[len(stem)-jobTitleEdge:]
}

// MatchesDocument reports whether the job was created for the file with the
// given basename. Spoolers report a full path, a bare file name or the
// shortened job title, so both sides are reduced to their job titles.
func (j PrintJob) MatchesDocument(basename string) bool {
	if basename == "" || j.Document == "" {
		return false
	}
	return JobTitle(j.Document) == JobTitle(basename)
}

// documentBase strips directories using either separator, since Windows
// spoolers report backslash paths
func documentBase(name string) string {
	return path.Base(strings.ReplaceAll(name, `\`, "/"))
}

// FindJobByDocument returns the first job created for basename
func FindJobByDocument(jobs []PrintJob, basename string) (PrintJob, bool) {
	for _, j := range jobs {
		if j.MatchesDocument(basename) {
			return j, true
		}
	}
	return PrintJob{}, false
}
