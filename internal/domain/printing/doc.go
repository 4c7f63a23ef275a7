// Package printing contains the Printing bounded context.
// This context turns an abstract print request (page ranges, duplex mode,
// paper size, copies, monochrome) into a concrete job for an external
// renderer, and models the spooler records used to track that job after
// submission.
//
// The package is pure: documents, options, page selection and submission
// state live here, while the spooler, renderer, PDF writer and converters
// are described as ports and implemented in the infrastructure layer.
package printing
