// ABOUTME: Package doc for attachment text extraction

// Package extract turns message attachments into plain text for the
// conversation pipeline.
//
// Attachments arrive base64-encoded with a declared media type. A closed
// dispatch table routes each supported type to its extractor: PDFs are
// consumed as a parser event stream with size, time, item and page guards;
// OOXML documents are read as zip+xml; legacy Office binaries are scraped
// from their OLE streams. Unsupported media types are skipped without error
// so one odd attachment never rejects a message.
package extract
