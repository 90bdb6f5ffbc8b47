// Package normalisers turns uploaded files into plain text. Each
// sub-package handles one file format; the Registry in this package
// dispatches an upload to the right one by extension, then MIME type.
package normalisers
