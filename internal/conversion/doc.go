// Package conversion orchestrates one conversion request: stage the upload,
// render it, commit the PDF to the outbound registry and release the upload.
package conversion
