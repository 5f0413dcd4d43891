// Package httpapi exposes the conversion service and the PDF registry over
// HTTP. Errors are reported as JSON {success:false, error, hint?} with a
// status derived from html2pdf.KindOf.
package httpapi
