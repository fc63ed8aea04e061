package service

import "errors"

var (
	// ErrManifestUnavailable is logged when the manifest cannot be loaded; the
	// listing degrades to zero members.
	ErrManifestUnavailable = errors.New("manifest unavailable")
	// ErrDocumentUnavailable is logged when a member document cannot be
	// retrieved or read.
	ErrDocumentUnavailable = errors.New("document unavailable")
	// ErrMetadataMalformed is logged when a document's metadata block cannot be
	// decoded. It is not fatal, the body is still rendered.
	ErrMetadataMalformed = errors.New("metadata malformed")
)
