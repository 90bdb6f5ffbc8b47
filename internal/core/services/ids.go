package services

import (
	"strconv"

	"github.com/google/uuid"
)

// namespace scopes every name-based ID this application derives.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/custodia-labs/sercha-rag"))

// DocumentIDFor derives a stable document ID from a filename, so that
// re-uploading the same file replaces the earlier document.
func DocumentIDFor(filename string) string {
	return uuid.NewSHA1(namespace, []byte("document:"+filename)).String()
}

// PointID derives the vector point ID for one chunk of one ingestion run.
// Different runs of the same document never share point IDs.
func PointID(documentID, version string, index int) string {
	return uuid.NewSHA1(namespace, []byte(documentID+"/"+version+"/"+strconv.Itoa(index))).String()
}

func newVersion() string {
	return uuid.NewString()
}
