package export

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	nonAlnum      = regexp.MustCompile(`[^a-zA-Z0-9]`)
	unsafeChar    = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
	dotRun        = regexp.MustCompile(`\.{2,}`)
)

// LocalFileName is the name used for downloads and the archive:
// OPR_<program, whitespace runs as "_">_<ddMMyy>.pdf.
func LocalFileName(programName string, now time.Time) string {
	return "OPR_" + whitespaceRun.ReplaceAllString(programName, "_") + "_" + now.Format("020106") + ".pdf"
}

// UploadFileName is the name sent to upload sinks:
// OPR_<program, each non-alphanumeric as "_">_<unix millis>.pdf.
func UploadFileName(programName string, now time.Time) string {
	return "OPR_" + nonAlnum.ReplaceAllString(programName, "_") + "_" + strconv.FormatInt(now.UnixMilli(), 10) + ".pdf"
}

// StorageName turns a display file name into a single safe path segment for
// blob keys and local files: separators and other unsafe characters become
// "_" and dot runs collapse so the result never contains "..".
func StorageName(fileName string) string {
	name := unsafeChar.ReplaceAllString(fileName, "_")
	name = dotRun.ReplaceAllString(name, "_")
	if strings.Trim(name, "._") == "" {
		return "OPR.pdf"
	}
	return name
}
