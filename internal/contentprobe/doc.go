// Package contentprobe checks the content source over plain HTTP.
//
// It requests the slideshow page with the same cache-defeating headers and
// URL parameter the browser uses, parses the HTML with goquery and reads the
// hidden duration field. Pages that build the field from script will report
// the field as missing here even though a browser would find it; callers
// treat that as a warning.
package contentprobe
