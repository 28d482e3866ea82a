package archive

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	eocdSignature  = 0x06054b50
	cdirSignature  = 0x02014b50
	localSignature = 0x04034b50

	eocdMinLen     = 22
	maxCommentLen  = 65535
	cdirHeaderLen  = 46
	localHeaderLen = 30

	methodStored   = 0
	methodDeflated = 8
)

// Error reports an unreadable or malformed archive.
type Error struct {
	Msg string
}

func (e *Error) Error() string {
	return "archive: " + e.Msg
}

func errf(format string, args ...any) error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

// ErrUnsupportedMethod marks an entry compressed with a method the
// reader does not handle. It fails only that entry, not the archive.
var ErrUnsupportedMethod = errors.New("archive: unsupported compression method")

// Entry is one central-directory record.
type Entry struct {
	Name              string // sanitized, forward slashes, empty if rejected
	RawName           string // original name as stored
	CompressedSize    int64
	UncompressedSize  int64
	Method            uint16
	LocalHeaderOffset int64
	ExternalAttrs     uint32
	IsDirectory       bool
}

// unixMode extracts the Unix mode bits from the external attributes.
func (e Entry) unixMode() uint32 {
	return e.ExternalAttrs >> 16
}

// IsSymlink reports whether the entry's Unix file type is a symlink.
func (e Entry) IsSymlink() bool {
	return e.unixMode()&0o170000 == 0o120000
}

// IsExecutable reports whether any Unix execute bit is set.
func (e Entry) IsExecutable() bool {
	return e.unixMode()&0o111 != 0
}

// Reader parses a pkzip archive held entirely in memory. Only stored
// and raw-deflate entries can be extracted.
type Reader struct {
	data    []byte
	Entries []Entry
}

// NewReader parses the central directory strictly; any structural
// mismatch fails with *Error.
func NewReader(data []byte) (*Reader, error) {
	eocd, err := findEOCD(data)
	if err != nil {
		return nil, err
	}

	entryCount := int(binary.LittleEndian.Uint16(data[eocd+10:]))
	cdirOffset := int64(binary.LittleEndian.Uint32(data[eocd+16:]))
	if cdirOffset >= int64(len(data)) {
		return nil, errf("central directory offset %d beyond archive end", cdirOffset)
	}

	r := &Reader{data: data}
	offset := cdirOffset
	for i := 0; i < entryCount; i++ {
		entry, next, err := parseCentralEntry(data, offset)
		if err != nil {
			return nil, err
		}
		r.Entries = append(r.Entries, entry)
		offset = next
	}
	return r, nil
}

// InvalidPaths returns the raw names of entries rejected by path
// sanitization, in central-directory order.
func (r *Reader) InvalidPaths() []string {
	var rejected []string
	for _, e := range r.Entries {
		if e.Name == "" && e.RawName != "" {
			rejected = append(rejected, e.RawName)
		}
	}
	return rejected
}

// SelectOptions bound entry selection for scanning.
type SelectOptions struct {
	MaxEntries    int
	MaxEntryBytes int64
	MaxTotalBytes int64
}

// SelectForScan picks extractable entries in central-directory order.
// Directories, zero-length entries, symlinks, rejected paths, and
// entries over MaxEntryBytes are skipped; selection stops once the
// running total would exceed MaxTotalBytes or MaxEntries are picked.
func (r *Reader) SelectForScan(opts SelectOptions) []Entry {
	var picked []Entry
	var total int64
	for _, e := range r.Entries {
		if len(picked) >= opts.MaxEntries {
			break
		}
		if e.IsDirectory || e.Name == "" || e.IsSymlink() {
			continue
		}
		if e.UncompressedSize == 0 {
			continue
		}
		if e.UncompressedSize > opts.MaxEntryBytes {
			continue
		}
		if total+e.UncompressedSize > opts.MaxTotalBytes {
			break
		}
		total += e.UncompressedSize
		picked = append(picked, e)
	}
	return picked
}

// Extract decompresses one entry into a capped buffer. Symlink entries
// are never extracted. Unsupported compression methods return
// ErrUnsupportedMethod.
func (r *Reader) Extract(e Entry, maxBytes int64) ([]byte, error) {
	if e.IsSymlink() {
		return nil, errf("refusing to extract symlink entry %q", e.RawName)
	}

	off := e.LocalHeaderOffset
	if off < 0 || off+localHeaderLen > int64(len(r.data)) {
		return nil, errf("local header offset %d beyond archive end", off)
	}
	if binary.LittleEndian.Uint32(r.data[off:]) != localSignature {
		return nil, errf("bad local header signature at offset %d", off)
	}

	nameLen := int64(binary.LittleEndian.Uint16(r.data[off+26:]))
	extraLen := int64(binary.LittleEndian.Uint16(r.data[off+28:]))
	dataStart := off + localHeaderLen + nameLen + extraLen
	dataEnd := dataStart + e.CompressedSize
	if dataStart > int64(len(r.data)) || dataEnd > int64(len(r.data)) {
		return nil, errf("entry %q data extends beyond archive end", e.RawName)
	}
	raw := r.data[dataStart:dataEnd]

	switch e.Method {
	case methodStored:
		if int64(len(raw)) > maxBytes {
			return nil, errf("entry %q exceeds %d bytes", e.RawName, maxBytes)
		}
		out := make([]byte, len(raw))
		copy(out, raw)
		return out, nil
	case methodDeflated:
		fr := flate.NewReader(bytes.NewReader(raw))
		defer fr.Close()
		out, err := io.ReadAll(io.LimitReader(fr, maxBytes+1))
		if err != nil {
			return nil, errf("inflate entry %q: %v", e.RawName, err)
		}
		if int64(len(out)) > maxBytes {
			return nil, errf("entry %q exceeds %d bytes", e.RawName, maxBytes)
		}
		return out, nil
	default:
		return nil, ErrUnsupportedMethod
	}
}

// findEOCD scans the last 22+65535 bytes for the end-of-central-
// directory signature.
func findEOCD(data []byte) (int64, error) {
	if len(data) < eocdMinLen {
		return 0, errf("too small to be an archive (%d bytes)", len(data))
	}
	scanFrom := len(data) - eocdMinLen - maxCommentLen
	if scanFrom < 0 {
		scanFrom = 0
	}
	for i := len(data) - eocdMinLen; i >= scanFrom; i-- {
		if binary.LittleEndian.Uint32(data[i:]) == eocdSignature {
			return int64(i), nil
		}
	}
	return 0, errf("end of central directory not found")
}

func parseCentralEntry(data []byte, offset int64) (Entry, int64, error) {
	if offset+cdirHeaderLen > int64(len(data)) {
		return Entry{}, 0, errf("central directory truncated at offset %d", offset)
	}
	if binary.LittleEndian.Uint32(data[offset:]) != cdirSignature {
		return Entry{}, 0, errf("bad central directory signature at offset %d", offset)
	}

	method := binary.LittleEndian.Uint16(data[offset+10:])
	compressedSize := int64(binary.LittleEndian.Uint32(data[offset+20:]))
	uncompressedSize := int64(binary.LittleEndian.Uint32(data[offset+24:]))
	nameLen := int64(binary.LittleEndian.Uint16(data[offset+28:]))
	extraLen := int64(binary.LittleEndian.Uint16(data[offset+30:]))
	commentLen := int64(binary.LittleEndian.Uint16(data[offset+32:]))
	externalAttrs := binary.LittleEndian.Uint32(data[offset+38:])
	localOffset := int64(binary.LittleEndian.Uint32(data[offset+42:]))

	nameStart := offset + cdirHeaderLen
	nameEnd := nameStart + nameLen
	if nameEnd > int64(len(data)) {
		return Entry{}, 0, errf("entry name truncated at offset %d", offset)
	}
	rawName := string(data[nameStart:nameEnd])

	entry := Entry{
		Name:              SanitizeName(rawName),
		RawName:           rawName,
		CompressedSize:    compressedSize,
		UncompressedSize:  uncompressedSize,
		Method:            method,
		LocalHeaderOffset: localOffset,
		ExternalAttrs:     externalAttrs,
		IsDirectory:       strings.HasSuffix(rawName, "/"),
	}

	next := nameEnd + extraLen + commentLen
	return entry, next, nil
}

// SanitizeName normalizes an archive entry name. It returns "" for
// names containing NUL, starting with a slash, or containing "." or
// ".." segments.
func SanitizeName(raw string) string {
	if raw == "" || strings.ContainsRune(raw, 0) {
		return ""
	}
	if raw[0] == '/' || raw[0] == '\\' {
		return ""
	}
	normalized := strings.ReplaceAll(raw, `\`, "/")
	for _, seg := range strings.Split(strings.TrimSuffix(normalized, "/"), "/") {
		if seg == "." || seg == ".." {
			return ""
		}
	}
	return normalized
}
