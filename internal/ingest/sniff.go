package ingest

import (
	"path"
	"strings"
)

// textExtensions is the allow-list of extensions considered likely-text.
var textExtensions = map[string]bool{
	".md": true, ".markdown": true, ".txt": true,
	".sh": true, ".bash": true, ".zsh": true, ".ps1": true,
	".py": true, ".js": true, ".mjs": true, ".ts": true,
	".json": true, ".toml": true, ".yaml": true, ".yml": true,
}

// archiveExtensions marks nested archives for manifest flagging.
var archiveExtensions = map[string]bool{
	".zip": true, ".tar": true, ".gz": true, ".tgz": true,
	".bz2": true, ".xz": true, ".7z": true, ".rar": true,
}

const sniffLen = 4096

// hasTextExtension reports whether the path's extension is on the
// likely-text allow-list.
func hasTextExtension(p string) bool {
	return textExtensions[strings.ToLower(path.Ext(p))]
}

// hasArchiveExtension reports whether the path looks like a nested
// archive.
func hasArchiveExtension(p string) bool {
	return archiveExtensions[strings.ToLower(path.Ext(p))]
}

// looksBinary sniffs up to 4 KiB and declares binary if any NUL byte is
// present or more than 20% of bytes are in the control range.
func looksBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	sample := data
	if len(sample) > sniffLen {
		sample = sample[:sniffLen]
	}
	control := 0
	for _, b := range sample {
		if b == 0 {
			return true
		}
		if b < 9 || (b > 13 && b < 32) {
			control++
		}
	}
	return control*5 > len(sample)
}

// isZipMagic reports whether the bytes start with the pkzip local
// header magic.
func isZipMagic(data []byte) bool {
	return len(data) >= 4 && data[0] == 'P' && data[1] == 'K' && data[2] == 3 && data[3] == 4
}
