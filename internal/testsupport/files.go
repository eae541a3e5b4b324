package testsupport

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const exifTimeLayout = "2006:01:02 15:04:05"

// WriteJPEG writes a minimal JPEG at path, creating parent directories. A
// non-zero captured time is stored as the EXIF DateTimeOriginal; a zero time
// writes a JPEG without an EXIF segment.
func WriteJPEG(t testing.TB, path string, captured time.Time) {
	t.Helper()

	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xD8})
	if !captured.IsZero() {
		payload := append([]byte("Exif\x00\x00"), exifTIFF(captured)...)
		buf.Write([]byte{0xFF, 0xE1})
		_ = binary.Write(&buf, binary.BigEndian, uint16(len(payload)+2))
		buf.Write(payload)
	}
	buf.Write([]byte{0xFF, 0xD9})
	writeBytes(t, path, buf.Bytes())
}

// Touch writes a small placeholder file at path, creating parent directories.
func Touch(t testing.TB, path string) {
	t.Helper()
	writeBytes(t, path, []byte("photodesk\n"))
}

// exifTIFF lays out a little-endian TIFF block: IFD0 holding only the Exif
// sub-IFD pointer, then the sub-IFD holding DateTimeOriginal.
func exifTIFF(captured time.Time) []byte {
	const (
		ifd0Offset  = 8
		ifdSize     = 2 + 12 + 4
		subIFD      = ifd0Offset + ifdSize
		valueOffset = subIFD + ifdSize
	)
	value := append([]byte(captured.Format(exifTimeLayout)), 0)

	var b bytes.Buffer
	le := binary.LittleEndian
	b.WriteString("II")
	_ = binary.Write(&b, le, uint16(42))
	_ = binary.Write(&b, le, uint32(ifd0Offset))

	// IFD0: ExifIFDPointer (LONG).
	_ = binary.Write(&b, le, uint16(1))
	_ = binary.Write(&b, le, []uint16{0x8769, 4})
	_ = binary.Write(&b, le, []uint32{1, subIFD, 0})

	// Exif IFD: DateTimeOriginal (ASCII), stored after the directory.
	_ = binary.Write(&b, le, uint16(1))
	_ = binary.Write(&b, le, []uint16{0x9003, 2})
	_ = binary.Write(&b, le, []uint32{uint32(len(value)), valueOffset, 0})

	b.Write(value)
	return b.Bytes()
}

func writeBytes(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
