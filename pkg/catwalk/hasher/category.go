package hasher

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/fairweather/catwalk/pkg/catwalk/types"
)

// extCategories maps lowercase extensions to content categories. The
// table decides for the vast majority of files; the header sniff only
// runs when the extension is absent or unknown.
var extCategories = map[string]types.Category{
	// Images
	".jpg": types.CategoryImage, ".jpeg": types.CategoryImage,
	".png": types.CategoryImage, ".gif": types.CategoryImage,
	".webp": types.CategoryImage, ".bmp": types.CategoryImage,
	".tif": types.CategoryImage, ".tiff": types.CategoryImage,
	".heic": types.CategoryImage, ".svg": types.CategoryImage,
	".raw": types.CategoryImage, ".cr2": types.CategoryImage,
	".nef": types.CategoryImage, ".ico": types.CategoryImage,

	// Video
	".mp4": types.CategoryVideo, ".mkv": types.CategoryVideo,
	".mov": types.CategoryVideo, ".avi": types.CategoryVideo,
	".webm": types.CategoryVideo, ".wmv": types.CategoryVideo,
	".m4v": types.CategoryVideo, ".mpg": types.CategoryVideo,
	".mpeg": types.CategoryVideo, ".ts": types.CategoryVideo,
	".flv": types.CategoryVideo,

	// Audio
	".mp3": types.CategoryAudio, ".flac": types.CategoryAudio,
	".wav": types.CategoryAudio, ".aac": types.CategoryAudio,
	".ogg": types.CategoryAudio, ".m4a": types.CategoryAudio,
	".wma": types.CategoryAudio, ".opus": types.CategoryAudio,
	".aiff": types.CategoryAudio,

	// Documents
	".pdf": types.CategoryDocument, ".doc": types.CategoryDocument,
	".docx": types.CategoryDocument, ".xls": types.CategoryDocument,
	".xlsx": types.CategoryDocument, ".ppt": types.CategoryDocument,
	".pptx": types.CategoryDocument, ".odt": types.CategoryDocument,
	".ods": types.CategoryDocument, ".txt": types.CategoryDocument,
	".md": types.CategoryDocument, ".rtf": types.CategoryDocument,
	".epub": types.CategoryDocument, ".csv": types.CategoryDocument,

	// Archives
	".zip": types.CategoryArchive, ".tar": types.CategoryArchive,
	".gz": types.CategoryArchive, ".bz2": types.CategoryArchive,
	".xz": types.CategoryArchive, ".7z": types.CategoryArchive,
	".rar": types.CategoryArchive, ".zst": types.CategoryArchive,
	".tgz": types.CategoryArchive, ".iso": types.CategoryArchive,

	// Code
	".go": types.CategoryCode, ".py": types.CategoryCode,
	".js": types.CategoryCode, ".jsx": types.CategoryCode,
	".tsx": types.CategoryCode, ".c": types.CategoryCode,
	".h": types.CategoryCode, ".cc": types.CategoryCode,
	".cpp": types.CategoryCode, ".hpp": types.CategoryCode,
	".rs": types.CategoryCode, ".java": types.CategoryCode,
	".kt": types.CategoryCode, ".rb": types.CategoryCode,
	".sh": types.CategoryCode, ".pl": types.CategoryCode,
	".php": types.CategoryCode, ".swift": types.CategoryCode,
	".sql": types.CategoryCode, ".html": types.CategoryCode,
	".css": types.CategoryCode, ".json": types.CategoryCode,
	".yaml": types.CategoryCode, ".yml": types.CategoryCode,
	".toml": types.CategoryCode, ".xml": types.CategoryCode,
}

// sniffLen is how many leading bytes the header sniff inspects.
const sniffLen = 512

// magicSignature is one recognizable file header.
type magicSignature struct {
	prefix   []byte
	category types.Category
}

var magicSignatures = []magicSignature{
	{[]byte{0xFF, 0xD8, 0xFF}, types.CategoryImage},                // JPEG
	{[]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A}, types.CategoryImage}, // PNG
	{[]byte("GIF87a"), types.CategoryImage},
	{[]byte("GIF89a"), types.CategoryImage},
	{[]byte("BM"), types.CategoryImage}, // BMP
	{[]byte("%PDF"), types.CategoryDocument},
	{[]byte("PK\x03\x04"), types.CategoryArchive}, // ZIP family
	{[]byte{0x1F, 0x8B}, types.CategoryArchive},   // gzip
	{[]byte("7z\xBC\xAF\x27\x1C"), types.CategoryArchive},
	{[]byte("Rar!\x1A\x07"), types.CategoryArchive},
	{[]byte{0xFD, '7', 'z', 'X', 'Z', 0x00}, types.CategoryArchive}, // xz
	{[]byte("ID3"), types.CategoryAudio},                            // MP3 with tags
	{[]byte("fLaC"), types.CategoryAudio},
	{[]byte("OggS"), types.CategoryAudio},
}

// CategoryFor classifies a path by extension, falling back to the header
// bytes when the extension is unknown. header may be shorter than sniffLen
// or nil; unrecognized content classifies as other.
func CategoryFor(path string, header []byte) types.Category {
	ext := strings.ToLower(filepath.Ext(path))
	if cat, ok := extCategories[ext]; ok {
		return cat
	}
	return sniffHeader(header)
}

// sniffHeader matches the leading bytes against known signatures, with
// two container checks that need bytes past the prefix.
func sniffHeader(header []byte) types.Category {
	for _, sig := range magicSignatures {
		if bytes.HasPrefix(header, sig.prefix) {
			return sig.category
		}
	}

	// RIFF containers carry the real type at offset 8.
	if len(header) >= 12 && bytes.HasPrefix(header, []byte("RIFF")) {
		switch string(header[8:12]) {
		case "WAVE":
			return types.CategoryAudio
		case "AVI ":
			return types.CategoryVideo
		case "WEBP":
			return types.CategoryImage
		}
	}

	// ISO base media (MP4, MOV) puts "ftyp" at offset 4.
	if len(header) >= 8 && bytes.Equal(header[4:8], []byte("ftyp")) {
		return types.CategoryVideo
	}

	return types.CategoryOther
}
