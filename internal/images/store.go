package images

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

// StoreResult summarises an indexed store build.
type StoreResult struct {
	Copied    int      `json:"copied"`
	Converted int      `json:"converted"`
	Raw       int      `json:"raw"`
	Missing   []string `json:"missing"`
}

// BuildStore copies every file of the index from srcDir to dstDir as
// "{index}.png". PNG files are copied unchanged; other decodable formats are
// re-encoded as PNG. Files that cannot be decoded are copied as-is.
func BuildStore(ix *Index, srcDir, dstDir string, log *slog.Logger) (StoreResult, error) {
	var res StoreResult
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return res, fmt.Errorf("create store dir: %w", err)
	}

	for n, name := range ix.Names() {
		src := filepath.Join(srcDir, name)
		data, err := os.ReadFile(src)
		if err != nil {
			res.Missing = append(res.Missing, name)
			log.Warn("store source missing", "file", name, "index", n)
			continue
		}

		dst := filepath.Join(dstDir, StoreName(n))
		out, converted, err := toPNG(data)
		if err != nil {
			log.Warn("image not decodable, copied as-is", "file", name, "index", n, "error", err)
			out = data
			res.Raw++
		} else if converted {
			res.Converted++
		}
		if err := writeFile(dst, out); err != nil {
			return res, err
		}
		res.Copied++
	}

	log.Info("indexed store built",
		"dir", dstDir,
		"copied", res.Copied,
		"converted", res.Converted,
		"missing", len(res.Missing),
	)
	return res, nil
}

// toPNG returns PNG bytes for data. The boolean reports whether a transcode happened.
func toPNG(data []byte) ([]byte, bool, error) {
	if bytes.HasPrefix(data, pngMagic) {
		return data, false, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("decode image: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, false, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), true, nil
}
