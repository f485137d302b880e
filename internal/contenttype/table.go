// Package contenttype はファイルの拡張子から Content-Type を決定する
//
// テーブルは作成後に変更されないため、複数のリクエストから同時に参照できる。
package contenttype

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Default は未登録の拡張子に対する Content-Type
const Default = "application/octet-stream"

// baseTypes は必ず登録される対応表
var baseTypes = map[string]string{
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".js":   "text/javascript",
	".mjs":  "text/javascript",
	".png":  "image/png",
	".jpeg": "image/jpeg",
	".map":  "application/json",
}

// wellKnownTypes は拡張子を mimetype のレジストリから引くメディアタイプ
var wellKnownTypes = []string{
	"image/jpeg",
	"image/gif",
	"image/webp",
	"image/svg+xml",
	"image/x-icon",
	"image/avif",
	"application/json",
	"application/pdf",
	"application/wasm",
	"application/zip",
	"font/woff",
	"font/woff2",
	"font/ttf",
	"font/otf",
	"text/plain",
	"text/csv",
	"text/xml",
	"audio/mpeg",
	"audio/ogg",
	"video/mp4",
	"video/webm",
}

// Table は拡張子から Content-Type への不変な対応表
type Table struct {
	types map[string]string
}

// NewTable は指定された対応表から Table を作成する
// キーは小文字化され、先頭にドットがなければ付与される
func NewTable(entries map[string]string) *Table {
	types := make(map[string]string, len(entries))
	for ext, ctype := range entries {
		if ext == "" || ctype == "" {
			continue
		}
		types[normalizeExt(ext)] = ctype
	}
	return &Table{types: types}
}

// DefaultTable は標準の対応表を作成する
func DefaultTable() *Table {
	entries := make(map[string]string, len(baseTypes)+len(wellKnownTypes))
	for _, ctype := range wellKnownTypes {
		m := mimetype.Lookup(ctype)
		if m == nil || m.Extension() == "" {
			continue
		}
		entries[m.Extension()] = ctype
	}
	// 基本の対応表を優先する
	for ext, ctype := range baseTypes {
		entries[ext] = ctype
	}
	return NewTable(entries)
}

// Lookup はファイルパスの拡張子に対応する Content-Type を返す
// 戻り値が空文字列になることはない
func (t *Table) Lookup(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ctype, ok := t.types[ext]; ok {
		return ctype
	}
	return Default
}

// Len は登録されている拡張子の数を返す
func (t *Table) Len() int {
	return len(t.types)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
