// Package resolver はリクエストのURLパスをコンテンツルート配下のファイルパスに変換する
//
// 責務:
//   - "/" をデフォルトドキュメントに置き換える
//   - URLパスをコンテンツルートと結合する
//   - 拡張子のないパスにデフォルト拡張子を付与する
//   - コンテンツルートの外を指すパスを拒否する
//
// ファイルの存在確認は行わない。存在するかどうかは読み込み時に判定する。
package resolver

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrPathEscape はパスがコンテンツルートの外を指す場合のエラー
var ErrPathEscape = errors.New("path escapes content root")

// Resolver はURLパスをファイルパスに変換する
// 作成後は読み取り専用のため、複数のゴルーチンから同時に使用できる
type Resolver struct {
	root             string
	defaultDocument  string
	defaultExtension string
}

// New は新しい Resolver を作成する
func New(root, defaultDocument, defaultExtension string) (*Resolver, error) {
	if root == "" {
		return nil, errors.New("コンテンツルートが指定されていません")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("コンテンツルートの解決に失敗: %w", err)
	}
	if defaultDocument == "" {
		defaultDocument = "index.html"
	}
	if defaultExtension == "" {
		defaultExtension = ".html"
	}

	return &Resolver{
		root:             abs,
		defaultDocument:  defaultDocument,
		defaultExtension: defaultExtension,
	}, nil
}

// Root はコンテンツルートの絶対パスを返す
func (r *Resolver) Root() string {
	return r.root
}

// Resolve はURLパスを絶対ファイルパスに変換する
// ".." セグメントを含むパスは ErrPathEscape を返す
func (r *Resolver) Resolve(urlPath string) (string, error) {
	if urlPath == "" || urlPath == "/" {
		urlPath = "/" + r.defaultDocument
	}
	if !strings.HasPrefix(urlPath, "/") {
		urlPath = "/" + urlPath
	}

	// NULバイトやバックスラッシュはファイルシステム上で別の意味を持つため拒否する
	if strings.ContainsAny(urlPath, "\x00\\") {
		return "", ErrPathEscape
	}
	for _, segment := range strings.Split(urlPath, "/") {
		if segment == ".." {
			return "", ErrPathEscape
		}
	}

	candidate := filepath.Join(r.root, filepath.FromSlash(urlPath))
	if candidate == r.root {
		// "/." などルートそのものを指すパスは "/" と同じ扱い
		candidate = filepath.Join(r.root, r.defaultDocument)
	} else if strings.HasSuffix(urlPath, "/") {
		// 末尾のスラッシュは通常のセグメントとして扱う
		candidate += string(filepath.Separator)
	}

	if filepath.Ext(candidate) == "" {
		candidate += r.defaultExtension
	}

	// 判定は最終的なパスに対して行う
	if !r.contains(candidate) {
		return "", ErrPathEscape
	}

	return candidate, nil
}

// contains は path がコンテンツルート配下のファイルを指すかを判定する
// ルートそのものは含まない
func (r *Resolver) contains(path string) bool {
	rel, err := filepath.Rel(r.root, path)
	if err != nil {
		return false
	}
	return rel != "." && filepath.IsLocal(rel)
}
