package server

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ownnginx/internal/contenttype"
	"ownnginx/internal/resolver"
)

// errNotFound はファイルが存在しない、または通常ファイルではない場合のエラー
var errNotFound = errors.New("file not found")

// FileHandler はリクエストパスに対応するファイルを返すハンドラ
type FileHandler struct {
	resolver *resolver.Resolver
	types    *contenttype.Table
	pages    *errorPages
	logger   *zap.Logger
}

// Serve はファイルを読み込んでレスポンスを書き込む
// どの分岐でもレスポンスは1回だけ書き込まれる
func (h *FileHandler) Serve(c *gin.Context) {
	urlPath := c.Request.URL.Path

	filePath, err := h.resolver.Resolve(urlPath)
	if err != nil {
		// コンテンツルート外へのアクセスは存在しないファイルとして扱う
		h.logger.Debug("パスの解決を拒否しました",
			zap.String("path", urlPath),
			zap.Error(err),
			requestIDField(c),
		)
		h.pages.notFound(c)
		return
	}

	h.logger.Debug("パスを解決しました",
		zap.String("path", urlPath),
		zap.String("file", filePath),
		requestIDField(c),
	)

	body, err := readFile(filePath)
	switch {
	case err == nil:
		c.Data(http.StatusOK, h.types.Lookup(filePath), body)
	case errors.Is(err, errNotFound):
		h.pages.notFound(c)
	default:
		h.logger.Error("ファイルの読み込みに失敗しました",
			zap.String("path", urlPath),
			zap.String("file", filePath),
			zap.Error(err),
			requestIDField(c),
		)
		h.pages.internalError(c)
	}
}

// readFile はファイル全体をメモリに読み込む
// 通常ファイル以外 (ディレクトリ、FIFO など) は開かずに errNotFound を返す
func readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, classifyError(err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", errNotFound, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, classifyError(err)
	}
	defer f.Close()

	body, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("読み込みに失敗: %w", err)
	}
	return body, nil
}

// classifyError はファイルシステムのエラーを NotFound とそれ以外に分類する
func classifyError(err error) error {
	if errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, syscall.ENOTDIR) ||
		errors.Is(err, syscall.ENAMETOOLONG) {
		return fmt.Errorf("%w: %w", errNotFound, err)
	}
	return err
}
