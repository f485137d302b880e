package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// TestServerStartAndShutdown はサーバーの起動とシャットダウンをテストする
func TestServerStartAndShutdown(t *testing.T) {
	srv := newTestServer(t, setupContent(t))

	// テスト用のコンテキスト（タイムアウト付き）
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 先にバインドしてアドレスを確定させる
	require.NoError(t, srv.Listen())
	require.NotNil(t, srv.Addr())

	// サーバーを別ゴルーチンで起動
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	resp, err := http.Get("http://" + srv.Addr().String() + "/style.css")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, testFiles["style.css"], string(body))

	// コンテキストをキャンセルしてサーバーを停止
	cancel()

	// エラーチャンネルから結果を受信
	select {
	case err := <-errCh:
		assert.NoError(t, err, "サーバーの起動/停止でエラーが発生しました")
	case <-time.After(3 * time.Second):
		t.Fatal("サーバーの停止がタイムアウトしました")
	}
}

// TestServerBindFailure は使用中のポートで起動に失敗することをテストする
func TestServerBindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := testConfig(setupContent(t))
	cfg.Server.Port = ln.Addr().(*net.TCPAddr).Port

	srv, err := New(cfg, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = srv.Start(ctx)
	assert.Error(t, err)
	assert.Nil(t, srv.Addr())
}

// TestIndependentInstances は複数のサーバーが別々のコンテンツルートを配信できることをテストする
func TestIndependentInstances(t *testing.T) {
	first := newTestServer(t, setupContent(t))
	secondRoot := t.TempDir()
	second := newTestServer(t, secondRoot)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	servers := []*Server{first, second}
	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		require.NoError(t, srv.Listen())
		go func(srv *Server) {
			errCh <- srv.Start(ctx)
		}(srv)
	}

	resp, err := http.Get("http://" + first.Addr().String() + "/about")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get("http://" + second.Addr().String() + "/about")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	cancel()
	for range servers {
		select {
		case err := <-errCh:
			assert.NoError(t, err)
		case <-time.After(3 * time.Second):
			t.Fatal("サーバーの停止がタイムアウトしました")
		}
	}
}

// TestNewRejectsEmptyRoot はコンテンツルートなしで作成に失敗することをテストする
func TestNewRejectsEmptyRoot(t *testing.T) {
	_, err := New(testConfig(""), nil)
	assert.Error(t, err)
}

// TestStartupLog は起動時にコンテンツルートと対応表の件数がログに出ることをテストする
func TestStartupLog(t *testing.T) {
	root := setupContent(t)
	core, logs := observer.New(zap.InfoLevel)
	srv, err := New(testConfig(root), zap.New(core))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	require.Eventually(t, func() bool {
		return logs.FilterMessage("HTTPサーバーを起動しています").Len() > 0
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-errCh)

	fields := logs.FilterMessage("HTTPサーバーを起動しています").All()[0].ContextMap()
	assert.Equal(t, root, fields["root"])
	assert.Greater(t, fields["content_types"], int64(0))
}
