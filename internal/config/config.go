package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server  ServerConfig
	Content ContentConfig
	Log     LogConfig
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string // リッスンするホスト
	Port int    `validate:"min=1,max=65535"` // リッスンするポート番号

	// タイムアウト設定
	ReadTimeout     time.Duration // 読み込みタイムアウト
	WriteTimeout    time.Duration // 書き込みタイムアウト
	IdleTimeout     time.Duration // キープアライブ接続のアイドルタイムアウト
	ShutdownTimeout time.Duration // グレースフルシャットダウンの待ち時間
}

// ContentConfig は配信するコンテンツの設定
type ContentConfig struct {
	Root             string `validate:"required,dir"`           // コンテンツルート (絶対パス)
	DefaultDocument  string `validate:"required,excludes=/"`    // "/" に対して返すファイル名
	DefaultExtension string `validate:"required,startswith=."` // 拡張子がないパスに付与する拡張子
}

// LogConfig はログ出力の設定
type LogConfig struct {
	Level  string `validate:"oneof=debug info warn error"` // ログレベル
	Format string `validate:"oneof=auto json console"`     // 出力形式
	Output string `validate:"required"`                    // stdout, stderr またはファイルパス
}

// 設定キー
const (
	KeyServerHost       = "server.host"
	KeyServerPort       = "server.port"
	KeyReadTimeout      = "server.read_timeout"
	KeyWriteTimeout     = "server.write_timeout"
	KeyIdleTimeout      = "server.idle_timeout"
	KeyShutdownTimeout  = "server.shutdown_timeout"
	KeyContentRoot      = "content.root"
	KeyDefaultDocument  = "content.default_document"
	KeyDefaultExtension = "content.default_extension"
	KeyLogLevel         = "log.level"
	KeyLogFormat        = "log.format"
	KeyLogOutput        = "log.output"
)

// envBindings は設定キーと環境変数の対応表
var envBindings = map[string][]string{
	KeyServerHost:  {"SERVER_HOST"},
	KeyServerPort:  {"PORT", "SERVER_PORT"},
	KeyContentRoot: {"CONTENT_ROOT"},
	KeyLogLevel:    {"LOG_LEVEL"},
	KeyLogFormat:   {"LOG_FORMAT"},
	KeyLogOutput:   {"LOG_OUTPUT"},
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// SetDefaults はデフォルト値を登録する
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyServerHost, "0.0.0.0")
	v.SetDefault(KeyServerPort, 3000)
	v.SetDefault(KeyReadTimeout, 10*time.Second)
	v.SetDefault(KeyWriteTimeout, 30*time.Second)
	v.SetDefault(KeyIdleTimeout, 60*time.Second)
	v.SetDefault(KeyShutdownTimeout, 5*time.Second)
	v.SetDefault(KeyContentRoot, "")
	v.SetDefault(KeyDefaultDocument, "index.html")
	v.SetDefault(KeyDefaultExtension, ".html")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "auto")
	v.SetDefault(KeyLogOutput, "stdout")
}

// Load は設定を読み込む
// 優先順位は viper の規則に従う (Set > フラグ > 環境変数 > デフォルト値)
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	SetDefaults(v)
	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("環境変数のバインドに失敗 (%s): %w", key, err)
		}
	}

	root, err := resolveRoot(v.GetString(KeyContentRoot))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            v.GetString(KeyServerHost),
			Port:            v.GetInt(KeyServerPort),
			ReadTimeout:     v.GetDuration(KeyReadTimeout),
			WriteTimeout:    v.GetDuration(KeyWriteTimeout),
			IdleTimeout:     v.GetDuration(KeyIdleTimeout),
			ShutdownTimeout: v.GetDuration(KeyShutdownTimeout),
		},
		Content: ContentConfig{
			Root:             root,
			DefaultDocument:  v.GetString(KeyDefaultDocument),
			DefaultExtension: v.GetString(KeyDefaultExtension),
		},
		Log: LogConfig{
			Level:  v.GetString(KeyLogLevel),
			Format: v.GetString(KeyLogFormat),
			Output: v.GetString(KeyLogOutput),
		},
	}

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	var errs error

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			errs = multierr.Append(errs, fmt.Errorf("無効な値 %s=%v (%s)", fe.Namespace(), fe.Value(), fe.Tag()))
		}
	}

	timeouts := map[string]time.Duration{
		"ReadTimeout":     c.Server.ReadTimeout,
		"WriteTimeout":    c.Server.WriteTimeout,
		"IdleTimeout":     c.Server.IdleTimeout,
		"ShutdownTimeout": c.Server.ShutdownTimeout,
	}
	for name, d := range timeouts {
		if d < 0 {
			errs = multierr.Append(errs, fmt.Errorf("タイムアウトが負の値です: %s=%s", name, d))
		}
	}

	if c.Content.Root != "" {
		if !filepath.IsAbs(c.Content.Root) {
			errs = multierr.Append(errs, fmt.Errorf("コンテンツルートが絶対パスではありません: %s", c.Content.Root))
		}
		if f, err := os.Open(c.Content.Root); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("コンテンツルートを開けません: %w", err))
		} else {
			_ = f.Close()
		}
	}

	return errs
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// resolveRoot はコンテンツルートを絶対パスに変換する
// 空の場合はカレントディレクトリを使う
func resolveRoot(root string) (string, error) {
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("作業ディレクトリの取得に失敗: %w", err)
		}
		return wd, nil
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("コンテンツルートの解決に失敗: %w", err)
	}
	return abs, nil
}
