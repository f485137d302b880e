// Package cmd はサーバーコマンドの実装です
package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"ownnginx/internal/config"
	"ownnginx/internal/logging"
	"ownnginx/internal/server"
)

// flagKeys はコマンドラインフラグと設定キーの対応
var flagKeys = map[string]string{
	"host":       config.KeyServerHost,
	"port":       config.KeyServerPort,
	"root":       config.KeyContentRoot,
	"log-level":  config.KeyLogLevel,
	"log-format": config.KeyLogFormat,
	"log-output": config.KeyLogOutput,
}

// NewServerCommand はサーバーを起動するコマンドを作成する
func NewServerCommand() *cobra.Command {
	v := viper.New()

	command := &cobra.Command{
		Use:   "ownnginx [port] [root]",
		Short: "ディレクトリ内の静的ファイルをHTTPで配信する",
		Long: `ownnginx はコンテンツルート配下のファイルをHTTPで配信します。

"/" は index.html を返し、拡張子のないパスには .html を補完します。
引数には数値のポート番号とコンテンツルートのディレクトリを任意の順で指定できます。
環境変数 PORT, CONTENT_ROOT, SERVER_HOST, LOG_LEVEL, LOG_FORMAT, LOG_OUTPUT でも設定できます。`,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v, args)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	flags := command.Flags()
	flags.String("host", "", "サーバーのホスト (デフォルト: 0.0.0.0)")
	flags.IntP("port", "p", 0, "サーバーのポート (デフォルト: 3000)")
	flags.StringP("root", "r", "", "コンテンツルート (デフォルト: カレントディレクトリ)")
	flags.String("log-level", "", "ログレベル: debug, info, warn, error")
	flags.String("log-format", "", "ログ形式: auto, json, console")
	flags.String("log-output", "", "ログ出力先: stdout, stderr またはファイルパス")

	if err := bindFlags(v, flags); err != nil {
		panic(err)
	}

	return command
}

// Execute はコマンドを実行する
func Execute(ctx context.Context) error {
	return NewServerCommand().ExecuteContext(ctx)
}

// bindFlags はフラグを設定キーにバインドする
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("フラグのバインドに失敗 (%s): %w", name, err)
		}
	}
	return nil
}

// loadConfig は引数を反映して設定を読み込む
func loadConfig(v *viper.Viper, args []string) (*config.Config, error) {
	if err := applyArgs(v, args); err != nil {
		return nil, err
	}

	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗しました: %w", err)
	}
	return cfg, nil
}

// applyArgs は位置引数を設定に反映する
// 数値はポート番号、それ以外はコンテンツルートとして扱う
func applyArgs(v *viper.Viper, args []string) error {
	var portSet, rootSet bool
	for _, arg := range args {
		if port, err := strconv.Atoi(arg); err == nil {
			if portSet {
				return fmt.Errorf("ポート番号が複数指定されています: %s", arg)
			}
			v.Set(config.KeyServerPort, port)
			portSet = true
			continue
		}
		if rootSet {
			return fmt.Errorf("コンテンツルートが複数指定されています: %s", arg)
		}
		v.Set(config.KeyContentRoot, arg)
		rootSet = true
	}
	return nil
}

// run はロガーとサーバーを作成して起動する
func run(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("サーバーの作成に失敗しました: %w", err)
	}

	if err := srv.Start(ctx); err != nil {
		logger.Error("サーバーの起動に失敗しました", zap.Error(err))
		return fmt.Errorf("サーバーの起動に失敗しました: %w", err)
	}
	return nil
}
