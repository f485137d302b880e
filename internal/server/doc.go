// Package server は、静的コンテンツを配信するHTTPサーバーを管理します。
//
// このパッケージは、TCPポートのバインド、リクエストのルーティング、
// ファイルの読み込みとレスポンスの書き込みを担当します。
//
// 責務:
//   - HTTPサーバーの起動と管理
//   - URLパスからファイルパスへの解決 (resolver パッケージに委譲)
//   - Content-Type の決定 (contenttype パッケージに委譲)
//   - ファイル内容、または 404 / 405 / 500 ページの返却
//   - リクエストごとのアクセスログ出力
//
// 仕様:
//   - ルーティングには gin を使用
//   - 各リクエストは独立したゴルーチンで処理され、共有する可変状態を持たない
//   - 1つのリクエストに対してレスポンスは必ず1回だけ書き込む
//   - エラーの詳細 (ファイルパスや権限情報) はクライアントに返さず、ログにのみ出力する
//   - URLパスはコンテンツルートの外を指せないが、ルート内のシンボリックリンクは
//     リンク先がルート外であってもそのまま辿る (ルートの中身は運用者が管理する)
//   - グレースフルシャットダウンに対応
package server
