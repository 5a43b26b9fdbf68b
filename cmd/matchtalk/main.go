// Command matchtalk はいいね・マッチ・メッセージングエンジンのAPIサーバー/ワーカーを起動する。
//
// サブコマンド:
//
//	serve        APIサーバー（デフォルト）
//	worker       既読通知のクリーンアップ
//	migrate      データベースマイグレーション
//	healthcheck  /health への疎通確認
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/hitoshi/matchtalk/internal/app"
)

func main() {
	// .envが無い場合（本番環境など）は環境変数のみを使う
	_ = godotenv.Load()

	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "matchtalk: %v\n", err)
		os.Exit(1)
	}
}
