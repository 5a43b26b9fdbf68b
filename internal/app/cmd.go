package app

import (
	"fmt"
	"strings"
)

// Command はアプリケーションの起動モード（サブコマンド）を表す。
type Command string

const (
	// CommandServe はHTTP APIとWebSocket配信を起動する。引数なしの場合の既定。
	CommandServe Command = "serve"
	// CommandWorker は既読通知のクリーンアップを定期実行する。
	CommandWorker Command = "worker"
	// CommandMigrate は未適用のマイグレーションを適用して終了する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は自プロセスの /health を叩いて終了する。
	// distrolessイメージのHEALTHCHECKから呼ばれるため、設定の読み込みを行わない。
	CommandHealthcheck Command = "healthcheck"
)

// commandOrder はエラーメッセージに並べる順序。
var commandOrder = []Command{CommandServe, CommandWorker, CommandMigrate, CommandHealthcheck}

// ParseCommand は先頭の引数からサブコマンドを解析する。2つ目以降の引数は無視する。
// 引数が空の場合はCommandServeを返し、未知のサブコマンドはエラーにする。
func ParseCommand(args []string) (Command, error) {
	if len(args) == 0 || args[0] == "" {
		return CommandServe, nil
	}
	for _, c := range commandOrder {
		if args[0] == string(c) {
			return c, nil
		}
	}

	names := make([]string, len(commandOrder))
	for i, c := range commandOrder {
		names[i] = string(c)
	}
	return "", fmt.Errorf("unknown command %q (available: %s)", args[0], strings.Join(names, ", "))
}

// RequiresConfig はサブコマンドの実行に環境変数からの設定読み込みが必要かを返す。
func (c Command) RequiresConfig() bool {
	return c != CommandHealthcheck
}

