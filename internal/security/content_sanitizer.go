// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer は外部のプロフィール管理から来た表示名などを、通知文面に埋め込める
// プレーンテキストに整える。bluemondayのStrictPolicyで全タグを除去したうえで、
// エスケープされた文字を元に戻す。メッセージ本文には使わない（本文は送信されたまま保存する）。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer は通知文面に埋め込む文字列のサニタイズ機能のインターフェースを定義する。
type TextSanitizer interface {
	// Clean は文字列からHTMLタグを除去し、前後の空白を取り除いたプレーンテキストを返す。
	// script/styleなど中身ごと危険な要素は内容も除去される。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Clean(text string) string
}

// textSanitizer はTextSanitizerの実装。
// bluemondayのポリシーはスレッドセーフなので共有して使う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
func NewTextSanitizer() TextSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Clean は文字列からHTMLタグを除去したプレーンテキストを返す。
// StrictPolicyは出力をHTMLエスケープするため、アンエスケープして元の文字に戻す。
func (s *textSanitizer) Clean(text string) string {
	stripped := s.policy.Sanitize(text)
	return strings.TrimSpace(html.UnescapeString(stripped))
}
