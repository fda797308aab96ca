// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ArticleSanitizerService はdev.toから取得した記事・コメントのHTMLを
// サニタイズし、XSSからユーザーを保護する。bluemondayの許可リスト
// ベースのポリシーで、安全なタグと属性のみを通過させる。
// 上流は信頼できるAPIだが、ユーザー投稿コンテンツである以上
// プロキシ境界で必ずサニタイズしてから返す。
package security

import (
	"net/url"

	"github.com/microcosm-cc/bluemonday"
)

// ArticleSanitizerService は記事HTMLのサニタイズ機能のインターフェースを定義する。
type ArticleSanitizerService interface {
	// SanitizeHTML はHTMLコンテンツをサニタイズして安全なHTMLを返す。
	// 記事本文に必要なタグ（見出し、段落、リスト、コードブロック、
	// テーブル、リンク、画像）のみを通過させ、script/iframe/styleタグ
	// およびon*イベント属性を除去する。
	// imgタグのsrc属性はhttpsスキームのみ許可される。
	// aタグにはtarget="_blank"とrel="noopener noreferrer"が付与される。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeHTML(rawHTML string) string
}

// articleSanitizer はArticleSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type articleSanitizer struct {
	policy *bluemonday.Policy
}

// NewArticleSanitizer はArticleSanitizerServiceの新しいインスタンスを生成する。
func NewArticleSanitizer() *articleSanitizer {
	p := bluemonday.NewPolicy()

	// 記事本文に現れる構造タグ。許可リストに含めないタグ
	// （script, iframe, style等）とon*イベント属性は自動的に除去される。
	p.AllowElements(
		"h1", "h2", "h3", "h4", "h5", "h6",
		"p", "br", "hr", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em", "del", "sup", "sub",
		"table", "thead", "tbody", "tr", "th", "td",
	)

	// コードブロックの言語指定クラス（highlight用）のみ通す
	p.AllowAttrs("class").OnElements("pre", "code")

	// リンク: 絶対URLのみ、別タブで開き、リファラを渡さない
	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	// 画像: httpsスキームのみ。altはアクセシビリティのため許可
	p.AllowAttrs("src", "alt").OnElements("img")
	p.AllowURLSchemeWithCustomPolicy("https", func(u *url.URL) bool {
		return true
	})

	return &articleSanitizer{policy: p}
}

// SanitizeHTML はHTMLコンテンツをサニタイズして安全なHTMLを返す。
func (s *articleSanitizer) SanitizeHTML(rawHTML string) string {
	return s.policy.Sanitize(rawHTML)
}
