package devto

import (
	"strings"

	"github.com/hitoshi/devpress/internal/model"
)

// NormalizeArticle はdev.to APIレスポンスのフィールド欠損を補完する。
// 一覧APIと詳細APIでタグの返り方が異なる（tag_list配列 / tagsカンマ区切り文字列）
// ため、tag_listへ寄せる。カバー画像はsocial_imageへフォールバックし、
// 読了時間は最低1分とする。
func NormalizeArticle(a *model.Article) {
	if len(a.TagList) == 0 && a.Tags != "" {
		a.TagList = splitTags(a.Tags)
	}
	if a.Tags == "" && len(a.TagList) > 0 {
		a.Tags = strings.Join(a.TagList, ", ")
	}

	if a.CoverImage == "" {
		a.CoverImage = a.SocialImage
	}

	if a.ReadingTimeMinutes < 1 {
		a.ReadingTimeMinutes = 1
	}

	if a.PublicReactionsCount == 0 {
		a.PublicReactionsCount = a.PositiveReactionsCount
	}
}

// splitTags はカンマ区切りのタグ文字列を配列へ分解する。空要素は捨てる。
func splitTags(tags string) []string {
	parts := strings.Split(tags, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
