package model

// ArticleUser は記事の著者情報を表す。dev.to APIのレスポンス形式に従う。
type ArticleUser struct {
	Name            string `json:"name"`
	Username        string `json:"username"`
	TwitterUsername string `json:"twitter_username,omitempty"`
	GithubUsername  string `json:"github_username,omitempty"`
	WebsiteURL      string `json:"website_url,omitempty"`
	ProfileImage    string `json:"profile_image"`
	ProfileImage90  string `json:"profile_image_90"`
}

// ArticleOrganization は記事が属する組織を表す。
type ArticleOrganization struct {
	Name           string `json:"name"`
	Username       string `json:"username"`
	Slug           string `json:"slug"`
	ProfileImage   string `json:"profile_image"`
	ProfileImage90 string `json:"profile_image_90"`
}

// Article はdev.to APIから取得した記事を表す。
// 一覧APIではbody_markdown/body_htmlが空になる場合がある。
type Article struct {
	TypeOf                 string               `json:"type_of"`
	ID                     int64                `json:"id"`
	Title                  string               `json:"title"`
	Description            string               `json:"description"`
	CoverImage             string               `json:"cover_image"`
	ReadablePublishDate    string               `json:"readable_publish_date"`
	SocialImage            string               `json:"social_image"`
	TagList                []string             `json:"tag_list"`
	Tags                   string               `json:"tags"`
	Slug                   string               `json:"slug"`
	Path                   string               `json:"path"`
	URL                    string               `json:"url"`
	CanonicalURL           string               `json:"canonical_url"`
	CommentsCount          int                  `json:"comments_count"`
	PositiveReactionsCount int                  `json:"positive_reactions_count"`
	PublicReactionsCount   int                  `json:"public_reactions_count"`
	CollectionID           *int64               `json:"collection_id"`
	CreatedAt              string               `json:"created_at"`
	EditedAt               string               `json:"edited_at,omitempty"`
	PublishedAt            string               `json:"published_at"`
	LastCommentAt          string               `json:"last_comment_at,omitempty"`
	PublishedTimestamp     string               `json:"published_timestamp"`
	ReadingTimeMinutes     int                  `json:"reading_time_minutes"`
	BodyMarkdown           string               `json:"body_markdown,omitempty"`
	BodyHTML               string               `json:"body_html,omitempty"`
	User                   ArticleUser          `json:"user"`
	Organization           *ArticleOrganization `json:"organization,omitempty"`
}

// ArticlesQuery はdev.toの記事一覧APIに渡すクエリパラメータを表す。
// ゼロ値のフィールドはクエリに含めない。
type ArticlesQuery struct {
	Page         int
	PerPage      int
	Tag          string
	Tags         string
	TagsExclude  string
	Username     string
	State        string // fresh | rising | all
	Top          int
	CollectionID int64
}

// ArticleDraft は記事の投稿・更新ペイロードの中身を表す。
type ArticleDraft struct {
	Title        string   `json:"title"`
	BodyMarkdown string   `json:"body_markdown"`
	Published    bool     `json:"published"`
	Tags         []string `json:"tags,omitempty"`
	Series       string   `json:"series,omitempty"`
	MainImage    string   `json:"main_image,omitempty"`
	CanonicalURL string   `json:"canonical_url,omitempty"`
	Description  string   `json:"description,omitempty"`
}

// ArticlePayload はdev.toの記事投稿APIが要求するラッパー形式。
type ArticlePayload struct {
	Article ArticleDraft `json:"article"`
}

// CommentUser はコメント投稿者を表す。
type CommentUser struct {
	Name         string `json:"name"`
	Username     string `json:"username"`
	ProfileImage string `json:"profile_image"`
}

// Comment はdev.toの記事コメントを表す。childrenによりスレッドを構成する。
type Comment struct {
	ID        string      `json:"id_code"`
	BodyHTML  string      `json:"body_html"`
	CreatedAt string      `json:"created_at"`
	User      CommentUser `json:"user"`
	Children  []Comment   `json:"children,omitempty"`
}

// Tag はdev.toのタグを表す。タグ一覧ページで使用する。
type Tag struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	BgColorHex   string `json:"bg_color_hex,omitempty"`
	TextColorHex string `json:"text_color_hex,omitempty"`
	ShortSummary string `json:"short_summary,omitempty"`
}
