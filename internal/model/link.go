package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Link 一条短链接记录。OriginalURL、ShortCode、OwnerID、CreatedAt 创建后不可修改。
type Link struct {
	ID          string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	OriginalURL string     `gorm:"type:text;not null" json:"originalUrl"`
	ShortCode   string     `gorm:"size:16;uniqueIndex;not null" json:"shortCode"`
	ShortURL    string     `gorm:"-" json:"shortUrl"`
	OwnerID     string     `gorm:"type:varchar(36);index;not null" json:"ownerId"`
	Title       string     `gorm:"size:100;not null" json:"title"`
	Description string     `gorm:"size:500;not null" json:"description"`
	Tags        TagList    `gorm:"type:text" json:"tags"`
	Clicks      int64      `gorm:"not null" json:"clicks"`
	IsActive    bool       `gorm:"not null" json:"isActive"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	CreatedAt   time.Time  `gorm:"index" json:"createdAt"`
	LastClicked *time.Time `json:"lastClicked,omitempty"`
	SearchText  string     `gorm:"type:text;not null;default:''" json:"-"`
}

func (Link) TableName() string {
	return "links"
}

// BeforeCreate 写入搜索列
func (l *Link) BeforeCreate(tx *gorm.DB) error {
	l.SearchText = SearchText(l.Title, l.Description, l.OriginalURL)
	return nil
}

// SearchText 标题、描述和原始链接转成小写后拼在一起。
// 大小写在 Go 里折叠，SQLite 的 LOWER() 只处理 ASCII。
func SearchText(title, description, originalURL string) string {
	return strings.ToLower(title + "\n" + description + "\n" + originalURL)
}

type CreateLinkRequest struct {
	OriginalURL string     `json:"originalUrl" binding:"required,url,max=2048"`
	Title       string     `json:"title" binding:"max=100"`
	Description string     `json:"description" binding:"max=500"`
	Tags        TagList    `json:"tags"`
	ExpiresAt   *time.Time `json:"expiresAt"`
}

// UpdateLinkRequest 指针字段为 nil 表示未提交，空字符串表示清空
type UpdateLinkRequest struct {
	Title       *string      `json:"title" binding:"omitempty,max=100"`
	Description *string      `json:"description" binding:"omitempty,max=500"`
	Tags        *TagList     `json:"tags"`
	IsActive    *bool        `json:"isActive"`
	ExpiresAt   OptionalTime `json:"expiresAt"`
}

type ListLinksQuery struct {
	Search string `form:"search" binding:"max=200"`
	Page   int    `form:"page,default=1" binding:"min=1"`
	Limit  int    `form:"limit,default=10" binding:"min=1,max=100"`
}

type LinkPage struct {
	Items      []Link `json:"items"`
	Total      int64  `json:"total"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	TotalPages int    `json:"totalPages"`
}

type LinkSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	OriginalURL string    `json:"originalUrl"`
	ShortCode   string    `json:"shortCode"`
	ShortURL    string    `json:"shortUrl"`
	Clicks      int64     `json:"clicks"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Stats struct {
	TotalURLs   int64         `json:"totalUrls"`
	ActiveURLs  int64         `json:"activeUrls"`
	TotalClicks int64         `json:"totalClicks"`
	RecentURLs  []LinkSummary `json:"recentUrls"`
	TopURLs     []LinkSummary `json:"topUrls"`
}

// CachedLink 重定向所需的最小字段集合，写入 Redis
type CachedLink struct {
	ID          string     `json:"id"`
	OriginalURL string     `json:"originalUrl"`
	IsActive    bool       `json:"isActive"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

func (l *Link) Cached() CachedLink {
	return CachedLink{
		ID:          l.ID,
		OriginalURL: l.OriginalURL,
		IsActive:    l.IsActive,
		ExpiresAt:   l.ExpiresAt,
	}
}

// IsExpired 设置了过期时间且已经过去，恰好等于 now 时仍然有效
func (c *CachedLink) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}
